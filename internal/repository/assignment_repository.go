package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuslabs/academia-api/internal/models"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
)

// AssignmentRepository handles persistence of assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `a.id, a.course_offering_id, a.title, a.description, a.due_date, a.max_marks,
        a.assignment_type, a.is_published, a.allow_late_submission, a.late_penalty_per_day, a.created_at, a.updated_at`

// Create persists a new assignment (unpublished by default).
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	now := time.Now().UTC()
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, course_offering_id, title, description, due_date, max_marks,
        assignment_type, is_published, allow_late_submission, late_penalty_per_day, created_at, updated_at)
        VALUES (:id, :course_offering_id, :title, :description, :due_date, :max_marks,
        :assignment_type, :is_published, :allow_late_submission, :late_penalty_per_day, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// FindByID returns an assignment scoped to the caller's institute.
func (r *AssignmentRepository) FindByID(ctx context.Context, instituteID, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments a
        JOIN course_offerings co ON co.id = a.course_offering_id %s
        WHERE a.id = $1 AND p.institute_id = $2`, assignmentColumns, tenantJoin)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id, instituteID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Publish flips is_published. One-way: already-published rows pass through
// unchanged so the operation stays idempotent.
func (r *AssignmentRepository) Publish(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`UPDATE assignments a SET is_published = TRUE, updated_at = $2
        WHERE a.id = $1 RETURNING %s`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByOffering returns assignments for an offering, optionally only
// published ones (the student view).
func (r *AssignmentRepository) ListByOffering(ctx context.Context, offeringID string, publishedOnly bool) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments a WHERE a.course_offering_id = $1`, assignmentColumns)
	if publishedOnly {
		query += " AND a.is_published = TRUE"
	}
	query += " ORDER BY a.due_date"
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, offeringID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// SubmissionRepository handles persistence of assignment submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `id, assignment_id, student_id, content, submitted_at, is_late,
        marks_obtained, feedback, graded_at, graded_by, status, updated_at`

// Upsert stores a submission with replace semantics: a resubmission
// overwrites the existing row, resets it to submitted and clears every
// grading field.
func (r *SubmissionRepository) Upsert(ctx context.Context, submission *models.AssignmentSubmission) (*models.AssignmentSubmission, error) {
	now := time.Now().UTC()
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO assignment_submissions (id, assignment_id, student_id, content, submitted_at, is_late, status, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (assignment_id, student_id)
DO UPDATE SET content = EXCLUDED.content, submitted_at = EXCLUDED.submitted_at, is_late = EXCLUDED.is_late,
        status = EXCLUDED.status, marks_obtained = NULL, feedback = NULL, graded_at = NULL, graded_by = NULL,
        updated_at = EXCLUDED.updated_at
RETURNING %s`, submissionColumns)
	var stored models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &stored, query,
		submission.ID, submission.AssignmentID, submission.StudentID, submission.Content,
		submission.SubmittedAt, submission.IsLate, models.SubmissionStatusSubmitted, now); err != nil {
		return nil, fmt.Errorf("upsert submission: %w", err)
	}
	return &stored, nil
}

// FindByID returns a submission scoped to the caller's institute.
func (r *SubmissionRepository) FindByID(ctx context.Context, instituteID, id string) (*models.AssignmentSubmission, error) {
	query := fmt.Sprintf(`SELECT s.id, s.assignment_id, s.student_id, s.content, s.submitted_at, s.is_late,
        s.marks_obtained, s.feedback, s.graded_at, s.graded_by, s.status, s.updated_at
        FROM assignment_submissions s
        JOIN assignments a ON a.id = s.assignment_id
        JOIN course_offerings co ON co.id = a.course_offering_id %s
        WHERE s.id = $1 AND p.institute_id = $2`, tenantJoin)
	var submission models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &submission, query, id, instituteID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// Grade records marks on a submission and moves it to graded. Re-grading
// overwrites: concurrent graders resolve last-write-wins. Only returned rows
// refuse, so feedback already released to the student cannot change silently.
func (r *SubmissionRepository) Grade(ctx context.Context, id, gradedBy string, marksObtained float64, feedback *string) (*models.AssignmentSubmission, error) {
	query := fmt.Sprintf(`UPDATE assignment_submissions SET marks_obtained = $2, feedback = $3, graded_at = $4,
        graded_by = $5, status = $6, updated_at = $4
        WHERE id = $1 AND status <> $7 RETURNING %s`, submissionColumns)
	var submission models.AssignmentSubmission
	err := r.db.GetContext(ctx, &submission, query, id, marksObtained, feedback, time.Now().UTC(),
		gradedBy, models.SubmissionStatusGraded, models.SubmissionStatusReturned)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "submission has been returned")
		}
		return nil, fmt.Errorf("grade submission: %w", err)
	}
	return &submission, nil
}

// Return releases feedback to the student: graded to returned only.
func (r *SubmissionRepository) Return(ctx context.Context, id string) (*models.AssignmentSubmission, error) {
	query := fmt.Sprintf(`UPDATE assignment_submissions SET status = $2, updated_at = $3
        WHERE id = $1 AND status = $4 RETURNING %s`, submissionColumns)
	var submission models.AssignmentSubmission
	err := r.db.GetContext(ctx, &submission, query, id, models.SubmissionStatusReturned, time.Now().UTC(), models.SubmissionStatusGraded)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "submission is not graded")
		}
		return nil, fmt.Errorf("return submission: %w", err)
	}
	return &submission, nil
}

// ListByAssignment returns submissions with student names for a faculty view.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	const query = `SELECT s.id, s.assignment_id, s.student_id, s.content, s.submitted_at, s.is_late,
        s.marks_obtained, s.feedback, s.graded_at, s.graded_by, s.status, s.updated_at,
        st.full_name AS student_name
        FROM assignment_submissions s
        JOIN students st ON st.id = s.student_id
        WHERE s.assignment_id = $1
        ORDER BY st.full_name`
	var submissions []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &submissions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}
