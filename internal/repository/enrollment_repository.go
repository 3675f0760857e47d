package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuslabs/academia-api/internal/models"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
)

// EnrollmentRepository handles persistence of enrollments and owns the
// seat-allocation transaction.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, course_offering_id, status, enrolled_at, final_grade, final_marks, updated_at`

type offeringSeatRow struct {
	ID            string `db:"id"`
	MaxEnrollment int    `db:"max_enrollment"`
	IsActive      bool   `db:"is_active"`
}

// AllocateSeat grants a seat inside one serializable unit: the offering row is
// locked for the duration, so concurrent requests for the last seat resolve to
// exactly one success. Returns the enrollment and whether a seat was consumed
// (false when the request was an idempotent repeat).
func (r *EnrollmentRepository) AllocateSeat(ctx context.Context, instituteID, studentID, offeringID string) (*models.Enrollment, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin seat allocation: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	lockQuery := fmt.Sprintf(`SELECT co.id, co.max_enrollment, co.is_active
        FROM course_offerings co %s
        WHERE co.id = $1 AND p.institute_id = $2
        FOR UPDATE OF co`, tenantJoin)
	var offering offeringSeatRow
	if err := tx.GetContext(ctx, &offering, lockQuery, offeringID, instituteID); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, false, fmt.Errorf("lock offering: %w", err)
	}
	if !offering.IsActive {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "course offering is not active")
	}

	existingQuery := fmt.Sprintf(`SELECT %s FROM enrollments WHERE student_id = $1 AND course_offering_id = $2`, enrollmentColumns)
	var existing models.Enrollment
	err = tx.GetContext(ctx, &existing, existingQuery, studentID, offeringID)
	switch {
	case err == nil:
		switch existing.Status {
		case models.EnrollmentStatusEnrolled:
			// Idempotent repeat: same enrollment, no seat consumed.
			if err := tx.Commit(); err != nil {
				return nil, false, fmt.Errorf("commit seat allocation: %w", err)
			}
			committed = true
			return &existing, false, nil
		case models.EnrollmentStatusDropped:
			// A released seat may be retaken by the same student.
		default:
			return nil, false, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "enrollment already finalized")
		}
	case err == sql.ErrNoRows:
		// No prior row; fall through to allocation.
	default:
		return nil, false, fmt.Errorf("check existing enrollment: %w", err)
	}

	var enrolled int
	const countQuery = `SELECT COUNT(*) FROM enrollments WHERE course_offering_id = $1 AND status = $2`
	if err := tx.GetContext(ctx, &enrolled, countQuery, offeringID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, false, fmt.Errorf("count enrolled: %w", err)
	}
	if enrolled >= offering.MaxEnrollment {
		return nil, false, appErrors.ErrCapacityExceeded
	}

	now := time.Now().UTC()
	var stored models.Enrollment
	if existing.ID != "" {
		reactivate := fmt.Sprintf(`UPDATE enrollments SET status = $2, enrolled_at = $3, updated_at = $3
            WHERE id = $1 RETURNING %s`, enrollmentColumns)
		if err := tx.GetContext(ctx, &stored, reactivate, existing.ID, models.EnrollmentStatusEnrolled, now); err != nil {
			return nil, false, fmt.Errorf("reactivate enrollment: %w", err)
		}
	} else {
		insert := fmt.Sprintf(`INSERT INTO enrollments (id, student_id, course_offering_id, status, enrolled_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $5) RETURNING %s`, enrollmentColumns)
		if err := tx.GetContext(ctx, &stored, insert, uuid.NewString(), studentID, offeringID, models.EnrollmentStatusEnrolled, now); err != nil {
			return nil, false, fmt.Errorf("create enrollment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit seat allocation: %w", err)
	}
	committed = true
	return &stored, true, nil
}

// FindByStudentAndOffering returns the enrollment row for the pair, scoped to
// the institute.
func (r *EnrollmentRepository) FindByStudentAndOffering(ctx context.Context, instituteID, studentID, offeringID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_offering_id, e.status, e.enrolled_at, e.final_grade, e.final_marks, e.updated_at
        FROM enrollments e
        JOIN course_offerings co ON co.id = e.course_offering_id %s
        WHERE e.student_id = $1 AND e.course_offering_id = $2 AND p.institute_id = $3`, tenantJoin)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, offeringID, instituteID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Drop releases a seat. The status guard makes the transition atomic: zero
// rows updated means there was no active enrollment to drop.
func (r *EnrollmentRepository) Drop(ctx context.Context, instituteID, studentID, offeringID string) (bool, error) {
	query := fmt.Sprintf(`UPDATE enrollments e SET status = $1, updated_at = $2
        FROM course_offerings co %s
        WHERE co.id = e.course_offering_id
          AND e.student_id = $3 AND e.course_offering_id = $4
          AND e.status = $5 AND p.institute_id = $6`, tenantJoin)
	res, err := r.db.ExecContext(ctx, query,
		models.EnrollmentStatusDropped, time.Now().UTC(), studentID, offeringID, models.EnrollmentStatusEnrolled, instituteID)
	if err != nil {
		return false, fmt.Errorf("drop enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("drop enrollment result: %w", err)
	}
	return affected > 0, nil
}

// Finalize closes an enrollment with a grade. The WHERE guard on status makes
// a lost race indistinguishable from a pre-check failure: zero rows updated
// is reported as an invalid transition either way.
func (r *EnrollmentRepository) Finalize(ctx context.Context, id string, status models.EnrollmentStatus, grade string, marks float64) (*models.Enrollment, error) {
	query := fmt.Sprintf(`UPDATE enrollments SET status = $2, final_grade = $3, final_marks = $4, updated_at = $5
        WHERE id = $1 AND status = $6 RETURNING %s`, enrollmentColumns)
	var enrollment models.Enrollment
	err := r.db.GetContext(ctx, &enrollment, query, id, status, grade, marks, time.Now().UTC(), models.EnrollmentStatusEnrolled)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment is not active")
		}
		return nil, fmt.Errorf("finalize enrollment: %w", err)
	}
	return &enrollment, nil
}

// CountEnrolled returns the derived seat count for an offering.
func (r *EnrollmentRepository) CountEnrolled(ctx context.Context, offeringID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_offering_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, offeringID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count enrolled: %w", err)
	}
	return count, nil
}

// GradeSheetRows returns every enrollment of an offering for export, in
// roster order, without pagination.
func (r *EnrollmentRepository) GradeSheetRows(ctx context.Context, instituteID, offeringID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_offering_id, e.status, e.enrolled_at, e.final_grade, e.final_marks, e.updated_at,
        s.full_name AS student_name, sub.name AS subject_name, co.section
        FROM enrollments e
        JOIN course_offerings co ON co.id = e.course_offering_id %s
        JOIN students s ON s.id = e.student_id
        WHERE e.course_offering_id = $1 AND p.institute_id = $2
        ORDER BY s.full_name`, tenantJoin)
	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, offeringID, instituteID); err != nil {
		return nil, fmt.Errorf("grade sheet rows: %w", err)
	}
	return rows, nil
}

// List returns enrollment details matching the filter within the institute.
func (r *EnrollmentRepository) List(ctx context.Context, instituteID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := fmt.Sprintf(`FROM enrollments e
JOIN course_offerings co ON co.id = e.course_offering_id %s
JOIN students s ON s.id = e.student_id`, tenantJoin)
	conditions := []string{"p.institute_id = $1"}
	args := []interface{}{instituteID}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseOfferingID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_offering_id = $%d", len(args)+1))
		args = append(args, filter.CourseOfferingID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_offering_id, e.status, e.enrolled_at, e.final_grade, e.final_marks, e.updated_at,
        s.full_name AS student_name, sub.name AS subject_name, co.section
        %s ORDER BY s.full_name LIMIT %d OFFSET %d`, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}
