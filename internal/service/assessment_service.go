package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuslabs/academia-api/internal/models"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
)

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, instituteID, id string) (*models.Assignment, error)
	Publish(ctx context.Context, id string) (*models.Assignment, error)
	ListByOffering(ctx context.Context, offeringID string, publishedOnly bool) ([]models.Assignment, error)
}

type submissionRepository interface {
	Upsert(ctx context.Context, submission *models.AssignmentSubmission) (*models.AssignmentSubmission, error)
	FindByID(ctx context.Context, instituteID, id string) (*models.AssignmentSubmission, error)
	Grade(ctx context.Context, id, gradedBy string, marksObtained float64, feedback *string) (*models.AssignmentSubmission, error)
	Return(ctx context.Context, id string) (*models.AssignmentSubmission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error)
}

type enrollmentReader interface {
	FindByStudentAndOffering(ctx context.Context, instituteID, studentID, offeringID string) (*models.Enrollment, error)
}

// CreateAssignmentRequest describes a new assignment for an offering.
type CreateAssignmentRequest struct {
	InstituteID         string                `json:"-" validate:"required"`
	ActorID             string                `json:"-" validate:"required"`
	ActorRole           models.UserRole       `json:"-" validate:"required"`
	CourseOfferingID    string                `json:"course_offering_id" validate:"required"`
	Title               string                `json:"title" validate:"required"`
	Description         string                `json:"description"`
	DueDate             time.Time             `json:"due_date" validate:"required"`
	MaxMarks            float64               `json:"max_marks" validate:"required,gt=0"`
	AssignmentType      models.AssignmentType `json:"assignment_type"`
	AllowLateSubmission bool                  `json:"allow_late_submission"`
	LatePenaltyPerDay   float64               `json:"late_penalty_per_day" validate:"gte=0"`
}

// PublishRequest flips assignment visibility for students.
type PublishRequest struct {
	InstituteID  string          `json:"-" validate:"required"`
	ActorID      string          `json:"-" validate:"required"`
	ActorRole    models.UserRole `json:"-" validate:"required"`
	AssignmentID string          `json:"-" validate:"required"`
}

// SubmitRequest is a student submission payload.
type SubmitRequest struct {
	InstituteID  string    `json:"-" validate:"required"`
	StudentID    string    `json:"-" validate:"required"`
	AssignmentID string    `json:"-" validate:"required"`
	Content      string    `json:"content" validate:"required"`
	SubmittedAt  time.Time `json:"-"`
}

// GradeRequest records marks for a submission.
type GradeRequest struct {
	InstituteID   string          `json:"-" validate:"required"`
	GraderID      string          `json:"-" validate:"required"`
	ActorRole     models.UserRole `json:"-" validate:"required"`
	SubmissionID  string          `json:"-" validate:"required"`
	MarksObtained float64         `json:"marks_obtained" validate:"gte=0"`
	Feedback      *string         `json:"feedback"`
}

// ReturnRequest releases graded feedback to the student.
type ReturnRequest struct {
	InstituteID  string          `json:"-" validate:"required"`
	ActorID      string          `json:"-" validate:"required"`
	ActorRole    models.UserRole `json:"-" validate:"required"`
	SubmissionID string          `json:"-" validate:"required"`
}

// AssessmentService owns the assignment publication, submission and grading
// state machine.
type AssessmentService struct {
	assignments assignmentRepository
	submissions submissionRepository
	enrollments enrollmentReader
	offerings   offeringReader
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAssessmentService constructs AssessmentService.
func NewAssessmentService(assignments assignmentRepository, submissions submissionRepository, enrollments enrollmentReader, offerings offeringReader, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{
		assignments: assignments,
		submissions: submissions,
		enrollments: enrollments,
		offerings:   offerings,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateAssignment registers an unpublished assignment for an offering.
func (s *AssessmentService) CreateAssignment(ctx context.Context, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	assignmentType := req.AssignmentType
	if assignmentType == "" {
		assignmentType = models.AssignmentTypeHomework
	}
	if !assignmentType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment type")
	}
	offering, err := s.loadOffering(ctx, req.InstituteID, req.CourseOfferingID)
	if err != nil {
		return nil, err
	}
	if req.ActorRole == models.RoleFaculty && offering.FacultyID != req.ActorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the offering faculty may create assignments")
	}
	assignment := &models.Assignment{
		CourseOfferingID:    req.CourseOfferingID,
		Title:               req.Title,
		Description:         req.Description,
		DueDate:             req.DueDate,
		MaxMarks:            req.MaxMarks,
		AssignmentType:      assignmentType,
		AllowLateSubmission: req.AllowLateSubmission,
		LatePenaltyPerDay:   req.LatePenaltyPerDay,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Publish makes an assignment visible to students. Publication is one-way;
// republishing an already-published assignment is a no-op.
func (s *AssessmentService) Publish(ctx context.Context, req PublishRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publish request")
	}
	assignment, err := s.assignments.FindByID(ctx, req.InstituteID, req.AssignmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	offering, err := s.loadOffering(ctx, req.InstituteID, assignment.CourseOfferingID)
	if err != nil {
		return nil, err
	}
	if req.ActorRole == models.RoleFaculty && offering.FacultyID != req.ActorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the offering faculty may publish")
	}
	published, err := s.assignments.Publish(ctx, assignment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish assignment")
	}
	return published, nil
}

// Submit takes a student submission. Resubmission replaces the previous row,
// resetting it to submitted and clearing any grading.
func (s *AssessmentService) Submit(ctx context.Context, req SubmitRequest) (*models.AssignmentSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	assignment, err := s.assignments.FindByID(ctx, req.InstituteID, req.AssignmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if !assignment.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	enrollment, err := s.enrollments.FindByStudentAndOffering(ctx, req.InstituteID, req.StudentID, assignment.CourseOfferingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "student is not enrolled in this offering")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusEnrolled {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "student is not enrolled in this offering")
	}

	submittedAt := req.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = s.now()
	}
	isLate := submittedAt.After(assignment.DueDate)
	if isLate && !assignment.AllowLateSubmission {
		return nil, appErrors.ErrLateSubmissionDisallowed
	}

	submission := &models.AssignmentSubmission{
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		Content:      req.Content,
		SubmittedAt:  submittedAt,
		IsLate:       isLate,
	}
	stored, err := s.submissions.Upsert(ctx, submission)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}
	return stored, nil
}

// Grade records raw marks for a submission and moves it to graded. Re-grading
// overwrites the previous marks (last write wins); only returned submissions
// refuse. The raw marks are validated against the assignment's max before any
// penalty; the penalty-adjusted value is derived, never stored, so
// recomputation is idempotent.
func (s *AssessmentService) Grade(ctx context.Context, req GradeRequest) (*models.SubmissionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	submission, err := s.submissions.FindByID(ctx, req.InstituteID, req.SubmissionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	assignment, err := s.assignments.FindByID(ctx, req.InstituteID, submission.AssignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if req.MarksObtained > assignment.MaxMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "marks exceed assignment maximum")
	}
	offering, err := s.loadOffering(ctx, req.InstituteID, assignment.CourseOfferingID)
	if err != nil {
		return nil, err
	}
	if req.ActorRole == models.RoleFaculty && offering.FacultyID != req.GraderID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the offering faculty may grade")
	}

	graded, err := s.submissions.Grade(ctx, req.SubmissionID, req.GraderID, req.MarksObtained, req.Feedback)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	detail := &models.SubmissionDetail{AssignmentSubmission: *graded}
	detail.EffectiveMarks = graded.EffectiveMarks(assignment)
	return detail, nil
}

// Return releases feedback: graded to returned only.
func (s *AssessmentService) Return(ctx context.Context, req ReturnRequest) (*models.AssignmentSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid return request")
	}
	submission, err := s.submissions.FindByID(ctx, req.InstituteID, req.SubmissionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	assignment, err := s.assignments.FindByID(ctx, req.InstituteID, submission.AssignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	offering, err := s.loadOffering(ctx, req.InstituteID, assignment.CourseOfferingID)
	if err != nil {
		return nil, err
	}
	if req.ActorRole == models.RoleFaculty && offering.FacultyID != req.ActorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the offering faculty may return submissions")
	}
	returned, err := s.submissions.Return(ctx, req.SubmissionID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return returned, nil
}

// ListSubmissions returns the faculty roster for an assignment with derived
// effective marks per row.
func (s *AssessmentService) ListSubmissions(ctx context.Context, instituteID, assignmentID string) ([]models.SubmissionDetail, error) {
	assignment, err := s.assignments.FindByID(ctx, instituteID, assignmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	submissions, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	for i := range submissions {
		submissions[i].EffectiveMarks = submissions[i].AssignmentSubmission.EffectiveMarks(assignment)
	}
	return submissions, nil
}

// ListAssignments returns the offering's assignments; students see only
// published ones.
func (s *AssessmentService) ListAssignments(ctx context.Context, instituteID, offeringID string, role models.UserRole) ([]models.Assignment, error) {
	if _, err := s.loadOffering(ctx, instituteID, offeringID); err != nil {
		return nil, err
	}
	publishedOnly := role == models.RoleStudent
	assignments, err := s.assignments.ListByOffering(ctx, offeringID, publishedOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

func (s *AssessmentService) loadOffering(ctx context.Context, instituteID, offeringID string) (*models.CourseOffering, error) {
	offering, err := s.offerings.FindByID(ctx, instituteID, offeringID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	return offering, nil
}
