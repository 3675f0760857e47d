package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuslabs/academia-api/internal/models"
	"github.com/campuslabs/academia-api/pkg/config"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
)

type enrollmentRepository interface {
	AllocateSeat(ctx context.Context, instituteID, studentID, offeringID string) (*models.Enrollment, bool, error)
	FindByStudentAndOffering(ctx context.Context, instituteID, studentID, offeringID string) (*models.Enrollment, error)
	Drop(ctx context.Context, instituteID, studentID, offeringID string) (bool, error)
	Finalize(ctx context.Context, id string, status models.EnrollmentStatus, grade string, marks float64) (*models.Enrollment, error)
	List(ctx context.Context, instituteID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type offeringReader interface {
	FindByID(ctx context.Context, instituteID, id string) (*models.CourseOffering, error)
}

type attendanceAggregator interface {
	Percentage(ctx context.Context, req PercentageRequest) (*models.AttendancePercentage, error)
}

type seatObserver interface {
	ObserveSeatAllocation(outcome string)
}

// RequestSeatRequest asks for one seat in an offering.
type RequestSeatRequest struct {
	InstituteID      string `json:"-" validate:"required"`
	StudentID        string `json:"student_id" validate:"required"`
	CourseOfferingID string `json:"course_offering_id" validate:"required"`
}

// DropSeatRequest releases a held seat.
type DropSeatRequest struct {
	InstituteID      string `json:"-" validate:"required"`
	StudentID        string `json:"student_id" validate:"required"`
	CourseOfferingID string `json:"course_offering_id" validate:"required"`
}

// FinalizeRequest closes an enrollment with a grade.
type FinalizeRequest struct {
	InstituteID      string          `json:"-" validate:"required"`
	ActorID          string          `json:"-" validate:"required"`
	ActorRole        models.UserRole `json:"-" validate:"required"`
	StudentID        string          `json:"student_id" validate:"required"`
	CourseOfferingID string          `json:"course_offering_id" validate:"required"`
	Grade            string          `json:"grade" validate:"required"`
	Marks            float64         `json:"marks" validate:"gte=0"`
}

// EnrollmentService owns seat allocation and the enrollment lifecycle.
type EnrollmentService struct {
	enrollments enrollmentRepository
	offerings   offeringReader
	attendance  attendanceAggregator
	academics   config.AcademicsConfig
	metrics     seatObserver
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(enrollments enrollmentRepository, offerings offeringReader, attendance attendanceAggregator, academics config.AcademicsConfig, metrics seatObserver, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		offerings:   offerings,
		attendance:  attendance,
		academics:   academics,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// RequestSeat allocates one seat. Repeating a successful request is a no-op
// returning the existing enrollment. The capacity check and the insert run in
// one transaction inside the repository, so overbooking cannot happen even
// under concurrent requests for the last seat.
func (s *EnrollmentService) RequestSeat(ctx context.Context, req RequestSeatRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seat request")
	}
	enrollment, created, err := s.enrollments.AllocateSeat(ctx, req.InstituteID, req.StudentID, req.CourseOfferingID)
	if err != nil {
		s.observeSeat("rejected")
		return nil, appErrors.FromError(err)
	}
	if created {
		s.observeSeat("allocated")
		s.logger.Info("seat allocated",
			zap.String("student_id", req.StudentID),
			zap.String("course_offering_id", req.CourseOfferingID))
	} else {
		s.observeSeat("repeat")
	}
	return enrollment, nil
}

// DropSeat transitions enrolled to dropped and releases the seat immediately.
func (s *EnrollmentService) DropSeat(ctx context.Context, req DropSeatRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid drop request")
	}
	dropped, err := s.enrollments.Drop(ctx, req.InstituteID, req.StudentID, req.CourseOfferingID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop seat")
	}
	if !dropped {
		return appErrors.Clone(appErrors.ErrNotEnrolled, "no active enrollment for this offering")
	}
	s.observeSeat("released")
	s.logger.Info("seat released",
		zap.String("student_id", req.StudentID),
		zap.String("course_offering_id", req.CourseOfferingID))
	return nil
}

// Finalize closes an active enrollment with a grade. Only the offering's
// faculty or an admin may finalize, and the attendance eligibility gate is
// consulted when configured.
func (s *EnrollmentService) Finalize(ctx context.Context, req FinalizeRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid finalize request")
	}
	offering, err := s.offerings.FindByID(ctx, req.InstituteID, req.CourseOfferingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if req.ActorRole == models.RoleFaculty && offering.FacultyID != req.ActorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the offering faculty may finalize")
	}

	enrollment, err := s.enrollments.FindByStudentAndOffering(ctx, req.InstituteID, req.StudentID, req.CourseOfferingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusEnrolled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment is not active")
	}

	if threshold, gated := s.eligibilityThreshold(offering); gated {
		pct, err := s.attendance.Percentage(ctx, PercentageRequest{
			InstituteID:      req.InstituteID,
			StudentID:        req.StudentID,
			CourseOfferingID: req.CourseOfferingID,
		})
		if err != nil {
			return nil, appErrors.FromError(err)
		}
		if pct.Percentage < threshold {
			return nil, appErrors.Clone(appErrors.ErrAttendanceIneligible, "attendance below eligibility threshold")
		}
	}

	status := models.EnrollmentStatusCompleted
	if strings.EqualFold(req.Grade, "F") {
		status = models.EnrollmentStatusFailed
	}
	finalized, err := s.enrollments.Finalize(ctx, enrollment.ID, status, req.Grade, req.Marks)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	s.logger.Info("enrollment finalized",
		zap.String("enrollment_id", finalized.ID),
		zap.String("status", string(finalized.Status)))
	return finalized, nil
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, instituteID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.enrollments.List(ctx, instituteID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// eligibilityThreshold resolves the gate: the offering override wins, then
// the institute default, and when neither is set the gate is disabled.
func (s *EnrollmentService) eligibilityThreshold(offering *models.CourseOffering) (float64, bool) {
	if offering.MinAttendancePercent != nil {
		return *offering.MinAttendancePercent, true
	}
	if s.academics.AttendanceGateEnabled {
		return s.academics.MinAttendancePercent, true
	}
	return 0, false
}

func (s *EnrollmentService) observeSeat(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveSeatAllocation(outcome)
	}
}
