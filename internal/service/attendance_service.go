package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuslabs/academia-api/internal/models"
	"github.com/campuslabs/academia-api/pkg/config"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
)

type attendanceRepository interface {
	CreateSession(ctx context.Context, session *models.AttendanceSession) error
	FindSessionByID(ctx context.Context, instituteID, id string) (*models.AttendanceSession, error)
	ListSessions(ctx context.Context, offeringID string, from, to *time.Time) ([]models.AttendanceSession, error)
	FindRecord(ctx context.Context, sessionID, studentID string) (*models.AttendanceRecord, error)
	UpsertRecord(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	Breakdown(ctx context.Context, instituteID, studentID, offeringID string, from, to *time.Time) (*models.AttendanceBreakdown, error)
	SessionRoster(ctx context.Context, sessionID string) ([]models.SessionReportRow, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateSessionRequest opens one attendance session for an offering.
type CreateSessionRequest struct {
	InstituteID      string             `json:"-" validate:"required"`
	ActorID          string             `json:"-" validate:"required"`
	ActorRole        models.UserRole    `json:"-" validate:"required"`
	CourseOfferingID string             `json:"course_offering_id" validate:"required"`
	SessionDate      time.Time          `json:"session_date" validate:"required"`
	SessionTime      string             `json:"session_time" validate:"required"`
	DurationMinutes  int                `json:"duration_minutes" validate:"gt=0"`
	Topic            string             `json:"topic"`
	SessionType      models.SessionType `json:"session_type"`
	IsMandatory      *bool              `json:"is_mandatory"`
}

// MarkAttendanceRequest records or corrects one student's mark for a session.
type MarkAttendanceRequest struct {
	InstituteID string                  `json:"-" validate:"required"`
	ActorID     string                  `json:"-" validate:"required"`
	ActorRole   models.UserRole         `json:"-" validate:"required"`
	SessionID   string                  `json:"-" validate:"required"`
	StudentID   string                  `json:"student_id" validate:"required"`
	Status      models.AttendanceStatus `json:"status" validate:"required"`
	Notes       *string                 `json:"notes"`
}

// PercentageRequest asks for a student's attendance percentage over an
// offering, optionally bounded to a date range.
type PercentageRequest struct {
	InstituteID      string     `validate:"required"`
	StudentID        string     `validate:"required"`
	CourseOfferingID string     `validate:"required"`
	From             *time.Time
	To               *time.Time
}

// AttendanceService owns sessions, per-student marks and the percentage
// aggregate. Aggregates are cached in Redis and invalidated on any write that
// touches the offering.
type AttendanceService struct {
	attendance  attendanceRepository
	offerings   offeringReader
	enrollments enrollmentReader
	cache       cacheStore
	academics   config.AcademicsConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(attendance attendanceRepository, offerings offeringReader, enrollments enrollmentReader, cache cacheStore, academics config.AcademicsConfig, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		attendance:  attendance,
		offerings:   offerings,
		enrollments: enrollments,
		cache:       cache,
		academics:   academics,
		validator:   validate,
		logger:      logger,
	}
}

// CreateSession opens a session. Duplicate (offering, date, time) is rejected
// whether caught here or by the database under a race.
func (s *AttendanceService) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.AttendanceSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	sessionType := req.SessionType
	if sessionType == "" {
		sessionType = models.SessionTypeLecture
	}
	if !sessionType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown session type")
	}
	offering, err := s.loadOffering(ctx, req.InstituteID, req.CourseOfferingID)
	if err != nil {
		return nil, err
	}
	if req.ActorRole == models.RoleFaculty && offering.FacultyID != req.ActorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the offering faculty may open sessions")
	}

	mandatory := true
	if req.IsMandatory != nil {
		mandatory = *req.IsMandatory
	}
	session := &models.AttendanceSession{
		CourseOfferingID: req.CourseOfferingID,
		SessionDate:      req.SessionDate,
		SessionTime:      req.SessionTime,
		DurationMinutes:  req.DurationMinutes,
		Topic:            req.Topic,
		SessionType:      sessionType,
		IsMandatory:      mandatory,
	}
	if err := s.attendance.CreateSession(ctx, session); err != nil {
		return nil, appErrors.FromError(err)
	}
	s.invalidateOffering(ctx, req.InstituteID, req.CourseOfferingID)
	return session, nil
}

// MarkAttendance writes one mark per (session, student). Only students with an
// active enrollment in the session's offering can be marked. Re-marking
// corrects the record in place: status, marker and notes change while the
// original marked timestamp stays. Correction notes accumulate rather than
// replace.
func (s *AttendanceService) MarkAttendance(ctx context.Context, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}
	session, err := s.attendance.FindSessionByID(ctx, req.InstituteID, req.SessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	offering, err := s.loadOffering(ctx, req.InstituteID, session.CourseOfferingID)
	if err != nil {
		return nil, err
	}
	if req.ActorRole == models.RoleFaculty && offering.FacultyID != req.ActorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the offering faculty may mark attendance")
	}

	enrollment, err := s.enrollments.FindByStudentAndOffering(ctx, req.InstituteID, req.StudentID, session.CourseOfferingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "student is not enrolled in this offering")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusEnrolled {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "student is not enrolled in this offering")
	}

	notes := req.Notes
	existing, err := s.attendance.FindRecord(ctx, req.SessionID, req.StudentID)
	switch {
	case err == nil:
		if existing.Status != req.Status {
			correction := fmt.Sprintf("corrected from %s", existing.Status)
			if notes != nil && *notes != "" {
				correction = fmt.Sprintf("%s; %s", *notes, correction)
			}
			if existing.Notes != nil && *existing.Notes != "" {
				correction = fmt.Sprintf("%s; %s", *existing.Notes, correction)
			}
			notes = &correction
		} else if notes == nil {
			notes = existing.Notes
		}
	case err == sql.ErrNoRows:
		// first mark
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}

	record := &models.AttendanceRecord{
		SessionID: req.SessionID,
		StudentID: req.StudentID,
		Status:    req.Status,
		MarkedBy:  &req.ActorID,
		Notes:     notes,
	}
	stored, err := s.attendance.UpsertRecord(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance record")
	}
	s.invalidateOffering(ctx, req.InstituteID, session.CourseOfferingID)
	return stored, nil
}

// Percentage computes the attendance percentage for one student over an
// offering. Results are cached; any session or record write for the offering
// invalidates the cache.
func (s *AttendanceService) Percentage(ctx context.Context, req PercentageRequest) (*models.AttendancePercentage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid percentage request")
	}
	key := s.percentageKey(req)
	if s.cache != nil {
		var cached models.AttendancePercentage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if err != appErrors.ErrCacheMiss {
			s.logger.Warn("attendance cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	if _, err := s.loadOffering(ctx, req.InstituteID, req.CourseOfferingID); err != nil {
		return nil, err
	}
	breakdown, err := s.attendance.Breakdown(ctx, req.InstituteID, req.StudentID, req.CourseOfferingID, req.From, req.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}

	result := &models.AttendancePercentage{
		StudentID:        req.StudentID,
		CourseOfferingID: req.CourseOfferingID,
		Percentage:       breakdown.Percentage(s.academics.LateWeight),
		Breakdown:        *breakdown,
		From:             req.From,
		To:               req.To,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.academics.PercentageCacheTTL); err != nil {
			s.logger.Warn("attendance cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}

// SessionReport returns the full roster for one session, defaulting unmarked
// students to absent.
func (s *AttendanceService) SessionReport(ctx context.Context, instituteID, sessionID string) (*models.AttendanceSession, []models.SessionReportRow, error) {
	session, err := s.attendance.FindSessionByID(ctx, instituteID, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	rows, err := s.attendance.SessionRoster(ctx, sessionID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build session report")
	}
	return session, rows, nil
}

// ListSessions returns an offering's sessions within an optional date range.
func (s *AttendanceService) ListSessions(ctx context.Context, instituteID, offeringID string, from, to *time.Time) ([]models.AttendanceSession, error) {
	if _, err := s.loadOffering(ctx, instituteID, offeringID); err != nil {
		return nil, err
	}
	sessions, err := s.attendance.ListSessions(ctx, offeringID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

func (s *AttendanceService) loadOffering(ctx context.Context, instituteID, offeringID string) (*models.CourseOffering, error) {
	offering, err := s.offerings.FindByID(ctx, instituteID, offeringID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	return offering, nil
}

func (s *AttendanceService) percentageKey(req PercentageRequest) string {
	from, to := "", ""
	if req.From != nil {
		from = req.From.Format("2006-01-02")
	}
	if req.To != nil {
		to = req.To.Format("2006-01-02")
	}
	return fmt.Sprintf("attendance:pct:%s:%s:%s:%s:%s", req.InstituteID, req.CourseOfferingID, req.StudentID, from, to)
}

func (s *AttendanceService) invalidateOffering(ctx context.Context, instituteID, offeringID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("attendance:pct:%s:%s:*", instituteID, offeringID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("attendance cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
