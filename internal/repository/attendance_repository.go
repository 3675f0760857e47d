package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campuslabs/academia-api/internal/models"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
)

const pqUniqueViolation = "23505"

// AttendanceRepository handles sessions and per-student records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const sessionColumns = `id, course_offering_id, session_date, session_time, duration_minutes, topic, session_type, is_mandatory, created_at`

// CreateSession inserts a session. Uniqueness on (offering, date, time) is
// enforced by the database; a losing race surfaces as the same domain error
// as a pre-checked duplicate.
func (r *AttendanceRepository) CreateSession(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_sessions (id, course_offering_id, session_date, session_time, duration_minutes, topic, session_type, is_mandatory, created_at)
        VALUES (:id, :course_offering_id, :session_date, :session_time, :duration_minutes, :topic, :session_type, :is_mandatory, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return appErrors.ErrDuplicateSession
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindSessionByID returns a session scoped to the caller's institute.
func (r *AttendanceRepository) FindSessionByID(ctx context.Context, instituteID, id string) (*models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT ats.id, ats.course_offering_id, ats.session_date, ats.session_time,
        ats.duration_minutes, ats.topic, ats.session_type, ats.is_mandatory, ats.created_at
        FROM attendance_sessions ats
        JOIN course_offerings co ON co.id = ats.course_offering_id %s
        WHERE ats.id = $1 AND p.institute_id = $2`, tenantJoin)
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id, instituteID); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns sessions for an offering within an optional range.
func (r *AttendanceRepository) ListSessions(ctx context.Context, offeringID string, from, to *time.Time) ([]models.AttendanceSession, error) {
	where := []string{"course_offering_id = $1"}
	args := []interface{}{offeringID}
	if from != nil {
		where = append(where, fmt.Sprintf("session_date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("session_date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE %s ORDER BY session_date, session_time`,
		sessionColumns, strings.Join(where, " AND "))
	var sessions []models.AttendanceSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindRecord returns the attendance record for (session, student) if any.
func (r *AttendanceRepository) FindRecord(ctx context.Context, sessionID, studentID string) (*models.AttendanceRecord, error) {
	const query = `SELECT id, session_id, student_id, status, marked_by, marked_at, notes
        FROM attendance_records WHERE session_id = $1 AND student_id = $2`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, sessionID, studentID); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertRecord writes one record per (session, student). marked_at is set on
// first insert only; corrections keep it and overwrite status, marker and
// notes. Same-key concurrent writes resolve last-write-wins.
func (r *AttendanceRepository) UpsertRecord(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MarkedAt.IsZero() {
		record.MarkedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_records (id, session_id, student_id, status, marked_by, marked_at, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (session_id, student_id)
DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, notes = EXCLUDED.notes
RETURNING id, session_id, student_id, status, marked_by, marked_at, notes`
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.SessionID, record.StudentID, record.Status, record.MarkedBy, record.MarkedAt, record.Notes); err != nil {
		return nil, fmt.Errorf("upsert attendance record: %w", err)
	}
	return &stored, nil
}

// Breakdown aggregates a student's marks over the mandatory sessions of an
// offering. The denominator comes from the sessions table so students who
// were never marked stay counted as absent. Read-only: takes no locks.
func (r *AttendanceRepository) Breakdown(ctx context.Context, instituteID, studentID, offeringID string, from, to *time.Time) (*models.AttendanceBreakdown, error) {
	where := []string{"ats.course_offering_id = $1", "ats.is_mandatory = TRUE", "p.institute_id = $2"}
	args := []interface{}{offeringID, instituteID}
	if from != nil {
		where = append(where, fmt.Sprintf("ats.session_date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("ats.session_date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	studentArg := len(args) + 1
	args = append(args, studentID)

	query := fmt.Sprintf(`SELECT
        COUNT(*) AS total_mandatory,
        COUNT(*) FILTER (WHERE ar.status = 'present') AS present,
        COUNT(*) FILTER (WHERE ar.status = 'late') AS late,
        COUNT(*) FILTER (WHERE ar.status = 'excused') AS excused,
        COUNT(*) FILTER (WHERE ar.status = 'absent' OR ar.status IS NULL) AS absent
        FROM attendance_sessions ats
        JOIN course_offerings co ON co.id = ats.course_offering_id %s
        LEFT JOIN attendance_records ar ON ar.session_id = ats.id AND ar.student_id = $%d
        WHERE %s`, tenantJoin, studentArg, strings.Join(where, " AND "))

	var breakdown models.AttendanceBreakdown
	if err := r.db.GetContext(ctx, &breakdown, query, args...); err != nil {
		return nil, fmt.Errorf("attendance breakdown: %w", err)
	}
	return &breakdown, nil
}

// SessionRoster returns the per-session roster of enrolled students with
// their mark, defaulting to absent for students never marked.
func (r *AttendanceRepository) SessionRoster(ctx context.Context, sessionID string) ([]models.SessionReportRow, error) {
	const query = `SELECT e.student_id, s.full_name AS student_name,
        COALESCE(ar.status, 'absent') AS status, ar.notes
        FROM attendance_sessions ats
        JOIN enrollments e ON e.course_offering_id = ats.course_offering_id AND e.status = 'enrolled'
        JOIN students s ON s.id = e.student_id
        LEFT JOIN attendance_records ar ON ar.session_id = ats.id AND ar.student_id = e.student_id
        WHERE ats.id = $1
        ORDER BY s.full_name`
	var rows []models.SessionReportRow
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("session roster: %w", err)
	}
	return rows, nil
}

// RegisterRows returns the export matrix rows for an offering and range.
func (r *AttendanceRepository) RegisterRows(ctx context.Context, offeringID string, from, to *time.Time) ([]models.AttendanceRegisterRow, error) {
	where := []string{"ats.course_offering_id = $1"}
	args := []interface{}{offeringID}
	if from != nil {
		where = append(where, fmt.Sprintf("ats.session_date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("ats.session_date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	query := fmt.Sprintf(`SELECT e.student_id, s.full_name AS student_name, ats.session_date, ats.session_time,
        COALESCE(ar.status, 'absent') AS status
        FROM attendance_sessions ats
        JOIN enrollments e ON e.course_offering_id = ats.course_offering_id AND e.status = 'enrolled'
        JOIN students s ON s.id = e.student_id
        LEFT JOIN attendance_records ar ON ar.session_id = ats.id AND ar.student_id = e.student_id
        WHERE %s
        ORDER BY s.full_name, ats.session_date, ats.session_time`, strings.Join(where, " AND "))
	var rows []models.AttendanceRegisterRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("attendance register: %w", err)
	}
	return rows, nil
}
