package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// SessionType categorises attendance sessions.
type SessionType string

const (
	SessionTypeLecture  SessionType = "lecture"
	SessionTypeLab      SessionType = "lab"
	SessionTypeTutorial SessionType = "tutorial"
	SessionTypeSeminar  SessionType = "seminar"
)

// Valid returns true when the type is a supported value.
func (t SessionType) Valid() bool {
	switch t {
	case SessionTypeLecture, SessionTypeLab, SessionTypeTutorial, SessionTypeSeminar:
		return true
	default:
		return false
	}
}

// AttendanceSession belongs to one course offering, unique per
// (course_offering, session_date, session_time). Only mandatory sessions
// count toward the percentage denominator.
type AttendanceSession struct {
	ID               string      `db:"id" json:"id"`
	CourseOfferingID string      `db:"course_offering_id" json:"course_offering_id"`
	SessionDate      time.Time   `db:"session_date" json:"session_date"`
	SessionTime      string      `db:"session_time" json:"session_time"`
	DurationMinutes  int         `db:"duration_minutes" json:"duration_minutes"`
	Topic            string      `db:"topic" json:"topic"`
	SessionType      SessionType `db:"session_type" json:"session_type"`
	IsMandatory      bool        `db:"is_mandatory" json:"is_mandatory"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
}

// AttendanceRecord is unique per (session, student). A student with no record
// counts as absent at aggregation time. MarkedAt is set on first insert and
// never mutated; corrections update status and append to Notes.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"session_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedBy  *string          `db:"marked_by" json:"marked_by,omitempty"`
	MarkedAt  time.Time        `db:"marked_at" json:"marked_at"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
}

// AttendanceBreakdown aggregates a student's marks over the mandatory
// sessions of an offering. TotalMandatory counts sessions, not records, so
// unmarked students stay in the denominator.
type AttendanceBreakdown struct {
	Present        int `db:"present" json:"present"`
	Late           int `db:"late" json:"late"`
	Excused        int `db:"excused" json:"excused"`
	Absent         int `db:"absent" json:"absent"`
	TotalMandatory int `db:"total_mandatory" json:"total_mandatory"`
}

// Percentage computes the attendance percentage. Excused marks are excluded
// from both numerator and denominator; late marks earn lateWeight credit.
// Zero mandatory sessions is defined as 100%.
func (b AttendanceBreakdown) Percentage(lateWeight float64) float64 {
	denominator := b.TotalMandatory - b.Excused
	if denominator <= 0 {
		return 100
	}
	numerator := float64(b.Present) + lateWeight*float64(b.Late)
	return numerator / float64(denominator) * 100
}

// AttendancePercentage is the aggregate returned to callers.
type AttendancePercentage struct {
	StudentID        string              `json:"student_id"`
	CourseOfferingID string              `json:"course_offering_id"`
	Percentage       float64             `json:"percentage"`
	Breakdown        AttendanceBreakdown `json:"breakdown"`
	From             *time.Time          `json:"from,omitempty"`
	To               *time.Time          `json:"to,omitempty"`
}

// SessionReportRow is one roster line for a session, defaulting to absent for
// students never marked.
type SessionReportRow struct {
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	Status      AttendanceStatus `db:"status" json:"status"`
	Notes       *string          `db:"notes" json:"notes,omitempty"`
}

// AttendanceRegisterRow is one export line of the offering register.
type AttendanceRegisterRow struct {
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	SessionDate time.Time        `db:"session_date" json:"session_date"`
	SessionTime string           `db:"session_time" json:"session_time"`
	Status      AttendanceStatus `db:"status" json:"status"`
}
