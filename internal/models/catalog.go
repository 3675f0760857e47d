package models

import "time"

// Subject is a curriculum entry owned by the catalog collaborator.
type Subject struct {
	ID      string `db:"id" json:"id"`
	Code    string `db:"code" json:"code"`
	Name    string `db:"name" json:"name"`
	Credits int    `db:"credits" json:"credits"`
}

// Semester is a term within an academic year, owned by the catalog.
type Semester struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
}

// CourseOffering is one taught instance of a subject in a semester/section
// with a bounded seat capacity. The current enrollment count is always
// derived from enrollment rows, never stored here.
type CourseOffering struct {
	ID            string    `db:"id" json:"id"`
	SubjectID     string    `db:"subject_id" json:"subject_id"`
	SemesterID    string    `db:"semester_id" json:"semester_id"`
	FacultyID     string    `db:"faculty_id" json:"faculty_id"`
	Section       string    `db:"section" json:"section"`
	MaxEnrollment int       `db:"max_enrollment" json:"max_enrollment"`
	RoomNumber    *string   `db:"room_number" json:"room_number,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	// MinAttendancePercent overrides the institute-wide eligibility threshold
	// for finalization when set.
	MinAttendancePercent *float64  `db:"min_attendance_percent" json:"min_attendance_percent,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// CourseOfferingDetail enriches an offering with catalog names.
type CourseOfferingDetail struct {
	CourseOffering
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	SemesterName string `db:"semester_name" json:"semester_name"`
}

// CourseOfferingFilter scopes offering listings.
type CourseOfferingFilter struct {
	SemesterID string
	SubjectID  string
	FacultyID  string
	ActiveOnly bool
	Page       int
	PageSize   int
}
