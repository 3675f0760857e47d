package models

import "time"

// EnrollmentStatus represents the lifecycle of a seat in an offering.
type EnrollmentStatus string

// Possible enrollment statuses. Completed and failed are terminal; dropped
// rows may be reactivated by a later seat request since the dropped seat has
// been released.
const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusFailed    EnrollmentStatus = "failed"
)

// Valid returns true when the status is a supported value.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusEnrolled, EnrollmentStatusDropped, EnrollmentStatusCompleted, EnrollmentStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the enrollment can never change again.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusCompleted || s == EnrollmentStatusFailed
}

// Enrollment ties one student to one course offering. Unique per
// (student, course_offering). FinalGrade/FinalMarks are written exactly once
// at finalization.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	CourseOfferingID string           `db:"course_offering_id" json:"course_offering_id"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt       time.Time        `db:"enrolled_at" json:"enrolled_at"`
	FinalGrade       *string          `db:"final_grade" json:"final_grade,omitempty"`
	FinalMarks       *float64         `db:"final_marks" json:"final_marks,omitempty"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and offering info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	Section     string `db:"section" json:"section"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID        string
	CourseOfferingID string
	Status           EnrollmentStatus
	Page             int
	PageSize         int
}
