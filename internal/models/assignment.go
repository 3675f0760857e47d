package models

import (
	"math"
	"time"
)

// AssignmentType categorises assignments within an offering.
type AssignmentType string

const (
	AssignmentTypeHomework AssignmentType = "homework"
	AssignmentTypeProject  AssignmentType = "project"
	AssignmentTypeQuiz     AssignmentType = "quiz"
	AssignmentTypeExam     AssignmentType = "exam"
	AssignmentTypeLab      AssignmentType = "lab"
)

// Valid returns true when the type is a supported value.
func (t AssignmentType) Valid() bool {
	switch t {
	case AssignmentTypeHomework, AssignmentTypeProject, AssignmentTypeQuiz, AssignmentTypeExam, AssignmentTypeLab:
		return true
	default:
		return false
	}
}

// Assignment belongs to one course offering. IsPublished gates visibility to
// students; publication is one-way.
type Assignment struct {
	ID                  string         `db:"id" json:"id"`
	CourseOfferingID    string         `db:"course_offering_id" json:"course_offering_id"`
	Title               string         `db:"title" json:"title"`
	Description         string         `db:"description" json:"description"`
	DueDate             time.Time      `db:"due_date" json:"due_date"`
	MaxMarks            float64        `db:"max_marks" json:"max_marks"`
	AssignmentType      AssignmentType `db:"assignment_type" json:"assignment_type"`
	IsPublished         bool           `db:"is_published" json:"is_published"`
	AllowLateSubmission bool           `db:"allow_late_submission" json:"allow_late_submission"`
	LatePenaltyPerDay   float64        `db:"late_penalty_per_day" json:"late_penalty_per_day"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// SubmissionStatus tracks the forward-only grading state machine.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusGraded    SubmissionStatus = "graded"
	SubmissionStatusReturned  SubmissionStatus = "returned"
)

// AssignmentSubmission is unique per (assignment, student). Resubmission
// overwrites the row and resets it to submitted.
type AssignmentSubmission struct {
	ID            string           `db:"id" json:"id"`
	AssignmentID  string           `db:"assignment_id" json:"assignment_id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	Content       string           `db:"content" json:"content"`
	SubmittedAt   time.Time        `db:"submitted_at" json:"submitted_at"`
	IsLate        bool             `db:"is_late" json:"is_late"`
	MarksObtained *float64         `db:"marks_obtained" json:"marks_obtained,omitempty"`
	Feedback      *string          `db:"feedback" json:"feedback,omitempty"`
	GradedAt      *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
	GradedBy      *string          `db:"graded_by" json:"graded_by,omitempty"`
	Status        SubmissionStatus `db:"status" json:"status"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmissionDetail enriches a submission with student info for rosters.
type SubmissionDetail struct {
	AssignmentSubmission
	StudentName    string   `db:"student_name" json:"student_name"`
	EffectiveMarks *float64 `db:"-" json:"effective_marks,omitempty"`
}

// DaysLate returns the whole days between the due date and the submission
// instant, rounded up, clamped to zero. A submission one minute past the due
// date counts as one day late.
func DaysLate(submittedAt, dueDate time.Time) int {
	if !submittedAt.After(dueDate) {
		return 0
	}
	return int(math.Ceil(submittedAt.Sub(dueDate).Hours() / 24))
}

// EffectiveMarks applies the late penalty to the raw marks. The raw marks are
// kept for audit; this accessor is the single place the penalty arithmetic
// lives so recomputation never drifts.
func EffectiveMarks(marksObtained float64, daysLate int, penaltyPerDay float64) float64 {
	effective := marksObtained - float64(daysLate)*penaltyPerDay
	if effective < 0 {
		return 0
	}
	return effective
}

// EffectiveMarks returns the penalty-adjusted marks for a graded submission,
// or nil when ungraded.
func (s *AssignmentSubmission) EffectiveMarks(a *Assignment) *float64 {
	if s.MarksObtained == nil {
		return nil
	}
	days := 0
	if s.IsLate {
		days = DaysLate(s.SubmittedAt, a.DueDate)
	}
	effective := EffectiveMarks(*s.MarksObtained, days, a.LatePenaltyPerDay)
	return &effective
}
