package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuslabs/academia-api/internal/models"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments map[string]models.Assignment
	created     *models.Assignment
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	if m.assignments == nil {
		m.assignments = make(map[string]models.Assignment)
	}
	if assignment.ID == "" {
		assignment.ID = "new-assignment"
	}
	m.assignments[assignment.ID] = *assignment
	m.created = assignment
	return nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, instituteID, id string) (*models.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) Publish(ctx context.Context, id string) (*models.Assignment, error) {
	a := m.assignments[id]
	a.IsPublished = true
	m.assignments[id] = a
	return &a, nil
}

func (m *mockAssignmentRepo) ListByOffering(ctx context.Context, offeringID string, publishedOnly bool) ([]models.Assignment, error) {
	var list []models.Assignment
	for _, a := range m.assignments {
		if a.CourseOfferingID != offeringID {
			continue
		}
		if publishedOnly && !a.IsPublished {
			continue
		}
		list = append(list, a)
	}
	return list, nil
}

type mockSubmissionRepo struct {
	submissions map[string]models.AssignmentSubmission
	upserts     int
}

func subKey(assignmentID, studentID string) string { return assignmentID + "/" + studentID }

func (m *mockSubmissionRepo) Upsert(ctx context.Context, submission *models.AssignmentSubmission) (*models.AssignmentSubmission, error) {
	if m.submissions == nil {
		m.submissions = make(map[string]models.AssignmentSubmission)
	}
	m.upserts++
	key := subKey(submission.AssignmentID, submission.StudentID)
	stored := *submission
	if existing, ok := m.submissions[key]; ok {
		stored.ID = existing.ID
	} else if stored.ID == "" {
		stored.ID = key
	}
	stored.Status = models.SubmissionStatusSubmitted
	stored.MarksObtained = nil
	stored.Feedback = nil
	stored.GradedAt = nil
	stored.GradedBy = nil
	m.submissions[key] = stored
	return &stored, nil
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, instituteID, id string) (*models.AssignmentSubmission, error) {
	for _, s := range m.submissions {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) Grade(ctx context.Context, id, gradedBy string, marksObtained float64, feedback *string) (*models.AssignmentSubmission, error) {
	for key, s := range m.submissions {
		if s.ID != id {
			continue
		}
		if s.Status == models.SubmissionStatusReturned {
			return nil, appErrors.ErrInvalidTransition
		}
		now := time.Now().UTC()
		s.MarksObtained = &marksObtained
		s.Feedback = feedback
		s.GradedAt = &now
		s.GradedBy = &gradedBy
		s.Status = models.SubmissionStatusGraded
		m.submissions[key] = s
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) Return(ctx context.Context, id string) (*models.AssignmentSubmission, error) {
	for key, s := range m.submissions {
		if s.ID != id {
			continue
		}
		if s.Status != models.SubmissionStatusGraded {
			return nil, appErrors.ErrInvalidTransition
		}
		s.Status = models.SubmissionStatusReturned
		m.submissions[key] = s
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	var list []models.SubmissionDetail
	for _, s := range m.submissions {
		if s.AssignmentID == assignmentID {
			list = append(list, models.SubmissionDetail{AssignmentSubmission: s})
		}
	}
	return list, nil
}

type mockEnrollmentReader struct {
	enrollments map[string]models.Enrollment
}

func (m *mockEnrollmentReader) FindByStudentAndOffering(ctx context.Context, instituteID, studentID, offeringID string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[studentID+"/"+offeringID]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func assessmentFixture(dueDate time.Time, allowLate bool, penalty float64) (*AssessmentService, *mockAssignmentRepo, *mockSubmissionRepo) {
	assignments := &mockAssignmentRepo{assignments: map[string]models.Assignment{
		"a1": {
			ID: "a1", CourseOfferingID: "off-1", Title: "Problem Set 1",
			DueDate: dueDate, MaxMarks: 100, IsPublished: true,
			AllowLateSubmission: allowLate, LatePenaltyPerDay: penalty,
		},
	}}
	submissions := &mockSubmissionRepo{}
	enrollments := &mockEnrollmentReader{enrollments: map[string]models.Enrollment{
		"s1/off-1": {ID: "e1", StudentID: "s1", CourseOfferingID: "off-1", Status: models.EnrollmentStatusEnrolled},
	}}
	offerings := &mockOfferingReader{offerings: map[string]*models.CourseOffering{
		"off-1": {ID: "off-1", FacultyID: "f1", IsActive: true, MaxEnrollment: 30},
	}}
	svc := NewAssessmentService(assignments, submissions, enrollments, offerings, validator.New(), zap.NewNop())
	return svc, assignments, submissions
}

func TestAssessmentServiceSubmit(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	svc, _, submissions := assessmentFixture(due, false, 0)

	stored, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s1", AssignmentID: "a1", Content: "answers",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
	assert.False(t, stored.IsLate)
	assert.Equal(t, 1, submissions.upserts)
}

func TestAssessmentServiceSubmitLateDisallowed(t *testing.T) {
	due := time.Now().Add(-time.Hour)
	svc, _, _ := assessmentFixture(due, false, 0)

	_, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s1", AssignmentID: "a1", Content: "answers",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLateSubmissionDisallowed.Code, appErrors.FromError(err).Code)
}

func TestAssessmentServiceSubmitUnpublished(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	svc, assignments, _ := assessmentFixture(due, false, 0)
	a := assignments.assignments["a1"]
	a.IsPublished = false
	assignments.assignments["a1"] = a

	_, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s1", AssignmentID: "a1", Content: "answers",
	})
	require.Error(t, err)
	// Unpublished assignments are indistinguishable from missing ones.
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssessmentServiceSubmitNotEnrolled(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	svc, _, _ := assessmentFixture(due, false, 0)

	_, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s2", AssignmentID: "a1", Content: "answers",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)
}

func TestAssessmentServiceResubmissionReplaces(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	svc, _, submissions := assessmentFixture(due, false, 0)

	first, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s1", AssignmentID: "a1", Content: "draft",
	})
	require.NoError(t, err)

	_, err = svc.Grade(context.Background(), GradeRequest{
		InstituteID: "inst-1", GraderID: "f1", ActorRole: models.RoleFaculty,
		SubmissionID: first.ID, MarksObtained: 40,
	})
	require.NoError(t, err)

	second, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s1", AssignmentID: "a1", Content: "final",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.SubmissionStatusSubmitted, second.Status)
	assert.Nil(t, second.MarksObtained)
	assert.Equal(t, 2, submissions.upserts)
}

func TestAssessmentServiceGradeLatePenalty(t *testing.T) {
	due := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	svc, _, _ := assessmentFixture(due, true, 5)

	// A day and a half past due rounds up to two days late.
	submitted, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s1", AssignmentID: "a1",
		Content: "answers", SubmittedAt: due.Add(36 * time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, submitted.IsLate)

	graded, err := svc.Grade(context.Background(), GradeRequest{
		InstituteID: "inst-1", GraderID: "f1", ActorRole: models.RoleFaculty,
		SubmissionID: submitted.ID, MarksObtained: 90,
	})
	require.NoError(t, err)
	require.NotNil(t, graded.MarksObtained)
	assert.Equal(t, 90.0, *graded.MarksObtained)
	require.NotNil(t, graded.EffectiveMarks)
	assert.Equal(t, 80.0, *graded.EffectiveMarks)
}

func TestAssessmentServiceRegradeOverwrites(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	svc, _, _ := assessmentFixture(due, false, 0)

	submitted, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s1", AssignmentID: "a1", Content: "answers",
	})
	require.NoError(t, err)

	_, err = svc.Grade(context.Background(), GradeRequest{
		InstituteID: "inst-1", GraderID: "f1", ActorRole: models.RoleFaculty,
		SubmissionID: submitted.ID, MarksObtained: 70,
	})
	require.NoError(t, err)

	// Two graders racing on the same submission resolve last-write-wins.
	regraded, err := svc.Grade(context.Background(), GradeRequest{
		InstituteID: "inst-1", GraderID: "f1", ActorRole: models.RoleFaculty,
		SubmissionID: submitted.ID, MarksObtained: 85,
	})
	require.NoError(t, err)
	require.NotNil(t, regraded.MarksObtained)
	assert.Equal(t, 85.0, *regraded.MarksObtained)
	assert.Equal(t, models.SubmissionStatusGraded, regraded.Status)
}

func TestAssessmentServiceGradeMarksAboveMax(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	svc, _, _ := assessmentFixture(due, false, 0)

	submitted, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s1", AssignmentID: "a1", Content: "answers",
	})
	require.NoError(t, err)

	_, err = svc.Grade(context.Background(), GradeRequest{
		InstituteID: "inst-1", GraderID: "f1", ActorRole: models.RoleFaculty,
		SubmissionID: submitted.ID, MarksObtained: 120,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssessmentServiceGradeWrongFaculty(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	svc, _, _ := assessmentFixture(due, false, 0)

	submitted, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s1", AssignmentID: "a1", Content: "answers",
	})
	require.NoError(t, err)

	_, err = svc.Grade(context.Background(), GradeRequest{
		InstituteID: "inst-1", GraderID: "f2", ActorRole: models.RoleFaculty,
		SubmissionID: submitted.ID, MarksObtained: 70,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssessmentServiceReturnRequiresGraded(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	svc, _, _ := assessmentFixture(due, false, 0)

	submitted, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s1", AssignmentID: "a1", Content: "answers",
	})
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), ReturnRequest{
		InstituteID: "inst-1", ActorID: "f1", ActorRole: models.RoleFaculty,
		SubmissionID: submitted.ID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestAssessmentServiceGradeAfterReturnRejected(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	svc, _, _ := assessmentFixture(due, false, 0)

	submitted, err := svc.Submit(context.Background(), SubmitRequest{
		InstituteID: "inst-1", StudentID: "s1", AssignmentID: "a1", Content: "answers",
	})
	require.NoError(t, err)

	_, err = svc.Grade(context.Background(), GradeRequest{
		InstituteID: "inst-1", GraderID: "f1", ActorRole: models.RoleFaculty,
		SubmissionID: submitted.ID, MarksObtained: 88,
	})
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), ReturnRequest{
		InstituteID: "inst-1", ActorID: "f1", ActorRole: models.RoleFaculty,
		SubmissionID: submitted.ID,
	})
	require.NoError(t, err)

	_, err = svc.Grade(context.Background(), GradeRequest{
		InstituteID: "inst-1", GraderID: "f1", ActorRole: models.RoleFaculty,
		SubmissionID: submitted.ID, MarksObtained: 90,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestAssessmentServiceCreateAssignment(t *testing.T) {
	due := time.Now().Add(7 * 24 * time.Hour)
	svc, assignments, _ := assessmentFixture(due, false, 0)

	created, err := svc.CreateAssignment(context.Background(), CreateAssignmentRequest{
		InstituteID: "inst-1", ActorID: "f1", ActorRole: models.RoleFaculty,
		CourseOfferingID: "off-1", Title: "Quiz 1", DueDate: due, MaxMarks: 20,
		AssignmentType: models.AssignmentTypeQuiz,
	})
	require.NoError(t, err)
	assert.False(t, created.IsPublished)
	assert.NotNil(t, assignments.created)
}

func TestAssessmentServiceListAssignmentsStudentView(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	svc, assignments, _ := assessmentFixture(due, false, 0)
	assignments.assignments["a2"] = models.Assignment{
		ID: "a2", CourseOfferingID: "off-1", Title: "Draft", DueDate: due, MaxMarks: 10,
	}

	listed, err := svc.ListAssignments(context.Background(), "inst-1", "off-1", models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "a1", listed[0].ID)

	listed, err = svc.ListAssignments(context.Background(), "inst-1", "off-1", models.RoleFaculty)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}
