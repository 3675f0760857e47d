package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuslabs/academia-api/internal/models"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
)

type mockRegisterSource struct {
	rows []models.AttendanceRegisterRow
}

func (m *mockRegisterSource) RegisterRows(ctx context.Context, offeringID string, from, to *time.Time) ([]models.AttendanceRegisterRow, error) {
	return m.rows, nil
}

type mockGradeSheetSource struct {
	rows []models.EnrollmentDetail
}

func (m *mockGradeSheetSource) GradeSheetRows(ctx context.Context, instituteID, offeringID string) ([]models.EnrollmentDetail, error) {
	return m.rows, nil
}

func reportFixture(register *mockRegisterSource, grades *mockGradeSheetSource) *ReportService {
	offerings := &mockOfferingReader{offerings: map[string]*models.CourseOffering{
		"off-1": {ID: "off-1", FacultyID: "f1", IsActive: true, MaxEnrollment: 30},
	}}
	return NewReportService(offerings, register, grades, zap.NewNop())
}

func TestReportServiceAttendanceRegisterCSV(t *testing.T) {
	day1 := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	register := &mockRegisterSource{rows: []models.AttendanceRegisterRow{
		{StudentID: "s1", StudentName: "Amira", SessionDate: day1, SessionTime: "09:00", Status: models.AttendanceStatusPresent},
		{StudentID: "s1", StudentName: "Amira", SessionDate: day2, SessionTime: "09:00", Status: models.AttendanceStatusLate},
		{StudentID: "s2", StudentName: "Bilal", SessionDate: day1, SessionTime: "09:00", Status: models.AttendanceStatusAbsent},
		// Bilal was never marked on day two; the cell defaults to absent.
	}}
	svc := reportFixture(register, &mockGradeSheetSource{})

	file, err := svc.AttendanceRegister(context.Background(), "inst-1", "off-1", nil, nil, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "attendance-register-off-1.csv", file.FileName)

	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student,2026-04-01 09:00,2026-04-02 09:00", lines[0])
	assert.Equal(t, "Amira,present,late", lines[1])
	assert.Equal(t, "Bilal,absent,absent", lines[2])
}

func TestReportServiceGradeSheetCSV(t *testing.T) {
	grade := "A"
	marks := 91.5
	grades := &mockGradeSheetSource{rows: []models.EnrollmentDetail{
		{
			Enrollment:  models.Enrollment{ID: "e1", Status: models.EnrollmentStatusCompleted, FinalGrade: &grade, FinalMarks: &marks},
			StudentName: "Amira",
		},
		{
			Enrollment:  models.Enrollment{ID: "e2", Status: models.EnrollmentStatusEnrolled},
			StudentName: "Bilal",
		},
	}}
	svc := reportFixture(&mockRegisterSource{}, grades)

	file, err := svc.GradeSheet(context.Background(), "inst-1", "off-1", ExportFormatCSV)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student,Status,Grade,Marks", lines[0])
	assert.Equal(t, "Amira,completed,A,91.50", lines[1])
	assert.Equal(t, "Bilal,enrolled,-,-", lines[2])
}

func TestReportServiceGradeSheetPDF(t *testing.T) {
	svc := reportFixture(&mockRegisterSource{}, &mockGradeSheetSource{})

	file, err := svc.GradeSheet(context.Background(), "inst-1", "off-1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestReportServiceUnsupportedFormat(t *testing.T) {
	svc := reportFixture(&mockRegisterSource{}, &mockGradeSheetSource{})

	_, err := svc.GradeSheet(context.Background(), "inst-1", "off-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
