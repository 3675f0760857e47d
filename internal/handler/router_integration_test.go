package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/campuslabs/academia-api/internal/middleware"
	"github.com/campuslabs/academia-api/internal/models"
	"github.com/campuslabs/academia-api/internal/service"
	"github.com/campuslabs/academia-api/pkg/config"
)

const testSecret = "integration-secret"

func TestSecuredRoutesIntegration(t *testing.T) {
	router := buildTestRouter()

	t.Run("request seat without token", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/enrollments", bytes.NewBufferString(`{"course_offering_id":"off-1"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("student requests a seat", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/enrollments", bytes.NewBufferString(`{"course_offering_id":"off-1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+signToken(t, "stu-1", models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"enrolled"`)
	})

	t.Run("student cannot finalize", func(t *testing.T) {
		payload := `{"student_id":"stu-1","course_offering_id":"off-1","grade":"A","marks":90}`
		req, _ := http.NewRequest(http.MethodPost, "/enrollments/finalize", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+signToken(t, "stu-1", models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("faculty finalizes", func(t *testing.T) {
		payload := `{"student_id":"stu-1","course_offering_id":"off-1","grade":"A","marks":90}`
		req, _ := http.NewRequest(http.MethodPost, "/enrollments/finalize", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+signToken(t, "fac-1", models.RoleFaculty))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"completed"`)
	})

	t.Run("student reads own percentage", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/offerings/off-1/attendance/stu-1", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "stu-1", models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"percentage"`)
	})

	t.Run("student cannot read another student's percentage", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/offerings/off-1/attendance/stu-2", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "stu-1", models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("token without institute scope", func(t *testing.T) {
		claims := &models.JWTClaims{
			UserID: "stu-1",
			Role:   models.RoleStudent,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		req, _ := http.NewRequest(http.MethodGet, "/offerings/off-1/attendance/stu-1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func buildTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	authSvc := service.NewAuthService(config.JWTConfig{Secret: testSecret}, nil)
	offerings := &stubOfferingRepo{}
	enrollments := &stubEnrollmentRepo{}
	attendance := &stubAttendanceRepo{}

	attendanceSvc := service.NewAttendanceService(attendance, offerings, enrollments, nil, config.AcademicsConfig{LateWeight: 1}, nil, nil)
	enrollmentSvc := service.NewEnrollmentService(enrollments, offerings, attendanceSvc, config.AcademicsConfig{}, nil, nil, nil)

	enrollmentHandler := NewEnrollmentHandler(enrollmentSvc)
	attendanceHandler := NewAttendanceHandler(attendanceSvc)

	secured := router.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	anyRole := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleFaculty, models.RoleStudent)
	staff := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)
	staffOrSelf := internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleFaculty), "SELF")

	secured.POST("/enrollments", anyRole, enrollmentHandler.RequestSeat)
	secured.POST("/enrollments/finalize", staff, enrollmentHandler.Finalize)
	secured.GET("/offerings/:id/attendance/:studentId", staffOrSelf, attendanceHandler.Percentage)

	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signToken(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID:      userID,
		InstituteID: "inst-1",
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

type stubOfferingRepo struct{}

func (stubOfferingRepo) FindByID(ctx context.Context, instituteID, id string) (*models.CourseOffering, error) {
	if instituteID != "inst-1" || id != "off-1" {
		return nil, sql.ErrNoRows
	}
	return &models.CourseOffering{ID: "off-1", FacultyID: "fac-1", IsActive: true, MaxEnrollment: 30}, nil
}

type stubEnrollmentRepo struct{}

func (stubEnrollmentRepo) AllocateSeat(ctx context.Context, instituteID, studentID, offeringID string) (*models.Enrollment, bool, error) {
	return &models.Enrollment{ID: "enr-1", StudentID: studentID, CourseOfferingID: offeringID, Status: models.EnrollmentStatusEnrolled}, true, nil
}

func (stubEnrollmentRepo) FindByStudentAndOffering(ctx context.Context, instituteID, studentID, offeringID string) (*models.Enrollment, error) {
	return &models.Enrollment{ID: "enr-1", StudentID: studentID, CourseOfferingID: offeringID, Status: models.EnrollmentStatusEnrolled}, nil
}

func (stubEnrollmentRepo) Drop(ctx context.Context, instituteID, studentID, offeringID string) (bool, error) {
	return true, nil
}

func (stubEnrollmentRepo) Finalize(ctx context.Context, id string, status models.EnrollmentStatus, grade string, marks float64) (*models.Enrollment, error) {
	return &models.Enrollment{ID: id, Status: status, FinalGrade: &grade, FinalMarks: &marks}, nil
}

func (stubEnrollmentRepo) List(ctx context.Context, instituteID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

type stubAttendanceRepo struct{}

func (stubAttendanceRepo) CreateSession(ctx context.Context, session *models.AttendanceSession) error {
	return nil
}

func (stubAttendanceRepo) FindSessionByID(ctx context.Context, instituteID, id string) (*models.AttendanceSession, error) {
	return nil, sql.ErrNoRows
}

func (stubAttendanceRepo) ListSessions(ctx context.Context, offeringID string, from, to *time.Time) ([]models.AttendanceSession, error) {
	return nil, nil
}

func (stubAttendanceRepo) FindRecord(ctx context.Context, sessionID, studentID string) (*models.AttendanceRecord, error) {
	return nil, sql.ErrNoRows
}

func (stubAttendanceRepo) UpsertRecord(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	return record, nil
}

func (stubAttendanceRepo) Breakdown(ctx context.Context, instituteID, studentID, offeringID string, from, to *time.Time) (*models.AttendanceBreakdown, error) {
	return &models.AttendanceBreakdown{Present: 8, Excused: 1, Absent: 1, TotalMandatory: 10}, nil
}

func (stubAttendanceRepo) SessionRoster(ctx context.Context, sessionID string) ([]models.SessionReportRow, error) {
	return nil, nil
}
