package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuslabs/academia-api/internal/models"
	"github.com/campuslabs/academia-api/internal/service"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
	"github.com/campuslabs/academia-api/pkg/response"
)

// AttendanceHandler exposes session and attendance record endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// CreateSession godoc
// @Summary Open an attendance session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /attendance/sessions [post]
func (h *AttendanceHandler) CreateSession(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.InstituteID = claims.InstituteID
	req.ActorID = claims.UserID
	req.ActorRole = claims.Role
	session, err := h.attendance.CreateSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Mark godoc
// @Summary Mark or correct a student's attendance
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/records [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.InstituteID = claims.InstituteID
	req.ActorID = claims.UserID
	req.ActorRole = claims.Role
	req.SessionID = c.Param("id")
	record, err := h.attendance.MarkAttendance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// SessionReport godoc
// @Summary Roster report for one session
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/report [get]
func (h *AttendanceHandler) SessionReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, rows, err := h.attendance.SessionReport(c.Request.Context(), claims.InstituteID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"session": session, "roster": rows}, nil)
}

// ListSessions godoc
// @Summary List sessions of an offering
// @Tags Attendance
// @Produce json
// @Param id path string true "Offering ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id}/sessions [get]
func (h *AttendanceHandler) ListSessions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	from, to, err := parseDateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sessions, err := h.attendance.ListSessions(c.Request.Context(), claims.InstituteID, c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Percentage godoc
// @Summary Attendance percentage for one student in an offering
// @Tags Attendance
// @Produce json
// @Param id path string true "Offering ID"
// @Param studentId path string true "Student ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id}/attendance/{studentId} [get]
func (h *AttendanceHandler) Percentage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	studentID := c.Param("studentId")
	// Students only ever see their own percentage.
	if claims.Role == models.RoleStudent {
		studentID = claims.UserID
	}
	from, to, err := parseDateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	pct, err := h.attendance.Percentage(c.Request.Context(), service.PercentageRequest{
		InstituteID:      claims.InstituteID,
		StudentID:        studentID,
		CourseOfferingID: c.Param("id"),
		From:             from,
		To:               to,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pct, nil)
}

func parseDateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
		}
		from = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
		}
		to = &parsed
	}
	return from, to, nil
}
