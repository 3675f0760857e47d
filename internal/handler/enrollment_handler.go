package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuslabs/academia-api/internal/models"
	"github.com/campuslabs/academia-api/internal/service"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
	"github.com/campuslabs/academia-api/pkg/response"
)

// EnrollmentHandler exposes seat allocation and enrollment lifecycle endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs handler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// RequestSeat godoc
// @Summary Request a seat in a course offering
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.RequestSeatRequest true "Seat request"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) RequestSeat(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RequestSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.InstituteID = claims.InstituteID
	// Students may only request seats for themselves.
	if claims.Role == models.RoleStudent {
		req.StudentID = claims.UserID
	}
	enrollment, err := h.enrollments.RequestSeat(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// DropSeat godoc
// @Summary Drop a held seat
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.DropSeatRequest true "Drop request"
// @Success 204
// @Router /enrollments/drop [post]
func (h *EnrollmentHandler) DropSeat(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.DropSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.InstituteID = claims.InstituteID
	if claims.Role == models.RoleStudent {
		req.StudentID = claims.UserID
	}
	if err := h.enrollments.DropSeat(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Finalize godoc
// @Summary Finalize an enrollment with a grade
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.FinalizeRequest true "Finalize payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/finalize [post]
func (h *EnrollmentHandler) Finalize(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.InstituteID = claims.InstituteID
	req.ActorID = claims.UserID
	req.ActorRole = claims.Role
	enrollment, err := h.enrollments.Finalize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param offeringId query string false "Filter by offering"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	filter := models.EnrollmentFilter{
		StudentID:        c.Query("studentId"),
		CourseOfferingID: c.Query("offeringId"),
		Status:           models.EnrollmentStatus(c.Query("status")),
		Page:             page,
		PageSize:         pageSize,
	}
	// Students only ever see their own enrollments.
	if claims.Role == models.RoleStudent {
		filter.StudentID = claims.UserID
	}
	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), claims.InstituteID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}
