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

// OfferingHandler exposes read-only course offering endpoints.
type OfferingHandler struct {
	catalog *service.CatalogService
}

// NewOfferingHandler constructs handler.
func NewOfferingHandler(catalog *service.CatalogService) *OfferingHandler {
	return &OfferingHandler{catalog: catalog}
}

// Get godoc
// @Summary Get a course offering with seat usage
// @Tags Offerings
// @Produce json
// @Param id path string true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id} [get]
func (h *OfferingHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	offering, err := h.catalog.GetOffering(c.Request.Context(), claims.InstituteID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// List godoc
// @Summary List course offerings
// @Tags Offerings
// @Produce json
// @Param semesterId query string false "Filter by semester"
// @Param subjectId query string false "Filter by subject"
// @Param facultyId query string false "Filter by faculty"
// @Param active query bool false "Only active offerings"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /offerings [get]
func (h *OfferingHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	filter := models.CourseOfferingFilter{
		SemesterID: c.Query("semesterId"),
		SubjectID:  c.Query("subjectId"),
		FacultyID:  c.Query("facultyId"),
		ActiveOnly: c.Query("active") == "true",
		Page:       page,
		PageSize:   pageSize,
	}
	offerings, pagination, err := h.catalog.ListOfferings(c.Request.Context(), claims.InstituteID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, pagination)
}
