package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuslabs/academia-api/internal/service"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
	"github.com/campuslabs/academia-api/pkg/response"
)

// ReportHandler exposes export endpoints for offering-level reports.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// AttendanceRegister godoc
// @Summary Export the attendance register for an offering
// @Tags Reports
// @Produce text/csv
// @Param id path string true "Offering ID"
// @Param format query string false "Export format (csv or pdf)"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /offerings/{id}/reports/attendance-register [get]
func (h *ReportHandler) AttendanceRegister(c *gin.Context) {
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
	file, err := h.reports.AttendanceRegister(c.Request.Context(), claims.InstituteID, c.Param("id"),
		from, to, service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, file)
}

// GradeSheet godoc
// @Summary Export the grade sheet for an offering
// @Tags Reports
// @Produce text/csv
// @Param id path string true "Offering ID"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /offerings/{id}/reports/grade-sheet [get]
func (h *ReportHandler) GradeSheet(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	file, err := h.reports.GradeSheet(c.Request.Context(), claims.InstituteID, c.Param("id"),
		service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, file)
}

func writeExport(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
