package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/testlane/testlane-backend/internal/middleware"
	"github.com/testlane/testlane-backend/internal/response"
	"github.com/testlane/testlane-backend/internal/service"
)

// ReportHandler handles a teacher's results endpoints.
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ListResults godoc
// GET /api/v1/teacher/tests/:test_id/results?page=&per_page=
func (h *ReportHandler) ListResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	page, perPage = clampPage(page, perPage)

	results, total, err := h.reportService.ListResults(c.Request.Context(), testID, claims.UserID, page, perPage)
	if err != nil {
		failTestError(c, err)
		return
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: (int(total) + perPage - 1) / perPage,
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// clampPage normalizes pagination query values. per_page is capped so a
// single request cannot pull an unbounded result set.
func clampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

// ExportResults godoc
// GET /api/v1/teacher/tests/:test_id/results/export
// Streams the results as an xlsx workbook.
func (h *ReportHandler) ExportResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	data, filename, err := h.reportService.ExportResults(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		failTestError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
