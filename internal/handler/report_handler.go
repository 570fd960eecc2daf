package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/participation-api/internal/dto"
	"github.com/campuspulse/participation-api/internal/middleware"
	"github.com/campuspulse/participation-api/internal/models"
	"github.com/campuspulse/participation-api/internal/service"
	appErrors "github.com/campuspulse/participation-api/pkg/errors"
	"github.com/campuspulse/participation-api/pkg/response"
)

type exportJobService interface {
	CreateJob(ctx context.Context, req dto.ReportRequest) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes reporting and export endpoints.
type ReportHandler struct {
	reports *service.ReportService
	exports exportJobService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, exports exportJobService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// Popularity godoc
// @Summary Event popularity ranking
// @Tags Reports
// @Produce json
// @Param collegeId query string false "Scope to college"
// @Success 200 {object} response.Envelope
// @Router /reports/events/popularity [get]
func (h *ReportHandler) Popularity(c *gin.Context) {
	rows, err := h.reports.EventPopularity(c.Request.Context(), c.Query("collegeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// TopStudents godoc
// @Summary Most active students by attendance
// @Tags Reports
// @Produce json
// @Param collegeId query string false "Scope to college"
// @Param limit query int false "Result limit (default 3)"
// @Success 200 {object} response.Envelope
// @Router /reports/students/top [get]
func (h *ReportHandler) TopStudents(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be an integer"))
			return
		}
		limit = parsed
	}
	rows, err := h.reports.TopActiveStudents(c.Request.Context(), c.Query("collegeId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Dashboard godoc
// @Summary Composite admin dashboard
// @Tags Reports
// @Produce json
// @Param collegeId query string false "Scope to college"
// @Success 200 {object} response.Envelope
// @Router /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	start := time.Now()
	report, cacheHit, err := h.reports.Dashboard(c.Request.Context(), c.Query("collegeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, report, nil, meta)
}

// GenerateReport godoc
// @Summary Queue an asynchronous report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Report request"
// @Success 202 {object} response.Envelope
// @Router /reports/generate [post]
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.exports.CreateJob(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, resp, nil)
}

// ReportStatus godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/status/{id} [get]
func (h *ReportHandler) ReportStatus(c *gin.Context) {
	resp, err := h.exports.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// DownloadReport godoc
// @Summary Download a finished export via signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/export/{token} [get]
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}

	contentType := "text/csv"
	if download.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, nil)
}
