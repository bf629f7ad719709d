package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trainhub/enroll-api/internal/service"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
	"github.com/trainhub/enroll-api/pkg/response"
)

// StatsHandler exposes platform statistics and report exports.
type StatsHandler struct {
	service *service.StatsService
	archive *service.ReportArchiveService
}

// NewStatsHandler creates a new handler. The archive service is optional;
// without it exports are still served but not kept.
func NewStatsHandler(svc *service.StatsService, archive *service.ReportArchiveService) *StatsHandler {
	return &StatsHandler{service: svc, archive: archive}
}

// Platform godoc
// @Summary Platform statistics
// @Description Aggregate counts of users, courses and enrollments (admin only)
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *StatsHandler) Platform(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.service.Platform(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

// ExportCSV godoc
// @Summary Export enrollments as CSV
// @Description Download the full enrollment report as a CSV file (admin only)
// @Tags Statistics
// @Produce text/csv
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reports/enrollments.csv [get]
func (h *StatsHandler) ExportCSV(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, err := h.service.ExportEnrollmentsCSV(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := service.ReportFilename("csv")
	h.scheduleArchive(c, filename, data)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportPDF godoc
// @Summary Export enrollments as PDF
// @Description Download the full enrollment report as a PDF file (admin only)
// @Tags Statistics
// @Produce application/pdf
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reports/enrollments.pdf [get]
func (h *StatsHandler) ExportPDF(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, err := h.service.ExportEnrollmentsPDF(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := service.ReportFilename("pdf")
	h.scheduleArchive(c, filename, data)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// DownloadArchived godoc
// @Summary Download archived report
// @Description Exchange a signed token for a previously generated report (admin only)
// @Tags Statistics
// @Produce application/octet-stream
// @Param token query string true "Signed report token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reports/download [get]
func (h *StatsHandler) DownloadArchived(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.archive == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report archive disabled"))
		return
	}

	data, filename, err := h.archive.Download(actor, c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// scheduleArchive keeps a copy of the rendered report and exposes the signed
// download token through a response header.
func (h *StatsHandler) scheduleArchive(c *gin.Context, filename string, data []byte) {
	if h.archive == nil {
		return
	}
	token, err := h.archive.Archive(filename, data)
	if err != nil {
		// The direct download still succeeds; only the archive copy is lost.
		return
	}
	c.Header("X-Report-Token", token)
}
