package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/programadoraburrido/gestion-flota/internal/middleware"
	"github.com/programadoraburrido/gestion-flota/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler 报表导出
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// FleetHTML renders the fleet report as a standalone page
// @Summary Fleet report (HTML)
// @Tags Reports
// @Produce html
// @Security BearerAuth
// @Success 200 {string} string "HTML document"
// @Router /reports/fleet.html [get]
func (h *ReportHandler) FleetHTML(c *gin.Context) {
	report, err := h.reportService.Build(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.reportService.RenderHTML(&buf, report); err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// FleetXLSX exports the fleet report as a workbook
// @Summary Fleet report (Excel)
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Router /reports/fleet.xlsx [get]
func (h *ReportHandler) FleetXLSX(c *gin.Context) {
	report, err := h.reportService.Build(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	data, err := h.reportService.RenderXLSX(report)
	if err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("fleet_report_%s.xlsx", report.GeneratedAt.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
