package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/programadoraburrido/gestion-flota/internal/middleware"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/service"
)

// MaintenanceHandler 保养记录与故障码
type MaintenanceHandler struct {
	maintenanceService *service.MaintenanceService
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(maintenanceService *service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenanceService: maintenanceService}
}

// List returns maintenance records, newest first
// @Summary List maintenance records
// @Tags Maintenance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vehicle ID"
// @Success 200 {array} model.MaintenanceRecord
// @Router /vehicles/{id}/maintenance [get]
func (h *MaintenanceHandler) List(c *gin.Context) {
	records, err := h.maintenanceService.List(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Add adds a maintenance record
// @Summary Add maintenance record
// @Tags Maintenance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vehicle ID"
// @Param record body model.CreateMaintenanceRequest true "Record"
// @Success 201 {object} model.MaintenanceRecord
// @Failure 400 {object} map[string]string
// @Router /vehicles/{id}/maintenance [post]
func (h *MaintenanceHandler) Add(c *gin.Context) {
	var req model.CreateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rec, err := h.maintenanceService.Add(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Delete removes a maintenance record
// @Router /vehicles/{id}/maintenance/{recordId} [delete]
func (h *MaintenanceHandler) Delete(c *gin.Context) {
	if err := h.maintenanceService.Delete(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), c.Param("recordId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDTCs returns the active diagnostic trouble codes
// @Router /vehicles/{id}/dtcs [get]
func (h *MaintenanceHandler) ListDTCs(c *gin.Context) {
	codes, err := h.maintenanceService.ListDTCs(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, codes)
}

// AddDTC reports a diagnostic trouble code
// @Summary Report DTC
// @Tags Maintenance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vehicle ID"
// @Param dtc body model.CreateDTCRequest true "Code, description and severity (INFO, WARNING, CRITICAL)"
// @Success 201 {object} model.DiagnosticCode
// @Router /vehicles/{id}/dtcs [post]
func (h *MaintenanceHandler) AddDTC(c *gin.Context) {
	var req model.CreateDTCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	dtc, err := h.maintenanceService.AddDTC(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dtc)
}

// ClearDTC clears a diagnostic trouble code
// @Router /vehicles/{id}/dtcs/{dtcId} [delete]
func (h *MaintenanceHandler) ClearDTC(c *gin.Context) {
	if err := h.maintenanceService.ClearDTC(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), c.Param("dtcId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
