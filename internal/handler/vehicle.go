package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/programadoraburrido/gestion-flota/internal/middleware"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/service"
)

// VehicleHandler handles vehicle-related requests
type VehicleHandler struct {
	vehicleService *service.VehicleService
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicleService *service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService}
}

// List returns the vehicles visible to the caller with their alert summaries
// @Summary List vehicles
// @Description Search by plate, VIN, make or model; filter by year and severity band; sort by km, cost or severity
// @Tags Vehicles
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search text"
// @Param year query int false "Model year"
// @Param severity query string false "Severity band" Enums(low, medium, high)
// @Param sort query string false "Sort key" Enums(km, cost, severity)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /vehicles [get]
func (h *VehicleHandler) List(c *gin.Context) {
	var q model.VehicleListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	vehicles := h.vehicleService.List(c.Request.Context(), middleware.PrincipalFrom(c), q)
	c.JSON(http.StatusOK, gin.H{
		"data":  vehicles,
		"total": len(vehicles),
	})
}

// Get returns a single vehicle
// @Summary Get vehicle
// @Tags Vehicles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vehicle ID"
// @Success 200 {object} model.VehicleView
// @Failure 404 {object} map[string]string
// @Router /vehicles/{id} [get]
func (h *VehicleHandler) Get(c *gin.Context) {
	vw, err := h.vehicleService.Get(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vw)
}

// Create creates a new vehicle
// @Summary Create vehicle
// @Description A known VIN fills in make, model and year
// @Tags Vehicles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param vehicle body model.CreateVehicleRequest true "Vehicle data"
// @Success 201 {object} model.VehicleView
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /vehicles [post]
func (h *VehicleHandler) Create(c *gin.Context) {
	var req model.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	vw, err := h.vehicleService.Create(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vw)
}

// UpdateInspection sets or clears the next inspection date
// @Summary Update inspection date
// @Tags Vehicles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vehicle ID"
// @Param body body model.UpdateInspectionRequest true "Next inspection date, null clears it"
// @Success 200 {object} model.VehicleView
// @Router /vehicles/{id}/inspection [put]
func (h *VehicleHandler) UpdateInspection(c *gin.Context) {
	var req model.UpdateInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	vw, err := h.vehicleService.UpdateInspection(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), req.NextInspectionDate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vw)
}

// UpdateOdometer records a new odometer reading
// @Summary Update odometer
// @Tags Vehicles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vehicle ID"
// @Param body body model.UpdateOdometerRequest true "Reading in km"
// @Success 200 {object} model.VehicleView
// @Router /vehicles/{id}/odometer [put]
func (h *VehicleHandler) UpdateOdometer(c *gin.Context) {
	var req model.UpdateOdometerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	vw, err := h.vehicleService.UpdateOdometer(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), req.CurrentOdometer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vw)
}

// Delete deletes a vehicle
// @Summary Delete vehicle
// @Tags Vehicles
// @Security BearerAuth
// @Param id path string true "Vehicle ID"
// @Success 204
// @Router /vehicles/{id} [delete]
func (h *VehicleHandler) Delete(c *gin.Context) {
	if err := h.vehicleService.Delete(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Recommendations returns the recommended maintenance plan
// @Summary Recommended maintenance
// @Tags Vehicles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vehicle ID"
// @Success 200 {array} model.MaintenanceRule
// @Router /vehicles/{id}/recommendations [get]
func (h *VehicleHandler) Recommendations(c *gin.Context) {
	rules, err := h.vehicleService.Recommendations(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// History returns the recorded positions
// @Summary Location history
// @Tags Vehicles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vehicle ID"
// @Success 200 {array} model.PositionSample
// @Router /vehicles/{id}/history [get]
func (h *VehicleHandler) History(c *gin.Context) {
	samples, err := h.vehicleService.History(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, samples)
}

// InspectionDigest counts overdue and due-soon inspections
// @Summary Inspection digest
// @Tags Vehicles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.InspectionDigest
// @Router /inspections/digest [get]
func (h *VehicleHandler) InspectionDigest(c *gin.Context) {
	c.JSON(http.StatusOK, h.vehicleService.InspectionDigest(c.Request.Context(), middleware.PrincipalFrom(c)))
}
