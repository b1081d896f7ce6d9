package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/programadoraburrido/gestion-flota/internal/middleware"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/service"
)

// GeofenceHandler handles geofence-related requests
type GeofenceHandler struct {
	geofenceService *service.GeofenceService
}

// NewGeofenceHandler creates a new geofence handler
func NewGeofenceHandler(geofenceService *service.GeofenceService) *GeofenceHandler {
	return &GeofenceHandler{geofenceService: geofenceService}
}

// Create creates a new geofence
// @Summary Create geofence
// @Description Create a new polygon geofence
// @Tags Geofences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param geofence body model.CreateGeofenceRequest true "Geofence data"
// @Success 201 {object} model.Geofence
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /geofences [post]
func (h *GeofenceHandler) Create(c *gin.Context) {
	var req model.CreateGeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	geofence, err := h.geofenceService.Create(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, geofence)
}

// List returns all geofences
// @Summary List geofences
// @Tags Geofences
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /geofences [get]
func (h *GeofenceHandler) List(c *gin.Context) {
	geofences := h.geofenceService.List(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"data":  geofences,
		"total": len(geofences),
	})
}

// Get returns a single geofence
// @Summary Get geofence
// @Tags Geofences
// @Produce json
// @Security BearerAuth
// @Param id path string true "Geofence ID"
// @Success 200 {object} model.Geofence
// @Failure 404 {object} map[string]string
// @Router /geofences/{id} [get]
func (h *GeofenceHandler) Get(c *gin.Context) {
	geofence, err := h.geofenceService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, geofence)
}

// Delete deletes a geofence
// @Summary Delete geofence
// @Tags Geofences
// @Security BearerAuth
// @Param id path string true "Geofence ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /geofences/{id} [delete]
func (h *GeofenceHandler) Delete(c *gin.Context) {
	if err := h.geofenceService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Check tests whether a point lies inside a polygon
// @Summary Point in polygon
// @Description Even-odd ray casting; edges are half-open
// @Tags Geofences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CheckPointRequest true "Point and polygon"
// @Success 200 {object} model.CheckPointResponse
// @Failure 400 {object} map[string]string
// @Router /geofences/check [post]
func (h *GeofenceHandler) Check(c *gin.Context) {
	var req model.CheckPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inside, err := h.geofenceService.CheckPoint(req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.CheckPointResponse{Inside: inside})
}
