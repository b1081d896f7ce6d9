package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/programadoraburrido/gestion-flota/internal/middleware"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/service"
)

// AlertHandler 告警处理器
type AlertHandler struct {
	feed     *service.AlertFeed
	vehicles *service.VehicleService
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(feed *service.AlertFeed, vehicles *service.VehicleService) *AlertHandler {
	return &AlertHandler{feed: feed, vehicles: vehicles}
}

// List returns alerts for the caller's vehicles, newest first
// @Summary List alerts
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param vehicle_id query string false "Vehicle ID"
// @Param type query string false "Alert type" Enums(DTC, inspection-due, oil-due, high-cost, geofence-enter, geofence-exit)
// @Param unacknowledged query bool false "Only unacknowledged alerts"
// @Param limit query int false "Maximum number of alerts"
// @Success 200 {object} map[string]interface{}
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	var q model.AlertListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	alerts := h.feed.List(q, visibleSet(ctx, h.vehicles, middleware.PrincipalFrom(c)))
	c.JSON(http.StatusOK, gin.H{
		"data":  alerts,
		"total": len(alerts),
	})
}

// Get returns one alert
// @Summary Get alert
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.AlertEvent
// @Failure 404 {object} map[string]string
// @Router /alerts/{id} [get]
func (h *AlertHandler) Get(c *gin.Context) {
	alert, ok := h.visibleAlert(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, alert)
}

// Acknowledge marks an active alert as seen
// @Summary Acknowledge alert
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.AlertEvent
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /alerts/{id}/ack [post]
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	if _, ok := h.visibleAlert(c); !ok {
		return
	}

	p := middleware.PrincipalFrom(c)
	alert, err := h.feed.Acknowledge(c.Request.Context(), c.Param("id"), p.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// Resolve closes an alert
// @Summary Resolve alert
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.AlertEvent
// @Failure 409 {object} map[string]string
// @Router /alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *gin.Context) {
	if _, ok := h.visibleAlert(c); !ok {
		return
	}

	alert, err := h.feed.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// Stats counts alerts by type and status
// @Summary Alert statistics
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AlertStats
// @Router /alerts/stats [get]
func (h *AlertHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, h.feed.Stats(visibleSet(ctx, h.vehicles, middleware.PrincipalFrom(c))))
}

// visibleAlert loads the alert named in the path, answering 404 for alerts on vehicles
// the caller cannot see
func (h *AlertHandler) visibleAlert(c *gin.Context) (*model.AlertEvent, bool) {
	alert, err := h.feed.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}

	visible := visibleSet(c.Request.Context(), h.vehicles, middleware.PrincipalFrom(c))
	if !visible(alert.VehicleID) {
		writeError(c, service.ErrAlertNotFound)
		return nil, false
	}
	return alert, true
}
