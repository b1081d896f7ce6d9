package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
	"github.com/programadoraburrido/gestion-flota/internal/service"
)

// writeError maps service and repository errors to an HTTP status
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrAlertNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrAlreadyExists), errors.Is(err, service.ErrUserExists):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidVehicle),
		errors.Is(err, service.ErrInvalidRecord),
		errors.Is(err, service.ErrInvalidGeofence):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// visibleSet returns a predicate over the vehicle ids p may see. Whole-fleet roles see
// every id, including vehicles deleted since their alerts were raised.
func visibleSet(ctx context.Context, vehicles *service.VehicleService, p *model.Principal) func(string) bool {
	if p != nil && p.Role.SeesWholeFleet() {
		return func(string) bool { return true }
	}
	ids := make(map[string]struct{})
	for _, v := range vehicles.Visible(ctx, p) {
		ids[v.ID] = struct{}{}
	}
	return func(id string) bool {
		_, ok := ids[id]
		return ok
	}
}
