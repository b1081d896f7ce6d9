package service

import (
	"fmt"
	"time"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

const (
	// intersectEpsilon keeps horizontal edges from dividing by zero
	intersectEpsilon = 1e-7

	severityGeofenceEnter = 2
	severityGeofenceExit  = 1
)

// PointInPolygon reports whether p lies inside poly using the even-odd rule with
// x = latitude and y = longitude. Polygons with fewer than 3 vertices contain nothing.
//
// Edges are half-open: on an axis-aligned square a point on the low-latitude edge is
// inside and a point on the high-latitude edge is outside.
func PointInPolygon(p model.Location, poly []model.Location) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	x, y := p.Lat, p.Lng
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := poly[i].Lat, poly[i].Lng
		xj, yj := poly[j].Lat, poly[j].Lng
		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi+intersectEpsilon)+xi {
			inside = !inside
		}
	}
	return inside
}

// InsideState remembers, per vehicle/geofence pair, whether the vehicle was inside on the
// previous tick. Absent keys mean outside.
type InsideState map[string]bool

// StateKey builds the "<vehicleId>::<geofenceId>" key
func StateKey(vehicleID, geofenceID string) string {
	return vehicleID + "::" + geofenceID
}

// Clone copies the state map
func (s InsideState) Clone() InsideState {
	out := make(InsideState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// GeofenceEngine turns vehicle positions into enter/exit transitions. It keeps no state
// between calls; the caller owns the InsideState.
type GeofenceEngine struct {
	now func() time.Time
}

// NewGeofenceEngine creates an engine stamping events with now
func NewGeofenceEngine(now func() time.Time) *GeofenceEngine {
	if now == nil {
		now = time.Now
	}
	return &GeofenceEngine{now: now}
}

// EvaluateTick compares every located vehicle against every geofence and returns the new
// state plus one event per transition. previous is never modified. Vehicles without a
// location keep their previous state.
func (e *GeofenceEngine) EvaluateTick(vehicles []model.Vehicle, geofences []model.Geofence, previous InsideState) (InsideState, []model.AlertEvent) {
	next := previous.Clone()
	var events []model.AlertEvent
	ts := e.now()

	for i := range vehicles {
		v := &vehicles[i]
		if v.Location == nil {
			continue
		}
		for j := range geofences {
			g := &geofences[j]
			key := StateKey(v.ID, g.ID)
			was := previous[key]
			inside := PointInPolygon(*v.Location, g.Polygon)

			switch {
			case inside && !was:
				events = append(events, model.AlertEvent{
					VehicleID:  v.ID,
					GeofenceID: g.ID,
					Type:       model.AlertTypeGeofenceEnter,
					Severity:   severityGeofenceEnter,
					Message:    fmt.Sprintf("%s (%s) entered geofence %s", v.DisplayName(), v.Plate, g.Name),
					Timestamp:  ts,
				})
			case !inside && was:
				events = append(events, model.AlertEvent{
					VehicleID:  v.ID,
					GeofenceID: g.ID,
					Type:       model.AlertTypeGeofenceExit,
					Severity:   severityGeofenceExit,
					Message:    fmt.Sprintf("%s (%s) left geofence %s", v.DisplayName(), v.Plate, g.Name),
					Timestamp:  ts,
				})
			}

			if inside {
				next[key] = true
			} else {
				delete(next, key)
			}
		}
	}
	return next, events
}
