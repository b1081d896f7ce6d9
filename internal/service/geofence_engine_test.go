package service

import (
	"testing"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

var square = []model.Location{
	{Lat: 0, Lng: 0},
	{Lat: 0, Lng: 10},
	{Lat: 10, Lng: 10},
	{Lat: 10, Lng: 0},
}

func TestPointInPolygon(t *testing.T) {
	tests := []struct {
		name  string
		point model.Location
		poly  []model.Location
		want  bool
	}{
		{"center", model.Location{Lat: 5, Lng: 5}, square, true},
		{"far outside", model.Location{Lat: 15, Lng: 15}, square, false},
		{"negative side", model.Location{Lat: -1, Lng: 5}, square, false},
		{"low latitude edge", model.Location{Lat: 0, Lng: 5}, square, true},
		{"high latitude edge", model.Location{Lat: 10, Lng: 5}, square, false},
		{"low longitude edge", model.Location{Lat: 5, Lng: 0}, square, true},
		{"high longitude edge", model.Location{Lat: 5, Lng: 10}, square, false},
		{"two vertices", model.Location{Lat: 0, Lng: 0}, square[:2], false},
		{"empty polygon", model.Location{Lat: 0, Lng: 0}, nil, false},
		{"madrid centre", model.Location{Lat: 40.42, Lng: -3.70}, []model.Location{
			{Lat: 40.40, Lng: -3.72}, {Lat: 40.44, Lng: -3.72}, {Lat: 40.44, Lng: -3.68}, {Lat: 40.40, Lng: -3.68},
		}, true},
		{"concave notch", model.Location{Lat: 5, Lng: 5}, []model.Location{
			{Lat: 0, Lng: 0}, {Lat: 10, Lng: 0}, {Lat: 10, Lng: 10}, {Lat: 5, Lng: 4}, {Lat: 0, Lng: 10},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.point, tt.poly); got != tt.want {
				t.Errorf("PointInPolygon(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestPointInPolygonIsDeterministic(t *testing.T) {
	p := model.Location{Lat: 0, Lng: 5}
	first := PointInPolygon(p, square)
	for i := 0; i < 100; i++ {
		if PointInPolygon(p, square) != first {
			t.Fatal("boundary result changed between calls")
		}
	}
}

func vehicleAt(id string, lat, lng float64) model.Vehicle {
	return model.Vehicle{ID: id, Make: "Ford", Model: "Transit", Plate: "9876-ABC", Location: &model.Location{Lat: lat, Lng: lng}}
}

func TestEvaluateTickTransitions(t *testing.T) {
	engine := NewGeofenceEngine(fixedClock)
	fences := []model.Geofence{{ID: "g1", Name: "Depot", Polygon: square}}

	path := []struct {
		name      string
		lat, lng  float64
		wantTypes []model.AlertType
	}{
		{"starts outside", 20, 20, nil},
		{"enters", 5, 5, []model.AlertType{model.AlertTypeGeofenceEnter}},
		{"stays inside", 6, 6, nil},
		{"still inside", 4, 4, nil},
		{"leaves", 20, 5, []model.AlertType{model.AlertTypeGeofenceExit}},
		{"stays outside", 25, 5, nil},
	}

	state := InsideState{}
	for _, step := range path {
		t.Run(step.name, func(t *testing.T) {
			var events []model.AlertEvent
			state, events = engine.EvaluateTick([]model.Vehicle{vehicleAt("v1", step.lat, step.lng)}, fences, state)
			if len(events) != len(step.wantTypes) {
				t.Fatalf("got %d events, want %d: %+v", len(events), len(step.wantTypes), events)
			}
			for i, ev := range events {
				if ev.Type != step.wantTypes[i] {
					t.Errorf("event %d type = %s, want %s", i, ev.Type, step.wantTypes[i])
				}
				if ev.VehicleID != "v1" || ev.GeofenceID != "g1" {
					t.Errorf("event %d keyed %s/%s", i, ev.VehicleID, ev.GeofenceID)
				}
				wantSev := severityGeofenceExit
				if ev.Type == model.AlertTypeGeofenceEnter {
					wantSev = severityGeofenceEnter
				}
				if ev.Severity != wantSev {
					t.Errorf("event %d severity = %d, want %d", i, ev.Severity, wantSev)
				}
			}
		})
	}
}

func TestEvaluateTickStartingInside(t *testing.T) {
	engine := NewGeofenceEngine(fixedClock)
	fences := []model.Geofence{{ID: "g1", Name: "Depot", Polygon: square}}

	state, events := engine.EvaluateTick([]model.Vehicle{vehicleAt("v1", 5, 5)}, fences, nil)
	if len(events) != 1 || events[0].Type != model.AlertTypeGeofenceEnter {
		t.Fatalf("first tick inside should enter once, got %+v", events)
	}
	for i := 0; i < 3; i++ {
		state, events = engine.EvaluateTick([]model.Vehicle{vehicleAt("v1", 5, 5)}, fences, state)
		if len(events) != 0 {
			t.Fatalf("tick %d emitted %+v", i, events)
		}
	}
}

func TestEvaluateTickDoesNotMutatePrevious(t *testing.T) {
	engine := NewGeofenceEngine(fixedClock)
	fences := []model.Geofence{{ID: "g1", Name: "Depot", Polygon: square}}
	previous := InsideState{StateKey("v1", "g1"): true}

	next, events := engine.EvaluateTick([]model.Vehicle{vehicleAt("v1", 50, 50)}, fences, previous)
	if len(events) != 1 {
		t.Fatalf("want one exit event, got %d", len(events))
	}
	if !previous[StateKey("v1", "g1")] {
		t.Error("previous state was modified")
	}
	if next[StateKey("v1", "g1")] {
		t.Error("next state still inside")
	}
}

func TestEvaluateTickCarriesStateForUnlocatedVehicles(t *testing.T) {
	engine := NewGeofenceEngine(fixedClock)
	fences := []model.Geofence{{ID: "g1", Name: "Depot", Polygon: square}}
	previous := InsideState{StateKey("v1", "g1"): true}

	lost := model.Vehicle{ID: "v1"}
	next, events := engine.EvaluateTick([]model.Vehicle{lost}, fences, previous)
	if len(events) != 0 {
		t.Fatalf("vehicle without location emitted %+v", events)
	}
	if !next[StateKey("v1", "g1")] {
		t.Error("state of vehicle without location was dropped")
	}
}

func TestEvaluateTickMultipleFences(t *testing.T) {
	engine := NewGeofenceEngine(fixedClock)
	fences := []model.Geofence{
		{ID: "a", Name: "A", Polygon: square},
		{ID: "b", Name: "B", Polygon: []model.Location{{Lat: 4, Lng: 4}, {Lat: 4, Lng: 20}, {Lat: 20, Lng: 20}, {Lat: 20, Lng: 4}}},
		{ID: "bad", Name: "Line", Polygon: square[:2]},
	}

	state, events := engine.EvaluateTick([]model.Vehicle{vehicleAt("v1", 5, 5), vehicleAt("v2", 30, 30)}, fences, InsideState{})
	if len(events) != 2 {
		t.Fatalf("want enter on a and b, got %+v", events)
	}
	if len(state) != 2 || !state[StateKey("v1", "a")] || !state[StateKey("v1", "b")] {
		t.Errorf("unexpected state %v", state)
	}
}
