package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/metrics"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.AlertEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, events []model.AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

type recordingPositions struct {
	updates [][]model.LocationUpdate
}

func (r *recordingPositions) BroadcastPositions(u []model.LocationUpdate) {
	r.updates = append(r.updates, u)
}

func plainHasher(p string) (string, error) { return p, nil }

type monitorFixture struct {
	store     *repository.Store
	feed      *AlertFeed
	notifier  *recordingNotifier
	positions *recordingPositions
	monitor   *FleetMonitor
}

func newMonitorFixture(t *testing.T, cfg MonitorConfig) *monitorFixture {
	t.Helper()
	store := repository.NewStore(repository.WithClock(fixedClock))
	if err := store.Seed(context.Background(), plainHasher); err != nil {
		t.Fatal(err)
	}
	logger := zap.NewNop()
	evaluator := newTestEvaluator(model.DefaultIntervals())
	feed := NewAlertFeed(DefaultFeedCapacity, fixedClock, logger)
	f := &monitorFixture{
		store:     store,
		feed:      feed,
		notifier:  &recordingNotifier{},
		positions: &recordingPositions{},
	}
	f.monitor = NewFleetMonitor(cfg, store, evaluator, NewGeofenceEngine(fixedClock), feed,
		NewSummaryCache(evaluator, time.Minute), f.notifier, f.positions, logger)
	f.monitor.SetRand(rand.New(rand.NewSource(1)))
	return f
}

func countByType(events []model.AlertEvent) map[model.AlertType]int {
	out := make(map[model.AlertType]int)
	for _, e := range events {
		out[e.Type]++
	}
	return out
}

func TestMonitorTickRaisesConditionAlerts(t *testing.T) {
	f := newMonitorFixture(t, MonitorConfig{})
	ctx := context.Background()

	res := f.monitor.Tick(ctx)
	if res.Evaluated != 6 {
		t.Errorf("evaluated %d vehicles", res.Evaluated)
	}
	got := countByType(res.Accepted)
	if got[model.AlertTypeDTC] != 2 || got[model.AlertTypeInspectionDue] != 2 || len(res.Accepted) != 4 {
		t.Fatalf("accepted %v", got)
	}
	if len(f.notifier.events) != 4 {
		t.Errorf("notified %d alerts", len(f.notifier.events))
	}

	res = f.monitor.Tick(ctx)
	if len(res.Accepted) != 0 {
		t.Errorf("second tick repeated open alerts: %+v", res.Accepted)
	}
	if f.feed.Len() != 4 {
		t.Errorf("feed len = %d", f.feed.Len())
	}
}

func TestMonitorTickGeofenceTransitions(t *testing.T) {
	f := newMonitorFixture(t, MonitorConfig{})
	ctx := context.Background()
	f.monitor.Tick(ctx)

	if err := f.store.SetLocation(ctx, "v_103", model.Location{Lat: 40.42, Lng: -3.70}); err != nil {
		t.Fatal(err)
	}
	res := f.monitor.Tick(ctx)
	if len(res.Accepted) != 1 || res.Accepted[0].Type != model.AlertTypeGeofenceEnter || res.Accepted[0].VehicleID != "v_103" {
		t.Fatalf("enter tick accepted %+v", res.Accepted)
	}

	if res = f.monitor.Tick(ctx); len(res.Accepted) != 0 {
		t.Fatalf("steady state emitted %+v", res.Accepted)
	}

	if err := f.store.SetLocation(ctx, "v_103", model.Location{Lat: 40.50, Lng: -3.70}); err != nil {
		t.Fatal(err)
	}
	res = f.monitor.Tick(ctx)
	if len(res.Accepted) != 1 || res.Accepted[0].Type != model.AlertTypeGeofenceExit {
		t.Fatalf("exit tick accepted %+v", res.Accepted)
	}
}

func TestMonitorSimulatesMovement(t *testing.T) {
	f := newMonitorFixture(t, MonitorConfig{SimulateMovement: true, JitterDegrees: 0.0005})
	ctx := context.Background()

	before, _ := f.store.GetVehicle(ctx, "v_101")
	res := f.monitor.Tick(ctx)
	if res.Moved != 6 {
		t.Errorf("moved %d vehicles, want 6", res.Moved)
	}
	if len(f.positions.updates) != 1 || len(f.positions.updates[0]) != 6 {
		t.Errorf("position broadcasts = %+v", f.positions.updates)
	}

	after, _ := f.store.GetVehicle(ctx, "v_101")
	dLat := after.Location.Lat - before.Location.Lat
	dLng := after.Location.Lng - before.Location.Lng
	if dLat < -0.00025 || dLat > 0.00025 || dLng < -0.00025 || dLng > 0.00025 {
		t.Errorf("jitter out of range: %v, %v", dLat, dLng)
	}
	history, _ := f.store.LocationHistory(ctx, "v_101")
	if len(history) != 2 {
		t.Errorf("history = %d samples, want 2", len(history))
	}
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	f := newMonitorFixture(t, MonitorConfig{Interval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.monitor.Run(ctx) }()
	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	if f.feed.Len() != 4 {
		t.Errorf("feed len = %d", f.feed.Len())
	}
}

func TestMonitorTickKeepsInvalidation(t *testing.T) {
	f := newMonitorFixture(t, MonitorConfig{})
	ctx := context.Background()
	f.monitor.Tick(ctx)

	// a DTC cleared while the next tick is in flight: the tick's snapshot predates it
	since := f.monitor.summaries.Epoch()
	v, _ := f.store.GetVehicle(ctx, "v_106")
	staleSummary := f.monitor.evaluator.Evaluate(v)
	if err := f.store.ClearDTC(ctx, "v_106", "dtc_003"); err != nil {
		t.Fatal(err)
	}
	f.monitor.summaries.Invalidate("v_106")

	if f.monitor.summaries.PutSince("v_106", staleSummary, since) {
		t.Fatal("stale summary overwrote the invalidation")
	}
	fresh, _ := f.store.GetVehicle(ctx, "v_106")
	if s := f.monitor.summaries.Summary(fresh); s.CriticalDTC {
		t.Errorf("summary still reports the cleared DTC: %+v", s)
	}
}

func TestMonitorDropsSeverityOfDeletedVehicles(t *testing.T) {
	f := newMonitorFixture(t, MonitorConfig{})
	ctx := context.Background()
	f.monitor.Tick(ctx)

	if err := f.store.DeleteVehicle(ctx, "v_105"); err != nil {
		t.Fatal(err)
	}
	f.monitor.Tick(ctx)

	if metrics.VehicleSeverity.DeleteLabelValues("v_105") {
		t.Error("deleted vehicle still exported on the severity gauge")
	}
	if !metrics.VehicleSeverity.DeleteLabelValues("v_101") {
		t.Error("live vehicle missing from the severity gauge")
	}
}
