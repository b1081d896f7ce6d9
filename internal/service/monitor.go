package service

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/metrics"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
)

// PositionBroadcaster pushes simulated positions to live clients
type PositionBroadcaster interface {
	BroadcastPositions(updates []model.LocationUpdate)
}

// MonitorConfig 监控参数
type MonitorConfig struct {
	Interval         time.Duration
	SimulateMovement bool
	JitterDegrees    float64
}

// FleetMonitor periodically evaluates every vehicle and geofence and feeds the resulting
// alerts into the feed. It is the only owner of the geofence inside-state and must run on
// a single goroutine.
type FleetMonitor struct {
	cfg       MonitorConfig
	store     *repository.Store
	evaluator *AlertEvaluator
	engine    *GeofenceEngine
	feed      *AlertFeed
	summaries *SummaryCache
	notifier  Notifier
	positions PositionBroadcaster
	rng       *rand.Rand
	logger    *zap.Logger

	state InsideState
	// vehicle ids exported on the severity gauge last tick
	reported map[string]struct{}
}

// TickResult what one tick did
type TickResult struct {
	Evaluated int
	Moved     int
	Accepted  []model.AlertEvent
}

// NewFleetMonitor creates a monitor. notifier and positions may be nil.
func NewFleetMonitor(
	cfg MonitorConfig,
	store *repository.Store,
	evaluator *AlertEvaluator,
	engine *GeofenceEngine,
	feed *AlertFeed,
	summaries *SummaryCache,
	notifier Notifier,
	positions PositionBroadcaster,
	logger *zap.Logger,
) *FleetMonitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	return &FleetMonitor{
		cfg:       cfg,
		store:     store,
		evaluator: evaluator,
		engine:    engine,
		feed:      feed,
		summaries: summaries,
		notifier:  notifier,
		positions: positions,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:    logger.Named("monitor"),
		state:     InsideState{},
	}
}

// SetRand replaces the jitter source, for deterministic runs
func (m *FleetMonitor) SetRand(r *rand.Rand) {
	m.rng = r
}

// Run ticks until ctx is cancelled. The first tick runs immediately.
func (m *FleetMonitor) Run(ctx context.Context) error {
	m.logger.Info("fleet monitor started",
		zap.Duration("interval", m.cfg.Interval),
		zap.Bool("simulate_movement", m.cfg.SimulateMovement))

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("fleet monitor stopped")
			return nil
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one evaluation pass
func (m *FleetMonitor) Tick(ctx context.Context) TickResult {
	start := time.Now()
	var res TickResult

	if m.cfg.SimulateMovement {
		res.Moved = m.simulateMovement(ctx)
	}

	since := m.summaries.Epoch()
	vehicles := m.store.ListVehicles(ctx)
	geofences := m.store.ListGeofences(ctx)

	var events []model.AlertEvent
	seen := make(map[string]struct{}, len(vehicles))
	for i := range vehicles {
		v := &vehicles[i]
		s := m.evaluator.Evaluate(v)
		m.summaries.PutSince(v.ID, s, since)
		metrics.VehicleSeverity.WithLabelValues(v.ID).Set(float64(s.Severity))
		seen[v.ID] = struct{}{}
		events = append(events, m.evaluator.ConditionAlerts(v, s)...)
	}
	for id := range m.reported {
		if _, ok := seen[id]; !ok {
			metrics.VehicleSeverity.DeleteLabelValues(id)
		}
	}
	m.reported = seen
	res.Evaluated = len(vehicles)

	next, fenceEvents := m.engine.EvaluateTick(vehicles, geofences, m.state)
	m.state = pruneState(next, vehicles, geofences)
	events = append(events, fenceEvents...)

	res.Accepted = m.feed.Add(events...)
	for _, ev := range res.Accepted {
		metrics.AlertsEmitted.WithLabelValues(string(ev.Type)).Inc()
	}
	metrics.FeedSize.Set(float64(m.feed.Len()))

	if m.notifier != nil && len(res.Accepted) > 0 {
		if err := m.notifier.Notify(ctx, res.Accepted); err != nil {
			m.logger.Warn("notify alerts", zap.Error(err))
		}
	}

	metrics.MonitorTicks.Inc()
	metrics.TickDuration.Observe(time.Since(start).Seconds())
	if len(res.Accepted) > 0 {
		m.logger.Debug("tick",
			zap.Int("vehicles", res.Evaluated),
			zap.Int("alerts", len(res.Accepted)))
	}
	return res
}

// simulateMovement nudges every located vehicle by up to ±jitter/2 degrees per axis.
func (m *FleetMonitor) simulateMovement(ctx context.Context) int {
	var updates []model.LocationUpdate
	now := m.evaluator.Now()
	for _, v := range m.store.ListVehicles(ctx) {
		if v.Location == nil {
			continue
		}
		loc := model.Location{
			Lat: v.Location.Lat + (m.rng.Float64()-0.5)*m.cfg.JitterDegrees,
			Lng: v.Location.Lng + (m.rng.Float64()-0.5)*m.cfg.JitterDegrees,
		}
		if err := m.store.SetLocation(ctx, v.ID, loc); err != nil {
			// deleted between list and update
			continue
		}
		updates = append(updates, model.LocationUpdate{VehicleID: v.ID, Lat: loc.Lat, Lng: loc.Lng, Timestamp: now})
	}
	if m.positions != nil && len(updates) > 0 {
		m.positions.BroadcastPositions(updates)
	}
	return len(updates)
}

// pruneState drops pairs whose vehicle or geofence no longer exists
func pruneState(state InsideState, vehicles []model.Vehicle, geofences []model.Geofence) InsideState {
	live := make(map[string]struct{}, len(vehicles)*len(geofences))
	for _, v := range vehicles {
		for _, g := range geofences {
			live[StateKey(v.ID, g.ID)] = struct{}{}
		}
	}
	for k := range state {
		if _, ok := live[k]; !ok {
			delete(state, k)
		}
	}
	return state
}

