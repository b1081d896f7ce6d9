package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

// DefaultFeedCapacity alerts kept before the oldest are dropped
const DefaultFeedCapacity = 200

// 告警生命周期事件
const (
	EventAcknowledge = "acknowledge"
	EventResolve     = "resolve"
)

var (
	ErrAlertNotFound     = errors.New("alert not found")
	ErrInvalidTransition = errors.New("invalid alert transition")
)

var alertTransitions = fsm.Events{
	{Name: EventAcknowledge, Src: []string{string(model.AlertStatusActive)}, Dst: string(model.AlertStatusAcknowledged)},
	{Name: EventResolve, Src: []string{string(model.AlertStatusActive), string(model.AlertStatusAcknowledged)}, Dst: string(model.AlertStatusResolved)},
}

// AlertFeed is the capped, deduplicated list of alerts shown on the dashboard. Condition
// alerts are not repeated while an unacknowledged alert of the same type is open for the
// same vehicle; geofence transitions are always kept.
type AlertFeed struct {
	mu       sync.RWMutex
	events   []model.AlertEvent // oldest first
	capacity int
	now      func() time.Time
	logger   *zap.Logger
}

// NewAlertFeed creates a feed holding at most capacity alerts
func NewAlertFeed(capacity int, now func() time.Time, logger *zap.Logger) *AlertFeed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &AlertFeed{
		capacity: capacity,
		now:      now,
		logger:   logger.Named("feed"),
	}
}

// Add merges events into the feed and returns the ones actually accepted, with IDs and
// status filled in.
func (f *AlertFeed) Add(events ...model.AlertEvent) []model.AlertEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var accepted []model.AlertEvent
	for _, ev := range events {
		if ev.Type.IsCondition() && f.hasOpenLocked(ev.VehicleID, ev.Type) {
			continue
		}
		if ev.ID == "" {
			ev.ID = ksuid.New().String()
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = f.now()
		}
		ev.Status = model.AlertStatusActive
		ev.Acknowledged = false
		f.events = append(f.events, ev)
		accepted = append(accepted, ev)
	}

	if over := len(f.events) - f.capacity; over > 0 {
		f.events = append([]model.AlertEvent(nil), f.events[over:]...)
	}
	return accepted
}

func (f *AlertFeed) hasOpenLocked(vehicleID string, typ model.AlertType) bool {
	for i := range f.events {
		e := &f.events[i]
		if e.VehicleID == vehicleID && e.Type == typ && !e.Acknowledged {
			return true
		}
	}
	return false
}

// List returns alerts newest first. visible may be nil to skip vehicle scoping.
func (f *AlertFeed) List(q model.AlertListQuery, visible func(vehicleID string) bool) []model.AlertEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]model.AlertEvent, 0)
	for i := len(f.events) - 1; i >= 0; i-- {
		e := f.events[i]
		if visible != nil && !visible(e.VehicleID) {
			continue
		}
		if q.VehicleID != "" && e.VehicleID != q.VehicleID {
			continue
		}
		if q.Type != "" && e.Type != q.Type {
			continue
		}
		if q.UnackedOnly && e.Acknowledged {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}

// Get 获取告警
func (f *AlertFeed) Get(id string) (*model.AlertEvent, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if i := f.indexLocked(id); i >= 0 {
		e := f.events[i]
		return &e, nil
	}
	return nil, ErrAlertNotFound
}

func (f *AlertFeed) indexLocked(id string) int {
	for i := range f.events {
		if f.events[i].ID == id {
			return i
		}
	}
	return -1
}

// Acknowledge moves an active alert to acknowledged
func (f *AlertFeed) Acknowledge(ctx context.Context, id, by string) (*model.AlertEvent, error) {
	return f.transition(ctx, id, EventAcknowledge, func(e *model.AlertEvent, at time.Time) {
		e.AcknowledgedBy = by
		e.AcknowledgedAt = &at
	})
}

// Resolve closes an active or acknowledged alert
func (f *AlertFeed) Resolve(ctx context.Context, id string) (*model.AlertEvent, error) {
	return f.transition(ctx, id, EventResolve, func(e *model.AlertEvent, at time.Time) {
		e.ResolvedAt = &at
	})
}

func (f *AlertFeed) transition(ctx context.Context, id, event string, apply func(*model.AlertEvent, time.Time)) (*model.AlertEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexLocked(id)
	if i < 0 {
		return nil, ErrAlertNotFound
	}
	e := &f.events[i]

	machine := fsm.NewFSM(string(e.Status), alertTransitions, fsm.Callbacks{})
	if err := machine.Event(ctx, event); err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return nil, fmt.Errorf("%w: cannot %s an alert that is %s", ErrInvalidTransition, event, e.Status)
		}
		return nil, err
	}

	e.Status = model.AlertStatus(machine.Current())
	e.Acknowledged = e.Status != model.AlertStatusActive
	apply(e, f.now())

	f.logger.Debug("alert transition",
		zap.String("id", id),
		zap.String("event", event),
		zap.String("status", string(e.Status)))
	out := *e
	return &out, nil
}

// Stats 告警统计
func (f *AlertFeed) Stats(visible func(vehicleID string) bool) model.AlertStats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	st := model.AlertStats{
		ByType:   make(map[model.AlertType]int),
		ByStatus: make(map[model.AlertStatus]int),
	}
	for _, e := range f.events {
		if visible != nil && !visible(e.VehicleID) {
			continue
		}
		st.Total++
		st.ByType[e.Type]++
		st.ByStatus[e.Status]++
		if e.Severity >= model.CriticalAlertSeverity {
			st.Critical++
		}
	}
	return st
}

// Len number of alerts held
func (f *AlertFeed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.events)
}
