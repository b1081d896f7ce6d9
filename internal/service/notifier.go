package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

const (
	recentAlertsKey  = "fms:alerts:recent"
	recentAlertsKeep = 100
	vehicleAlertTTL  = 24 * time.Hour
)

// Notifier receives alerts after the feed accepted them
type Notifier interface {
	Notify(ctx context.Context, events []model.AlertEvent) error
}

// MultiNotifier fans out to several notifiers. A failing sink is logged and does not stop
// the others.
type MultiNotifier struct {
	sinks  []Notifier
	logger *zap.Logger
}

// NewMultiNotifier skips nil sinks
func NewMultiNotifier(logger *zap.Logger, sinks ...Notifier) *MultiNotifier {
	m := &MultiNotifier{logger: logger.Named("notify")}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiNotifier) Notify(ctx context.Context, events []model.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, s := range m.sinks {
		if err := s.Notify(ctx, events); err != nil {
			m.logger.Warn("notifier failed", zap.String("sink", fmt.Sprintf("%T", s)), zap.Error(err))
		}
	}
	return nil
}

// NATSNotifier publishes every alert to fms.alert.<TYPE> and fms.alert.<TYPE>.<vehicleId>
type NATSNotifier struct {
	nc *nats.Conn
}

// NewNATSNotifier wraps an open connection
func NewNATSNotifier(nc *nats.Conn) *NATSNotifier {
	return &NATSNotifier{nc: nc}
}

// AlertSubject NATS subject for an alert type
func AlertSubject(t model.AlertType) string {
	return "fms.alert." + string(t)
}

func (n *NATSNotifier) Notify(ctx context.Context, events []model.AlertEvent) error {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal alert: %w", err)
		}
		subject := AlertSubject(ev.Type)
		if err := n.nc.Publish(subject, data); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
		// vehicle scoped subject for per-vehicle subscribers
		_ = n.nc.Publish(subject+"."+ev.VehicleID, data)
	}
	return nil
}

// RedisNotifier mirrors the latest alerts into Redis: a capped recent list and the last
// alert per vehicle with a 24h TTL.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier wraps a client
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (r *RedisNotifier) Notify(ctx context.Context, events []model.AlertEvent) error {
	pipe := r.rdb.Pipeline()
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal alert: %w", err)
		}
		pipe.Set(ctx, "fms:alert:vehicle:"+ev.VehicleID, data, vehicleAlertTTL)
		pipe.LPush(ctx, recentAlertsKey, data)
	}
	pipe.LTrim(ctx, recentAlertsKey, 0, recentAlertsKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis mirror: %w", err)
	}
	return nil
}
