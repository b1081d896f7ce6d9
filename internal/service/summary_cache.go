package service

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

// SummaryCache keeps the latest alert summary per vehicle. The monitor refreshes it every
// tick; writes through the API invalidate the affected vehicle.
//
// Every invalidation advances an epoch. A summary computed from a snapshot taken at epoch E
// is only stored if the vehicle has not been invalidated since E.
type SummaryCache struct {
	cache     *cache.Cache
	evaluator *AlertEvaluator

	mu      sync.Mutex
	epoch   uint64
	touched map[string]uint64
	flushed uint64
}

// NewSummaryCache creates a cache whose entries live for ttl
func NewSummaryCache(evaluator *AlertEvaluator, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SummaryCache{
		cache:     cache.New(ttl, 2*ttl),
		evaluator: evaluator,
		touched:   make(map[string]uint64),
	}
}

// Summary returns the cached summary or evaluates and stores a fresh one
func (c *SummaryCache) Summary(v *model.Vehicle) model.AlertSummary {
	if s, found := c.cache.Get(v.ID); found {
		return s.(model.AlertSummary)
	}
	s := c.evaluator.Evaluate(v)
	c.cache.SetDefault(v.ID, s)
	return s
}

// Epoch returns the current invalidation epoch. Read it before taking a snapshot.
func (c *SummaryCache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// PutSince stores a summary computed from a snapshot taken at epoch since. It reports false
// and stores nothing when the vehicle was invalidated after that.
func (c *SummaryCache) PutSince(vehicleID string, s model.AlertSummary, since uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flushed > since || c.touched[vehicleID] > since {
		return false
	}
	c.cache.SetDefault(vehicleID, s)
	return true
}

// Invalidate drops one vehicle
func (c *SummaryCache) Invalidate(vehicleID string) {
	c.mu.Lock()
	c.epoch++
	c.touched[vehicleID] = c.epoch
	c.mu.Unlock()
	c.cache.Delete(vehicleID)
}

// Flush drops everything, e.g. after the interval table changed
func (c *SummaryCache) Flush() {
	c.mu.Lock()
	c.epoch++
	c.flushed = c.epoch
	c.touched = make(map[string]uint64)
	c.mu.Unlock()
	c.cache.Flush()
}
