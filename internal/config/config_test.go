package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"API_PORT", "TICK_INTERVAL", "INSPECTION_DUE_DAYS", "REDIS_URL", "NATS_URL"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.APIPort != 3000 {
		t.Errorf("APIPort = %d", cfg.APIPort)
	}
	if cfg.Monitor.TickInterval != 3*time.Second || cfg.Monitor.InspectionDueDays != 60 {
		t.Errorf("monitor = %+v", cfg.Monitor)
	}
	if cfg.RedisURL != "" || cfg.NATSURL != "" {
		t.Errorf("optional backends should default off: %q %q", cfg.RedisURL, cfg.NATSURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_PORT", "8080")
	t.Setenv("TICK_INTERVAL", "500ms")
	t.Setenv("JITTER_DEGREES", "0.001")
	t.Setenv("SIMULATE_MOVEMENT", "false")
	t.Setenv("ALERT_FEED_CAPACITY", "not-a-number")

	cfg := Load()
	if cfg.APIPort != 8080 {
		t.Errorf("APIPort = %d", cfg.APIPort)
	}
	if cfg.Monitor.TickInterval != 500*time.Millisecond {
		t.Errorf("TickInterval = %v", cfg.Monitor.TickInterval)
	}
	if cfg.Monitor.JitterDegrees != 0.001 || cfg.Monitor.SimulateMovement {
		t.Errorf("monitor = %+v", cfg.Monitor)
	}
	if cfg.Monitor.AlertFeedCapacity != 200 {
		t.Errorf("bad int should fall back to default, got %d", cfg.Monitor.AlertFeedCapacity)
	}
}

func TestRuleForPath(t *testing.T) {
	cfg := &Config{RateLimit: loadRateLimitConfig()}
	tests := []struct {
		path  string
		limit int
	}{
		{"/api/v1/auth/login", 5},
		{"/api/v1/auth/register", 5},
		{"/api/v1/vehicles", 300},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := cfg.RuleForPath(tt.path).Limit; got != tt.limit {
				t.Errorf("limit = %d, want %d", got, tt.limit)
			}
		})
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIntervalSourceDefaults(t *testing.T) {
	s, err := NewIntervalSource("", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	iv, ok := s.Intervals().Lookup("Ford", "Transit")
	if !ok || iv.OilChangeKm != 20000 {
		t.Errorf("ford transit = %+v, %v", iv, ok)
	}
}

func TestIntervalSourceFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intervals.yaml")
	writeFile(t, path, `
intervals:
  ford/transit:
    oil_change_km: 18000
    timing_belt_km: 150000
  seat/leon:
    oil_change_km: 15000
  broken/entry:
    oil_change_km: 0
`)

	s, err := NewIntervalSource(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	var reloaded model.IntervalTable
	s.OnChange(func(tbl model.IntervalTable) { reloaded = tbl })

	table := s.Intervals()
	tests := []struct {
		brand, model string
		oil          int
		ok           bool
	}{
		{"FORD", "TRANSIT", 18000, true},
		{"Seat", "Leon", 15000, true},
		{"TESLA", "MODEL 3", 40000, true},
		{"BROKEN", "ENTRY", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.brand+" "+tt.model, func(t *testing.T) {
			iv, ok := table.Lookup(tt.brand, tt.model)
			if ok != tt.ok || iv.OilChangeKm != tt.oil {
				t.Errorf("lookup = %+v, %v", iv, ok)
			}
		})
	}

	writeFile(t, path, `
intervals:
  ford/transit:
    oil_change_km: 10000
`)
	if err := s.Reload(); err != nil {
		t.Fatal(err)
	}
	if iv, _ := s.Intervals().Lookup("FORD", "TRANSIT"); iv.OilChangeKm != 10000 {
		t.Errorf("after reload oil = %d", iv.OilChangeKm)
	}
	if _, ok := s.Intervals().Lookup("SEAT", "LEON"); ok {
		t.Error("entry removed from the file survived the reload")
	}
	if reloaded == nil {
		t.Error("OnChange not called")
	}
}

func TestIntervalSourceMissingFile(t *testing.T) {
	if _, err := NewIntervalSource(filepath.Join(t.TempDir(), "nope.yaml"), zap.NewNop()); err == nil {
		t.Error("expected error for missing file")
	}
}
