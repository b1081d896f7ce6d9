package service

import (
	"testing"
	"time"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

func TestSummaryCacheSkipsStalePut(t *testing.T) {
	v := &model.Vehicle{
		ID: "v_1", Make: "Ford", Model: "Transit",
		Errors: []model.DiagnosticCode{{Code: "P0171", Severity: model.SeverityCritical}},
	}
	stale := model.AlertSummary{Severity: 99}

	tests := []struct {
		name       string
		invalidate func(c *SummaryCache)
		stored     bool
	}{
		{"no write since snapshot", func(*SummaryCache) {}, true},
		{"other vehicle written", func(c *SummaryCache) { c.Invalidate("v_2") }, true},
		{"vehicle written", func(c *SummaryCache) { c.Invalidate("v_1") }, false},
		{"table reloaded", func(c *SummaryCache) { c.Flush() }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSummaryCache(newTestEvaluator(model.DefaultIntervals()), time.Minute)
			since := c.Epoch()
			tt.invalidate(c)

			if got := c.PutSince(v.ID, stale, since); got != tt.stored {
				t.Fatalf("PutSince = %v, want %v", got, tt.stored)
			}
			sev := c.Summary(v).Severity
			if tt.stored && sev != 99 {
				t.Errorf("severity = %d, want the stored summary", sev)
			}
			if !tt.stored && sev != 3 {
				t.Errorf("severity = %d, want a fresh evaluation", sev)
			}
		})
	}
}

func TestSummaryCachePutAfterInvalidate(t *testing.T) {
	c := NewSummaryCache(newTestEvaluator(model.DefaultIntervals()), time.Minute)
	c.Invalidate("v_1")
	since := c.Epoch()
	if !c.PutSince("v_1", model.AlertSummary{Severity: 2}, since) {
		t.Error("snapshot taken after the write was rejected")
	}
}
