package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

const (
	// InspectionDueSoonDays is the single due-soon window for the next inspection.
	InspectionDueSoonDays = 60
	// OilDueWithinKm flags the oil change when the unclamped remaining distance drops to this.
	OilDueWithinKm = 3000
	// HighCostThreshold cumulative maintenance spend that raises the high-cost flag.
	HighCostThreshold = 5000.0

	weightCriticalDTC   = 3
	weightInspectionDue = 2
	weightOilDue        = 1
	weightHighCost      = 1

	// severities of the condition alerts derived from a summary
	severityDTCAlert        = 3
	severityInspectionAlert = 2
	severityOilAlert        = 1
	severityHighCostAlert   = 1
)

// IntervalProvider supplies the current maintenance-interval table.
type IntervalProvider interface {
	Intervals() model.IntervalTable
}

// StaticIntervals is a fixed table
type StaticIntervals model.IntervalTable

func (s StaticIntervals) Intervals() model.IntervalTable {
	return model.IntervalTable(s)
}

// AlertEvaluator scores a single vehicle. It holds no per-vehicle state and is safe for
// concurrent use.
type AlertEvaluator struct {
	intervals IntervalProvider
	now       func() time.Time
	dueDays   int
}

// EvaluatorOption configures an AlertEvaluator
type EvaluatorOption func(*AlertEvaluator)

// WithClock overrides the evaluator's clock
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *AlertEvaluator) { e.now = now }
}

// WithInspectionDueDays overrides InspectionDueSoonDays
func WithInspectionDueDays(days int) EvaluatorOption {
	return func(e *AlertEvaluator) {
		if days > 0 {
			e.dueDays = days
		}
	}
}

// NewAlertEvaluator creates a new evaluator
func NewAlertEvaluator(intervals IntervalProvider, opts ...EvaluatorOption) *AlertEvaluator {
	if intervals == nil {
		intervals = StaticIntervals(model.DefaultIntervals())
	}
	e := &AlertEvaluator{
		intervals: intervals,
		now:       time.Now,
		dueDays:   InspectionDueSoonDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InspectionDueDays the due-soon window in effect
func (e *AlertEvaluator) InspectionDueDays() int {
	return e.dueDays
}

// Now the evaluator's current time
func (e *AlertEvaluator) Now() time.Time {
	return e.now()
}

// Evaluate computes the alert summary of one vehicle. Missing optional data never fails
// the evaluation; it just yields "not due".
func (e *AlertEvaluator) Evaluate(v *model.Vehicle) model.AlertSummary {
	var s model.AlertSummary
	if v == nil {
		return s
	}

	s.CriticalDTC = hasCriticalDTC(v.Errors)

	if days, ok := e.DaysUntil(v.NextInspectionDate); ok {
		s.DaysUntilInspection = &days
		s.InspectionDue = days <= e.dueDays
	}

	if remaining, ok := e.oilRemaining(v); ok {
		clamped := remaining
		if clamped < 0 {
			clamped = 0
		}
		s.KmRemainingOil = &clamped
		s.OilDue = remaining <= OilDueWithinKm
	}

	for _, r := range v.MaintenanceHistory {
		s.TotalMaintenanceCost += r.Cost
	}
	s.HighCostAlert = s.TotalMaintenanceCost >= HighCostThreshold

	s.Severity = weight(s.CriticalDTC, weightCriticalDTC) +
		weight(s.InspectionDue, weightInspectionDue) +
		weight(s.OilDue, weightOilDue) +
		weight(s.HighCostAlert, weightHighCost)
	return s
}

// DaysUntil returns ceil((due - now) / 24h). Negative means overdue.
func (e *AlertEvaluator) DaysUntil(due *time.Time) (int, bool) {
	if due == nil || due.IsZero() {
		return 0, false
	}
	hours := due.Sub(e.now()).Hours()
	return int(math.Ceil(hours / 24)), true
}

// oilRemaining returns the unclamped distance left until the next oil change.
func (e *AlertEvaluator) oilRemaining(v *model.Vehicle) (int, bool) {
	last, ok := LastOilChange(v.MaintenanceHistory)
	if !ok {
		return 0, false
	}
	iv, ok := e.intervals.Intervals().Lookup(v.Make, v.Model)
	if !ok || iv.OilChangeKm <= 0 {
		return 0, false
	}
	return last.Km + iv.OilChangeKm - v.CurrentOdometer, true
}

// LastOilChange picks the oil change record with the highest odometer reading.
// Records entered out of date order still resolve to the furthest service; the first
// record wins a tie.
func LastOilChange(records []model.MaintenanceRecord) (model.MaintenanceRecord, bool) {
	var (
		best  model.MaintenanceRecord
		found bool
	)
	for _, r := range records {
		if !strings.EqualFold(r.Type, model.ServiceTypeOilChange) {
			continue
		}
		if !found || r.Km > best.Km {
			best = r
			found = true
		}
	}
	return best, found
}

// ConditionAlerts derives the standing-condition alert events of a vehicle from its summary.
// Events carry no ID; the feed assigns one when it accepts them.
func (e *AlertEvaluator) ConditionAlerts(v *model.Vehicle, s model.AlertSummary) []model.AlertEvent {
	now := e.now()
	name := fmt.Sprintf("%s (%s)", v.DisplayName(), v.Plate)
	var events []model.AlertEvent

	if s.CriticalDTC {
		codes := make([]string, 0, len(v.Errors))
		for _, d := range v.Errors {
			if d.Severity >= model.MaxSeverity {
				codes = append(codes, d.Code)
			}
		}
		events = append(events, model.AlertEvent{
			VehicleID: v.ID,
			Type:      model.AlertTypeDTC,
			Severity:  severityDTCAlert,
			Message:   fmt.Sprintf("Critical DTC %s on %s", strings.Join(codes, ", "), name),
			Timestamp: now,
		})
	}
	if s.InspectionDue && s.DaysUntilInspection != nil {
		msg := fmt.Sprintf("Inspection due in %d days for %s", *s.DaysUntilInspection, name)
		if *s.DaysUntilInspection < 0 {
			msg = fmt.Sprintf("Inspection overdue by %d days for %s", -*s.DaysUntilInspection, name)
		}
		events = append(events, model.AlertEvent{
			VehicleID: v.ID,
			Type:      model.AlertTypeInspectionDue,
			Severity:  severityInspectionAlert,
			Message:   msg,
			Timestamp: now,
		})
	}
	if s.OilDue && s.KmRemainingOil != nil {
		events = append(events, model.AlertEvent{
			VehicleID: v.ID,
			Type:      model.AlertTypeOilDue,
			Severity:  severityOilAlert,
			Message:   fmt.Sprintf("Oil change due within %d km for %s", *s.KmRemainingOil, name),
			Timestamp: now,
		})
	}
	if s.HighCostAlert {
		events = append(events, model.AlertEvent{
			VehicleID: v.ID,
			Type:      model.AlertTypeHighCost,
			Severity:  severityHighCostAlert,
			Message:   fmt.Sprintf("Maintenance spend %.2f reached the %.0f threshold for %s", s.TotalMaintenanceCost, HighCostThreshold, name),
			Timestamp: now,
		})
	}
	return events
}

func hasCriticalDTC(codes []model.DiagnosticCode) bool {
	for _, d := range codes {
		if d.Severity >= model.MaxSeverity {
			return true
		}
	}
	return false
}

func weight(flag bool, w int) int {
	if flag {
		return w
	}
	return 0
}
