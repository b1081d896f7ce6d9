package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/cmd/flota/app/options"
	"github.com/programadoraburrido/gestion-flota/internal/config"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
	"github.com/programadoraburrido/gestion-flota/internal/service"
)

// NewEvaluateCommand evaluates a fleet once and prints the per-vehicle summaries
func NewEvaluateCommand() *cobra.Command {
	opts := options.NewEvaluateOptions()
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate alert summaries for a fleet and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

type evaluatedVehicle struct {
	ID      string             `json:"id"`
	Plate   string             `json:"plate"`
	Name    string             `json:"name"`
	Summary model.AlertSummary `json:"summary"`
}

func runEvaluate(ctx context.Context, opts *options.EvaluateOptions, out io.Writer) error {
	now := time.Now()
	if opts.At != "" {
		at, err := parseDate(opts.At)
		if err != nil {
			return err
		}
		now = at
	}
	clock := func() time.Time { return now }

	intervals, err := config.NewIntervalSource(opts.IntervalsFile, zap.NewNop())
	if err != nil {
		return err
	}
	evaluator := service.NewAlertEvaluator(intervals,
		service.WithClock(clock),
		service.WithInspectionDueDays(opts.DueDays),
	)

	vehicles, err := loadFleet(ctx, opts.FleetFile, clock)
	if err != nil {
		return err
	}

	results := make([]evaluatedVehicle, 0, len(vehicles))
	for i := range vehicles {
		v := &vehicles[i]
		results = append(results, evaluatedVehicle{
			ID:      v.ID,
			Plate:   v.Plate,
			Name:    v.DisplayName(),
			Summary: evaluator.Evaluate(v),
		})
	}

	switch opts.Output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "table", "":
		fmt.Fprintln(out, summaryTable(results))
		return nil
	default:
		return fmt.Errorf("unknown output format %q", opts.Output)
	}
}

func parseDate(s string) (time.Time, error) {
	t, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at: %w", err)
	}
	return t, nil
}

// loadFleet reads vehicles from a JSON file, or seeds the demo fleet at the given clock
func loadFleet(ctx context.Context, path string, clock func() time.Time) ([]model.Vehicle, error) {
	if path == "" {
		store := repository.NewStore(repository.WithClock(clock))
		if err := store.Seed(ctx, service.HashPassword); err != nil {
			return nil, err
		}
		return store.ListVehicles(ctx), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet file: %w", err)
	}
	var vehicles []model.Vehicle
	if err := json.Unmarshal(data, &vehicles); err != nil {
		return nil, fmt.Errorf("decode fleet file: %w", err)
	}
	return vehicles, nil
}

func summaryTable(results []evaluatedVehicle) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("ID", "PLATE", "VEHICLE", "SEVERITY", "ITV DAYS", "OIL KM LEFT", "COST", "FLAGS")
	for _, r := range results {
		s := r.Summary
		table.AddRow(r.ID, r.Plate, r.Name, s.Severity,
			optionalInt(s.DaysUntilInspection), optionalInt(s.KmRemainingOil),
			fmt.Sprintf("%.2f", s.TotalMaintenanceCost), flags(s))
	}
	return table
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func flags(s model.AlertSummary) string {
	var out []string
	if s.CriticalDTC {
		out = append(out, "dtc")
	}
	if s.InspectionDue {
		out = append(out, "itv")
	}
	if s.OilDue {
		out = append(out, "oil")
	}
	if s.HighCostAlert {
		out = append(out, "cost")
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ",")
}
