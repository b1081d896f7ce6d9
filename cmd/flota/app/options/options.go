package options

import (
	"github.com/spf13/pflag"

	"github.com/programadoraburrido/gestion-flota/pkg/log"
)

// ServeOptions flags of the serve command. Everything else comes from the environment.
type ServeOptions struct {
	IntervalsFile  string
	WatchIntervals bool
	LogOptions     *log.Options
}

func NewServeOptions() *ServeOptions {
	return &ServeOptions{
		WatchIntervals: true,
		LogOptions:     log.NewOptions(),
	}
}

func (o *ServeOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.IntervalsFile, "intervals", o.IntervalsFile, "Maintenance interval file (YAML/JSON); overrides INTERVALS_FILE.")
	fs.BoolVar(&o.WatchIntervals, "watch-intervals", o.WatchIntervals, "Reload the interval file when it changes.")
	o.LogOptions.AddFlags(fs)
}

// EvaluateOptions flags of the evaluate command
type EvaluateOptions struct {
	FleetFile     string
	IntervalsFile string
	At            string
	Output        string
	DueDays       int
}

func NewEvaluateOptions() *EvaluateOptions {
	return &EvaluateOptions{
		Output:  "table",
		DueDays: 60,
	}
}

func (o *EvaluateOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.FleetFile, "fleet", o.FleetFile, "JSON file with an array of vehicles; the demo fleet is used when empty.")
	fs.StringVar(&o.IntervalsFile, "intervals", o.IntervalsFile, "Maintenance interval file (YAML/JSON).")
	fs.StringVar(&o.At, "at", o.At, "Evaluate as of this date (YYYY-MM-DD or RFC3339) instead of now.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Output format: table or json.")
	fs.IntVar(&o.DueDays, "inspection-due-days", o.DueDays, "Days before the inspection date at which it counts as due.")
}
