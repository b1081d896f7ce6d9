package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AlertsEmitted alerts accepted into the feed, by type
	AlertsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flota_alerts_emitted_total",
			Help: "Total number of alerts accepted into the alert feed.",
		},
		[]string{"type"},
	)

	// MonitorTicks completed monitor ticks
	MonitorTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flota_monitor_ticks_total",
			Help: "Total number of fleet monitor ticks.",
		},
	)

	// TickDuration time spent evaluating one tick
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flota_monitor_tick_duration_seconds",
			Help:    "Duration of one fleet monitor tick.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// FeedSize alerts currently held
	FeedSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flota_alert_feed_size",
			Help: "Number of alerts currently held in the feed.",
		},
	)

	// VehicleSeverity latest severity score per vehicle
	VehicleSeverity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flota_vehicle_severity",
			Help: "Latest alert severity score per vehicle.",
		},
		[]string{"vehicle_id"},
	)

	// HTTPRequests API requests by route and status class
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flota_http_requests_total",
			Help: "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(AlertsEmitted)
	prometheus.MustRegister(MonitorTicks)
	prometheus.MustRegister(TickDuration)
	prometheus.MustRegister(FeedSize)
	prometheus.MustRegister(VehicleSeverity)
	prometheus.MustRegister(HTTPRequests)
}
