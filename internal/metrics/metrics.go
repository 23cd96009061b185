package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API client metrics
var (
	// APIRequestsTotal counts backend calls by route template and outcome
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_api_requests_total",
			Help: "Total number of backend API requests issued by the dashboard",
		},
		[]string{"route", "method", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_api_request_duration_seconds",
			Help:    "Duration of backend API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Poll cycle metrics
var (
	PollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_poll_cycles_total",
			Help: "Total number of view refresh cycles",
		},
		[]string{"view", "status"},
	)

	// LastCommit records when each view last replaced its state
	LastCommit = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_view_last_commit_timestamp_seconds",
			Help: "Unix timestamp of the last successful state commit per view",
		},
		[]string{"view"},
	)
)

// Derived values
var (
	TotalPowerWatts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_total_power_watts",
			Help: "Sum of instantaneous power across live devices",
		},
	)

	ActiveAnomalies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_active_anomalies",
			Help: "Number of live devices above their threshold",
		},
	)

	AlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_alerts_published_total",
			Help: "Anomaly alerts handed to a sink",
		},
		[]string{"sink", "status"},
	)
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAPIRequest records one backend call.
func RecordAPIRequest(route, method string, duration time.Duration, err error) {
	APIRequestsTotal.WithLabelValues(route, method, outcome(err)).Inc()
	APIRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordPollCycle records the end of a refresh cycle for a view.
func RecordPollCycle(view string, err error) {
	PollCyclesTotal.WithLabelValues(view, outcome(err)).Inc()
	if err == nil {
		LastCommit.WithLabelValues(view).SetToCurrentTime()
	}
}

func RecordAlert(sink string, err error) {
	AlertsPublished.WithLabelValues(sink, outcome(err)).Inc()
}

// UpdateDashboardTotals publishes the dashboard's derived aggregates.
func UpdateDashboardTotals(totalPower float64, anomalies int) {
	TotalPowerWatts.Set(totalPower)
	ActiveAnomalies.Set(float64(anomalies))
}
