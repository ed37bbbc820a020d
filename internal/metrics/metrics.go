package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command metrics
var (
	// CommandsTotal tracks commands by name and outcome
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of commands by name and outcome",
		},
		[]string{"command", "status"},
	)

	// CommandDuration tracks command execution duration
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_command_duration_seconds",
			Help:    "Command execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"command"},
	)
)

// Group service metrics
var (
	// GroupRequestsTotal tracks calls to the external group service
	GroupRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "group_api_requests_total",
			Help: "Total requests to the group service by operation and status code",
		},
		[]string{"op", "status"},
	)

	// GroupRequestDuration tracks group service request duration
	GroupRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "group_api_request_duration_seconds",
			Help:    "Group service request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"op"},
	)
)

// Sweep metrics
var (
	// SweepsTotal tracks bulk reset sweeps by final status
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_sweeps_total",
			Help: "Total bulk rank reset sweeps by final status",
		},
		[]string{"status"},
	)

	// SweepScanned tracks memberships scanned by the running sweep
	SweepScanned = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rank_sweep_scanned",
			Help: "Memberships scanned by the most recent sweep",
		},
	)

	// SweepChanged tracks memberships changed by the running sweep
	SweepChanged = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rank_sweep_changed",
			Help: "Memberships changed by the most recent sweep",
		},
	)

	// SweepFailed tracks per-item failures in the running sweep
	SweepFailed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rank_sweep_failed",
			Help: "Per-item failures in the most recent sweep",
		},
	)
)
