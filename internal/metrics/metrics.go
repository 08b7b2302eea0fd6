// Package metrics holds the Prometheus instrumentation of the decision engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hedge_guard"

// TickDuration is the wall time of one full registry scan.
var TickDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "tick_duration_ms",
		Help:      "Time to evaluate every monitored session in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	},
)

// SessionsEvaluated counts per-session evaluations by outcome.
var SessionsEvaluated = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "session_evaluations_total",
		Help:      "Per-session tick outcomes",
	},
	[]string{"outcome"}, // evaluated, locked, processing, no_price, error, panic
)

// Decisions counts rule firings that produced an action.
var Decisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "decisions_total",
		Help:      "Rule firings by rule and whether the cooldown held them back",
	},
	[]string{"rule", "action", "blocked"},
)

// GatewayErrors counts failed gateway submissions.
var GatewayErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "gateway_errors_total",
		Help:      "Failed open or close submissions by rule",
	},
	[]string{"rule"},
)

// MonitoredSessions is the current registry size.
var MonitoredSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "sessions",
		Help:      "Sessions currently monitored",
	},
)

// SweptBaselines counts ephemeral tracking baselines dropped on expiry.
var SweptBaselines = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "swept_baselines_total",
		Help:      "Extra-close and follow-up baselines expired without triggering",
	},
)
