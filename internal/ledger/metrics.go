package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics holds the Prometheus metrics for the posting engine.
type EngineMetrics struct {
	RunsTotal       prometheus.Counter
	PostingsTotal   *prometheus.CounterVec
	LateFeesTotal   *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	LastRunUnixtime prometheus.Gauge
}

// NewEngineMetrics initializes and registers the engine metrics.
func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		RunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "manage_api",
			Subsystem: "ledger",
			Name:      "engine_runs_total",
			Help:      "Total number of posting engine runs.",
		}),
		PostingsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "manage_api",
			Subsystem: "ledger",
			Name:      "recurring_postings_total",
			Help:      "Recurring charge postings by outcome.",
		}, []string{"outcome"}), // outcome: posted, skipped, failed
		LateFeesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "manage_api",
			Subsystem: "ledger",
			Name:      "late_fee_postings_total",
			Help:      "Late fee postings by outcome.",
		}, []string{"outcome"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "manage_api",
			Subsystem: "ledger",
			Name:      "engine_run_duration_seconds",
			Help:      "Wall-clock duration of a posting engine run.",
		}),
		LastRunUnixtime: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "manage_api",
			Subsystem: "ledger",
			Name:      "engine_last_run_timestamp_seconds",
			Help:      "Unix timestamp of the most recent engine run.",
		}),
	}
}
