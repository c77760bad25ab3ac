// Package metrics exposes Prometheus counters and histograms for the
// reconciliation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts reconciliation runs by final status
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sage",
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Total number of reconciliation runs",
	}, []string{"status"})

	// RunDuration tracks end-to-end run latency
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sage",
		Subsystem: "reconcile",
		Name:      "run_duration_seconds",
		Help:      "Duration of reconciliation runs in seconds",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	// VerdictsTotal counts per-candidate verdicts
	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sage",
		Subsystem: "reconcile",
		Name:      "verdicts_total",
		Help:      "Total number of per-candidate verdicts",
	}, []string{"verdict"})

	// OracleAttemptsTotal counts classification attempts by outcome
	OracleAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sage",
		Subsystem: "oracle",
		Name:      "attempts_total",
		Help:      "Total number of classification attempts",
	}, []string{"outcome"})

	// EmbedCacheTotal counts embedding cache lookups
	EmbedCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sage",
		Subsystem: "embedding",
		Name:      "cache_total",
		Help:      "Total number of embedding cache lookups",
	}, []string{"result"})

	// PrefilterFallbackTotal counts runs that fell back to the full entry set
	PrefilterFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sage",
		Subsystem: "prefilter",
		Name:      "fallback_total",
		Help:      "Total number of runs where similarity prefiltering was skipped",
	})

	// BudgetDeniedTotal counts requests rejected by the daily budget
	BudgetDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sage",
		Subsystem: "budget",
		Name:      "denied_total",
		Help:      "Total number of requests denied by the daily budget",
	})
)

// RecordRun records a completed run and its duration
func RecordRun(status string, duration time.Duration) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(duration.Seconds())
}

// RecordVerdict records a per-candidate verdict
func RecordVerdict(verdict string) {
	VerdictsTotal.WithLabelValues(verdict).Inc()
}

// RecordOracleAttempt records a classification attempt outcome
func RecordOracleAttempt(outcome string) {
	OracleAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordEmbedCache records an embedding cache hit or miss
func RecordEmbedCache(result string) {
	EmbedCacheTotal.WithLabelValues(result).Inc()
}
