// Package metrics provides centralized Prometheus metrics registry for the signal engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hoop_signals"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	SnapshotsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_processed_total",
		Help:      "Total number of game snapshots processed by game status",
	}, []string{"status"})
	SignalTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signal_transitions_total",
		Help:      "Total number of signal transitions by target state",
	}, []string{"from", "to"})
	SignalOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signal_outcomes_total",
		Help:      "Total number of resolved signals by outcome",
	}, []string{"outcome"})
	DuplicateEntriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicate_entries_total",
		Help:      "Total number of entry matches ignored because a signal was already open",
	})
	RuleBlocksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rule_blocks_total",
		Help:      "Total number of strategy evaluations blocked by a rule",
	}, []string{"rule"})
	PersistenceErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persistence_errors_total",
		Help:      "Total number of failed persistence operations",
	}, []string{"operation"})
	AlertsSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_sent_total",
		Help:      "Total number of outbound alerts by result",
	}, []string{"result"})
)

// Gauge metrics
var (
	TrackedGames = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_games",
		Help:      "Number of games currently tracked",
	})
	OpenSignals = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_signals",
		Help:      "Number of non-terminal signals by state",
	}, []string{"status"})
	ActiveStrategies = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_strategies",
		Help:      "Number of currently active strategies",
	})
	InertStrategies = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inert_strategies",
		Help:      "Number of strategies disabled by configuration errors",
	})
)

// Histogram metrics
var (
	SnapshotProcessingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "snapshot_processing_duration_seconds",
		Help:      "Duration of processing one snapshot across all strategies",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})
	CatalogRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "catalog_refresh_duration_seconds",
		Help:      "Duration of strategy catalog refreshes in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	AlertLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "alert_latency_seconds",
		Help:      "Latency of outbound alert delivery in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(SnapshotsProcessedTotal)
		registry.MustRegister(SignalTransitionsTotal)
		registry.MustRegister(SignalOutcomesTotal)
		registry.MustRegister(DuplicateEntriesTotal)
		registry.MustRegister(RuleBlocksTotal)
		registry.MustRegister(PersistenceErrorsTotal)
		registry.MustRegister(AlertsSentTotal)

		// Register gauge metrics
		registry.MustRegister(TrackedGames)
		registry.MustRegister(OpenSignals)
		registry.MustRegister(ActiveStrategies)
		registry.MustRegister(InertStrategies)

		// Register histogram metrics
		registry.MustRegister(SnapshotProcessingDuration)
		registry.MustRegister(CatalogRefreshDuration)
		registry.MustRegister(AlertLatency)

		// Register strategy metrics
		registry.MustRegister(StrategyTriggerFiresTotal)
		registry.MustRegister(StrategySignalsTotal)
		registry.MustRegister(StrategyCacheRequestsTotal)

		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordSnapshot records a processed snapshot and its duration.
func RecordSnapshot(status string, durationSeconds float64) {
	SnapshotsProcessedTotal.WithLabelValues(status).Inc()
	SnapshotProcessingDuration.Observe(durationSeconds)
}

// RecordTransition records a signal transition. An empty from marks creation.
func RecordTransition(from, to string) {
	if from == "" {
		from = "none"
	}
	SignalTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordOutcome records a resolved signal.
func RecordOutcome(outcome string) {
	SignalOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordDuplicateEntry records an ignored entry match.
func RecordDuplicateEntry() {
	DuplicateEntriesTotal.Inc()
}

// RecordRuleBlock records a rule gate failure.
func RecordRuleBlock(rule string) {
	RuleBlocksTotal.WithLabelValues(rule).Inc()
}

// RecordPersistenceError records a failed repository call.
func RecordPersistenceError(operation string) {
	PersistenceErrorsTotal.WithLabelValues(operation).Inc()
}

// RecordAlert records an outbound alert attempt and its latency.
func RecordAlert(success bool, durationSeconds float64) {
	result := "success"
	if !success {
		result = "failure"
	}
	AlertsSentTotal.WithLabelValues(result).Inc()
	AlertLatency.Observe(durationSeconds)
}

// RecordCatalogRefresh records a catalog reload.
func RecordCatalogRefresh(active, inert int, durationSeconds float64) {
	ActiveStrategies.Set(float64(active))
	InertStrategies.Set(float64(inert))
	CatalogRefreshDuration.Observe(durationSeconds)
}

// UpdateTrackedGames updates the tracked games gauge.
func UpdateTrackedGames(count int) {
	TrackedGames.Set(float64(count))
}

// UpdateOpenSignals replaces the open signal gauges with counts by status.
func UpdateOpenSignals(counts map[string]int) {
	OpenSignals.Reset()
	for status, n := range counts {
		OpenSignals.WithLabelValues(status).Set(float64(n))
	}
}
