// Package metrics defines strategy-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Strategy-specific counter vectors
var (
	StrategyTriggerFiresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "strategy_trigger_fires_total",
		Help:      "Total number of trigger fires by strategy and role",
	}, []string{"strategy_id", "strategy_name", "role"})

	StrategySignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "strategy_signals_total",
		Help:      "Total number of signals opened per strategy",
	}, []string{"strategy_id", "strategy_name"})

	StrategyCacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "strategy_cache_requests_total",
		Help:      "Strategy catalog cache lookups by result",
	}, []string{"result"})
)

// RecordTriggerFire records a fired trigger.
func RecordTriggerFire(strategyID, strategyName, role string) {
	StrategyTriggerFiresTotal.WithLabelValues(strategyID, strategyName, role).Inc()
}

// RecordStrategySignal records a signal opened by a strategy.
func RecordStrategySignal(strategyID, strategyName string) {
	StrategySignalsTotal.WithLabelValues(strategyID, strategyName).Inc()
}

// RecordCacheHit records a catalog cache hit.
func RecordCacheHit() {
	StrategyCacheRequestsTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a catalog cache miss.
func RecordCacheMiss() {
	StrategyCacheRequestsTotal.WithLabelValues("miss").Inc()
}
