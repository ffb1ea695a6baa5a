// Package logger provides strategy catalog logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// StrategyLogger provides dedicated logging for the strategy catalog.
type StrategyLogger struct {
	*logrus.Entry
}

// NewStrategyLogger creates a new strategy logger.
func NewStrategyLogger(baseLogger *logrus.Logger) *StrategyLogger {
	return &StrategyLogger{
		Entry: baseLogger.WithField("component", "strategy"),
	}
}

// LogStrategyCompiled logs a strategy loaded into the catalog.
func (sl *StrategyLogger) LogStrategyCompiled(strategyID, strategyName string, twoStage bool, entryTriggers, closeTriggers, rules int) {
	sl.WithFields(logrus.Fields{
		"strategy_id":    strategyID,
		"strategy_name":  strategyName,
		"two_stage":      twoStage,
		"entry_triggers": entryTriggers,
		"close_triggers": closeTriggers,
		"rules":          rules,
	}).Debug("Strategy compiled")
}

// LogConfigWarning logs a configuration problem found while compiling a strategy.
func (sl *StrategyLogger) LogConfigWarning(strategyID, strategyName, warning string, inert bool) {
	sl.WithFields(logrus.Fields{
		"strategy_id":   strategyID,
		"strategy_name": strategyName,
		"warning":       warning,
		"inert":         inert,
	}).Warn("Strategy configuration warning")
}

// LogCatalogRefresh logs a completed catalog reload.
func (sl *StrategyLogger) LogCatalogRefresh(total, active, inert int, durationMs float64) {
	sl.WithFields(logrus.Fields{
		"strategies_total":  total,
		"strategies_active": active,
		"strategies_inert":  inert,
		"duration_ms":       durationMs,
	}).Info("Strategy catalog refreshed")
}

// LogStrategyActivation logs a strategy becoming active between refreshes.
func (sl *StrategyLogger) LogStrategyActivation(strategyID, strategyName, reason string) {
	sl.WithFields(logrus.Fields{
		"strategy_id":   strategyID,
		"strategy_name": strategyName,
		"event_type":    "activation",
		"reason":        reason,
	}).Info("Strategy activated")
}

// LogStrategyDeactivation logs a strategy going inactive or disappearing.
func (sl *StrategyLogger) LogStrategyDeactivation(strategyID, strategyName, reason string) {
	sl.WithFields(logrus.Fields{
		"strategy_id":   strategyID,
		"strategy_name": strategyName,
		"event_type":    "deactivation",
		"reason":        reason,
	}).Info("Strategy deactivated")
}
