package logger

import (
	"github.com/sirupsen/logrus"
)

// SignalLogger logs per-tick engine decisions.
type SignalLogger struct {
	*logrus.Entry
}

// NewSignalLogger creates a new signal logger.
func NewSignalLogger(baseLogger *logrus.Logger) *SignalLogger {
	return &SignalLogger{
		Entry: baseLogger.WithField("component", "signal"),
	}
}

// LogRuleBlocked logs a strategy gated out for the current game phase.
func (sl *SignalLogger) LogRuleBlocked(gameID, strategyID, strategyName, rule, reason string) {
	sl.WithFields(logrus.Fields{
		"game_id":       gameID,
		"strategy_id":   strategyID,
		"strategy_name": strategyName,
		"rule":          rule,
		"reason":        reason,
	}).Debug("Rule gate blocked strategy")
}

// LogTriggerFired logs a trigger whose conditions all matched, with the values used.
func (sl *SignalLogger) LogTriggerFired(gameID, strategyID, triggerID, role string, actual map[string]interface{}) {
	sl.WithFields(logrus.Fields{
		"game_id":     gameID,
		"strategy_id": strategyID,
		"trigger_id":  triggerID,
		"role":        role,
		"actual":      actual,
	}).Info("Trigger fired")
}

// LogDuplicateEntry logs an entry match ignored because a signal is already open.
func (sl *SignalLogger) LogDuplicateEntry(gameID, strategyID string) {
	sl.WithFields(logrus.Fields{
		"game_id":     gameID,
		"strategy_id": strategyID,
	}).Debug("Entry trigger ignored for open signal")
}

// LogTransition logs a signal lifecycle transition.
func (sl *SignalLogger) LogTransition(signalID, gameID, strategyName, from, to, reason string) {
	if from == "" {
		from = "none"
	}
	sl.WithFields(logrus.Fields{
		"signal_id":     signalID,
		"game_id":       gameID,
		"strategy_name": strategyName,
		"from":          from,
		"to":            to,
		"reason":        reason,
	}).Info("Signal transition")
}

// LogOutcome logs a scored signal.
func (sl *SignalLogger) LogOutcome(signalID, gameID, strategyName, outcome, summary string, finalHome, finalAway int) {
	sl.WithFields(logrus.Fields{
		"signal_id":     signalID,
		"game_id":       gameID,
		"strategy_name": strategyName,
		"outcome":       outcome,
		"summary":       summary,
		"final_home":    finalHome,
		"final_away":    finalAway,
	}).Info("Signal resolved")
}
