// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging for signal state.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogSignalStateChange logs a signal state change.
func (al *AuditLogger) LogSignalStateChange(signalID, strategyID, gameID, oldState, newState, reason string, at time.Time) {
	al.WithFields(logrus.Fields{
		"signal_id":   signalID,
		"strategy_id": strategyID,
		"game_id":     gameID,
		"old_state":   oldState,
		"new_state":   newState,
		"reason":      reason,
		"timestamp":   at.Unix(),
	}).Info("Signal state changed")
}

// LogBetTaken logs the moment a signal commits to a bet.
func (al *AuditLogger) LogBetTaken(signalID, strategyID, gameID, oddsType, betSide string, line *float64, at time.Time) {
	fields := logrus.Fields{
		"signal_id":   signalID,
		"strategy_id": strategyID,
		"game_id":     gameID,
		"odds_type":   oddsType,
		"bet_side":    betSide,
		"timestamp":   at.Unix(),
	}
	if line != nil {
		fields["line"] = *line
	}
	al.WithFields(fields).Info("Bet recorded")
}

// LogAdministrativeClose logs a signal closed outside the normal lifecycle.
func (al *AuditLogger) LogAdministrativeClose(signalID, strategyID, gameID, note string) {
	al.WithFields(logrus.Fields{
		"signal_id":   signalID,
		"strategy_id": strategyID,
		"game_id":     gameID,
		"note":        note,
	}).Warn("Signal closed administratively")
}

// LogGameRemoved logs a game leaving active tracking.
func (al *AuditLogger) LogGameRemoved(gameID, reason string, signalsFinalized int) {
	al.WithFields(logrus.Fields{
		"game_id":           gameID,
		"reason":            reason,
		"signals_finalized": signalsFinalized,
	}).Info("Game removed from tracking")
}

// LogEmergencyShutdown logs shutdown with the state of open signals.
func (al *AuditLogger) LogEmergencyShutdown(reason string, systemState map[string]interface{}) {
	al.WithFields(logrus.Fields{
		"reason":       reason,
		"system_state": systemState,
	}).Error("Emergency shutdown initiated")
}
