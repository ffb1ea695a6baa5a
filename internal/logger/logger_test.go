package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	log := New(Options{Level: "debug", Format: "json", Output: &bytes.Buffer{}})
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = New(Options{Level: "not-a-level", Output: &bytes.Buffer{}})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestNewLoggerProductionDefaultsToJSON(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	log := New(Options{Level: "info", Output: &bytes.Buffer{}})
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestStrategyLoggerConfigWarning(t *testing.T) {
	log, buf := setupTestLogger()
	strategyLogger := NewStrategyLogger(log)

	strategyLogger.LogConfigWarning("strategy_001", "Q3 blowout", "rule 0: unknown rule type", true)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "strategy_001", logEntry["strategy_id"])
	assert.Equal(t, "strategy", logEntry["component"])
	assert.Equal(t, true, logEntry["inert"])
	assert.Equal(t, "warning", logEntry["level"])
}

func TestStrategyLoggerCatalogRefresh(t *testing.T) {
	log, buf := setupTestLogger()
	strategyLogger := NewStrategyLogger(log)

	strategyLogger.LogCatalogRefresh(12, 10, 1, 4.2)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(12), logEntry["strategies_total"])
	assert.Equal(t, float64(1), logEntry["strategies_inert"])
}

func TestStrategyLoggerDeactivation(t *testing.T) {
	log, buf := setupTestLogger()
	strategyLogger := NewStrategyLogger(log)

	strategyLogger.LogStrategyDeactivation("strategy_001", "Q3 blowout", "removed from catalog")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "deactivation", logEntry["event_type"])
	assert.Equal(t, "removed from catalog", logEntry["reason"])
}

func TestSignalLoggerTransition(t *testing.T) {
	log, buf := setupTestLogger()
	signalLogger := NewSignalLogger(log)

	signalLogger.LogTransition("sig_1", "game_1", "Q3 blowout", "", "monitoring", "entry trigger fired")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "signal", logEntry["component"])
	assert.Equal(t, "none", logEntry["from"])
	assert.Equal(t, "monitoring", logEntry["to"])
}

func TestSignalLoggerTriggerFired(t *testing.T) {
	log, buf := setupTestLogger()
	signalLogger := NewSignalLogger(log)

	signalLogger.LogTriggerFired("game_1", "strategy_001", "trigger_1", "entry", map[string]interface{}{"current_lead": 12})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	actual, ok := logEntry["actual"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(12), actual["current_lead"])
}

func TestSignalLoggerOutcome(t *testing.T) {
	log, buf := setupTestLogger()
	signalLogger := NewSignalLogger(log)

	signalLogger.LogOutcome("sig_1", "game_1", "Q3 blowout", "win", "final 101-95", 101, 95)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "win", logEntry["outcome"])
	assert.Equal(t, float64(101), logEntry["final_home"])
}

func TestAuditLoggerBetTaken(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	line := -7.5
	auditLogger.LogBetTaken(
		"sig_1",
		"strategy_001",
		"game_1",
		"spread",
		"home",
		&line,
		time.Date(2024, 2, 3, 12, 0, 0, 0, time.UTC),
	)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "sig_1", logEntry["signal_id"])
	assert.Equal(t, -7.5, logEntry["line"])
	assert.Equal(t, "audit", logEntry["component"])
}

func TestAuditLoggerBetTakenWithoutLine(t *testing.T) {
	log, buf := setupTestLogger()
	NewAuditLogger(log).LogBetTaken("sig_1", "strategy_001", "game_1", "moneyline", "away", nil, time.Now())

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	_, hasLine := logEntry["line"]
	assert.False(t, hasLine)
}

func TestAuditLoggerAdministrativeClose(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogAdministrativeClose("sig_1", "strategy_001", "game_1", "strategy deleted")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "strategy deleted", logEntry["note"])
	assert.Equal(t, "warning", logEntry["level"])
}

func TestLoggerJSONFormat(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogSignalStateChange("sig_1", "strategy_001", "game_1", "watching", "bet_taken", "odds aligned", time.Now())

	// Verify output is valid JSON
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	assert.NoError(t, err)
	assert.NotEmpty(t, logEntry)
}

func BenchmarkSignalLoggerTransition(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	signalLogger := NewSignalLogger(log)

	for i := 0; i < b.N; i++ {
		signalLogger.LogTransition("sig_1", "game_1", "Q3 blowout", "watching", "bet_taken", "odds aligned")
	}
}
