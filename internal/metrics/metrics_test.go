package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	// Initialize the registry
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordTransition(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(SignalTransitionsTotal.WithLabelValues("none", "monitoring"))
	RecordTransition("", "monitoring")
	assert.Equal(t, before+1, testutil.ToFloat64(SignalTransitionsTotal.WithLabelValues("none", "monitoring")))

	before = testutil.ToFloat64(SignalTransitionsTotal.WithLabelValues("watching", "bet_taken"))
	RecordTransition("watching", "bet_taken")
	assert.Equal(t, before+1, testutil.ToFloat64(SignalTransitionsTotal.WithLabelValues("watching", "bet_taken")))
}

func TestRecordOutcome(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name    string
		outcome string
	}{
		{name: "win", outcome: "win"},
		{name: "loss", outcome: "loss"},
		{name: "push", outcome: "push"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(SignalOutcomesTotal.WithLabelValues(tt.outcome))
			RecordOutcome(tt.outcome)
			assert.Equal(t, before+1, testutil.ToFloat64(SignalOutcomesTotal.WithLabelValues(tt.outcome)))
		})
	}
}

func TestRecordAlert(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(AlertsSentTotal.WithLabelValues("failure"))
	RecordAlert(false, 0.2)
	assert.Equal(t, before+1, testutil.ToFloat64(AlertsSentTotal.WithLabelValues("failure")))
}

func TestRecordCatalogRefresh(t *testing.T) {
	InitRegistry()

	RecordCatalogRefresh(7, 2, 0.01)
	assert.Equal(t, float64(7), testutil.ToFloat64(ActiveStrategies))
	assert.Equal(t, float64(2), testutil.ToFloat64(InertStrategies))
}

func TestUpdateOpenSignals(t *testing.T) {
	InitRegistry()

	UpdateOpenSignals(map[string]int{"monitoring": 3, "watching": 1})
	assert.Equal(t, float64(3), testutil.ToFloat64(OpenSignals.WithLabelValues("monitoring")))

	UpdateOpenSignals(map[string]int{"watching": 2})
	assert.Equal(t, 1, testutil.CollectAndCount(OpenSignals))
}

func TestStrategyMetrics(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordTriggerFire("s1", "blowout", "entry")
		RecordStrategySignal("s1", "blowout")
		RecordCacheHit()
		RecordCacheMiss()
		RecordRuleBlock("first_half_only")
		RecordDuplicateEntry()
		RecordPersistenceError("save_signal")
		RecordSnapshot("live", 0.001)
		UpdateTrackedGames(4)
	})
	assert.Equal(t, float64(4), testutil.ToFloat64(TrackedGames))
}

func TestHandler(t *testing.T) {
	InitRegistry()
	RecordDuplicateEntry()

	server := httptest.NewServer(Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hoop_signals_duplicate_entries_total")
}
