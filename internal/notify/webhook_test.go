package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/hoop-signals/internal/models"
	"github.com/yourusername/hoop-signals/internal/signal"
)

func quietEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func fastConfig() HTTPClientConfig {
	cfg := DefaultHTTPClientConfig()
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 2
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	cfg.RateLimit = 0
	cfg.CircuitBreakerMax = 2
	cfg.CircuitCooldown = time.Hour
	return cfg
}

func betTransition() signal.Transition {
	line := -8.5
	at := time.Date(2026, 3, 1, 20, 15, 0, 0, time.UTC)
	return signal.Transition{
		From:   models.SignalStatusWatching,
		To:     models.SignalStatusBetTaken,
		Reason: "odds aligned: spread at -8.5",
		At:     at,
		Signal: &models.Signal{
			ID:                 uuid.New(),
			GameID:             "g1",
			StrategyID:         uuid.New(),
			StrategyName:       "Q3 blowout",
			Status:             models.SignalStatusBetTaken,
			LeadingTeamAtEntry: models.SideHome,
			EntryHomeScore:     70,
			EntryAwayScore:     58,
			EntryQuarter:       3,
			EntryClock:         "5:00",
			OddsType:           models.OddsTypeSpread,
			BetSide:            models.BetSideHome,
			ActualOdds:         &line,
		},
	}
}

func TestNotifyPostsPayload(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := newWebhookNotifier(srv.URL, "signal-bot", nil, NewRateLimitedHTTPClient(fastConfig(), quietEntry()), quietEntry())
	tr := betTransition()
	require.NoError(t, n.Notify(context.Background(), tr))

	assert.Equal(t, "signal-bot", got.Username)
	assert.Contains(t, got.Content, "Bet taken: spread home at -8.5")
	assert.Equal(t, "bet_taken", got.Signal.Status)
	assert.Equal(t, "watching", got.Signal.From)
	require.NotNil(t, got.Signal.Line)
	assert.Equal(t, -8.5, *got.Signal.Line)
	assert.Equal(t, "2026-03-01T20:15:00Z", got.Signal.At)
}

func TestNotifyFiltersStatuses(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	n := newWebhookNotifier(srv.URL, "", []string{"won", "lost"}, NewRateLimitedHTTPClient(fastConfig(), quietEntry()), quietEntry())
	assert.False(t, n.Wants(models.SignalStatusBetTaken))
	assert.True(t, n.Wants(models.SignalStatusWon))

	require.NoError(t, n.Notify(context.Background(), betTransition()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestNotifyRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newWebhookNotifier(srv.URL, "", nil, NewRateLimitedHTTPClient(fastConfig(), quietEntry()), quietEntry())
	require.NoError(t, n.Notify(context.Background(), betTransition()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestNotifyClientErrorIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad payload"))
	}))
	defer srv.Close()

	n := newWebhookNotifier(srv.URL, "", nil, NewRateLimitedHTTPClient(fastConfig(), quietEntry()), quietEntry())
	err := n.Notify(context.Background(), betTransition())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "bad payload")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCircuitBreakerOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.MaxRetries = 0
	client := NewRateLimitedHTTPClient(cfg, quietEntry())
	n := newWebhookNotifier(srv.URL, "", nil, client, quietEntry())

	for i := 0; i < 2; i++ {
		assert.Error(t, n.Notify(context.Background(), betTransition()))
	}
	before := atomic.LoadInt32(&hits)

	err := n.Notify(context.Background(), betTransition())
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, before, atomic.LoadInt32(&hits))

	// after the cooldown one request is let through
	client.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Error(t, n.Notify(context.Background(), betTransition()))
	assert.Equal(t, before+1, atomic.LoadInt32(&hits))
}

func TestFormatMessage(t *testing.T) {
	tr := betTransition()
	home, away := 101, 95
	outcome := models.OutcomeWin

	tests := []struct {
		name   string
		mutate func(t *signal.Transition)
		want   []string
	}{
		{"opened", func(t *signal.Transition) {
			t.From = ""
			t.To = models.SignalStatusWatching
			t.Signal.RequiredOdds = "spread leading less_than_or_equal -8"
		}, []string{"**Q3 blowout** | game g1", "Signal opened (watching): home leading 70-58 at Q3 5:00", "Waiting for spread leading"}},
		{"confirmed", func(t *signal.Transition) {
			t.From = models.SignalStatusMonitoring
			t.To = models.SignalStatusWatching
			t.Reason = "close trigger fired"
		}, []string{"Now watching: close trigger fired"}},
		{"moneyline underdog", func(t *signal.Transition) {
			line := 150.0
			t.Signal.OddsType = models.OddsTypeMoneyline
			t.Signal.ActualOdds = &line
		}, []string{"Bet taken: moneyline home at +150"}},
		{"won", func(t *signal.Transition) {
			t.To = models.SignalStatusWon
			t.Signal.FinalHomeScore = &home
			t.Signal.FinalAwayScore = &away
			t.Signal.Outcome = &outcome
			t.Signal.Summary = "home won by 6, moneyline home wins"
		}, []string{"Result: WON (final 101-95)", "home won by 6"}},
		{"expired", func(t *signal.Transition) {
			t.To = models.SignalStatusExpired
			t.Reason = "expiry Q4 2:20 reached at Q4 2:10"
		}, []string{"Signal expired: expiry Q4 2:20 reached"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tr
			c.Signal = tr.Signal.Clone()
			tt.mutate(&c)
			msg := FormatMessage(c)
			for _, want := range tt.want {
				assert.Contains(t, msg, want)
			}
		})
	}
}
