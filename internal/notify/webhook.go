// Package notify delivers signal transitions to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/hoop-signals/internal/config"
	"github.com/yourusername/hoop-signals/internal/metrics"
	"github.com/yourusername/hoop-signals/internal/models"
	"github.com/yourusername/hoop-signals/internal/signal"
)

// Payload is the JSON body posted to the webhook
type Payload struct {
	Username string        `json:"username,omitempty"`
	Content  string        `json:"content"`
	Signal   SignalSummary `json:"signal"`
}

// SignalSummary is the machine-readable part of a payload
type SignalSummary struct {
	ID           string   `json:"id"`
	GameID       string   `json:"game_id"`
	StrategyID   string   `json:"strategy_id"`
	StrategyName string   `json:"strategy_name"`
	From         string   `json:"from,omitempty"`
	Status       string   `json:"status"`
	Reason       string   `json:"reason"`
	OddsType     string   `json:"odds_type,omitempty"`
	BetSide      string   `json:"bet_side,omitempty"`
	Line         *float64 `json:"line,omitempty"`
	Outcome      string   `json:"outcome,omitempty"`
	FinalHome    *int     `json:"final_home,omitempty"`
	FinalAway    *int     `json:"final_away,omitempty"`
	At           string   `json:"at"`
}

// WebhookNotifier posts transitions whose target status is in its notify set
type WebhookNotifier struct {
	url      string
	username string
	notifyOn map[models.SignalStatus]bool
	client   *RateLimitedHTTPClient
	log      *logrus.Entry
}

// NewWebhookNotifier creates a notifier from configuration
func NewWebhookNotifier(cfg config.NotifierConfig, log *logrus.Logger) *WebhookNotifier {
	entry := log.WithField("component", "notifier")

	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.Timeout()
	httpCfg.MaxRetries = cfg.MaxRetries
	if cfg.RateLimitPerSecond > 0 {
		httpCfg.RateLimit = cfg.RateLimitPerSecond
	}
	if cfg.Burst > 0 {
		httpCfg.Burst = cfg.Burst
	}

	return newWebhookNotifier(cfg.WebhookURL, cfg.Username, cfg.NotifyOn, NewRateLimitedHTTPClient(httpCfg, entry), entry)
}

func newWebhookNotifier(url, username string, notifyOn []string, client *RateLimitedHTTPClient, log *logrus.Entry) *WebhookNotifier {
	set := make(map[models.SignalStatus]bool, len(notifyOn))
	for _, s := range notifyOn {
		set[models.SignalStatus(s)] = true
	}
	return &WebhookNotifier{
		url:      url,
		username: username,
		notifyOn: set,
		client:   client,
		log:      log,
	}
}

// Wants reports whether transitions into status are delivered. An empty set delivers all.
func (n *WebhookNotifier) Wants(status models.SignalStatus) bool {
	return len(n.notifyOn) == 0 || n.notifyOn[status]
}

// Notify posts the transition. Filtered transitions return nil without a request.
func (n *WebhookNotifier) Notify(ctx context.Context, t signal.Transition) error {
	if !n.Wants(t.To) {
		return nil
	}

	body, err := json.Marshal(n.payload(t))
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := n.client.Do(ctx, req)
	if err != nil {
		metrics.RecordAlert(false, time.Since(start).Seconds())
		return fmt.Errorf("webhook: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordAlert(false, time.Since(start).Seconds())
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	metrics.RecordAlert(true, time.Since(start).Seconds())
	n.log.WithFields(logrus.Fields{
		"signal_id": t.Signal.ID.String(),
		"status":    string(t.To),
	}).Debug("Alert delivered")
	return nil
}

// Close releases idle connections
func (n *WebhookNotifier) Close() error {
	return n.client.Close()
}

func (n *WebhookNotifier) payload(t signal.Transition) Payload {
	sig := t.Signal
	summary := SignalSummary{
		ID:           sig.ID.String(),
		GameID:       sig.GameID,
		StrategyID:   sig.StrategyID.String(),
		StrategyName: sig.StrategyName,
		From:         string(t.From),
		Status:       string(t.To),
		Reason:       t.Reason,
		OddsType:     string(sig.OddsType),
		BetSide:      string(sig.BetSide),
		Line:         sig.ActualOdds,
		FinalHome:    sig.FinalHomeScore,
		FinalAway:    sig.FinalAwayScore,
		At:           t.At.UTC().Format(time.RFC3339),
	}
	if sig.Outcome != nil {
		summary.Outcome = string(*sig.Outcome)
	}
	return Payload{
		Username: n.username,
		Content:  FormatMessage(t),
		Signal:   summary,
	}
}

// FormatMessage renders a transition as a short chat message
func FormatMessage(t signal.Transition) string {
	sig := t.Signal
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** | game %s\n", sig.StrategyName, sig.GameID)

	switch t.To {
	case models.SignalStatusMonitoring, models.SignalStatusWatching:
		if t.IsCreation() {
			fmt.Fprintf(&b, "Signal opened (%s): %s leading %d-%d at Q%d %s",
				t.To, sig.LeadingTeamAtEntry, sig.EntryHomeScore, sig.EntryAwayScore, sig.EntryQuarter, sig.EntryClock)
			if sig.RequiredOdds != "" {
				fmt.Fprintf(&b, "\nWaiting for %s", sig.RequiredOdds)
			}
		} else {
			fmt.Fprintf(&b, "Now %s: %s", t.To, t.Reason)
		}
	case models.SignalStatusBetTaken:
		fmt.Fprintf(&b, "Bet taken: %s %s", sig.OddsType, sig.BetSide)
		if sig.ActualOdds != nil {
			fmt.Fprintf(&b, " at %s", formatLine(sig.OddsType, *sig.ActualOdds))
		}
	case models.SignalStatusWon, models.SignalStatusLost, models.SignalStatusPushed:
		fmt.Fprintf(&b, "Result: %s", strings.ToUpper(string(t.To)))
		if sig.FinalHomeScore != nil && sig.FinalAwayScore != nil {
			fmt.Fprintf(&b, " (final %d-%d)", *sig.FinalHomeScore, *sig.FinalAwayScore)
		}
		if sig.Summary != "" {
			fmt.Fprintf(&b, "\n%s", sig.Summary)
		}
	default:
		fmt.Fprintf(&b, "Signal %s: %s", t.To, t.Reason)
	}
	return b.String()
}

// formatLine renders spreads and moneylines with an explicit sign
func formatLine(oddsType models.OddsType, line float64) string {
	s := strconv.FormatFloat(line, 'f', -1, 64)
	switch oddsType {
	case models.OddsTypeSpread, models.OddsTypeMoneyline:
		if line > 0 {
			return "+" + s
		}
	}
	return s
}
