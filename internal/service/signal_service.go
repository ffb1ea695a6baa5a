// Package service orchestrates the signal engine: it feeds snapshots through the strategy
// catalog and the lifecycle machine, then persists, logs and alerts on every transition.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/hoop-signals/internal/logger"
	"github.com/yourusername/hoop-signals/internal/metrics"
	"github.com/yourusername/hoop-signals/internal/models"
	"github.com/yourusername/hoop-signals/internal/signal"
	"github.com/yourusername/hoop-signals/internal/strategy"
)

const (
	snapshotOK      = "ok"
	snapshotInvalid = "invalid"
	snapshotIgnored = "ignored"
	snapshotFailed  = "error"

	// finished games are remembered this long so late snapshots cannot reopen them
	finishedRetention = 24 * time.Hour
)

var snapshotValidator = validator.New()

// Options configures a SignalService
type Options struct {
	StaleGameTimeout time.Duration
	Workers          int
	Now              func() time.Time
}

// SignalService runs the per-tick and per-final flows
type SignalService struct {
	machine *signal.Machine
	catalog *Catalog
	repo    SignalRepository
	games   GameSource
	alerter Alerter

	log       *logrus.Logger
	signalLog *logger.SignalLogger
	audit     *logger.AuditLogger

	staleTimeout time.Duration
	workers      int
	now          func() time.Time

	mu        sync.Mutex
	lastSeen  map[string]time.Time
	finished  map[string]time.Time
	gameLocks map[string]*gameLock
	watermark time.Time
}

// gameLock serializes ticks, finals and removal for one game
type gameLock struct {
	mu   sync.Mutex
	refs int
}

// NewSignalService creates a new signal service. alerter and games may be nil.
func NewSignalService(
	machine *signal.Machine,
	catalog *Catalog,
	repo SignalRepository,
	games GameSource,
	alerter Alerter,
	log *logrus.Logger,
	opts Options,
) *SignalService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.StaleGameTimeout <= 0 {
		opts.StaleGameTimeout = 15 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SignalService{
		machine:      machine,
		catalog:      catalog,
		repo:         repo,
		games:        games,
		alerter:      alerter,
		log:          log,
		signalLog:    logger.NewSignalLogger(log),
		audit:        logger.NewAuditLogger(log),
		staleTimeout: opts.StaleGameTimeout,
		workers:      opts.Workers,
		now:          opts.Now,
		lastSeen:     make(map[string]time.Time),
		finished:     make(map[string]time.Time),
		gameLocks:    make(map[string]*gameLock),
	}
}

// Restore seeds the signal store with open signals from persistence
func (s *SignalService) Restore(ctx context.Context) (int, error) {
	open, err := s.repo.GetOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load open signals: %w", err)
	}
	restored := s.machine.Store().Restore(open)

	now := s.now()
	s.mu.Lock()
	for _, sig := range open {
		if _, ok := s.lastSeen[sig.GameID]; !ok {
			s.lastSeen[sig.GameID] = now
		}
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"loaded":   len(open),
		"restored": restored,
	}).Info("Open signals restored")
	s.updateGauges()
	return restored, nil
}

// ProcessSnapshot evaluates every strategy against one live tick
func (s *SignalService) ProcessSnapshot(ctx context.Context, snap *models.GameSnapshot, stats []models.PlayerStat) ([]signal.Transition, error) {
	start := time.Now()

	if err := snapshotValidator.Struct(snap); err != nil {
		metrics.RecordSnapshot(snapshotInvalid, time.Since(start).Seconds())
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	if snap.IsFinal() {
		return s.ProcessFinal(ctx, snap)
	}

	unlock := s.lockGame(snap.GameID)
	defer unlock()

	if s.isFinished(snap.GameID) {
		metrics.RecordSnapshot(snapshotIgnored, time.Since(start).Seconds())
		return nil, nil
	}
	s.touch(snap.GameID)

	strategies, err := s.catalog.Active(ctx)
	if err != nil {
		metrics.RecordSnapshot(snapshotFailed, time.Since(start).Seconds())
		return nil, err
	}

	ec := strategy.BuildContext(snap, stats)
	var transitions []signal.Transition
	evaluated := make(map[uuid.UUID]bool, len(strategies))

	for _, strat := range strategies {
		evaluated[strat.ID] = true
		eval, err := s.machine.Evaluate(strat, ec)
		if err != nil {
			s.log.WithError(err).WithField("strategy_id", strat.ID).Error("Strategy evaluation failed")
			continue
		}
		s.logEvaluation(strat, eval)
		transitions = append(transitions, eval.Transitions...)
	}

	// open signals whose strategy left the active set still settle
	for _, existing := range s.machine.Store().ListByGame(snap.GameID) {
		if !existing.IsActive() || evaluated[existing.StrategyID] {
			continue
		}
		evaluated[existing.StrategyID] = true

		strat, ok, err := s.catalog.Lookup(ctx, existing.StrategyID)
		if err != nil {
			s.log.WithError(err).WithField("strategy_id", existing.StrategyID).Warn("Strategy lookup failed")
			continue
		}
		if !ok {
			t, err := s.machine.CloseOrphan(existing.Key(), "strategy no longer exists")
			if err != nil {
				s.log.WithError(err).Error("Failed to close orphaned signal")
				continue
			}
			if t != nil {
				transitions = append(transitions, *t)
			}
			continue
		}

		eval, err := s.machine.Evaluate(strat, ec)
		if err != nil {
			s.log.WithError(err).WithField("strategy_id", strat.ID).Error("Strategy evaluation failed")
			continue
		}
		transitions = append(transitions, eval.Transitions...)
	}

	s.handleTransitions(ctx, transitions)
	metrics.RecordSnapshot(snapshotOK, time.Since(start).Seconds())
	s.updateGauges()
	return transitions, nil
}

// ProcessFinal settles every signal of a finished game and drops it from tracking
func (s *SignalService) ProcessFinal(ctx context.Context, snap *models.GameSnapshot) ([]signal.Transition, error) {
	start := time.Now()

	unlock := s.lockGame(snap.GameID)
	defer unlock()

	if s.isFinished(snap.GameID) && len(s.machine.Store().ListByGame(snap.GameID)) == 0 {
		metrics.RecordSnapshot(snapshotIgnored, time.Since(start).Seconds())
		return nil, nil
	}

	strategies, err := s.strategiesForGame(ctx, snap.GameID)
	if err != nil {
		metrics.RecordSnapshot(snapshotFailed, time.Since(start).Seconds())
		return nil, err
	}

	transitions, err := s.machine.Resolve(snap, strategies)
	s.handleTransitions(ctx, transitions)
	if err != nil {
		metrics.RecordSnapshot(snapshotFailed, time.Since(start).Seconds())
		return transitions, fmt.Errorf("failed to resolve game %s: %w", snap.GameID, err)
	}

	removed, err := s.removeGame(ctx, snap.GameID, "game final")
	transitions = append(transitions, removed...)
	if err != nil {
		metrics.RecordSnapshot(snapshotFailed, time.Since(start).Seconds())
		return transitions, err
	}

	s.audit.LogGameRemoved(snap.GameID, "game final", len(transitions))
	metrics.RecordSnapshot(snapshotOK, time.Since(start).Seconds())
	s.updateGauges()
	return transitions, nil
}

// SweepStaleGames removes games that stopped receiving snapshots. It returns the IDs removed.
func (s *SignalService) SweepStaleGames(ctx context.Context) ([]string, error) {
	now := s.now()
	cutoff := now.Add(-s.staleTimeout)

	s.mu.Lock()
	var stale []string
	for gameID, seen := range s.lastSeen {
		if seen.Before(cutoff) {
			stale = append(stale, gameID)
		}
	}
	for gameID, at := range s.finished {
		if now.Sub(at) > finishedRetention {
			delete(s.finished, gameID)
		}
	}
	s.mu.Unlock()

	var removedGames []string
	for _, gameID := range stale {
		removed, err := s.removeStaleGame(ctx, gameID, cutoff)
		if err != nil {
			s.log.WithError(err).WithField("game_id", gameID).Error("Failed to remove stale game")
			continue
		}
		if removed {
			removedGames = append(removedGames, gameID)
		}
	}

	if len(removedGames) > 0 {
		s.updateGauges()
	}
	return removedGames, nil
}

// PollGames pulls snapshots updated since the last poll and processes them in parallel.
// Games are independent so per-game failures are logged and do not stop the batch.
func (s *SignalService) PollGames(ctx context.Context) (int, error) {
	if s.games == nil {
		return 0, fmt.Errorf("no game source configured")
	}

	s.mu.Lock()
	since := s.watermark
	s.mu.Unlock()

	snaps, err := s.games.GetUpdatedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to poll games: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, snap := range snaps {
		snap := snap
		g.Go(func() error {
			s.processPolled(gctx, snap)
			return nil
		})
	}
	_ = g.Wait()

	latest := since
	for _, snap := range snaps {
		if snap.UpdatedAt.After(latest) {
			latest = snap.UpdatedAt
		}
	}
	s.mu.Lock()
	if latest.After(s.watermark) {
		s.watermark = latest
	}
	s.mu.Unlock()

	return len(snaps), nil
}

// TrackedGames returns the number of games currently tracked
func (s *SignalService) TrackedGames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastSeen)
}

// Shutdown logs the open signals left behind; they are already persisted and will be restored
func (s *SignalService) Shutdown(reason string) {
	counts := s.openCounts()
	state := make(map[string]interface{}, len(counts)+1)
	for status, n := range counts {
		state[status] = n
	}
	state["tracked_games"] = s.TrackedGames()
	s.audit.LogEmergencyShutdown(reason, state)
}

func (s *SignalService) processPolled(ctx context.Context, snap *models.GameSnapshot) {
	entry := s.log.WithField("game_id", snap.GameID)

	if snap.IsFinal() {
		if _, err := s.ProcessFinal(ctx, snap); err != nil {
			entry.WithError(err).Error("Failed to process final snapshot")
		}
		return
	}

	stats, err := s.games.GetPlayerStats(ctx, snap.GameID)
	if err != nil {
		entry.WithError(err).Warn("Player stats unavailable, evaluating without them")
		stats = nil
	}
	if _, err := s.ProcessSnapshot(ctx, snap, stats); err != nil {
		entry.WithError(err).Error("Failed to process snapshot")
	}
}

// strategiesForGame resolves the strategies of every signal the game has, including
// inactive ones. Deleted strategies are left out so the machine closes their signals.
func (s *SignalService) strategiesForGame(ctx context.Context, gameID string) (map[uuid.UUID]*strategy.Compiled, error) {
	active, err := s.catalog.ActiveByID(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]*strategy.Compiled, len(active))
	for id, c := range active {
		out[id] = c
	}
	for _, existing := range s.machine.Store().ListByGame(gameID) {
		if _, ok := out[existing.StrategyID]; ok || !existing.IsActive() {
			continue
		}
		c, ok, err := s.catalog.Lookup(ctx, existing.StrategyID)
		if err != nil {
			return nil, err
		}
		if ok {
			out[existing.StrategyID] = c
		}
	}
	return out, nil
}

// removeStaleGame removes gameID unless a snapshot arrived after cutoff while it waited for the lock
func (s *SignalService) removeStaleGame(ctx context.Context, gameID string, cutoff time.Time) (bool, error) {
	unlock := s.lockGame(gameID)
	defer unlock()

	s.mu.Lock()
	seen, tracked := s.lastSeen[gameID]
	s.mu.Unlock()
	if !tracked || !seen.Before(cutoff) {
		return false, nil
	}

	reason := fmt.Sprintf("no updates for %s", s.staleTimeout)
	transitions, err := s.removeGame(ctx, gameID, reason)
	if err != nil {
		return false, err
	}
	s.audit.LogGameRemoved(gameID, reason, len(transitions))
	return true, nil
}

// removeGame must be called with the game's lock held
func (s *SignalService) removeGame(ctx context.Context, gameID, reason string) ([]signal.Transition, error) {
	transitions, err := s.machine.RemoveGame(gameID, reason)
	s.handleTransitions(ctx, transitions)
	if err != nil {
		return transitions, err
	}

	s.mu.Lock()
	delete(s.lastSeen, gameID)
	s.finished[gameID] = s.now()
	s.mu.Unlock()
	return transitions, nil
}

func (s *SignalService) handleTransitions(ctx context.Context, transitions []signal.Transition) {
	for _, t := range transitions {
		sig := t.Signal
		signalID := sig.ID.String()
		strategyID := sig.StrategyID.String()

		if err := s.repo.Save(ctx, sig); err != nil {
			metrics.RecordPersistenceError("save_signal")
			s.log.WithError(err).WithField("signal_id", signalID).Error("Failed to persist signal")
		}

		s.signalLog.LogTransition(signalID, sig.GameID, sig.StrategyName, string(t.From), string(t.To), t.Reason)
		s.audit.LogSignalStateChange(signalID, strategyID, sig.GameID, string(t.From), string(t.To), t.Reason, t.At)
		metrics.RecordTransition(string(t.From), string(t.To))

		switch {
		case t.IsCreation():
			metrics.RecordStrategySignal(strategyID, sig.StrategyName)
		case t.To == models.SignalStatusClosed:
			s.audit.LogAdministrativeClose(signalID, strategyID, sig.GameID, sig.Note)
		}
		if t.To == models.SignalStatusBetTaken {
			s.audit.LogBetTaken(signalID, strategyID, sig.GameID, string(sig.OddsType), string(sig.BetSide), sig.ActualOdds, t.At)
		}
		if t.Outcome != nil {
			metrics.RecordOutcome(string(t.Outcome.Outcome))
			s.signalLog.LogOutcome(signalID, sig.GameID, sig.StrategyName, string(t.Outcome.Outcome),
				t.Outcome.Summary, t.Outcome.Final.Home, t.Outcome.Final.Away)
		}

		if s.alerter != nil {
			if err := s.alerter.Notify(ctx, t); err != nil {
				s.log.WithError(err).WithField("signal_id", signalID).Warn("Failed to send alert")
			}
		}
	}
}

func (s *SignalService) logEvaluation(strat *strategy.Compiled, eval *signal.Evaluation) {
	gameID := eval.Key.GameID
	strategyID := strat.ID.String()

	if !eval.Gate.Passed && eval.Gate.FailedRule != nil {
		metrics.RecordRuleBlock(string(eval.Gate.FailedRule.Type))
		s.signalLog.LogRuleBlocked(gameID, strategyID, strat.Name, eval.Gate.FailedRule.String(), eval.Gate.Reason)
	}

	for _, r := range eval.Triggers {
		if !r.Fired {
			continue
		}
		actual := make(map[string]interface{}, len(r.Matched))
		for _, m := range r.Matched {
			actual[m.Condition.FieldName] = m.Actual.Interface()
		}
		metrics.RecordTriggerFire(strategyID, strat.Name, string(r.Role))
		s.signalLog.LogTriggerFired(gameID, strategyID, r.TriggerID.String(), string(r.Role), actual)
	}

	if eval.Duplicate {
		metrics.RecordDuplicateEntry()
		s.signalLog.LogDuplicateEntry(gameID, strategyID)
	}
}

// lockGame takes the game's lock and returns its release func
func (s *SignalService) lockGame(gameID string) func() {
	s.mu.Lock()
	gl, ok := s.gameLocks[gameID]
	if !ok {
		gl = &gameLock{}
		s.gameLocks[gameID] = gl
	}
	gl.refs++
	s.mu.Unlock()

	gl.mu.Lock()
	return func() {
		gl.mu.Unlock()
		s.mu.Lock()
		gl.refs--
		if gl.refs == 0 {
			delete(s.gameLocks, gameID)
		}
		s.mu.Unlock()
	}
}

func (s *SignalService) touch(gameID string) {
	s.mu.Lock()
	s.lastSeen[gameID] = s.now()
	s.mu.Unlock()
}

func (s *SignalService) isFinished(gameID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.finished[gameID]
	return ok
}

func (s *SignalService) openCounts() map[string]int {
	counts := map[string]int{
		string(models.SignalStatusMonitoring): 0,
		string(models.SignalStatusWatching):   0,
		string(models.SignalStatusBetTaken):   0,
	}
	for _, sig := range s.machine.Store().All() {
		if sig.IsActive() {
			counts[string(sig.Status)]++
		}
	}
	return counts
}

func (s *SignalService) updateGauges() {
	metrics.UpdateTrackedGames(s.TrackedGames())
	metrics.UpdateOpenSignals(s.openCounts())
}
