package signal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/hoop-signals/internal/models"
	"github.com/yourusername/hoop-signals/internal/strategy"
)

// Transition records one status change. From is empty when the signal was created.
type Transition struct {
	Key     models.SignalKey
	From    models.SignalStatus
	To      models.SignalStatus
	Reason  string
	Signal  *models.Signal
	Outcome *strategy.OutcomeResult
	At      time.Time
}

// IsCreation reports whether the transition opened the signal
func (t Transition) IsCreation() bool {
	return t.From == ""
}

// Evaluation is everything one strategy produced for one tick
type Evaluation struct {
	Key         models.SignalKey
	Gate        strategy.GateResult
	Entry       *strategy.TriggerResult
	Close       *strategy.TriggerResult
	Triggers    []strategy.TriggerResult
	Duplicate   bool
	Transitions []Transition
}

// Machine drives signal lifecycles against a Store
type Machine struct {
	store *Store
	now   func() time.Time
}

// NewMachine creates a machine bound to store
func NewMachine(store *Store) *Machine {
	return &Machine{store: store, now: time.Now}
}

// Store returns the underlying registry
func (m *Machine) Store() *Store {
	return m.store
}

// Evaluate runs one strategy against one tick. Trigger and rule evaluation happen before the
// key is locked; the state check and transitions happen inside the key's critical section.
func (m *Machine) Evaluate(strat *strategy.Compiled, ec *strategy.EvaluationContext) (*Evaluation, error) {
	key := models.SignalKey{GameID: ec.GameID, StrategyID: strat.ID}
	eval := &Evaluation{Key: key, Gate: strategy.PassesRules(strat.Rules, ec)}

	if eval.Gate.Passed && strat.Enabled() {
		entry, entryResults := strategy.EvaluateAny(strat.EntryTriggers, ec)
		eval.Entry = entry
		eval.Triggers = append(eval.Triggers, entryResults...)
		if strat.TwoStage {
			closing, closeResults := strategy.EvaluateAny(strat.CloseTriggers, ec)
			eval.Close = closing
			eval.Triggers = append(eval.Triggers, closeResults...)
		}
	}

	_, err := m.store.Update(key, func(current *models.Signal) (*models.Signal, error) {
		at := m.now()

		if current == nil {
			if eval.Entry == nil || strat.Expired(ec) {
				return nil, nil
			}
			sig, transitions := m.open(strat, ec, eval.Entry, at)
			eval.Transitions = transitions
			return sig, nil
		}

		if current.Status.IsTerminal() {
			return nil, nil
		}
		if eval.Entry != nil {
			eval.Duplicate = true
		}

		sig := current
		var transitions []Transition

		if sig.Status != models.SignalStatusBetTaken && strat.Expired(ec) {
			transitions = append(transitions, m.move(sig, models.SignalStatusExpired,
				fmt.Sprintf("expiry Q%d %s reached at Q%d %s", strategy.RegulationQuarters, strat.ExpiryClock, ec.Quarter, strategy.FormatClock(ec.ClockSeconds)), at))
			eval.Transitions = transitions
			return sig, nil
		}

		if sig.Status == models.SignalStatusMonitoring && strat.TwoStage && eval.Close != nil {
			transitions = append(transitions, m.move(sig, models.SignalStatusWatching, "close trigger fired", at))
		}

		if m.canBet(strat, sig) {
			if t, ok := m.tryBet(strat, sig, ec, at); ok {
				transitions = append(transitions, t)
			}
		}

		if len(transitions) == 0 {
			return nil, nil
		}
		eval.Transitions = transitions
		return sig, nil
	})
	if err != nil {
		return nil, err
	}
	return eval, nil
}

// Resolve settles every signal of a finished game: bets are scored, anything still waiting
// expires. Signals whose strategy is missing from strategies are closed as orphans.
func (m *Machine) Resolve(snap *models.GameSnapshot, strategies map[uuid.UUID]*strategy.Compiled) ([]Transition, error) {
	var transitions []Transition
	for _, existing := range m.store.ListByGame(snap.GameID) {
		if !existing.IsActive() {
			continue
		}
		strat, ok := strategies[existing.StrategyID]
		if !ok {
			t, err := m.CloseOrphan(existing.Key(), "strategy no longer in catalog at game end")
			if err != nil {
				return transitions, err
			}
			if t != nil {
				transitions = append(transitions, *t)
			}
			continue
		}

		_, err := m.store.Update(existing.Key(), func(current *models.Signal) (*models.Signal, error) {
			if current == nil || current.Status.IsTerminal() {
				return nil, nil
			}
			at := m.now()

			if current.Status != models.SignalStatusBetTaken {
				transitions = append(transitions, m.move(current, models.SignalStatusExpired, "game ended before odds aligned", at))
				return current, nil
			}

			result, err := strategy.EvaluateOutcome(current, snap, strat.WinRequirements)
			if err != nil {
				return nil, err
			}
			home, away := result.Final.Home, result.Final.Away
			outcome := result.Outcome
			current.FinalHomeScore = &home
			current.FinalAwayScore = &away
			current.Outcome = &outcome
			current.Summary = result.Summary
			t := m.move(current, outcome.Status(), result.Summary, at)
			t.Outcome = result
			transitions = append(transitions, t)
			return current, nil
		})
		if err != nil {
			return transitions, fmt.Errorf("failed to resolve signal %s: %w", existing.Key(), err)
		}
	}
	return transitions, nil
}

// RemoveGame finalizes a game that left tracking without a final snapshot and drops its keys.
// Waiting signals expire; placed bets are closed since they cannot be scored.
func (m *Machine) RemoveGame(gameID, reason string) ([]Transition, error) {
	var transitions []Transition
	for _, existing := range m.store.ListByGame(gameID) {
		if !existing.IsActive() {
			continue
		}
		_, err := m.store.Update(existing.Key(), func(current *models.Signal) (*models.Signal, error) {
			if current == nil || current.Status.IsTerminal() {
				return nil, nil
			}
			at := m.now()
			if current.Status == models.SignalStatusBetTaken {
				current.Note = reason
				transitions = append(transitions, m.move(current, models.SignalStatusClosed, reason, at))
			} else {
				transitions = append(transitions, m.move(current, models.SignalStatusExpired, reason, at))
			}
			return current, nil
		})
		if err != nil {
			return transitions, err
		}
	}

	if err := m.store.DeleteGame(gameID); err != nil {
		return transitions, fmt.Errorf("failed to remove game %s: %w", gameID, err)
	}
	return transitions, nil
}

// CloseOrphan closes an active signal whose strategy can no longer be resolved.
// It returns nil when the signal is absent or already terminal.
func (m *Machine) CloseOrphan(key models.SignalKey, note string) (*Transition, error) {
	var transition *Transition
	_, err := m.store.Update(key, func(current *models.Signal) (*models.Signal, error) {
		if current == nil || current.Status.IsTerminal() {
			return nil, nil
		}
		current.Note = note
		t := m.move(current, models.SignalStatusClosed, note, m.now())
		transition = &t
		return current, nil
	})
	if err != nil {
		return nil, err
	}
	return transition, nil
}

func (m *Machine) open(strat *strategy.Compiled, ec *strategy.EvaluationContext, entry *strategy.TriggerResult, at time.Time) (*models.Signal, []Transition) {
	sig := &models.Signal{
		ID:                 uuid.New(),
		GameID:             ec.GameID,
		StrategyID:         strat.ID,
		StrategyName:       strat.Name,
		Status:             models.SignalStatusMonitoring,
		LeadingTeamAtEntry: ec.Leading,
		EntryHomeScore:     ec.HomeScore,
		EntryAwayScore:     ec.AwayScore,
		EntryQuarter:       ec.Quarter,
		EntryClock:         strategy.FormatClock(ec.ClockSeconds),
		RequiredOdds:       strat.RequiredOdds(),
		CreatedAt:          at,
		UpdatedAt:          at,
	}

	reason := fmt.Sprintf("entry trigger %s fired", entry.TriggerID)
	if !strat.TwoStage {
		sig.Status = models.SignalStatusWatching
		sig.WatchingAt = &at
	}
	transitions := []Transition{{
		Key:    sig.Key(),
		To:     sig.Status,
		Reason: reason,
		Signal: sig.Clone(),
		At:     at,
	}}

	if m.canBet(strat, sig) {
		if t, ok := m.tryBet(strat, sig, ec, at); ok {
			transitions = append(transitions, t)
		}
	}
	return sig, transitions
}

// canBet reports whether the signal is in a state that may take a bet. Two-stage signals
// must be confirmed by a close trigger first.
func (m *Machine) canBet(strat *strategy.Compiled, sig *models.Signal) bool {
	switch sig.Status {
	case models.SignalStatusWatching:
		return true
	case models.SignalStatusMonitoring:
		return !strat.TwoStage
	default:
		return false
	}
}

func (m *Machine) tryBet(strat *strategy.Compiled, sig *models.Signal, ec *strategy.EvaluationContext, at time.Time) (Transition, bool) {
	if strat.Odds == nil {
		sig.OddsType = models.OddsTypeMoneyline
		sig.BetSide = models.BetSide(sig.LeadingTeamAtEntry)
		if line, ok := ec.MoneylineFor(sig.LeadingTeamAtEntry); ok {
			sig.ActualOdds = &line
		}
		return m.move(sig, models.SignalStatusBetTaken, "no odds requirement", at), true
	}

	check := strat.Odds.Check(ec, sig.LeadingTeamAtEntry)
	if !check.Satisfied {
		return Transition{}, false
	}
	line := check.Line
	sig.OddsType = strat.Odds.Type
	sig.BetSide = check.BetSide
	sig.ActualOdds = &line
	return m.move(sig, models.SignalStatusBetTaken, fmt.Sprintf("odds aligned: %s at %v", strat.Odds.Type, line), at), true
}

// move applies a status change to sig and returns the transition
func (m *Machine) move(sig *models.Signal, to models.SignalStatus, reason string, at time.Time) Transition {
	from := sig.Status
	sig.Status = to
	sig.UpdatedAt = at
	switch to {
	case models.SignalStatusWatching:
		sig.WatchingAt = &at
	case models.SignalStatusBetTaken:
		sig.BetTakenAt = &at
	}
	if to.IsTerminal() {
		sig.ResolvedAt = &at
	}
	return Transition{
		Key:    sig.Key(),
		From:   from,
		To:     to,
		Reason: reason,
		Signal: sig.Clone(),
		At:     at,
	}
}
