package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SignalStatus represents where a signal sits in its lifecycle
type SignalStatus string

const (
	SignalStatusMonitoring SignalStatus = "monitoring"
	SignalStatusWatching   SignalStatus = "watching"
	SignalStatusBetTaken   SignalStatus = "bet_taken"
	SignalStatusWon        SignalStatus = "won"
	SignalStatusLost       SignalStatus = "lost"
	SignalStatusPushed     SignalStatus = "pushed"
	SignalStatusExpired    SignalStatus = "expired"
	SignalStatusClosed     SignalStatus = "closed"
)

// IsTerminal reports whether no further transitions are possible
func (s SignalStatus) IsTerminal() bool {
	switch s {
	case SignalStatusWon, SignalStatusLost, SignalStatusPushed, SignalStatusExpired, SignalStatusClosed:
		return true
	default:
		return false
	}
}

// Outcome is the scored result of a finished signal
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomePush Outcome = "push"
)

// Status maps an outcome to the terminal signal status it produces
func (o Outcome) Status() SignalStatus {
	switch o {
	case OutcomeWin:
		return SignalStatusWon
	case OutcomeLoss:
		return SignalStatusLost
	default:
		return SignalStatusPushed
	}
}

// OddsType is the market a signal was bet on
type OddsType string

const (
	OddsTypeSpread     OddsType = "spread"
	OddsTypeMoneyline  OddsType = "moneyline"
	OddsTypeTotalOver  OddsType = "total_over"
	OddsTypeTotalUnder OddsType = "total_under"
)

// BetSide is the selection a signal backs
type BetSide string

const (
	BetSideHome  BetSide = "home"
	BetSideAway  BetSide = "away"
	BetSideOver  BetSide = "over"
	BetSideUnder BetSide = "under"
)

// SignalKey identifies the single live signal allowed per game and strategy
type SignalKey struct {
	GameID     string
	StrategyID uuid.UUID
}

// String returns string representation of the key
func (k SignalKey) String() string {
	return fmt.Sprintf("%s:%s", k.GameID, k.StrategyID)
}

// Signal is the mutable lifecycle record for one (game, strategy) pair
type Signal struct {
	ID                 uuid.UUID    `db:"id" json:"id"`
	GameID             string       `db:"game_id" json:"game_id"`
	StrategyID         uuid.UUID    `db:"strategy_id" json:"strategy_id"`
	StrategyName       string       `db:"strategy_name" json:"strategy_name"`
	Status             SignalStatus `db:"status" json:"status"`
	LeadingTeamAtEntry TeamSide     `db:"leading_team_at_entry" json:"leading_team_at_entry"`
	EntryHomeScore     int          `db:"entry_home_score" json:"entry_home_score"`
	EntryAwayScore     int          `db:"entry_away_score" json:"entry_away_score"`
	EntryQuarter       int          `db:"entry_quarter" json:"entry_quarter"`
	EntryClock         string       `db:"entry_clock" json:"entry_clock"`
	RequiredOdds       string       `db:"required_odds" json:"required_odds,omitempty"`
	ActualOdds         *float64     `db:"actual_odds" json:"actual_odds,omitempty"`
	OddsType           OddsType     `db:"odds_type" json:"odds_type,omitempty"`
	BetSide            BetSide      `db:"bet_side" json:"bet_side,omitempty"`
	FinalHomeScore     *int         `db:"final_home_score" json:"final_home_score,omitempty"`
	FinalAwayScore     *int         `db:"final_away_score" json:"final_away_score,omitempty"`
	Outcome            *Outcome     `db:"outcome" json:"outcome,omitempty"`
	Summary            string       `db:"summary" json:"summary,omitempty"`
	Note               string       `db:"note" json:"note,omitempty"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	WatchingAt         *time.Time   `db:"watching_at" json:"watching_at,omitempty"`
	BetTakenAt         *time.Time   `db:"bet_taken_at" json:"bet_taken_at,omitempty"`
	ResolvedAt         *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
}

// Key returns the registry key of the signal
func (s *Signal) Key() SignalKey {
	return SignalKey{GameID: s.GameID, StrategyID: s.StrategyID}
}

// Clone returns a deep copy safe to hand to collaborators
func (s *Signal) Clone() *Signal {
	if s == nil {
		return nil
	}
	c := *s
	if s.ActualOdds != nil {
		v := *s.ActualOdds
		c.ActualOdds = &v
	}
	if s.FinalHomeScore != nil {
		v := *s.FinalHomeScore
		c.FinalHomeScore = &v
	}
	if s.FinalAwayScore != nil {
		v := *s.FinalAwayScore
		c.FinalAwayScore = &v
	}
	if s.Outcome != nil {
		v := *s.Outcome
		c.Outcome = &v
	}
	c.WatchingAt = cloneTime(s.WatchingAt)
	c.BetTakenAt = cloneTime(s.BetTakenAt)
	c.ResolvedAt = cloneTime(s.ResolvedAt)
	return &c
}

// IsActive reports whether the signal can still transition
func (s *Signal) IsActive() bool {
	return !s.Status.IsTerminal()
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
