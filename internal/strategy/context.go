package strategy

import (
	"github.com/yourusername/hoop-signals/internal/models"
)

// RegulationQuarters is the number of non-overtime periods
const RegulationQuarters = 4

// PlayerTotals holds the per-side aggregates derived from the player statistics table
type PlayerTotals struct {
	HomeRebounds        int
	AwayRebounds        int
	HomeAssists         int
	AwayAssists         int
	HomeTopScorerPoints int
	AwayTopScorerPoints int
}

// EvaluationContext is the flattened, read-only view of a snapshot that conditions and rules
// are evaluated against. It is rebuilt for every evaluation and never persisted.
type EvaluationContext struct {
	GameID        string
	Status        models.GameStatus
	Quarter       int
	ClockSeconds  int
	HomeScore     int
	AwayScore     int
	Quarters      [RegulationQuarters]models.ScorePair
	Halftime      models.ScorePair
	Final         *models.ScorePair
	Spread        *float64
	HomeMoneyline *float64
	AwayMoneyline *float64
	TotalLine     *float64
	Leading       models.TeamSide
	Players       *PlayerTotals
}

// BuildContext derives an EvaluationContext from a snapshot and optional player stats.
// It only reads its inputs and is safe for concurrent use.
func BuildContext(snap *models.GameSnapshot, stats []models.PlayerStat) *EvaluationContext {
	ec := &EvaluationContext{
		GameID:        snap.GameID,
		Status:        snap.Status,
		Quarter:       snap.Quarter,
		ClockSeconds:  ParseClock(snap.Clock),
		HomeScore:     snap.HomeScore,
		AwayScore:     snap.AwayScore,
		Spread:        copyFloat(snap.Spread),
		HomeMoneyline: copyFloat(snap.HomeMoneyline),
		AwayMoneyline: copyFloat(snap.AwayMoneyline),
		TotalLine:     copyFloat(snap.TotalLine),
		Leading:       LeadingSide(snap.HomeScore, snap.AwayScore),
	}

	for q := 1; q <= RegulationQuarters; q++ {
		ec.Quarters[q-1] = snap.QuarterScore(q)
	}

	if snap.Halftime != nil {
		ec.Halftime = *snap.Halftime
	} else {
		q1, q2 := ec.Quarters[0], ec.Quarters[1]
		ec.Halftime = models.ScorePair{Home: q1.Home + q2.Home, Away: q1.Away + q2.Away}
	}

	if snap.Final != nil {
		final := *snap.Final
		ec.Final = &final
	}

	if len(stats) > 0 {
		ec.Players = aggregatePlayers(stats)
	}

	return ec
}

// LeadingSide returns which side leads for a given score
func LeadingSide(home, away int) models.TeamSide {
	switch {
	case home > away:
		return models.SideHome
	case away > home:
		return models.SideAway
	default:
		return models.SideTie
	}
}

// Total returns the combined live score
func (ec *EvaluationContext) Total() int {
	return ec.HomeScore + ec.AwayScore
}

// Differential returns home minus away
func (ec *EvaluationContext) Differential() int {
	return ec.HomeScore - ec.AwayScore
}

// Lead returns the absolute differential
func (ec *EvaluationContext) Lead() int {
	return abs(ec.Differential())
}

// IsOvertime reports whether the game is beyond regulation
func (ec *EvaluationContext) IsOvertime() bool {
	return ec.Quarter > RegulationQuarters
}

// ScoreFor returns the live score of one side
func (ec *EvaluationContext) ScoreFor(side models.TeamSide) (int, bool) {
	switch side {
	case models.SideHome:
		return ec.HomeScore, true
	case models.SideAway:
		return ec.AwayScore, true
	default:
		return 0, false
	}
}

// SpreadFor returns the spread line from one side's perspective
func (ec *EvaluationContext) SpreadFor(side models.TeamSide) (float64, bool) {
	if ec.Spread == nil {
		return 0, false
	}
	switch side {
	case models.SideHome:
		return *ec.Spread, true
	case models.SideAway:
		return -*ec.Spread, true
	default:
		return 0, false
	}
}

// MoneylineFor returns the moneyline price for one side
func (ec *EvaluationContext) MoneylineFor(side models.TeamSide) (float64, bool) {
	var line *float64
	switch side {
	case models.SideHome:
		line = ec.HomeMoneyline
	case models.SideAway:
		line = ec.AwayMoneyline
	}
	if line == nil {
		return 0, false
	}
	return *line, true
}

func aggregatePlayers(stats []models.PlayerStat) *PlayerTotals {
	totals := &PlayerTotals{}
	for _, p := range stats {
		switch p.Side {
		case models.SideHome:
			totals.HomeRebounds += p.Rebounds
			totals.HomeAssists += p.Assists
			if p.Points > totals.HomeTopScorerPoints {
				totals.HomeTopScorerPoints = p.Points
			}
		case models.SideAway:
			totals.AwayRebounds += p.Rebounds
			totals.AwayAssists += p.Assists
			if p.Points > totals.AwayTopScorerPoints {
				totals.AwayTopScorerPoints = p.Points
			}
		}
	}
	return totals
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
