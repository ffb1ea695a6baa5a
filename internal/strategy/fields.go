package strategy

import (
	"fmt"
	"sort"

	"github.com/yourusername/hoop-signals/internal/models"
)

// Field identifies one resolvable context value. The set is closed: names outside the
// registry never resolve.
type Field string

const (
	FieldQuarter           Field = "quarter"
	FieldClockSeconds      Field = "clock_seconds"
	FieldHomeScore         Field = "home_score"
	FieldAwayScore         Field = "away_score"
	FieldTotalScore        Field = "total_score"
	FieldScoreDifferential Field = "score_differential"
	FieldCurrentLead       Field = "current_lead"
	FieldLeadingTeam       Field = "leading_team"
	FieldIsTied            Field = "is_tied"
	FieldIsOvertime        Field = "is_overtime"
	FieldStatus            Field = "status"
	FieldHalftimeDiff      Field = "halftime_differential"
	FieldHalftimeLead      Field = "halftime_lead"
	FieldHalftimeTotal     Field = "halftime_total"
	FieldSecondHalfTotal   Field = "second_half_total"
	FieldSpread            Field = "spread"
	FieldTotalLine         Field = "total_line"
	FieldHomeMoneyline     Field = "home_moneyline"
	FieldAwayMoneyline     Field = "away_moneyline"
	FieldLeadingSpread     Field = "leading_team_spread"
	FieldLosingSpread      Field = "losing_team_spread"
	FieldLeadingMoneyline  Field = "leading_team_moneyline"
	FieldLosingMoneyline   Field = "losing_team_moneyline"
	FieldLeadingScore      Field = "leading_team_score"
	FieldLosingScore       Field = "losing_team_score"
	FieldHomeRebounds      Field = "home_rebounds"
	FieldAwayRebounds      Field = "away_rebounds"
	FieldReboundsDiff      Field = "rebounds_differential"
	FieldHomeAssists       Field = "home_assists"
	FieldAwayAssists       Field = "away_assists"
	FieldAssistsDiff       Field = "assists_differential"
	FieldHomeTopScorer     Field = "home_top_scorer_points"
	FieldAwayTopScorer     Field = "away_top_scorer_points"
	FieldTopScorerDiff     Field = "top_scorer_differential"
	FieldLeadingTopScorer  Field = "leading_team_top_scorer_points"
	FieldFinalHomeScore    Field = "final_home_score"
	FieldFinalAwayScore    Field = "final_away_score"
	FieldFinalTotal        Field = "final_total"
	FieldFinalDifferential Field = "final_differential"
)

type resolver func(ec *EvaluationContext) (Value, bool)

var registry = buildRegistry()

func buildRegistry() map[Field]resolver {
	r := map[Field]resolver{
		FieldQuarter:           always(func(ec *EvaluationContext) Value { return Int(ec.Quarter) }),
		FieldClockSeconds:      always(func(ec *EvaluationContext) Value { return Int(ec.ClockSeconds) }),
		FieldHomeScore:         always(func(ec *EvaluationContext) Value { return Int(ec.HomeScore) }),
		FieldAwayScore:         always(func(ec *EvaluationContext) Value { return Int(ec.AwayScore) }),
		FieldTotalScore:        always(func(ec *EvaluationContext) Value { return Int(ec.Total()) }),
		FieldScoreDifferential: always(func(ec *EvaluationContext) Value { return Int(ec.Differential()) }),
		FieldCurrentLead:       always(func(ec *EvaluationContext) Value { return Int(ec.Lead()) }),
		FieldLeadingTeam:       always(func(ec *EvaluationContext) Value { return Text(string(ec.Leading)) }),
		FieldIsTied:            always(func(ec *EvaluationContext) Value { return Flag(ec.Leading == models.SideTie) }),
		FieldIsOvertime:        always(func(ec *EvaluationContext) Value { return Flag(ec.IsOvertime()) }),
		FieldStatus:            always(func(ec *EvaluationContext) Value { return Text(string(ec.Status)) }),
		FieldHalftimeDiff:      always(func(ec *EvaluationContext) Value { return Int(ec.Halftime.Differential()) }),
		FieldHalftimeLead:      always(func(ec *EvaluationContext) Value { return Int(abs(ec.Halftime.Differential())) }),
		FieldHalftimeTotal:     always(func(ec *EvaluationContext) Value { return Int(ec.Halftime.Total()) }),
		FieldSecondHalfTotal: always(func(ec *EvaluationContext) Value {
			return Int(ec.Quarters[2].Total() + ec.Quarters[3].Total())
		}),

		FieldSpread:        optionalFloat(func(ec *EvaluationContext) *float64 { return ec.Spread }),
		FieldTotalLine:     optionalFloat(func(ec *EvaluationContext) *float64 { return ec.TotalLine }),
		FieldHomeMoneyline: optionalFloat(func(ec *EvaluationContext) *float64 { return ec.HomeMoneyline }),
		FieldAwayMoneyline: optionalFloat(func(ec *EvaluationContext) *float64 { return ec.AwayMoneyline }),

		FieldLeadingSpread: func(ec *EvaluationContext) (Value, bool) {
			line, ok := ec.SpreadFor(ec.Leading)
			return Number(line), ok
		},
		FieldLosingSpread: func(ec *EvaluationContext) (Value, bool) {
			line, ok := ec.SpreadFor(ec.Leading.Opposite())
			return Number(line), ok
		},
		FieldLeadingMoneyline: func(ec *EvaluationContext) (Value, bool) {
			line, ok := ec.MoneylineFor(ec.Leading)
			return Number(line), ok
		},
		FieldLosingMoneyline: func(ec *EvaluationContext) (Value, bool) {
			line, ok := ec.MoneylineFor(ec.Leading.Opposite())
			return Number(line), ok
		},
		FieldLeadingScore: func(ec *EvaluationContext) (Value, bool) {
			score, ok := ec.ScoreFor(ec.Leading)
			return Int(score), ok
		},
		FieldLosingScore: func(ec *EvaluationContext) (Value, bool) {
			score, ok := ec.ScoreFor(ec.Leading.Opposite())
			return Int(score), ok
		},

		FieldHomeRebounds:  players(func(p *PlayerTotals) int { return p.HomeRebounds }),
		FieldAwayRebounds:  players(func(p *PlayerTotals) int { return p.AwayRebounds }),
		FieldReboundsDiff:  players(func(p *PlayerTotals) int { return p.HomeRebounds - p.AwayRebounds }),
		FieldHomeAssists:   players(func(p *PlayerTotals) int { return p.HomeAssists }),
		FieldAwayAssists:   players(func(p *PlayerTotals) int { return p.AwayAssists }),
		FieldAssistsDiff:   players(func(p *PlayerTotals) int { return p.HomeAssists - p.AwayAssists }),
		FieldHomeTopScorer: players(func(p *PlayerTotals) int { return p.HomeTopScorerPoints }),
		FieldAwayTopScorer: players(func(p *PlayerTotals) int { return p.AwayTopScorerPoints }),
		FieldTopScorerDiff: players(func(p *PlayerTotals) int {
			return p.HomeTopScorerPoints - p.AwayTopScorerPoints
		}),
		FieldLeadingTopScorer: func(ec *EvaluationContext) (Value, bool) {
			if ec.Players == nil {
				return Value{}, false
			}
			switch ec.Leading {
			case models.SideHome:
				return Int(ec.Players.HomeTopScorerPoints), true
			case models.SideAway:
				return Int(ec.Players.AwayTopScorerPoints), true
			default:
				return Value{}, false
			}
		},

		FieldFinalHomeScore:    final(func(p models.ScorePair) int { return p.Home }),
		FieldFinalAwayScore:    final(func(p models.ScorePair) int { return p.Away }),
		FieldFinalTotal:        final(func(p models.ScorePair) int { return p.Total() }),
		FieldFinalDifferential: final(func(p models.ScorePair) int { return p.Differential() }),
	}

	// Per-quarter fields are computed whether or not the quarter has been played.
	for q := 1; q <= RegulationQuarters; q++ {
		idx := q - 1
		r[Field(fmt.Sprintf("q%d_total", q))] = always(func(ec *EvaluationContext) Value {
			return Int(ec.Quarters[idx].Total())
		})
		r[Field(fmt.Sprintf("q%d_differential", q))] = always(func(ec *EvaluationContext) Value {
			return Int(ec.Quarters[idx].Differential())
		})
	}

	return r
}

// ParseField maps a configured field name to a registered Field
func ParseField(name string) (Field, bool) {
	f := Field(name)
	_, ok := registry[f]
	return f, ok
}

// KnownFields returns every registered field, sorted
func KnownFields() []Field {
	fields := make([]Field, 0, len(registry))
	for f := range registry {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Lookup resolves a field. Unknown fields and values absent from the snapshot
// report ok=false.
func (ec *EvaluationContext) Lookup(f Field) (Value, bool) {
	resolve, ok := registry[f]
	if !ok {
		return Value{}, false
	}
	return resolve(ec)
}

// Fields returns every field that resolves for this context
func (ec *EvaluationContext) Fields() map[Field]Value {
	out := make(map[Field]Value, len(registry))
	for f, resolve := range registry {
		if v, ok := resolve(ec); ok {
			out[f] = v
		}
	}
	return out
}

func always(fn func(ec *EvaluationContext) Value) resolver {
	return func(ec *EvaluationContext) (Value, bool) {
		return fn(ec), true
	}
}

func optionalFloat(fn func(ec *EvaluationContext) *float64) resolver {
	return func(ec *EvaluationContext) (Value, bool) {
		v := fn(ec)
		if v == nil {
			return Value{}, false
		}
		return Number(*v), true
	}
}

func players(fn func(p *PlayerTotals) int) resolver {
	return func(ec *EvaluationContext) (Value, bool) {
		if ec.Players == nil {
			return Value{}, false
		}
		return Int(fn(ec.Players)), true
	}
}

func final(fn func(p models.ScorePair) int) resolver {
	return func(ec *EvaluationContext) (Value, bool) {
		if ec.Final == nil {
			return Value{}, false
		}
		return Int(fn(*ec.Final)), true
	}
}
