package strategy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourusername/hoop-signals/internal/models"
)

// WinRequirementType enumerates post-game checks
type WinRequirementType string

const (
	WinLeadingTeamWins WinRequirementType = "leading_team_wins"
	WinHomeWins        WinRequirementType = "home_wins"
	WinAwayWins        WinRequirementType = "away_wins"
	WinFinalLeadGTE    WinRequirementType = "final_lead_gte"
	WinFinalLeadLTE    WinRequirementType = "final_lead_lte"
)

// ErrNoFinalScore is returned when the snapshot carries no final score pair
var ErrNoFinalScore = errors.New("snapshot has no final score")

// WinRequirement is a compiled post-game condition
type WinRequirement struct {
	Type  WinRequirementType
	Value int
}

func (w WinRequirement) String() string {
	switch w.Type {
	case WinFinalLeadGTE, WinFinalLeadLTE:
		return fmt.Sprintf("%s(%d)", w.Type, w.Value)
	default:
		return string(w.Type)
	}
}

// RequirementResult records how a single win requirement evaluated
type RequirementResult struct {
	Requirement WinRequirement
	Passed      bool
	Reason      string
}

// OutcomeResult is the scored result of a finished signal
type OutcomeResult struct {
	Outcome      models.Outcome
	Requirements []RequirementResult
	Final        models.ScorePair
	Summary      string
}

// CompileWinRequirements validates persisted win requirements
func CompileWinRequirements(configs []models.WinRequirementConfig) ([]WinRequirement, error) {
	reqs := make([]WinRequirement, 0, len(configs))
	for i, cfg := range configs {
		if err := validate.Struct(cfg); err != nil {
			return nil, fmt.Errorf("win requirement %d: %w", i, err)
		}
		req := WinRequirement{Type: WinRequirementType(cfg.Type)}
		switch req.Type {
		case WinLeadingTeamWins, WinHomeWins, WinAwayWins:
		case WinFinalLeadGTE, WinFinalLeadLTE:
			v, _ := ParseOperand(cfg.Value)
			n, ok := v.Int()
			if !ok {
				return nil, fmt.Errorf("win requirement %d: %w: %s value %v must be a whole number", i, models.ErrMissingValue, cfg.Type, cfg.Value)
			}
			req.Value = n
		default:
			return nil, fmt.Errorf("win requirement %d: %w: %q", i, models.ErrUnknownRequirementType, cfg.Type)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// EvaluateOutcome classifies a finished signal. With win requirements every one must pass
// for a win; otherwise the bet recorded on the signal is graded against the final score.
func EvaluateOutcome(sig *models.Signal, snap *models.GameSnapshot, reqs []WinRequirement) (*OutcomeResult, error) {
	final, ok := snap.FinalScore()
	if !ok {
		return nil, fmt.Errorf("game %s: %w", snap.GameID, ErrNoFinalScore)
	}

	result := &OutcomeResult{Final: final}
	if len(reqs) > 0 {
		result.Outcome = models.OutcomeWin
		var failed []string
		for _, req := range reqs {
			rr := checkRequirement(req, sig.LeadingTeamAtEntry, final)
			result.Requirements = append(result.Requirements, rr)
			if !rr.Passed {
				result.Outcome = models.OutcomeLoss
				failed = append(failed, rr.Reason)
			}
		}
		if result.Outcome == models.OutcomeWin {
			result.Summary = fmt.Sprintf("final %d-%d: all %d requirements met", final.Home, final.Away, len(reqs))
		} else {
			result.Summary = fmt.Sprintf("final %d-%d: %s", final.Home, final.Away, strings.Join(failed, "; "))
		}
		return result, nil
	}

	result.Outcome, result.Summary = gradeBet(sig, final)
	return result, nil
}

func checkRequirement(req WinRequirement, leader models.TeamSide, final models.ScorePair) RequirementResult {
	rr := RequirementResult{Requirement: req}
	winner := LeadingSide(final.Home, final.Away)

	switch req.Type {
	case WinHomeWins, WinAwayWins:
		want := models.SideHome
		if req.Type == WinAwayWins {
			want = models.SideAway
		}
		rr.Passed = winner == want
		if !rr.Passed {
			if winner == models.SideTie {
				rr.Reason = fmt.Sprintf("%s: game ended tied", req)
			} else {
				rr.Reason = fmt.Sprintf("%s: %s won", req, winner)
			}
		}
		return rr
	}

	if leader != models.SideHome && leader != models.SideAway {
		rr.Reason = fmt.Sprintf("%s: cannot evaluate without a leading team at entry", req)
		return rr
	}

	lead := final.Home - final.Away
	if leader == models.SideAway {
		lead = -lead
	}

	switch req.Type {
	case WinLeadingTeamWins:
		rr.Passed = lead > 0
		if !rr.Passed {
			rr.Reason = fmt.Sprintf("%s: %s finished %s", req, leader, describeMargin(lead))
		}
	case WinFinalLeadGTE:
		rr.Passed = lead >= req.Value
		if !rr.Passed {
			rr.Reason = fmt.Sprintf("%s: %s final lead %d below %d", req, leader, lead, req.Value)
		}
	case WinFinalLeadLTE:
		rr.Passed = lead <= req.Value
		if !rr.Passed {
			rr.Reason = fmt.Sprintf("%s: %s final lead %d above %d", req, leader, lead, req.Value)
		}
	default:
		rr.Reason = fmt.Sprintf("unsupported requirement %q", req.Type)
	}
	return rr
}

func gradeBet(sig *models.Signal, final models.ScorePair) (models.Outcome, string) {
	score := fmt.Sprintf("final %d-%d", final.Home, final.Away)

	switch sig.OddsType {
	case models.OddsTypeSpread:
		if sig.ActualOdds == nil {
			return models.OutcomePush, score + ": no spread captured"
		}
		margin, ok := sideMargin(sig.BetSide, final)
		if !ok {
			return models.OutcomePush, score + ": no bet side recorded"
		}
		line := decimal.NewFromFloat(*sig.ActualOdds)
		outcome := ResolveSpread(decimal.NewFromInt(int64(margin)), line)
		return outcome, fmt.Sprintf("%s: %s %s against %s", score, sig.BetSide, describeMargin(margin), line)

	case models.OddsTypeMoneyline:
		margin, ok := sideMargin(sig.BetSide, final)
		if !ok {
			return models.OutcomePush, score + ": no bet side recorded"
		}
		switch {
		case margin > 0:
			return models.OutcomeWin, fmt.Sprintf("%s: %s won", score, sig.BetSide)
		case margin < 0:
			return models.OutcomeLoss, fmt.Sprintf("%s: %s lost", score, sig.BetSide)
		default:
			return models.OutcomePush, score + ": tied"
		}

	case models.OddsTypeTotalOver, models.OddsTypeTotalUnder:
		if sig.ActualOdds == nil {
			return models.OutcomePush, score + ": no total line captured"
		}
		line := decimal.NewFromFloat(*sig.ActualOdds)
		outcome := ResolveTotal(sig.OddsType, decimal.NewFromInt(int64(final.Total())), line)
		return outcome, fmt.Sprintf("%s: total %d against %s %s", score, final.Total(), sig.OddsType, line)

	default:
		return models.OutcomePush, score + ": no bet recorded"
	}
}

// ResolveSpread grades a spread bet from the bet side's final margin and its line
func ResolveSpread(margin, line decimal.Decimal) models.Outcome {
	switch adjusted := margin.Add(line); adjusted.Sign() {
	case 1:
		return models.OutcomeWin
	case -1:
		return models.OutcomeLoss
	default:
		return models.OutcomePush
	}
}

// ResolveTotal grades an over/under bet on the combined final score
func ResolveTotal(oddsType models.OddsType, total, line decimal.Decimal) models.Outcome {
	cmp := total.Cmp(line)
	if cmp == 0 {
		return models.OutcomePush
	}
	over := cmp > 0
	if oddsType == models.OddsTypeTotalUnder {
		over = !over
	}
	if over {
		return models.OutcomeWin
	}
	return models.OutcomeLoss
}

func sideMargin(side models.BetSide, final models.ScorePair) (int, bool) {
	switch side {
	case models.BetSideHome:
		return final.Home - final.Away, true
	case models.BetSideAway:
		return final.Away - final.Home, true
	default:
		return 0, false
	}
}

func describeMargin(margin int) string {
	switch {
	case margin > 0:
		return fmt.Sprintf("up %d", margin)
	case margin < 0:
		return fmt.Sprintf("down %d", -margin)
	default:
		return "level"
	}
}
