package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yourusername/hoop-signals/internal/models"
)

// OddsSide selects whose line an odds requirement reads
type OddsSide string

const (
	OddsSideLeading  OddsSide = "leading"
	OddsSideTrailing OddsSide = "trailing"
	OddsSideHome     OddsSide = "home"
	OddsSideAway     OddsSide = "away"
)

// OddsRequirement is the live-line condition that must hold before a bet is taken
type OddsRequirement struct {
	Type     models.OddsType
	Side     OddsSide
	Operator Operator
	Value    decimal.Decimal
}

// OddsCheck is the result of testing an odds requirement against a tick
type OddsCheck struct {
	Satisfied bool
	BetSide   models.BetSide
	Line      float64
	Reason    string
}

// CompileOddsRequirement validates a persisted odds requirement
func CompileOddsRequirement(cfg models.OddsRequirementConfig) (*OddsRequirement, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid odds requirement: %w", err)
	}
	op := Operator(cfg.Operator)
	if !op.valid() || op == OpNotEquals {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownOperator, cfg.Operator)
	}
	v, ok := ParseOperand(cfg.Value)
	if !ok || !v.IsNum {
		return nil, fmt.Errorf("%w: odds requirement value %v", models.ErrMissingValue, cfg.Value)
	}

	req := &OddsRequirement{
		Type:     models.OddsType(cfg.Type),
		Side:     OddsSide(cfg.Side),
		Operator: op,
		Value:    decimal.NewFromFloat(v.Num),
	}
	if op == OpBetween {
		return nil, fmt.Errorf("%w: between is not supported for odds requirements", models.ErrUnknownOperator)
	}
	if (req.Type == models.OddsTypeSpread || req.Type == models.OddsTypeMoneyline) && req.Side == "" {
		req.Side = OddsSideLeading
	}
	return req, nil
}

// String renders the requirement for persistence as the "required odds" of a signal
func (o *OddsRequirement) String() string {
	switch o.Type {
	case models.OddsTypeTotalOver, models.OddsTypeTotalUnder:
		return fmt.Sprintf("%s %s %s", o.Type, o.Operator, o.Value)
	default:
		return fmt.Sprintf("%s %s %s %s", o.Type, o.Side, o.Operator, o.Value)
	}
}

// Check tests the live line. leadingAtEntry anchors leading/trailing to the team that led
// when the signal opened.
func (o *OddsRequirement) Check(ec *EvaluationContext, leadingAtEntry models.TeamSide) OddsCheck {
	var (
		line float64
		ok   bool
		bet  models.BetSide
	)

	switch o.Type {
	case models.OddsTypeTotalOver, models.OddsTypeTotalUnder:
		if ec.TotalLine == nil {
			return OddsCheck{Reason: "no total line available"}
		}
		line, ok = *ec.TotalLine, true
		bet = models.BetSideOver
		if o.Type == models.OddsTypeTotalUnder {
			bet = models.BetSideUnder
		}

	case models.OddsTypeSpread, models.OddsTypeMoneyline:
		side := o.resolveSide(leadingAtEntry)
		if side == models.SideTie {
			return OddsCheck{Reason: fmt.Sprintf("cannot resolve %s side: no leader at entry", o.Side)}
		}
		if o.Type == models.OddsTypeSpread {
			line, ok = ec.SpreadFor(side)
		} else {
			line, ok = ec.MoneylineFor(side)
		}
		if !ok {
			return OddsCheck{Reason: fmt.Sprintf("no %s line available for %s", o.Type, side)}
		}
		bet = models.BetSide(side)

	default:
		return OddsCheck{Reason: fmt.Sprintf("unsupported odds type %q", o.Type)}
	}

	actual := decimal.NewFromFloat(line)
	check := OddsCheck{BetSide: bet, Line: line}
	check.Satisfied = compareDecimal(o.Operator, actual, o.Value)
	if !check.Satisfied {
		check.Reason = fmt.Sprintf("%s line %s does not satisfy %s %s", o.Type, actual, o.Operator, o.Value)
	}
	return check
}

func (o *OddsRequirement) resolveSide(leadingAtEntry models.TeamSide) models.TeamSide {
	switch o.Side {
	case OddsSideHome:
		return models.SideHome
	case OddsSideAway:
		return models.SideAway
	case OddsSideTrailing:
		return leadingAtEntry.Opposite()
	default:
		if leadingAtEntry == models.SideHome || leadingAtEntry == models.SideAway {
			return leadingAtEntry
		}
		return models.SideTie
	}
}

func compareDecimal(op Operator, actual, value decimal.Decimal) bool {
	switch op {
	case OpEquals:
		return actual.Equal(value)
	case OpGreaterThan:
		return actual.GreaterThan(value)
	case OpLessThan:
		return actual.LessThan(value)
	case OpGreaterThanOrEqual:
		return actual.GreaterThanOrEqual(value)
	case OpLessThanOrEqual:
		return actual.LessThanOrEqual(value)
	default:
		return false
	}
}
