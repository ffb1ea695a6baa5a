package strategy

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/yourusername/hoop-signals/internal/models"
)

// RuleType enumerates strategy-level pre-conditions
type RuleType string

const (
	RuleFirstHalfOnly   RuleType = "first_half_only"
	RuleSecondHalfOnly  RuleType = "second_half_only"
	RuleSpecificQuarter RuleType = "specific_quarter"
	RuleExcludeOvertime RuleType = "exclude_overtime"
	RuleStopAt          RuleType = "stop_at"
	RuleMinimumScore    RuleType = "minimum_score"
)

var stopAtPattern = regexp.MustCompile(`^\s*[Qq](\d+)\s+(\d+:\d{2})\s*$`)

// Rule is a compiled strategy-level gate
type Rule struct {
	Type         RuleType
	Quarter      int
	ClockSeconds int
	MinScore     float64
}

// GateResult is the outcome of running a rule list
type GateResult struct {
	Passed     bool
	FailedRule *Rule
	Reason     string
}

// CompileRule validates a persisted rule and parses its value
func CompileRule(cfg models.RuleConfig) (Rule, error) {
	if err := validate.Struct(cfg); err != nil {
		return Rule{}, fmt.Errorf("invalid rule: %w", err)
	}

	rule := Rule{Type: RuleType(cfg.Type)}
	switch rule.Type {
	case RuleFirstHalfOnly, RuleSecondHalfOnly, RuleExcludeOvertime:
		return rule, nil

	case RuleSpecificQuarter:
		v, _ := ParseOperand(cfg.Value)
		quarter, ok := v.Int()
		if !ok {
			return Rule{}, fmt.Errorf("%w: specific_quarter value %v must be a whole number", models.ErrMissingValue, cfg.Value)
		}
		rule.Quarter = quarter
		return rule, nil

	case RuleMinimumScore:
		v, ok := ParseOperand(cfg.Value)
		if !ok || !v.IsNum {
			return Rule{}, fmt.Errorf("%w: minimum_score value %v", models.ErrMissingValue, cfg.Value)
		}
		rule.MinScore = v.Num
		return rule, nil

	case RuleStopAt:
		raw, _ := cfg.Value.(string)
		quarter, secs, err := ParseStopAt(raw)
		if err != nil {
			return Rule{}, err
		}
		rule.Quarter = quarter
		rule.ClockSeconds = secs
		return rule, nil

	default:
		return Rule{}, fmt.Errorf("%w: %q", models.ErrUnknownRuleType, cfg.Type)
	}
}

// ParseStopAt parses "Q<N> M:SS" into a quarter and clock-remaining seconds
func ParseStopAt(value string) (int, int, error) {
	m := stopAtPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", models.ErrInvalidStopAt, value)
	}
	quarter, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", models.ErrInvalidStopAt, value)
	}
	secs, err := parseClockStrict(m[2])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", models.ErrInvalidStopAt, value)
	}
	return quarter, secs, nil
}

// String renders the rule with its value
func (r Rule) String() string {
	switch r.Type {
	case RuleSpecificQuarter:
		return fmt.Sprintf("%s(%d)", r.Type, r.Quarter)
	case RuleStopAt:
		return fmt.Sprintf("%s(Q%d %s)", r.Type, r.Quarter, FormatClock(r.ClockSeconds))
	case RuleMinimumScore:
		return fmt.Sprintf("%s(%s)", r.Type, formatNumber(r.MinScore))
	default:
		return string(r.Type)
	}
}

// Check evaluates a single rule, returning a reason when it fails
func (r Rule) Check(ec *EvaluationContext) (bool, string) {
	q := ec.Quarter
	switch r.Type {
	case RuleFirstHalfOnly:
		if q > 2 {
			return false, fmt.Sprintf("first half only: blocked in Q%d", q)
		}
	case RuleSecondHalfOnly:
		if q < 3 {
			return false, fmt.Sprintf("second half only: blocked in Q%d", q)
		}
	case RuleSpecificQuarter:
		if q != r.Quarter {
			return false, fmt.Sprintf("specific quarter: currently Q%d, required Q%d", q, r.Quarter)
		}
	case RuleExcludeOvertime:
		if q > RegulationQuarters {
			return false, fmt.Sprintf("blocked in Q%d (overtime excluded)", q)
		}
	case RuleStopAt:
		target := fmt.Sprintf("Q%d %s", r.Quarter, FormatClock(r.ClockSeconds))
		if q > r.Quarter {
			return false, fmt.Sprintf("stop at %s: Q%d is past Q%d", target, q, r.Quarter)
		}
		if q == r.Quarter && ec.ClockSeconds < r.ClockSeconds {
			return false, fmt.Sprintf("passed %s (now Q%d %s)", target, q, FormatClock(ec.ClockSeconds))
		}
	case RuleMinimumScore:
		total := ec.Total()
		if float64(total) < r.MinScore {
			return false, fmt.Sprintf("total score %d below minimum %s", total, formatNumber(r.MinScore))
		}
	}
	return true, ""
}

// PassesRules runs rules in order and stops at the first failure. An empty list passes.
func PassesRules(rules []Rule, ec *EvaluationContext) GateResult {
	for i := range rules {
		if ok, reason := rules[i].Check(ec); !ok {
			failed := rules[i]
			return GateResult{Passed: false, FailedRule: &failed, Reason: reason}
		}
	}
	return GateResult{Passed: true}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
