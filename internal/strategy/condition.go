package strategy

import (
	"fmt"

	"github.com/yourusername/hoop-signals/internal/models"
)

// Operator is a comparison applied between a context field and a configured value
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpBetween            Operator = "between"
)

// IsNumeric reports whether the operator only applies to numeric fields
func (o Operator) IsNumeric() bool {
	switch o {
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual, OpBetween:
		return true
	default:
		return false
	}
}

func (o Operator) valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual, OpBetween:
		return true
	default:
		return false
	}
}

// Condition is a compiled predicate over one context field
type Condition struct {
	FieldName string
	Field     Field
	Known     bool
	Operator  Operator
	Value     Operand
	Value2    *Operand
}

// ConditionResult records how a condition evaluated, including the actual value used
type ConditionResult struct {
	Condition Condition
	Actual    Value
	Found     bool
	Matched   bool
}

// CompileCondition validates a persisted condition. Unknown field names compile
// successfully and evaluate to false, since configuration may reference fields a later
// release adds.
func CompileCondition(cfg models.ConditionConfig) (Condition, error) {
	if err := validate.Struct(cfg); err != nil {
		return Condition{}, fmt.Errorf("invalid condition: %w", err)
	}

	op := Operator(cfg.Operator)
	if !op.valid() {
		return Condition{}, fmt.Errorf("%w: %q", models.ErrUnknownOperator, cfg.Operator)
	}

	value, ok := ParseOperand(cfg.Value)
	if !ok {
		return Condition{}, fmt.Errorf("%w: condition on %q", models.ErrMissingValue, cfg.Field)
	}
	if op.IsNumeric() && !value.IsNum {
		return Condition{}, fmt.Errorf("%w: %s on %q requires a number, got %v", models.ErrMissingValue, op, cfg.Field, cfg.Value)
	}

	field, known := ParseField(cfg.Field)
	cond := Condition{
		FieldName: cfg.Field,
		Field:     field,
		Known:     known,
		Operator:  op,
		Value:     value,
	}

	if op == OpBetween {
		value2, ok := ParseOperand(cfg.Value2)
		if !ok || !value2.IsNum {
			return Condition{}, fmt.Errorf("%w: between on %q requires value2", models.ErrMissingValue, cfg.Field)
		}
		cond.Value2 = &value2
	}

	return cond, nil
}

// Evaluate tests the condition against the context
func (c Condition) Evaluate(ec *EvaluationContext) bool {
	return c.EvaluateDetailed(ec).Matched
}

// EvaluateDetailed tests the condition and reports the actual value used
func (c Condition) EvaluateDetailed(ec *EvaluationContext) ConditionResult {
	result := ConditionResult{Condition: c}
	if !c.Known {
		return result
	}
	actual, found := ec.Lookup(c.Field)
	if !found {
		return result
	}
	result.Actual = actual
	result.Found = true
	result.Matched = compare(c.Operator, actual, c.Value, c.Value2)
	return result
}

// String renders the condition for logs and diagnostics
func (c Condition) String() string {
	if c.Operator == OpBetween && c.Value2 != nil {
		return fmt.Sprintf("%s between %s and %s", c.FieldName, c.Value, *c.Value2)
	}
	return fmt.Sprintf("%s %s %s", c.FieldName, c.Operator, c.Value)
}

func compare(op Operator, actual Value, value Operand, value2 *Operand) bool {
	switch op {
	case OpEquals:
		return equalValues(actual, value)
	case OpNotEquals:
		return !equalValues(actual, value)
	}

	if !actual.IsNumber() || !value.IsNum {
		return false
	}

	switch op {
	case OpGreaterThan:
		return actual.Num > value.Num
	case OpLessThan:
		return actual.Num < value.Num
	case OpGreaterThanOrEqual:
		return actual.Num >= value.Num
	case OpLessThanOrEqual:
		return actual.Num <= value.Num
	case OpBetween:
		if value2 == nil || !value2.IsNum {
			return false
		}
		return value.Num <= actual.Num && actual.Num <= value2.Num
	default:
		return false
	}
}

// equalValues accepts numeric or string identity, so "4" equals quarter 4
func equalValues(actual Value, value Operand) bool {
	switch actual.Kind {
	case KindNumber:
		if value.IsNum {
			return actual.Num == value.Num
		}
		return actual.String() == value.Str
	case KindBool:
		if value.IsBool {
			return actual.Bool == value.Bool
		}
		return actual.String() == value.Str
	default:
		return actual.Str == value.Str
	}
}
