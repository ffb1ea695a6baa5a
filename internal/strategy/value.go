package strategy

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ValueKind is the scalar type of a context value
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindString
	KindBool
)

// Value is a scalar resolved from the evaluation context
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Bool bool
}

// Number builds a numeric value
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// Int builds a numeric value from an int
func Int(i int) Value {
	return Value{Kind: KindNumber, Num: float64(i)}
}

// Text builds a string value
func Text(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Flag builds a boolean value
func Flag(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// IsNumber reports whether the value is numeric
func (v Value) IsNumber() bool {
	return v.Kind == KindNumber
}

// String renders the value for diagnostics and string comparison
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// Interface returns the value as a plain Go scalar
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	default:
		return v.Str
	}
}

// MarshalJSON encodes the value as its plain scalar
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Operand is a configured comparison value. Numeric strings are accepted as numbers.
type Operand struct {
	Raw    any
	Num    float64
	IsNum  bool
	Str    string
	IsBool bool
	Bool   bool
}

// ParseOperand normalizes a JSON-decoded configuration value
func ParseOperand(raw any) (Operand, bool) {
	op := Operand{Raw: raw}
	switch v := raw.(type) {
	case nil:
		return op, false
	case float64:
		op.Num, op.IsNum = v, true
		op.Str = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		op.Num, op.IsNum = float64(v), true
		op.Str = strconv.FormatFloat(float64(v), 'f', -1, 64)
	case int:
		op.Num, op.IsNum = float64(v), true
		op.Str = strconv.Itoa(v)
	case int64:
		op.Num, op.IsNum = float64(v), true
		op.Str = strconv.FormatInt(v, 10)
	case json.Number:
		op.Str = v.String()
		if f, err := v.Float64(); err == nil {
			op.Num, op.IsNum = f, true
		}
	case bool:
		op.Bool, op.IsBool = v, true
		op.Str = strconv.FormatBool(v)
	case string:
		op.Str = v
		trimmed := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			op.Num, op.IsNum = f, true
		}
		if b, err := strconv.ParseBool(trimmed); err == nil && !op.IsNum {
			op.Bool, op.IsBool = b, true
		}
	default:
		return op, false
	}
	return op, true
}

// Int returns the operand as a whole number. Fractional and non-numeric operands report false.
func (o Operand) Int() (int, bool) {
	if !o.IsNum || math.IsInf(o.Num, 0) || math.IsNaN(o.Num) || o.Num != math.Trunc(o.Num) {
		return 0, false
	}
	if o.Num > math.MaxInt32 || o.Num < math.MinInt32 {
		return 0, false
	}
	return int(o.Num), true
}

// String renders the operand as configured
func (o Operand) String() string {
	return o.Str
}
