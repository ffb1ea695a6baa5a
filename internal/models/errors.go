package models

import "errors"

// Custom errors
var (
	ErrStrategyNameRequired   = errors.New("strategy name is required")
	ErrNotFound               = errors.New("record not found")
	ErrDuplicateKey           = errors.New("duplicate key violation")
	ErrInvalidClock           = errors.New("invalid clock format")
	ErrInvalidStopAt          = errors.New("invalid stop_at value")
	ErrTwoStageShape          = errors.New("two-stage strategy requires entry and close triggers")
	ErrUnknownRuleType        = errors.New("unknown rule type")
	ErrUnknownRequirementType = errors.New("unknown win requirement type")
	ErrUnknownOperator        = errors.New("unknown operator")
	ErrMissingValue           = errors.New("missing or non-numeric value")
)
