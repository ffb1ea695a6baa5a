package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TriggerRole distinguishes triggers that open a signal from those that confirm it
type TriggerRole string

const (
	TriggerRoleEntry TriggerRole = "entry"
	TriggerRoleClose TriggerRole = "close"
)

// DefaultExpiryClock is the Q4 clock at which unconfirmed signals expire
const DefaultExpiryClock = "2:20"

// Strategy represents a user-configured signal strategy as stored by the persistence side.
// Rules, OddsRequirement and WinRequirements hold operator-authored JSON and are compiled
// by the strategy package before evaluation.
type Strategy struct {
	ID              uuid.UUID       `db:"id" json:"id" validate:"required"`
	Name            string          `db:"name" json:"name" validate:"required,min=1,max=255"`
	Description     string          `db:"description" json:"description"`
	Active          bool            `db:"active" json:"active"`
	TwoStage        bool            `db:"two_stage" json:"two_stage"`
	ExpiryClock     string          `db:"expiry_clock" json:"expiry_clock"`
	Rules           json.RawMessage `db:"rules" json:"rules,omitempty"`
	OddsRequirement json.RawMessage `db:"odds_requirement" json:"odds_requirement,omitempty"`
	WinRequirements json.RawMessage `db:"win_requirements" json:"win_requirements,omitempty"`
	Triggers        []*Trigger      `db:"-" json:"triggers"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Trigger is an ordered AND-conjunction of conditions attached to a strategy
type Trigger struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	StrategyID uuid.UUID       `db:"strategy_id" json:"strategy_id"`
	Ordinal    int             `db:"ordinal" json:"ordinal"`
	Role       TriggerRole     `db:"role" json:"role" validate:"required,oneof=entry close"`
	Conditions json.RawMessage `db:"conditions" json:"conditions"`
}

// Validate performs basic validation on the strategy
func (s *Strategy) Validate() error {
	if s.Name == "" {
		return ErrStrategyNameRequired
	}
	return nil
}

// ConditionConfig is the persisted shape of one condition
type ConditionConfig struct {
	Field    string `json:"field" validate:"required"`
	Operator string `json:"operator" validate:"required"`
	Value    any    `json:"value"`
	Value2   any    `json:"value2,omitempty"`
}

// RuleConfig is the persisted shape of one strategy-level rule
type RuleConfig struct {
	Type  string `json:"type" validate:"required"`
	Value any    `json:"value,omitempty"`
}

// WinRequirementConfig is the persisted shape of one post-game win requirement
type WinRequirementConfig struct {
	Type  string `json:"type" validate:"required"`
	Value any    `json:"value,omitempty"`
}

// OddsRequirementConfig is the persisted shape of the live-line requirement
type OddsRequirementConfig struct {
	Type     string `json:"type" validate:"required,oneof=spread moneyline total_over total_under"`
	Side     string `json:"side,omitempty" validate:"omitempty,oneof=leading trailing home away"`
	Operator string `json:"operator" validate:"required"`
	Value    any    `json:"value"`
}
