package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/yourusername/hoop-signals/internal/models"
)

// Trigger is a compiled AND-conjunction of conditions
type Trigger struct {
	ID         uuid.UUID
	Ordinal    int
	Role       models.TriggerRole
	Conditions []Condition
}

// TriggerResult reports whether a trigger fired and how each condition evaluated
type TriggerResult struct {
	TriggerID uuid.UUID
	Role      models.TriggerRole
	Fired     bool
	Matched   []ConditionResult
	Failed    []ConditionResult
}

// CompileTrigger parses a persisted trigger. Any malformed condition leaves the trigger
// with no conditions, which never fires.
func CompileTrigger(rec *models.Trigger) (*Trigger, []string) {
	t := &Trigger{ID: rec.ID, Ordinal: rec.Ordinal, Role: rec.Role}
	var warnings []string

	if len(rec.Conditions) == 0 || string(rec.Conditions) == "null" {
		return t, []string{fmt.Sprintf("trigger %s has no conditions", rec.ID)}
	}

	var configs []models.ConditionConfig
	if err := json.Unmarshal(rec.Conditions, &configs); err != nil {
		return t, []string{fmt.Sprintf("trigger %s: malformed conditions: %v", rec.ID, err)}
	}

	conditions := make([]Condition, 0, len(configs))
	for i, cfg := range configs {
		cond, err := CompileCondition(cfg)
		if err != nil {
			return t, []string{fmt.Sprintf("trigger %s condition %d: %v", rec.ID, i, err)}
		}
		if !cond.Known {
			warnings = append(warnings, fmt.Sprintf("trigger %s condition %d: unknown field %q", rec.ID, i, cond.FieldName))
		}
		conditions = append(conditions, cond)
	}

	t.Conditions = conditions
	return t, warnings
}

// Evaluate tests every condition. A trigger with no conditions never fires.
func (t *Trigger) Evaluate(ec *EvaluationContext) TriggerResult {
	result := TriggerResult{TriggerID: t.ID, Role: t.Role}
	for _, c := range t.Conditions {
		cr := c.EvaluateDetailed(ec)
		if cr.Matched {
			result.Matched = append(result.Matched, cr)
		} else {
			result.Failed = append(result.Failed, cr)
		}
	}
	result.Fired = len(t.Conditions) > 0 && len(result.Failed) == 0
	return result
}

// EvaluateAny evaluates triggers in order and returns the first that fired along with
// every result produced.
func EvaluateAny(triggers []*Trigger, ec *EvaluationContext) (*TriggerResult, []TriggerResult) {
	results := make([]TriggerResult, 0, len(triggers))
	var fired *TriggerResult
	for _, t := range triggers {
		r := t.Evaluate(ec)
		results = append(results, r)
		if r.Fired && fired == nil {
			first := r
			fired = &first
		}
	}
	return fired, results
}
