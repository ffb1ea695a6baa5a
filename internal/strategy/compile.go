package strategy

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yourusername/hoop-signals/internal/models"
)

var validate = validator.New()

// Compiled is a strategy whose JSON configuration has been parsed and validated once.
// A compiled strategy with warnings that affect its shape is inert and never opens signals.
type Compiled struct {
	ID                 uuid.UUID
	Name               string
	Active             bool
	TwoStage           bool
	EntryTriggers      []*Trigger
	CloseTriggers      []*Trigger
	Rules              []Rule
	Odds               *OddsRequirement
	WinRequirements    []WinRequirement
	ExpiryClock        string
	ExpiryClockSeconds int
	Warnings           []string

	inert bool
}

// Compile parses a strategy record. It never fails: configuration errors are recorded as
// warnings and degrade the strategy to inert.
func Compile(rec *models.Strategy) *Compiled {
	c := &Compiled{
		ID:       rec.ID,
		Name:     rec.Name,
		Active:   rec.Active,
		TwoStage: rec.TwoStage,
	}

	if err := rec.Validate(); err != nil {
		c.fail(err.Error())
	}

	c.compileExpiry(rec.ExpiryClock)
	c.compileRules(rec.Rules)
	c.compileOdds(rec.OddsRequirement)
	c.compileWinRequirements(rec.WinRequirements)
	c.compileTriggers(rec.Triggers)

	if c.TwoStage && (len(c.EntryTriggers) == 0 || len(c.CloseTriggers) == 0) {
		c.fail(fmt.Sprintf("%v: %d entry and %d close triggers", models.ErrTwoStageShape, len(c.EntryTriggers), len(c.CloseTriggers)))
	}
	if !c.TwoStage && len(c.CloseTriggers) > 0 {
		c.warn(fmt.Sprintf("single-stage strategy has %d close triggers; they are ignored", len(c.CloseTriggers)))
	}
	if len(c.EntryTriggers) == 0 {
		c.warn("strategy has no entry triggers")
	}

	return c
}

// Inert reports whether configuration errors disabled the strategy
func (c *Compiled) Inert() bool {
	return c.inert
}

// Enabled reports whether the strategy can open new signals
func (c *Compiled) Enabled() bool {
	return c.Active && !c.inert
}

// OddsType returns the market the strategy bets
func (c *Compiled) OddsType() models.OddsType {
	if c.Odds == nil {
		return models.OddsTypeMoneyline
	}
	return c.Odds.Type
}

// RequiredOdds renders the odds requirement, or "" when none is configured
func (c *Compiled) RequiredOdds() string {
	if c.Odds == nil {
		return ""
	}
	return c.Odds.String()
}

// Expired reports whether the game clock has reached the strategy's Q4 expiry point.
// Any overtime quarter is past it.
func (c *Compiled) Expired(ec *EvaluationContext) bool {
	if ec.Quarter > RegulationQuarters {
		return true
	}
	return ec.Quarter == RegulationQuarters && ec.ClockSeconds <= c.ExpiryClockSeconds
}

func (c *Compiled) warn(msg string) {
	c.Warnings = append(c.Warnings, msg)
}

func (c *Compiled) fail(msg string) {
	c.warn(msg)
	c.inert = true
}

func (c *Compiled) compileExpiry(raw string) {
	c.ExpiryClock = models.DefaultExpiryClock
	if raw != "" {
		if _, err := parseClockStrict(raw); err != nil {
			c.warn(fmt.Sprintf("expiry clock %q: %v; using %s", raw, err, models.DefaultExpiryClock))
		} else {
			c.ExpiryClock = raw
		}
	}
	c.ExpiryClockSeconds = ParseClock(c.ExpiryClock)
}

func (c *Compiled) compileRules(raw json.RawMessage) {
	if isEmptyJSON(raw) {
		return
	}
	var configs []models.RuleConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		c.fail(fmt.Sprintf("malformed rules: %v", err))
		return
	}
	rules := make([]Rule, 0, len(configs))
	for i, cfg := range configs {
		rule, err := CompileRule(cfg)
		if err != nil {
			c.fail(fmt.Sprintf("rule %d: %v", i, err))
			return
		}
		rules = append(rules, rule)
	}
	c.Rules = rules
}

func (c *Compiled) compileOdds(raw json.RawMessage) {
	if isEmptyJSON(raw) {
		return
	}
	var cfg models.OddsRequirementConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		c.fail(fmt.Sprintf("malformed odds requirement: %v", err))
		return
	}
	req, err := CompileOddsRequirement(cfg)
	if err != nil {
		c.fail(err.Error())
		return
	}
	c.Odds = req
}

func (c *Compiled) compileWinRequirements(raw json.RawMessage) {
	if isEmptyJSON(raw) {
		return
	}
	var configs []models.WinRequirementConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		c.fail(fmt.Sprintf("malformed win requirements: %v", err))
		return
	}
	reqs, err := CompileWinRequirements(configs)
	if err != nil {
		c.fail(err.Error())
		return
	}
	c.WinRequirements = reqs
}

func (c *Compiled) compileTriggers(records []*models.Trigger) {
	sorted := make([]*models.Trigger, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			sorted = append(sorted, rec)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Ordinal < sorted[j].Ordinal })

	for _, rec := range sorted {
		t, warnings := CompileTrigger(rec)
		for _, w := range warnings {
			c.warn(w)
		}
		switch rec.Role {
		case models.TriggerRoleEntry:
			c.EntryTriggers = append(c.EntryTriggers, t)
		case models.TriggerRoleClose:
			c.CloseTriggers = append(c.CloseTriggers, t)
		default:
			c.warn(fmt.Sprintf("trigger %s has unknown role %q", rec.ID, rec.Role))
		}
	}
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := string(raw)
	return len(raw) == 0 || s == "null" || s == "[]" || s == "{}"
}
