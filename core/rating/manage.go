package rating

import (
	"time"

	"github.com/shopspring/decimal"

	"freight-rating/internal/errors"
)

// RuleUpdate carries the fields to merge into an existing rule. Nil fields are
// left untouched. The Clear flags remove the optional maximum charge and end
// of validity; combining a Clear flag with a value for the same field is an
// error.
type RuleUpdate struct {
	Name               *string            `json:"name,omitempty"`
	TransportMode      *TransportMode     `json:"transport_mode,omitempty"`
	CalculationMethod  *CalculationMethod `json:"calculation_method,omitempty"`
	Unit               *Unit              `json:"unit,omitempty"`
	BasePrice          *decimal.Decimal   `json:"base_price,omitempty"`
	MinimumCharge      *decimal.Decimal   `json:"minimum_charge,omitempty"`
	MaximumCharge      *decimal.Decimal   `json:"maximum_charge,omitempty"`
	ClearMaximumCharge bool               `json:"clear_maximum_charge,omitempty"`
	IsActive           *bool              `json:"is_active,omitempty"`
	ValidFrom          *time.Time         `json:"valid_from,omitempty"`
	ValidTo            *time.Time         `json:"valid_to,omitempty"`
	ClearValidTo       bool               `json:"clear_valid_to,omitempty"`
	Description        *string            `json:"description,omitempty"`
}

// AddRule validates and appends a rule. A missing id is generated and the
// creation timestamps are stamped.
func (e *Engine) AddRule(rule PricingRule) (PricingRule, error) {
	if err := ValidateRule(rule); err != nil {
		return PricingRule{}, err
	}
	if rule.ID == "" {
		rule.ID = e.newID()
	}
	if _, ok := e.ruleIndex(rule.ID); ok {
		return PricingRule{}, errors.Config(errors.CodeDuplicateID, "duplicate rule id %q", rule.ID)
	}

	now := e.now()
	rule.Unit = NormalizeUnit(rule.Unit)
	rule.CreatedAt = now
	rule.UpdatedAt = now
	e.config.Rules = append(e.config.Rules, rule.clone())
	return rule, nil
}

// UpdateRule merges update into the rule with the given id and bumps UpdatedAt.
func (e *Engine) UpdateRule(id string, update RuleUpdate) (PricingRule, error) {
	i, ok := e.ruleIndex(id)
	if !ok {
		return PricingRule{}, errors.RuleNotFound(id)
	}

	if update.ClearMaximumCharge && update.MaximumCharge != nil {
		return PricingRule{}, errors.Config(errors.CodeInvalidRule, "rule %q: maximum_charge cannot be set and cleared at once", id)
	}
	if update.ClearValidTo && update.ValidTo != nil {
		return PricingRule{}, errors.Config(errors.CodeInvalidRule, "rule %q: valid_to cannot be set and cleared at once", id)
	}

	rule := e.config.Rules[i].clone()
	if update.Name != nil {
		rule.Name = *update.Name
	}
	if update.TransportMode != nil && *update.TransportMode != rule.TransportMode {
		// a new mode brings its own method and unit; explicit values below win
		rule.TransportMode = *update.TransportMode
		rule.CalculationMethod = rule.TransportMode.Method()
		rule.Unit = rule.CalculationMethod.Unit()
	}
	if update.CalculationMethod != nil {
		rule.CalculationMethod = *update.CalculationMethod
	}
	if update.Unit != nil {
		rule.Unit = NormalizeUnit(*update.Unit)
	}
	if update.BasePrice != nil {
		rule.BasePrice = *update.BasePrice
	}
	if update.MinimumCharge != nil {
		rule.MinimumCharge = *update.MinimumCharge
	}
	if update.MaximumCharge != nil {
		maxCharge := *update.MaximumCharge
		rule.MaximumCharge = &maxCharge
	}
	if update.ClearMaximumCharge {
		rule.MaximumCharge = nil
	}
	if update.IsActive != nil {
		rule.IsActive = *update.IsActive
	}
	if update.ValidFrom != nil {
		rule.ValidFrom = *update.ValidFrom
	}
	if update.ValidTo != nil {
		to := *update.ValidTo
		rule.ValidTo = &to
	}
	if update.ClearValidTo {
		rule.ValidTo = nil
	}
	if update.Description != nil {
		rule.Description = *update.Description
	}
	if err := ValidateRule(rule); err != nil {
		return PricingRule{}, err
	}

	rule.UpdatedAt = e.now()
	e.config.Rules[i] = rule
	return rule.clone(), nil
}

// DeactivateRule switches a rule off.
func (e *Engine) DeactivateRule(id string) (PricingRule, error) {
	inactive := false
	return e.UpdateRule(id, RuleUpdate{IsActive: &inactive})
}

// Rule returns the rule with the given id.
func (e *Engine) Rule(id string) (PricingRule, bool) {
	i, ok := e.ruleIndex(id)
	if !ok {
		return PricingRule{}, false
	}
	return e.config.Rules[i].clone(), true
}

// Rules returns every rule in configured order.
func (e *Engine) Rules() []PricingRule {
	return e.filterRules(func(PricingRule) bool { return true })
}

// ActiveRules returns the rules flagged active, regardless of validity dates.
func (e *Engine) ActiveRules() []PricingRule {
	return e.filterRules(func(r PricingRule) bool { return r.IsActive })
}

// RulesByTransportMode returns the rules defined for mode.
func (e *Engine) RulesByTransportMode(mode TransportMode) []PricingRule {
	return e.filterRules(func(r PricingRule) bool { return r.TransportMode == mode })
}

// AddZone validates and appends a zone.
func (e *Engine) AddZone(zone PricingZone) (PricingZone, error) {
	if err := ValidateZone(zone); err != nil {
		return PricingZone{}, err
	}
	if zone.ID == "" {
		zone.ID = e.newID()
	}
	zone.Countries = append([]string(nil), zone.Countries...)
	e.config.Zones = append(e.config.Zones, zone)
	return zone, nil
}

// Zones returns every zone in configured order.
func (e *Engine) Zones() []PricingZone {
	return e.Snapshot().Zones
}

// AddModifier validates and appends a modifier. It is evaluated after all
// modifiers already present.
func (e *Engine) AddModifier(m PricingModifier) (PricingModifier, error) {
	if err := ValidateModifier(m); err != nil {
		return PricingModifier{}, err
	}
	if m.ID == "" {
		m.ID = e.newID()
	}
	e.config.Modifiers = append(e.config.Modifiers, m)
	return m, nil
}

// Modifiers returns every modifier in evaluation order.
func (e *Engine) Modifiers() []PricingModifier {
	return e.Snapshot().Modifiers
}

// Snapshot returns a copy of the current configuration.
func (e *Engine) Snapshot() Config {
	return e.config.Clone()
}

func (e *Engine) ruleIndex(id string) (int, bool) {
	for i, r := range e.config.Rules {
		if r.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (e *Engine) filterRules(keep func(PricingRule) bool) []PricingRule {
	out := make([]PricingRule, 0, len(e.config.Rules))
	for _, r := range e.config.Rules {
		if keep(r) {
			out = append(out, r.clone())
		}
	}
	return out
}
