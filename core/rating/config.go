package rating

import (
	"go.uber.org/multierr"

	"freight-rating/internal/errors"
)

// Config is a snapshot of the tariff configuration the engine prices against.
// Slice order is significant: the first matching rule, zone and modifier wins
// or applies first.
type Config struct {
	Rules     []PricingRule     `json:"rules"`
	Zones     []PricingZone     `json:"zones"`
	Modifiers []PricingModifier `json:"modifiers"`
}

// Clone returns a deep copy so the engine never aliases caller slices.
func (c Config) Clone() Config {
	out := Config{
		Rules:     make([]PricingRule, len(c.Rules)),
		Zones:     make([]PricingZone, len(c.Zones)),
		Modifiers: make([]PricingModifier, len(c.Modifiers)),
	}
	for i, r := range c.Rules {
		out.Rules[i] = r.clone()
	}
	for i, z := range c.Zones {
		z.Countries = append([]string(nil), z.Countries...)
		out.Zones[i] = z
	}
	copy(out.Modifiers, c.Modifiers)
	return out
}

func (r PricingRule) clone() PricingRule {
	if r.MaximumCharge != nil {
		maxCharge := *r.MaximumCharge
		r.MaximumCharge = &maxCharge
	}
	if r.ValidTo != nil {
		to := *r.ValidTo
		r.ValidTo = &to
	}
	return r
}

// UnsupportedModifiers returns the active modifiers whose condition the engine
// cannot evaluate yet.
func (c Config) UnsupportedModifiers() []PricingModifier {
	var out []PricingModifier
	for _, m := range c.Modifiers {
		if m.IsActive && m.Condition.Known() && !m.Condition.Supported() {
			out = append(out, m)
		}
	}
	return out
}

// Validate checks every record and returns all problems found, combined.
func (c Config) Validate() error {
	var err error

	ruleIDs := make(map[string]struct{}, len(c.Rules))
	for _, r := range c.Rules {
		if r.ID != "" {
			if _, dup := ruleIDs[r.ID]; dup {
				err = multierr.Append(err, errors.Config(errors.CodeDuplicateID, "duplicate rule id %q", r.ID))
			}
			ruleIDs[r.ID] = struct{}{}
		}
		err = multierr.Append(err, ValidateRule(r))
	}

	zoneIDs := make(map[string]struct{}, len(c.Zones))
	for _, z := range c.Zones {
		if z.ID != "" {
			if _, dup := zoneIDs[z.ID]; dup {
				err = multierr.Append(err, errors.Config(errors.CodeDuplicateID, "duplicate zone id %q", z.ID))
			}
			zoneIDs[z.ID] = struct{}{}
		}
		err = multierr.Append(err, ValidateZone(z))
	}

	modifierIDs := make(map[string]struct{}, len(c.Modifiers))
	for _, m := range c.Modifiers {
		if m.ID != "" {
			if _, dup := modifierIDs[m.ID]; dup {
				err = multierr.Append(err, errors.Config(errors.CodeDuplicateID, "duplicate modifier id %q", m.ID))
			}
			modifierIDs[m.ID] = struct{}{}
		}
		err = multierr.Append(err, ValidateModifier(m))
	}

	return err
}

// ValidateRule checks a single rule in isolation.
func ValidateRule(r PricingRule) error {
	fail := func(format string, args ...interface{}) error {
		return errors.Config(errors.CodeInvalidRule, "rule %q: "+format, append([]interface{}{r.ID}, args...)...)
	}

	if !r.TransportMode.Valid() {
		return fail("unknown transport mode %q", r.TransportMode)
	}
	if r.CalculationMethod != r.TransportMode.Method() {
		return fail("%s must be priced by %s, not %q", r.TransportMode, r.TransportMode.Method(), r.CalculationMethod)
	}
	if NormalizeUnit(r.Unit) != r.CalculationMethod.Unit() {
		return fail("unit %q does not match method %s", r.Unit, r.CalculationMethod)
	}
	if r.BasePrice.IsNegative() {
		return fail("base price is negative")
	}
	if r.MinimumCharge.IsNegative() {
		return fail("minimum charge is negative")
	}
	if r.MaximumCharge != nil && r.MaximumCharge.LessThan(r.MinimumCharge) {
		return fail("maximum charge %s is below minimum charge %s", r.MaximumCharge, r.MinimumCharge)
	}
	if r.ValidTo != nil && r.ValidTo.Before(r.ValidFrom) {
		return fail("valid_to precedes valid_from")
	}
	return nil
}

// ValidateZone checks a single zone in isolation.
func ValidateZone(z PricingZone) error {
	if z.Multiplier.IsNegative() {
		return errors.Config(errors.CodeInvalidZone, "zone %q: multiplier is negative", z.ID)
	}
	if len(z.Countries) == 0 {
		return errors.Config(errors.CodeInvalidZone, "zone %q: no countries", z.ID)
	}
	return nil
}

// ValidateModifier checks a single modifier in isolation.
func ValidateModifier(m PricingModifier) error {
	switch m.Type {
	case ModifierPercentage, ModifierFixed:
	default:
		return errors.Config(errors.CodeInvalidModifier, "modifier %q: unknown type %q", m.ID, m.Type)
	}
	if !m.Condition.Known() {
		return errors.Config(errors.CodeInvalidModifier, "modifier %q: unknown condition %q", m.ID, m.Condition)
	}

	switch m.Condition {
	case ConditionWeightRange, ConditionCBMRange:
		if _, err := ParseRange(m.ConditionValue); err != nil {
			return err
		}
	case ConditionDestination:
		if m.ConditionValue == "" {
			return errors.Config(errors.CodeInvalidModifier, "modifier %q: destination condition needs a value", m.ID)
		}
	}
	return nil
}
