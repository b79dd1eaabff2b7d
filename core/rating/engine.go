package rating

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"freight-rating/internal/errors"
)

// Version identifies the pricing algorithm. It changes whenever the same
// configuration and request could produce a different calculation.
const Version = "1.0.0"

// Engine prices shipments against an owned configuration snapshot.
//
// Engine holds no locks. Concurrent use is safe only while nobody calls the
// write operations (AddRule, UpdateRule, DeactivateRule, AddZone, AddModifier).
type Engine struct {
	config Config
	now    func() time.Time
	newID  func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for rule activity, default departure
// dates and management timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides how ids are assigned to records added without one.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// NewEngine creates an engine over a copy of cfg. Rules without timestamps,
// such as those read from a rate card, are stamped with the engine clock and
// their units normalized, the same as rules added with AddRule.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		config: cfg.Clone(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	now := e.now()
	for i := range e.config.Rules {
		r := &e.config.Rules[i]
		r.Unit = NormalizeUnit(r.Unit)
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = r.CreatedAt
		}
	}
	return e
}

// CalculatePrice prices one shipment.
//
// The active rule for the mode fixes the per-unit price; the billable basis is
// the raw weight for aerial modes and the CBM for maritime modes. The product is
// clamped to the rule's minimum/maximum charge, then every active modifier is
// applied in order to the running price, then the first matching zone's
// multiplier scales the result.
func (e *Engine) CalculatePrice(req QuoteRequest) (*PricingCalculation, error) {
	now := e.now()

	rule, ok := e.activeRule(req.TransportMode, now)
	if !ok {
		return nil, errors.NoActiveRule(string(req.TransportMode))
	}

	method := req.TransportMode.Method()
	var basis decimal.Decimal
	switch method {
	case MethodCBM:
		if req.Dimensions == nil {
			return nil, errors.MissingDimensions(string(req.TransportMode))
		}
		cbm, err := CalculateCBM(req.Dimensions.Length, req.Dimensions.Width, req.Dimensions.Height)
		if err != nil {
			return nil, err
		}
		basis = cbm.CBM
	default:
		// Aerial quotes bill the declared weight. Volumetric weight is not applied
		// even when dimensions are supplied; see CalculateChargeableWeight.
		basis = req.Weight
	}

	basePrice := clampCharge(basis.Mul(rule.BasePrice), rule)

	facts := quoteFacts{basis: basis, method: method, destination: req.Destination}
	modifiedPrice := basePrice
	applied := make([]AppliedModifier, 0)
	for _, m := range e.config.Modifiers {
		if !m.IsActive || evaluateCondition(m, facts) != conditionMet {
			continue
		}

		var amount decimal.Decimal
		switch m.Type {
		case ModifierPercentage:
			// percent -> fraction is an exact shift of two decimal places
			amount = modifiedPrice.Mul(m.Value).Shift(-2)
		case ModifierFixed:
			amount = m.Value
		default:
			continue
		}

		modifiedPrice = modifiedPrice.Add(amount)
		applied = append(applied, AppliedModifier{
			Name:          m.Name,
			Type:          m.Type,
			Value:         m.Value,
			AppliedAmount: amount,
		})
	}

	multiplier := e.zoneMultiplier(req.Destination)

	departure := now
	if req.DepartureDate != nil {
		departure = *req.DepartureDate
	}
	delay := DelayFor(req.TransportMode)

	return &PricingCalculation{
		RuleID:            rule.ID,
		BasePrice:         basePrice,
		Modifiers:         applied,
		ZoneMultiplier:    multiplier,
		FinalPrice:        modifiedPrice.Mul(multiplier),
		CalculationMethod: method,
		CalculationBase:   basis,
		Unit:              method.Unit(),
		DeliveryDelay:     delay,
		EstimatedDelivery: EstimateDelivery(delay, departure),
	}, nil
}

// activeRule returns the first rule in configured order that can price mode at now.
func (e *Engine) activeRule(mode TransportMode, now time.Time) (PricingRule, bool) {
	for _, r := range e.config.Rules {
		if r.TransportMode == mode && r.ActiveAt(now) {
			return r, true
		}
	}
	return PricingRule{}, false
}

func clampCharge(price decimal.Decimal, rule PricingRule) decimal.Decimal {
	if price.LessThan(rule.MinimumCharge) {
		price = rule.MinimumCharge
	}
	if rule.MaximumCharge != nil && price.GreaterThan(*rule.MaximumCharge) {
		price = *rule.MaximumCharge
	}
	return price
}

// zoneMultiplier returns the multiplier of the first active zone listing a
// country that occurs in destination, or 1.
func (e *Engine) zoneMultiplier(destination string) decimal.Decimal {
	if destination == "" {
		return decimal.NewFromInt(1)
	}
	for _, z := range e.config.Zones {
		if !z.IsActive {
			continue
		}
		for _, country := range z.Countries {
			if country != "" && containsFold(destination, country) {
				return z.Multiplier
			}
		}
	}
	return decimal.NewFromInt(1)
}
