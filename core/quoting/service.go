// Package quoting hosts the rating engine for concurrent callers.
//
// The engine itself is lock-free; Service serializes rule management against
// quoting and swaps whole configurations when the rate card is reloaded.
package quoting

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"freight-rating/core/ratecard"
	"freight-rating/core/rating"
	"freight-rating/internal/errors"
	"freight-rating/internal/metrics"
)

// DefaultCurrency is attached to quotes when none is configured.
const DefaultCurrency = "EUR"

// Quote is one priced shipment as handed to callers.
type Quote struct {
	ID          string                     `json:"id"`
	QuotedAt    time.Time                  `json:"quoted_at"`
	Currency    string                     `json:"currency"`
	Request     rating.QuoteRequest        `json:"request"`
	Calculation *rating.PricingCalculation `json:"calculation"`
}

// Service is safe for concurrent use.
type Service struct {
	mu     sync.RWMutex
	engine *rating.Engine

	rateCardPath string
	currency     string
	logger       *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
	newID        func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics records quote and reload metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCurrency sets the currency label attached to quotes.
func WithCurrency(currency string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
	}
}

// WithRateCardPath sets the file Reload reads. Empty means the embedded card.
func WithRateCardPath(path string) Option {
	return func(s *Service) { s.rateCardPath = path }
}

// WithClock overrides the clock for the service and every engine it builds.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how quote, rule, zone and modifier ids are made.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates a service over cfg. cfg is validated first.
func New(cfg rating.Config, opts ...Option) (*Service, error) {
	s := &Service{
		currency: DefaultCurrency,
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.ReplaceConfig(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Open loads the rate card configured with WithRateCardPath and creates a
// service over it.
func Open(opts ...Option) (*Service, error) {
	probe := &Service{}
	for _, opt := range opts {
		opt(probe)
	}
	cfg, err := ratecard.Load(probe.rateCardPath)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

func (s *Service) newEngine(cfg rating.Config) *rating.Engine {
	return rating.NewEngine(cfg, rating.WithClock(s.now), rating.WithIDGenerator(s.newID))
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Currency returns the currency label attached to quotes.
func (s *Service) Currency() string {
	return s.currency
}

// Quote prices req.
func (s *Service) Quote(ctx context.Context, req rating.QuoteRequest) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	start := time.Now()
	calc, err := s.engine.CalculatePrice(req)
	elapsed := time.Since(start)
	s.mu.RUnlock()

	mode := string(req.TransportMode)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordQuoteFailure(mode)
		}
		s.logger.Info("quote rejected", zap.String("transport_mode", mode), zap.Error(err))
		return nil, err
	}

	q := &Quote{
		ID:          s.newID(),
		QuotedAt:    s.now(),
		Currency:    s.currency,
		Request:     req,
		Calculation: calc,
	}

	if s.metrics != nil {
		names := make([]string, len(calc.Modifiers))
		for i, m := range calc.Modifiers {
			names[i] = m.Name
		}
		s.metrics.RecordQuote(mode, calc.FinalPrice.InexactFloat64(), names, elapsed)
	}
	s.logger.Debug("quote priced",
		zap.String("quote_id", q.ID),
		zap.String("rule_id", calc.RuleID),
		zap.String("transport_mode", mode),
		zap.String("final_price", calc.FinalPrice.String()),
		zap.Int("modifiers", len(calc.Modifiers)),
	)
	return q, nil
}

// CBM computes the volume of a parcel given in centimeters.
func (s *Service) CBM(length, width, height decimal.Decimal) (rating.CBMCalculation, error) {
	return rating.CalculateCBM(length, width, height)
}

// ChargeableWeight compares actual and volumetric weight.
func (s *Service) ChargeableWeight(actual decimal.Decimal, dims *rating.Dimensions) rating.WeightCalculation {
	return rating.CalculateChargeableWeight(actual, dims)
}

// AddRule adds a pricing rule.
func (s *Service) AddRule(rule rating.PricingRule) (rating.PricingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.engine.AddRule(rule)
	if err != nil {
		return rating.PricingRule{}, err
	}
	s.afterRuleChange("rule added", added)
	return added, nil
}

// UpdateRule merges update into the rule with the given id.
func (s *Service) UpdateRule(id string, update rating.RuleUpdate) (rating.PricingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.engine.UpdateRule(id, update)
	if err != nil {
		return rating.PricingRule{}, err
	}
	s.afterRuleChange("rule updated", updated)
	return updated, nil
}

// DeactivateRule clears the active flag of the rule with the given id.
func (s *Service) DeactivateRule(id string) (rating.PricingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, err := s.engine.DeactivateRule(id)
	if err != nil {
		return rating.PricingRule{}, err
	}
	s.afterRuleChange("rule deactivated", rule)
	return rule, nil
}

// afterRuleChange must be called with the write lock held.
func (s *Service) afterRuleChange(msg string, rule rating.PricingRule) {
	s.logger.Info(msg,
		zap.String("rule_id", rule.ID),
		zap.String("transport_mode", string(rule.TransportMode)),
		zap.Bool("active", rule.IsActive),
	)
	if s.metrics != nil {
		s.metrics.SetActiveRules(len(s.engine.ActiveRules()))
	}
}

// Rule returns the rule with the given id.
func (s *Service) Rule(id string) (rating.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.engine.Rule(id)
	if !ok {
		return rating.PricingRule{}, errors.RuleNotFound(id)
	}
	return rule, nil
}

// Rules returns every rule in evaluation order.
func (s *Service) Rules() []rating.PricingRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Rules()
}

// ActiveRules returns the rules flagged active.
func (s *Service) ActiveRules() []rating.PricingRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.ActiveRules()
}

// RulesByTransportMode returns the rules for one mode, active or not.
func (s *Service) RulesByTransportMode(mode rating.TransportMode) []rating.PricingRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.RulesByTransportMode(mode)
}

// AddZone adds a pricing zone.
func (s *Service) AddZone(zone rating.PricingZone) (rating.PricingZone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.engine.AddZone(zone)
	if err != nil {
		return rating.PricingZone{}, err
	}
	s.logger.Info("zone added", zap.String("zone_id", added.ID), zap.Strings("countries", added.Countries))
	return added, nil
}

// Zones returns every zone in match order.
func (s *Service) Zones() []rating.PricingZone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Zones()
}

// AddModifier adds a pricing modifier.
func (s *Service) AddModifier(m rating.PricingModifier) (rating.PricingModifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.engine.AddModifier(m)
	if err != nil {
		return rating.PricingModifier{}, err
	}
	s.logger.Info("modifier added", zap.String("modifier_id", added.ID), zap.String("condition", string(added.Condition)))
	s.warnUnsupported([]rating.PricingModifier{added})
	return added, nil
}

// Modifiers returns every modifier in application order.
func (s *Service) Modifiers() []rating.PricingModifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Modifiers()
}

// Snapshot returns a copy of the current configuration.
func (s *Service) Snapshot() rating.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Snapshot()
}

// ReplaceConfig validates cfg and swaps it in atomically. In-flight quotes
// finish against the previous configuration.
func (s *Service) ReplaceConfig(cfg rating.Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(errors.TypeConfig, "rating configuration is invalid", err)
	}
	engine := s.newEngine(cfg)

	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()

	s.logger.Info("rating configuration loaded",
		zap.Int("rules", len(cfg.Rules)),
		zap.Int("zones", len(cfg.Zones)),
		zap.Int("modifiers", len(cfg.Modifiers)),
	)
	s.warnUnsupported(cfg.UnsupportedModifiers())
	if s.metrics != nil {
		s.metrics.SetActiveRules(len(engine.ActiveRules()))
	}
	return nil
}

// Reload re-reads the rate card and replaces the configuration. On failure
// the current configuration stays in place.
func (s *Service) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg, err := ratecard.Load(s.rateCardPath)
	if err == nil {
		err = s.ReplaceConfig(cfg)
	}
	if s.metrics != nil {
		s.metrics.RecordRateCardReload(err == nil)
	}
	if err != nil {
		s.logger.Error("rate card reload failed", zap.String("path", s.rateCardPath), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) warnUnsupported(mods []rating.PricingModifier) {
	for _, m := range mods {
		if m.IsActive && !m.Condition.Supported() {
			s.logger.Warn("modifier condition is not evaluated and will never apply",
				zap.String("modifier_id", m.ID),
				zap.String("condition", string(m.Condition)),
			)
		}
	}
}
