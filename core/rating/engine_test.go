package rating

import (
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-rating/internal/errors"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s %v", want, got, msgAndArgs)
}

func aerialRule() PricingRule {
	return PricingRule{
		ID:                "aerial",
		Name:              "Aerial standard",
		TransportMode:     Aerial,
		CalculationMethod: MethodWeight,
		BasePrice:         dec("8.5"),
		Unit:              UnitKilogram,
		MinimumCharge:     dec("50"),
		IsActive:          true,
		ValidFrom:         testNow.AddDate(-1, 0, 0),
	}
}

func maritimeRule(mode TransportMode) PricingRule {
	return PricingRule{
		ID:                "maritime-" + string(mode),
		Name:              "Maritime",
		TransportMode:     mode,
		CalculationMethod: MethodCBM,
		BasePrice:         dec("150"),
		Unit:              UnitCubicMeter,
		MinimumCharge:     dec("10"),
		IsActive:          true,
		ValidFrom:         testNow.AddDate(-1, 0, 0),
	}
}

// flatRule prices aerial shipments at 1 per kg with no minimum so modifier
// arithmetic starts from a round base.
func flatRule() PricingRule {
	r := aerialRule()
	r.BasePrice = dec("1")
	r.MinimumCharge = decimal.Zero
	return r
}

func newTestEngine(cfg Config) *Engine {
	return NewEngine(cfg, WithClock(func() time.Time { return testNow }))
}

func TestAerialPricingIgnoresDimensions(t *testing.T) {
	engine := newTestEngine(Config{Rules: []PricingRule{aerialRule()}})

	calc, err := engine.CalculatePrice(QuoteRequest{
		TransportMode: Aerial,
		Weight:        dec("10"),
		Dimensions:    &Dimensions{Length: dec("100"), Width: dec("100"), Height: dec("100")},
	})
	require.NoError(t, err)

	// volumetric weight would be 166.67 kg; the basis stays the declared 10 kg
	assertDecimal(t, "10", calc.CalculationBase)
	assertDecimal(t, "85", calc.BasePrice)
	assert.Equal(t, MethodWeight, calc.CalculationMethod)
	assert.Equal(t, UnitKilogram, calc.Unit)
	assert.Equal(t, "aerial", calc.RuleID)
}

func TestMinimumChargeClamp(t *testing.T) {
	engine := newTestEngine(Config{Rules: []PricingRule{aerialRule()}})

	calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("1")})
	require.NoError(t, err)

	assertDecimal(t, "50", calc.BasePrice)
	assertDecimal(t, "50", calc.FinalPrice)
}

func TestMaximumChargeClampHappensBeforeModifiers(t *testing.T) {
	rule := aerialRule()
	rule.BasePrice = dec("10")
	rule.MaximumCharge = decPtr("1000")

	engine := newTestEngine(Config{
		Rules: []PricingRule{rule},
		Modifiers: []PricingModifier{{
			ID: "surcharge", Name: "Surcharge", Type: ModifierPercentage, Value: dec("10"),
			Condition: ConditionWeightRange, ConditionValue: "0-100000", IsActive: true,
		}},
	})

	calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("500")})
	require.NoError(t, err)

	// raw product 5000 clamps to 1000, then +10%
	assertDecimal(t, "1000", calc.BasePrice)
	assertDecimal(t, "1100", calc.FinalPrice)
}

func TestModifiersCompound(t *testing.T) {
	engine := newTestEngine(Config{
		Rules: []PricingRule{flatRule()},
		Modifiers: []PricingModifier{
			{ID: "a", Name: "Ten", Type: ModifierPercentage, Value: dec("10"), Condition: ConditionWeightRange, ConditionValue: "0-1000", IsActive: true},
			{ID: "b", Name: "Fifteen", Type: ModifierPercentage, Value: dec("15"), Condition: ConditionWeightRange, ConditionValue: "0-1000", IsActive: true},
		},
	})

	calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("100")})
	require.NoError(t, err)

	assertDecimal(t, "100", calc.BasePrice)
	require.Len(t, calc.Modifiers, 2)
	assert.Equal(t, "Ten", calc.Modifiers[0].Name)
	assertDecimal(t, "10", calc.Modifiers[0].AppliedAmount)
	assert.Equal(t, "Fifteen", calc.Modifiers[1].Name)
	assertDecimal(t, "16.5", calc.Modifiers[1].AppliedAmount)
	assertDecimal(t, "126.5", calc.FinalPrice)
}

func TestFixedModifierAndDiscount(t *testing.T) {
	engine := newTestEngine(Config{
		Rules: []PricingRule{flatRule()},
		Modifiers: []PricingModifier{
			{ID: "fee", Name: "Handling", Type: ModifierFixed, Value: dec("25"), Condition: ConditionDestination, ConditionValue: "dakar", IsActive: true},
			{ID: "promo", Name: "Promo", Type: ModifierPercentage, Value: dec("-20"), Condition: ConditionDestination, ConditionValue: "senegal", IsActive: true},
			{ID: "off", Name: "Disabled", Type: ModifierFixed, Value: dec("1000"), Condition: ConditionDestination, ConditionValue: "dakar", IsActive: false},
		},
	})

	calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("100"), Destination: "Dakar, SENEGAL"})
	require.NoError(t, err)

	require.Len(t, calc.Modifiers, 2)
	assertDecimal(t, "25", calc.Modifiers[0].AppliedAmount)
	assertDecimal(t, "-25", calc.Modifiers[1].AppliedAmount)
	assertDecimal(t, "100", calc.FinalPrice)
}

func TestWeightRangeBoundariesAreInclusive(t *testing.T) {
	engine := newTestEngine(Config{
		Rules: []PricingRule{flatRule()},
		Modifiers: []PricingModifier{{
			ID: "heavy", Name: "Heavy", Type: ModifierFixed, Value: dec("5"),
			Condition: ConditionWeightRange, ConditionValue: "100-1000", IsActive: true,
		}},
	})

	tests := []struct {
		weight  string
		applies bool
	}{
		{"99.99", false},
		{"100", true},
		{"550", true},
		{"1000", true},
		{"1000.01", false},
	}

	for _, tt := range tests {
		t.Run(tt.weight, func(t *testing.T) {
			calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec(tt.weight)})
			require.NoError(t, err)

			if tt.applies {
				assert.Len(t, calc.Modifiers, 1)
			} else {
				assert.Empty(t, calc.Modifiers)
			}
		})
	}
}

func TestRangeModifiersRequireMatchingMethod(t *testing.T) {
	cfg := Config{
		Rules: []PricingRule{flatRule(), maritimeRule(Maritime)},
		Modifiers: []PricingModifier{
			{ID: "cbm", Name: "Bulk", Type: ModifierFixed, Value: dec("5"), Condition: ConditionCBMRange, ConditionValue: "0-100", IsActive: true},
			{ID: "kg", Name: "Heavy", Type: ModifierFixed, Value: dec("7"), Condition: ConditionWeightRange, ConditionValue: "0-100", IsActive: true},
		},
	}
	engine := newTestEngine(cfg)

	aerial, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("50")})
	require.NoError(t, err)
	require.Len(t, aerial.Modifiers, 1)
	assert.Equal(t, "Heavy", aerial.Modifiers[0].Name)

	maritime, err := engine.CalculatePrice(QuoteRequest{
		TransportMode: Maritime,
		Weight:        dec("50"),
		Dimensions:    &Dimensions{Length: dec("100"), Width: dec("100"), Height: dec("100")},
	})
	require.NoError(t, err)
	require.Len(t, maritime.Modifiers, 1)
	assert.Equal(t, "Bulk", maritime.Modifiers[0].Name)
}

func TestUnimplementedConditionsNeverApply(t *testing.T) {
	engine := newTestEngine(Config{
		Rules: []PricingRule{flatRule()},
		Modifiers: []PricingModifier{
			{ID: "u", Name: "Urgent", Type: ModifierFixed, Value: dec("30"), Condition: ConditionUrgency, ConditionValue: "true", IsActive: true},
			{ID: "p", Name: "Fragile", Type: ModifierFixed, Value: dec("30"), Condition: ConditionPackageType, ConditionValue: "fragile", IsActive: true},
		},
	})

	calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("10"), Destination: "true fragile"})
	require.NoError(t, err)
	assert.Empty(t, calc.Modifiers)
	assertDecimal(t, "10", calc.FinalPrice)

	for _, m := range engine.Modifiers() {
		assert.Equal(t, conditionNotImplemented, evaluateCondition(m, quoteFacts{}))
	}
}

func TestZoneMultiplierAppliesAfterModifiers(t *testing.T) {
	engine := newTestEngine(Config{
		Rules: []PricingRule{flatRule()},
		Zones: []PricingZone{
			{ID: "inactive", Name: "Old", Countries: []string{"Mali"}, Multiplier: dec("9"), IsActive: false},
			{ID: "wa", Name: "West Africa", Countries: []string{"Senegal", "Mali"}, Multiplier: dec("1.5"), IsActive: true},
			{ID: "sahel", Name: "Sahel", Countries: []string{"Mali"}, Multiplier: dec("3"), IsActive: true},
		},
		Modifiers: []PricingModifier{{
			ID: "fee", Name: "Fee", Type: ModifierFixed, Value: dec("20"),
			Condition: ConditionWeightRange, ConditionValue: "0-1000", IsActive: true,
		}},
	})

	calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("100"), Destination: "bamako, mali"})
	require.NoError(t, err)

	// (100 + 20) × 1.5, first active zone wins
	assertDecimal(t, "1.5", calc.ZoneMultiplier)
	assertDecimal(t, "100", calc.BasePrice)
	assertDecimal(t, "180", calc.FinalPrice)
}

func TestZoneMultiplierDefaultsToOne(t *testing.T) {
	engine := newTestEngine(Config{
		Rules: []PricingRule{flatRule()},
		Zones: []PricingZone{{ID: "eu", Countries: []string{"France"}, Multiplier: dec("2"), IsActive: true}},
	})

	for _, destination := range []string{"", "Japan"} {
		calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("10"), Destination: destination})
		require.NoError(t, err)
		assertDecimal(t, "1", calc.ZoneMultiplier, destination)
		assertDecimal(t, "10", calc.FinalPrice, destination)
	}
}

func TestNoActiveRule(t *testing.T) {
	expired := aerialRule()
	to := testNow.Add(-time.Hour)
	expired.ValidTo = &to

	future := aerialRule()
	future.ValidFrom = testNow.Add(time.Hour)

	disabled := aerialRule()
	disabled.IsActive = false

	engine := newTestEngine(Config{Rules: []PricingRule{expired, future, disabled, maritimeRule(Maritime)}})

	_, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("10")})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNoActiveRule))
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}

func TestRuleValidityWindowIsInclusive(t *testing.T) {
	rule := aerialRule()
	rule.ValidFrom = testNow
	to := testNow
	rule.ValidTo = &to

	engine := newTestEngine(Config{Rules: []PricingRule{rule}})
	_, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("10")})
	assert.NoError(t, err)
}

func TestFirstActiveRuleWins(t *testing.T) {
	first := aerialRule()
	first.ID = "first"
	second := aerialRule()
	second.ID = "second"
	second.BasePrice = dec("100")

	engine := newTestEngine(Config{Rules: []PricingRule{first, second}})
	calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, "first", calc.RuleID)
}

func TestMaritimeRequiresDimensions(t *testing.T) {
	engine := newTestEngine(Config{Rules: []PricingRule{maritimeRule(Maritime)}})

	_, err := engine.CalculatePrice(QuoteRequest{TransportMode: Maritime, Weight: dec("10")})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrMissingDimensions))
	assert.True(t, errors.IsType(err, errors.TypeInput))
}

func TestMaritimeRejectsNonPositiveDimensions(t *testing.T) {
	engine := newTestEngine(Config{Rules: []PricingRule{maritimeRule(Maritime)}})

	_, err := engine.CalculatePrice(QuoteRequest{
		TransportMode: Maritime,
		Dimensions:    &Dimensions{Length: dec("100"), Width: dec("0"), Height: dec("100")},
	})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidDimension))
}

func TestMaritimePricesByVolume(t *testing.T) {
	engine := newTestEngine(Config{Rules: []PricingRule{maritimeRule(Maritime)}})

	calc, err := engine.CalculatePrice(QuoteRequest{
		TransportMode: Maritime,
		Weight:        dec("500"),
		Dimensions:    &Dimensions{Length: dec("200"), Width: dec("100"), Height: dec("150")},
	})
	require.NoError(t, err)

	assert.Equal(t, MethodCBM, calc.CalculationMethod)
	assert.Equal(t, UnitCubicMeter, calc.Unit)
	assertDecimal(t, "3", calc.CalculationBase)
	assertDecimal(t, "450", calc.BasePrice)
}

func TestDeliveryWindow(t *testing.T) {
	engine := newTestEngine(Config{Rules: []PricingRule{maritimeRule(MaritimeExpress)}})
	departure := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	calc, err := engine.CalculatePrice(QuoteRequest{
		TransportMode: MaritimeExpress,
		Dimensions:    &Dimensions{Length: dec("100"), Width: dec("100"), Height: dec("100")},
		DepartureDate: &departure,
	})
	require.NoError(t, err)

	assert.Equal(t, DeliveryDelay{Min: 30, Max: 45, Text: "30-45 days"}, calc.DeliveryDelay)
	assert.Equal(t, departure.AddDate(0, 0, 30), calc.EstimatedDelivery.MinDate)
	assert.Equal(t, departure.AddDate(0, 0, 45), calc.EstimatedDelivery.MaxDate)
	assert.Equal(t, "09/06/2026 - 24/06/2026", calc.EstimatedDelivery.Range)
}

func TestDepartureDefaultsToNow(t *testing.T) {
	engine := newTestEngine(Config{Rules: []PricingRule{aerialRule()}})

	calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("10")})
	require.NoError(t, err)

	assert.Equal(t, testNow.AddDate(0, 0, 4), calc.EstimatedDelivery.MinDate)
	assert.Equal(t, testNow.AddDate(0, 0, 7), calc.EstimatedDelivery.MaxDate)
}

func TestCalculatePriceIsIdempotent(t *testing.T) {
	engine := newTestEngine(Config{
		Rules: []PricingRule{aerialRule()},
		Zones: []PricingZone{{ID: "wa", Countries: []string{"Senegal"}, Multiplier: dec("1.2"), IsActive: true}},
		Modifiers: []PricingModifier{{
			ID: "p", Name: "Peak", Type: ModifierPercentage, Value: dec("7.5"),
			Condition: ConditionWeightRange, ConditionValue: "0-500", IsActive: true,
		}},
	})
	departure := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	req := QuoteRequest{TransportMode: Aerial, Weight: dec("42.3"), Destination: "Senegal", DepartureDate: &departure}

	first, err := engine.CalculatePrice(req)
	require.NoError(t, err)
	second, err := engine.CalculatePrice(req)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestEngineDoesNotAliasCallerConfig(t *testing.T) {
	cfg := Config{Rules: []PricingRule{aerialRule()}}
	engine := newTestEngine(cfg)

	cfg.Rules[0].BasePrice = dec("1000")

	calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("10")})
	require.NoError(t, err)
	assertDecimal(t, "85", calc.BasePrice)
}

func TestPercentageModifierIsExact(t *testing.T) {
	engine := newTestEngine(Config{
		Rules: []PricingRule{flatRule()},
		Modifiers: []PricingModifier{{
			ID: "fuel", Name: "Fuel", Type: ModifierPercentage, Value: dec("10"),
			Condition: ConditionWeightRange, ConditionValue: "0-1", IsActive: true,
		}},
	})

	calc, err := engine.CalculatePrice(QuoteRequest{TransportMode: Aerial, Weight: dec("0.12345678901234567891")})
	require.NoError(t, err)
	require.Len(t, calc.Modifiers, 1)
	// 21 decimal places, beyond decimal.DivisionPrecision
	assertDecimal(t, "0.012345678901234567891", calc.Modifiers[0].AppliedAmount)
	assertDecimal(t, "0.135802467913580246801", calc.FinalPrice)
}
