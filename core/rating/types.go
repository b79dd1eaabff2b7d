// Package rating turns a shipment's physical attributes into a priced,
// delivery-dated quote.
//
// The engine is pure: it reads an in-memory Config snapshot (rules, zones,
// modifiers) and never performs I/O. Callers that share one Engine across
// goroutines must serialize writes themselves.
package rating

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransportMode selects both the billing method and the delivery bracket.
type TransportMode string

const (
	Aerial          TransportMode = "AERIAL"
	AerialExpress   TransportMode = "AERIAL_EXPRESS"
	Maritime        TransportMode = "MARITIME"
	MaritimeExpress TransportMode = "MARITIME_EXPRESS"
)

// TransportModes lists every supported mode in declaration order.
var TransportModes = []TransportMode{Aerial, AerialExpress, Maritime, MaritimeExpress}

// Valid reports whether m is one of the declared modes.
func (m TransportMode) Valid() bool {
	switch m {
	case Aerial, AerialExpress, Maritime, MaritimeExpress:
		return true
	}
	return false
}

// Method returns the billing method of the mode. Unknown modes bill by weight.
func (m TransportMode) Method() CalculationMethod {
	switch m {
	case Maritime, MaritimeExpress:
		return MethodCBM
	default:
		return MethodWeight
	}
}

// CalculationMethod is how the billable quantity is measured.
type CalculationMethod string

const (
	MethodWeight CalculationMethod = "WEIGHT"
	MethodCBM    CalculationMethod = "CBM"
)

// Unit returns the canonical unit for the method.
func (m CalculationMethod) Unit() Unit {
	if m == MethodCBM {
		return UnitCubicMeter
	}
	return UnitKilogram
}

// Unit is the billing unit of a rule.
type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitCubicMeter Unit = "m³"
)

// NormalizeUnit accepts the ASCII spelling of cubic meters.
func NormalizeUnit(u Unit) Unit {
	if u == "m3" {
		return UnitCubicMeter
	}
	return u
}

// PricingRule is one tariff definition for one transport mode.
type PricingRule struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	TransportMode     TransportMode     `json:"transport_mode"`
	CalculationMethod CalculationMethod `json:"calculation_method"`
	BasePrice         decimal.Decimal   `json:"base_price"`
	Unit              Unit              `json:"unit"`
	MinimumCharge     decimal.Decimal   `json:"minimum_charge"`
	MaximumCharge     *decimal.Decimal  `json:"maximum_charge,omitempty"`
	IsActive          bool              `json:"is_active"`
	ValidFrom         time.Time         `json:"valid_from"`
	ValidTo           *time.Time        `json:"valid_to,omitempty"`
	Description       string            `json:"description,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ActiveAt reports whether the rule can price a quote at instant now.
// Both ends of the validity window are inclusive.
func (r PricingRule) ActiveAt(now time.Time) bool {
	if !r.IsActive || now.Before(r.ValidFrom) {
		return false
	}
	return r.ValidTo == nil || !now.After(*r.ValidTo)
}

// PricingZone groups destination countries under one multiplier.
type PricingZone struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Countries   []string        `json:"countries"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	IsActive    bool            `json:"is_active"`
	Description string          `json:"description,omitempty"`
}

// ModifierType says how a modifier's value is applied.
type ModifierType string

const (
	ModifierPercentage ModifierType = "PERCENTAGE"
	ModifierFixed      ModifierType = "FIXED"
)

// ConditionType is what a modifier is conditioned on.
type ConditionType string

const (
	ConditionWeightRange ConditionType = "WEIGHT_RANGE"
	ConditionCBMRange    ConditionType = "CBM_RANGE"
	ConditionDestination ConditionType = "DESTINATION"
	ConditionUrgency     ConditionType = "URGENCY"
	ConditionPackageType ConditionType = "PACKAGE_TYPE"
)

// Known reports whether c is a declared condition.
func (c ConditionType) Known() bool {
	switch c {
	case ConditionWeightRange, ConditionCBMRange, ConditionDestination, ConditionUrgency, ConditionPackageType:
		return true
	}
	return false
}

// Supported reports whether the engine can evaluate c. URGENCY and
// PACKAGE_TYPE are declared but have no matching logic yet.
func (c ConditionType) Supported() bool {
	switch c {
	case ConditionWeightRange, ConditionCBMRange, ConditionDestination:
		return true
	}
	return false
}

// PricingModifier is a conditional surcharge (positive value) or discount (negative value).
type PricingModifier struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           ModifierType    `json:"type"`
	Value          decimal.Decimal `json:"value"`
	Condition      ConditionType   `json:"condition"`
	ConditionValue string          `json:"condition_value"`
	IsActive       bool            `json:"is_active"`
	Description    string          `json:"description,omitempty"`
}

// Dimensions of a package in centimeters.
type Dimensions struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
}

// CBMCalculation is the volume of a package.
type CBMCalculation struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	CBM    decimal.Decimal `json:"cbm"`
}

// WeightCalculation is the billable weight of a package.
type WeightCalculation struct {
	ActualWeight     decimal.Decimal  `json:"actual_weight"`
	VolumetricWeight *decimal.Decimal `json:"volumetric_weight,omitempty"`
	ChargeableWeight decimal.Decimal  `json:"chargeable_weight"`
}

// QuoteRequest describes the shipment to price.
type QuoteRequest struct {
	TransportMode TransportMode   `json:"transport_mode"`
	Weight        decimal.Decimal `json:"weight"`
	Dimensions    *Dimensions     `json:"dimensions,omitempty"`
	Destination   string          `json:"destination,omitempty"`
	DepartureDate *time.Time      `json:"departure_date,omitempty"`
}

// AppliedModifier records one modifier that changed the price.
type AppliedModifier struct {
	Name          string          `json:"name"`
	Type          ModifierType    `json:"type"`
	Value         decimal.Decimal `json:"value"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
}

// DeliveryDelay is a transit-time bracket in days.
type DeliveryDelay struct {
	Min  int    `json:"min"`
	Max  int    `json:"max"`
	Text string `json:"text"`
}

// EstimatedDelivery is the calendar window derived from a DeliveryDelay.
type EstimatedDelivery struct {
	MinDate time.Time `json:"min_date"`
	MaxDate time.Time `json:"max_date"`
	Range   string    `json:"range"`
}

// PricingCalculation is the fully populated result of CalculatePrice.
type PricingCalculation struct {
	RuleID            string            `json:"rule_id"`
	BasePrice         decimal.Decimal   `json:"base_price"`
	Modifiers         []AppliedModifier `json:"modifiers"`
	ZoneMultiplier    decimal.Decimal   `json:"zone_multiplier"`
	FinalPrice        decimal.Decimal   `json:"final_price"`
	CalculationMethod CalculationMethod `json:"calculation_method"`
	CalculationBase   decimal.Decimal   `json:"calculation_base"`
	Unit              Unit              `json:"unit"`
	DeliveryDelay     DeliveryDelay     `json:"delivery_delay"`
	EstimatedDelivery EstimatedDelivery `json:"estimated_delivery"`
}
