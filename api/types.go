package api

import (
	"time"

	"github.com/shopspring/decimal"

	"freight-rating/core/rating"
	"freight-rating/internal/errors"
)

// QuoteRequest is the body of POST /v1/quotes
type QuoteRequest struct {
	TransportMode string             `json:"transport_mode" binding:"required,transport_mode"`
	Weight        decimal.Decimal    `json:"weight"`
	Dimensions    *rating.Dimensions `json:"dimensions,omitempty"`
	Destination   string             `json:"destination,omitempty" binding:"max=200"`
	DepartureDate string             `json:"departure_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

func (r QuoteRequest) toDomain() (rating.QuoteRequest, error) {
	if !r.Weight.IsPositive() {
		return rating.QuoteRequest{}, invalidField("weight", "must be greater than zero")
	}
	req := rating.QuoteRequest{
		TransportMode: rating.TransportMode(r.TransportMode),
		Weight:        r.Weight,
		Dimensions:    r.Dimensions,
		Destination:   r.Destination,
	}
	if r.DepartureDate != "" {
		d, err := time.Parse(time.DateOnly, r.DepartureDate)
		if err != nil {
			return rating.QuoteRequest{}, invalidField("departure_date", err.Error())
		}
		req.DepartureDate = &d
	}
	return req, nil
}

// CBMRequest is the body of POST /v1/measurements/cbm
type CBMRequest struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
}

// ChargeableWeightRequest is the body of POST /v1/measurements/chargeable-weight
type ChargeableWeightRequest struct {
	ActualWeight decimal.Decimal    `json:"actual_weight"`
	Dimensions   *rating.Dimensions `json:"dimensions,omitempty"`
}

// RuleRequest is the body of POST /v1/rules
type RuleRequest struct {
	ID                string           `json:"id,omitempty" binding:"max=64"`
	Name              string           `json:"name" binding:"required,max=120"`
	TransportMode     string           `json:"transport_mode" binding:"required,transport_mode"`
	CalculationMethod string           `json:"calculation_method,omitempty" binding:"omitempty,oneof=WEIGHT CBM"`
	BasePrice         decimal.Decimal  `json:"base_price"`
	Unit              string           `json:"unit,omitempty"`
	MinimumCharge     decimal.Decimal  `json:"minimum_charge"`
	MaximumCharge     *decimal.Decimal `json:"maximum_charge,omitempty"`
	IsActive          *bool            `json:"is_active,omitempty"`
	ValidFrom         *time.Time       `json:"valid_from,omitempty"`
	ValidTo           *time.Time       `json:"valid_to,omitempty"`
	Description       string           `json:"description,omitempty"`
}

// toDomain fills the method and unit from the transport mode when omitted.
// validFrom defaults to now so the rule takes effect immediately.
func (r RuleRequest) toDomain(now time.Time) rating.PricingRule {
	mode := rating.TransportMode(r.TransportMode)
	method := rating.CalculationMethod(r.CalculationMethod)
	if method == "" {
		method = mode.Method()
	}
	unit := rating.Unit(r.Unit)
	if unit == "" {
		unit = method.Unit()
	}
	rule := rating.PricingRule{
		ID:                r.ID,
		Name:              r.Name,
		TransportMode:     mode,
		CalculationMethod: method,
		BasePrice:         r.BasePrice,
		Unit:              unit,
		MinimumCharge:     r.MinimumCharge,
		MaximumCharge:     r.MaximumCharge,
		IsActive:          r.IsActive == nil || *r.IsActive,
		ValidFrom:         now,
		ValidTo:           r.ValidTo,
		Description:       r.Description,
	}
	if r.ValidFrom != nil {
		rule.ValidFrom = *r.ValidFrom
	}
	return rule
}

// RulesResponse lists rules
type RulesResponse struct {
	Rules []rating.PricingRule `json:"rules"`
	Count int                  `json:"count"`
}

// ZonesResponse lists zones
type ZonesResponse struct {
	Zones []rating.PricingZone `json:"zones"`
	Count int                  `json:"count"`
}

// ModifiersResponse lists modifiers
type ModifiersResponse struct {
	Modifiers []rating.PricingModifier `json:"modifiers"`
	Count     int                      `json:"count"`
}

// ReloadResponse reports the configuration now in effect
type ReloadResponse struct {
	Status    string `json:"status"`
	Rules     int    `json:"rules"`
	Zones     int    `json:"zones"`
	Modifiers int    `json:"modifiers"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes one failure
type ErrorBody struct {
	Code      string                 `json:"code"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

func invalidField(field, reason string) *errors.Error {
	return errors.Newf(errors.TypeInput, errors.CodeInvalidRequest, "%s %s", field, reason).
		WithContext("field", field)
}
