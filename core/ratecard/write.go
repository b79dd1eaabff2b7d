package ratecard

import (
	"io"
	"time"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/shopspring/decimal"
	"github.com/zclconf/go-cty/cty"

	"freight-rating/core/rating"
)

// Write renders cfg as an HCL rate card that Parse reads back unchanged.
func Write(w io.Writer, cfg rating.Config) error {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	for _, r := range cfg.Rules {
		body := root.AppendNewBlock("rule", []string{r.ID}).Body()
		body.SetAttributeValue("name", cty.StringVal(r.Name))
		body.SetAttributeValue("transport_mode", cty.StringVal(string(r.TransportMode)))
		body.SetAttributeValue("calculation_method", cty.StringVal(string(r.CalculationMethod)))
		body.SetAttributeValue("base_price", numberVal(r.BasePrice))
		body.SetAttributeValue("unit", cty.StringVal(string(r.Unit)))
		body.SetAttributeValue("minimum_charge", numberVal(r.MinimumCharge))
		if r.MaximumCharge != nil {
			body.SetAttributeValue("maximum_charge", numberVal(*r.MaximumCharge))
		}
		body.SetAttributeValue("active", cty.BoolVal(r.IsActive))
		if !r.ValidFrom.IsZero() {
			body.SetAttributeValue("valid_from", cty.StringVal(r.ValidFrom.Format(time.RFC3339)))
		}
		if r.ValidTo != nil {
			body.SetAttributeValue("valid_to", cty.StringVal(r.ValidTo.Format(time.RFC3339)))
		}
		setDescription(body, r.Description)
		root.AppendNewline()
	}

	for _, z := range cfg.Zones {
		body := root.AppendNewBlock("zone", []string{z.ID}).Body()
		body.SetAttributeValue("name", cty.StringVal(z.Name))
		body.SetAttributeValue("countries", countriesVal(z.Countries))
		body.SetAttributeValue("multiplier", numberVal(z.Multiplier))
		body.SetAttributeValue("active", cty.BoolVal(z.IsActive))
		setDescription(body, z.Description)
		root.AppendNewline()
	}

	for _, m := range cfg.Modifiers {
		body := root.AppendNewBlock("modifier", []string{m.ID}).Body()
		body.SetAttributeValue("name", cty.StringVal(m.Name))
		body.SetAttributeValue("type", cty.StringVal(string(m.Type)))
		body.SetAttributeValue("value", numberVal(m.Value))
		body.SetAttributeValue("condition", cty.StringVal(string(m.Condition)))
		if m.ConditionValue != "" {
			body.SetAttributeValue("condition_value", cty.StringVal(m.ConditionValue))
		}
		body.SetAttributeValue("active", cty.BoolVal(m.IsActive))
		setDescription(body, m.Description)
		root.AppendNewline()
	}

	_, err := f.WriteTo(w)
	return err
}

func numberVal(d decimal.Decimal) cty.Value {
	return cty.MustParseNumberVal(d.String())
}

func countriesVal(countries []string) cty.Value {
	if len(countries) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(countries))
	for i, c := range countries {
		vals[i] = cty.StringVal(c)
	}
	return cty.ListVal(vals)
}

func setDescription(body *hclwrite.Body, description string) {
	if description != "" {
		body.SetAttributeValue("description", cty.StringVal(description))
	}
}
