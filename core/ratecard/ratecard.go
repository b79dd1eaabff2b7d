// Package ratecard reads and writes rating configuration snapshots as HCL.
//
// A rate card is a list of rule, zone and modifier blocks. Block order is kept:
// the engine treats the first matching rule or zone as the winner and applies
// modifiers in file order.
package ratecard

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"freight-rating/core/rating"
	"freight-rating/internal/errors"
)

//go:embed default.hcl
var defaultCard []byte

// DefaultFilename is the name diagnostics use for the embedded rate card.
const DefaultFilename = "default.hcl"

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "rule", LabelNames: []string{"id"}},
		{Type: "zone", LabelNames: []string{"id"}},
		{Type: "modifier", LabelNames: []string{"id"}},
	},
}

var ruleSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "name"},
		{Name: "transport_mode", Required: true},
		{Name: "calculation_method"},
		{Name: "base_price", Required: true},
		{Name: "unit"},
		{Name: "minimum_charge"},
		{Name: "maximum_charge"},
		{Name: "active"},
		{Name: "valid_from"},
		{Name: "valid_to"},
		{Name: "description"},
	},
}

var zoneSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "name"},
		{Name: "countries", Required: true},
		{Name: "multiplier"},
		{Name: "active"},
		{Name: "description"},
	},
}

var modifierSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "name"},
		{Name: "type", Required: true},
		{Name: "value", Required: true},
		{Name: "condition", Required: true},
		{Name: "condition_value"},
		{Name: "active"},
		{Name: "description"},
	},
}

// Default returns the embedded rate card.
func Default() (rating.Config, error) {
	return Parse(DefaultFilename, defaultCard)
}

// Load reads and validates the rate card at path. An empty path loads the
// embedded default.
func Load(path string) (rating.Config, error) {
	if path == "" {
		return Default()
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return rating.Config{}, errors.Parsing(fmt.Sprintf("failed to read rate card %s", path), err)
	}
	return Parse(path, src)
}

// Parse decodes and validates rate card source. filename is only used in
// diagnostics.
func Parse(filename string, src []byte) (rating.Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return rating.Config{}, diagnosticsError(filename, diags)
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return rating.Config{}, diagnosticsError(filename, diags)
	}

	var cfg rating.Config
	for _, block := range content.Blocks {
		switch block.Type {
		case "rule":
			r, blockDiags := decodeRule(block)
			diags = append(diags, blockDiags...)
			cfg.Rules = append(cfg.Rules, r)
		case "zone":
			z, blockDiags := decodeZone(block)
			diags = append(diags, blockDiags...)
			cfg.Zones = append(cfg.Zones, z)
		case "modifier":
			m, blockDiags := decodeModifier(block)
			diags = append(diags, blockDiags...)
			cfg.Modifiers = append(cfg.Modifiers, m)
		}
	}
	if diags.HasErrors() {
		return rating.Config{}, diagnosticsError(filename, diags)
	}

	if err := cfg.Validate(); err != nil {
		return rating.Config{}, errors.Wrap(errors.TypeConfig, fmt.Sprintf("rate card %s is invalid", filename), err)
	}
	return cfg, nil
}

func decodeRule(block *hcl.Block) (rating.PricingRule, hcl.Diagnostics) {
	r := newAttrReader(block, ruleSchema)

	mode := rating.TransportMode(r.str("transport_mode", ""))
	method := rating.CalculationMethod(r.str("calculation_method", string(mode.Method())))
	rule := rating.PricingRule{
		ID:                block.Labels[0],
		Name:              r.str("name", block.Labels[0]),
		TransportMode:     mode,
		CalculationMethod: method,
		BasePrice:         r.decimal("base_price", decimal.Zero),
		Unit:              rating.NormalizeUnit(rating.Unit(r.str("unit", string(method.Unit())))),
		MinimumCharge:     r.decimal("minimum_charge", decimal.Zero),
		MaximumCharge:     r.optionalDecimal("maximum_charge"),
		IsActive:          r.boolean("active", true),
		ValidTo:           r.optionalTime("valid_to"),
		Description:       r.str("description", ""),
	}
	if from := r.optionalTime("valid_from"); from != nil {
		rule.ValidFrom = *from
	}
	return rule, r.diags
}

func decodeZone(block *hcl.Block) (rating.PricingZone, hcl.Diagnostics) {
	r := newAttrReader(block, zoneSchema)
	return rating.PricingZone{
		ID:          block.Labels[0],
		Name:        r.str("name", block.Labels[0]),
		Countries:   r.strings("countries"),
		Multiplier:  r.decimal("multiplier", decimal.NewFromInt(1)),
		IsActive:    r.boolean("active", true),
		Description: r.str("description", ""),
	}, r.diags
}

func decodeModifier(block *hcl.Block) (rating.PricingModifier, hcl.Diagnostics) {
	r := newAttrReader(block, modifierSchema)
	return rating.PricingModifier{
		ID:             block.Labels[0],
		Name:           r.str("name", block.Labels[0]),
		Type:           rating.ModifierType(r.str("type", "")),
		Value:          r.decimal("value", decimal.Zero),
		Condition:      rating.ConditionType(r.str("condition", "")),
		ConditionValue: r.str("condition_value", ""),
		IsActive:       r.boolean("active", true),
		Description:    r.str("description", ""),
	}, r.diags
}

// attrReader evaluates the attributes of one block, accumulating diagnostics
// instead of stopping at the first problem.
type attrReader struct {
	attrs hcl.Attributes
	diags hcl.Diagnostics
}

func newAttrReader(block *hcl.Block, schema *hcl.BodySchema) *attrReader {
	content, diags := block.Body.Content(schema)
	return &attrReader{attrs: content.Attributes, diags: diags}
}

// value evaluates name and converts it to ty. ok is false when the attribute
// is absent, null or invalid.
func (r *attrReader) value(name string, ty cty.Type) (cty.Value, bool) {
	attr, exists := r.attrs[name]
	if !exists {
		return cty.NilVal, false
	}

	val, diags := attr.Expr.Value(nil)
	r.diags = append(r.diags, diags...)
	if diags.HasErrors() || val.IsNull() {
		return cty.NilVal, false
	}

	converted, err := convert.Convert(val, ty)
	if err != nil {
		r.diags = append(r.diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Incorrect attribute value type",
			Detail:   fmt.Sprintf("%s: %s", name, err),
			Subject:  attr.Expr.Range().Ptr(),
		})
		return cty.NilVal, false
	}
	return converted, true
}

func (r *attrReader) str(name, def string) string {
	val, ok := r.value(name, cty.String)
	if !ok {
		return def
	}
	return val.AsString()
}

func (r *attrReader) boolean(name string, def bool) bool {
	val, ok := r.value(name, cty.Bool)
	if !ok {
		return def
	}
	return val.True()
}

func (r *attrReader) decimal(name string, def decimal.Decimal) decimal.Decimal {
	if d := r.optionalDecimal(name); d != nil {
		return *d
	}
	return def
}

// optionalDecimal keeps the literal digits of the HCL number, so 0.1 stays 0.1.
func (r *attrReader) optionalDecimal(name string) *decimal.Decimal {
	val, ok := r.value(name, cty.Number)
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(val.AsBigFloat().Text('f', -1))
	if err != nil {
		r.fail(name, err)
		return nil
	}
	return &d
}

func (r *attrReader) optionalTime(name string) *time.Time {
	val, ok := r.value(name, cty.String)
	if !ok {
		return nil
	}
	t, err := parseTime(val.AsString())
	if err != nil {
		r.fail(name, err)
		return nil
	}
	return &t
}

func (r *attrReader) strings(name string) []string {
	val, ok := r.value(name, cty.List(cty.String))
	if !ok {
		return nil
	}
	out := make([]string, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if !v.IsNull() {
			out = append(out, v.AsString())
		}
	}
	return out
}

func (r *attrReader) fail(name string, err error) {
	diag := &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Invalid attribute value",
		Detail:   fmt.Sprintf("%s: %s", name, err),
	}
	if attr, ok := r.attrs[name]; ok {
		diag.Subject = attr.Expr.Range().Ptr()
	}
	r.diags = append(r.diags, diag)
}

// parseTime accepts RFC 3339 timestamps and plain dates (midnight UTC).
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func diagnosticsError(filename string, diags hcl.Diagnostics) error {
	var lines []string
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		line := 0
		if diag.Subject != nil {
			line = diag.Subject.Start.Line
		}
		lines = append(lines, fmt.Sprintf("%s:%d: %s: %s", filename, line, diag.Summary, diag.Detail))
	}
	return errors.Parsing("invalid rate card", fmt.Errorf("%s", strings.Join(lines, "; ")))
}
