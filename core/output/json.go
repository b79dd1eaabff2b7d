package output

import (
	"encoding/json"
	"io"

	"freight-rating/core/rating"
)

// JSONFormatter renders indented JSON.
type JSONFormatter struct {
	Indent string
}

// NewJSONFormatter creates a JSON formatter with two-space indentation
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{Indent: "  "}
}

// Format returns FormatJSON
func (f *JSONFormatter) Format() Format {
	return FormatJSON
}

// RenderQuote writes the quote and its metadata.
func (f *JSONFormatter) RenderQuote(w io.Writer, result *QuoteResult) error {
	return f.encode(w, result)
}

// RenderRules writes {"rules": [...]}.
func (f *JSONFormatter) RenderRules(w io.Writer, rules []rating.PricingRule) error {
	if rules == nil {
		rules = []rating.PricingRule{}
	}
	return f.encode(w, struct {
		Rules []rating.PricingRule `json:"rules"`
	}{rules})
}

func (f *JSONFormatter) encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", f.Indent)
	return enc.Encode(v)
}
