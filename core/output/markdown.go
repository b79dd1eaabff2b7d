package output

import (
	"fmt"
	"io"
	"strings"

	"freight-rating/core/rating"
)

// MarkdownFormatter renders GitHub-flavored markdown tables.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a markdown formatter
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format returns FormatMarkdown
func (f *MarkdownFormatter) Format() Format {
	return FormatMarkdown
}

// RenderQuote writes a breakdown table followed by the delivery estimate.
func (f *MarkdownFormatter) RenderQuote(w io.Writer, result *QuoteResult) error {
	q := result.Quote
	calc := q.Calculation

	var b strings.Builder
	fmt.Fprintf(&b, "## Freight quote `%s`\n\n", q.ID)
	fmt.Fprintf(&b, "- **Transport mode:** %s\n", q.Request.TransportMode)
	fmt.Fprintf(&b, "- **Rule:** `%s`\n", calc.RuleID)
	fmt.Fprintf(&b, "- **Billed on:** %s %s\n", calc.CalculationBase.String(), calc.Unit)
	if q.Request.Destination != "" {
		fmt.Fprintf(&b, "- **Destination:** %s\n", escapeCell(q.Request.Destination))
	}
	b.WriteString("\n| Line | Amount |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Base price | %s |\n", money(calc.BasePrice, q.Currency))
	for _, m := range calc.Modifiers {
		fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(modifierLabel(m)), signed(m.AppliedAmount, q.Currency))
	}
	fmt.Fprintf(&b, "| Zone multiplier | x%s |\n", calc.ZoneMultiplier.String())
	fmt.Fprintf(&b, "| **Total** | **%s** |\n\n", money(calc.FinalPrice, q.Currency))
	fmt.Fprintf(&b, "Delivery in %s, estimated %s.\n", calc.DeliveryDelay.Text, calc.EstimatedDelivery.Range)

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderRules writes one table row per rule.
func (f *MarkdownFormatter) RenderRules(w io.Writer, rules []rating.PricingRule) error {
	var b strings.Builder
	b.WriteString("| ID | Name | Mode | Price | Minimum | Maximum | Active | Valid |\n")
	b.WriteString("|---|---|---|---:|---:|---:|:---:|---|\n")
	for _, r := range rules {
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s/%s | %s | %s | %s | %s |\n",
			r.ID,
			escapeCell(r.Name),
			r.TransportMode,
			r.BasePrice.String(), r.Unit,
			r.MinimumCharge.String(),
			optional(r.MaximumCharge),
			yesNo(r.IsActive),
			validity(r),
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
