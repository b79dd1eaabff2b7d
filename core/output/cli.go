package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"freight-rating/core/rating"
)

const (
	boxTop    = "┌─────────────────────────────────────────────────────────────────────────┐"
	boxRule   = "├─────────────────────────────────────────────────────────────────────────┤"
	boxBottom = "└─────────────────────────────────────────────────────────────────────────┘"
	boxTitle  = "│                              FREIGHT QUOTE                              │"
	rowFormat = "│ %-30s %40s │\n"
	subFormat = "│   └─ %-30s %35s │\n"
)

// CLIFormatter renders boxed summaries for terminals.
type CLIFormatter struct{}

// NewCLIFormatter creates a CLI formatter
func NewCLIFormatter() *CLIFormatter {
	return &CLIFormatter{}
}

// Format returns FormatCLI
func (f *CLIFormatter) Format() Format {
	return FormatCLI
}

// RenderQuote prints the price breakdown of one quote.
func (f *CLIFormatter) RenderQuote(w io.Writer, result *QuoteResult) error {
	q := result.Quote
	calc := q.Calculation
	p := &errWriter{w: w}

	p.println(boxTop)
	p.println(boxTitle)
	p.println(boxRule)
	p.row("Quote", q.ID)
	p.row("Transport mode", string(q.Request.TransportMode))
	p.row("Rule", calc.RuleID)
	p.row("Billed on", fmt.Sprintf("%s %s", calc.CalculationBase.String(), calc.Unit))
	if q.Request.Destination != "" {
		p.row("Destination", q.Request.Destination)
	}
	p.println(boxRule)
	p.row("Base price", money(calc.BasePrice, q.Currency))
	for _, m := range calc.Modifiers {
		p.printf(subFormat, truncate(modifierLabel(m), 30), signed(m.AppliedAmount, q.Currency))
	}
	if !calc.ZoneMultiplier.Equal(decimal.NewFromInt(1)) {
		p.row("Zone multiplier", "x"+calc.ZoneMultiplier.String())
	}
	p.println(boxRule)
	p.row("TOTAL", money(calc.FinalPrice, q.Currency))
	p.row("Delivery", calc.DeliveryDelay.Text)
	p.row("Estimated arrival", calc.EstimatedDelivery.Range)
	p.println(boxBottom)

	p.printf("\nQuoted at %s in %.3fms (engine %s)\n",
		q.QuotedAt.UTC().Format(time.RFC3339), result.Metadata.DurationMS, result.Metadata.EngineVersion)
	return p.err
}

// RenderRules prints rules as an aligned table.
func (f *CLIFormatter) RenderRules(w io.Writer, rules []rating.PricingRule) error {
	if len(rules) == 0 {
		_, err := fmt.Fprintln(w, "No pricing rules.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODE\tPRICE\tMIN\tMAX\tACTIVE\tVALID")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.TransportMode,
			r.BasePrice.String(), r.Unit,
			r.MinimumCharge.String(),
			optional(r.MaximumCharge),
			yesNo(r.IsActive),
			validity(r),
		)
	}
	return tw.Flush()
}

func (p *errWriter) row(label, value string) {
	p.printf(rowFormat, truncate(label, 30), truncate(value, 40))
}

// errWriter remembers the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (p *errWriter) printf(format string, args ...interface{}) {
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, format, args...)
	}
}

func (p *errWriter) println(s string) {
	if p.err == nil {
		_, p.err = fmt.Fprintln(p.w, s)
	}
}

func modifierLabel(m rating.AppliedModifier) string {
	if m.Type == rating.ModifierPercentage {
		return fmt.Sprintf("%s (%s%%)", m.Name, m.Value.String())
	}
	return m.Name
}

func signed(d decimal.Decimal, currency string) string {
	if d.IsNegative() {
		return money(d, currency)
	}
	return "+" + money(d, currency)
}

func optional(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func validity(r rating.PricingRule) string {
	from := "-"
	if !r.ValidFrom.IsZero() {
		from = r.ValidFrom.Format(time.DateOnly)
	}
	to := "open"
	if r.ValidTo != nil {
		to = r.ValidTo.Format(time.DateOnly)
	}
	return from + " .. " + to
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLen-3])) + "..."
}
