// Package output provides output formatting for quotes and rule listings.
// This package produces human and machine-readable outputs.
package output

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"freight-rating/core/quoting"
	"freight-rating/core/rating"
	"freight-rating/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatMarkdown is a markdown report
	FormatMarkdown Format = "markdown"
)

// ParseFormat resolves a format name. Empty means FormatCLI.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCLI, nil
	case FormatCLI, FormatJSON, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", errors.Input(fmt.Sprintf("unknown output format %q (want cli, json or markdown)", s))
	}
}

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// RenderQuote produces output for one priced shipment
	RenderQuote(w io.Writer, result *QuoteResult) error

	// RenderRules produces output for a rule listing
	RenderRules(w io.Writer, rules []rating.PricingRule) error
}

// QuoteResult contains a quote together with execution context
type QuoteResult struct {
	Quote    *quoting.Quote `json:"quote"`
	Metadata Metadata       `json:"metadata"`
}

// Metadata contains execution context
type Metadata struct {
	// InputHash is the sha256 of the request JSON
	InputHash string `json:"input_hash"`

	// EngineVersion is the pricing algorithm version
	EngineVersion string `json:"engine_version"`

	// DurationMS is how long quoting took
	DurationMS float64 `json:"duration_ms"`
}

// NewQuoteResult wraps q with metadata describing how it was produced.
func NewQuoteResult(q *quoting.Quote, duration time.Duration) (*QuoteResult, error) {
	hash, err := InputHash(q.Request)
	if err != nil {
		return nil, err
	}
	return &QuoteResult{
		Quote: q,
		Metadata: Metadata{
			InputHash:     hash,
			EngineVersion: rating.Version,
			DurationMS:    float64(duration.Microseconds()) / 1000,
		},
	}, nil
}

// InputHash returns the hex sha256 of req's JSON encoding. Equal requests hash
// equally, so the hash can key caches of previous quotes.
func InputHash(req rating.QuoteRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", errors.Internal("failed to encode quote request", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FormatterRegistry manages formatter registration
type FormatterRegistry interface {
	// Register adds a formatter to the registry
	Register(formatter Formatter) error

	// GetFormatter returns a formatter for a format type
	GetFormatter(format Format) (Formatter, bool)

	// GetAll returns all registered formatters
	GetAll() []Formatter
}

// Registry is the default FormatterRegistry.
type Registry struct {
	mu         sync.RWMutex
	formatters map[Format]Formatter
}

// NewRegistry returns a registry holding the cli, json and markdown formatters.
func NewRegistry() *Registry {
	r := &Registry{formatters: make(map[Format]Formatter)}
	for _, f := range []Formatter{NewCLIFormatter(), NewJSONFormatter(), NewMarkdownFormatter()} {
		_ = r.Register(f)
	}
	return r
}

// Register adds a formatter. A second formatter for the same format is rejected.
func (r *Registry) Register(formatter Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[formatter.Format()]; exists {
		return errors.Newf(errors.TypeConfig, errors.CodeDuplicateID, "formatter already registered: %s", formatter.Format())
	}
	r.formatters[formatter.Format()] = formatter
	return nil
}

// GetFormatter returns the formatter for format.
func (r *Registry) GetFormatter(format Format) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[format]
	return f, ok
}

// GetAll returns the registered formatters ordered by format name.
func (r *Registry) GetAll() []Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Formatter, 0, len(r.formatters))
	for _, f := range r.formatters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Format() < out[j].Format() })
	return out
}

// money renders an amount with two decimals and the currency label.
func money(amount decimal.Decimal, currency string) string {
	return strings.TrimSpace(amount.StringFixed(2) + " " + currency)
}
