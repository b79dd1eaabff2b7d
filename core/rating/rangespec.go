package rating

import (
	"strings"

	"github.com/shopspring/decimal"

	"freight-rating/internal/errors"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// ParseRange parses the "min-max" encoding used by range conditions, e.g. "100-1000".
func ParseRange(s string) (Range, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return Range{}, errors.Config(errors.CodeInvalidRange, "range %q is not of the form min-max", s)
	}

	lo, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil {
		return Range{}, errors.Config(errors.CodeInvalidRange, "range %q: bad minimum: %v", s, err)
	}
	hi, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return Range{}, errors.Config(errors.CodeInvalidRange, "range %q: bad maximum: %v", s, err)
	}
	if hi.LessThan(lo) {
		return Range{}, errors.Config(errors.CodeInvalidRange, "range %q: maximum below minimum", s)
	}

	return Range{Min: lo, Max: hi}, nil
}

// Contains reports whether min ≤ v ≤ max.
func (r Range) Contains(v decimal.Decimal) bool {
	return v.GreaterThanOrEqual(r.Min) && v.LessThanOrEqual(r.Max)
}

// String renders the range in its "min-max" encoding.
func (r Range) String() string {
	return r.Min.String() + "-" + r.Max.String()
}
