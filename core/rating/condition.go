package rating

import (
	"strings"

	"github.com/shopspring/decimal"
)

// conditionOutcome distinguishes "did not match" from "cannot be evaluated".
type conditionOutcome int

const (
	conditionNotMet conditionOutcome = iota
	conditionMet
	conditionNotImplemented
)

// quoteFacts is what a modifier condition is evaluated against.
type quoteFacts struct {
	basis       decimal.Decimal
	method      CalculationMethod
	destination string
}

func evaluateCondition(m PricingModifier, facts quoteFacts) conditionOutcome {
	switch m.Condition {
	case ConditionWeightRange:
		return rangeOutcome(m.ConditionValue, facts, MethodWeight)
	case ConditionCBMRange:
		return rangeOutcome(m.ConditionValue, facts, MethodCBM)
	case ConditionDestination:
		if facts.destination != "" && containsFold(facts.destination, m.ConditionValue) {
			return conditionMet
		}
		return conditionNotMet
	case ConditionUrgency, ConditionPackageType:
		// Declared conditions without matching logic. They never apply.
		return conditionNotImplemented
	default:
		return conditionNotMet
	}
}

// rangeOutcome applies only when the quote was billed with the method the
// range is expressed in.
func rangeOutcome(encoded string, facts quoteFacts, method CalculationMethod) conditionOutcome {
	if facts.method != method {
		return conditionNotMet
	}
	r, err := ParseRange(encoded)
	if err != nil {
		return conditionNotMet
	}
	if r.Contains(facts.basis) {
		return conditionMet
	}
	return conditionNotMet
}

// containsFold reports whether needle occurs in haystack, ignoring case.
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
