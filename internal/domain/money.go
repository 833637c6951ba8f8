package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a human-entered decimal string into an exact decimal.
// Malformed or empty input coerces to zero rather than propagating NaN into
// the ledger; use ParseAmountStrict where bad input must be rejected instead.
func ParseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmountStrict converts a decimal string, rejecting malformed input.
func ParseAmountStrict(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, s)
	}
	return d, nil
}

// AmountString renders an exact decimal in its canonical string form.
// Monetary values cross the API boundary as strings, never binary floats.
func AmountString(d decimal.Decimal) string {
	return d.String()
}

// AmountPtrString renders an optional decimal, with "0" for absent values.
func AmountPtrString(d *decimal.Decimal) string {
	if d == nil {
		return "0"
	}
	return d.String()
}
