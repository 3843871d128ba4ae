// Package normalize converts raw gateway records into the strict domain
// model. Malformed optional fields fall back to defined defaults; only a
// structurally broken record (missing identity) is rejected, and batch
// helpers drop such records rather than failing the whole batch.
package normalize

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountScale is the fixed number of fractional digits used for every
// amount crossing the gateway boundary.
const AmountScale = 8

// ParseAmount converts a gateway decimal string into a decimal amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// FormatAmount renders an amount as a gateway decimal string with the
// fixed 8 fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// amountOrZero parses an optional amount field, defaulting to zero when
// the field is absent or unparsable.
func amountOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
