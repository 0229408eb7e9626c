package httpx

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// toCents converts a decimal amount to minor units. Amounts with more
// than two decimal places are rejected rather than rounded.
func toCents(field string, d decimal.Decimal) (int64, error) {
	c := d.Mul(hundred)
	if !c.IsInteger() {
		return 0, invalid("%s must have at most 2 decimal places", field)
	}
	return c.IntPart(), nil
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
