package ledger

import (
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept for every amount (cents).
const Scale = 2

// MaxBalance is the largest balance the store can hold, NUMERIC(10,2).
var MaxBalance = decimal.RequireFromString("99999999.99")

// validAmount reports whether amount is non-zero, carries no more than two
// decimal places and fits in a balance column.
func validAmount(amount decimal.Decimal) bool {
	if amount.IsZero() {
		return false
	}
	if !amount.Equal(amount.Truncate(Scale)) {
		return false
	}
	return amount.Abs().LessThanOrEqual(MaxBalance)
}

// positiveAmount is validAmount restricted to amounts > 0.
func positiveAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && validAmount(amount)
}

// Cents renders amount with exactly two decimal places.
func Cents(amount decimal.Decimal) string {
	return amount.StringFixed(Scale)
}
