package models

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits stored in decimal(18,2) money columns.
const MoneyScale int32 = 2

// ValidMoney reports whether d fits the money column scale without rounding.
func ValidMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// RoundMoney snaps an aggregate read back from the store to the column scale.
// SQLite sums decimal columns as REAL.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}
