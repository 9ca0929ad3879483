package domain

import "github.com/shopspring/decimal"

// Money values are rendered as JSON numbers, matching what clients send.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// MoneyScale is the number of fractional digits persisted for amounts.
const MoneyScale = 4

// RoundMoney rounds d to the persisted precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}
