package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the spendable balance of one user.
// Balance is never negative in committed state.
type Wallet struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

// CanAfford reports whether the wallet covers amount.
func (w *Wallet) CanAfford(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
