package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Merchant is a seller. Proceeds land in the owning user's wallet.
type Merchant struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// OwnedBy reports whether userID owns the merchant.
func (m *Merchant) OwnedBy(userID int64) bool {
	return m.UserID == userID
}

// MerchantStats summarises the sales of one merchant.
type MerchantStats struct {
	MerchantID   int64           `json:"merchant_id"`
	SalesCount   int64           `json:"sales_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	ItemsSold    int64           `json:"distinct_items_sold"`
}
