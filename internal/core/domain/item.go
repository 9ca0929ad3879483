package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a purchasable good listed by a merchant.
type Item struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	Tax         *decimal.Decimal `json:"tax"`
	MerchantID  int64            `json:"merchant_id"`
	CreatedAt   time.Time        `json:"-"`
	UpdatedAt   time.Time        `json:"-"`
}
