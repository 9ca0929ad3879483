package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the immutable record of a completed purchase.
// Amount equals the item price at the moment of purchase.
type Transaction struct {
	ID             int64           `json:"id"`
	WalletID       int64           `json:"wallet_id"`
	MerchantID     int64           `json:"merchant_id"`
	ItemID         int64           `json:"item_id"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey *string         `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TransactionFilter narrows transaction listings. Zero fields are ignored.
type TransactionFilter struct {
	WalletID   int64
	MerchantID int64
	ItemID     int64
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// Normalize clamps paging to sane bounds.
func (f *TransactionFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
}

// Offset returns the row offset of the requested page.
func (f TransactionFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// BuildIdempotencyKey scopes a client supplied key to the buying user.
func BuildIdempotencyKey(userID int64, clientKey string) string {
	return strconv.FormatInt(userID, 10) + ":" + clientKey
}
