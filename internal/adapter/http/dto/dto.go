package dto

import (
	"marketplace/internal/core/domain"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for account registration.
// Role defaults to customer.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	Role     string `json:"role" binding:"omitempty,oneof=customer merchant"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	User   *domain.User   `json:"user"`
	Wallet *domain.Wallet `json:"wallet"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	Expiry    int64  `json:"expiry"` // Unix timestamp
}

// BuyRequest is the request body for POST /buy.
type BuyRequest struct {
	ItemID int64 `json:"item_id" binding:"required,gt=0"`
}

// BuyResponse is the purchase receipt. Price is the amount charged.
type BuyResponse struct {
	ID         int64           `json:"id"`
	WalletID   int64           `json:"wallet_id"`
	ItemID     int64           `json:"item_id"`
	MerchantID int64           `json:"merchant_id"`
	Price      decimal.Decimal `json:"price"`
}

// NewBuyResponse renders a transaction as a purchase receipt.
func NewBuyResponse(t *domain.Transaction) BuyResponse {
	return BuyResponse{
		ID:         t.ID,
		WalletID:   t.WalletID,
		ItemID:     t.ItemID,
		MerchantID: t.MerchantID,
		Price:      t.Amount,
	}
}

// WalletBalanceRequest carries a balance for PUT /wallets/{id} (replacement)
// and PUT /wallets/add (increment).
type WalletBalanceRequest struct {
	Balance *decimal.Decimal `json:"balance" binding:"omitempty,gte=0"`
}

// MerchantRequest is the request body for merchant create and update.
type MerchantRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=1000"`
}

// ItemRequest is the request body for item create and update.
// MerchantID is ignored on update and on POST /merchants/{id}/items.
type ItemRequest struct {
	Name        string           `json:"name" binding:"required,min=1,max=200"`
	Description string           `json:"description" binding:"max=2000"`
	Price       decimal.Decimal  `json:"price" binding:"gt=0"`
	Tax         *decimal.Decimal `json:"tax" binding:"omitempty,gte=0"`
	MerchantID  int64            `json:"merchant_id" binding:"omitempty,gt=0"`
}

// TransactionQuery holds GET /transactions query parameters.
type TransactionQuery struct {
	WalletID   int64  `form:"wallet_id" binding:"omitempty,gt=0"`
	MerchantID int64  `form:"merchant_id" binding:"omitempty,gt=0"`
	ItemID     int64  `form:"item_id" binding:"omitempty,gt=0"`
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To         string `form:"to" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Page       int    `form:"page" binding:"omitempty,gte=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,gte=1,lte=100"`
}

// PageQuery holds generic paging query parameters.
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,gte=1"`
	PageSize int `form:"page_size" binding:"omitempty,gte=1,lte=100"`
}

// ItemQuery holds GET /items query parameters.
type ItemQuery struct {
	PageQuery
	MerchantID int64 `form:"merchant_id" binding:"omitempty,gt=0"`
}
