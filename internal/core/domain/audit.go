package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister       AuditAction = "REGISTER"
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionWalletCreate   AuditAction = "WALLET_CREATE"
	AuditActionWalletUpdate   AuditAction = "WALLET_UPDATE"
	AuditActionWalletDelete   AuditAction = "WALLET_DELETE"
	AuditActionWalletTopup    AuditAction = "WALLET_TOPUP"
	AuditActionMerchantCreate AuditAction = "MERCHANT_CREATE"
	AuditActionMerchantUpdate AuditAction = "MERCHANT_UPDATE"
	AuditActionMerchantDelete AuditAction = "MERCHANT_DELETE"
	AuditActionItemCreate     AuditAction = "ITEM_CREATE"
	AuditActionItemUpdate     AuditAction = "ITEM_UPDATE"
	AuditActionItemDelete     AuditAction = "ITEM_DELETE"
)

// AuditLog records one administrative write.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	UserID       *int64      `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
