package ports

import (
	"context"
	"time"

	"marketplace/internal/core/domain"

	"github.com/shopspring/decimal"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService issues and verifies bearer tokens.
type TokenService interface {
	Generate(user *domain.User) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed token claims.
type TokenClaims struct {
	UserID    int64
	Role      domain.Role
	TokenID   string
	ExpiresAt time.Time
}

// Principal returns the authenticated actor carried by the claims.
func (c *TokenClaims) Principal() domain.Principal {
	return domain.Principal{UserID: c.UserID, Role: c.Role}
}

// TokenDenylist tracks revoked token ids until they expire.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// IdempotencyCache is the fast-path store for replayed purchases.
type IdempotencyCache interface {
	// Get returns the cached payload or nil when absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // unix seconds
}

// RateLimitStore counts requests per key and window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// PurchaseMetrics records purchase outcomes.
type PurchaseMetrics interface {
	ObservePurchase(outcome string, elapsed time.Duration)
	IncConflictRetry()
}

// --- Service Ports ---

// PurchaseService executes the buy-item flow.
type PurchaseService interface {
	Buy(ctx context.Context, req BuyRequest) (*domain.Transaction, error)
}

// BuyRequest is a validated purchase request.
type BuyRequest struct {
	Principal      domain.Principal
	ItemID         int64
	IdempotencyKey string // optional
}

// WalletService serves wallet reads and administrative adjustments.
type WalletService interface {
	Get(ctx context.Context, id int64) (*domain.Wallet, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Wallet, int64, error)
	Create(ctx context.Context, principal domain.Principal) (*domain.Wallet, error)
	// Update replaces the balance of a wallet owned by principal.
	Update(ctx context.Context, principal domain.Principal, id int64, balance decimal.Decimal) (*domain.Wallet, error)
	Delete(ctx context.Context, principal domain.Principal, id int64) error
	// TopUp adds amount to the principal's own wallet.
	TopUp(ctx context.Context, principal domain.Principal, amount decimal.Decimal) (*domain.Wallet, error)
}

// MerchantInput carries writable merchant fields.
type MerchantInput struct {
	Name        string
	Description string
}

// MerchantService manages merchants.
type MerchantService interface {
	Create(ctx context.Context, principal domain.Principal, in MerchantInput) (*domain.Merchant, error)
	Get(ctx context.Context, id int64) (*domain.Merchant, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Merchant, int64, error)
	Update(ctx context.Context, principal domain.Principal, id int64, in MerchantInput) (*domain.Merchant, error)
	Delete(ctx context.Context, principal domain.Principal, id int64) error
	Stats(ctx context.Context, principal domain.Principal, id int64) (*domain.MerchantStats, error)
}

// ItemInput carries writable item fields.
type ItemInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Tax         *decimal.Decimal
	MerchantID  int64
}

// ItemService manages the catalogue.
type ItemService interface {
	Create(ctx context.Context, principal domain.Principal, in ItemInput) (*domain.Item, error)
	Get(ctx context.Context, id int64) (*domain.Item, error)
	List(ctx context.Context, merchantID int64, page, pageSize int) ([]domain.Item, int64, error)
	Update(ctx context.Context, principal domain.Principal, id int64, in ItemInput) (*domain.Item, error)
	Delete(ctx context.Context, principal domain.Principal, id int64) error
}

// TransactionService exposes the purchase history visible to a principal.
type TransactionService interface {
	Get(ctx context.Context, principal domain.Principal, id int64) (*domain.Transaction, error)
	List(ctx context.Context, principal domain.Principal, filter domain.TransactionFilter) ([]domain.Transaction, int64, error)
}

// AuthService defines registration and session logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error)
	Logout(ctx context.Context, claims *TokenClaims) error
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Username string
	Password string
	Role     domain.Role
}

// RegisterResponse holds the created account and its wallet.
type RegisterResponse struct {
	User   *domain.User
	Wallet *domain.Wallet
}

// AuditService records administrative writes asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
