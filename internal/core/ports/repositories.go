package ports

import (
	"context"

	"marketplace/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Lookups return (nil, nil) when the record does not exist.

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// CreateWithWallet inserts the user and its zero-balance wallet atomically.
	// Returns domain.ErrDuplicate when the username is taken.
	CreateWithWallet(ctx context.Context, user *domain.User, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// WalletRepository defines wallet reads and lifecycle writes.
// Balance mutations go through LedgerTx.AdjustBalance only.
type WalletRepository interface {
	// Create returns domain.ErrDuplicate when the user already has a wallet.
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id int64) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error)
	List(ctx context.Context, limit, offset int) ([]domain.Wallet, int64, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// MerchantRepository defines persistence operations for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id int64) (*domain.Merchant, error)
	List(ctx context.Context, limit, offset int) ([]domain.Merchant, int64, error)
	Update(ctx context.Context, merchant *domain.Merchant) error
	// Delete removes the merchant and cascades to its items.
	Delete(ctx context.Context, id int64) (bool, error)
	GetStats(ctx context.Context, merchantID int64) (*domain.MerchantStats, error)
}

// ItemRepository defines persistence operations for items.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	// List returns all items when merchantID is zero.
	List(ctx context.Context, merchantID int64, limit, offset int) ([]domain.Item, int64, error)
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id int64) (bool, error)
}

// TransactionRepository is read-only. Transactions are written by LedgerTx.
type TransactionRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// LedgerTx is the set of operations available inside one atomic unit of work.
// Wallets returned by the *ForUpdate methods stay write-locked until the unit ends.
type LedgerTx interface {
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
	GetWalletForUpdate(ctx context.Context, id int64) (*domain.Wallet, error)
	GetWalletByUserForUpdate(ctx context.Context, userID int64) (*domain.Wallet, error)
	// GetMerchantWalletForUpdate resolves the wallet of the merchant's owner.
	GetMerchantWalletForUpdate(ctx context.Context, merchantID int64) (*domain.Wallet, error)
	// AdjustBalance adds delta to the wallet balance and returns the new balance.
	// It fails with domain.ErrInsufficientFunds when the result would be negative.
	AdjustBalance(ctx context.Context, walletID int64, delta decimal.Decimal) (decimal.Decimal, error)
	// CreateTransaction assigns ID and CreatedAt on success.
	CreateTransaction(ctx context.Context, txn *domain.Transaction) error
}

// Ledger runs atomic units of work against the store.
type Ledger interface {
	// RunAtomic commits every effect of fn or none of them. fn's error, or
	// cancellation of ctx before commit, rolls the unit back. Retryable
	// concurrency failures are reported wrapping domain.ErrConflict.
	RunAtomic(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}
