package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, user_id, balance, created_at, updated_at`

// Ledger implements ports.Ledger on a pgx transaction per unit of work.
// Wallet rows are locked with SELECT ... FOR UPDATE and stay locked until
// the unit commits or rolls back.
type Ledger struct {
	pool Pool
}

// NewLedger creates a new Ledger.
func NewLedger(pool Pool) *Ledger {
	return &Ledger{pool: pool}
}

// RunAtomic runs fn inside a READ COMMITTED transaction.
func (l *Ledger) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	dbTx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	// Rollback must still reach the server after ctx is cancelled.
	defer dbTx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck

	if err := fn(ctx, &ledgerTx{tx: dbTx}); err != nil {
		return classify(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit ledger tx: %w", err))
	}
	return nil
}

type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	item, err := scanItem(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get item in ledger tx: %w", err)
	}
	return item, nil
}

func (t *ledgerTx) GetWalletForUpdate(ctx context.Context, id int64) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	w, err := scanWallet(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get wallet for update by id: %w", err)
	}
	return w, nil
}

func (t *ledgerTx) GetWalletByUserForUpdate(ctx context.Context, userID int64) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	w, err := scanWallet(t.tx.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("get wallet for update by user: %w", err)
	}
	return w, nil
}

func (t *ledgerTx) GetMerchantWalletForUpdate(ctx context.Context, merchantID int64) (*domain.Wallet, error) {
	query := `SELECT w.id, w.user_id, w.balance, w.created_at, w.updated_at
		FROM wallets w JOIN merchants m ON m.user_id = w.user_id
		WHERE m.id = $1 FOR UPDATE OF w`
	w, err := scanWallet(t.tx.QueryRow(ctx, query, merchantID))
	if err != nil {
		return nil, fmt.Errorf("get merchant wallet for update: %w", err)
	}
	return w, nil
}

// AdjustBalance locks the row (a no-op if already held), checks the
// resulting balance and writes it. The CHECK constraint backs the same rule.
func (t *ledgerTx) AdjustBalance(ctx context.Context, walletID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var current decimal.Decimal
	err := t.tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1 FOR UPDATE`, walletID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("adjust balance: wallet %d not found", walletID)
		}
		return decimal.Zero, fmt.Errorf("lock wallet balance: %w", err)
	}

	next := current.Add(delta)
	if next.IsNegative() {
		return current, domain.ErrInsufficientFunds
	}

	tag, err := t.tx.Exec(ctx, `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`, next, walletID)
	if err != nil {
		return current, fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return current, fmt.Errorf("adjust balance: wallet %d not found", walletID)
	}
	return next, nil
}

func (t *ledgerTx) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	query := `INSERT INTO transactions (wallet_id, merchant_id, item_id, amount, idempotency_key)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`

	err := t.tx.QueryRow(ctx, query,
		txn.WalletID, txn.MerchantID, txn.ItemID, txn.Amount, txn.IdempotencyKey,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// scanWallet returns (nil, nil) when the row does not exist.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}
