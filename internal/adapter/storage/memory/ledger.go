package memory

import (
	"context"
	"fmt"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"

	"github.com/shopspring/decimal"
)

// RunAtomic implements ports.Ledger. Effects are buffered in the unit and
// applied under the store write lock on commit, so readers observe either
// all of them or none.
func (s *Store) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	tx := &ledgerTx{
		s:        s,
		held:     make(map[int64]struct{}),
		balances: make(map[int64]decimal.Decimal),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

type ledgerTx struct {
	s        *Store
	held     map[int64]struct{}
	balances map[int64]decimal.Decimal
	created  []*domain.Transaction
}

func (t *ledgerTx) lock(ctx context.Context, walletID int64) error {
	if _, ok := t.held[walletID]; ok {
		return nil
	}
	if err := t.s.lockRow(ctx, walletID); err != nil {
		return fmt.Errorf("lock wallet %d: %w", walletID, err)
	}
	t.held[walletID] = struct{}{}
	return nil
}

func (t *ledgerTx) release() {
	for id := range t.held {
		t.s.unlockRow(id)
	}
	t.held = nil
}

// wallet reads the committed row with this unit's pending balance applied.
func (t *ledgerTx) wallet(id int64) *domain.Wallet {
	t.s.mu.RLock()
	w := copyWallet(t.s.wallets[id])
	t.s.mu.RUnlock()
	if w == nil {
		return nil
	}
	if b, ok := t.balances[id]; ok {
		w.Balance = b
	}
	return w
}

func (t *ledgerTx) lockAndRead(ctx context.Context, walletID int64) (*domain.Wallet, error) {
	if walletID == 0 {
		return nil, nil
	}
	if err := t.lock(ctx, walletID); err != nil {
		return nil, err
	}
	return t.wallet(walletID), nil
}

func (t *ledgerTx) GetItem(_ context.Context, id int64) (*domain.Item, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return copyItem(t.s.items[id]), nil
}

func (t *ledgerTx) GetWalletForUpdate(ctx context.Context, id int64) (*domain.Wallet, error) {
	t.s.mu.RLock()
	_, ok := t.s.wallets[id]
	t.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return t.lockAndRead(ctx, id)
}

func (t *ledgerTx) GetWalletByUserForUpdate(ctx context.Context, userID int64) (*domain.Wallet, error) {
	t.s.mu.RLock()
	id := t.s.walletIDByUser(userID)
	t.s.mu.RUnlock()
	return t.lockAndRead(ctx, id)
}

func (t *ledgerTx) GetMerchantWalletForUpdate(ctx context.Context, merchantID int64) (*domain.Wallet, error) {
	t.s.mu.RLock()
	var id int64
	if m, ok := t.s.merchants[merchantID]; ok {
		id = t.s.walletIDByUser(m.UserID)
	}
	t.s.mu.RUnlock()
	return t.lockAndRead(ctx, id)
}

func (t *ledgerTx) AdjustBalance(ctx context.Context, walletID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := t.lock(ctx, walletID); err != nil {
		return decimal.Zero, err
	}
	w := t.wallet(walletID)
	if w == nil {
		return decimal.Zero, fmt.Errorf("adjust balance: wallet %d not found", walletID)
	}

	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return w.Balance, domain.ErrInsufficientFunds
	}
	t.balances[walletID] = next
	return next, nil
}

func (t *ledgerTx) CreateTransaction(_ context.Context, txn *domain.Transaction) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if txn.IdempotencyKey != nil && t.s.hasIdempotencyKey(*txn.IdempotencyKey) {
		return fmt.Errorf("%w: idempotency key %q already recorded", domain.ErrConflict, *txn.IdempotencyKey)
	}
	txn.ID = t.s.nextID("transactions")
	txn.CreatedAt = t.s.now()
	t.created = append(t.created, copyTransaction(txn))
	return nil
}

func (t *ledgerTx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, txn := range t.created {
		if txn.IdempotencyKey != nil && t.s.hasIdempotencyKey(*txn.IdempotencyKey) {
			return fmt.Errorf("%w: idempotency key %q already recorded", domain.ErrConflict, *txn.IdempotencyKey)
		}
	}

	now := t.s.now()
	for id, balance := range t.balances {
		if w, ok := t.s.wallets[id]; ok {
			w.Balance = balance
			w.UpdatedAt = now
		}
	}
	for _, txn := range t.created {
		t.s.transactions[txn.ID] = txn
	}
	return nil
}

// walletIDByUser must be called with s.mu held. Returns 0 when absent.
func (s *Store) walletIDByUser(userID int64) int64 {
	for id, w := range s.wallets {
		if w.UserID == userID {
			return id
		}
	}
	return 0
}

// hasIdempotencyKey must be called with s.mu held.
func (s *Store) hasIdempotencyKey(key string) bool {
	for _, t := range s.transactions {
		if t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			return true
		}
	}
	return false
}
