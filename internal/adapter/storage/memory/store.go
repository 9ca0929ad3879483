// Package memory is an in-process implementation of the storage ports.
// It backs the "memory" storage driver and the end-to-end tests.
package memory

import (
	"context"
	"sync"
	"time"

	"marketplace/internal/core/domain"
)

// Store holds every table in maps guarded by one RWMutex. Wallet rows are
// additionally protected by per-row lock channels held for the duration of
// a ledger unit, which mirrors SELECT ... FOR UPDATE.
type Store struct {
	mu           sync.RWMutex
	seq          map[string]int64
	users        map[int64]*domain.User
	wallets      map[int64]*domain.Wallet
	merchants    map[int64]*domain.Merchant
	items        map[int64]*domain.Item
	transactions map[int64]*domain.Transaction
	audit        []domain.AuditLog

	lockMu   sync.Mutex
	rowLocks map[int64]chan struct{}

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		seq:          make(map[string]int64),
		users:        make(map[int64]*domain.User),
		wallets:      make(map[int64]*domain.Wallet),
		merchants:    make(map[int64]*domain.Merchant),
		items:        make(map[int64]*domain.Item),
		transactions: make(map[int64]*domain.Transaction),
		rowLocks:     make(map[int64]chan struct{}),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the ports.UserRepository view of the store.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Wallets returns the ports.WalletRepository view of the store.
func (s *Store) Wallets() *WalletRepo { return &WalletRepo{s: s} }

// Merchants returns the ports.MerchantRepository view of the store.
func (s *Store) Merchants() *MerchantRepo { return &MerchantRepo{s: s} }

// Items returns the ports.ItemRepository view of the store.
func (s *Store) Items() *ItemRepo { return &ItemRepo{s: s} }

// Transactions returns the ports.TransactionRepository view of the store.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

// Audit returns the ports.AuditRepository view of the store.
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Ping implements ports.HealthChecker. The store is always reachable.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// nextID must be called with s.mu held for writing.
func (s *Store) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *Store) rowLock(walletID int64) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	ch, ok := s.rowLocks[walletID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rowLocks[walletID] = ch
	}
	return ch
}

// lockRow blocks until the wallet row lock is acquired or ctx is done.
func (s *Store) lockRow(ctx context.Context, walletID int64) error {
	select {
	case s.rowLock(walletID) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlockRow(walletID int64) {
	<-s.rowLock(walletID)
}

func copyWallet(w *domain.Wallet) *domain.Wallet {
	if w == nil {
		return nil
	}
	c := *w
	return &c
}

func copyItem(it *domain.Item) *domain.Item {
	if it == nil {
		return nil
	}
	c := *it
	if it.Tax != nil {
		tax := *it.Tax
		c.Tax = &tax
	}
	return &c
}

func copyTransaction(t *domain.Transaction) *domain.Transaction {
	if t == nil {
		return nil
	}
	c := *t
	if t.IdempotencyKey != nil {
		key := *t.IdempotencyKey
		c.IdempotencyKey = &key
	}
	return &c
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return make([]T, 0)
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
