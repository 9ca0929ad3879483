package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"

	"marketplace/internal/core/domain"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct{ s *Store }

func (r *UserRepo) CreateWithWallet(_ context.Context, u *domain.User, w *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return domain.ErrDuplicate
		}
	}
	now := r.s.now()
	u.ID = r.s.nextID("users")
	u.CreatedAt = now
	stored := *u
	r.s.users[u.ID] = &stored

	w.ID = r.s.nextID("wallets")
	w.UserID = u.ID
	w.CreatedAt, w.UpdatedAt = now, now
	r.s.wallets[w.ID] = copyWallet(w)
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct{ s *Store }

func (r *WalletRepo) Create(_ context.Context, w *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.walletIDByUser(w.UserID) != 0 {
		return domain.ErrDuplicate
	}
	now := r.s.now()
	w.ID = r.s.nextID("wallets")
	w.CreatedAt, w.UpdatedAt = now, now
	r.s.wallets[w.ID] = copyWallet(w)
	return nil
}

func (r *WalletRepo) GetByID(_ context.Context, id int64) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyWallet(r.s.wallets[id]), nil
}

func (r *WalletRepo) GetByUserID(_ context.Context, userID int64) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyWallet(r.s.wallets[r.s.walletIDByUser(userID)]), nil
}

func (r *WalletRepo) List(_ context.Context, limit, offset int) ([]domain.Wallet, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]domain.Wallet, 0, len(r.s.wallets))
	for _, id := range slices.Sorted(maps.Keys(r.s.wallets)) {
		all = append(all, *r.s.wallets[id])
	}
	return page(all, limit, offset), int64(len(all)), nil
}

// Delete waits for the row lock so it never races a ledger unit.
func (r *WalletRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if err := r.s.lockRow(ctx, id); err != nil {
		return false, err
	}
	defer r.s.unlockRow(id)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[id]; !ok {
		return false, nil
	}
	delete(r.s.wallets, id)
	return true, nil
}

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct{ s *Store }

func (r *MerchantRepo) Create(_ context.Context, m *domain.Merchant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	m.ID = r.s.nextID("merchants")
	m.CreatedAt, m.UpdatedAt = now, now
	stored := *m
	r.s.merchants[m.ID] = &stored
	return nil
}

func (r *MerchantRepo) GetByID(_ context.Context, id int64) (*domain.Merchant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if m, ok := r.s.merchants[id]; ok {
		c := *m
		return &c, nil
	}
	return nil, nil
}

func (r *MerchantRepo) List(_ context.Context, limit, offset int) ([]domain.Merchant, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]domain.Merchant, 0, len(r.s.merchants))
	for _, id := range slices.Sorted(maps.Keys(r.s.merchants)) {
		all = append(all, *r.s.merchants[id])
	}
	return page(all, limit, offset), int64(len(all)), nil
}

func (r *MerchantRepo) Update(_ context.Context, m *domain.Merchant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.merchants[m.ID]
	if !ok {
		return errNotFound("merchant", m.ID)
	}
	stored.Name = m.Name
	stored.Description = m.Description
	stored.UpdatedAt = r.s.now()
	m.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete removes the merchant and its items.
func (r *MerchantRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.merchants[id]; !ok {
		return false, nil
	}
	delete(r.s.merchants, id)
	maps.DeleteFunc(r.s.items, func(_ int64, it *domain.Item) bool {
		return it.MerchantID == id
	})
	return true, nil
}

func (r *MerchantRepo) GetStats(_ context.Context, merchantID int64) (*domain.MerchantStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := &domain.MerchantStats{MerchantID: merchantID}
	items := make(map[int64]struct{})
	for _, t := range r.s.transactions {
		if t.MerchantID != merchantID {
			continue
		}
		stats.SalesCount++
		stats.TotalRevenue = stats.TotalRevenue.Add(t.Amount)
		items[t.ItemID] = struct{}{}
	}
	stats.ItemsSold = int64(len(items))
	return stats, nil
}

// ItemRepo implements ports.ItemRepository.
type ItemRepo struct{ s *Store }

func (r *ItemRepo) Create(_ context.Context, it *domain.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.merchants[it.MerchantID]; !ok {
		return errNotFound("merchant", it.MerchantID)
	}
	now := r.s.now()
	it.ID = r.s.nextID("items")
	it.CreatedAt, it.UpdatedAt = now, now
	r.s.items[it.ID] = copyItem(it)
	return nil
}

func (r *ItemRepo) GetByID(_ context.Context, id int64) (*domain.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyItem(r.s.items[id]), nil
}

func (r *ItemRepo) List(_ context.Context, merchantID int64, limit, offset int) ([]domain.Item, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]domain.Item, 0)
	for _, id := range slices.Sorted(maps.Keys(r.s.items)) {
		it := r.s.items[id]
		if merchantID != 0 && it.MerchantID != merchantID {
			continue
		}
		all = append(all, *copyItem(it))
	}
	return page(all, limit, offset), int64(len(all)), nil
}

func (r *ItemRepo) Update(_ context.Context, it *domain.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.items[it.ID]
	if !ok {
		return errNotFound("item", it.ID)
	}
	it.MerchantID = stored.MerchantID
	it.CreatedAt = stored.CreatedAt
	it.UpdatedAt = r.s.now()
	r.s.items[it.ID] = copyItem(it)
	return nil
}

func (r *ItemRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.items[id]; !ok {
		return false, nil
	}
	delete(r.s.items, id)
	return true, nil
}

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct{ s *Store }

func (r *TransactionRepo) GetByID(_ context.Context, id int64) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyTransaction(r.s.transactions[id]), nil
}

func (r *TransactionRepo) GetByIdempotencyKey(_ context.Context, key string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.transactions {
		if t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			return copyTransaction(t), nil
		}
	}
	return nil, nil
}

func (r *TransactionRepo) List(_ context.Context, f domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	f.Normalize()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]domain.Transaction, 0)
	for _, t := range r.s.transactions {
		switch {
		case f.WalletID != 0 && t.WalletID != f.WalletID,
			f.MerchantID != 0 && t.MerchantID != f.MerchantID,
			f.ItemID != 0 && t.ItemID != f.ItemID,
			f.From != nil && t.CreatedAt.Before(*f.From),
			f.To != nil && t.CreatedAt.After(*f.To):
			continue
		}
		all = append(all, *copyTransaction(t))
	}
	slices.SortFunc(all, func(a, b domain.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return page(all, f.PageSize, f.Offset()), int64(len(all)), nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ s *Store }

func (r *AuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

// Entries returns a snapshot of the recorded audit log.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return slices.Clone(r.s.audit)
}
