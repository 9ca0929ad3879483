package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.UserRepository        = (*UserRepo)(nil)
	_ ports.WalletRepository      = (*WalletRepo)(nil)
	_ ports.MerchantRepository    = (*MerchantRepo)(nil)
	_ ports.ItemRepository        = (*ItemRepo)(nil)
	_ ports.TransactionRepository = (*TransactionRepo)(nil)
	_ ports.AuditRepository       = (*AuditRepo)(nil)
	_ ports.Ledger                = (*Store)(nil)
	_ ports.HealthChecker         = (*Store)(nil)
)

func seedUser(t *testing.T, s *Store, name string, role domain.Role, balance int64) (*domain.User, *domain.Wallet) {
	t.Helper()
	u := &domain.User{Username: name, PasswordHash: "x", Role: role}
	w := &domain.Wallet{Balance: decimal.NewFromInt(balance)}
	require.NoError(t, s.Users().CreateWithWallet(context.Background(), u, w))
	return u, w
}

func seedItem(t *testing.T, s *Store, owner *domain.User, price int64) *domain.Item {
	t.Helper()
	ctx := context.Background()
	m := &domain.Merchant{Name: "shop", UserID: owner.ID}
	require.NoError(t, s.Merchants().Create(ctx, m))
	it := &domain.Item{Name: "widget", Price: decimal.NewFromInt(price), MerchantID: m.ID}
	require.NoError(t, s.Items().Create(ctx, it))
	return it
}

func TestUserRepo_CreateWithWallet(t *testing.T) {
	s := New()
	u, w := seedUser(t, s, "alice", domain.RoleCustomer, 0)

	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, u.ID, w.UserID)

	err := s.Users().CreateWithWallet(context.Background(),
		&domain.User{Username: "alice", Role: domain.RoleMerchant}, &domain.Wallet{})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	got, err := s.Users().GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	missing, err := s.Users().GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWalletRepo_CreateDuplicateAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, w := seedUser(t, s, "alice", domain.RoleCustomer, 5)

	err := s.Wallets().Create(ctx, &domain.Wallet{UserID: u.ID})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	deleted, err := s.Wallets().Delete(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Wallets().Delete(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, s.Wallets().Create(ctx, &domain.Wallet{UserID: u.ID}))
	got, err := s.Wallets().GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Balance.IsZero())
}

func TestWalletRepo_ListPaging(t *testing.T) {
	s := New()
	for _, name := range []string{"a", "b", "c"} {
		seedUser(t, s, name, domain.RoleCustomer, 0)
	}

	wallets, total, err := s.Wallets().List(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, wallets, 1)
	assert.Equal(t, int64(3), wallets[0].ID)

	wallets, _, err = s.Wallets().List(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestMerchantRepo_DeleteCascadesItems(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner, _ := seedUser(t, s, "bob", domain.RoleMerchant, 0)
	it := seedItem(t, s, owner, 10)

	deleted, err := s.Merchants().Delete(ctx, it.MerchantID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := s.Items().GetByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestItemRepo_CreateRequiresMerchant(t *testing.T) {
	s := New()
	err := s.Items().Create(context.Background(), &domain.Item{Name: "x", MerchantID: 9})
	assert.Error(t, err)
}

func TestItemRepo_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner, _ := seedUser(t, s, "bob", domain.RoleMerchant, 0)
	it := seedItem(t, s, owner, 10)

	got, err := s.Items().GetByID(ctx, it.ID)
	require.NoError(t, err)
	got.Price = decimal.NewFromInt(1)

	again, err := s.Items().GetByID(ctx, it.ID)
	require.NoError(t, err)
	assert.True(t, again.Price.Equal(decimal.NewFromInt(10)))
}

func TestRunAtomic_CommitsAllEffects(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, buyer := seedUser(t, s, "alice", domain.RoleCustomer, 100)
	owner, seller := seedUser(t, s, "bob", domain.RoleMerchant, 0)
	it := seedItem(t, s, owner, 30)

	err := s.RunAtomic(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		if _, err := tx.AdjustBalance(ctx, buyer.ID, it.Price.Neg()); err != nil {
			return err
		}
		if _, err := tx.AdjustBalance(ctx, seller.ID, it.Price); err != nil {
			return err
		}
		return tx.CreateTransaction(ctx, &domain.Transaction{
			WalletID: buyer.ID, MerchantID: it.MerchantID, ItemID: it.ID, Amount: it.Price,
		})
	})
	require.NoError(t, err)

	b, _ := s.Wallets().GetByID(ctx, buyer.ID)
	sw, _ := s.Wallets().GetByID(ctx, seller.ID)
	assert.True(t, b.Balance.Equal(decimal.NewFromInt(70)))
	assert.True(t, sw.Balance.Equal(decimal.NewFromInt(30)))

	txns, total, err := s.Transactions().List(ctx, domain.TransactionFilter{WalletID: buyer.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, it.ID, txns[0].ItemID)

	stats, err := s.Merchants().GetStats(ctx, it.MerchantID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.SalesCount)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, int64(1), stats.ItemsSold)
}

func TestRunAtomic_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, buyer := seedUser(t, s, "alice", domain.RoleCustomer, 100)
	owner, seller := seedUser(t, s, "bob", domain.RoleMerchant, 0)
	it := seedItem(t, s, owner, 30)

	boom := errors.New("boom")
	err := s.RunAtomic(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		if _, err := tx.AdjustBalance(ctx, buyer.ID, it.Price.Neg()); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, &domain.Transaction{WalletID: buyer.ID, ItemID: it.ID, Amount: it.Price}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	b, _ := s.Wallets().GetByID(ctx, buyer.ID)
	sw, _ := s.Wallets().GetByID(ctx, seller.ID)
	assert.True(t, b.Balance.Equal(decimal.NewFromInt(100)))
	assert.True(t, sw.Balance.IsZero())
	_, total, _ := s.Transactions().List(ctx, domain.TransactionFilter{})
	assert.Zero(t, total)
}

func TestRunAtomic_InsufficientFunds(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, w := seedUser(t, s, "alice", domain.RoleCustomer, 10)

	err := s.RunAtomic(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		_, err := tx.AdjustBalance(ctx, w.ID, decimal.NewFromInt(-11))
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	got, _ := s.Wallets().GetByID(ctx, w.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(10)))
}

func TestRunAtomic_CancelledBeforeCommit(t *testing.T) {
	s := New()
	_, w := seedUser(t, s, "alice", domain.RoleCustomer, 10)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.RunAtomic(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		_, err := tx.AdjustBalance(ctx, w.ID, decimal.NewFromInt(-5))
		cancel()
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)

	got, _ := s.Wallets().GetByID(context.Background(), w.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(10)))
}

func TestRunAtomic_LockWaitHonoursDeadline(t *testing.T) {
	s := New()
	_, w := seedUser(t, s, "alice", domain.RoleCustomer, 10)

	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.RunAtomic(context.Background(), func(ctx context.Context, tx ports.LedgerTx) error {
			if _, err := tx.GetWalletForUpdate(ctx, w.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.RunAtomic(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		_, err := tx.GetWalletForUpdate(ctx, w.ID)
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunAtomic_DuplicateIdempotencyKey(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, w := seedUser(t, s, "alice", domain.RoleCustomer, 10)
	key := domain.BuildIdempotencyKey(1, "k")

	create := func(ctx context.Context, tx ports.LedgerTx) error {
		k := key
		return tx.CreateTransaction(ctx, &domain.Transaction{WalletID: w.ID, IdempotencyKey: &k})
	}
	require.NoError(t, s.RunAtomic(ctx, create))
	assert.ErrorIs(t, s.RunAtomic(ctx, create), domain.ErrConflict)

	got, err := s.Transactions().GetByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
}

func TestRunAtomic_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, w := seedUser(t, s, "alice", domain.RoleCustomer, 50)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunAtomic(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
				_, err := tx.AdjustBalance(ctx, w.ID, decimal.NewFromInt(-10))
				return err
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	got, _ := s.Wallets().GetByID(ctx, w.ID)
	assert.True(t, got.Balance.IsZero())
}

func TestTransactionRepo_ListFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Hour)
	}

	for i := range 3 {
		require.NoError(t, s.RunAtomic(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
			return tx.CreateTransaction(ctx, &domain.Transaction{WalletID: 1, MerchantID: int64(i%2 + 1), ItemID: 7})
		}))
	}

	all, total, err := s.Transactions().List(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []int64{3, 2, 1}, []int64{all[0].ID, all[1].ID, all[2].ID})

	byMerchant, total, err := s.Transactions().List(ctx, domain.TransactionFilter{MerchantID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(3), byMerchant[0].ID)

	from := base.Add(2 * time.Hour)
	recent, total, err := s.Transactions().List(ctx, domain.TransactionFilter{From: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, recent, 2)
}

func TestAuditRepo_Entries(t *testing.T) {
	s := New()
	require.NoError(t, s.Audit().Create(context.Background(), &domain.AuditLog{Action: domain.AuditActionLogin}))
	assert.Len(t, s.Audit().Entries(), 1)
}
