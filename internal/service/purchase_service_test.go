package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"
	"marketplace/internal/core/ports/mocks"
	"marketplace/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type purchaseTestDeps struct {
	svc        *PurchaseServiceImpl
	ledger     *mocks.MockLedger
	tx         *mocks.MockLedgerTx
	txRepo     *mocks.MockTransactionRepository
	idempCache *mocks.MockIdempotencyCache
	metrics    *mocks.MockPurchaseMetrics
}

func setupPurchaseService(t *testing.T) *purchaseTestDeps {
	ctrl := gomock.NewController(t)
	d := &purchaseTestDeps{
		ledger:     mocks.NewMockLedger(ctrl),
		tx:         mocks.NewMockLedgerTx(ctrl),
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		metrics:    mocks.NewMockPurchaseMetrics(ctrl),
	}
	d.svc = NewPurchaseService(d.ledger, d.txRepo, d.idempCache, d.metrics, PurchaseOptions{
		MaxAttempts:    3,
		RetryBackoff:   time.Millisecond,
		IdempotencyTTL: time.Hour,
	}, zerolog.Nop())
	return d
}

var (
	buyerPrincipal    = domain.Principal{UserID: 10, Role: domain.RoleCustomer}
	merchantPrincipal = domain.Principal{UserID: 20, Role: domain.RoleMerchant}
	testItem          = &domain.Item{ID: 5, Name: "lamp", Price: decimal.NewFromInt(40), MerchantID: 2}
)

func testWallet(id, userID int64, balance int64) *domain.Wallet {
	return &domain.Wallet{ID: id, UserID: userID, Balance: decimal.NewFromInt(balance)}
}

func assertAppError(t *testing.T, err error, code string, status int) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, status, appErr.HTTPStatus)
}

func TestPurchaseService_Buy_Success(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).DoAndReturn(runIn(d.tx))
	gomock.InOrder(
		d.tx.EXPECT().GetItem(ctx, int64(5)).Return(testItem, nil),
		d.tx.EXPECT().GetWalletByUserForUpdate(ctx, int64(10)).Return(testWallet(1, 10, 100), nil),
		d.tx.EXPECT().GetMerchantWalletForUpdate(ctx, int64(2)).Return(testWallet(9, 20, 0), nil),
		d.tx.EXPECT().AdjustBalance(ctx, int64(1), eqDecimal("-40")).Return(decimal.NewFromInt(60), nil),
		d.tx.EXPECT().AdjustBalance(ctx, int64(9), eqDecimal("40")).Return(decimal.NewFromInt(40), nil),
		d.tx.EXPECT().CreateTransaction(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, txn *domain.Transaction) error {
			txn.ID = 77
			return nil
		}),
	)
	d.metrics.EXPECT().ObservePurchase("success", gomock.Any())

	txn, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(77), txn.ID)
	assert.Equal(t, int64(1), txn.WalletID)
	assert.Equal(t, int64(2), txn.MerchantID)
	assert.Equal(t, int64(5), txn.ItemID)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(40)))
	assert.Nil(t, txn.IdempotencyKey)
}

func TestPurchaseService_Buy_ItemNotFound(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).DoAndReturn(runIn(d.tx))
	d.tx.EXPECT().GetItem(ctx, int64(5)).Return(nil, nil)
	d.metrics.EXPECT().ObservePurchase("rejected", gomock.Any())

	_, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: merchantPrincipal, ItemID: 5})
	assertAppError(t, err, "RES_001", http.StatusNotFound)
}

func TestPurchaseService_Buy_MerchantRoleRejectedBeforeBalance(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).DoAndReturn(runIn(d.tx))
	d.tx.EXPECT().GetItem(ctx, int64(5)).Return(testItem, nil)
	d.metrics.EXPECT().ObservePurchase("rejected", gomock.Any())

	_, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: merchantPrincipal, ItemID: 5})
	assertAppError(t, err, "BUY_001", http.StatusForbidden)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Only buyerPrincipal can buy items.", appErr.Message)
}

func TestPurchaseService_Buy_BuyerWalletMissing(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).DoAndReturn(runIn(d.tx))
	d.tx.EXPECT().GetItem(ctx, int64(5)).Return(testItem, nil)
	d.tx.EXPECT().GetWalletByUserForUpdate(ctx, int64(10)).Return(nil, nil)
	d.metrics.EXPECT().ObservePurchase("rejected", gomock.Any())

	_, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5})
	assertAppError(t, err, "RES_001", http.StatusNotFound)
}

func TestPurchaseService_Buy_SellerWalletMissing(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).DoAndReturn(runIn(d.tx))
	d.tx.EXPECT().GetItem(ctx, int64(5)).Return(testItem, nil)
	d.tx.EXPECT().GetWalletByUserForUpdate(ctx, int64(10)).Return(testWallet(1, 10, 100), nil)
	d.tx.EXPECT().GetMerchantWalletForUpdate(ctx, int64(2)).Return(nil, nil)
	d.metrics.EXPECT().ObservePurchase("rejected", gomock.Any())

	_, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5})
	assertAppError(t, err, "RES_001", http.StatusNotFound)
}

func TestPurchaseService_Buy_InsufficientFunds(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).DoAndReturn(runIn(d.tx))
	d.tx.EXPECT().GetItem(ctx, int64(5)).Return(testItem, nil)
	d.tx.EXPECT().GetWalletByUserForUpdate(ctx, int64(10)).Return(testWallet(1, 10, 39), nil)
	d.tx.EXPECT().GetMerchantWalletForUpdate(ctx, int64(2)).Return(testWallet(9, 20, 0), nil)
	d.metrics.EXPECT().ObservePurchase("insufficient_funds", gomock.Any())

	_, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5})
	assertAppError(t, err, "BUY_002", http.StatusBadRequest)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Not enough balance.", appErr.Message)
}

func TestPurchaseService_Buy_StoreRejectsNegativeBalance(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).DoAndReturn(runIn(d.tx))
	d.tx.EXPECT().GetItem(ctx, int64(5)).Return(testItem, nil)
	d.tx.EXPECT().GetWalletByUserForUpdate(ctx, int64(10)).Return(testWallet(1, 10, 100), nil)
	d.tx.EXPECT().GetMerchantWalletForUpdate(ctx, int64(2)).Return(testWallet(9, 20, 0), nil)
	d.tx.EXPECT().AdjustBalance(ctx, int64(1), gomock.Any()).Return(decimal.Zero, domain.ErrInsufficientFunds)
	d.metrics.EXPECT().ObservePurchase("insufficient_funds", gomock.Any())

	_, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5})
	assertAppError(t, err, "BUY_002", http.StatusBadRequest)
}

func TestPurchaseService_Buy_RetriesConflictThenSucceeds(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	gomock.InOrder(
		d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).Return(domain.ErrConflict),
		d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).DoAndReturn(runIn(d.tx)),
	)
	d.metrics.EXPECT().IncConflictRetry()
	d.tx.EXPECT().GetItem(ctx, int64(5)).Return(testItem, nil)
	d.tx.EXPECT().GetWalletByUserForUpdate(ctx, int64(10)).Return(testWallet(1, 10, 100), nil)
	d.tx.EXPECT().GetMerchantWalletForUpdate(ctx, int64(2)).Return(testWallet(9, 20, 0), nil)
	d.tx.EXPECT().AdjustBalance(ctx, gomock.Any(), gomock.Any()).Return(decimal.Zero, nil).Times(2)
	d.tx.EXPECT().CreateTransaction(ctx, gomock.Any()).Return(nil)
	d.metrics.EXPECT().ObservePurchase("success", gomock.Any())

	_, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5})
	require.NoError(t, err)
}

func TestPurchaseService_Buy_ConflictExhaustsAttempts(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).Return(domain.ErrConflict).Times(3)
	d.metrics.EXPECT().IncConflictRetry().Times(2)
	d.metrics.EXPECT().ObservePurchase("conflict", gomock.Any())

	_, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5})
	assertAppError(t, err, "BUY_003", http.StatusConflict)
}

func TestPurchaseService_Buy_LockTimeout(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).
		Return(errors.Join(errors.New("lock wallet 1"), context.DeadlineExceeded))
	d.metrics.EXPECT().ObservePurchase("error", gomock.Any())

	_, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5})
	assertAppError(t, err, "SYS_002", http.StatusServiceUnavailable)
}

func TestPurchaseService_Buy_UnexpectedStoreError(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).Return(errors.New("connection reset"))
	d.metrics.EXPECT().ObservePurchase("error", gomock.Any())

	_, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5})
	assertAppError(t, err, "SYS_001", http.StatusInternalServerError)
}

func TestPurchaseService_Buy_ReplayFromCache(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	prior := &domain.Transaction{ID: 77, WalletID: 1, MerchantID: 2, ItemID: 5, Amount: decimal.NewFromInt(40)}
	payload, err := json.Marshal(prior)
	require.NoError(t, err)

	d.idempCache.EXPECT().Get(ctx, "10:order-1").Return(payload, nil)
	d.metrics.EXPECT().ObservePurchase("replayed", gomock.Any())

	txn, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5, IdempotencyKey: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(77), txn.ID)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(40)))
}

func TestPurchaseService_Buy_ReplayFromStoreWhenCacheDown(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	prior := &domain.Transaction{ID: 77}
	d.idempCache.EXPECT().Get(ctx, "10:order-1").Return(nil, errors.New("redis down"))
	d.txRepo.EXPECT().GetByIdempotencyKey(ctx, "10:order-1").Return(prior, nil)
	d.metrics.EXPECT().ObservePurchase("replayed", gomock.Any())

	txn, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5, IdempotencyKey: "order-1"})
	require.NoError(t, err)
	assert.Same(t, prior, txn)
}

func TestPurchaseService_Buy_NewKeyIsRecordedAndCached(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	d.idempCache.EXPECT().Get(ctx, "10:order-2").Return(nil, nil)
	d.txRepo.EXPECT().GetByIdempotencyKey(ctx, "10:order-2").Return(nil, nil)
	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).DoAndReturn(runIn(d.tx))
	d.tx.EXPECT().GetItem(ctx, int64(5)).Return(testItem, nil)
	d.tx.EXPECT().GetWalletByUserForUpdate(ctx, int64(10)).Return(testWallet(1, 10, 100), nil)
	d.tx.EXPECT().GetMerchantWalletForUpdate(ctx, int64(2)).Return(testWallet(9, 20, 0), nil)
	d.tx.EXPECT().AdjustBalance(ctx, gomock.Any(), gomock.Any()).Return(decimal.Zero, nil).Times(2)
	d.tx.EXPECT().CreateTransaction(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, txn *domain.Transaction) error {
		require.NotNil(t, txn.IdempotencyKey)
		assert.Equal(t, "10:order-2", *txn.IdempotencyKey)
		txn.ID = 78
		return nil
	})
	d.idempCache.EXPECT().Set(ctx, "10:order-2", gomock.Any(), time.Hour).Return(nil)
	d.metrics.EXPECT().ObservePurchase("success", gomock.Any())

	txn, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5, IdempotencyKey: "order-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(78), txn.ID)
}

func TestPurchaseService_Buy_ConcurrentReplayWinsKeyRace(t *testing.T) {
	d := setupPurchaseService(t)
	ctx := context.Background()

	winner := &domain.Transaction{ID: 90}
	d.idempCache.EXPECT().Get(ctx, "10:order-3").Return(nil, nil)
	gomock.InOrder(
		d.txRepo.EXPECT().GetByIdempotencyKey(ctx, "10:order-3").Return(nil, nil),
		d.txRepo.EXPECT().GetByIdempotencyKey(ctx, "10:order-3").Return(winner, nil),
	)
	d.ledger.EXPECT().RunAtomic(ctx, gomock.Any()).Return(domain.ErrConflict)
	d.metrics.EXPECT().ObservePurchase("replayed", gomock.Any())

	txn, err := d.svc.Buy(ctx, ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5, IdempotencyKey: "order-3"})
	require.NoError(t, err)
	assert.Same(t, winner, txn)
}

func TestPurchaseService_NilCacheAndMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	svc := NewPurchaseService(mocks.NewMockLedger(ctrl), txRepo, nil, nil, PurchaseOptions{}, zerolog.Nop())

	prior := &domain.Transaction{ID: 1}
	txRepo.EXPECT().GetByIdempotencyKey(gomock.Any(), "10:k").Return(prior, nil)

	txn, err := svc.Buy(context.Background(), ports.BuyRequest{Principal: buyerPrincipal, ItemID: 5, IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.Same(t, prior, txn)
	assert.Equal(t, 1, svc.opts.MaxAttempts)
}
