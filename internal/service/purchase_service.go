package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"
	"marketplace/pkg/apperror"

	"github.com/rs/zerolog"
)

// Purchase outcome labels reported to ports.PurchaseMetrics.
const (
	outcomeSuccess      = "success"
	outcomeReplayed     = "replayed"
	outcomeRejected     = "rejected"
	outcomeInsufficient = "insufficient_funds"
	outcomeConflict     = "conflict"
	outcomeError        = "error"
)

// PurchaseOptions tunes retry and replay behaviour of the buy flow.
type PurchaseOptions struct {
	MaxAttempts    int
	RetryBackoff   time.Duration
	IdempotencyTTL time.Duration
}

// PurchaseServiceImpl implements ports.PurchaseService.
type PurchaseServiceImpl struct {
	ledger     ports.Ledger
	txRepo     ports.TransactionRepository
	idempCache ports.IdempotencyCache
	metrics    ports.PurchaseMetrics
	opts       PurchaseOptions
	log        zerolog.Logger
}

// NewPurchaseService creates a new PurchaseServiceImpl.
// idempCache may be nil, in which case replays are resolved from the store only.
func NewPurchaseService(
	ledger ports.Ledger,
	txRepo ports.TransactionRepository,
	idempCache ports.IdempotencyCache,
	metrics ports.PurchaseMetrics,
	opts PurchaseOptions,
	log zerolog.Logger,
) *PurchaseServiceImpl {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &PurchaseServiceImpl{
		ledger:     ledger,
		txRepo:     txRepo,
		idempCache: idempCache,
		metrics:    metrics,
		opts:       opts,
		log:        log,
	}
}

// Buy moves item.price from the buyer's wallet to the wallet of the item's
// merchant owner and records the transaction, all in one atomic unit.
// Conflicting units are re-run up to MaxAttempts times.
func (s *PurchaseServiceImpl) Buy(ctx context.Context, req ports.BuyRequest) (*domain.Transaction, error) {
	start := time.Now()

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(req.Principal.UserID, req.IdempotencyKey)
		prior, err := s.lookupReplay(ctx, idempKey)
		if err != nil {
			s.metrics.ObservePurchase(outcomeError, time.Since(start))
			return nil, err
		}
		if prior != nil {
			s.metrics.ObservePurchase(outcomeReplayed, time.Since(start))
			return prior, nil
		}
	}

	var txn *domain.Transaction
	var err error
	for attempt := 1; ; attempt++ {
		txn, err = s.buyOnce(ctx, req, idempKey)
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			break
		}

		// A conflict on our own idempotency key means a concurrent replay won.
		if idempKey != "" {
			prior, lookupErr := s.txRepo.GetByIdempotencyKey(ctx, idempKey)
			if lookupErr == nil && prior != nil {
				s.metrics.ObservePurchase(outcomeReplayed, time.Since(start))
				return prior, nil
			}
		}
		if attempt >= s.opts.MaxAttempts {
			break
		}

		s.metrics.IncConflictRetry()
		s.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int64("item_id", req.ItemID).
			Int64("user_id", req.Principal.UserID).
			Msg("purchase conflict, retrying")

		if waitErr := sleepCtx(ctx, s.opts.RetryBackoff*time.Duration(attempt)); waitErr != nil {
			err = waitErr
			break
		}
	}

	if err != nil {
		appErr, outcome := s.translate(ctx, err)
		s.metrics.ObservePurchase(outcome, time.Since(start))
		if outcome == outcomeError || outcome == outcomeConflict {
			s.log.Error().
				Err(err).
				Int64("item_id", req.ItemID).
				Int64("user_id", req.Principal.UserID).
				Msg("purchase failed")
		}
		return nil, appErr
	}

	if idempKey != "" && s.idempCache != nil {
		if payload, mErr := json.Marshal(txn); mErr == nil {
			if cErr := s.idempCache.Set(ctx, idempKey, payload, s.opts.IdempotencyTTL); cErr != nil {
				s.log.Warn().Err(cErr).Str("key", idempKey).Msg("failed to cache purchase in redis")
			}
		}
	}

	s.metrics.ObservePurchase(outcomeSuccess, time.Since(start))
	s.log.Info().
		Int64("tx_id", txn.ID).
		Int64("wallet_id", txn.WalletID).
		Int64("merchant_id", txn.MerchantID).
		Int64("item_id", txn.ItemID).
		Str("amount", txn.Amount.String()).
		Msg("purchase completed")

	return txn, nil
}

// buyOnce runs one attempt of the purchase inside a single atomic unit.
// The validation order is part of the contract: item, role, buyer wallet,
// seller wallet, balance.
func (s *PurchaseServiceImpl) buyOnce(ctx context.Context, req ports.BuyRequest, idempKey string) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := s.ledger.RunAtomic(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		item, err := tx.GetItem(ctx, req.ItemID)
		if err != nil {
			return fmt.Errorf("load item: %w", err)
		}
		if item == nil {
			return apperror.ErrNotFound("Item")
		}

		if !req.Principal.Role.CanBuy() {
			return apperror.ErrOnlyCustomerCanBuy()
		}

		buyer, err := tx.GetWalletByUserForUpdate(ctx, req.Principal.UserID)
		if err != nil {
			return fmt.Errorf("lock buyer wallet: %w", err)
		}
		if buyer == nil {
			return apperror.ErrNotFound("Wallet")
		}

		seller, err := tx.GetMerchantWalletForUpdate(ctx, item.MerchantID)
		if err != nil {
			return fmt.Errorf("lock seller wallet: %w", err)
		}
		if seller == nil {
			return apperror.ErrNotFound("Wallet")
		}

		if !buyer.CanAfford(item.Price) {
			return apperror.ErrInsufficientFunds()
		}

		if _, err := tx.AdjustBalance(ctx, buyer.ID, item.Price.Neg()); err != nil {
			return fmt.Errorf("debit buyer: %w", err)
		}
		if _, err := tx.AdjustBalance(ctx, seller.ID, item.Price); err != nil {
			return fmt.Errorf("credit seller: %w", err)
		}

		record := &domain.Transaction{
			WalletID:   buyer.ID,
			MerchantID: item.MerchantID,
			ItemID:     item.ID,
			Amount:     item.Price,
		}
		if idempKey != "" {
			record.IdempotencyKey = &idempKey
		}
		if err := tx.CreateTransaction(ctx, record); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}
		txn = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// lookupReplay resolves a previous purchase under key from Redis, then the store.
func (s *PurchaseServiceImpl) lookupReplay(ctx context.Context, key string) (*domain.Transaction, error) {
	if s.idempCache != nil {
		cached, err := s.idempCache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			txn := &domain.Transaction{}
			if err := json.Unmarshal(cached, txn); err == nil {
				return txn, nil
			}
			s.log.Warn().Str("key", key).Msg("discarding unreadable cached purchase")
		}
	}

	txn, err := s.txRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	return txn, nil
}

// translate maps a failed attempt onto the caller error and its metrics outcome.
func (s *PurchaseServiceImpl) translate(ctx context.Context, err error) (*apperror.AppError, string) {
	appErr := ledgerError(ctx, err)
	switch {
	case appErr.Code == apperror.ErrInsufficientFunds().Code:
		return appErr, outcomeInsufficient
	case errors.Is(err, domain.ErrConflict):
		return appErr, outcomeConflict
	case appErr.HTTPStatus >= 500:
		return appErr, outcomeError
	default:
		return appErr, outcomeRejected
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type noopMetrics struct{}

func (noopMetrics) ObservePurchase(string, time.Duration) {}
func (noopMetrics) IncConflictRetry() {}
