package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"
	"marketplace/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletServiceImpl implements ports.WalletService. Balance changes run in
// the ledger through AdjustBalance, the same path the buy flow uses.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	ledger     ports.Ledger
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(walletRepo ports.WalletRepository, ledger ports.Ledger, log zerolog.Logger) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		ledger:     ledger,
		log:        log,
	}
}

// Get returns the wallet or RES_001.
func (s *WalletServiceImpl) Get(ctx context.Context, id int64) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}
	return w, nil
}

func (s *WalletServiceImpl) List(ctx context.Context, page, pageSize int) ([]domain.Wallet, int64, error) {
	limit, offset := paging(page, pageSize)
	wallets, total, err := s.walletRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list wallets: %w", err))
	}
	return wallets, total, nil
}

// Create opens a zero-balance wallet for a principal that has none.
func (s *WalletServiceImpl) Create(ctx context.Context, principal domain.Principal) (*domain.Wallet, error) {
	w := &domain.Wallet{UserID: principal.UserID, Balance: decimal.Zero}
	if err := s.walletRepo.Create(ctx, w); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.ErrAlreadyExists("Wallet")
		}
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}
	return w, nil
}

// Update replaces the balance by adjusting it with the difference to the
// current value under the row lock.
func (s *WalletServiceImpl) Update(ctx context.Context, principal domain.Principal, id int64, balance decimal.Decimal) (*domain.Wallet, error) {
	if balance.IsNegative() {
		return nil, apperror.Validation("balance must not be negative")
	}
	balance = domain.RoundMoney(balance)

	var updated *domain.Wallet
	err := s.ledger.RunAtomic(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		w, err := tx.GetWalletForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		if w == nil {
			return apperror.ErrNotFound("Wallet")
		}
		if w.UserID != principal.UserID {
			return apperror.ErrForbidden("You can only modify your own wallet")
		}

		newBalance, err := tx.AdjustBalance(ctx, w.ID, balance.Sub(w.Balance))
		if err != nil {
			return fmt.Errorf("adjust balance: %w", err)
		}
		w.Balance = newBalance
		updated = w
		return nil
	})
	if err != nil {
		return nil, ledgerError(ctx, err)
	}

	s.log.Info().
		Int64("wallet_id", updated.ID).
		Int64("user_id", principal.UserID).
		Str("balance", updated.Balance.String()).
		Msg("wallet balance replaced")
	return updated, nil
}

func (s *WalletServiceImpl) Delete(ctx context.Context, principal domain.Principal, id int64) error {
	w, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if w.UserID != principal.UserID {
		return apperror.ErrForbidden("You can only delete your own wallet")
	}

	deleted, err := s.walletRepo.Delete(ctx, id)
	if err != nil {
		return ledgerError(ctx, fmt.Errorf("delete wallet: %w", err))
	}
	if !deleted {
		return apperror.ErrNotFound("Wallet")
	}
	return nil
}

// TopUp credits amount to the principal's own wallet.
func (s *WalletServiceImpl) TopUp(ctx context.Context, principal domain.Principal, amount decimal.Decimal) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than zero")
	}
	amount = domain.RoundMoney(amount)

	var updated *domain.Wallet
	err := s.ledger.RunAtomic(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		w, err := tx.GetWalletByUserForUpdate(ctx, principal.UserID)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		if w == nil {
			return apperror.ErrNotFound("Wallet")
		}

		newBalance, err := tx.AdjustBalance(ctx, w.ID, amount)
		if err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		w.Balance = newBalance
		updated = w
		return nil
	})
	if err != nil {
		return nil, ledgerError(ctx, err)
	}

	s.log.Info().
		Int64("wallet_id", updated.ID).
		Str("amount", amount.String()).
		Msg("wallet topped up")
	return updated, nil
}
