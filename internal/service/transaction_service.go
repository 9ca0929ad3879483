package service

import (
	"context"
	"fmt"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"
	"marketplace/pkg/apperror"
)

// TransactionServiceImpl implements ports.TransactionService.
// Customers see purchases made from their wallet; merchant users see the
// sales of merchants they own.
type TransactionServiceImpl struct {
	txRepo       ports.TransactionRepository
	walletRepo   ports.WalletRepository
	merchantRepo ports.MerchantRepository
}

// NewTransactionService creates a new TransactionServiceImpl.
func NewTransactionService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	merchantRepo ports.MerchantRepository,
) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		txRepo:       txRepo,
		walletRepo:   walletRepo,
		merchantRepo: merchantRepo,
	}
}

func (s *TransactionServiceImpl) Get(ctx context.Context, principal domain.Principal, id int64) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("Transaction")
	}

	switch principal.Role {
	case domain.RoleCustomer:
		w, err := s.ownWallet(ctx, principal)
		if err != nil {
			return nil, err
		}
		if w == nil || w.ID != txn.WalletID {
			return nil, apperror.ErrForbidden("You cannot view this transaction")
		}
	case domain.RoleMerchant:
		if err := s.checkMerchantOwner(ctx, principal, txn.MerchantID); err != nil {
			return nil, err
		}
	default:
		return nil, apperror.ErrForbidden("You cannot view this transaction")
	}
	return txn, nil
}

// List narrows filter to what principal may see. Merchant users must name
// one of their merchants.
func (s *TransactionServiceImpl) List(ctx context.Context, principal domain.Principal, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	filter.Normalize()
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, 0, apperror.Validation("from must not be after to")
	}

	switch principal.Role {
	case domain.RoleCustomer:
		w, err := s.ownWallet(ctx, principal)
		if err != nil {
			return nil, 0, err
		}
		if w == nil {
			return []domain.Transaction{}, 0, nil
		}
		if filter.WalletID != 0 && filter.WalletID != w.ID {
			return nil, 0, apperror.ErrForbidden("You can only list your own transactions")
		}
		filter.WalletID = w.ID
	case domain.RoleMerchant:
		if filter.MerchantID == 0 {
			return nil, 0, apperror.Validation("merchant_id is required")
		}
		if err := s.checkMerchantOwner(ctx, principal, filter.MerchantID); err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, apperror.ErrForbidden("You cannot list transactions")
	}

	txns, total, err := s.txRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

func (s *TransactionServiceImpl) ownWallet(ctx context.Context, principal domain.Principal) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get own wallet: %w", err))
	}
	return w, nil
}

func (s *TransactionServiceImpl) checkMerchantOwner(ctx context.Context, principal domain.Principal, merchantID int64) error {
	m, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return apperror.InternalError(err)
	}
	if m == nil || !m.OwnedBy(principal.UserID) {
		return apperror.ErrForbidden("You do not own this merchant")
	}
	return nil
}
