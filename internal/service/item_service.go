package service

import (
	"context"
	"fmt"
	"strings"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"
	"marketplace/pkg/apperror"

	"github.com/shopspring/decimal"
)

type itemService struct {
	itemRepo     ports.ItemRepository
	merchantRepo ports.MerchantRepository
}

// NewItemService creates a new catalogue service. Item writes are reserved
// to the owner of the item's merchant.
func NewItemService(itemRepo ports.ItemRepository, merchantRepo ports.MerchantRepository) ports.ItemService {
	return &itemService{
		itemRepo:     itemRepo,
		merchantRepo: merchantRepo,
	}
}

func (s *itemService) Create(ctx context.Context, principal domain.Principal, in ports.ItemInput) (*domain.Item, error) {
	if err := validateItemInput(in); err != nil {
		return nil, err
	}
	if err := s.checkMerchantOwner(ctx, principal, in.MerchantID); err != nil {
		return nil, err
	}

	item := &domain.Item{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       domain.RoundMoney(in.Price),
		Tax:         roundOptional(in.Tax),
		MerchantID:  in.MerchantID,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create item: %w", err))
	}
	return item, nil
}

func (s *itemService) Get(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if item == nil {
		return nil, apperror.ErrNotFound("Item")
	}
	return item, nil
}

// List returns every item when merchantID is zero.
func (s *itemService) List(ctx context.Context, merchantID int64, page, pageSize int) ([]domain.Item, int64, error) {
	limit, offset := paging(page, pageSize)
	items, total, err := s.itemRepo.List(ctx, merchantID, limit, offset)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return items, total, nil
}

// Update rewrites the item's fields. The merchant of an item never changes.
func (s *itemService) Update(ctx context.Context, principal domain.Principal, id int64, in ports.ItemInput) (*domain.Item, error) {
	if err := validateItemInput(in); err != nil {
		return nil, err
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkMerchantOwner(ctx, principal, item.MerchantID); err != nil {
		return nil, err
	}

	item.Name = strings.TrimSpace(in.Name)
	item.Description = in.Description
	item.Price = domain.RoundMoney(in.Price)
	item.Tax = roundOptional(in.Tax)
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update item: %w", err))
	}
	return item, nil
}

func (s *itemService) Delete(ctx context.Context, principal domain.Principal, id int64) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkMerchantOwner(ctx, principal, item.MerchantID); err != nil {
		return err
	}
	deleted, err := s.itemRepo.Delete(ctx, id)
	if err != nil {
		return apperror.InternalError(err)
	}
	if !deleted {
		return apperror.ErrNotFound("Item")
	}
	return nil
}

func (s *itemService) checkMerchantOwner(ctx context.Context, principal domain.Principal, merchantID int64) error {
	m, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return apperror.InternalError(err)
	}
	if m == nil {
		return apperror.ErrNotFound("Merchant")
	}
	if !m.OwnedBy(principal.UserID) {
		return apperror.ErrForbidden("You do not own this merchant")
	}
	return nil
}

func validateItemInput(in ports.ItemInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperror.Validation("name is required")
	}
	if in.Price.IsNegative() {
		return apperror.Validation("price must not be negative")
	}
	if in.Tax != nil && in.Tax.IsNegative() {
		return apperror.Validation("tax must not be negative")
	}
	return nil
}

func roundOptional(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := domain.RoundMoney(*d)
	return &r
}
