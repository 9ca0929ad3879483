package service

import (
	"context"
	"fmt"
	"strings"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"
	"marketplace/pkg/apperror"
)

type merchantService struct {
	merchantRepo ports.MerchantRepository
}

// NewMerchantService creates a new merchant management service.
func NewMerchantService(merchantRepo ports.MerchantRepository) ports.MerchantService {
	return &merchantService{merchantRepo: merchantRepo}
}

func (s *merchantService) Create(ctx context.Context, principal domain.Principal, in ports.MerchantInput) (*domain.Merchant, error) {
	if principal.Role != domain.RoleMerchant {
		return nil, apperror.ErrForbidden("Only merchant users can create merchants")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}

	m := &domain.Merchant{
		Name:        name,
		Description: in.Description,
		UserID:      principal.UserID,
	}
	if err := s.merchantRepo.Create(ctx, m); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create merchant: %w", err))
	}
	return m, nil
}

func (s *merchantService) Get(ctx context.Context, id int64) (*domain.Merchant, error) {
	m, err := s.merchantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if m == nil {
		return nil, apperror.ErrNotFound("Merchant")
	}
	return m, nil
}

func (s *merchantService) List(ctx context.Context, page, pageSize int) ([]domain.Merchant, int64, error) {
	limit, offset := paging(page, pageSize)
	merchants, total, err := s.merchantRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return merchants, total, nil
}

func (s *merchantService) Update(ctx context.Context, principal domain.Principal, id int64, in ports.MerchantInput) (*domain.Merchant, error) {
	m, err := s.owned(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}

	m.Name = name
	m.Description = in.Description
	if err := s.merchantRepo.Update(ctx, m); err != nil {
		return nil, apperror.InternalError(err)
	}
	return m, nil
}

// Delete removes the merchant together with its items.
func (s *merchantService) Delete(ctx context.Context, principal domain.Principal, id int64) error {
	if _, err := s.owned(ctx, principal, id); err != nil {
		return err
	}
	deleted, err := s.merchantRepo.Delete(ctx, id)
	if err != nil {
		return apperror.InternalError(err)
	}
	if !deleted {
		return apperror.ErrNotFound("Merchant")
	}
	return nil
}

func (s *merchantService) Stats(ctx context.Context, principal domain.Principal, id int64) (*domain.MerchantStats, error) {
	if _, err := s.owned(ctx, principal, id); err != nil {
		return nil, err
	}
	stats, err := s.merchantRepo.GetStats(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return stats, nil
}

// owned loads the merchant and checks that principal owns it.
func (s *merchantService) owned(ctx context.Context, principal domain.Principal, id int64) (*domain.Merchant, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.OwnedBy(principal.UserID) {
		return nil, apperror.ErrForbidden("You do not own this merchant")
	}
	return m, nil
}
