package service

import (
	"context"
	"errors"

	"marketplace/internal/core/domain"
	"marketplace/pkg/apperror"
)

// ledgerError maps the failure of an atomic unit onto an AppError.
// AppErrors raised inside the unit pass through unchanged.
func ledgerError(ctx context.Context, err error) *apperror.AppError {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domain.ErrInsufficientFunds):
		return apperror.ErrInsufficientFunds()
	case errors.Is(err, domain.ErrConflict):
		return apperror.ErrConflict(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperror.ErrLockTimeout(err)
	default:
		return apperror.InternalError(err)
	}
}
