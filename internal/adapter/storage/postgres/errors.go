package postgres

import (
	"errors"
	"fmt"

	"marketplace/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the store reacts to.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// classify maps PostgreSQL failures inside a ledger unit onto domain sentinels.
func classify(err error) error {
	if err == nil || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrInsufficientFunds) {
		return err
	}
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeUniqueViolation:
		return fmt.Errorf("%w: %w", domain.ErrConflict, err)
	case codeCheckViolation:
		return fmt.Errorf("%w: %w", domain.ErrInsufficientFunds, err)
	}
	return err
}
