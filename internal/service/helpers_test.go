package service

import (
	"context"
	"fmt"

	"marketplace/internal/core/ports"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"
)

// decimalEq matches a decimal.Decimal by numeric value, ignoring exponent.
type decimalEq struct{ want decimal.Decimal }

func eqDecimal(v string) gomock.Matcher {
	return decimalEq{want: decimal.RequireFromString(v)}
}

func (m decimalEq) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string {
	return fmt.Sprintf("is decimal %s", m.want)
}

// runIn makes a mocked Ledger execute the unit against tx.
func runIn(tx ports.LedgerTx) func(ctx context.Context, fn func(context.Context, ports.LedgerTx) error) error {
	return func(ctx context.Context, fn func(context.Context, ports.LedgerTx) error) error {
		return fn(ctx, tx)
	}
}

var (
	_ ports.PurchaseService    = (*PurchaseServiceImpl)(nil)
	_ ports.WalletService      = (*WalletServiceImpl)(nil)
	_ ports.TransactionService = (*TransactionServiceImpl)(nil)
	_ ports.AuthService        = (*AuthServiceImpl)(nil)
	_ ports.TokenService       = (*JWTTokenService)(nil)
	_ ports.HashService        = (*Argon2HashService)(nil)
)
