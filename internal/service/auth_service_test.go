package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"
	"marketplace/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc      *AuthServiceImpl
	userRepo *mocks.MockUserRepository
	hashSvc  *mocks.MockHashService
	tokenSvc *mocks.MockTokenService
	denylist *mocks.MockTokenDenylist
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		userRepo: mocks.NewMockUserRepository(ctrl),
		hashSvc:  mocks.NewMockHashService(ctrl),
		tokenSvc: mocks.NewMockTokenService(ctrl),
		denylist: mocks.NewMockTokenDenylist(ctrl),
	}
	d.svc = NewAuthService(d.userRepo, d.hashSvc, d.tokenSvc, d.denylist, zerolog.Nop())
	return d
}

func TestAuthService_Register_Success(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()
	req := ports.RegisterRequest{Username: "shop_owner", Password: "StrongP@ss123", Role: domain.RoleMerchant}

	d.userRepo.EXPECT().GetByUsername(ctx, "shop_owner").Return(nil, nil)
	d.hashSvc.EXPECT().Hash(req.Password).Return("$argon2id$hashed", nil)
	d.userRepo.EXPECT().CreateWithWallet(ctx, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *domain.User, w *domain.Wallet) error {
			assert.Equal(t, "$argon2id$hashed", u.PasswordHash)
			assert.True(t, w.Balance.IsZero())
			u.ID, w.ID, w.UserID = 20, 9, 20
			return nil
		})

	resp, err := d.svc.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(20), resp.User.ID)
	assert.Equal(t, domain.RoleMerchant, resp.User.Role)
	assert.Equal(t, int64(9), resp.Wallet.ID)
}

func TestAuthService_Register_DefaultsToCustomer(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()

	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("pw-12345678").Return("h", nil)
	d.userRepo.EXPECT().CreateWithWallet(ctx, gomock.Any(), gomock.Any()).Return(nil)

	resp, err := d.svc.Register(ctx, ports.RegisterRequest{Username: " alice ", Password: "pw-12345678"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, resp.User.Role)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestAuthService_Register_InvalidRole(t *testing.T) {
	d := setupAuthService(t)

	_, err := d.svc.Register(context.Background(), ports.RegisterRequest{Username: "x", Password: "y", Role: "admin"})
	assertAppError(t, err, "REQ_001", http.StatusBadRequest)
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()

	d.userRepo.EXPECT().GetByUsername(ctx, "taken").Return(&domain.User{ID: 1, Username: "taken"}, nil)

	resp, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "taken", Password: "password"})
	assert.Nil(t, resp)
	assertAppError(t, err, "AUTH_002", http.StatusConflict)
}

func TestAuthService_Register_LostRaceOnUsername(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()

	d.userRepo.EXPECT().GetByUsername(ctx, "race").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("password").Return("h", nil)
	d.userRepo.EXPECT().CreateWithWallet(ctx, gomock.Any(), gomock.Any()).Return(domain.ErrDuplicate)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "race", Password: "password"})
	assertAppError(t, err, "AUTH_002", http.StatusConflict)
}

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()
	user := &domain.User{ID: 10, Username: "alice", PasswordHash: "$argon2id$hashed", Role: domain.RoleCustomer}
	expiry := time.Now().Add(24 * time.Hour)

	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(user, nil)
	d.hashSvc.EXPECT().Verify("correct_password", "$argon2id$hashed").Return(true, nil)
	d.tokenSvc.EXPECT().Generate(user).Return("jwt_token_here", expiry, nil)

	token, exp, err := d.svc.Login(ctx, "alice", "correct_password")
	require.NoError(t, err)
	assert.Equal(t, "jwt_token_here", token)
	assert.Equal(t, expiry, exp)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()

	d.userRepo.EXPECT().GetByUsername(ctx, "nonexistent").Return(nil, nil)

	_, _, err := d.svc.Login(ctx, "nonexistent", "password")
	assertAppError(t, err, "AUTH_001", http.StatusUnauthorized)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()

	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.User{ID: 10, PasswordHash: "h"}, nil)
	d.hashSvc.EXPECT().Verify("wrong_password", "h").Return(false, nil)

	_, _, err := d.svc.Login(ctx, "alice", "wrong_password")
	assertAppError(t, err, "AUTH_001", http.StatusUnauthorized)
}

func TestAuthService_Logout_RevokesUntilExpiry(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()
	claims := &ports.TokenClaims{UserID: 10, TokenID: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}

	d.denylist.EXPECT().Revoke(ctx, "jti-1", gomock.Any()).DoAndReturn(func(_ context.Context, _ string, ttl time.Duration) error {
		assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)
		return nil
	})
	require.NoError(t, d.svc.Logout(ctx, claims))

	d.denylist.EXPECT().Revoke(ctx, "jti-1", gomock.Any()).Return(errors.New("redis down"))
	err := d.svc.Logout(ctx, claims)
	assertAppError(t, err, "SYS_001", http.StatusInternalServerError)
}

func TestAuthService_Logout_WithoutDenylist(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewAuthService(mocks.NewMockUserRepository(ctrl), mocks.NewMockHashService(ctrl),
		mocks.NewMockTokenService(ctrl), nil, zerolog.Nop())

	assert.NoError(t, svc.Logout(context.Background(), &ports.TokenClaims{TokenID: "x"}))
}
