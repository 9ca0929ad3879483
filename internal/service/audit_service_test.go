package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"
	"marketplace/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

var _ ports.AuditService = (*AsyncAuditService)(nil)

func TestAuditService_Log_PersistsToRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, zerolog.Nop())

	userID := int64(10)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLog) error {
			assert.Equal(t, domain.AuditActionWalletTopup, entry.Action)
			assert.NotEqual(t, uuid.Nil, entry.ID)
			assert.False(t, entry.CreatedAt.IsZero())
			return nil
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Log(ctx, &domain.AuditLog{
		UserID:       &userID,
		Action:       domain.AuditActionWalletTopup,
		ResourceType: "wallet",
		ResourceID:   "1",
		IPAddress:    "127.0.0.1",
	})
	cancel()
	svc.Wait()
}

func TestAuditService_Log_RepoFailureIsLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockAuditRepository(ctrl)
	var buf bytes.Buffer
	svc := NewAuditService(mockRepo, zerolog.New(&buf))

	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	svc.Log(context.Background(), &domain.AuditLog{Action: domain.AuditActionLogin, ResourceType: "session"})
	svc.Wait()

	assert.Contains(t, buf.String(), "failed to persist audit log")
}

func TestAuditService_Log_NilRepo(t *testing.T) {
	var buf bytes.Buffer
	svc := NewAuditService(nil, zerolog.New(&buf))

	svc.Log(context.Background(), &domain.AuditLog{Action: domain.AuditActionLogin, ResourceType: "session"})
	svc.Wait()

	assert.Contains(t, buf.String(), `"action":"LOGIN"`)
}
