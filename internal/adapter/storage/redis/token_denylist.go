package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TokenDenylist implements ports.TokenDenylist. Revoked token ids are kept
// only until the token would have expired anyway.
type TokenDenylist struct {
	client goredis.UniversalClient
	prefix string
}

// NewTokenDenylist creates a new Redis-backed token denylist.
func NewTokenDenylist(client goredis.UniversalClient) *TokenDenylist {
	return &TokenDenylist{
		client: client,
		prefix: "jwt:revoked:",
	}
}

// Revoke marks tokenID as revoked for ttl. A non-positive ttl is a no-op
// since the token is already expired.
func (d *TokenDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	err := d.client.SetArgs(ctx, d.prefix+tokenID, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Err()
	// NX on an already revoked id replies nil.
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis token revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked.
func (d *TokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis token lookup: %w", err)
	}
	return n > 0, nil
}
