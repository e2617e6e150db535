package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/0xnivek/joe-liquidator/internal/domain"
)

// CooldownCache implements domain.CooldownCache with plain expiring keys.
// A marked borrower is skipped by the scan loop until the key expires, so a
// still-pending transaction from a previous cycle is not raced.
type CooldownCache struct {
	rdb *redis.Client
}

// NewCooldownCache creates a CooldownCache backed by the given Client.
func NewCooldownCache(c *Client) *CooldownCache {
	return &CooldownCache{rdb: c.Underlying()}
}

func cooldownKey(borrower string) string {
	return "cooldown:" + borrower
}

// MarkAttempt flags the borrower for ttl.
func (cc *CooldownCache) MarkAttempt(ctx context.Context, borrower string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := cc.rdb.Set(ctx, cooldownKey(borrower), time.Now().UTC().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis: mark cooldown %s: %w", borrower, err)
	}
	return nil
}

// InCooldown reports whether the borrower is currently flagged.
func (cc *CooldownCache) InCooldown(ctx context.Context, borrower string) (bool, error) {
	n, err := cc.rdb.Exists(ctx, cooldownKey(borrower)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check cooldown %s: %w", borrower, err)
	}
	return n > 0, nil
}

// Compile-time interface check.
var _ domain.CooldownCache = (*CooldownCache)(nil)
