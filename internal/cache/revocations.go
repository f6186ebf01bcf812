package cache

import (
	"context"
	"errors"
	"time"

	"culturetech/internal/observability"

	"github.com/redis/go-redis/v9"
)

// RevokedSessionKey is the Redis key marking a session token id as logged out.
func RevokedSessionKey(jti string) string {
	return "revoked_session:" + jti
}

// Revocations records logged-out session token ids until they would have
// expired anyway. A nil client makes every call a no-op.
type Revocations struct {
	rdb *redis.Client
}

// NewRevocations wraps rdb, which may be nil.
func NewRevocations(rdb *redis.Client) *Revocations {
	return &Revocations{rdb: rdb}
}

// Revoke marks jti as revoked for ttl. Non-positive ttls are ignored.
func (r *Revocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if r == nil || r.rdb == nil || jti == "" || ttl <= 0 {
		return nil
	}
	ctx, span := observability.StartRedisSpan(ctx, "set")
	err := r.rdb.Set(ctx, RevokedSessionKey(jti), "1", ttl).Err()
	observability.EndSpan(span, err)
	return err
}

// IsRevoked reports whether jti was revoked.
func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r == nil || r.rdb == nil || jti == "" {
		return false, nil
	}
	ctx, span := observability.StartRedisSpan(ctx, "get")
	err := r.rdb.Get(ctx, RevokedSessionKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		observability.EndSpan(span, nil)
		return false, nil
	}
	observability.EndSpan(span, err)
	if err != nil {
		return false, err
	}
	return true, nil
}
