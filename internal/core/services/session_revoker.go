package services

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionRevoker remembers logged-out session IDs until their tokens expire.
// Without a Redis client it is a no-op.
type SessionRevoker struct {
	redis *redis.Client
}

// NewSessionRevoker creates a new session revoker
func NewSessionRevoker(client *redis.Client) *SessionRevoker {
	return &SessionRevoker{redis: client}
}

// Enabled reports whether revocations are stored
func (r *SessionRevoker) Enabled() bool {
	return r != nil && r.redis != nil
}

// Revoke marks jti as revoked for ttl
func (r *SessionRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if !r.Enabled() || jti == "" || ttl <= 0 {
		return nil
	}
	return r.redis.Set(ctx, revokedKey(jti), 1, ttl).Err()
}

// IsRevoked reports whether jti was revoked. Lookup errors count as not
// revoked so a Redis outage does not lock everyone out.
func (r *SessionRevoker) IsRevoked(ctx context.Context, jti string) bool {
	if !r.Enabled() || jti == "" {
		return false
	}
	n, err := r.redis.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		log.Printf("⚠️ Revocation lookup failed: %v", err)
		return false
	}
	return n > 0
}

func revokedKey(jti string) string {
	return "revoked:session:" + jti
}
