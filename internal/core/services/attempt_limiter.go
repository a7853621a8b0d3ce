package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/domain"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/pkg/password"

	"github.com/redis/go-redis/v9"
)

// Default attempt limits
const (
	DefaultAttemptMax    = 5
	DefaultAttemptWindow = 15 * time.Minute
)

// AttemptLimiter counts failures in a Redis fixed window. A nil limiter or
// one without a client allows everything.
type AttemptLimiter struct {
	redis  *redis.Client
	max    int64
	window time.Duration
}

// NewAttemptLimiter creates a new attempt limiter
func NewAttemptLimiter(client *redis.Client, max int, window time.Duration) *AttemptLimiter {
	if max <= 0 {
		max = DefaultAttemptMax
	}
	if window <= 0 {
		window = DefaultAttemptWindow
	}
	return &AttemptLimiter{redis: client, max: int64(max), window: window}
}

// Enabled reports whether failures are being counted
func (l *AttemptLimiter) Enabled() bool {
	return l != nil && l.redis != nil
}

// Check returns ErrTooManyAttempts once key has used up its window. Redis
// errors are logged and let the request through.
func (l *AttemptLimiter) Check(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	raw, err := l.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		log.Printf("⚠️ Attempt limiter unavailable: %v", err)
		return nil
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	if count >= l.max {
		return domain.ErrTooManyAttempts
	}
	return nil
}

// Fail records one failure against key
func (l *AttemptLimiter) Fail(ctx context.Context, key string) {
	if !l.Enabled() {
		return
	}
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("⚠️ Attempt limiter unavailable: %v", err)
		return
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			log.Printf("⚠️ Attempt limiter expire failed: %v", err)
		}
	}
}

// Reset clears key after a success
func (l *AttemptLimiter) Reset(ctx context.Context, key string) {
	if !l.Enabled() {
		return
	}
	if err := l.redis.Del(ctx, key).Err(); err != nil {
		log.Printf("⚠️ Attempt limiter reset failed: %v", err)
	}
}

// LoginKey keys login failures by identifier without storing it in clear
func LoginKey(identifier string) string {
	return "attempts:login:" + password.HashToken(normalizeIdentifier(identifier))
}

// OTPKey keys code failures by account and purpose
func OTPKey(accountID uint, purpose domain.OTPPurpose) string {
	return fmt.Sprintf("attempts:otp:%s:%d", purpose, accountID)
}
