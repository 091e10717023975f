package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	throttleKeyPrefix  = "otp:throttle:"
	blacklistKeyPrefix = "blacklist:"

	// TTL reply for a key that exists but has no expiry
	noExpiry = time.Duration(-1)
)

// OTPThrottle counts OTP requests per phone number in a fixed window
type OTPThrottle struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
}

func NewOTPThrottle(rdb redis.Cmdable, limit int, window time.Duration) *OTPThrottle {
	return &OTPThrottle{rdb: rdb, limit: limit, window: window}
}

// Allow records one request and reports whether it is within the limit
func (t *OTPThrottle) Allow(ctx context.Context, phoneNumber string) (bool, error) {
	if t.limit <= 0 {
		return true, nil
	}

	key := throttleKeyPrefix + phoneNumber
	count, err := t.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 || t.missingExpiry(ctx, key) {
		if err := t.rdb.Expire(ctx, key, t.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(t.limit), nil
}

// missingExpiry reports whether the counter exists without a TTL, which happens
// when an earlier EXPIRE failed after its INCR
func (t *OTPThrottle) missingExpiry(ctx context.Context, key string) bool {
	ttl, err := t.rdb.TTL(ctx, key).Result()
	return err == nil && ttl == noExpiry
}

// TokenBlacklist stores revoked access tokens until they expire
type TokenBlacklist struct {
	rdb redis.Cmdable
}

func NewTokenBlacklist(rdb redis.Cmdable) *TokenBlacklist {
	return &TokenBlacklist{rdb: rdb}
}

// Revoke blacklists a token for ttl; non-positive ttl is a no-op
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, blacklistKeyPrefix+token, "revoked", ttl).Err()
}

func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := b.rdb.Exists(ctx, blacklistKeyPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
