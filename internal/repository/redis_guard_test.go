package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestOTPThrottle_Allow(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	phone := "+1555" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(ctx, throttleKeyPrefix+phone) })

	throttle := NewOTPThrottle(rdb, 2, time.Minute)
	for i := 0; i < 2; i++ {
		ok, err := throttle.Allow(ctx, phone)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := throttle.Allow(ctx, phone)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := rdb.TTL(ctx, throttleKeyPrefix+phone).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

// flakyRedis keeps counters in memory and fails the first failExpire EXPIRE calls
type flakyRedis struct {
	redis.Cmdable
	counts     map[string]int64
	ttls       map[string]time.Duration
	failExpire int
}

func newFlakyRedis(failExpire int) *flakyRedis {
	return &flakyRedis{counts: map[string]int64{}, ttls: map[string]time.Duration{}, failExpire: failExpire}
}

func (f *flakyRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *flakyRedis) TTL(ctx context.Context, key string) *redis.DurationCmd {
	if _, ok := f.counts[key]; !ok {
		return redis.NewDurationResult(-2, nil)
	}
	if ttl, ok := f.ttls[key]; ok {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(-1, nil)
}

func (f *flakyRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if f.failExpire > 0 {
		f.failExpire--
		return redis.NewBoolResult(false, errors.New("i/o timeout"))
	}
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func TestOTPThrottle_RecoversFromFailedExpire(t *testing.T) {
	rdb := newFlakyRedis(1)
	ctx := context.Background()
	key := throttleKeyPrefix + "+15551234567"

	throttle := NewOTPThrottle(rdb, 3, time.Hour)
	_, err := throttle.Allow(ctx, "+15551234567")
	require.Error(t, err)
	assert.NotContains(t, rdb.ttls, key)

	ok, err := throttle.Allow(ctx, "+15551234567")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, rdb.ttls[key], "next call restores the window expiry")

	rdb.ttls[key] = 30 * time.Minute
	ok, err = throttle.Allow(ctx, "+15551234567")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Minute, rdb.ttls[key], "a running window is not extended")

	ok, err = throttle.Allow(ctx, "+15551234567")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPThrottle_Disabled(t *testing.T) {
	ok, err := NewOTPThrottle(nil, 0, time.Minute).Allow(context.Background(), "+1555")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTokenBlacklist(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	token := uuid.NewString()
	t.Cleanup(func() { rdb.Del(ctx, blacklistKeyPrefix+token) })

	bl := NewTokenBlacklist(rdb)
	revoked, err := bl.IsRevoked(ctx, token)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, token, time.Minute))
	revoked, err = bl.IsRevoked(ctx, token)
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "expired", 0))
}
