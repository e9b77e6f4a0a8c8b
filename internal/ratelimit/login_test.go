package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryBucketRefills(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	bucket := NewMemoryBucket(clk.Now)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := bucket.Allow(ctx, "k", 1, 2)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := bucket.Allow(ctx, "k", 1, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	clk.Advance(time.Second)
	res, err = bucket.Allow(ctx, "k", 1, 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryBucketKeysAreIndependent(t *testing.T) {
	bucket := NewMemoryBucket(nil)
	ctx := context.Background()

	res, err := bucket.Allow(ctx, "a", 0.1, 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = bucket.Allow(ctx, "b", 0.1, 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryBucketValidatesArgs(t *testing.T) {
	bucket := NewMemoryBucket(nil)
	_, err := bucket.Allow(context.Background(), "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 1, 0)
	assert.Error(t, err)
}

type failingBucket struct{}

func (failingBucket) Allow(context.Context, string, float64, int) (*RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func TestLoginLimiterFailsOpen(t *testing.T) {
	limiter := NewLoginLimiterWithBucket(failingBucket{}, 1, 1, zap.NewNop())
	assert.True(t, limiter.Allow(context.Background(), "10.0.0.1").Allowed)
}

func TestLoginLimiterPerIP(t *testing.T) {
	limiter := NewLoginLimiterWithBucket(NewMemoryBucket(nil), 0.01, 1, zap.NewNop())
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "10.0.0.1").Allowed)
	assert.False(t, limiter.Allow(ctx, "10.0.0.1").Allowed)
	assert.True(t, limiter.Allow(ctx, "10.0.0.2").Allowed)
}
