package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatePerSecond(t *testing.T) {
	assert.Equal(t, 10, Rate{Limit: 10, Interval: time.Second}.PerSecond())
	assert.Equal(t, 2, Rate{Limit: 120, Interval: time.Minute}.PerSecond())
	// Sub-1/s rates round up to the minimum the bucket supports.
	assert.Equal(t, 1, Rate{Limit: 1, Interval: time.Minute}.PerSecond())
	assert.Equal(t, 0, Rate{Limit: 10, Interval: 0}.PerSecond())
}

func TestWaitHonorsCancel(t *testing.T) {
	l := NewTokenBucketLimiter(Rate{Limit: 1, Interval: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, l.Wait(ctx))

	require.NoError(t, l.Wait(context.Background()))
}

func TestSetLimitValidation(t *testing.T) {
	l := NewTokenBucketLimiter(Rate{Limit: 10, Interval: time.Second})
	require.NoError(t, l.SetLimit(Rate{Limit: 100, Interval: time.Second}))
	assert.Error(t, l.SetLimit(Rate{Limit: -1, Interval: time.Second}))
	assert.Error(t, l.SetLimit(Rate{Limit: 10, Interval: 0}))
}
