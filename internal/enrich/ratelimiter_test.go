package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Acquire_EnforcesMinInterval(t *testing.T) {
	// Given: a limiter with a short interval for test speed
	limiter := NewRateLimiter(30 * time.Millisecond)
	ctx := context.Background()

	// When: acquiring twice in a row
	require.NoError(t, limiter.Acquire(ctx))
	start := time.Now()
	require.NoError(t, limiter.Acquire(ctx))
	elapsed := time.Since(start)

	// Then: the second acquire waits out the floor
	assert.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
}

func TestRateLimiter_Acquire_RespectsContextCancellation(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)
	ctx := context.Background()
	require.NoError(t, limiter.Acquire(ctx))

	cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(cancelCtx)
	assert.Error(t, err)
}

func TestRateLimiter_Metrics_TracksRequestsAndWait(t *testing.T) {
	limiter := NewRateLimiter(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx))
	require.NoError(t, limiter.Acquire(ctx))

	metrics := limiter.Metrics()
	assert.Equal(t, int64(2), metrics.Requests)
}
