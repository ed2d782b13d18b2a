package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name              string
		requestsPerSecond uint
		burst             uint
		tokens            float64
	}{
		{name: "standard rate", requestsPerSecond: 10, burst: 20, tokens: 20},
		{name: "zero burst", requestsPerSecond: 5, burst: 0, tokens: 1},
		{name: "unlimited", requestsPerSecond: 0, burst: 0, tokens: unlimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.requestsPerSecond, tt.burst)
			require.NotNil(t, limiter)
			require.NotNil(t, limiter.limiter)
			assert.InDelta(t, tt.tokens, limiter.Tokens(), 0.5)
		})
	}
}

func TestWaitDrainsBurst(t *testing.T) {
	limiter := New(10, 3)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx), "call %d is within burst", i)
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Less(t, limiter.Tokens(), 1.0)

	// 10/s refills one token every 100ms
	require.NoError(t, limiter.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestUnlimitedNeverBlocks(t *testing.T) {
	limiter := New(0, 0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10_000; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestWait(t *testing.T) {
	limiter := New(20, 1)
	ctx := context.Background()

	require.NoError(t, limiter.Wait(ctx))

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestWaitCancelled(t *testing.T) {
	limiter := New(1, 1)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx))
}
