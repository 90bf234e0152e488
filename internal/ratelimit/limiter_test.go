package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *Limiter {
	t.Helper()
	l := NewLimiter(Config{
		Scope:  "test",
		Limit:  limit,
		Window: window,
	}, NewMemoryStore(), zerolog.Nop(), nil)
	t.Cleanup(l.Stop)
	return l
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l := newTestLimiter(t, 5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := l.Check(ctx, "owner@example.com")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "attempt %d should be allowed", i+1)
		assert.Equal(t, 4-i, res.Remaining)
	}

	res, err := l.Check(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.False(t, res.Allowed, "6th attempt should be denied")
	assert.Zero(t, res.Remaining)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	res, err := l.Check(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Check(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = l.Check(ctx, "b@example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "separate key gets its own window")
}

func TestLimiterWindowResets(t *testing.T) {
	l := newTestLimiter(t, 1, 50*time.Millisecond)
	ctx := context.Background()

	res, err := l.Check(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Check(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	time.Sleep(60 * time.Millisecond)

	res, err = l.Check(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "new window should permit again")
}

func TestLimiterCountsDeniedHits(t *testing.T) {
	store := NewMemoryStore()
	l := NewLimiter(Config{Scope: "test", Limit: 2, Window: time.Minute}, store, zerolog.Nop(), nil)
	defer l.Stop()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := l.Check(ctx, "k")
		require.NoError(t, err)
	}

	// The counter keeps moving past the limit for observability.
	count, _, err := store.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestLimiterReset(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	_, err := l.Check(ctx, "k")
	require.NoError(t, err)
	res, err := l.Check(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	require.NoError(t, l.Reset(ctx, "k"))

	res, err = l.Check(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryStoreSweepReclaimsStaleBuckets(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, _, err := store.Incr(ctx, "stale", 10*time.Millisecond)
	require.NoError(t, err)
	_, _, err = store.Incr(ctx, "fresh", time.Minute)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	store.sweep(time.Now())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotContains(t, store.buckets, "stale")
	assert.Contains(t, store.buckets, "fresh")
}
