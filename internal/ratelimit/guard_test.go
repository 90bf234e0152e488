package ratelimit

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestGuard(t *testing.T, maxFailures int, window time.Duration) *AttemptGuard {
	t.Helper()
	g := NewAttemptGuard(GuardConfig{
		MaxFailures: maxFailures,
		Window:      window,
	}, zerolog.Nop(), nil)
	t.Cleanup(g.Stop)
	return g
}

func TestGuardPermitsUnknownAccount(t *testing.T) {
	g := newTestGuard(t, 5, 15*time.Minute)
	assert.True(t, g.Permit("owner@example.com"))
}

func TestGuardLocksAfterMaxFailures(t *testing.T) {
	g := newTestGuard(t, 5, 15*time.Minute)

	for i := 0; i < 4; i++ {
		g.RecordFailure("owner@example.com")
		assert.True(t, g.Permit("owner@example.com"), "still permitted after %d failures", i+1)
	}

	g.RecordFailure("owner@example.com")
	assert.False(t, g.Permit("owner@example.com"), "locked after 5th failure")
}

func TestGuardSuccessClearsFailures(t *testing.T) {
	g := newTestGuard(t, 5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		g.RecordFailure("owner@example.com")
	}
	assert.False(t, g.Permit("owner@example.com"))

	g.RecordSuccess("owner@example.com")
	assert.True(t, g.Permit("owner@example.com"))
	assert.Zero(t, g.Failures("owner@example.com"))
}

func TestGuardWindowElapsesAndClearsEntry(t *testing.T) {
	g := newTestGuard(t, 2, 50*time.Millisecond)

	g.RecordFailure("owner@example.com")
	g.RecordFailure("owner@example.com")
	assert.False(t, g.Permit("owner@example.com"))

	time.Sleep(60 * time.Millisecond)

	// The stale record is deleted, not merely ignored.
	assert.True(t, g.Permit("owner@example.com"))
	assert.Zero(t, g.Failures("owner@example.com"))
}

func TestGuardFailureAfterElapsedWindowStartsFresh(t *testing.T) {
	g := newTestGuard(t, 2, 50*time.Millisecond)

	g.RecordFailure("owner@example.com")
	g.RecordFailure("owner@example.com")

	time.Sleep(60 * time.Millisecond)

	g.RecordFailure("owner@example.com")
	assert.Equal(t, 1, g.Failures("owner@example.com"))
	assert.True(t, g.Permit("owner@example.com"))
}

func TestGuardAccountsAreIndependent(t *testing.T) {
	g := newTestGuard(t, 1, 15*time.Minute)

	g.RecordFailure("a@example.com")
	assert.False(t, g.Permit("a@example.com"))
	assert.True(t, g.Permit("b@example.com"))
}
