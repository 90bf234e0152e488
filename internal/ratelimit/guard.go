package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hostbay/sitehost-api/pkg/metrics"
)

const (
	defaultMaxFailures     = 5
	defaultLockoutDuration = 15 * time.Minute
)

type attemptRecord struct {
	failures      int
	lastAttemptAt time.Time
}

// AttemptGuard tracks credential failures per account and locks the
// account out after repeated failures within the window. It counts
// failures, not attempts, so successful logins never contribute to a
// lockout. It layers on top of the Limiter, which caps raw attempt
// volume separately.
type AttemptGuard struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord

	maxFailures int
	window      time.Duration

	logger  zerolog.Logger
	metrics *metrics.Metrics
	done    chan struct{}
}

// GuardConfig for an AttemptGuard.
type GuardConfig struct {
	MaxFailures int
	Window      time.Duration
	// SweepInterval reclaims stale records. Zero means 5 minutes.
	SweepInterval time.Duration
}

func NewAttemptGuard(cfg GuardConfig, logger zerolog.Logger, m *metrics.Metrics) *AttemptGuard {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultLockoutDuration
	}
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	g := &AttemptGuard{
		attempts:    make(map[string]*attemptRecord),
		maxFailures: cfg.MaxFailures,
		window:      cfg.Window,
		logger:      logger,
		metrics:     m,
		done:        make(chan struct{}),
	}
	go g.sweepLoop(interval)
	return g
}

// Permit reports whether the account may attempt a login now. A record
// whose window has elapsed is deleted, not merely ignored, so the map
// cannot grow with one-off failures.
func (g *AttemptGuard) Permit(accountKey string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.attempts[accountKey]
	if !ok {
		return true
	}

	if time.Since(rec.lastAttemptAt) >= g.window {
		delete(g.attempts, accountKey)
		return true
	}

	if rec.failures >= g.maxFailures {
		g.logger.Warn().
			Str("event", "account_locked_attempt").
			Str("account", accountKey).
			Int("failures", rec.failures).
			Time("last_attempt", rec.lastAttemptAt).
			Msg("login attempt against locked account")
		return false
	}

	return true
}

// RecordFailure increments the account's failure count. Crossing the
// lockout threshold emits a dedicated security event; it is the primary
// signal for credential-stuffing detection.
func (g *AttemptGuard) RecordFailure(accountKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	rec, ok := g.attempts[accountKey]
	if !ok || now.Sub(rec.lastAttemptAt) >= g.window {
		rec = &attemptRecord{}
		g.attempts[accountKey] = rec
	}

	rec.failures++
	rec.lastAttemptAt = now

	if rec.failures == g.maxFailures {
		if g.metrics != nil {
			g.metrics.AccountLockouts.Inc()
		}
		g.logger.Warn().
			Str("event", "account_lockout").
			Str("account", accountKey).
			Int("failures", rec.failures).
			Dur("lockout", g.window).
			Msg("account locked after repeated login failures")
	}
}

// RecordSuccess clears the account's failure history.
func (g *AttemptGuard) RecordSuccess(accountKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.attempts, accountKey)
}

// Failures returns the current failure count for the account.
func (g *AttemptGuard) Failures(accountKey string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.attempts[accountKey]
	if !ok {
		return 0
	}
	return rec.failures
}

// Stop terminates the background sweep.
func (g *AttemptGuard) Stop() {
	close(g.done)
}

func (g *AttemptGuard) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.done:
			return
		case now := <-ticker.C:
			g.mu.Lock()
			for key, rec := range g.attempts {
				if now.Sub(rec.lastAttemptAt) >= g.window {
					delete(g.attempts, key)
				}
			}
			g.mu.Unlock()
		}
	}
}
