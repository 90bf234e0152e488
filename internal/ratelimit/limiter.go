package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hostbay/sitehost-api/pkg/metrics"
)

const defaultSweepInterval = 5 * time.Minute

// Result reports a limiter decision.
type Result struct {
	Allowed bool
	// Remaining is how many hits are left in the window, zero when denied.
	Remaining int
	// ResetAt is when the current window ends.
	ResetAt time.Time
}

// Limiter caps hits per key within a fixed window. Each call site gets
// its own instance with its own limit and scope label; instances do not
// share state.
type Limiter struct {
	scope  string
	limit  int
	window time.Duration
	store  Store

	logger  zerolog.Logger
	metrics *metrics.Metrics
	done    chan struct{}
}

// Config for a Limiter instance.
type Config struct {
	// Scope labels denial metrics and log events, e.g. "auth" or "api".
	Scope  string
	Limit  int
	Window time.Duration
	// SweepInterval bounds memory for the in-memory store. Zero means
	// the 5 minute default.
	SweepInterval time.Duration
}

// NewLimiter constructs a limiter over the given store. For a
// MemoryStore a background sweep reclaims stale buckets until Stop is
// called; other stores expire keys themselves.
func NewLimiter(cfg Config, store Store, logger zerolog.Logger, m *metrics.Metrics) *Limiter {
	l := &Limiter{
		scope:   cfg.Scope,
		limit:   cfg.Limit,
		window:  cfg.Window,
		store:   store,
		logger:  logger,
		metrics: m,
		done:    make(chan struct{}),
	}

	if ms, ok := store.(*MemoryStore); ok {
		interval := cfg.SweepInterval
		if interval <= 0 {
			interval = defaultSweepInterval
		}
		go l.sweepLoop(ms, interval)
	}

	return l
}

// Check records one hit for key and reports whether it is within the
// limit. The hit is counted even when denied, so observability keeps
// seeing the true attempt volume.
func (l *Limiter) Check(ctx context.Context, key string) (Result, error) {
	count, resetAt, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Result{}, err
	}

	if count > l.limit {
		if l.metrics != nil {
			l.metrics.RateLimitDenials.WithLabelValues(l.scope).Inc()
		}
		l.logger.Warn().
			Str("event", "rate_limit_exceeded").
			Str("scope", l.scope).
			Str("key", key).
			Int("count", count).
			Int("limit", l.limit).
			Time("reset_at", resetAt).
			Msg("rate limit exceeded")
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Result{Allowed: true, Remaining: l.limit - count, ResetAt: resetAt}, nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}

// Stop terminates the background sweep.
func (l *Limiter) Stop() {
	close(l.done)
}

func (l *Limiter) sweepLoop(store *MemoryStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			store.sweep(now)
		}
	}
}
