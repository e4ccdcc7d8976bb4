// Package ratelimit enforces the client-side request budgets of the PrimeCart
// catalog API: a per-second token bucket and a fixed daily quota. Both budgets
// are checked in a single atomic admission decision.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for rate limiting
var (
	tokensAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_rate_limit_tokens",
		Help: "Tokens currently available in the per-second bucket",
	})

	dailyUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_rate_limit_daily_used",
		Help: "Requests consumed from the daily quota window",
	})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_rate_limit_rejections_total",
		Help: "Rejected acquisitions by reason",
	}, []string{"reason"})

	dailyResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_daily_resets_total",
		Help: "Number of daily quota window resets",
	})
)

// Clock supplies the current time. Tests inject a fake implementation to
// drive refill and window-reset behavior deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Stats is a point-in-time snapshot of limiter state. Reads fold in a
// virtual refill for display without mutating the bucket.
type Stats struct {
	// Tokens currently available in the per-second bucket.
	Tokens float64

	// DailyUsed is the number of requests admitted in the current day window.
	DailyUsed int

	// DailyLimit is the configured daily quota.
	DailyLimit int

	// ResetIn is the time remaining until the day window resets.
	ResetIn time.Duration
}

// Limiter is a dual-budget admission gate: a continuously refilling token
// bucket bounds short-window throughput, and a fixed 24h window bounds total
// daily volume. Acquire never blocks and never queues; callers receiving
// false own their retry policy.
type Limiter struct {
	mu sync.Mutex

	maxPerSecond float64
	maxPerDay    int

	tokens     float64
	lastRefill time.Time

	dailyCount   int
	dailyResetAt time.Time

	clock  Clock
	logger zerolog.Logger
}

// New creates a Limiter admitting at most maxPerSecond requests per second
// (sustained) and maxPerDay requests per rolling 24h window. The bucket
// starts full and the day window starts at construction time.
//
// Panics if either budget is not positive.
func New(maxPerSecond float64, maxPerDay int) *Limiter {
	return NewWithClock(maxPerSecond, maxPerDay, systemClock{})
}

// NewWithClock creates a Limiter using the given clock as its time source.
func NewWithClock(maxPerSecond float64, maxPerDay int, clock Clock) *Limiter {
	if maxPerSecond <= 0 {
		panic("ratelimit: maxPerSecond must be positive")
	}
	if maxPerDay <= 0 {
		panic("ratelimit: maxPerDay must be positive")
	}
	if clock == nil {
		clock = systemClock{}
	}

	now := clock.Now()
	return &Limiter{
		maxPerSecond: maxPerSecond,
		maxPerDay:    maxPerDay,
		tokens:       maxPerSecond,
		lastRefill:   now,
		dailyResetAt: now.Add(24 * time.Hour),
		clock:        clock,
		logger:       log.With().Str("component", "ratelimit").Logger(),
	}
}

// Acquire requests admission for one call. It returns true and consumes one
// token plus one unit of daily quota, or returns false with no side effects
// beyond the time-based refill. The whole decision runs in one critical
// section.
func (l *Limiter) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() {
		tokensAvailable.Set(l.tokens)
		dailyUsed.Set(float64(l.dailyCount))
	}()

	now := l.clock.Now()

	// 1. Refill tokens for the elapsed interval, capped at the bucket size.
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.tokens = l.tokens + elapsed*l.maxPerSecond
	if l.tokens > l.maxPerSecond {
		l.tokens = l.maxPerSecond
	}
	l.lastRefill = now

	// 2. Roll the day window when its boundary has passed.
	if !now.Before(l.dailyResetAt) {
		l.dailyCount = 0
		l.dailyResetAt = now.Add(24 * time.Hour)
		dailyResetsTotal.Inc()
		l.logger.Info().Msg("Daily quota window reset")
	}

	// 3. Daily budget, independent of token availability.
	if l.dailyCount >= l.maxPerDay {
		rejectionsTotal.WithLabelValues("daily").Inc()
		l.logger.Warn().
			Int("daily_used", l.dailyCount).
			Int("daily_limit", l.maxPerDay).
			Msg("Daily request quota exhausted")
		return false
	}

	// 4. Short-window budget.
	if l.tokens < 1.0 {
		rejectionsTotal.WithLabelValues("burst").Inc()
		l.logger.Debug().
			Float64("tokens", l.tokens).
			Msg("Per-second budget exhausted")
		return false
	}

	// 5. Consume one unit from both budgets.
	l.tokens -= 1.0
	l.dailyCount++

	return true
}

// Stats returns a snapshot of the limiter. Token availability includes a
// virtual refill for the time elapsed since the last Acquire; no state is
// mutated.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	tokens := l.tokens + now.Sub(l.lastRefill).Seconds()*l.maxPerSecond
	if tokens > l.maxPerSecond {
		tokens = l.maxPerSecond
	}

	resetIn := l.dailyResetAt.Sub(now)
	if resetIn < 0 {
		resetIn = 0
	}

	return Stats{
		Tokens:     tokens,
		DailyUsed:  l.dailyCount,
		DailyLimit: l.maxPerDay,
		ResetIn:    resetIn,
	}
}
