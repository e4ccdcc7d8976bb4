// Package health aggregates component probes into a single readiness report.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/primecart/catalog-client/pkg/breaker"
	"github.com/primecart/catalog-client/pkg/cache"
	"github.com/primecart/catalog-client/pkg/ratelimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Daily quota usage thresholds in percent.
const (
	usageWarning  = 90.0
	usageCritical = 95.0
)

// probeKey is the cache slot used for the round trip probe.
const (
	probeKey       = "__health_check__"
	probeNamespace = "health"
)

// Component is the probe result for one dependency.
type Component struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Report is the aggregated health state of the client.
type Report struct {
	Status     string               `json:"status"`
	Timestamp  time.Time            `json:"timestamp"`
	Components map[string]Component `json:"components"`
	Unhealthy  []string             `json:"unhealthy,omitempty"`
}

// Checker probes the client's collaborators.
type Checker struct {
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	cache   *cache.Manager
	logger  zerolog.Logger
}

// NewChecker creates a health checker over the given collaborators.
func NewChecker(limiter *ratelimit.Limiter, brk *breaker.Breaker, cacheManager *cache.Manager) *Checker {
	return &Checker{
		limiter: limiter,
		breaker: brk,
		cache:   cacheManager,
		logger:  log.With().Str("component", "health").Logger(),
	}
}

// Check runs all component probes and aggregates them. One failing component
// degrades the report, two or more mark it unhealthy.
func (c *Checker) Check(ctx context.Context) Report {
	report := Report{
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]Component, 3),
	}

	report.Components["rate_limiter"] = c.checkRateLimiter()
	report.Components["circuit_breaker"] = c.checkBreaker()
	report.Components["cache"] = c.checkCache(ctx)

	for name, component := range report.Components {
		if component.Status != StatusHealthy {
			report.Unhealthy = append(report.Unhealthy, name)
		}
	}

	switch len(report.Unhealthy) {
	case 0:
		report.Status = StatusHealthy
	case 1:
		report.Status = StatusDegraded
	default:
		report.Status = StatusUnhealthy
	}

	if report.Status != StatusHealthy {
		c.logger.Warn().
			Str("status", report.Status).
			Strs("unhealthy", report.Unhealthy).
			Msg("Health check found failing components")
	}

	return report
}

// checkRateLimiter grades the daily quota. The critical threshold is checked
// before the warning threshold so a 96% reading cannot be reported as a
// warning.
func (c *Checker) checkRateLimiter() Component {
	stats := c.limiter.Stats()

	usagePct := 0.0
	if stats.DailyLimit > 0 {
		usagePct = float64(stats.DailyUsed) / float64(stats.DailyLimit) * 100
	}

	details := map[string]any{
		"tokens":      stats.Tokens,
		"daily_used":  stats.DailyUsed,
		"daily_limit": stats.DailyLimit,
		"usage_pct":   usagePct,
		"reset_in":    stats.ResetIn.String(),
	}

	switch {
	case usagePct > usageCritical:
		return Component{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("Daily quota nearly exhausted (%.1f%% used)", usagePct),
			Details: details,
		}
	case usagePct > usageWarning:
		return Component{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("Daily quota running low (%.1f%% used)", usagePct),
			Details: details,
		}
	default:
		return Component{Status: StatusHealthy, Details: details}
	}
}

// checkBreaker maps the breaker state onto a component status.
func (c *Checker) checkBreaker() Component {
	snapshot := c.breaker.State()

	details := map[string]any{
		"state":         snapshot.State.String(),
		"failure_count": snapshot.FailureCount,
		"threshold":     snapshot.Threshold,
	}

	switch snapshot.State {
	case breaker.StateOpen:
		return Component{
			Status:  StatusUnhealthy,
			Message: "Circuit breaker is open, upstream calls are rejected",
			Details: details,
		}
	case breaker.StateHalfOpen:
		return Component{
			Status:  StatusDegraded,
			Message: "Circuit breaker is probing the upstream",
			Details: details,
		}
	default:
		return Component{Status: StatusHealthy, Details: details}
	}
}

// checkCache verifies a write and read round trip through the cache.
func (c *Checker) checkCache(ctx context.Context) Component {
	probe := time.Now().UTC().Format(time.RFC3339Nano)
	c.cache.Set(ctx, probeKey, probe, probeNamespace, time.Minute)

	details := map[string]any{
		"local_entries": c.cache.Len(),
	}

	raw, ok := c.cache.Get(ctx, probeKey, probeNamespace)
	if !ok {
		return Component{
			Status:  StatusUnhealthy,
			Message: "Cache probe write was not readable",
			Details: details,
		}
	}

	var got string
	if err := json.Unmarshal(raw, &got); err != nil || got != probe {
		return Component{
			Status:  StatusUnhealthy,
			Message: "Cache probe returned a stale or corrupt value",
			Details: details,
		}
	}

	return Component{Status: StatusHealthy, Details: details}
}
