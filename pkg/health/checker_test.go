package health

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/primecart/catalog-client/pkg/breaker"
	"github.com/primecart/catalog-client/pkg/cache"
	"github.com/primecart/catalog-client/pkg/ratelimit"
	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T) *cache.Manager {
	t.Helper()

	cfg := cache.DefaultConfig()
	cfg.Logger = zerolog.Nop()
	m := cache.NewManager(cfg)
	t.Cleanup(func() { m.Close() })

	return m
}

// newUsedLimiter returns a limiter with a 100 request daily cap that has
// already served the given number of requests.
func newUsedLimiter(t *testing.T, used int) *ratelimit.Limiter {
	t.Helper()

	limiter := ratelimit.New(1000.0, 100)
	for i := 0; i < used; i++ {
		if !limiter.Acquire() {
			t.Fatalf("Acquire %d unexpectedly rejected", i)
		}
	}
	return limiter
}

func TestCheck_AllHealthy(t *testing.T) {
	checker := NewChecker(newUsedLimiter(t, 10), breaker.New(3, time.Minute), newTestCache(t))

	report := checker.Check(context.Background())

	if report.Status != StatusHealthy {
		t.Errorf("Status = %q, want healthy", report.Status)
	}
	if len(report.Unhealthy) != 0 {
		t.Errorf("Unhealthy = %v, want empty", report.Unhealthy)
	}
	for name, component := range report.Components {
		if component.Status != StatusHealthy {
			t.Errorf("Component %s = %q, want healthy", name, component.Status)
		}
	}
	if report.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestCheck_QuotaThresholds(t *testing.T) {
	tests := []struct {
		name          string
		used          int
		wantComponent string
		wantReport    string
	}{
		{"90 percent is still healthy", 90, StatusHealthy, StatusHealthy},
		{"91 percent warns", 91, StatusDegraded, StatusDegraded},
		{"95 percent still warns", 95, StatusDegraded, StatusDegraded},
		{"96 percent is critical", 96, StatusUnhealthy, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker(newUsedLimiter(t, tt.used), breaker.New(3, time.Minute), newTestCache(t))

			report := checker.Check(context.Background())

			limiterComponent := report.Components["rate_limiter"]
			if limiterComponent.Status != tt.wantComponent {
				t.Errorf("rate_limiter = %q, want %q", limiterComponent.Status, tt.wantComponent)
			}
			if report.Status != tt.wantReport {
				t.Errorf("Report status = %q, want %q", report.Status, tt.wantReport)
			}

			usage, ok := limiterComponent.Details["usage_pct"].(float64)
			if !ok {
				t.Fatal("usage_pct detail missing")
			}
			if usage != float64(tt.used) {
				t.Errorf("usage_pct = %g, want %d", usage, tt.used)
			}
		})
	}
}

func TestCheck_OpenBreaker(t *testing.T) {
	brk := breaker.New(3, time.Minute)
	for i := 0; i < 3; i++ {
		brk.RecordFailure()
	}

	checker := NewChecker(newUsedLimiter(t, 0), brk, newTestCache(t))
	report := checker.Check(context.Background())

	component := report.Components["circuit_breaker"]
	if component.Status != StatusUnhealthy {
		t.Errorf("circuit_breaker = %q, want unhealthy", component.Status)
	}
	if component.Details["state"] != "open" {
		t.Errorf("state detail = %v, want open", component.Details["state"])
	}

	// A single failing component degrades the report.
	if report.Status != StatusDegraded {
		t.Errorf("Report status = %q, want degraded", report.Status)
	}
	if len(report.Unhealthy) != 1 || report.Unhealthy[0] != "circuit_breaker" {
		t.Errorf("Unhealthy = %v, want [circuit_breaker]", report.Unhealthy)
	}
}

func TestCheck_HalfOpenBreaker(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	brk := breaker.NewWithClock(1, 10*time.Second, clock)

	brk.RecordFailure()
	clock.Advance(10 * time.Second)
	if !brk.Allow() {
		t.Fatal("Probe should be admitted after the cooldown")
	}

	checker := NewChecker(newUsedLimiter(t, 0), brk, newTestCache(t))
	report := checker.Check(context.Background())

	component := report.Components["circuit_breaker"]
	if component.Status != StatusDegraded {
		t.Errorf("circuit_breaker = %q, want degraded", component.Status)
	}
	if report.Status != StatusDegraded {
		t.Errorf("Report status = %q, want degraded", report.Status)
	}
}

func TestCheck_TwoFailuresAreUnhealthy(t *testing.T) {
	brk := breaker.New(1, time.Minute)
	brk.RecordFailure()

	checker := NewChecker(newUsedLimiter(t, 96), brk, newTestCache(t))
	report := checker.Check(context.Background())

	if report.Status != StatusUnhealthy {
		t.Errorf("Report status = %q, want unhealthy", report.Status)
	}
	if len(report.Unhealthy) != 2 {
		t.Errorf("Unhealthy = %v, want two entries", report.Unhealthy)
	}
}

func TestCheck_CacheProbe(t *testing.T) {
	checker := NewChecker(newUsedLimiter(t, 0), breaker.New(3, time.Minute), newTestCache(t))

	report := checker.Check(context.Background())

	component := report.Components["cache"]
	if component.Status != StatusHealthy {
		t.Fatalf("cache = %q, want healthy", component.Status)
	}
	entries, ok := component.Details["local_entries"].(int)
	if !ok {
		t.Fatal("local_entries detail missing")
	}
	if entries < 1 {
		t.Errorf("local_entries = %d, want at least the probe entry", entries)
	}
}

func TestReport_JSONShape(t *testing.T) {
	checker := NewChecker(newUsedLimiter(t, 0), breaker.New(3, time.Minute), newTestCache(t))
	report := checker.Check(context.Background())

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, key := range []string{"status", "timestamp", "components"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Missing %q in report JSON", key)
		}
	}
	if _, ok := decoded["unhealthy"]; ok {
		t.Error("Healthy report should omit the unhealthy list")
	}
}
