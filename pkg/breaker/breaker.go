// Package breaker isolates a failing upstream behind a Closed/Open/HalfOpen
// circuit breaker. Repeated upstream faults trip the circuit so callers fail
// fast instead of stacking timeouts; after a cooldown a probe call decides
// whether to recover.
package breaker

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for the circuit breaker
var (
	circuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_circuit_state",
		Help: "Current circuit breaker state (0=closed, 1=open, 2=half_open)",
	})

	failuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_circuit_failures_total",
		Help: "Failures recorded against the circuit breaker",
	})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_circuit_transitions_total",
		Help: "Circuit breaker state transitions by target state",
	}, []string{"state"})
)

// State identifies a circuit breaker state.
type State int

const (
	// StateClosed admits all requests; failures are counted.
	StateClosed State = iota

	// StateOpen rejects all requests until the open timeout elapses.
	StateOpen

	// StateHalfOpen admits probe requests to test recovery.
	StateHalfOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Clock supplies the current time. Tests inject a fake implementation to
// drive the open timeout deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Snapshot is a point-in-time view of breaker state.
type Snapshot struct {
	State        State
	FailureCount int
	Threshold    int
}

// Breaker is a finite state machine cycling Closed -> Open -> HalfOpen.
// The machine has no terminal state. Probes are not serialized: while
// HalfOpen, every concurrent caller is admitted and the first recorded
// outcome decides the next state.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	openTimeout      time.Duration

	state         State
	failureCount  int
	lastFailureAt time.Time

	clock  Clock
	logger zerolog.Logger
}

// New creates a closed Breaker that opens after failureThreshold consecutive
// recorded failures and begins probing openTimeout after the last failure.
//
// Panics if the threshold or timeout is not positive.
func New(failureThreshold int, openTimeout time.Duration) *Breaker {
	return NewWithClock(failureThreshold, openTimeout, systemClock{})
}

// NewWithClock creates a Breaker using the given clock as its time source.
func NewWithClock(failureThreshold int, openTimeout time.Duration, clock Clock) *Breaker {
	if failureThreshold <= 0 {
		panic("breaker: failureThreshold must be positive")
	}
	if openTimeout <= 0 {
		panic("breaker: openTimeout must be positive")
	}
	if clock == nil {
		clock = systemClock{}
	}

	circuitState.Set(float64(StateClosed))

	return &Breaker{
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		state:            StateClosed,
		clock:            clock,
		logger:           log.With().Str("component", "breaker").Logger(),
	}
}

// Allow reports whether a request may proceed. While Open, the first call
// after the open timeout elapses transitions to HalfOpen and is admitted as
// the probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if b.clock.Now().Sub(b.lastFailureAt) >= b.openTimeout {
			b.setState(StateHalfOpen)
			b.logger.Info().
				Dur("open_timeout", b.openTimeout).
				Msg("Circuit breaker half-open, probing upstream")
			return true
		}
		return false

	case StateHalfOpen:
		return true
	}

	return false
}

// RecordSuccess reports a successful upstream call. A success while HalfOpen
// closes the circuit and clears the failure count; in any other state it is
// a no-op.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateHalfOpen {
		return
	}

	b.failureCount = 0
	b.setState(StateClosed)
	b.logger.Info().Msg("Circuit breaker closed, upstream recovered")
}

// RecordFailure reports a failed upstream call. It increments the failure
// count and refreshes the failure timestamp; reaching the threshold while
// Closed opens the circuit, and any failure while HalfOpen reopens it.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureAt = b.clock.Now()
	failuresTotal.Inc()

	switch b.state {
	case StateHalfOpen:
		b.setState(StateOpen)
		b.logger.Warn().
			Int("failure_count", b.failureCount).
			Msg("Circuit breaker reopened, probe failed")

	case StateClosed:
		if b.failureCount >= b.failureThreshold {
			b.setState(StateOpen)
			b.logger.Error().
				Int("failure_count", b.failureCount).
				Int("threshold", b.failureThreshold).
				Dur("open_timeout", b.openTimeout).
				Msg("Circuit breaker opened")
		}
	}
}

// State returns a snapshot of the breaker without mutating it.
func (b *Breaker) State() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		State:        b.state,
		FailureCount: b.failureCount,
		Threshold:    b.failureThreshold,
	}
}

// setState must be called with the mutex held.
func (b *Breaker) setState(s State) {
	b.state = s
	circuitState.Set(float64(s))
	transitionsTotal.WithLabelValues(s.String()).Inc()
}
