package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfigForClass(t *testing.T) {
	tests := []struct {
		name             string
		errorClass       ErrorClass
		expectedInitial  time.Duration
		expectedMax      time.Duration
		expectedAttempts int
	}{
		{
			name:             "server error config",
			errorClass:       ErrorClassServer,
			expectedInitial:  1 * time.Second,
			expectedMax:      10 * time.Second,
			expectedAttempts: 3,
		},
		{
			name:             "throttle config",
			errorClass:       ErrorClassThrottle,
			expectedInitial:  5 * time.Second,
			expectedMax:      60 * time.Second,
			expectedAttempts: 3,
		},
		{
			name:             "network error config",
			errorClass:       ErrorClassNetwork,
			expectedInitial:  2 * time.Second,
			expectedMax:      30 * time.Second,
			expectedAttempts: 3,
		},
		{
			name:             "unknown error class uses default",
			errorClass:       "",
			expectedInitial:  1 * time.Second,
			expectedMax:      30 * time.Second,
			expectedAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := retryConfigForClass(tt.errorClass)

			if config.InitialBackoff != tt.expectedInitial {
				t.Errorf("InitialBackoff = %v, want %v", config.InitialBackoff, tt.expectedInitial)
			}
			if config.MaxBackoff != tt.expectedMax {
				t.Errorf("MaxBackoff = %v, want %v", config.MaxBackoff, tt.expectedMax)
			}
			if config.MaxAttempts != tt.expectedAttempts {
				t.Errorf("MaxAttempts = %d, want %d", config.MaxAttempts, tt.expectedAttempts)
			}
		})
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	fn := func() error {
		callCount++
		return nil
	}

	err := retryWithBackoff(context.Background(), zerolog.Nop(), fn)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	// Fails twice with a server fault, then succeeds.
	callCount := 0
	fn := func() error {
		callCount++
		if callCount < 3 {
			return &APIError{StatusCode: 500, Class: ErrorClassServer, Message: "temporary"}
		}
		return nil
	}

	start := time.Now()
	err := retryWithBackoff(context.Background(), zerolog.Nop(), fn)
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}

	// First retry ~1s, second ~2s, minus jitter headroom.
	if duration < 500*time.Millisecond {
		t.Errorf("Expected some backoff delay, got %v", duration)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	callCount := 0
	fn := func() error {
		callCount++
		return &APIError{StatusCode: 503, Class: ErrorClassServer, Message: "persistent"}
	}

	err := retryWithBackoff(context.Background(), zerolog.Nop(), fn)

	if err == nil {
		t.Error("Expected error, got nil")
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}
}

func TestRetryWithBackoff_ClientErrorNoRetry(t *testing.T) {
	callCount := 0
	apiErr := &APIError{StatusCode: 404, Class: ErrorClassClient, Message: "not found"}
	fn := func() error {
		callCount++
		return apiErr
	}

	err := retryWithBackoff(context.Background(), zerolog.Nop(), fn)

	if err == nil {
		t.Error("Expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Should not return ErrRetryExhausted when no retry was attempted")
	}
	var got *APIError
	if !errors.As(err, &got) || got != apiErr {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestRetryWithBackoff_AdmissionSentinelNoRetry(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
	}{
		{"rate limited", ErrRateLimited},
		{"circuit open", ErrCircuitOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callCount := 0
			fn := func() error {
				callCount++
				return tt.sentinel
			}

			err := retryWithBackoff(context.Background(), zerolog.Nop(), fn)

			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Expected %v, got %v", tt.sentinel, err)
			}
			if callCount != 1 {
				t.Errorf("Expected 1 call, got %d", callCount)
			}
		})
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	fn := func() error {
		callCount++
		if callCount == 1 {
			// Cancel context after the first failure
			cancel()
		}
		return &APIError{StatusCode: 500, Class: ErrorClassServer, Message: "failing"}
	}

	err := retryWithBackoff(ctx, zerolog.Nop(), fn)

	if err == nil {
		t.Error("Expected error, got nil")
	}
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount >= 3 {
		t.Errorf("Expected fewer than 3 calls due to cancellation, got %d", callCount)
	}
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	timestamps := []time.Time{}
	fn := func() error {
		timestamps = append(timestamps, time.Now())
		return &APIError{StatusCode: 500, Class: ErrorClassServer, Message: "failing"}
	}

	_ = retryWithBackoff(context.Background(), zerolog.Nop(), fn)

	if len(timestamps) != 3 {
		t.Fatalf("Expected 3 timestamps, got %d", len(timestamps))
	}

	firstDelay := timestamps[1].Sub(timestamps[0])
	secondDelay := timestamps[2].Sub(timestamps[1])

	// With jitter (±20%), the first delay lands roughly in [0.8s, 1.2s].
	if firstDelay < 500*time.Millisecond || firstDelay > 2*time.Second {
		t.Errorf("First retry delay %v outside expected range", firstDelay)
	}

	// Second delay should be roughly double (with jitter).
	if secondDelay < 1*time.Second || secondDelay > 4*time.Second {
		t.Errorf("Second retry delay %v outside expected range", secondDelay)
	}
}

func TestRetryBackoffCap(t *testing.T) {
	config := RetryConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        3 * time.Second,
		BackoffMultiplier: 10.0,
	}

	backoff := config.InitialBackoff
	for i := 0; i < 3; i++ {
		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	if backoff != config.MaxBackoff {
		t.Errorf("Expected backoff to cap at %v, got %v", config.MaxBackoff, backoff)
	}
}
