package retry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
)

// RetryConfig controls the backoff behavior of Do.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns a general purpose retry config.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

// NetworkRetryConfig returns a retry config for connection establishment,
// which tolerates longer outages.
func NetworkRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 10,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
		Multiplier:  1.5,
	}
}

// TransactionRetryConfig returns a retry config for transaction submission.
// Attempts are few since each one rebuilds with a fresh blockhash.
func TransactionRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
	}
}

// RetryableFunc is the unit of work Do retries.
type RetryableFunc func() error

// IsRetryable classifies whether an error is worth retrying.
type IsRetryable func(error) bool

// DefaultIsRetryable treats transient network and node failures as retryable.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	retryableErrors := []string{
		"connection refused",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"no such host",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"context deadline exceeded",
		"429",
		"rate limit",
		"node is behind",
	}

	for _, retryableErr := range retryableErrors {
		if strings.Contains(errStr, retryableErr) {
			return true
		}
	}
	return false
}

// TransactionIsRetryable classifies transaction submission failures. An
// expired blockhash or a node that has fallen behind warrants a rebuilt
// transaction; a program error does not.
func TransactionIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	retryableErrors := []string{
		"blockhash not found",
		"Blockhash not found",
		"block height exceeded",
		"node is behind",
		"connection refused",
		"connection reset",
		"timeout",
		"network is unreachable",
		"context deadline exceeded",
		"429",
		"rate limit",
	}

	for _, retryableErr := range retryableErrors {
		if strings.Contains(errStr, retryableErr) {
			return true
		}
	}
	return false
}

// Do runs fn until it succeeds, the error is non-retryable, attempts are
// exhausted, or ctx is done. Delay between attempts grows exponentially.
func Do(ctx context.Context, config *RetryConfig, fn RetryableFunc, isRetryable IsRetryable) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		log.Debugf("attempt %d/%d failed: %v", attempt, config.MaxAttempts, err)

		if attempt == config.MaxAttempts {
			break
		}

		if !isRetryable(err) {
			return err
		}

		delay := calculateDelay(config, attempt)
		log.Debugf("waiting %v before next attempt", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("all %d attempts failed, last error: %w", config.MaxAttempts, lastErr)
}

func calculateDelay(config *RetryConfig, attempt int) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt-1))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	return time.Duration(delay)
}

// CircuitBreaker stops hammering a failing dependency. After maxFailures
// consecutive failures the circuit opens and calls are rejected until
// resetTimeout elapses, at which point a single probe call is allowed.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	failures     int
	lastFailTime time.Time
	state        CircuitState
}

// CircuitState is the current mode of a CircuitBreaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

// Execute runs fn through the circuit breaker.
func (cb *CircuitBreaker) Execute(fn RetryableFunc) error {
	if cb.state == StateOpen {
		if time.Since(cb.lastFailTime) > cb.resetTimeout {
			cb.state = StateHalfOpen
			log.Debugf("circuit breaker: open -> half-open")
		} else {
			return fmt.Errorf("circuit breaker is open")
		}
	}

	err := fn()

	if err != nil {
		cb.failures++
		cb.lastFailTime = time.Now()

		if cb.failures >= cb.maxFailures {
			cb.state = StateOpen
			log.Debugf("circuit breaker opened after %d failures", cb.failures)
		}

		return err
	}

	if cb.state == StateHalfOpen {
		cb.state = StateClosed
		log.Debugf("circuit breaker: half-open -> closed")
	}
	cb.failures = 0

	return nil
}

// GetState returns the current circuit state.
func (cb *CircuitBreaker) GetState() CircuitState {
	return cb.state
}
