// Package resilience wraps outbound HTTP calls to external services with
// per-request timeouts, a circuit breaker and optional retries.
package resilience

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// DefaultTripAfter is the number of consecutive connection failures that
// opens the circuit.
const DefaultTripAfter = 3

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the circuit breaker for logging.
	Name string

	// MaxRequests is the maximum number of requests allowed in half-open state.
	// Default: 1
	MaxRequests uint32

	// Timeout is the period of open state before switching to half-open.
	// A status run is shorter than this, so an open circuit stays open.
	// Default: 60 seconds
	Timeout time.Duration

	// ReadyToTrip determines when to trip the circuit breaker.
	// If nil, uses DefaultReadyToTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// IsSuccessful classifies a call outcome for the breaker.
	// If nil, uses ReachedServer.
	IsSuccessful func(err error) bool

	// OnStateChange is called when the circuit breaker state changes.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the breaker configuration used for
// a single status run.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Timeout:      60 * time.Second,
		ReadyToTrip:  DefaultReadyToTrip,
		IsSuccessful: ReachedServer,
	}
}

// DefaultReadyToTrip opens the circuit after DefaultTripAfter consecutive
// connection failures. The monitoring API is queried once per monitor and
// window; when the host is gone every remaining call would fail the same
// way, while one flaky call must not cost the monitors after it.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	return counts.ConsecutiveFailures >= DefaultTripAfter
}

// ReachedServer reports whether a call got an HTTP response. Server errors
// are answers about a single resource and leave the breaker alone.
func ReachedServer(err error) bool {
	if err == nil {
		return true
	}
	var se *ServerError
	return errors.As(err, &se)
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = DefaultReadyToTrip
	}

	isSuccessful := cfg.IsSuccessful
	if isSuccessful == nil {
		isSuccessful = ReachedServer
	}

	settings := gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Timeout:      cfg.Timeout,
		ReadyToTrip:  readyToTrip,
		IsSuccessful: isSuccessful,
	}

	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}

	return gobreaker.NewCircuitBreaker[T](settings)
}
