// Package resilience wraps calls to the video platform and the model API with
// a circuit breaker and exponential backoff retries.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrCircuitOpen indicates the circuit breaker is rejecting calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTimeout indicates an operation ran past its deadline.
	ErrTimeout = errors.New("operation timed out")
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateHalfOpen
	StateOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateHalfOpen:
		return "HALF-OPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

func mapState(state gobreaker.State) CircuitState {
	switch state {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

// BreakerConfig holds configuration for a Breaker.
type BreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int
	// Timeout bounds a single call when the caller's context has no deadline.
	Timeout time.Duration
	// OpenInterval is how long the circuit stays open before probing.
	OpenInterval time.Duration
	// IsFailure decides which errors count against the circuit. Nil counts
	// every error except context cancellation.
	IsFailure func(err error) bool
}

// Breaker runs operations through a gobreaker circuit breaker.
type Breaker struct {
	name    string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

// NewBreaker creates a Breaker, filling unset fields with defaults.
func NewBreaker(cfg BreakerConfig, log *slog.Logger) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.OpenInterval <= 0 {
		cfg.OpenInterval = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "circuit_breaker", "name", cfg.Name)

	isFailure := cfg.IsFailure
	if isFailure == nil {
		isFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures) //nolint:gosec // bounded by config validation
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "from", mapState(from), "to", mapState(to))
		},
	}

	return &Breaker{
		name:    cfg.Name,
		timeout: cfg.Timeout,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

// State returns the current circuit state.
func (b *Breaker) State() CircuitState {
	return mapState(b.cb.State())
}

// Execute runs operation through the circuit breaker. When ctx has no
// deadline the configured timeout is applied.
func (b *Breaker) Execute(ctx context.Context, operation func(context.Context) error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		if err := operation(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return nil, err
		}
		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}
	return err
}
