// Package breaker builds the circuit breakers guarding outbound calls to Spotify and Telegram.
package breaker

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	slogctx "github.com/veqryn/slog-context"

	"github.com/eventbot/dashboard/internal/serviceerr"
)

const (
	defaultMaxRequests      = 1
	defaultInterval         = time.Minute
	defaultTimeout          = 30 * time.Second
	defaultFailureThreshold = 5
)

// Settings configures a breaker. Zero values fall back to the package defaults.
type Settings struct {
	Name             string
	FailureThreshold uint32
	Timeout          time.Duration
	// IsSuccessful reports whether an error should not count as a failure,
	// e.g. an upstream 4xx caused by the caller.
	IsSuccessful func(err error) bool
}

// New creates a circuit breaker that opens after FailureThreshold consecutive failures.
func New[T any](s Settings) *gobreaker.CircuitBreaker[T] {
	threshold := s.FailureThreshold
	if threshold == 0 {
		threshold = defaultFailureThreshold
	}

	timeout := s.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: defaultMaxRequests,
		Interval:    defaultInterval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slogctx.Warn(context.Background(), "Circuit breaker changed state",
				"breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if s.IsSuccessful != nil {
				return s.IsSuccessful(err)
			}
			return false
		},
	})
}

// Wrap turns a rejection by an open or half-open breaker into a temporarily unavailable error.
func Wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(serviceerr.ErrTemporarilyUnavailable, err)
	}

	return err
}
