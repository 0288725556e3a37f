package breaker

import (
	"errors"
	"time"

	"unistay/pkg/logger"
	"unistay/pkg/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
)

type Settings struct {
	Name        string
	MaxFailures int
	OpenTimeout time.Duration
}

// New returns a breaker that opens after MaxFailures consecutive failures
// and probes again after OpenTimeout. State changes are logged and exported
// as the circuit_breaker_state gauge.
func New[T any](s Settings, log *logger.Logger) *gobreaker.CircuitBreaker[T] {
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(StateValue(gobreaker.StateClosed))

	maxFailures := uint32(max(1, s.MaxFailures))

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(StateValue(to))
		},
	})
}

// Rejected reports whether err came from an open or saturated breaker.
func Rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// StateValue maps a breaker state onto the gauge: 0 closed, 1 half-open, 2 open.
func StateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
