package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// BreakerSettings tunes the circuit breaker around a provider.
type BreakerSettings struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.Name == "" {
		s.Name = "completion"
	}
	if s.MaxRequests == 0 {
		s.MaxRequests = 1
	}
	if s.Interval <= 0 {
		s.Interval = 60 * time.Second
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	return s
}

// BreakerClient stops calling a failing provider for a cool-down period and
// reports ErrUnavailable while the circuit is open.
type BreakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerClient(next Client, settings BreakerSettings, logger *logging.Logger) *BreakerClient {
	if next == nil {
		panic("completion: breaker needs a client")
	}
	if logger == nil {
		logger = logging.Default()
	}
	settings = settings.withDefaults()

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// Cancelled callers say nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("completion circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &BreakerClient{next: next, cb: cb}
}

func (c *BreakerClient) Complete(ctx context.Context, req Request) (Response, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.next.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return Response{}, err
	}
	return out.(Response), nil
}

// State reports the breaker state, mainly for health output.
func (c *BreakerClient) State() string {
	return c.cb.State().String()
}
