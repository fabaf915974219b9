package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/codefionn/autoresolve/internal/ratelimit"
	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the model provider is considered unhealthy.
var ErrCircuitOpen = errors.New("model circuit breaker open")

// BreakerSettings tunes NewBreakerClient.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker. Defaults to 3.
	ConsecutiveFailures uint32
	// Cooldown is how long the breaker stays open before probing. Defaults to 30s.
	Cooldown time.Duration
}

type breakerClient struct {
	delegate Client
	cb       *gobreaker.CircuitBreaker[*CompletionResponse]
}

// NewBreakerClient wraps base in a circuit breaker. Caller cancellations and
// exhausted quotas do not count as provider failures.
func NewBreakerClient(base Client, settings BreakerSettings, log *logger.Logger) Client {
	if base == nil {
		return base
	}
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 3
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	cb := gobreaker.NewCircuitBreaker[*CompletionResponse](gobreaker.Settings{
		Name:        "llm-" + base.GetModelName(),
		MaxRequests: 1, // one trial request while half-open
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker %s changed from %s to %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, errNilRequest) || isQuotaError(err)
		},
	})

	return &breakerClient{delegate: base, cb: cb}
}

func (c *breakerClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	resp, err := c.cb.Execute(func() (*CompletionResponse, error) {
		return c.delegate.Complete(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w for %s: %w", ErrCircuitOpen, c.delegate.GetModelName(), err)
	}
	return resp, err
}

func (c *breakerClient) GetModelName() string {
	return c.delegate.GetModelName()
}

func isQuotaError(err error) bool {
	var httpErr *ratelimit.HTTPError
	return errors.As(err, &httpErr) && ratelimit.IsQuotaStatus(httpErr.StatusCode)
}
