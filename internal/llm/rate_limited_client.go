package llm

import (
	"context"
	"sync"
	"time"

	"github.com/codefionn/autoresolve/internal/logger"
)

const (
	defaultResponseTokenEstimate = 512
	minTokenEstimate             = 8
)

// throttledClient spaces model calls so that both the request and the token
// budget of the provider account are respected. Each call reserves its slot
// up front, so concurrent callers queue in arrival order.
type throttledClient struct {
	delegate     Client
	interval     time.Duration
	tokensPerMin int
	log          *logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	nextRequest time.Time
	nextBudget  time.Time
}

// NewRateLimitedClient returns a Client that throttles calls using a minimum
// request interval and a tokens-per-minute budget. base is returned unchanged
// when both limits are disabled.
func NewRateLimitedClient(base Client, interval time.Duration, tokensPerMinute int, log *logger.Logger) Client {
	if base == nil || (interval <= 0 && tokensPerMinute <= 0) {
		return base
	}
	if log == nil {
		log = logger.Global()
	}
	return &throttledClient{
		delegate:     base,
		interval:     max(interval, 0),
		tokensPerMin: max(tokensPerMinute, 0),
		log:          log,
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// IntervalForRPM converts a requests-per-minute budget to a minimum spacing.
func IntervalForRPM(rpm int) time.Duration {
	if rpm <= 0 {
		return 0
	}
	return time.Minute / time.Duration(rpm)
}

func (c *throttledClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	tokens := c.estimateTokens(req)
	if wait := c.reserve(tokens); wait > 0 {
		c.log.Debug("throttling %s for %s (%d estimated tokens)", c.delegate.GetModelName(), wait, tokens)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return c.delegate.Complete(ctx, req)
}

func (c *throttledClient) GetModelName() string {
	return c.delegate.GetModelName()
}

// reserve books the next slot for a call of the given size and returns how
// long the caller has to wait before it may start.
func (c *throttledClient) reserve(tokens int) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	start := now
	if c.interval > 0 && c.nextRequest.After(start) {
		start = c.nextRequest
	}

	if c.tokensPerMin > 0 && tokens > 0 {
		budget := c.nextBudget
		if budget.Before(now) {
			budget = now
		}
		if budget.After(start) {
			start = budget
		}
		c.nextBudget = budget.Add(tokensToDuration(tokens, c.tokensPerMin))
	}

	if c.interval > 0 {
		c.nextRequest = start.Add(c.interval)
	}
	return start.Sub(now)
}

func (c *throttledClient) estimateTokens(req *CompletionRequest) int {
	if req == nil {
		return defaultResponseTokenEstimate
	}

	tokens, _ := CountTokens(c.delegate.GetModelName(), req)
	tokens = max(tokens, minTokenEstimate)

	if req.MaxTokens > 0 {
		return tokens + req.MaxTokens
	}
	return tokens + defaultResponseTokenEstimate
}

func tokensToDuration(tokens, tokensPerMinute int) time.Duration {
	if tokensPerMinute <= 0 || tokens <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) * float64(tokens) / float64(tokensPerMinute))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
