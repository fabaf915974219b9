package llm

import (
	"context"
	"time"
)

type timeoutClient struct {
	delegate Client
	timeout  time.Duration
}

// WithTimeout bounds every round-trip of base by timeout.
func WithTimeout(base Client, timeout time.Duration) Client {
	if base == nil || timeout <= 0 {
		return base
	}
	return &timeoutClient{delegate: base, timeout: timeout}
}

func (c *timeoutClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.delegate.Complete(ctx, req)
}

func (c *timeoutClient) GetModelName() string {
	return c.delegate.GetModelName()
}
