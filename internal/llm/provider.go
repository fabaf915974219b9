package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/autoresolve/internal/config"
	"github.com/codefionn/autoresolve/internal/logger"
)

// NewClient builds the configured provider client wrapped in the per-call
// timeout, the circuit breaker and the request/token throttle.
func NewClient(ctx context.Context, cfg config.ModelConfig, log *logger.Logger) (Client, error) {
	var (
		base Client
		err  error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		base, err = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model)
	case "anthropic":
		base, err = NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model)
	case "google":
		base, err = NewGoogleAIClient(ctx, cfg.GoogleAPIKey, cfg.Model, "", nil)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return Wrap(base, cfg, log), nil
}

// Wrap applies the configured resilience layers to base. The throttle sits
// outside the breaker so waiting for budget never counts as a failure.
func Wrap(base Client, cfg config.ModelConfig, log *logger.Logger) Client {
	client := WithTimeout(base, cfg.Timeout())
	client = NewBreakerClient(client, BreakerSettings{}, log)
	return NewRateLimitedClient(client, IntervalForRPM(cfg.RequestsPerMinute), cfg.TokensPerMinute, log)
}
