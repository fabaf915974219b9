package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/codefionn/autoresolve/internal/ratelimit"
)

// Option customises the web search backends.
type Option func(*endpoint)

// endpoint is the HTTP plumbing shared by the web search backends.
type endpoint struct {
	service string
	baseURL string
	client  *http.Client
}

// WithBaseURL points a backend at a different endpoint.
func WithBaseURL(u string) Option {
	return func(e *endpoint) {
		if u != "" {
			e.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(e *endpoint) {
		if c != nil {
			e.client = c
		}
	}
}

func newEndpoint(service, baseURL string, opts []Option) endpoint {
	e := endpoint{service: service, baseURL: baseURL, client: &http.Client{}}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// request builds a request against baseURL+path. A non-nil body is sent as JSON.
func (e endpoint) request(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal request: %w", e.service, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", e.service, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends req and decodes the JSON reply into out. Non-200 replies become
// *ratelimit.HTTPError so quota failures are retried by the executor.
func (e endpoint) do(req *http.Request, out any) error {
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", e.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w", e.service, ratelimit.NewHTTPError(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", e.service, err)
	}
	return nil
}

// clampResults maps n <= 0 to def and caps it at limit.
func clampResults(n, def, limit int) int {
	if n <= 0 {
		n = def
	}
	return min(n, limit)
}

// excerpt shortens s to n runes, marking the cut with "...".
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
