package llm

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/codefionn/autoresolve/internal/consts"
	"github.com/codefionn/autoresolve/internal/ratelimit"
	openai "github.com/openai/openai-go"
	"google.golang.org/genai"
)

// apiError turns a provider SDK failure into a *ratelimit.HTTPError. A 429
// gets X-RateLimit-* headers describing when the provider quota resets, so the
// executor waits it out like any other exhausted quota. Errors that did not
// come from an HTTP response are returned unchanged.
func apiError(err error, now time.Time) error {
	if err == nil {
		return nil
	}

	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return sdkHTTPError(oaErr.StatusCode, oaErr.Request, oaErr.Response, oaErr.RawJSON(), now)
	}

	var anErr *anthropic.Error
	if errors.As(err, &anErr) {
		return sdkHTTPError(anErr.StatusCode, anErr.Request, anErr.Response, anErr.RawJSON(), now)
	}

	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return genaiHTTPError(gErr, now)
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) && gErrPtr != nil {
		return genaiHTTPError(*gErrPtr, now)
	}

	return err
}

func sdkHTTPError(status int, req *http.Request, resp *http.Response, body string, now time.Time) *ratelimit.HTTPError {
	httpErr := &ratelimit.HTTPError{StatusCode: status, Header: http.Header{}, Body: body}
	if resp != nil {
		if httpErr.StatusCode == 0 {
			httpErr.StatusCode = resp.StatusCode
		}
		httpErr.Header = resp.Header.Clone()
	}
	if req != nil {
		httpErr.Method = req.Method
		if req.URL != nil {
			httpErr.URL = req.URL.Redacted()
		}
	}
	if httpErr.StatusCode == http.StatusTooManyRequests {
		markExhausted(httpErr.Header, resetAfter(httpErr.Header, now), now)
	}
	return httpErr
}

func genaiHTTPError(e genai.APIError, now time.Time) *ratelimit.HTTPError {
	httpErr := &ratelimit.HTTPError{
		Method:     http.MethodPost,
		StatusCode: e.Code,
		Header:     http.Header{},
		Body:       strings.TrimSpace(e.Status + " " + e.Message),
	}
	if e.Code == http.StatusTooManyRequests {
		wait, ok := genaiRetryDelay(e.Details)
		if !ok {
			wait = consts.SecondaryRateLimitWait
		}
		markExhausted(httpErr.Header, wait, now)
	}
	return httpErr
}

// markExhausted records an exhausted quota that resets after wait.
func markExhausted(h http.Header, wait time.Duration, now time.Time) {
	limit := firstHeader(h, "x-ratelimit-limit-requests", "anthropic-ratelimit-requests-limit")
	if _, err := strconv.Atoi(limit); err != nil {
		limit = "0"
	}
	h.Set("X-RateLimit-Limit", limit)
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Used", limit)
	// Round up so a sub-second wait still lands after the reset.
	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(wait+time.Second-1).Unix(), 10))
}

// resetAfter reads how long the provider asks us to back off. OpenAI sends
// Go-style durations ("6m0s", "20ms"), Anthropic RFC 3339 timestamps, both
// send Retry-After.
func resetAfter(h http.Header, now time.Time) time.Duration {
	if raw := strings.TrimSpace(h.Get("retry-after-ms")); raw != "" {
		if ms, err := strconv.ParseFloat(raw, 64); err == nil && ms >= 0 {
			return time.Duration(ms * float64(time.Millisecond))
		}
	}
	if raw := strings.TrimSpace(h.Get("Retry-After")); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}

	var wait time.Duration
	found := false
	for _, key := range []string{"x-ratelimit-reset-requests", "x-ratelimit-reset-tokens"} {
		if d, err := time.ParseDuration(strings.TrimSpace(h.Get(key))); err == nil {
			wait, found = max(wait, d), true
		}
	}
	for _, key := range []string{
		"anthropic-ratelimit-requests-reset",
		"anthropic-ratelimit-tokens-reset",
		"anthropic-ratelimit-input-tokens-reset",
		"anthropic-ratelimit-output-tokens-reset",
	} {
		if at, err := time.Parse(time.RFC3339, strings.TrimSpace(h.Get(key))); err == nil {
			wait, found = max(wait, at.Sub(now)), true
		}
	}
	if !found {
		return consts.SecondaryRateLimitWait
	}
	return max(wait, 0)
}

// genaiRetryDelay extracts google.rpc.RetryInfo.retryDelay ("30s").
func genaiRetryDelay(details []map[string]any) (time.Duration, bool) {
	for _, detail := range details {
		kind, _ := detail["@type"].(string)
		if !strings.HasSuffix(kind, "RetryInfo") {
			continue
		}
		raw, _ := detail["retryDelay"].(string)
		if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
			return d, true
		}
	}
	return 0, false
}

func firstHeader(h http.Header, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(h.Get(key)); v != "" {
			return v
		}
	}
	return ""
}
