package ratelimit

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrRetriesExhausted is returned when a quota-limited operation keeps failing
// after the configured number of retries.
var ErrRetriesExhausted = errors.New("rate limit retries exhausted")

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 64 * 1024

// maxErrorMessage bounds the body excerpt in Error().
const maxErrorMessage = 200

const secondaryLimitMarker = "exceeded a secondary rate limit"

// HTTPError is a non-2xx response from a remote API. It keeps the headers and
// body so the executor can inspect rate limit metadata.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > maxErrorMessage {
		cut := maxErrorMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, msg)
}

// NewHTTPError reads (and closes) the response body and builds an HTTPError.
func NewHTTPError(resp *http.Response) *HTTPError {
	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}
	if resp.Request != nil {
		httpErr.Method = resp.Request.Method
		if resp.Request.URL != nil {
			httpErr.URL = resp.Request.URL.Redacted()
		}
	}
	if resp.Body != nil {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		httpErr.Body = string(data)
	}
	return httpErr
}

// IsQuotaStatus reports whether the status code may signal quota exhaustion.
func IsQuotaStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusTooManyRequests
}

// Status is the rate limit state reported by a failed response.
type Status struct {
	Limit       int
	Remaining   int
	Used        int
	ResetAt     time.Time
	IsSecondary bool
}

func (s Status) String() string {
	return fmt.Sprintf("Limit: %d, Remaining: %d, Used: %d", s.Limit, s.Remaining, s.Used)
}

// ParseStatus extracts the rate limit headers from a failed response.
// Limit, Remaining and Used are required; Reset defaults to the epoch.
func ParseStatus(e *HTTPError) (Status, error) {
	var st Status
	var err error

	if st.Limit, err = headerInt(e.Header, "X-RateLimit-Limit"); err != nil {
		return Status{}, err
	}
	if st.Remaining, err = headerInt(e.Header, "X-RateLimit-Remaining"); err != nil {
		return Status{}, err
	}
	if st.Used, err = headerInt(e.Header, "X-RateLimit-Used"); err != nil {
		return Status{}, err
	}

	reset := int64(0)
	if raw := strings.TrimSpace(e.Header.Get("X-RateLimit-Reset")); raw != "" {
		if v, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			reset = v
		}
	}
	st.ResetAt = time.Unix(reset, 0)
	st.IsSecondary = st.Remaining != 0 && strings.Contains(strings.ToLower(e.Body), secondaryLimitMarker)

	return st, nil
}

func headerInt(h http.Header, key string) (int, error) {
	raw := strings.TrimSpace(h.Get(key))
	if raw == "" {
		return 0, fmt.Errorf("missing %s header", key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s header %q: %w", key, raw, err)
	}
	return v, nil
}

// retryAfter returns the Retry-After header in seconds, or def when absent or malformed.
func retryAfter(h http.Header, def time.Duration) time.Duration {
	raw := strings.TrimSpace(h.Get("Retry-After"))
	if raw == "" {
		return def
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}
