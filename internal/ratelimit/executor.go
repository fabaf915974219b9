package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codefionn/autoresolve/internal/consts"
	"github.com/codefionn/autoresolve/internal/logger"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs operations against quota-limited APIs and retries them when
// the remote side reports primary or secondary rate limit exhaustion.
// It holds no per-call state and is safe for concurrent use.
type Executor struct {
	maxRetries       int
	primaryBuffer    time.Duration
	secondaryDefault time.Duration
	maxWait          time.Duration
	sleep            SleepFunc
	now              func() time.Time
	log              *logger.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxRetries sets how many rate limit retries a single call may perform.
func WithMaxRetries(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithPrimaryBuffer sets the margin added to the published reset time.
func WithPrimaryBuffer(d time.Duration) Option {
	return func(e *Executor) { e.primaryBuffer = d }
}

// WithSecondaryDefault sets the wait used when Retry-After is absent.
func WithSecondaryDefault(d time.Duration) Option {
	return func(e *Executor) { e.secondaryDefault = d }
}

// WithMaxWait caps a single backoff sleep. Zero disables the cap.
func WithMaxWait(d time.Duration) Option {
	return func(e *Executor) { e.maxWait = d }
}

// WithSleepFunc overrides the backoff sleep (for testing).
func WithSleepFunc(fn SleepFunc) Option {
	return func(e *Executor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger used for failure reports.
func WithLogger(l *logger.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an Executor with GitHub's documented backoff defaults.
func New(opts ...Option) *Executor {
	e := &Executor{
		maxRetries:       consts.DefaultMaxRetries,
		primaryBuffer:    consts.PrimaryRateLimitBuffer,
		secondaryDefault: consts.SecondaryRateLimitWait,
		maxWait:          consts.MaxRateLimitWait,
		sleep:            defaultSleep,
		now:              time.Now,
		log:              logger.Global(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Operation is one remote call. Name and Args identify it in logs.
type Operation[T any] struct {
	Name string
	Args any
	Run  func(ctx context.Context) (T, error)
}

// Execute runs op, retrying on rate limit exhaustion. When op fails for any
// other reason (or retries run out) the failure is logged and either returned
// (raiseOnError) or replaced by onDefault with a nil error. Context
// cancellation is always returned.
func Execute[T any](ctx context.Context, e *Executor, op Operation[T], onDefault T, raiseOnError bool) (T, error) {
	if e == nil {
		e = New()
	}

	retries := 0
	for {
		result, err := op.Run(ctx)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			var zero T
			return zero, fmt.Errorf("%s: %w", op.Name, ctxErr)
		}

		wait, st, retryable := e.backoff(err)
		if !retryable {
			e.logFailure(op, err, st)
			return fail(onDefault, err, raiseOnError)
		}

		kind := "GitHubPrimaryRateLimitError"
		if st.IsSecondary {
			kind = "GitHubSecondaryRateLimitError"
		}

		if retries >= e.maxRetries {
			exhausted := fmt.Errorf("%w: %s gave up after %d retries: %w", ErrRetriesExhausted, op.Name, retries, err)
			e.log.Error("%s encountered a %s: %v. Not retrying. %s", op.Name, kind, err, st)
			return fail(onDefault, exhausted, raiseOnError)
		}
		retries++

		e.log.Error("%s encountered a %s: %v. Retrying after %s (attempt %d/%d). %s",
			op.Name, kind, err, wait, retries, e.maxRetries, st)

		if err := e.sleep(ctx, wait); err != nil {
			var zero T
			return zero, fmt.Errorf("%s: %w", op.Name, err)
		}
	}
}

// Run is Execute for operations without a result; failures are always returned.
func (e *Executor) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	_, err := Execute(ctx, e, Operation[struct{}]{
		Name: name,
		Run: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx)
		},
	}, struct{}{}, true)
	return err
}

func fail[T any](onDefault T, err error, raiseOnError bool) (T, error) {
	if raiseOnError {
		var zero T
		return zero, err
	}
	return onDefault, nil
}

// backoff decides whether err is a retryable quota failure and how long to wait.
// The returned Status is only meaningful when rate limit headers were present.
func (e *Executor) backoff(err error) (time.Duration, *Status, bool) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || !IsQuotaStatus(httpErr.StatusCode) {
		return 0, nil, false
	}

	st, perr := ParseStatus(httpErr)
	if perr != nil {
		return 0, nil, false
	}

	switch {
	case st.Remaining == 0:
		// Whole seconds, like the reset header itself.
		now := time.Unix(e.now().Unix(), 0)
		wait := st.ResetAt.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return e.capWait(wait + e.primaryBuffer), &st, true
	case st.IsSecondary:
		return e.capWait(retryAfter(httpErr.Header, e.secondaryDefault)), &st, true
	default:
		return 0, &st, false
	}
}

func (e *Executor) capWait(d time.Duration) time.Duration {
	if e.maxWait > 0 && d > e.maxWait {
		return e.maxWait
	}
	return d
}

func (e *Executor) logFailure(op describable, err error, st *Status) {
	var httpErr *HTTPError
	switch {
	case st != nil:
		e.log.Error("%s encountered an HTTPError: %v. %s", op.name(), err, st)
	case errors.As(err, &httpErr):
		e.log.Error("%s encountered an HTTPError: %v", op.name(), err)
	default:
		e.log.Error("%s encountered an %T: %v. Args: %+v", op.name(), err, err, op.args())
	}
}

type describable interface {
	name() string
	args() any
}

func (op Operation[T]) name() string { return op.Name }
func (op Operation[T]) args() any    { return op.Args }
