package tools

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/codefionn/autoresolve/internal/consts"
	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/codefionn/autoresolve/internal/ratelimit"
)

// Status classifies what happened to one tool call.
type Status int

const (
	// StatusExecuted means the tool ran and succeeded.
	StatusExecuted Status = iota
	// StatusFailed means the tool ran and returned an error.
	StatusFailed
	// StatusDuplicate means an identical call already ran in this resolution.
	StatusDuplicate
	// StatusInvalid means the call named an unknown tool or had bad arguments.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusExecuted:
		return "executed"
	case StatusFailed:
		return "failed"
	case StatusDuplicate:
		return "duplicate"
	default:
		return "invalid"
	}
}

// Outcome is the result of one invocation. Content is what goes back to the
// model as the tool message.
type Outcome struct {
	Name    string
	Call    *Call // nil when the call was invalid
	Status  Status
	Content string
	Err     error
}

// Effect returns the flag this outcome sets for its phase. Only calls that
// actually executed successfully count.
func (o Outcome) Effect() Effect {
	if o.Status != StatusExecuted || o.Call == nil {
		return EffectNone
	}
	return o.Call.Kind.Effect()
}

// Invoker validates, deduplicates and executes tool calls.
type Invoker struct {
	registry       *Registry
	executor       *ratelimit.Executor
	log            *logger.Logger
	maxOutputBytes int
}

// NewInvoker creates an invoker. maxOutputBytes <= 0 selects the 64 KiB default.
func NewInvoker(registry *Registry, executor *ratelimit.Executor, log *logger.Logger, maxOutputBytes int) *Invoker {
	if executor == nil {
		executor = ratelimit.New(ratelimit.WithLogger(log))
	}
	if log == nil {
		log = logger.Nop()
	}
	if maxOutputBytes <= 0 {
		maxOutputBytes = consts.BufferSize64KB
	}
	return &Invoker{registry: registry, executor: executor, log: log, maxOutputBytes: maxOutputBytes}
}

// Registry returns the registry calls are resolved against.
func (inv *Invoker) Registry() *Registry {
	return inv.registry
}

// Invoke runs one model tool call. previous holds the signatures executed so
// far in this resolution and is updated when the call executes, successfully
// or not, unless the context ended first. Failures never abort: they are described in the Outcome content.
// Only context cancellation is reported through Outcome.Err with a
// StatusFailed status.
func (inv *Invoker) Invoke(ctx context.Context, env Env, name, rawArgs string, previous map[string]struct{}) Outcome {
	call, err := inv.registry.Decode(name, rawArgs)
	if err != nil {
		inv.log.Warn("rejected tool call %s: %v", name, err)
		return Outcome{
			Name:    name,
			Status:  StatusInvalid,
			Content: fmt.Sprintf("Error: %v. The call was not executed.", err),
			Err:     err,
		}
	}

	log := inv.log.WithFields("tool", call.Name, "fingerprint", call.Fingerprint())

	if _, seen := previous[call.Signature]; seen {
		log.Info("skipping duplicate call")
		return Outcome{
			Name:    call.Name,
			Call:    call,
			Status:  StatusDuplicate,
			Content: fmt.Sprintf("`%s()` was already called with `%s` and its result is in the conversation above. Do not repeat it; use the earlier result or do something else.", call.Name, call.ArgsJSON()),
		}
	}

	var lastErr error
	content, err := ratelimit.Execute(ctx, inv.executor, ratelimit.Operation[string]{
		Name: call.Name,
		Args: call.Args,
		Run: func(ctx context.Context) (string, error) {
			out, runErr := call.Tool.Execute(ctx, env, call.Args)
			lastErr = runErr
			return out, runErr
		},
	}, "", false)

	if err == nil && lastErr != nil {
		err = lastErr
	}
	// An interrupted call may be retried by a later run with the same history.
	cancelled := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if !cancelled {
		previous[call.Signature] = struct{}{}
	}
	if err != nil {
		log.Warn("tool call failed: %v", err)
		outcome := Outcome{
			Name:    call.Name,
			Call:    call,
			Status:  StatusFailed,
			Content: fmt.Sprintf("Error: `%s()` failed: %v", call.Name, err),
		}
		if cancelled {
			outcome.Err = err
		}
		return outcome
	}

	log.Debug("tool call executed (%d bytes)", len(content))
	return Outcome{
		Name:    call.Name,
		Call:    call,
		Status:  StatusExecuted,
		Content: Truncate(content, inv.maxOutputBytes),
	}
}

// Truncate shortens s to at most max bytes on a rune boundary and appends a note.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s\n\n[output truncated: showing %d of %d bytes]", s[:cut], cut, len(s))
}
