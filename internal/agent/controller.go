// Package agent drives a chat model through explore, search and commit
// rounds until a request is resolved, stuck or out of budget.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/codefionn/autoresolve/internal/config"
	"github.com/codefionn/autoresolve/internal/consts"
	"github.com/codefionn/autoresolve/internal/github"
	"github.com/codefionn/autoresolve/internal/llm"
	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/codefionn/autoresolve/internal/progress"
	"github.com/codefionn/autoresolve/internal/ratelimit"
	"github.com/codefionn/autoresolve/internal/request"
	"github.com/codefionn/autoresolve/internal/tools"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/codefionn/autoresolve/internal/agent"

// maxCallSummary bounds the arguments echoed in progress comments.
const maxCallSummary = 512

// BranchManager prepares the working branch of issue requests.
type BranchManager interface {
	EnsureBranch(ctx context.Context, owner, repo, base, branch string) (bool, error)
}

// PullFileLister lists the files a pull request changes.
type PullFileLister interface {
	ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]github.PullFile, error)
}

// Options are the loop limits and sampling settings.
type Options struct {
	MaxIterations        int
	Timeout              time.Duration
	OscillationThreshold int
	Temperature          float64
	MaxTokens            int
}

// DefaultOptions returns the built-in limits.
func DefaultOptions() Options {
	return Options{
		MaxIterations:        consts.DefaultMaxIterations,
		Timeout:              consts.Timeout30Minutes,
		OscillationThreshold: consts.DefaultOscillationThreshold,
		Temperature:          consts.DefaultTemperature,
		MaxTokens:            consts.DefaultMaxTokens,
	}
}

// OptionsFromConfig reads the loop and model sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxIterations:        cfg.Loop.MaxIterations,
		Timeout:              cfg.LoopTimeout(),
		OscillationThreshold: cfg.Loop.OscillationThreshold,
		Temperature:          cfg.Model.Temperature,
		MaxTokens:            cfg.Model.MaxTokens,
	}
}

// Deps are the collaborators of a Controller. Model, Invoker and Host are
// required; Branches, Comments and Reporter are optional.
type Deps struct {
	Model     llm.Client
	Invoker   *tools.Invoker
	Host      tools.CodeHost
	Branches  BranchManager
	// PullFiles is optional; without it review requests omit pull_files.
	PullFiles PullFileLister
	// Comments receives the progress comment of each request.
	Comments progress.CommentAPI
	// Reporter receives every update in addition to the comment.
	Reporter progress.Reporter
	Executor *ratelimit.Executor
	Log      *logger.Logger
	Tracer   trace.Tracer
	Now      func() time.Time
}

// Controller resolves requests. It keeps no per-request state, so one
// Controller may serve concurrent resolutions.
type Controller struct {
	model    llm.Client
	invoker  *tools.Invoker
	host     tools.CodeHost
	branches BranchManager
	pulls    PullFileLister
	comments progress.CommentAPI
	reporter progress.Reporter
	executor *ratelimit.Executor
	log      *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
	opts     Options
}

// NewController validates deps and fills in defaults.
func NewController(deps Deps, opts Options) (*Controller, error) {
	switch {
	case deps.Model == nil:
		return nil, errors.New("agent: model client is required")
	case deps.Invoker == nil:
		return nil, errors.New("agent: tool invoker is required")
	case deps.Host == nil:
		return nil, errors.New("agent: code host is required")
	}

	c := &Controller{
		model:    deps.Model,
		invoker:  deps.Invoker,
		host:     deps.Host,
		branches: deps.Branches,
		pulls:    deps.PullFiles,
		comments: deps.Comments,
		reporter: deps.Reporter,
		executor: deps.Executor,
		log:      deps.Log,
		tracer:   deps.Tracer,
		now:      deps.Now,
		opts:     opts,
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.executor == nil {
		c.executor = ratelimit.New(ratelimit.WithLogger(c.log))
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.opts.MaxIterations <= 0 {
		c.opts.MaxIterations = consts.DefaultMaxIterations
	}
	if c.opts.OscillationThreshold < 0 {
		c.opts.OscillationThreshold = consts.DefaultOscillationThreshold
	}
	if c.opts.MaxTokens <= 0 {
		c.opts.MaxTokens = consts.DefaultMaxTokens
	}
	return c, nil
}

// Result summarises a finished resolution.
type Result struct {
	Reason      Reason
	Iterations  int
	RetryCount  int
	Progress    int
	Commits     int
	TokenInput  int
	TokenOutput int
	Duration    time.Duration
}

// Resolve runs the resolution loop for base and posts the final report.
func (c *Controller) Resolve(ctx context.Context, base request.BaseArgs) error {
	_, err := c.Run(ctx, base)
	return err
}

// Run is Resolve returning the loop summary. Model failures and
// cancellation of ctx are returned; the loop timeout and iteration ceiling
// end the loop normally with a limit Reason.
func (c *Controller) Run(ctx context.Context, base request.BaseArgs) (*Result, error) {
	log := c.log.WithFields(base.LogFields()...)
	reporter := c.reporterFor(base)
	st := newLoopState(c.now())

	ctx, span := c.tracer.Start(ctx, "agent.resolve", trace.WithAttributes(
		attribute.String("repo", base.FullName()),
		attribute.Int("number", base.Number()),
		attribute.String("request_id", base.RequestID()),
		attribute.Bool("review", base.IsReview()),
	))
	defer span.End()

	loopCtx, cancel := c.withLoopDeadline(ctx)
	defer cancel()

	log.Info("resolving %s", base)
	res := &Result{}
	reason, err := c.loop(loopCtx, st, base, reporter, log, res)
	if err != nil && ctx.Err() == nil && errors.Is(loopCtx.Err(), context.DeadlineExceeded) {
		reason, err = ReasonTimeout, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolution failed")
		log.Error("resolution failed during %s: %v", st.Phase, err)
		return nil, err
	}

	st.Phase = PhaseDone
	res.Reason = reason
	res.Iterations = st.Iteration
	res.RetryCount = st.RetryCount
	res.Progress = st.Progress
	res.TokenInput = st.TokenInput
	res.TokenOutput = st.TokenOutput
	res.Duration = c.now().Sub(st.StartedAt)

	if reason.IsLimit() {
		log.Warn("stopped by %s limit after %d iteration(s)", reason, st.Iteration)
	} else {
		log.Info("stopped (%s) after %d iteration(s), %d commit(s)", reason, st.Iteration, res.Commits)
	}
	span.SetAttributes(
		attribute.String("reason", reason.String()),
		attribute.Int("iterations", st.Iteration),
		attribute.Int("commits", res.Commits),
		attribute.Int("tokens.input", st.TokenInput),
		attribute.Int("tokens.output", st.TokenOutput),
	)

	c.report(ctx, log, reporter, progress.Update{Message: resolvedMessage(base), Percent: consts.ProgressDone, Final: true})
	return res, nil
}

func (c *Controller) withLoopDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.Timeout)
}

func (c *Controller) loop(ctx context.Context, st *LoopState, base request.BaseArgs, reporter progress.Reporter, log *logger.Logger, res *Result) (Reason, error) {
	if err := c.plan(ctx, st, base, reporter, log); err != nil {
		return 0, err
	}
	st.Progress = consts.ProgressLoopStart

	for {
		if st.Iteration >= c.opts.MaxIterations {
			return ReasonMaxIterations, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		st.Iteration++

		var flags iterationFlags
		for _, spec := range iterationPhases {
			r, err := c.runPhase(ctx, st, base, reporter, log, spec)
			if err != nil {
				return 0, err
			}
			flags.record(r)
			if r.Effect == tools.EffectCommitted {
				res.Commits++
			}
		}

		st.Phase = PhaseContinue
		retry, stop := Decide(flags.explored, flags.committed, st.RetryCount, c.opts.OscillationThreshold)
		st.RetryCount = retry
		log.Info("iteration %d: tool_calls=%d explored=%t searched=%t committed=%t retry_count=%d",
			st.Iteration, flags.calls, flags.explored, flags.searched, flags.committed, st.RetryCount)
		if stop {
			st.Phase = PhaseTerminate
			return stopReason(flags.explored, flags.committed), nil
		}
	}
}

// runPhase performs one model round-trip restricted to the phase's tools
// and executes the returned call, if any.
func (c *Controller) runPhase(ctx context.Context, st *LoopState, base request.BaseArgs, reporter progress.Reporter, log *logger.Logger, spec phaseSpec) (PhaseResult, error) {
	st.Phase = spec.phase
	ctx, span := c.tracer.Start(ctx, "agent.phase", trace.WithAttributes(
		attribute.String("phase", spec.phase.String()),
		attribute.Int("iteration", st.Iteration),
	))
	defer span.End()

	req := &llm.CompletionRequest{
		Messages:     st.Messages,
		Tools:        c.invoker.Registry().Subset(spec.kinds...),
		Temperature:  c.opts.Temperature,
		MaxTokens:    c.opts.MaxTokens,
		SystemPrompt: systemPromptFor(base, spec),
	}
	resp, err := ratelimit.Execute(ctx, c.executor, ratelimit.Operation[*llm.CompletionResponse]{
		Name: "complete_" + spec.phase.String(),
		Args: map[string]interface{}{"model": c.model.GetModelName(), "messages": len(req.Messages)},
		Run: func(ctx context.Context) (*llm.CompletionResponse, error) {
			return c.model.Complete(ctx, req)
		},
	}, nil, true)
	if err == nil && resp == nil {
		err = errors.New("model returned no response")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model round-trip failed")
		return PhaseResult{}, fmt.Errorf("%s phase: %w", spec.phase, err)
	}

	usage := resp.Usage
	if usage.InputTokens == 0 {
		usage.InputTokens, _ = llm.CountTokens(c.model.GetModelName(), req)
	}
	st.addUsage(usage)
	result := PhaseResult{Phase: spec.phase, Usage: usage, Effect: tools.EffectNone}

	call, ok := resp.ToolCall()
	if !ok {
		if strings.TrimSpace(resp.Content) != "" {
			st.append(llm.AssistantMessage(resp))
		}
		span.SetAttributes(attribute.String("tool", ""), attribute.String("effect", tools.EffectNone.String()))
		log.Debug("%s phase: no tool call", spec.phase)
		return result, nil
	}
	if call.ID == "" {
		call.ID = fmt.Sprintf("call_%d_%s", st.Iteration, spec.phase)
	}
	st.append(&llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: []llm.ToolCall{call}})

	env := tools.Env{Base: base, Progress: st.Progress, Reporter: reporter}
	outcome := c.invoker.Invoke(ctx, env, call.Name, call.Arguments, st.PreviousCalls)
	st.append(llm.ToolMessage(call, outcome.Content))
	if outcome.Err != nil && ctx.Err() != nil {
		span.RecordError(outcome.Err)
		return result, fmt.Errorf("%s phase: %w", spec.phase, ctx.Err())
	}

	args := call.Arguments
	if outcome.Call != nil {
		args = outcome.Call.ArgsJSON()
		span.SetAttributes(attribute.String("fingerprint", outcome.Call.Fingerprint()))
	}
	result.Tool = call.Name
	result.Args = args
	result.Status = outcome.Status
	result.Effect = outcome.Effect()
	result.Content = outcome.Content

	span.SetAttributes(
		attribute.String("tool", call.Name),
		attribute.String("status", outcome.Status.String()),
		attribute.String("effect", result.Effect.String()),
	)
	log.Info("%s phase: %s() %s", spec.phase, call.Name, outcome.Status)

	c.report(ctx, log, reporter, progress.Update{
		Message: fmt.Sprintf("Calling `%s()` with `%s`...", call.Name, abbreviate(args, maxCallSummary)),
		Percent: st.Progress,
	})
	st.advance()
	return result, nil
}

func (c *Controller) reporterFor(base request.BaseArgs) progress.Reporter {
	var reporters progress.Multi
	if c.comments != nil {
		api := retryingComments{api: c.comments, exec: c.executor}
		reporters = append(reporters, progress.NewCommentReporter(api, base.Owner(), base.Repo(), base.Number(), base.CommentID()))
	}
	if c.reporter != nil {
		reporters = append(reporters, c.reporter)
	}
	return reporters
}

// report delivers an update; failures are logged and otherwise ignored.
func (c *Controller) report(ctx context.Context, log *logger.Logger, reporter progress.Reporter, update progress.Update) {
	if err := progress.Dispatch(ctx, reporter, update); err != nil {
		log.Warn("failed to report progress: %v", err)
	}
}

// abbreviate shortens s to at most max bytes on a rune boundary.
func abbreviate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
