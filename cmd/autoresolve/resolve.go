package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/codefionn/autoresolve/internal/agent"
	"github.com/codefionn/autoresolve/internal/config"
	"github.com/codefionn/autoresolve/internal/github"
	"github.com/codefionn/autoresolve/internal/llm"
	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/codefionn/autoresolve/internal/progress"
	"github.com/codefionn/autoresolve/internal/ratelimit"
	"github.com/codefionn/autoresolve/internal/request"
	"github.com/codefionn/autoresolve/internal/search"
	"github.com/codefionn/autoresolve/internal/securemem"
	"github.com/codefionn/autoresolve/internal/telemetry"
	"github.com/codefionn/autoresolve/internal/tools"
	"github.com/spf13/cobra"
)

// resolveFlags are the command line inputs of one resolution.
type resolveFlags struct {
	owner         string
	repo          string
	issue         int
	pull          int
	reviewPath    string
	reviewLine    int
	reviewComment string
	baseBranch    string
	newBranch     string
	fork          bool
	commentID     int64
	title         string
	body          string
	sender        string
	requestID     string
}

var rf resolveFlags

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve an issue or a pull request review comment",
	Example: `  autoresolve resolve --owner octo --repo hello --issue 7 --base-branch main
  autoresolve resolve --owner octo --repo hello --pull 12 --review-path main.go --review-line 3 --review-comment "Add a doc comment"`,
	RunE: runResolve,
}

func init() {
	f := resolveCmd.Flags()
	f.StringVar(&rf.owner, "owner", "", "Repository owner")
	f.StringVar(&rf.repo, "repo", "", "Repository name")
	f.IntVar(&rf.issue, "issue", 0, "Issue number to resolve")
	f.IntVar(&rf.pull, "pull", 0, "Pull request number (review mode)")
	f.StringVar(&rf.reviewPath, "review-path", "", "File the review comment refers to")
	f.IntVar(&rf.reviewLine, "review-line", 0, "Line the review comment refers to")
	f.StringVar(&rf.reviewComment, "review-comment", "", "Review comment text")
	f.StringVar(&rf.baseBranch, "base-branch", "", "Branch to read from (default: the pull request base or the repository default)")
	f.StringVar(&rf.newBranch, "new-branch", "", "Branch to commit to (default: autoresolve/issue-N or the pull request head)")
	f.BoolVar(&rf.fork, "fork", false, "The repository is a fork")
	f.Int64Var(&rf.commentID, "comment-id", 0, "Existing progress comment to update instead of creating one")
	f.StringVar(&rf.title, "title", "", "Title (default: fetched from GitHub)")
	f.StringVar(&rf.body, "body", "", "Body (default: fetched from GitHub)")
	f.StringVar(&rf.sender, "sender", "", "Login of the user who triggered the run")
	f.StringVar(&rf.requestID, "request-id", "", "Request ID for logs (default: random UUID)")

	_ = resolveCmd.MarkFlagRequired("owner")
	_ = resolveCmd.MarkFlagRequired("repo")
	resolveCmd.MarkFlagsMutuallyExclusive("issue", "pull")
	resolveCmd.MarkFlagsOneRequired("issue", "pull")
	resolveCmd.MarkFlagsRequiredTogether("review-path", "review-comment")
}

// workItems looks up what the flags leave out.
type workItems interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*github.Issue, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
}

// buildRequest turns the flags into BaseArgs, filling titles, bodies and
// branches from GitHub where they were not given.
func buildRequest(ctx context.Context, f resolveFlags, token *securemem.String, items workItems, exec *ratelimit.Executor) (request.BaseArgs, error) {
	p := request.Params{
		RequestID:   f.requestID,
		Owner:       strings.TrimSpace(f.owner),
		Repo:        strings.TrimSpace(f.repo),
		IsFork:      f.fork,
		BaseBranch:  f.baseBranch,
		NewBranch:   f.newBranch,
		IssueNumber: f.issue,
		PullNumber:  f.pull,
		CommentID:   f.commentID,
		Token:       token,
		Title:       f.title,
		Body:        f.body,
		Sender:      f.sender,
	}
	if f.reviewComment != "" {
		if f.pull <= 0 {
			return request.BaseArgs{}, errors.New("--review-comment requires --pull")
		}
		p.Review = &request.Review{Path: strings.TrimPrefix(f.reviewPath, "/"), Line: f.reviewLine, Comment: f.reviewComment}
	}

	switch {
	case f.pull > 0 && (p.NewBranch == "" || p.Title == "" || p.BaseBranch == ""):
		pr, err := ratelimit.Execute(ctx, exec, ratelimit.Operation[*github.PullRequest]{
			Name: "get_pull_request",
			Args: map[string]interface{}{"number": f.pull},
			Run: func(ctx context.Context) (*github.PullRequest, error) {
				return items.GetPullRequest(ctx, p.Owner, p.Repo, f.pull)
			},
		}, nil, true)
		if err != nil {
			return request.BaseArgs{}, fmt.Errorf("failed to load pull request #%d: %w", f.pull, err)
		}
		p.Title = firstNonEmpty(p.Title, pr.Title)
		p.Body = firstNonEmpty(p.Body, pr.Body)
		p.NewBranch = firstNonEmpty(p.NewBranch, pr.Head.Ref)
		if p.Review == nil {
			p.BaseBranch = firstNonEmpty(p.BaseBranch, pr.Base.Ref)
		}
		p.IsFork = p.IsFork || pr.Head.Repo.Fork
	case f.issue > 0:
		if p.Title == "" {
			issue, err := ratelimit.Execute(ctx, exec, ratelimit.Operation[*github.Issue]{
				Name: "get_issue",
				Args: map[string]interface{}{"number": f.issue},
				Run: func(ctx context.Context) (*github.Issue, error) {
					return items.GetIssue(ctx, p.Owner, p.Repo, f.issue)
				},
			}, nil, true)
			if err != nil {
				return request.BaseArgs{}, fmt.Errorf("failed to load issue #%d: %w", f.issue, err)
			}
			p.Title = issue.Title
			p.Body = firstNonEmpty(p.Body, issue.Body)
			p.Sender = firstNonEmpty(p.Sender, issue.User.Login)
		}
		if p.NewBranch == "" {
			p.NewBranch = fmt.Sprintf("autoresolve/issue-%d", f.issue)
		}
		if p.BaseBranch == "" {
			return request.BaseArgs{}, errors.New("--base-branch is required for issues")
		}
	}

	return request.New(p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func newExecutor(cfg config.RetryConfig, log *logger.Logger) *ratelimit.Executor {
	return ratelimit.New(
		ratelimit.WithLogger(log),
		ratelimit.WithMaxRetries(cfg.MaxRetries),
		ratelimit.WithPrimaryBuffer(time.Duration(cfg.PrimaryBufferSeconds)*time.Second),
		ratelimit.WithSecondaryDefault(time.Duration(cfg.SecondaryDefaultSeconds)*time.Second),
		ratelimit.WithMaxWait(time.Duration(cfg.MaxWaitSeconds)*time.Second),
	)
}

func runResolve(cmd *cobra.Command, args []string) error {
	out := newStatusPrinter(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.ParseLevel(cfg.LogLevel), cfg.LogPath, "autoresolve")
	if err != nil {
		return err
	}
	defer log.Close()
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("failed to flush traces: %v", err)
		}
	}()

	token := securemem.NewString(cfg.GitHub.Token)
	cfg.GitHub.Token = ""
	defer securemem.Purge()

	gh := github.NewClient(token, github.WithBaseURL(cfg.GitHub.APIURL), github.WithAPIVersion(cfg.GitHub.APIVersion))
	exec := newExecutor(cfg.Retry, log)

	base, err := buildRequest(ctx, rf, token, gh, exec)
	if err != nil {
		return err
	}

	model, err := llm.NewClient(ctx, cfg.Model, log)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	searcher, err := search.NewProvider(cfg.Search, gh, nil)
	if err != nil {
		return fmt.Errorf("failed to create search provider: %w", err)
	}

	registry := tools.NewDefaultRegistry(tools.Deps{Host: gh, Search: searcher, SearchResults: cfg.Search.Results, Log: log})
	ctrl, err := agent.NewController(agent.Deps{
		Model:     model,
		Invoker:   tools.NewInvoker(registry, exec, log, cfg.Loop.MaxToolOutputBytes),
		Host:      gh,
		Branches:  gh,
		PullFiles: gh,
		Comments:  gh,
		Reporter:  progress.LogReporter{Log: log},
		Executor:  exec,
		Log:       log,
		Tracer:    tp.Tracer(),
	}, agent.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	out.Info("Resolving %s with %s (%s search)", base, model.GetModelName(), searcher.Name())
	res, err := ctrl.Run(ctx, base)
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("Done after %d iteration(s): %d commit(s) on %s, %d input / %d output tokens, %s",
		res.Iterations, res.Commits, base.NewBranch(), res.TokenInput, res.TokenOutput, res.Duration.Round(time.Second))
	if res.Reason.IsLimit() {
		out.Warn("%s (stopped by %s limit)", summary, res.Reason)
		return nil
	}
	out.Success("%s (%s)", summary, res.Reason)
	return nil
}
