package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codefionn/autoresolve/internal/consts"
	"github.com/codefionn/autoresolve/internal/github"
	"github.com/codefionn/autoresolve/internal/htmlconv"
	"github.com/codefionn/autoresolve/internal/llm"
	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/codefionn/autoresolve/internal/progress"
	"github.com/codefionn/autoresolve/internal/ratelimit"
	"github.com/codefionn/autoresolve/internal/request"
	"github.com/codefionn/autoresolve/internal/tools"
	"golang.org/x/sync/errgroup"
)

const (
	msgCollectingReview = "Thanks for the feedback! Collecting info..."
	msgCollectingIssue  = "Got your request. Collecting info..."
	msgFileTree         = "Checking out the file tree in the repo..."
	msgPlanningReview   = "Planning how to achieve your feedback..."
	msgPlanningIssue    = "Planning how to achieve your request..."
	msgObstacles        = "Checking if I can solve it or if I should just hit you up..."
	msgResolvedReview   = "Resolved your feedback! Looks good?"
	msgResolvedIssue    = "Resolved your request! Looks good?"
)

type reviewInput struct {
	PullRequestTitle string `json:"pull_request_title"`
	PullRequestBody  string `json:"pull_request_body"`
	ReviewComment    string `json:"review_comment"`
	ReviewFile       string `json:"review_file"`
	PullFiles        string `json:"pull_files"`
	FileTree         string `json:"file_tree"`
	Today            string `json:"today"`
}

type issueInput struct {
	IssueTitle string `json:"issue_title"`
	IssueBody  string `json:"issue_body"`
	FileTree   string `json:"file_tree"`
	Today      string `json:"today"`
}

// plan collects the context of the request and seeds the conversation with
// the JSON input message. Fetch failures leave the affected field empty.
func (c *Controller) plan(ctx context.Context, st *LoopState, base request.BaseArgs, reporter progress.Reporter, log *logger.Logger) error {
	st.Phase = PhasePlanning
	review := base.Review()

	collecting := msgCollectingIssue
	if review != nil {
		collecting = msgCollectingReview
	}
	c.report(ctx, log, reporter, progress.Update{Message: collecting, Percent: 0})

	if !base.IsReview() && c.branches != nil && base.NewBranch() != base.BaseBranch() {
		created, err := ratelimit.Execute(ctx, c.executor, ratelimit.Operation[bool]{
			Name: "ensure_branch",
			Args: map[string]string{"base": base.BaseBranch(), "branch": base.NewBranch()},
			Run: func(ctx context.Context) (bool, error) {
				return c.branches.EnsureBranch(ctx, base.Owner(), base.Repo(), base.BaseBranch(), base.NewBranch())
			},
		}, false, true)
		if err != nil {
			return fmt.Errorf("failed to prepare branch %s: %w", base.NewBranch(), err)
		}
		if created {
			log.Info("created branch %s from %s", base.NewBranch(), base.BaseBranch())
		}
	}

	var reviewFile, pullFiles, fileTree string
	g, gctx := errgroup.WithContext(ctx)
	if review != nil && c.pulls != nil {
		g.Go(func() error {
			var err error
			pullFiles, err = c.pullFiles(gctx, base)
			return err
		})
	}
	if review != nil {
		g.Go(func() error {
			content, err := c.fetch(gctx, tools.ToolNameGetRemoteFileContent, map[string]string{"file_path": review.Path}, func(ctx context.Context) (string, error) {
				return c.host.GetFileContent(ctx, base.Owner(), base.Repo(), review.Path, base.NewBranch())
			})
			if content != "" {
				reviewFile = fmt.Sprintf("Opened file: '%s' with line numbers for your information.\n\n%s", review.Path, tools.NumberLines(content))
			}
			return err
		})
	}
	g.Go(func() error {
		tree, err := c.fetch(gctx, tools.ToolNameGetRemoteFileTree, map[string]string{"ref": base.BaseBranch()}, func(ctx context.Context) (string, error) {
			return c.host.GetFileTree(ctx, base.Owner(), base.Repo(), base.BaseBranch())
		})
		fileTree = tree
		return err
	})

	c.report(ctx, log, reporter, progress.Update{Message: msgFileTree, Percent: 10})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	planning := msgPlanningIssue
	if review != nil {
		planning = msgPlanningReview
	}
	c.report(ctx, log, reporter, progress.Update{Message: planning, Percent: 20})

	input, err := c.inputMessage(base, reviewFile, pullFiles, fileTree)
	if err != nil {
		return err
	}

	c.report(ctx, log, reporter, progress.Update{Message: msgObstacles, Percent: 30})
	st.append(&llm.Message{Role: llm.RoleUser, Content: input})
	return nil
}

// fetch runs a planning read through the executor. Only cancellation is
// returned as an error; other failures yield "".
func (c *Controller) fetch(ctx context.Context, name string, args map[string]string, run func(context.Context) (string, error)) (string, error) {
	return ratelimit.Execute(ctx, c.executor, ratelimit.Operation[string]{Name: name, Args: args, Run: run}, "", false)
}

// pullFiles renders the files the pull request changes at the head branch.
// Removed files are skipped and at most consts.MaxPullFiles are inlined.
func (c *Controller) pullFiles(ctx context.Context, base request.BaseArgs) (string, error) {
	files, err := ratelimit.Execute(ctx, c.executor, ratelimit.Operation[[]github.PullFile]{
		Name: "get_pull_request_files",
		Args: map[string]interface{}{"pull_number": base.PullNumber()},
		Run: func(ctx context.Context) ([]github.PullFile, error) {
			return c.pulls.ListPullRequestFiles(ctx, base.Owner(), base.Repo(), base.PullNumber())
		},
	}, nil, false)
	if err != nil {
		return "", err
	}

	changed := make([]string, 0, len(files))
	for _, f := range files {
		if !f.Removed() {
			changed = append(changed, f.Filename)
		}
	}
	omitted := 0
	if len(changed) > consts.MaxPullFiles {
		omitted = len(changed) - consts.MaxPullFiles
		changed = changed[:consts.MaxPullFiles]
	}

	var sb strings.Builder
	for _, path := range changed {
		content, err := c.fetch(ctx, tools.ToolNameGetRemoteFileContent, map[string]string{"file_path": path}, func(ctx context.Context) (string, error) {
			return c.host.GetFileContent(ctx, base.Owner(), base.Repo(), path, base.NewBranch())
		})
		if err != nil {
			return "", err
		}
		if content == "" {
			continue
		}
		content = strings.TrimRight(tools.Truncate(content, consts.MaxPullFileBytes), "\n")
		fmt.Fprintf(&sb, "```%s\n%s\n```\n", path, content)
	}
	if omitted > 0 {
		fmt.Fprintf(&sb, "(%d more changed files omitted)\n", omitted)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (c *Controller) inputMessage(base request.BaseArgs, reviewFile, pullFiles, fileTree string) (string, error) {
	body := base.Body()
	if md, ok := htmlconv.ConvertIfHTML(body); ok {
		body = md
	}
	today := c.now().Format("2006-01-02")

	var payload interface{}
	if review := base.Review(); review != nil {
		payload = reviewInput{
			PullRequestTitle: base.Title(),
			PullRequestBody:  body,
			ReviewComment:    formatReviewComment(review),
			ReviewFile:       reviewFile,
			PullFiles:        pullFiles,
			FileTree:         fileTree,
			Today:            today,
		}
	} else {
		payload = issueInput{
			IssueTitle: base.Title(),
			IssueBody:  body,
			FileTree:   fileTree,
			Today:      today,
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode input message: %w", err)
	}
	return string(data), nil
}

func formatReviewComment(r *request.Review) string {
	var sb strings.Builder
	sb.WriteString("## Review Comment\n")
	sb.WriteString(r.Path)
	if r.Line > 0 {
		fmt.Fprintf(&sb, " Line: %d", r.Line)
	}
	sb.WriteString("\n")
	sb.WriteString(r.Comment)
	return sb.String()
}

func resolvedMessage(base request.BaseArgs) string {
	if base.IsReview() {
		return msgResolvedReview
	}
	return msgResolvedIssue
}
