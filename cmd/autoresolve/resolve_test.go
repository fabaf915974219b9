package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/codefionn/autoresolve/internal/github"
	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/codefionn/autoresolve/internal/ratelimit"
	"github.com/codefionn/autoresolve/internal/securemem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeItems struct {
	issueCalls int
	pullCalls  int
}

func (f *fakeItems) GetIssue(_ context.Context, owner, repo string, number int) (*github.Issue, error) {
	f.issueCalls++
	if number != 7 {
		return nil, github.ErrNotFound
	}
	issue := &github.Issue{Number: 7, Title: "Crash on start", Body: "Stack trace"}
	issue.User.Login = "alice"
	return issue, nil
}

func (f *fakeItems) GetPullRequest(_ context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	f.pullCalls++
	pr := &github.PullRequest{Number: number, Title: "Fix crash", Body: "Fixes #7"}
	pr.Head.Ref = "autoresolve/issue-7"
	pr.Base.Ref = "main"
	return pr, nil
}

func testExecutor() *ratelimit.Executor {
	return ratelimit.New(ratelimit.WithLogger(logger.Nop()))
}

func TestBuildRequestIssue(t *testing.T) {
	items := &fakeItems{}
	f := resolveFlags{owner: "octo", repo: "hello", issue: 7, baseBranch: "main"}

	base, err := buildRequest(context.Background(), f, securemem.NewString("ghs_secret"), items, testExecutor())

	require.NoError(t, err)
	assert.Equal(t, 1, items.issueCalls)
	assert.Equal(t, "Crash on start", base.Title())
	assert.Equal(t, "Stack trace", base.Body())
	assert.Equal(t, "alice", base.Sender())
	assert.Equal(t, "autoresolve/issue-7", base.NewBranch())
	assert.Equal(t, "main", base.BaseBranch())
	assert.True(t, base.Token().Equal("ghs_secret"))
	assert.False(t, base.IsReview())
	assert.NotEmpty(t, base.RequestID())
}

func TestBuildRequestIssueWithExplicitFields(t *testing.T) {
	items := &fakeItems{}
	f := resolveFlags{owner: "octo", repo: "hello", issue: 7, baseBranch: "main", newBranch: "fix", title: "Given", body: "Given body"}

	base, err := buildRequest(context.Background(), f, nil, items, testExecutor())

	require.NoError(t, err)
	assert.Zero(t, items.issueCalls)
	assert.Equal(t, "fix", base.NewBranch())
	assert.Equal(t, "Given", base.Title())
}

func TestBuildRequestIssueRequiresBaseBranch(t *testing.T) {
	f := resolveFlags{owner: "octo", repo: "hello", issue: 7, title: "x"}

	_, err := buildRequest(context.Background(), f, nil, &fakeItems{}, testExecutor())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--base-branch")
}

func TestBuildRequestReview(t *testing.T) {
	items := &fakeItems{}
	f := resolveFlags{owner: "octo", repo: "hello", pull: 12, reviewPath: "/main.go", reviewLine: 3, reviewComment: "Add a doc comment"}

	base, err := buildRequest(context.Background(), f, nil, items, testExecutor())

	require.NoError(t, err)
	assert.Equal(t, 1, items.pullCalls)
	assert.True(t, base.IsReview())
	assert.Equal(t, "main.go", base.Review().Path)
	assert.Equal(t, "autoresolve/issue-7", base.NewBranch())
	assert.Equal(t, "autoresolve/issue-7", base.BaseBranch(), "review fixes read from the head branch")
	assert.Equal(t, 12, base.Number())
	assert.Equal(t, "Fix crash", base.Title())
}

func TestBuildRequestUnknownIssue(t *testing.T) {
	f := resolveFlags{owner: "octo", repo: "hello", issue: 8, baseBranch: "main"}

	_, err := buildRequest(context.Background(), f, nil, &fakeItems{}, testExecutor())

	require.ErrorIs(t, err, github.ErrNotFound)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", firstNonEmpty())
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.True(t, strings.HasPrefix(buf.String(), "autoresolve dev"))
}

func TestStatusPrinterWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := newStatusPrinter(&buf)

	p.Success("done %d", 1)
	p.Failure("failed")

	assert.Equal(t, "done 1\nfailed\n", buf.String())
}
