package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/codefionn/autoresolve/internal/github"
	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/codefionn/autoresolve/internal/progress"
	"github.com/codefionn/autoresolve/internal/ratelimit"
	"github.com/codefionn/autoresolve/internal/request"
	"github.com/codefionn/autoresolve/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	files     map[string]string
	tree      string
	fileCalls int
	treeCalls int
	commits   []string
	commitErr error
	failFirst error
}

func (f *fakeHost) GetFileContent(_ context.Context, owner, repo, path, ref string) (string, error) {
	f.fileCalls++
	content, ok := f.files[path]
	if !ok {
		return "", github.ErrNotFound
	}
	return content, nil
}

func (f *fakeHost) GetFileTree(_ context.Context, owner, repo, ref string) (string, error) {
	f.treeCalls++
	if f.failFirst != nil && f.treeCalls == 1 {
		return "", f.failFirst
	}
	return f.tree, nil
}

func (f *fakeHost) CommitDiff(_ context.Context, args request.BaseArgs, path, diff string) (*github.CommitResult, error) {
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	f.commits = append(f.commits, path)
	return &github.CommitResult{Path: path, Branch: args.NewBranch(), CommitSHA: "abc123", Added: 1, Removed: 1}, nil
}

type fakeSearch struct{ queries []string }

func (f *fakeSearch) Search(_ context.Context, query string, n int) (*search.Response, error) {
	f.queries = append(f.queries, query)
	return &search.Response{Query: query, Results: []search.Result{{Title: "main.go", Snippet: "func main()"}}}, nil
}
func (f *fakeSearch) Name() string    { return "fake" }
func (f *fakeSearch) Validate() error { return nil }

type recordedUpdates struct{ updates []progress.Update }

func (r *recordedUpdates) Report(_ context.Context, u progress.Update) error {
	r.updates = append(r.updates, u)
	return nil
}

type fixture struct {
	host     *fakeHost
	search   *fakeSearch
	reporter *recordedUpdates
	invoker  *Invoker
	env      Env
	sleeps   []time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		host:     &fakeHost{files: map[string]string{"main.go": "package main\n\nfunc main() {}\n"}, tree: "README.md\nmain.go"},
		search:   &fakeSearch{},
		reporter: &recordedUpdates{},
	}
	base, err := request.New(request.Params{Owner: "octo", Repo: "hello", BaseBranch: "main", NewBranch: "autoresolve/issue-7", IssueNumber: 7})
	require.NoError(t, err)
	f.env = Env{Base: base, Progress: 45, Reporter: f.reporter}

	exec := ratelimit.New(
		ratelimit.WithLogger(logger.Nop()),
		ratelimit.WithSleepFunc(func(_ context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		}),
	)
	reg := NewDefaultRegistry(Deps{Host: f.host, Search: f.search, SearchResults: 3, Log: logger.Nop()})
	f.invoker = NewInvoker(reg, exec, logger.Nop(), 0)
	return f
}

func TestKindNamesAndEffects(t *testing.T) {
	tests := []struct {
		kind   Kind
		name   string
		effect Effect
	}{
		{KindFetchFileContent, "get_remote_file_content", EffectExplored},
		{KindFetchFileTree, "get_remote_file_tree", EffectExplored},
		{KindSearchRemoteContent, "search_remote_content", EffectSearched},
		{KindCommitChange, "commit_changes_to_remote_branch", EffectCommitted},
		{KindUpdateProgressComment, "update_progress_comment", EffectNone},
		{KindExplainDiffModification, "reason_for_modifying_diff", EffectNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.kind.String())
			assert.Equal(t, tt.effect, tt.kind.Effect())
		})
	}
}

func TestSubsetUsesOpenAIFormat(t *testing.T) {
	f := newFixture(t)

	schemas := f.invoker.Registry().Subset(KindFetchFileContent, KindFetchFileTree)

	require.Len(t, schemas, 2)
	assert.Equal(t, "function", schemas[0]["type"])
	fn := schemas[0]["function"].(map[string]interface{})
	assert.Equal(t, "get_remote_file_content", fn["name"])
	params := fn["parameters"].(map[string]interface{})
	assert.Equal(t, []string{"owner", "repo", "file_path", "ref"}, params["required"])
}

func TestDecodeValidation(t *testing.T) {
	f := newFixture(t)
	reg := f.invoker.Registry()

	tests := []struct {
		name    string
		tool    string
		args    string
		wantErr error
	}{
		{name: "unknown tool", tool: "delete_repo", args: `{}`, wantErr: ErrUnknownTool},
		{name: "not json", tool: "get_remote_file_tree", args: `owner=octo`, wantErr: ErrInvalidArguments},
		{name: "missing ref", tool: "get_remote_file_tree", args: `{"owner":"octo","repo":"hello"}`, wantErr: ErrInvalidArguments},
		{name: "blank required", tool: "search_remote_content", args: `{"query":"   "}`, wantErr: ErrInvalidArguments},
		{name: "wrong type", tool: "search_remote_content", args: `{"query":42}`, wantErr: ErrInvalidArguments},
		{name: "fractional percent", tool: "update_progress_comment", args: `{"body":"x","percent":50.5}`, wantErr: ErrInvalidArguments},
		{name: "ok", tool: "get_remote_file_tree", args: `{"owner":"octo","repo":"hello","ref":"main"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Decode(tt.tool, tt.args)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSignatureIsCanonical(t *testing.T) {
	reg := newFixture(t).invoker.Registry()

	a, err := reg.Decode("get_remote_file_tree", `{"ref":"main","repo":"hello","owner":"octo"}`)
	require.NoError(t, err)
	b, err := reg.Decode("get_remote_file_tree", `{"owner":" octo ","repo":"hello","ref":"main","extra_token":"x"}`)
	require.NoError(t, err)

	assert.Equal(t, a.Signature, b.Signature)
	assert.Equal(t, `get_remote_file_tree:{"owner":"octo","ref":"main","repo":"hello"}`, a.Signature)
	assert.Len(t, a.Fingerprint(), 16)
}

func TestInvokeFetchSetsExplored(t *testing.T) {
	f := newFixture(t)
	previous := map[string]struct{}{}

	out := f.invoker.Invoke(context.Background(), f.env, "get_remote_file_content",
		`{"owner":"octo","repo":"hello","file_path":"/main.go","ref":"main"}`, previous)

	assert.Equal(t, StatusExecuted, out.Status)
	assert.Equal(t, EffectExplored, out.Effect())
	assert.Contains(t, out.Content, "Opened file: 'main.go'")
	assert.Contains(t, out.Content, "3: func main() {}")
	assert.Len(t, previous, 1)
}

func TestInvokeDeduplicates(t *testing.T) {
	f := newFixture(t)
	previous := map[string]struct{}{}
	args := `{"owner":"octo","repo":"hello","ref":"main"}`

	first := f.invoker.Invoke(context.Background(), f.env, "get_remote_file_tree", args, previous)
	second := f.invoker.Invoke(context.Background(), f.env, "get_remote_file_tree", args, previous)

	assert.Equal(t, StatusExecuted, first.Status)
	assert.Equal(t, StatusDuplicate, second.Status)
	assert.Equal(t, EffectNone, second.Effect(), "a skipped call does not count as exploring")
	assert.Contains(t, second.Content, "already called")
	assert.Equal(t, 1, f.host.treeCalls, "side effect runs once")
}

func TestInvokeFailureIsRecordedAndDescribed(t *testing.T) {
	f := newFixture(t)
	previous := map[string]struct{}{}

	out := f.invoker.Invoke(context.Background(), f.env, "get_remote_file_content",
		`{"owner":"octo","repo":"hello","file_path":"missing.go","ref":"main"}`, previous)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, EffectNone, out.Effect())
	assert.Contains(t, out.Content, "Error: `get_remote_file_content()` failed")
	assert.NoError(t, out.Err)
	assert.Len(t, previous, 1, "failed executions still count as performed")
}

func TestInvokeInterruptedCallIsNotRecorded(t *testing.T) {
	tests := []struct {
		name   string
		cancel bool
		err    error
	}{
		{name: "tool deadline", err: fmt.Errorf("tree request: %w", context.DeadlineExceeded)},
		{name: "cancelled run", cancel: true, err: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.host.failFirst = tt.err
			previous := map[string]struct{}{}
			args := `{"owner":"octo","repo":"hello","ref":"main"}`

			ctx, cancel := context.WithCancel(context.Background())
			if tt.cancel {
				cancel()
			}
			first := f.invoker.Invoke(ctx, f.env, "get_remote_file_tree", args, previous)
			cancel()

			assert.Equal(t, StatusFailed, first.Status)
			assert.Error(t, first.Err)
			assert.Empty(t, previous)

			second := f.invoker.Invoke(context.Background(), f.env, "get_remote_file_tree", args, previous)
			assert.Equal(t, StatusExecuted, second.Status)
			assert.Equal(t, 2, f.host.treeCalls)
			assert.Len(t, previous, 1)
		})
	}
}

func TestInvokeInvalidDoesNotExecute(t *testing.T) {
	f := newFixture(t)
	previous := map[string]struct{}{}

	out := f.invoker.Invoke(context.Background(), f.env, "commit_changes_to_remote_branch", `{"file_path":"a.go"}`, previous)

	assert.Equal(t, StatusInvalid, out.Status)
	assert.ErrorIs(t, out.Err, ErrInvalidArguments)
	assert.Empty(t, f.host.commits)
	assert.Empty(t, previous)
}

func TestInvokeRetriesRateLimits(t *testing.T) {
	f := newFixture(t)
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "60")
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Used", "60")
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Unix(), 10))
	f.host.failFirst = &ratelimit.HTTPError{StatusCode: http.StatusForbidden, Header: h}

	out := f.invoker.Invoke(context.Background(), f.env, "get_remote_file_tree", `{"owner":"octo","repo":"hello","ref":"main"}`, map[string]struct{}{})

	assert.Equal(t, StatusExecuted, out.Status)
	assert.Equal(t, 2, f.host.treeCalls)
	assert.Len(t, f.sleeps, 1)
}

func TestInvokeCommitSetsCommitted(t *testing.T) {
	f := newFixture(t)

	out := f.invoker.Invoke(context.Background(), f.env, "commit_changes_to_remote_branch",
		`{"file_path":"main.go","diff":"--- a/main.go\n+++ b/main.go\n@@ -1 +1 @@\n-package main\n+package app\n"}`, map[string]struct{}{})

	assert.Equal(t, StatusExecuted, out.Status)
	assert.Equal(t, EffectCommitted, out.Effect())
	assert.Equal(t, "Updated main.go on branch autoresolve/issue-7 in commit abc123 (+1 -1).", out.Content)
}

func TestInvokeCommitFailure(t *testing.T) {
	f := newFixture(t)
	f.host.commitErr = errors.New("failed to apply diff to main.go: hunk does not match")

	out := f.invoker.Invoke(context.Background(), f.env, "commit_changes_to_remote_branch",
		`{"file_path":"main.go","diff":"x"}`, map[string]struct{}{})

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, EffectNone, out.Effect())
}

func TestSearchToolIsScopedToRepository(t *testing.T) {
	f := newFixture(t)

	out := f.invoker.Invoke(context.Background(), f.env, "search_remote_content", `{"query":"func main"}`, map[string]struct{}{})

	assert.Equal(t, StatusExecuted, out.Status)
	assert.Equal(t, EffectSearched, out.Effect())
	assert.Equal(t, []string{"func main"}, f.search.queries)
	assert.Contains(t, out.Content, "Search results for: func main")
}

func TestUpdateProgressNeverGoesBackwards(t *testing.T) {
	tests := []struct {
		name string
		args string
		want int
	}{
		{name: "no percent keeps current", args: `{"body":"Working"}`, want: 45},
		{name: "lower percent is raised", args: `{"body":"Working","percent":10}`, want: 45},
		{name: "higher percent", args: `{"body":"Working","percent":60}`, want: 60},
		{name: "capped below completion", args: `{"body":"Working","percent":100}`, want: 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			out := f.invoker.Invoke(context.Background(), f.env, "update_progress_comment", tt.args, map[string]struct{}{})

			require.Equal(t, StatusExecuted, out.Status)
			assert.Equal(t, EffectNone, out.Effect())
			require.Len(t, f.reporter.updates, 1)
			assert.Equal(t, tt.want, f.reporter.updates[0].Percent)
		})
	}
}

func TestExplainDiffModification(t *testing.T) {
	f := newFixture(t)

	out := f.invoker.Invoke(context.Background(), f.env, "reason_for_modifying_diff", `{"why":"hunk header was off by one"}`, map[string]struct{}{})

	assert.Equal(t, StatusExecuted, out.Status)
	assert.Equal(t, EffectNone, out.Effect())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))

	out := Truncate(strings.Repeat("é", 10), 5)
	assert.True(t, strings.HasPrefix(out, "éé\n\n[output truncated: showing 4 of 20 bytes]"))
}

func TestNumberLines(t *testing.T) {
	assert.Equal(t, "(empty file)", NumberLines(""))
	content := strings.Repeat("x\n", 10)
	lines := strings.Split(NumberLines(content), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, " 1: x", lines[0])
	assert.Equal(t, "10: x", lines[9])
}
