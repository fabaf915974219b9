package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codefionn/autoresolve/internal/github"
	"github.com/codefionn/autoresolve/internal/llm"
	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/codefionn/autoresolve/internal/progress"
	"github.com/codefionn/autoresolve/internal/ratelimit"
	"github.com/codefionn/autoresolve/internal/request"
	"github.com/codefionn/autoresolve/internal/search"
	"github.com/codefionn/autoresolve/internal/tools"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// step is one scripted model reply. A nil step answers without a tool call.
type step func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)

// scriptedModel replays steps in order; once exhausted it answers without tools.
type scriptedModel struct {
	mu       sync.Mutex
	steps    []step
	requests []recordedRequest
}

type recordedRequest struct {
	tools    []string
	messages int
	first    string
	system   string
}

func (m *scriptedModel) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	rec := recordedRequest{messages: len(req.Messages), system: req.SystemPrompt}
	if len(req.Messages) > 0 {
		rec.first = req.Messages[0].Content
	}
	for _, t := range req.Tools {
		fn := t["function"].(map[string]interface{})
		rec.tools = append(rec.tools, fn["name"].(string))
	}
	m.requests = append(m.requests, rec)
	var next step
	if len(m.steps) > 0 {
		next = m.steps[0]
		m.steps = m.steps[1:]
	}
	m.mu.Unlock()

	if next == nil {
		return &llm.CompletionResponse{Content: "Nothing to do.", Usage: llm.Usage{InputTokens: 10, OutputTokens: 2}}, nil
	}
	return next(ctx, req)
}

func (m *scriptedModel) GetModelName() string { return "gpt-4o" }

func callTool(name, args string) step {
	return func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{
			ToolCalls: []llm.ToolCall{{ID: "call_" + name, Name: name, Arguments: args}},
			Usage:     llm.Usage{InputTokens: 100, OutputTokens: 20},
		}, nil
	}
}

func fetchFile(path string) step {
	return callTool(tools.ToolNameGetRemoteFileContent, `{"owner":"octo","repo":"hello","file_path":"`+path+`","ref":"fix"}`)
}

func commitFile(path string) step {
	return callTool(tools.ToolNameCommitChangesToRemote, `{"file_path":"`+path+`","diff":"--- a/`+path+`\n+++ b/`+path+`\n@@ -1 +1 @@\n-a\n+b\n"}`)
}

func failWith(err error) step {
	return func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, err
	}
}

func blockUntilDone() step {
	return func(ctx context.Context, _ *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

// iteration scripts one EXPLORE, SEARCH, COMMIT round.
func iteration(explore, search, commit step) []step {
	return []step{explore, search, commit}
}

type fakeHost struct {
	mu        sync.Mutex
	files     map[string]string
	tree      string
	treeErr   error
	fileReads map[string]int
	commits   []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		files: map[string]string{
			"main.go":   "package main\n\nfunc main() {}\n",
			"util.go":   "package main\n",
			"README.md": "# hello\n",
			"go.mod":    "module hello\n",
			"a.go":      "a\n",
		},
		tree:      "README.md\na.go\ngo.mod\nmain.go\nutil.go",
		fileReads: map[string]int{},
	}
}

func (h *fakeHost) GetFileContent(_ context.Context, owner, repo, path, ref string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fileReads[path]++
	content, ok := h.files[path]
	if !ok {
		return "", github.ErrNotFound
	}
	return content, nil
}

func (h *fakeHost) GetFileTree(_ context.Context, owner, repo, ref string) (string, error) {
	if h.treeErr != nil {
		return "", h.treeErr
	}
	return h.tree, nil
}

func (h *fakeHost) CommitDiff(_ context.Context, args request.BaseArgs, path, diff string) (*github.CommitResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commits = append(h.commits, path)
	return &github.CommitResult{Path: path, Branch: args.NewBranch(), CommitSHA: "c0ffee", Added: 1, Removed: 1}, nil
}

type fakePulls struct {
	files []github.PullFile
	err   error
	calls int
}

func (f *fakePulls) ListPullRequestFiles(_ context.Context, owner, repo string, number int) ([]github.PullFile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.files, nil
}

type fakeSearch struct{}

func (fakeSearch) Search(_ context.Context, query string, n int) (*search.Response, error) {
	return &search.Response{Query: query, Results: []search.Result{{Title: "util.go", Snippet: "func helper()"}}}, nil
}
func (fakeSearch) Name() string    { return "fake" }
func (fakeSearch) Validate() error { return nil }

type recorder struct {
	mu      sync.Mutex
	updates []progress.Update
	err     error
}

func (r *recorder) Report(_ context.Context, u progress.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return r.err
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.updates))
	for _, u := range r.updates {
		out = append(out, u.Message)
	}
	return out
}

type fakeComments struct {
	mu      sync.Mutex
	created []string
	updated []string
}

func (f *fakeComments) CreateComment(_ context.Context, owner, repo string, number int, body string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, body)
	return 42, nil
}

func (f *fakeComments) UpdateComment(_ context.Context, owner, repo string, commentID int64, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if commentID != 42 {
		return errors.New("unexpected comment id")
	}
	f.updated = append(f.updated, body)
	return nil
}

type harness struct {
	model    *scriptedModel
	host     *fakeHost
	reporter *recorder
	comments *fakeComments
	pulls    *fakePulls
	ctrl     *Controller
}

func newHarness(t *testing.T, opts Options, steps ...step) *harness {
	t.Helper()
	h := &harness{
		model:    &scriptedModel{steps: steps},
		host:     newFakeHost(),
		reporter: &recorder{},
		comments: &fakeComments{},
		pulls: &fakePulls{files: []github.PullFile{
			{Filename: "main.go", Status: "modified", Additions: 2, Changes: 2},
			{Filename: "old.go", Status: "removed", Deletions: 4, Changes: 4},
			{Filename: "util.go", Status: "added", Additions: 1, Changes: 1},
		}},
	}
	exec := ratelimit.New(
		ratelimit.WithLogger(logger.Nop()),
		ratelimit.WithSleepFunc(func(context.Context, time.Duration) error { return nil }),
	)
	registry := tools.NewDefaultRegistry(tools.Deps{Host: h.host, Search: fakeSearch{}, SearchResults: 3, Log: logger.Nop()})

	ctrl, err := NewController(Deps{
		Model:     h.model,
		Invoker:   tools.NewInvoker(registry, exec, logger.Nop(), 0),
		Host:      h.host,
		PullFiles: h.pulls,
		Comments:  h.comments,
		Reporter:  h.reporter,
		Executor:  exec,
		Log:       logger.Nop(),
		Now:       func() time.Time { return fixedNow },
	}, opts)
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func issueRequest(t *testing.T) request.BaseArgs {
	t.Helper()
	base, err := request.New(request.Params{
		Owner:       "octo",
		Repo:        "hello",
		BaseBranch:  "main",
		NewBranch:   "fix",
		IssueNumber: 7,
		Title:       "Rename main package",
		Body:        "The package should be called app.",
	})
	require.NoError(t, err)
	return base
}

func reviewRequest(t *testing.T) request.BaseArgs {
	t.Helper()
	base, err := request.New(request.Params{
		Owner:      "octo",
		Repo:       "hello",
		NewBranch:  "fix",
		PullNumber: 12,
		Title:      "Rename main package",
		Body:       "<p>Renames the <b>main</b> package.</p><ul><li>one</li></ul>",
		Review:     &request.Review{Path: "main.go", Line: 3, Comment: "Please add a doc comment."},
	})
	require.NoError(t, err)
	return base
}
