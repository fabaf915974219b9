package agent

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/codefionn/autoresolve/internal/ratelimit"
	"github.com/codefionn/autoresolve/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attrsOf(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestResolveRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := newHarness(t, testOptions(), iteration(fetchFile("main.go"), nil, nil)...)
	h.ctrl.tracer = tp.Tracer("test")

	_, err := h.ctrl.Run(context.Background(), issueRequest(t))
	require.NoError(t, err)

	ended := recorder.Ended()
	require.NotEmpty(t, ended)

	var phases []sdktrace.ReadOnlySpan
	var root sdktrace.ReadOnlySpan
	for _, span := range ended {
		switch span.Name() {
		case "agent.phase":
			phases = append(phases, span)
		case "agent.resolve":
			root = span
		}
	}
	require.NotNil(t, root)
	require.Len(t, phases, 6, "two iterations of three phases")

	first := attrsOf(phases[0])
	assert.Equal(t, "explore", first["phase"].AsString())
	assert.Equal(t, tools.ToolNameGetRemoteFileContent, first["tool"].AsString())
	assert.Equal(t, "executed", first["status"].AsString())
	assert.Equal(t, "explored", first["effect"].AsString())
	assert.NotEmpty(t, first["fingerprint"].AsString())

	second := attrsOf(phases[1])
	assert.Equal(t, "search", second["phase"].AsString())
	assert.Equal(t, "none", second["effect"].AsString())

	rootAttrs := attrsOf(root)
	assert.Equal(t, "octo/hello", rootAttrs["repo"].AsString())
	assert.Equal(t, int64(7), rootAttrs["number"].AsInt64())
	assert.Equal(t, "idle", rootAttrs["reason"].AsString())
	assert.Equal(t, int64(2), rootAttrs["iterations"].AsInt64())
	for _, phase := range phases {
		assert.Equal(t, root.SpanContext().SpanID(), phase.Parent().SpanID())
	}
}

type flakyComments struct {
	fakeComments
	failures int
}

func (f *flakyComments) CreateComment(ctx context.Context, owner, repo string, number int, body string) (int64, error) {
	if f.failures > 0 {
		f.failures--
		h := http.Header{}
		h.Set("X-RateLimit-Limit", "60")
		h.Set("X-RateLimit-Remaining", "0")
		h.Set("X-RateLimit-Used", "60")
		h.Set("X-RateLimit-Reset", "0")
		return 0, &ratelimit.HTTPError{StatusCode: http.StatusForbidden, Header: h}
	}
	return f.fakeComments.CreateComment(ctx, owner, repo, number, body)
}

func TestRetryingCommentsRetriesQuotaFailures(t *testing.T) {
	api := &flakyComments{failures: 2}
	var waits []time.Duration
	exec := ratelimit.New(
		ratelimit.WithLogger(logger.Nop()),
		ratelimit.WithSleepFunc(func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}),
	)
	comments := retryingComments{api: api, exec: exec}

	id, err := comments.CreateComment(context.Background(), "octo", "hello", 7, "Collecting info...")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Len(t, waits, 2)

	require.NoError(t, comments.UpdateComment(context.Background(), "octo", "hello", 42, "Planning..."))
	assert.Error(t, comments.UpdateComment(context.Background(), "octo", "hello", 1, "x"))
	assert.Equal(t, []string{"Collecting info..."}, api.created)
	assert.Equal(t, []string{"Planning..."}, api.updated)
}
