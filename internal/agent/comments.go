package agent

import (
	"context"

	"github.com/codefionn/autoresolve/internal/progress"
	"github.com/codefionn/autoresolve/internal/ratelimit"
)

// retryingComments routes progress comment writes through the rate limit executor.
type retryingComments struct {
	api  progress.CommentAPI
	exec *ratelimit.Executor
}

func (r retryingComments) CreateComment(ctx context.Context, owner, repo string, number int, body string) (int64, error) {
	return ratelimit.Execute(ctx, r.exec, ratelimit.Operation[int64]{
		Name: "create_comment",
		Args: map[string]interface{}{"owner": owner, "repo": repo, "number": number},
		Run: func(ctx context.Context) (int64, error) {
			return r.api.CreateComment(ctx, owner, repo, number, body)
		},
	}, 0, true)
}

func (r retryingComments) UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) error {
	return r.exec.Run(ctx, "update_comment", func(ctx context.Context) error {
		return r.api.UpdateComment(ctx, owner, repo, commentID, body)
	})
}
