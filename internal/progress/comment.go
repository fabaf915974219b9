package progress

import (
	"context"
	"fmt"
	"sync"
)

// CommentAPI is the subset of the code host client needed to maintain a status comment.
type CommentAPI interface {
	CreateComment(ctx context.Context, owner, repo string, number int, body string) (int64, error)
	UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) error
}

// CommentReporter keeps a single issue or pull request comment up to date.
// The first report creates the comment unless an existing ID was supplied.
type CommentReporter struct {
	api    CommentAPI
	owner  string
	repo   string
	number int

	mu        sync.Mutex
	commentID int64
}

// NewCommentReporter creates a reporter for owner/repo#number.
func NewCommentReporter(api CommentAPI, owner, repo string, number int, commentID int64) *CommentReporter {
	return &CommentReporter{
		api:       api,
		owner:     owner,
		repo:      repo,
		number:    number,
		commentID: commentID,
	}
}

// CommentID returns the ID of the maintained comment, or 0 before the first report.
func (r *CommentReporter) CommentID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commentID
}

// Report renders the update and creates or edits the comment.
func (r *CommentReporter) Report(ctx context.Context, update Update) error {
	body := CreateProgressBar(update.Percent, update.Message)
	if update.Final {
		body = update.Message
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.commentID == 0 {
		id, err := r.api.CreateComment(ctx, r.owner, r.repo, r.number, body)
		if err != nil {
			return fmt.Errorf("failed to create progress comment: %w", err)
		}
		r.commentID = id
		return nil
	}

	if err := r.api.UpdateComment(ctx, r.owner, r.repo, r.commentID, body); err != nil {
		return fmt.Errorf("failed to update progress comment %d: %w", r.commentID, err)
	}
	return nil
}
