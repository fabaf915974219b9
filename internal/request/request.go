// Package request defines the immutable per-resolution context passed to every
// tool invocation and attached to every log line.
package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/codefionn/autoresolve/internal/securemem"
	"github.com/google/uuid"
)

// Review describes the pull request review comment being addressed, if any.
type Review struct {
	Path    string
	Line    int
	Comment string
}

// BaseArgs identifies the work item and target branches of one resolution.
// Values are copied on construction; callers get copies from accessors.
type BaseArgs struct {
	requestID   string
	owner       string
	repo        string
	isFork      bool
	baseBranch  string
	newBranch   string
	issueNumber int
	pullNumber  int
	commentID   int64
	token       *securemem.String
	title       string
	body        string
	sender      string
	review      *Review
}

// Params is the mutable input used to build BaseArgs.
type Params struct {
	RequestID   string
	Owner       string
	Repo        string
	IsFork      bool
	BaseBranch  string
	NewBranch   string
	IssueNumber int
	PullNumber  int
	CommentID   int64
	Token       *securemem.String
	Title       string
	Body        string
	Sender      string
	Review      *Review
}

// New validates p and returns the read-only BaseArgs. A request ID is
// generated when p.RequestID is empty.
func New(p Params) (BaseArgs, error) {
	var errs []error
	if strings.TrimSpace(p.Owner) == "" {
		errs = append(errs, errors.New("owner is required"))
	}
	if strings.TrimSpace(p.Repo) == "" {
		errs = append(errs, errors.New("repo is required"))
	}
	if strings.TrimSpace(p.NewBranch) == "" {
		errs = append(errs, errors.New("new branch is required"))
	}
	if p.IssueNumber <= 0 && p.PullNumber <= 0 {
		errs = append(errs, errors.New("an issue or pull request number is required"))
	}
	if p.Review != nil && p.PullNumber <= 0 {
		errs = append(errs, errors.New("a review comment requires a pull request number"))
	}
	if err := errors.Join(errs...); err != nil {
		return BaseArgs{}, fmt.Errorf("invalid request: %w", err)
	}

	id := p.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	base := p.BaseBranch
	if base == "" {
		// Review fixes land on the pull request's own head branch.
		base = p.NewBranch
	}

	var review *Review
	if p.Review != nil {
		r := *p.Review
		review = &r
	}

	return BaseArgs{
		requestID:   id,
		owner:       p.Owner,
		repo:        p.Repo,
		isFork:      p.IsFork,
		baseBranch:  base,
		newBranch:   p.NewBranch,
		issueNumber: p.IssueNumber,
		pullNumber:  p.PullNumber,
		commentID:   p.CommentID,
		token:       p.Token,
		title:       p.Title,
		body:        p.Body,
		sender:      p.Sender,
		review:      review,
	}, nil
}

func (b BaseArgs) RequestID() string  { return b.requestID }
func (b BaseArgs) Owner() string      { return b.owner }
func (b BaseArgs) Repo() string       { return b.repo }
func (b BaseArgs) IsFork() bool       { return b.isFork }
func (b BaseArgs) BaseBranch() string { return b.baseBranch }
func (b BaseArgs) NewBranch() string  { return b.newBranch }
func (b BaseArgs) IssueNumber() int   { return b.issueNumber }
func (b BaseArgs) PullNumber() int    { return b.pullNumber }
func (b BaseArgs) CommentID() int64   { return b.commentID }
func (b BaseArgs) Title() string      { return b.title }
func (b BaseArgs) Body() string       { return b.body }
func (b BaseArgs) Sender() string     { return b.sender }

// Review returns a copy of the review comment, or nil for issue requests.
func (b BaseArgs) Review() *Review {
	if b.review == nil {
		return nil
	}
	r := *b.review
	return &r
}

// IsReview reports whether the request addresses a pull request review comment.
func (b BaseArgs) IsReview() bool { return b.review != nil }

// Number is the issue or pull request that receives progress comments.
func (b BaseArgs) Number() int {
	if b.pullNumber > 0 {
		return b.pullNumber
	}
	return b.issueNumber
}

// Token returns the sealed GitHub credential; it is only opened to set the
// Authorization header.
func (b BaseArgs) Token() *securemem.String { return b.token }

// FullName returns "owner/repo".
func (b BaseArgs) FullName() string { return b.owner + "/" + b.repo }

// LogFields returns key/value pairs for logger.WithFields. The token is never included.
func (b BaseArgs) LogFields() []interface{} {
	kv := []interface{}{
		"request_id", b.requestID,
		"repo", b.FullName(),
		"branch", b.newBranch,
		"number", b.Number(),
	}
	if b.isFork {
		kv = append(kv, "fork", true)
	}
	return kv
}

// String implements fmt.Stringer without exposing the token.
func (b BaseArgs) String() string {
	return fmt.Sprintf("%s#%d@%s (%s)", b.FullName(), b.Number(), b.newBranch, b.requestID)
}
