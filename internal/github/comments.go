package github

import (
	"context"
	"fmt"
)

type commentRequest struct {
	Body string `json:"body"`
}

type commentResponse struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
}

// CreateComment posts a comment on an issue or pull request and returns its ID.
func (c *Client) CreateComment(ctx context.Context, owner, repo string, number int, body string) (int64, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", urlPathEscape(owner), urlPathEscape(repo), number)

	var resp commentResponse
	if err := c.call(ctx, "POST", endpoint, commentRequest{Body: body}, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// UpdateComment replaces the body of an existing issue comment.
func (c *Client) UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) error {
	endpoint := fmt.Sprintf("/repos/%s/%s/issues/comments/%d", urlPathEscape(owner), urlPathEscape(repo), commentID)
	return c.call(ctx, "PATCH", endpoint, commentRequest{Body: body}, nil)
}
