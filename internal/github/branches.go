package github

import (
	"context"
	"errors"
	"fmt"
)

type gitRef struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

type createRefRequest struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// BranchSHA returns the head commit of branch.
func (c *Client) BranchSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", urlPathEscape(owner), urlPathEscape(repo), escapePath(branch))

	var ref gitRef
	if err := c.call(ctx, "GET", endpoint, nil, &ref); err != nil {
		return "", err
	}
	return ref.Object.SHA, nil
}

// EnsureBranch creates branch from the head of base unless it already exists.
// It reports whether the branch was created.
func (c *Client) EnsureBranch(ctx context.Context, owner, repo, base, branch string) (bool, error) {
	if _, err := c.BranchSHA(ctx, owner, repo, branch); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	sha, err := c.BranchSHA(ctx, owner, repo, base)
	if err != nil {
		return false, fmt.Errorf("failed to resolve base branch %s: %w", base, err)
	}

	endpoint := fmt.Sprintf("/repos/%s/%s/git/refs", urlPathEscape(owner), urlPathEscape(repo))
	if err := c.call(ctx, "POST", endpoint, createRefRequest{Ref: "refs/heads/" + branch, SHA: sha}, nil); err != nil {
		return false, fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	return true, nil
}
