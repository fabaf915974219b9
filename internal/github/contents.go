package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/codefionn/autoresolve/internal/patch"
	"github.com/codefionn/autoresolve/internal/request"
)

// maxTreeEntries bounds the listing returned to the model.
const maxTreeEntries = 2000

type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
	Path     string `json:"path"`
}

// File is a decoded repository file.
type File struct {
	Path    string
	SHA     string
	Content string
}

// GetFile fetches a file at ref.
func (c *Client) GetFile(ctx context.Context, owner, repo, path, ref string) (*File, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", urlPathEscape(owner), urlPathEscape(repo), escapePath(path))
	if ref != "" {
		endpoint += "?ref=" + url.QueryEscape(ref)
	}

	var body json.RawMessage
	if err := c.call(ctx, "GET", endpoint, nil, &body); err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}

	var raw contentResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if raw.Type != "" && raw.Type != "file" {
		return nil, fmt.Errorf("%s is a %s, not a file", path, raw.Type)
	}

	content := raw.Content
	if raw.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(raw.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		content = string(decoded)
	}

	return &File{Path: raw.Path, SHA: raw.SHA, Content: content}, nil
}

// GetFileContent returns the file content at ref.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	f, err := c.GetFile(ctx, owner, repo, path, ref)
	if err != nil {
		return "", err
	}
	return f.Content, nil
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// GetFileTree returns the newline separated list of file paths at ref.
func (c *Client) GetFileTree(ctx context.Context, owner, repo, ref string) (string, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", urlPathEscape(owner), urlPathEscape(repo), escapePath(ref))

	var raw treeResponse
	if err := c.call(ctx, "GET", endpoint, nil, &raw); err != nil {
		return "", err
	}

	paths := make([]string, 0, len(raw.Tree))
	for _, entry := range raw.Tree {
		if entry.Type == "blob" {
			paths = append(paths, entry.Path)
		}
	}
	sort.Strings(paths)

	truncated := raw.Truncated
	if len(paths) > maxTreeEntries {
		paths = paths[:maxTreeEntries]
		truncated = true
	}

	listing := strings.Join(paths, "\n")
	if truncated {
		listing += "\n... (listing truncated)"
	}
	return listing, nil
}

// CommitResult describes a commit created from a diff.
type CommitResult struct {
	Path      string
	Branch    string
	CommitSHA string
	Created   bool
	Deleted   bool
	Added     int
	Removed   int
}

type putContentRequest struct {
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

type commitResponse struct {
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// CommitDiff applies diff to path on the request's new branch and commits the result.
// A missing file is treated as empty so diffs can create files.
func (c *Client) CommitDiff(ctx context.Context, args request.BaseArgs, path, diff string) (*CommitResult, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil, errors.New("file path is required")
	}

	branch := args.NewBranch()
	current, err := c.GetFile(ctx, args.Owner(), args.Repo(), path, branch)
	switch {
	case errors.Is(err, ErrNotFound):
		current = &File{Path: path}
	case err != nil:
		return nil, err
	}

	applied, err := patch.Apply(current.Content, diff)
	if err != nil {
		return nil, fmt.Errorf("failed to apply diff to %s: %w", path, err)
	}

	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", urlPathEscape(args.Owner()), urlPathEscape(args.Repo()), escapePath(path))
	result := &CommitResult{
		Path:    path,
		Branch:  branch,
		Created: current.SHA == "",
		Deleted: applied.Deleted,
		Added:   applied.Added,
		Removed: applied.Removed,
	}

	var resp commitResponse
	if applied.Deleted {
		if current.SHA == "" {
			return nil, fmt.Errorf("cannot delete %s: file does not exist on %s", path, branch)
		}
		body := putContentRequest{
			Message: fmt.Sprintf("Delete %s", path),
			SHA:     current.SHA,
			Branch:  branch,
		}
		if err := c.call(ctx, "DELETE", endpoint, body, &resp); err != nil {
			return nil, err
		}
		result.CommitSHA = resp.Commit.SHA
		return result, nil
	}

	verb := "Update"
	if result.Created {
		verb = "Create"
	}
	body := putContentRequest{
		Message: fmt.Sprintf("%s %s", verb, path),
		Content: base64.StdEncoding.EncodeToString([]byte(applied.Content)),
		SHA:     current.SHA,
		Branch:  branch,
	}
	if err := c.call(ctx, "PUT", endpoint, body, &resp); err != nil {
		return nil, err
	}
	result.CommitSHA = resp.Commit.SHA
	return result, nil
}
