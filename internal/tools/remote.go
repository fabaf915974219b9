package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/autoresolve/internal/github"
	"github.com/codefionn/autoresolve/internal/request"
)

// CodeHost is the code host access the remote tools need.
type CodeHost interface {
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
	GetFileTree(ctx context.Context, owner, repo, ref string) (string, error)
	CommitDiff(ctx context.Context, args request.BaseArgs, path, diff string) (*github.CommitResult, error)
}

var (
	ownerProp = stringProp("The owner of the repository. For example, 'octocat'.")
	repoProp  = stringProp("The name of the repository. For example, 'hello-world'.")
	refProp   = stringProp("The ref (branch) name where the file is located. For example, 'main'.")
	pathProp  = stringProp("The full path to the file within the repository. For example, 'src/app/main.go'.")
)

// FetchFileContentTool reads one file from the remote repository.
type FetchFileContentTool struct {
	host CodeHost
}

func NewFetchFileContentTool(host CodeHost) *FetchFileContentTool {
	return &FetchFileContentTool{host: host}
}

func (t *FetchFileContentTool) Kind() Kind   { return KindFetchFileContent }
func (t *FetchFileContentTool) Name() string { return ToolNameGetRemoteFileContent }

func (t *FetchFileContentTool) Description() string {
	return "Fetches the content of a file from the GitHub remote repository given the owner, repo, file_path, and ref when you need to access the file content to analyze or modify it. Lines are prefixed with their line number."
}

func (t *FetchFileContentTool) Parameters() map[string]interface{} {
	return objectSchema([]string{"owner", "repo", "file_path", "ref"}, map[string]interface{}{
		"owner":     ownerProp,
		"repo":      repoProp,
		"file_path": pathProp,
		"ref":       refProp,
	})
}

func (t *FetchFileContentTool) Execute(ctx context.Context, _ Env, params map[string]interface{}) (string, error) {
	path := strings.TrimPrefix(GetStringParam(params, "file_path", ""), "/")
	ref := GetStringParam(params, "ref", "")

	content, err := t.host.GetFileContent(ctx, GetStringParam(params, "owner", ""), GetStringParam(params, "repo", ""), path, ref)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Opened file: '%s' on '%s' with line numbers for your information.\n\n%s", path, ref, NumberLines(content)), nil
}

// NumberLines prefixes every line with its 1-based number.
func NumberLines(content string) string {
	if content == "" {
		return "(empty file)"
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	width := len(fmt.Sprint(len(lines)))

	var sb strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb, "%*d: %s\n", width, i+1, line)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// FetchFileTreeTool lists every file of a ref.
type FetchFileTreeTool struct {
	host CodeHost
}

func NewFetchFileTreeTool(host CodeHost) *FetchFileTreeTool {
	return &FetchFileTreeTool{host: host}
}

func (t *FetchFileTreeTool) Kind() Kind   { return KindFetchFileTree }
func (t *FetchFileTreeTool) Name() string { return ToolNameGetRemoteFileTree }

func (t *FetchFileTreeTool) Description() string {
	return "Lists the paths of all files in the GitHub remote repository for the given owner, repo, and ref. Use it to discover which files exist before opening them."
}

func (t *FetchFileTreeTool) Parameters() map[string]interface{} {
	return objectSchema([]string{"owner", "repo", "ref"}, map[string]interface{}{
		"owner": ownerProp,
		"repo":  repoProp,
		"ref":   refProp,
	})
}

func (t *FetchFileTreeTool) Execute(ctx context.Context, _ Env, params map[string]interface{}) (string, error) {
	owner := GetStringParam(params, "owner", "")
	repo := GetStringParam(params, "repo", "")
	ref := GetStringParam(params, "ref", "")

	tree, err := t.host.GetFileTree(ctx, owner, repo, ref)
	if err != nil {
		return "", err
	}
	if tree == "" {
		return fmt.Sprintf("The tree of %s/%s@%s is empty.", owner, repo, ref), nil
	}
	return fmt.Sprintf("Files in %s/%s@%s:\n\n%s", owner, repo, ref, tree), nil
}

// CommitChangeTool applies a unified diff to one file on the working branch.
type CommitChangeTool struct {
	host CodeHost
}

func NewCommitChangeTool(host CodeHost) *CommitChangeTool {
	return &CommitChangeTool{host: host}
}

func (t *CommitChangeTool) Kind() Kind   { return KindCommitChange }
func (t *CommitChangeTool) Name() string { return ToolNameCommitChangesToRemote }

func (t *CommitChangeTool) Description() string {
	return "Applies a unified diff to a single file and commits the result to the working branch. Use '--- /dev/null' to create a file and '+++ /dev/null' to delete one. One file per call."
}

func (t *CommitChangeTool) Parameters() map[string]interface{} {
	return objectSchema([]string{"diff", "file_path"}, map[string]interface{}{
		"diff":      stringProp("The unified diff to apply, including '---'/'+++' headers and '@@' hunk headers."),
		"file_path": pathProp,
	})
}

func (t *CommitChangeTool) Execute(ctx context.Context, env Env, params map[string]interface{}) (string, error) {
	path := GetStringParam(params, "file_path", "")
	res, err := t.host.CommitDiff(ctx, env.Base, path, GetStringParam(params, "diff", ""))
	if err != nil {
		return "", err
	}

	action := "Updated"
	switch {
	case res.Created:
		action = "Created"
	case res.Deleted:
		action = "Deleted"
	}
	return fmt.Sprintf("%s %s on branch %s in commit %s (+%d -%d).", action, res.Path, res.Branch, res.CommitSHA, res.Added, res.Removed), nil
}
