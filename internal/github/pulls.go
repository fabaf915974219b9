package github

import (
	"context"
	"fmt"
)

const pullFilesPerPage = 100

// maxPullFilePages bounds pagination; GitHub itself stops listing at 3000 files.
const maxPullFilePages = 30

// PullFile is one entry of a pull request's changed files.
type PullFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
}

// Removed reports whether the pull request deletes the file.
func (f PullFile) Removed() bool { return f.Status == "removed" }

// ListPullRequestFiles lists the files changed by a pull request, following
// pagination until a short page is returned.
func (c *Client) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]PullFile, error) {
	var files []PullFile
	for page := 1; page <= maxPullFilePages; page++ {
		endpoint := fmt.Sprintf("/repos/%s/%s/pulls/%d/files?per_page=%d&page=%d",
			urlPathEscape(owner), urlPathEscape(repo), number, pullFilesPerPage, page)

		var batch []PullFile
		if err := c.call(ctx, "GET", endpoint, nil, &batch); err != nil {
			return nil, err
		}
		files = append(files, batch...)
		if len(batch) < pullFilesPerPage {
			break
		}
	}
	return files, nil
}
