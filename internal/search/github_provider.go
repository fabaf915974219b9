package search

import (
	"context"
	"errors"
	"strings"

	"github.com/codefionn/autoresolve/internal/github"
)

// CodeSearcher is the part of the GitHub client used for code search.
type CodeSearcher interface {
	SearchCode(ctx context.Context, owner, repo, query string, perPage int) ([]github.CodeHit, error)
}

// GitHubProvider searches code in one repository. The repository is bound per
// resolution with ForRepo.
type GitHubProvider struct {
	code  CodeSearcher
	owner string
	repo  string
}

// NewGitHubProvider creates an unbound GitHub code search provider
func NewGitHubProvider(code CodeSearcher) *GitHubProvider {
	return &GitHubProvider{code: code}
}

// ForRepo returns a copy of the provider scoped to owner/repo.
func (g *GitHubProvider) ForRepo(owner, repo string) *GitHubProvider {
	return &GitHubProvider{code: g.code, owner: owner, repo: repo}
}

// Search runs a code search restricted to the bound repository
func (g *GitHubProvider) Search(ctx context.Context, query string, numResults int) (*Response, error) {
	if g.owner == "" || g.repo == "" {
		return nil, errors.New("github search provider is not bound to a repository")
	}

	hits, err := g.code.SearchCode(ctx, g.owner, g.repo, query, numResults)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Title:   hit.Path,
			URL:     hit.HTMLURL,
			Snippet: strings.Join(hit.Fragments, "\n...\n"),
		})
	}
	return &Response{Results: results, Query: query}, nil
}

// Name returns the provider name
func (g *GitHubProvider) Name() string {
	return "github"
}

// Validate checks if the provider is properly configured
func (g *GitHubProvider) Validate() error {
	if g.code == nil {
		return errors.New("github search provider needs a code search client")
	}
	return nil
}

// Scope binds repository-scoped providers to owner/repo and returns other
// providers unchanged.
func Scope(p Provider, owner, repo string) Provider {
	if gh, ok := p.(*GitHubProvider); ok {
		return gh.ForRepo(owner, repo)
	}
	return p
}
