package tools

import (
	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/codefionn/autoresolve/internal/search"
)

// Deps are the collaborators of the standard tool set.
type Deps struct {
	Host          CodeHost
	Search        search.Provider
	SearchResults int
	Log           *logger.Logger
}

// NewDefaultRegistry registers every tool kind.
func NewDefaultRegistry(deps Deps) *Registry {
	return NewRegistry(
		NewFetchFileContentTool(deps.Host),
		NewFetchFileTreeTool(deps.Host),
		NewSearchRemoteContentTool(deps.Search, deps.SearchResults),
		NewCommitChangeTool(deps.Host),
		NewUpdateProgressCommentTool(),
		NewExplainDiffModificationTool(deps.Log),
	)
}
