package tools

import (
	"context"

	"github.com/codefionn/autoresolve/internal/search"
)

// SearchRemoteContentTool searches code or the web with the configured provider.
type SearchRemoteContentTool struct {
	provider   search.Provider
	numResults int
}

func NewSearchRemoteContentTool(provider search.Provider, numResults int) *SearchRemoteContentTool {
	return &SearchRemoteContentTool{provider: provider, numResults: numResults}
}

func (t *SearchRemoteContentTool) Kind() Kind   { return KindSearchRemoteContent }
func (t *SearchRemoteContentTool) Name() string { return ToolNameSearchRemoteContent }

func (t *SearchRemoteContentTool) Description() string {
	return "Searches for the given query and returns matching files or pages with short snippets. Use it to find where a symbol is defined or used, or to look up documentation."
}

func (t *SearchRemoteContentTool) Parameters() map[string]interface{} {
	return objectSchema([]string{"query"}, map[string]interface{}{
		"query": stringProp("The search query. For example, a function name or an error message."),
	})
}

func (t *SearchRemoteContentTool) Execute(ctx context.Context, env Env, params map[string]interface{}) (string, error) {
	query := GetStringParam(params, "query", "")
	provider := search.Scope(t.provider, env.Base.Owner(), env.Base.Repo())

	resp, err := provider.Search(ctx, query, t.numResults)
	if err != nil {
		return "", err
	}
	if resp.Query == "" {
		resp.Query = query
	}
	return search.FormatResults(resp), nil
}
