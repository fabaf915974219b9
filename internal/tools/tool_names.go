package tools

const (
	ToolNameGetRemoteFileContent   = "get_remote_file_content"
	ToolNameGetRemoteFileTree      = "get_remote_file_tree"
	ToolNameSearchRemoteContent    = "search_remote_content"
	ToolNameCommitChangesToRemote  = "commit_changes_to_remote_branch"
	ToolNameUpdateProgressComment  = "update_progress_comment"
	ToolNameReasonForModifyingDiff = "reason_for_modifying_diff"
)

// Kind is the closed set of tools the resolver can offer the model.
type Kind int

const (
	KindFetchFileContent Kind = iota
	KindFetchFileTree
	KindSearchRemoteContent
	KindCommitChange
	KindUpdateProgressComment
	KindExplainDiffModification
)

// String returns the tool name the model calls.
func (k Kind) String() string {
	switch k {
	case KindFetchFileContent:
		return ToolNameGetRemoteFileContent
	case KindFetchFileTree:
		return ToolNameGetRemoteFileTree
	case KindSearchRemoteContent:
		return ToolNameSearchRemoteContent
	case KindCommitChange:
		return ToolNameCommitChangesToRemote
	case KindUpdateProgressComment:
		return ToolNameUpdateProgressComment
	case KindExplainDiffModification:
		return ToolNameReasonForModifyingDiff
	default:
		return "unknown"
	}
}

// Effect is what a successful execution tells the loop about the phase.
type Effect int

const (
	EffectNone Effect = iota
	EffectExplored
	EffectSearched
	EffectCommitted
)

func (e Effect) String() string {
	switch e {
	case EffectExplored:
		return "explored"
	case EffectSearched:
		return "searched"
	case EffectCommitted:
		return "committed"
	default:
		return "none"
	}
}

// Effect returns the flag a successful execution of k sets.
func (k Kind) Effect() Effect {
	switch k {
	case KindFetchFileContent, KindFetchFileTree:
		return EffectExplored
	case KindSearchRemoteContent:
		return EffectSearched
	case KindCommitChange:
		return EffectCommitted
	default:
		return EffectNone
	}
}
