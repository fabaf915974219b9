package agent

import (
	"fmt"
	"strings"

	"github.com/codefionn/autoresolve/internal/request"
	"github.com/codefionn/autoresolve/internal/tools"
)

const systemPrompt = `You are a software engineer resolving a request on a GitHub repository.
You cannot run code. You work only through the functions you are given, and
you may call at most one function per reply.

The first user message is a JSON object describing the request and the
repository file tree. The work happens in rounds:
- explore: open files you need to read before changing anything
- search: look up code or documentation you are unsure about
- commit: commit one file change as a unified diff

Rules:
- Never call a function again with the same arguments; the result is already in the conversation.
- Diffs must apply to the current content of the file on the working branch. Read the file first.
- Keep changes minimal and focused on the request.
- When the request is resolved, reply without calling a function.`

// phaseSpec describes one round-trip of an iteration.
type phaseSpec struct {
	phase       Phase
	kinds       []tools.Kind
	instruction string
}

var iterationPhases = []phaseSpec{
	{
		phase: PhaseExplore,
		kinds: []tools.Kind{tools.KindFetchFileContent, tools.KindFetchFileTree},
		instruction: "Current round: explore. If you need to read a file you have not opened yet, call a function to fetch it. " +
			"Otherwise reply briefly without calling a function.",
	},
	{
		phase: PhaseSearch,
		kinds: []tools.Kind{tools.KindSearchRemoteContent},
		instruction: "Current round: search. If something is unclear, such as where a symbol is defined or how a library behaves, search for it. " +
			"Otherwise reply briefly without calling a function.",
	},
	{
		phase: PhaseCommit,
		kinds: []tools.Kind{tools.KindCommitChange, tools.KindUpdateProgressComment, tools.KindExplainDiffModification},
		instruction: "Current round: commit. If a change is needed, commit it as a unified diff for one file. " +
			"If the request is fully resolved, reply without calling a function.",
	},
}

// systemPromptFor appends the request coordinates and the phase instruction.
func systemPromptFor(base request.BaseArgs, spec phaseSpec) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	fmt.Fprintf(&sb, "\n\nRepository: %s (owner %q, repo %q). Read from ref %q. Commits go to branch %q.",
		base.FullName(), base.Owner(), base.Repo(), base.NewBranch(), base.NewBranch())
	sb.WriteString("\n\n")
	sb.WriteString(spec.instruction)
	return sb.String()
}
