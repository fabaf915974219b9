package agent

import (
	"time"

	"github.com/codefionn/autoresolve/internal/consts"
	"github.com/codefionn/autoresolve/internal/llm"
	"github.com/codefionn/autoresolve/internal/tools"
)

// Phase is a step of the resolution state machine.
type Phase int

const (
	PhasePlanning Phase = iota
	PhaseExplore
	PhaseSearch
	PhaseCommit
	PhaseContinue
	PhaseTerminate
	PhaseDone
)

// String returns the lower-case phase name used in logs and spans
func (p Phase) String() string {
	switch p {
	case PhasePlanning:
		return "planning"
	case PhaseExplore:
		return "explore"
	case PhaseSearch:
		return "search"
	case PhaseCommit:
		return "commit"
	case PhaseContinue:
		return "continue"
	case PhaseTerminate:
		return "terminate"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// LoopState is the request-scoped state of one resolution. It is owned by a
// single Run call and never shared.
type LoopState struct {
	Messages      []*llm.Message
	PreviousCalls map[string]struct{}
	RetryCount    int
	Progress      int
	Iteration     int
	Phase         Phase
	StartedAt     time.Time
	TokenInput    int
	TokenOutput   int
}

func newLoopState(now time.Time) *LoopState {
	return &LoopState{
		PreviousCalls: make(map[string]struct{}),
		Phase:         PhasePlanning,
		StartedAt:     now,
	}
}

func (s *LoopState) append(msgs ...*llm.Message) {
	s.Messages = append(s.Messages, msgs...)
}

// advance moves progress one step, never past the ceiling.
func (s *LoopState) advance() {
	s.Progress = min(s.Progress+consts.ProgressStep, consts.ProgressCeiling)
}

func (s *LoopState) addUsage(u llm.Usage) {
	s.TokenInput += u.InputTokens
	s.TokenOutput += u.OutputTokens
}

// PhaseResult records what one EXPLORE/SEARCH/COMMIT round-trip did.
type PhaseResult struct {
	Phase Phase
	// Tool is empty when the model answered without calling a tool.
	Tool    string
	Args    string
	Status  tools.Status
	Effect  tools.Effect
	Usage   llm.Usage
	Content string
}

// Invoked reports whether the model requested a tool in this phase.
func (r PhaseResult) Invoked() bool { return r.Tool != "" }

// iterationFlags are the effect flags collected across one iteration.
type iterationFlags struct {
	explored  bool
	searched  bool
	committed bool
	// calls counts phases in which the model requested a tool.
	calls int
}

func (f *iterationFlags) record(r PhaseResult) {
	if r.Invoked() {
		f.calls++
	}
	switch r.Effect {
	case tools.EffectExplored:
		f.explored = true
	case tools.EffectSearched:
		f.searched = true
	case tools.EffectCommitted:
		f.committed = true
	}
}
