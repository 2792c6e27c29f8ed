package domain

// State identifies one state of a skill's state machine.
type State string

// Terminal states shared by every skill.
const (
	StateComplete  State = "COMPLETE"
	StateCancelled State = "CANCELLED"
)

// Terminal reports whether s ends the exchange.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateCancelled
}

// Context is the per-session mapping of captured field values.
type Context map[string]string

// Clone returns an independent copy of the context.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Trigger decides whether a skill should start for a parsed intent.
// Intents match the intent name exactly; Pattern is a regex over the
// intent name for families of related intents.
type Trigger struct {
	Intents []string `json:"intents,omitempty" yaml:"intents,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// TransitionResult is the outcome of one state-machine step.
type TransitionResult struct {
	State    State
	Context  Context
	Reply    string
	Complete bool
	Retries  int // consecutive unrecognized inputs in the resulting state
}

// Transitioner is the pure per-skill state machine: no I/O, no hidden
// state, fully replayable offline.
type Transitioner interface {
	Initial() State
	States() []State
	Transition(state State, c Context, retries int, in TurnInput) TransitionResult
}

// SkillDefinition describes one multi-turn exchange. Immutable once
// registered; the registry holds the only owning reference.
type SkillDefinition struct {
	Name        string
	Description string
	Trigger     Trigger
	Required    []string // context fields that must be captured before COMPLETE
	Optional    []string // context fields that may be captured
	Seed        []string // entity names copied into context when the skill starts
	Machine     Transitioner
}
