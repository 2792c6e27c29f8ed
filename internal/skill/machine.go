// Package skill provides the multi-turn dialogue engine: the skill
// registry, the transition-table state machine, and the built-in
// skills.
package skill

import (
	"fmt"
	"sort"
	"strings"

	"opendialog/internal/domain"
)

const defaultMaxRetries = 3

// Branch is one labeled edge out of a choice state. When taken, Value
// is stored into the state's field (if any) and Clear resets the named
// context fields before moving on.
type Branch struct {
	Next  domain.State
	Value string
	Clear []string
}

// StateSpec is one row of a skill's transition table.
//
// A state either captures free text into Field and advances to Next,
// or classifies the input and follows one of Branches. States with
// neither a field nor branches are pass-through: they advance to Next
// on any input. Prompt must be a pure function of the context.
type StateSpec struct {
	Prompt   func(c domain.Context) string
	Field    string
	Optional bool // empty or declined input is accepted without capturing
	// Capture extracts the value for Field. Nil means: the entity
	// named like Field if the parser supplied one, else the trimmed
	// utterance.
	Capture func(in domain.TurnInput) (string, bool)
	Next    domain.State
	// Branches maps input classes to edges. Classify picks the class;
	// nil means affirm/deny classification.
	Branches map[string]Branch
	Classify func(in domain.TurnInput) string
}

// MachineConfig assembles a Machine.
type MachineConfig struct {
	Initial  domain.State
	States   map[domain.State]StateSpec
	Required []string
	Optional []string
	// MaxRetries bounds consecutive unrecognized inputs in one state
	// before the skill gives up and cancels. Zero means the default.
	MaxRetries int
	// Reprompt is prefixed to a state's prompt when input was not
	// understood.
	Reprompt string
	// CancelReply is sent when the user cancels explicitly.
	CancelReply string
	// GiveUpReply is sent when the retry bound is exhausted.
	GiveUpReply string
}

// Machine is an explicit transition table over a fixed state set. It
// implements domain.Transitioner and holds no mutable state, so a
// fixed input sequence always replays to the same outputs.
type Machine struct {
	initial     domain.State
	states      map[domain.State]StateSpec
	order       []domain.State
	required    []string
	optional    []string
	maxRetries  int
	reprompt    string
	cancelReply string
	giveUpReply string
}

// NewMachine validates the table and builds the machine. Every edge
// target must be a defined state or a shared terminal, and every
// non-terminal state needs a prompt so re-prompting is always
// possible.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.Initial == "" {
		return nil, fmt.Errorf("machine: no initial state")
	}
	if _, ok := cfg.States[cfg.Initial]; !ok {
		return nil, fmt.Errorf("machine: initial state %q not defined", cfg.Initial)
	}
	for name, spec := range cfg.States {
		if name.Terminal() {
			continue
		}
		if spec.Prompt == nil {
			return nil, fmt.Errorf("machine: state %q has no prompt", name)
		}
		if len(spec.Branches) == 0 && spec.Next == "" {
			return nil, fmt.Errorf("machine: state %q has no outgoing edge", name)
		}
		if spec.Next != "" {
			if err := checkTarget(cfg.States, name, spec.Next); err != nil {
				return nil, err
			}
		}
		for class, b := range spec.Branches {
			if b.Next == "" {
				return nil, fmt.Errorf("machine: state %q branch %q has no target", name, class)
			}
			if err := checkTarget(cfg.States, name, b.Next); err != nil {
				return nil, err
			}
		}
	}

	order := make([]domain.State, 0, len(cfg.States)+2)
	for name := range cfg.States {
		order = append(order, name)
	}
	for _, t := range []domain.State{domain.StateComplete, domain.StateCancelled} {
		if _, ok := cfg.States[t]; !ok {
			order = append(order, t)
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	cancelReply := cfg.CancelReply
	if cancelReply == "" {
		cancelReply = "Okay, cancelled."
	}
	giveUpReply := cfg.GiveUpReply
	if giveUpReply == "" {
		giveUpReply = "I still didn't understand, so let's stop here."
	}
	reprompt := cfg.Reprompt
	if reprompt == "" {
		reprompt = "Sorry, I didn't catch that. "
	}

	return &Machine{
		initial:     cfg.Initial,
		states:      cfg.States,
		order:       order,
		required:    cfg.Required,
		optional:    cfg.Optional,
		maxRetries:  maxRetries,
		reprompt:    reprompt,
		cancelReply: cancelReply,
		giveUpReply: giveUpReply,
	}, nil
}

func checkTarget(states map[domain.State]StateSpec, from, to domain.State) error {
	if to.Terminal() {
		return nil
	}
	if _, ok := states[to]; !ok {
		return fmt.Errorf("machine: state %q targets undefined state %q", from, to)
	}
	return nil
}

// Initial returns the entry state.
func (m *Machine) Initial() domain.State { return m.initial }

// States returns every state the machine can be in, terminals
// included, in stable order.
func (m *Machine) States() []domain.State { return m.order }

// Required returns the context fields that must be captured before the
// machine may complete.
func (m *Machine) Required() []string { return m.required }

// Knows reports whether st belongs to this machine's state set.
func (m *Machine) Knows(st domain.State) bool {
	if st.Terminal() {
		return true
	}
	_, ok := m.states[st]
	return ok
}

// Transition runs one step of the table. It never blocks and never
// touches anything outside its arguments.
func (m *Machine) Transition(st domain.State, c domain.Context, retries int, in domain.TurnInput) domain.TransitionResult {
	if st.Terminal() {
		// A finished session should have been evicted already.
		return domain.TransitionResult{State: st, Context: c, Complete: true}
	}

	if IsCancel(in) {
		return m.cancel(c, m.cancelReply)
	}

	spec, ok := m.states[st]
	if !ok {
		// Unknown state is the dispatcher's problem; cancel cleanly
		// rather than loop.
		return m.cancel(c, m.cancelReply)
	}

	var next domain.State
	switch {
	case len(spec.Branches) > 0:
		class := m.classify(spec, in)
		b, found := spec.Branches[class]
		if !found {
			return m.unrecognized(st, spec, c, retries)
		}
		for _, f := range b.Clear {
			delete(c, f)
		}
		if spec.Field != "" && b.Value != "" {
			m.capture(c, spec.Field, b.Value)
		}
		next = b.Next

	case spec.Field != "":
		val, recognized := m.captureInput(spec, in)
		if !recognized {
			return m.unrecognized(st, spec, c, retries)
		}
		if val != "" {
			m.capture(c, spec.Field, val)
		}
		next = spec.Next

	default:
		// Pass-through state: any input advances.
		next = spec.Next
	}

	next = m.skipSatisfied(next, c)

	switch next {
	case domain.StateComplete:
		if missing := m.missingRequired(c); len(missing) > 0 {
			// Table bug or cleared field: keep asking instead of
			// completing with holes.
			return m.unrecognized(st, spec, c, retries)
		}
		return domain.TransitionResult{
			State:    domain.StateComplete,
			Context:  m.packageContext(c),
			Reply:    m.prompt(domain.StateComplete, c),
			Complete: true,
		}
	case domain.StateCancelled:
		return m.cancel(c, m.prompt(domain.StateCancelled, c))
	}

	return domain.TransitionResult{
		State:   next,
		Context: c,
		Reply:   m.prompt(next, c),
	}
}

// skipSatisfied hops over capture states whose field is already in the
// context, e.g. when the triggering utterance seeded an entity.
func (m *Machine) skipSatisfied(st domain.State, c domain.Context) domain.State {
	for !st.Terminal() {
		spec, ok := m.states[st]
		if !ok {
			return st
		}
		if spec.Field == "" || len(spec.Branches) > 0 {
			return st
		}
		if _, have := c[spec.Field]; !have {
			return st
		}
		st = spec.Next
	}
	return st
}

func (m *Machine) classify(spec StateSpec, in domain.TurnInput) string {
	if spec.Classify != nil {
		return spec.Classify(in)
	}
	switch {
	case IsAffirm(in):
		return ClassAffirm
	case IsDeny(in):
		return ClassDeny
	default:
		return ""
	}
}

func (m *Machine) captureInput(spec StateSpec, in domain.TurnInput) (string, bool) {
	if spec.Capture != nil {
		return spec.Capture(in)
	}
	if v, ok := in.Intent.Entities[spec.Field]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}
	text := strings.TrimSpace(in.Utterance)
	if spec.Optional && isDeclined(text) {
		return "", true
	}
	if text == "" {
		return "", false
	}
	return text, true
}

// capture is write-once: an already captured field keeps its value
// unless a branch explicitly cleared it first.
func (m *Machine) capture(c domain.Context, field, value string) {
	if _, exists := c[field]; exists {
		return
	}
	c[field] = value
}

func (m *Machine) unrecognized(st domain.State, spec StateSpec, c domain.Context, retries int) domain.TransitionResult {
	retries++
	if retries >= m.maxRetries {
		return m.cancel(c, m.giveUpReply)
	}
	return domain.TransitionResult{
		State:   st,
		Context: c,
		Reply:   m.reprompt + spec.Prompt(c),
		Retries: retries,
	}
}

func (m *Machine) cancel(c domain.Context, reply string) domain.TransitionResult {
	return domain.TransitionResult{
		State:    domain.StateCancelled,
		Context:  c,
		Reply:    reply,
		Complete: true,
	}
}

func (m *Machine) prompt(st domain.State, c domain.Context) string {
	if spec, ok := m.states[st]; ok && spec.Prompt != nil {
		return spec.Prompt(c)
	}
	if st == domain.StateCancelled {
		return m.cancelReply
	}
	return ""
}

// missingRequired lists declared required fields absent from c.
func (m *Machine) missingRequired(c domain.Context) []string {
	var missing []string
	for _, f := range m.required {
		if _, ok := c[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// packageContext trims the final context down to the declared required
// and optional fields, nothing more.
func (m *Machine) packageContext(c domain.Context) domain.Context {
	out := make(domain.Context, len(m.required)+len(m.optional))
	for _, f := range m.required {
		if v, ok := c[f]; ok {
			out[f] = v
		}
	}
	for _, f := range m.optional {
		if v, ok := c[f]; ok {
			out[f] = v
		}
	}
	return out
}
