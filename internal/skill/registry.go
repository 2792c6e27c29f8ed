package skill

import (
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"opendialog/internal/domain"
)

// Registry holds the registered skill definitions and matches incoming
// intents against their triggers. Registration happens once at
// startup; after that the registry is read-mostly.
type Registry struct {
	mu            sync.RWMutex
	skills        []domain.SkillDefinition
	byName        map[string]int
	compiledRegex map[string]*regexp.Regexp // compiled trigger patterns by skill name
	logger        *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byName:        make(map[string]int),
		compiledRegex: make(map[string]*regexp.Regexp),
		logger:        logger,
	}
}

// Register adds a skill definition and pre-compiles its trigger
// pattern. A duplicate name fails with domain.ErrDuplicateSkill:
// that is a configuration error, fatal at startup.
func (r *Registry) Register(def domain.SkillDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("register skill: empty name")
	}
	if def.Machine == nil {
		return fmt.Errorf("register skill %q: no state machine", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[def.Name]; exists {
		return fmt.Errorf("register skill %q: %w", def.Name, domain.ErrDuplicateSkill)
	}

	if def.Trigger.Pattern != "" {
		re, err := regexp.Compile(def.Trigger.Pattern)
		if err != nil {
			return fmt.Errorf("register skill %q: bad trigger pattern: %w", def.Name, err)
		}
		r.compiledRegex[def.Name] = re
	}

	if overlap := r.overlapping(def); overlap != "" {
		r.logger.Warn("skill triggers overlap, first registration wins",
			"skill", def.Name, "overlaps", overlap)
	}

	r.byName[def.Name] = len(r.skills)
	r.skills = append(r.skills, def)
	r.logger.Info("skill registered", "name", def.Name, "intents", def.Trigger.Intents)
	return nil
}

// Match evaluates triggers in registration order and returns the first
// definition claiming the intent, or nil. First-match-wins is the
// documented tie-break for overlapping triggers.
func (r *Registry) Match(intent domain.Intent) *domain.SkillDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.skills {
		def := &r.skills[i]
		if r.triggered(def, intent.Name) {
			return def
		}
	}
	return nil
}

// Lookup returns the definition by name, used when resuming an active
// session.
func (r *Registry) Lookup(name string) (*domain.SkillDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("lookup skill %q: %w", name, domain.ErrSkillNotFound)
	}
	return &r.skills[idx], nil
}

// List returns a copy of all registered definitions.
func (r *Registry) List() []domain.SkillDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.SkillDefinition, len(r.skills))
	copy(out, r.skills)
	return out
}

func (r *Registry) triggered(def *domain.SkillDefinition, intentName string) bool {
	for _, name := range def.Trigger.Intents {
		if name == intentName {
			return true
		}
	}
	if re, ok := r.compiledRegex[def.Name]; ok && intentName != "" {
		return re.MatchString(intentName)
	}
	return false
}

// overlapping reports the first already registered skill that claims
// one of def's trigger intents. Caller holds the lock.
func (r *Registry) overlapping(def domain.SkillDefinition) string {
	for i := range r.skills {
		for _, name := range def.Trigger.Intents {
			if r.triggered(&r.skills[i], name) {
				return r.skills[i].Name
			}
		}
	}
	return ""
}
