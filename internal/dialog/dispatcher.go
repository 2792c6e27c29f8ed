// Package dialog composes the skill registry, the session store, and
// the per-skill state machines into the per-turn decision: continue an
// active exchange, start a new one, or fall through to one-shot
// command handling.
package dialog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"opendialog/internal/domain"
	"opendialog/internal/metrics"
	"opendialog/internal/skill"

	"github.com/google/uuid"
)

// Dispatcher is the engine's entry point. It holds no session state of
// its own; every side effect goes through the session store.
type Dispatcher struct {
	registry *skill.Registry
	store    domain.SessionStore
	logger   *slog.Logger

	// userMu serializes turns per user so a second utterance never
	// runs before the first one's store effects are visible.
	mu     sync.Mutex
	userMu map[string]*sync.Mutex
}

func NewDispatcher(registry *skill.Registry, store domain.SessionStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		store:    store,
		logger:   logger,
		userMu:   make(map[string]*sync.Mutex),
	}
}

// Process runs one turn. It returns nil when no session is active and
// no skill claims the intent; the caller must then fall back to
// one-shot command handling.
func (d *Dispatcher) Process(ctx context.Context, in domain.TurnInput) (*domain.TurnOutput, error) {
	unlock := d.lockUser(in.UserID)
	defer unlock()

	start := time.Now()
	defer func() {
		metrics.TurnLatency.Observe(time.Since(start).Seconds())
	}()
	metrics.TurnsTotal.Inc()

	sess, err := d.store.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if sess != nil {
		out, handled, err := d.resume(ctx, sess, in)
		if err != nil || handled {
			return out, err
		}
		// The session was corrupted and evicted; fall through to a
		// fresh match attempt with the same input.
	}

	return d.start(ctx, in)
}

// resume continues an active session. handled=false means the session
// record was unusable and the turn should be retried as fresh.
func (d *Dispatcher) resume(ctx context.Context, sess *domain.Session, in domain.TurnInput) (*domain.TurnOutput, bool, error) {
	def, err := d.registry.Lookup(sess.Skill)
	if err != nil {
		// Unregistered skill in a stored session: favor availability,
		// drop the record, start over.
		d.logger.Warn("session references unknown skill, evicting",
			"user", sess.UserID, "skill", sess.Skill)
		return nil, false, d.evictCorrupted(ctx, sess.UserID)
	}
	if !knowsState(def.Machine, sess.State) {
		d.logger.Warn("session in unknown state, evicting",
			"user", sess.UserID, "skill", sess.Skill, "state", sess.State)
		return nil, false, d.evictCorrupted(ctx, sess.UserID)
	}

	res := def.Machine.Transition(sess.State, sess.Context.Clone(), sess.Retries, in)
	out, err := d.settle(ctx, sess.UserID, def.Name, res)
	return out, true, err
}

// start matches the intent against the registry and opens a session.
func (d *Dispatcher) start(ctx context.Context, in domain.TurnInput) (*domain.TurnOutput, error) {
	def := d.registry.Match(in.Intent)
	if def == nil {
		metrics.FallbackTotal.Inc()
		return nil, nil
	}

	seed := seedContext(def, in)
	sess := domain.Session{
		ID:      uuid.NewString(),
		UserID:  in.UserID,
		Skill:   def.Name,
		State:   def.Machine.Initial(),
		Context: seed,
	}
	if err := d.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	metrics.SkillStarts.Inc()
	metrics.ActiveSessions.Inc()
	d.logger.Info("skill started",
		"user", in.UserID, "skill", def.Name, "session", sess.ID, "intent", in.Intent.Name)

	// Run one transition immediately so the user gets the first
	// prompt in the same turn that triggered the skill.
	res := def.Machine.Transition(sess.State, seed, 0, in)
	return d.settle(ctx, in.UserID, def.Name, res)
}

// settle applies a transition result to the store and shapes the turn
// output. Completed or cancelled exchanges evict the session.
func (d *Dispatcher) settle(ctx context.Context, userID, skillName string, res domain.TransitionResult) (*domain.TurnOutput, error) {
	if res.Complete {
		if err := d.store.Remove(ctx, userID); err != nil {
			return nil, err
		}
		metrics.ActiveSessions.Dec()
		if res.State == domain.StateCancelled {
			metrics.SkillCancellations.Inc()
		} else {
			metrics.SkillCompletions.Inc()
		}
		d.logger.Info("skill finished",
			"user", userID, "skill", skillName, "state", res.State)
	} else {
		if err := d.store.Update(ctx, userID, res.State, res.Context, res.Retries); err != nil {
			return nil, err
		}
	}

	return &domain.TurnOutput{
		Skill:    skillName,
		State:    res.State,
		Reply:    res.Reply,
		Context:  res.Context.Clone(),
		Complete: res.Complete,
	}, nil
}

func (d *Dispatcher) evictCorrupted(ctx context.Context, userID string) error {
	if err := d.store.Remove(ctx, userID); err != nil {
		return err
	}
	metrics.ActiveSessions.Dec()
	return nil
}

// seedContext copies the entity values the skill declares it reads
// from the triggering utterance into the initial context.
func seedContext(def *domain.SkillDefinition, in domain.TurnInput) domain.Context {
	c := make(domain.Context)
	for _, name := range def.Seed {
		if v, ok := in.Intent.Entities[name]; ok && v != "" {
			c[name] = v
		}
	}
	return c
}

func knowsState(m domain.Transitioner, st domain.State) bool {
	if st.Terminal() {
		return true
	}
	for _, s := range m.States() {
		if s == st {
			return true
		}
	}
	return false
}

func (d *Dispatcher) lockUser(userID string) func() {
	d.mu.Lock()
	mu, ok := d.userMu[userID]
	if !ok {
		mu = &sync.Mutex{}
		d.userMu[userID] = mu
	}
	d.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}
