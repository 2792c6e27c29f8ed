// Package session implements the per-user session stores backing the
// dialogue engine: a process-local map store and a SQLite store for
// deployments that must survive restarts.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"opendialog/internal/domain"
)

// DefaultTTL is the idle window after which an abandoned session is
// considered expired. Deployments override it through configuration.
const DefaultTTL = 10 * time.Minute

// MemoryStore keeps sessions in a map guarded by one mutex. Contention
// is a handful of map operations per turn, so a single lock is cheap
// at assistant scale; per-user turn ordering is the dispatcher's job.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the user's live session. Expiry is checked lazily here:
// an idled-out session is evicted and reported as absent.
func (s *MemoryStore) Get(ctx context.Context, userID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	if s.expired(sess) {
		delete(s.sessions, userID)
		s.logger.Debug("session expired", "user", userID, "skill", sess.Skill)
		return nil, nil
	}
	cp := *sess
	cp.Context = sess.Context.Clone()
	return &cp, nil
}

func (s *MemoryStore) Create(ctx context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[sess.UserID]; ok {
		if !s.expired(existing) {
			return domain.ErrSessionActive
		}
		delete(s.sessions, sess.UserID)
	}

	now := s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	sess.Context = sess.Context.Clone()
	s.sessions[sess.UserID] = &sess
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, userID string, state domain.State, c domain.Context, retries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok || s.expired(sess) {
		delete(s.sessions, userID)
		return domain.ErrNoSession
	}

	sess.State = state
	sess.Context = c.Clone()
	sess.Retries = retries
	sess.UpdatedAt = s.now()
	return nil
}

// Remove evicts unconditionally; removing an absent session is fine.
func (s *MemoryStore) Remove(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len reports the number of stored sessions, expired ones included
// until their next access or a sweep.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts expired sessions every interval until ctx is done.
// Lazy expiry alone is enough for correctness; the sweep bounds memory
// when many users abandon sessions.
func (s *MemoryStore) Sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *MemoryStore) sweepOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for userID, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, userID)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("swept expired sessions", "count", evicted)
	}
}

func (s *MemoryStore) expired(sess *domain.Session) bool {
	return s.now().Sub(sess.UpdatedAt) > s.ttl
}
