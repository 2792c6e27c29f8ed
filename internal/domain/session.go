package domain

import (
	"context"
	"time"
)

// Session is one user's in-progress exchange. At most one session
// exists per user at any time; it lives until its skill reaches a
// terminal state or the idle TTL expires.
type Session struct {
	ID        string // for logs and audit only
	UserID    string
	Skill     string
	State     State
	Context   Context
	Retries   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionStore owns session lifecycle. Operations on the same user
// never interleave; operations on different users never block one
// another. Expiry is evaluated lazily at access time.
type SessionStore interface {
	// Get returns the live session for the user, or nil if none
	// exists or the existing one has idled past the TTL.
	Get(ctx context.Context, userID string) (*Session, error)
	// Create stores a new session. Fails with ErrSessionActive if a
	// live session already exists for the user.
	Create(ctx context.Context, s Session) error
	// Update overwrites state, context, and retry count and refreshes
	// the activity timestamp. Fails with ErrNoSession if absent.
	Update(ctx context.Context, userID string, state State, c Context, retries int) error
	// Remove evicts unconditionally and is idempotent.
	Remove(ctx context.Context, userID string) error
	Close() error
}
