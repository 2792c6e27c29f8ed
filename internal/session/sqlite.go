package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"opendialog/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.SessionStore on a single-file SQLite
// database so in-flight exchanges survive a process restart. Same
// semantics as MemoryStore: one row per user, lazy TTL expiry.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewSQLiteStore(dbPath string, ttl time.Duration, logger *slog.Logger) (*SQLiteStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection keeps per-user operations serial in SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, ttl: ttl, logger: logger, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		user_id     TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		skill       TEXT NOT NULL,
		state       TEXT NOT NULL,
		context     TEXT NOT NULL DEFAULT '{}',
		retries     INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, userID string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, skill, state, context, retries, created_at, updated_at
		 FROM sessions WHERE user_id = ?`, userID)

	var (
		sess        domain.Session
		contextJSON string
		createdAt   int64
		updatedAt   int64
	)
	sess.UserID = userID
	err := row.Scan(&sess.ID, &sess.Skill, &sess.State, &contextJSON, &sess.Retries, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	sess.CreatedAt = time.Unix(0, createdAt)
	sess.UpdatedAt = time.Unix(0, updatedAt)
	if s.now().Sub(sess.UpdatedAt) > s.ttl {
		if err := s.Remove(ctx, userID); err != nil {
			return nil, err
		}
		s.logger.Debug("session expired", "user", userID, "skill", sess.Skill)
		return nil, nil
	}

	sess.Context = make(domain.Context)
	if err := json.Unmarshal([]byte(contextJSON), &sess.Context); err != nil {
		return nil, fmt.Errorf("decode session context: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteStore) Create(ctx context.Context, sess domain.Session) error {
	existing, err := s.Get(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrSessionActive
	}

	now := s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	contextJSON, err := json.Marshal(sess.Context)
	if err != nil {
		return fmt.Errorf("encode session context: %w", err)
	}

	// Get evicted any expired row above, so replace is safe here.
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions
		 (user_id, session_id, skill, state, context, retries, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.UserID, sess.ID, sess.Skill, string(sess.State), string(contextJSON),
		sess.Retries, sess.CreatedAt.UnixNano(), now.UnixNano())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, userID string, state domain.State, c domain.Context, retries int) error {
	contextJSON, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode session context: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, context = ?, retries = ?, updated_at = ?
		 WHERE user_id = ?`,
		string(state), string(contextJSON), retries, s.now().UnixNano(), userID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return domain.ErrNoSession
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// SweepExpired deletes every session idle past the TTL. Called
// periodically by resource-bound deployments.
func (s *SQLiteStore) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Debug("swept expired sessions", "count", n)
	}
	return n, nil
}
