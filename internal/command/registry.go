// Package command implements the one-shot fallback executor: handlers
// that answer a single intent with no cross-turn state, used for every
// turn the dialogue engine declines.
package command

import (
	"context"
	"log/slog"
	"sync"

	"opendialog/internal/domain"
)

// Registry holds the one-shot handlers keyed by the intents they
// accept.
type Registry struct {
	mu       sync.RWMutex
	handlers []domain.CommandHandler
	byIntent map[string]domain.CommandHandler
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byIntent: make(map[string]domain.CommandHandler),
		logger:   logger,
	}
}

func (r *Registry) Register(h domain.CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = append(r.handlers, h)
	for _, intent := range h.Intents() {
		r.byIntent[intent] = h
	}
	r.logger.Debug("registered command", "name", h.Name(), "intents", h.Intents())
}

// Dispatch runs the handler claiming the turn's intent. ok=false means
// no handler matched.
func (r *Registry) Dispatch(ctx context.Context, in domain.TurnInput) (string, bool) {
	r.mu.RLock()
	h, found := r.byIntent[in.Intent.Name]
	r.mu.RUnlock()
	if !found {
		return "", false
	}

	out, err := h.Run(ctx, in)
	if err != nil {
		r.logger.Error("command failed", "name", h.Name(), "err", err)
		return "Sorry, that didn't work: " + err.Error(), true
	}
	return out, true
}

// List returns all registered handlers in registration order.
func (r *Registry) List() []domain.CommandHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.CommandHandler, len(r.handlers))
	copy(out, r.handlers)
	return out
}
