// Package bus moves turns between channels and the dialog loop over
// in-process Go channels.
package bus

import (
	"log/slog"
	"sync"
	"time"

	"opendialog/internal/domain"
)

const publishTimeout = 5 * time.Second

// InMemoryBus implements domain.Bus for a single process.
type InMemoryBus struct {
	requests chan domain.TurnRequest
	handlers map[string]func(domain.TurnReply)
	mu       sync.RWMutex
	closed   bool
	logger   *slog.Logger
}

func New(bufferSize int, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &InMemoryBus{
		requests: make(chan domain.TurnRequest, bufferSize),
		handlers: make(map[string]func(domain.TurnReply)),
		logger:   logger,
	}
}

// Publish enqueues a turn. When the buffer is full it waits briefly
// instead of dropping the user's utterance on the floor.
func (b *InMemoryBus) Publish(req domain.TurnRequest) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("publish on closed bus", "turn", req.TurnID)
		return
	}

	select {
	case b.requests <- req:
		return
	default:
	}

	b.logger.Warn("turn bus full, waiting", "channel", req.Channel, "user", req.UserID)
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case b.requests <- req:
	case <-timer.C:
		b.logger.Error("turn dropped, bus full", "channel", req.Channel, "user", req.UserID, "turn", req.TurnID)
	}
}

func (b *InMemoryBus) Subscribe() <-chan domain.TurnRequest {
	return b.requests
}

func (b *InMemoryBus) Reply(r domain.TurnReply) {
	b.mu.RLock()
	handler, ok := b.handlers[r.Channel]
	b.mu.RUnlock()

	if !ok {
		b.logger.Warn("no reply handler for channel", "channel", r.Channel)
		return
	}
	handler(r)
}

func (b *InMemoryBus) OnReply(channelName string, handler func(domain.TurnReply)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channelName] = handler
}

func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.requests)
	}
}
