package domain

import "context"

// Channel is the interface for user-facing I/O (CLI, Telegram).
type Channel interface {
	Name() string
	Start(ctx context.Context, bus Bus) error
	Stop() error
}
