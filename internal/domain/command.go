package domain

import "context"

// CommandHandler is a one-shot handler used when no skill claims a
// turn. It accepts an intent and produces a result with no cross-turn
// state.
type CommandHandler interface {
	Name() string
	Description() string
	Intents() []string
	Run(ctx context.Context, in TurnInput) (string, error)
}
