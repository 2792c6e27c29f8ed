package dialog

import (
	"context"
	"log/slog"
	"time"

	"opendialog/internal/command"
	"opendialog/internal/domain"
)

const defaultConcurrency = 4

// fallbackReply is sent when neither a skill nor a command claims the
// turn.
const fallbackReply = `I'm not sure how to help with that. Say "help" to see what I can do.`

// Loop consumes turns from the bus, parses them, runs the dispatcher,
// and falls back to one-shot commands when no skill applies. Turns for
// different users run in parallel; the dispatcher serializes per user.
type Loop struct {
	dispatcher  *Dispatcher
	parser      domain.IntentParser
	commands    *command.Registry
	bus         domain.Bus
	executor    func(skillName string, result domain.Context)
	logger      *slog.Logger
	concurrency int
}

// LoopConfig holds the loop's collaborators.
type LoopConfig struct {
	Dispatcher *Dispatcher
	Parser     domain.IntentParser
	Commands   *command.Registry
	Bus        domain.Bus
	// Executor receives the skill name and final context of every
	// exchange that reaches COMPLETE, e.g. to actually book the
	// table. Optional.
	Executor    func(skillName string, result domain.Context)
	Logger      *slog.Logger
	Concurrency int
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Loop{
		dispatcher:  cfg.Dispatcher,
		parser:      cfg.Parser,
		commands:    cfg.Commands,
		bus:         cfg.Bus,
		executor:    cfg.Executor,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Run blocks until ctx is cancelled or the bus closes.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("dialog loop started", "concurrency", l.concurrency)

	sem := make(chan struct{}, l.concurrency)
	requests := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("dialog loop stopping")
			return
		case req, ok := <-requests:
			if !ok {
				l.logger.Info("turn bus closed, dialog loop stopping")
				return
			}
			sem <- struct{}{}
			go func(r domain.TurnRequest) {
				defer func() { <-sem }()
				l.bus.Reply(domain.TurnReply{
					TurnID:  r.TurnID,
					Channel: r.Channel,
					ChatID:  r.ChatID,
					Text:    l.handle(ctx, r),
				})
			}(req)
		}
	}
}

// HandleDirect processes one turn synchronously, for callers that want
// the reply without going through the bus.
func (l *Loop) HandleDirect(ctx context.Context, req domain.TurnRequest) string {
	return l.handle(ctx, req)
}

func (l *Loop) handle(ctx context.Context, req domain.TurnRequest) string {
	in := domain.TurnInput{
		UserID:    req.UserID,
		Utterance: req.Text,
		Intent:    l.parser.Parse(req.Text),
		Timestamp: req.Timestamp,
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	out, err := l.dispatcher.Process(ctx, in)
	if err != nil {
		l.logger.Error("turn failed", "turn", req.TurnID, "user", req.UserID, "err", err)
		return "Sorry, something went wrong handling that."
	}
	if out != nil {
		if out.Complete && out.State == domain.StateComplete && l.executor != nil {
			l.executor(out.Skill, out.Context)
		}
		return out.Reply
	}

	// No active session and no trigger matched: one-shot command
	// territory.
	if reply, ok := l.commands.Dispatch(ctx, in); ok {
		return reply
	}
	return fallbackReply
}
