// Package channel contains the user-facing transports that feed turns
// onto the bus: an interactive terminal and a Telegram bot.
package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"opendialog/internal/domain"

	"github.com/google/uuid"
)

// CLI implements domain.Channel as an interactive terminal REPL.
type CLI struct {
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	userID string
}

type CLIConfig struct {
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
	UserID string // identity used for the session store; default "local"
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.UserID == "" {
		cfg.UserID = "local"
	}
	return &CLI{logger: cfg.Logger, in: cfg.In, out: cfg.Out, userID: cfg.UserID}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the REPL until EOF, /quit, or context cancellation.
func (c *CLI) Start(ctx context.Context, bus domain.Bus) error {
	bus.OnReply("cli", func(r domain.TurnReply) {
		fmt.Fprintln(c.out, r.Text)
		fmt.Fprint(c.out, "You> ")
	})

	fmt.Fprintln(c.out, "Type your message and press Enter. /quit exits.")
	fmt.Fprint(c.out, "You> ")

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(c.out, "You> ")
			continue
		}
		if line == "/quit" || line == "/exit" || line == "/q" {
			c.logger.Info("user requested quit")
			return nil
		}

		bus.Publish(domain.TurnRequest{
			TurnID:    uuid.NewString(),
			Channel:   "cli",
			ChatID:    "direct",
			UserID:    c.userID,
			Text:      line,
			Timestamp: time.Now(),
		})
	}
}

func (c *CLI) Stop() error { return nil }
