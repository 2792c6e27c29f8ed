package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"opendialog/internal/domain"
)

// ClockCommand answers "what time is it".
type ClockCommand struct {
	Now func() time.Time // nil means time.Now
}

func (c *ClockCommand) Name() string        { return "clock" }
func (c *ClockCommand) Description() string { return "Tell the current time" }
func (c *ClockCommand) Intents() []string   { return []string{"time"} }

func (c *ClockCommand) Run(ctx context.Context, in domain.TurnInput) (string, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return "It's " + now().Format("15:04 on Monday, January 2") + ".", nil
}

// PingCommand answers liveness checks.
type PingCommand struct{}

func (PingCommand) Name() string        { return "ping" }
func (PingCommand) Description() string { return "Confirm the assistant is alive" }
func (PingCommand) Intents() []string   { return []string{"ping"} }

func (PingCommand) Run(ctx context.Context, in domain.TurnInput) (string, error) {
	return "Pong. I'm here.", nil
}

// HelpCommand lists what the assistant can do: the registered skills
// plus the other one-shot commands.
type HelpCommand struct {
	Skills   func() []domain.SkillDefinition
	Commands func() []domain.CommandHandler
}

func (h *HelpCommand) Name() string        { return "help" }
func (h *HelpCommand) Description() string { return "List available skills and commands" }
func (h *HelpCommand) Intents() []string   { return []string{"help"} }

func (h *HelpCommand) Run(ctx context.Context, in domain.TurnInput) (string, error) {
	var sb strings.Builder
	sb.WriteString("Here's what I can do.\n")
	if h.Skills != nil {
		for _, def := range h.Skills() {
			fmt.Fprintf(&sb, "- %s\n", def.Description)
		}
	}
	if h.Commands != nil {
		for _, c := range h.Commands() {
			if c.Name() == h.Name() {
				continue
			}
			fmt.Fprintf(&sb, "- %s\n", c.Description())
		}
	}
	sb.WriteString(`Say "cancel" at any point to abandon an exchange.`)
	return sb.String(), nil
}

// RegisterBuiltins wires up the shipped one-shot commands.
func RegisterBuiltins(r *Registry, skills func() []domain.SkillDefinition) {
	r.Register(&ClockCommand{})
	r.Register(PingCommand{})
	r.Register(&HelpCommand{Skills: skills, Commands: r.List})
}
