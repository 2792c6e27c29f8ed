package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"opendialog/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func input(intentName string) domain.TurnInput {
	return domain.TurnInput{
		UserID: "u1",
		Intent: domain.Intent{Name: intentName},
	}
}

type failingCommand struct{}

func (failingCommand) Name() string        { return "boom" }
func (failingCommand) Description() string { return "Always fails" }
func (failingCommand) Intents() []string   { return []string{"boom"} }
func (failingCommand) Run(context.Context, domain.TurnInput) (string, error) {
	return "", errors.New("broken widget")
}

func TestRegistry_Dispatch(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(PingCommand{})

	reply, ok := r.Dispatch(context.Background(), input("ping"))
	if !ok {
		t.Fatal("registered intent not dispatched")
	}
	if reply != "Pong. I'm here." {
		t.Fatalf("reply = %q", reply)
	}

	if _, ok := r.Dispatch(context.Background(), input("unknown")); ok {
		t.Fatal("unregistered intent claimed")
	}
}

func TestRegistry_DispatchError(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(failingCommand{})

	reply, ok := r.Dispatch(context.Background(), input("boom"))
	if !ok {
		t.Fatal("failing handler still owns the intent")
	}
	if !strings.Contains(reply, "broken widget") {
		t.Fatalf("error reply = %q", reply)
	}
}

func TestClockCommand(t *testing.T) {
	fixed := time.Date(2026, 3, 2, 15, 4, 0, 0, time.UTC)
	c := &ClockCommand{Now: func() time.Time { return fixed }}

	reply, err := c.Run(context.Background(), input("time"))
	if err != nil {
		t.Fatal(err)
	}
	if reply != "It's 15:04 on Monday, March 2." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestHelpCommand_ListsSkillsAndCommands(t *testing.T) {
	r := NewRegistry(testLogger())
	skills := func() []domain.SkillDefinition {
		return []domain.SkillDefinition{
			{Name: "restaurant_booking", Description: "Book a restaurant table."},
		}
	}
	RegisterBuiltins(r, skills)

	reply, ok := r.Dispatch(context.Background(), input("help"))
	if !ok {
		t.Fatal("help not dispatched")
	}
	if !strings.Contains(reply, "Book a restaurant table.") {
		t.Fatalf("help misses skills: %q", reply)
	}
	if !strings.Contains(reply, "Tell the current time") {
		t.Fatalf("help misses commands: %q", reply)
	}
	if strings.Contains(reply, "List available skills") {
		t.Fatalf("help lists itself: %q", reply)
	}
}
