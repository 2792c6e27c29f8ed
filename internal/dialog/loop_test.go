package dialog

import (
	"context"
	"strings"
	"testing"
	"time"

	"opendialog/internal/bus"
	"opendialog/internal/command"
	"opendialog/internal/domain"
)

type loopHarness struct {
	loop     *Loop
	executed []struct {
		skill   string
		context domain.Context
	}
}

func newTestLoop(t *testing.T, b domain.Bus) *loopHarness {
	t.Helper()

	logger := testLogger()
	d, p, _ := newTestEngine(t)

	commands := command.NewRegistry(logger)
	h := &loopHarness{}
	command.RegisterBuiltins(commands, func() []domain.SkillDefinition { return nil })

	h.loop = NewLoop(LoopConfig{
		Dispatcher: d,
		Parser:     p,
		Commands:   commands,
		Bus:        b,
		Executor: func(skillName string, result domain.Context) {
			h.executed = append(h.executed, struct {
				skill   string
				context domain.Context
			}{skillName, result})
		},
		Logger: logger,
	})
	return h
}

func req(userID, text string) domain.TurnRequest {
	return domain.TurnRequest{
		TurnID:    text,
		Channel:   "test",
		UserID:    userID,
		Text:      text,
		Timestamp: time.Now(),
	}
}

func TestLoop_CommandFallback(t *testing.T) {
	h := newTestLoop(t, nil)
	ctx := context.Background()

	if got := h.loop.HandleDirect(ctx, req("alice", "ping")); got != "Pong. I'm here." {
		t.Fatalf("ping reply = %q", got)
	}
	if got := h.loop.HandleDirect(ctx, req("alice", "what time is it")); !strings.HasPrefix(got, "It's ") {
		t.Fatalf("clock reply = %q", got)
	}
	if got := h.loop.HandleDirect(ctx, req("alice", "tell me a joke")); got != fallbackReply {
		t.Fatalf("fallback reply = %q", got)
	}
}

func TestLoop_ExecutorRunsOnCompletion(t *testing.T) {
	h := newTestLoop(t, nil)
	ctx := context.Background()

	for _, text := range []string{
		"book a table", "Italian", "Tomorrow", "7 PM", "4 people", "none",
	} {
		h.loop.HandleDirect(ctx, req("alice", text))
	}
	if len(h.executed) != 0 {
		t.Fatalf("executor ran before completion: %+v", h.executed)
	}

	reply := h.loop.HandleDirect(ctx, req("alice", "yes"))
	if !strings.Contains(reply, "Italian") {
		t.Fatalf("completion reply = %q", reply)
	}
	if len(h.executed) != 1 {
		t.Fatalf("executor runs = %d, want 1", len(h.executed))
	}
	got := h.executed[0]
	if got.skill != "restaurant_booking" || got.context["cuisine"] != "Italian" {
		t.Fatalf("executor payload = %+v", got)
	}
	if _, present := got.context["requests"]; present {
		t.Fatalf("skipped optional field should be absent: %v", got.context)
	}
}

func TestLoop_ExecutorSkippedOnCancel(t *testing.T) {
	h := newTestLoop(t, nil)
	ctx := context.Background()

	h.loop.HandleDirect(ctx, req("alice", "book a table"))
	h.loop.HandleDirect(ctx, req("alice", "never mind"))
	if len(h.executed) != 0 {
		t.Fatalf("executor ran on cancellation: %+v", h.executed)
	}
}

func TestLoop_RunOverBus(t *testing.T) {
	logger := testLogger()
	b := bus.New(8, logger)
	h := newTestLoop(t, b)

	replies := make(chan domain.TurnReply, 8)
	b.OnReply("test", func(r domain.TurnReply) { replies <- r })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		h.loop.Run(ctx)
		close(done)
	}()

	b.Publish(req("alice", "ping"))

	select {
	case r := <-replies:
		if r.Text != "Pong. I'm here." {
			t.Fatalf("reply = %q", r.Text)
		}
		if r.Channel != "test" || r.TurnID != "ping" {
			t.Fatalf("reply routing fields wrong: %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reply over the bus")
	}

	b.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after bus close")
	}
}
