package skill

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"opendialog/internal/domain"
)

func TestLoadPromptPacks(t *testing.T) {
	dir := t.TempDir()
	pack := `skill: restaurant_booking
prompts:
  ASK_CUISINE: "Which kitchen tempts you today?"
  CONFIRM: "Booking {cuisine} on {date} at {time} for {party_size}. OK?"
`
	if err := os.WriteFile(filepath.Join(dir, "booking.yaml"), []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}
	// A broken file is skipped, not fatal.
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("skill: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	packs, err := LoadPromptPacks(dir, testLogger())
	if err != nil {
		t.Fatalf("load packs: %v", err)
	}
	if len(packs) != 1 {
		t.Fatalf("expected 1 pack, got %d", len(packs))
	}
	if packs[0].Skill != "restaurant_booking" || len(packs[0].Prompts) != 2 {
		t.Fatalf("unexpected pack: %+v", packs[0])
	}
}

func TestLoadPromptPacks_MissingDir(t *testing.T) {
	packs, err := LoadPromptPacks(filepath.Join(t.TempDir(), "nope"), testLogger())
	if err != nil || packs != nil {
		t.Fatalf("missing dir should be empty and quiet: %v %v", packs, err)
	}
}

func TestOverridePrompt_RendersContext(t *testing.T) {
	_, m := bookingMachine(t, true)

	if err := m.OverridePrompt(StateConfirm, "Book {cuisine} for {party_size}?"); err != nil {
		t.Fatalf("override: %v", err)
	}
	if err := m.OverridePrompt("NO_SUCH_STATE", "x"); err == nil {
		t.Fatal("expected error for unknown state")
	}

	c := domain.Context{
		"cuisine": "Thai", "date": "Friday", "time": "8 PM", "party_size": "2",
	}
	res := m.Transition(StateAskRequests, c, 0,
		domain.TurnInput{Utterance: "none", Intent: domain.Intent{Name: "unknown"}})
	if res.State != StateConfirm {
		t.Fatalf("expected CONFIRM, got %s", res.State)
	}
	if res.Reply != "Book Thai for 2?" {
		t.Fatalf("override not rendered: %q", res.Reply)
	}
}

func TestRegisterBuiltins_AppliesPromptPacks(t *testing.T) {
	dir := t.TempDir()
	pack := "skill: restaurant_booking\nprompts:\n  ASK_CUISINE: \"Which kitchen?\"\n"
	if err := os.WriteFile(filepath.Join(dir, "booking.yaml"), []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(testLogger())
	if err := RegisterBuiltins(r, BuiltinConfig{PromptDir: dir, Logger: testLogger()}); err != nil {
		t.Fatalf("register builtins: %v", err)
	}

	def, err := r.Lookup("restaurant_booking")
	if err != nil {
		t.Fatal(err)
	}
	res := def.Machine.Transition(def.Machine.Initial(), domain.Context{}, 0,
		domain.TurnInput{Utterance: "book a restaurant", Intent: domain.Intent{Name: "book_restaurant"}})
	if !strings.Contains(res.Reply, "Which kitchen?") {
		t.Fatalf("prompt pack not applied: %q", res.Reply)
	}
}
