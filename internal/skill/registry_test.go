package skill

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"opendialog/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDefinition(t *testing.T, name string, intents ...string) domain.SkillDefinition {
	t.Helper()
	m, err := NewMachine(MachineConfig{
		Initial: "INITIAL",
		States: map[domain.State]StateSpec{
			"INITIAL": {
				Prompt: func(domain.Context) string { return "?" },
				Next:   domain.StateComplete,
			},
		},
	})
	if err != nil {
		t.Fatalf("build machine: %v", err)
	}
	return domain.SkillDefinition{
		Name:    name,
		Trigger: domain.Trigger{Intents: intents},
		Machine: m,
	}
}

func TestRegistry_DuplicateNameFails(t *testing.T) {
	r := NewRegistry(testLogger())

	if err := r.Register(testDefinition(t, "alpha", "go_alpha")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := r.Register(testDefinition(t, "alpha", "other"))
	if !errors.Is(err, domain.ErrDuplicateSkill) {
		t.Fatalf("expected ErrDuplicateSkill, got %v", err)
	}
}

func TestRegistry_MatchFirstWins(t *testing.T) {
	r := NewRegistry(testLogger())

	if err := r.Register(testDefinition(t, "first", "shared")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(testDefinition(t, "second", "shared")); err != nil {
		t.Fatal(err)
	}

	def := r.Match(domain.Intent{Name: "shared"})
	if def == nil || def.Name != "first" {
		t.Fatalf("expected first registration to win, got %+v", def)
	}
}

func TestRegistry_MatchNone(t *testing.T) {
	r := NewRegistry(testLogger())
	if err := r.Register(testDefinition(t, "alpha", "go_alpha")); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if def := r.Match(domain.Intent{Name: "unrelated"}); def != nil {
			t.Fatalf("expected no match, got %s", def.Name)
		}
	}
}

func TestRegistry_PatternTrigger(t *testing.T) {
	r := NewRegistry(testLogger())

	def := testDefinition(t, "scenes")
	def.Trigger = domain.Trigger{Pattern: `^scene_`}
	if err := r.Register(def); err != nil {
		t.Fatal(err)
	}

	if got := r.Match(domain.Intent{Name: "scene_movie_night"}); got == nil {
		t.Fatal("pattern trigger should match scene_movie_night")
	}
	if got := r.Match(domain.Intent{Name: "movie_night"}); got != nil {
		t.Fatal("pattern trigger must not match movie_night")
	}
}

func TestRegistry_BadPatternRejected(t *testing.T) {
	r := NewRegistry(testLogger())

	def := testDefinition(t, "broken")
	def.Trigger = domain.Trigger{Pattern: `([`}
	if err := r.Register(def); err == nil {
		t.Fatal("expected error for invalid trigger pattern")
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry(testLogger())
	if err := r.Register(testDefinition(t, "alpha", "go_alpha")); err != nil {
		t.Fatal(err)
	}

	def, err := r.Lookup("alpha")
	if err != nil || def.Name != "alpha" {
		t.Fatalf("lookup alpha: %v %+v", err, def)
	}

	_, err = r.Lookup("ghost")
	if !errors.Is(err, domain.ErrSkillNotFound) {
		t.Fatalf("expected ErrSkillNotFound, got %v", err)
	}
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistry(testLogger())
	if err := RegisterBuiltins(r, BuiltinConfig{Logger: testLogger()}); err != nil {
		t.Fatalf("register builtins: %v", err)
	}

	if def := r.Match(domain.Intent{Name: "book_restaurant"}); def == nil {
		t.Fatal("booking skill should claim book_restaurant")
	}
	if def := r.Match(domain.Intent{Name: "diagnose_wifi"}); def == nil {
		t.Fatal("troubleshooting skill should claim diagnose_wifi")
	}
}

func TestRegisterBuiltins_Disabled(t *testing.T) {
	r := NewRegistry(testLogger())
	err := RegisterBuiltins(r, BuiltinConfig{
		Disabled: []string{"wifi_troubleshooting"},
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("register builtins: %v", err)
	}

	if def := r.Match(domain.Intent{Name: "diagnose_wifi"}); def != nil {
		t.Fatalf("disabled skill must not match, got %s", def.Name)
	}
	if _, err := r.Lookup("wifi_troubleshooting"); !errors.Is(err, domain.ErrSkillNotFound) {
		t.Fatalf("disabled skill must not be registered: %v", err)
	}
}
