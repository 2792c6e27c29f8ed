package skill

import (
	"strings"
	"testing"

	"opendialog/internal/domain"
)

func bookingMachine(t *testing.T, restartOnDeny bool) (domain.SkillDefinition, *Machine) {
	t.Helper()
	def, err := NewRestaurantBooking(BookingConfig{RestartOnDeny: restartOnDeny})
	if err != nil {
		t.Fatalf("build booking skill: %v", err)
	}
	return def, def.Machine.(*Machine)
}

// drive feeds utterances through the machine and returns the final
// result plus every reply.
func drive(t *testing.T, m *Machine, inputs []domain.TurnInput) (domain.TransitionResult, []string) {
	t.Helper()
	st := m.Initial()
	c := domain.Context{}
	retries := 0
	var res domain.TransitionResult
	var replies []string
	for i, in := range inputs {
		res = m.Transition(st, c, retries, in)
		st, c, retries = res.State, res.Context, res.Retries
		replies = append(replies, res.Reply)
		if res.Complete && i < len(inputs)-1 {
			t.Fatalf("completed early at turn %d", i)
		}
	}
	return res, replies
}

func TestBooking_FullExchange(t *testing.T) {
	_, m := bookingMachine(t, true)

	inputs := []domain.TurnInput{
		{Utterance: "book a restaurant", Intent: domain.Intent{Name: "book_restaurant"}},
		{Utterance: "Italian", Intent: domain.Intent{Name: "unknown", Entities: map[string]string{"cuisine": "Italian"}}},
		{Utterance: "Tomorrow", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "7 PM", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "4 people", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "Window seat please", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "Yes", Intent: domain.Intent{Name: "affirm"}},
	}

	res, replies := drive(t, m, inputs)

	if !res.Complete || res.State != domain.StateComplete {
		t.Fatalf("expected completion, got %+v", res)
	}

	want := domain.Context{
		"cuisine":    "Italian",
		"date":       "Tomorrow",
		"time":       "7 PM",
		"party_size": "4 people",
		"requests":   "Window seat please",
	}
	if len(res.Context) != len(want) {
		t.Fatalf("final context has %d fields, want %d: %v", len(res.Context), len(want), res.Context)
	}
	for k, v := range want {
		if res.Context[k] != v {
			t.Fatalf("context[%s] = %q, want %q", k, res.Context[k], v)
		}
	}

	// The confirmation summary echoes all five captured values.
	summary := replies[5]
	for _, v := range want {
		if !strings.Contains(summary, v) {
			t.Fatalf("summary missing %q: %q", v, summary)
		}
	}
}

func TestBooking_OptionalRequestsSkipped(t *testing.T) {
	_, m := bookingMachine(t, true)

	inputs := []domain.TurnInput{
		{Utterance: "book a table", Intent: domain.Intent{Name: "book_restaurant"}},
		{Utterance: "Thai", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "Friday", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "8 PM", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "2", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "none", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "yes", Intent: domain.Intent{Name: "affirm"}},
	}

	res, replies := drive(t, m, inputs)
	if !res.Complete || res.State != domain.StateComplete {
		t.Fatalf("expected completion, got %+v", res)
	}
	if _, ok := res.Context["requests"]; ok {
		t.Fatalf("declined optional field must be absent: %v", res.Context)
	}
	if !strings.Contains(replies[5], "no special requests") {
		t.Fatalf("summary should note missing requests: %q", replies[5])
	}
}

func TestBooking_DenyRestartsAndClearsFields(t *testing.T) {
	_, m := bookingMachine(t, true)

	inputs := []domain.TurnInput{
		{Utterance: "book a restaurant", Intent: domain.Intent{Name: "book_restaurant"}},
		{Utterance: "Greek", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "Saturday", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "6 PM", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "3", Intent: domain.Intent{Name: "unknown"}},
		{Utterance: "none", Intent: domain.Intent{Name: "unknown"}},
	}
	res, _ := drive(t, m, inputs)
	if res.State != StateConfirm {
		t.Fatalf("expected CONFIRM, got %s", res.State)
	}

	res = m.Transition(res.State, res.Context, res.Retries, domain.TurnInput{Utterance: "no", Intent: domain.Intent{Name: "deny"}})
	if res.State != StateAskCuisine {
		t.Fatalf("deny should restart at cuisine, got %s", res.State)
	}
	if len(res.Context) != 0 {
		t.Fatalf("deny restart must clear captured fields: %v", res.Context)
	}
	if res.Complete {
		t.Fatal("restart must not complete the exchange")
	}
}

func TestBooking_DenyCancelsWhenConfigured(t *testing.T) {
	_, m := bookingMachine(t, false)

	c := domain.Context{
		"cuisine": "Greek", "date": "Saturday", "time": "6 PM", "party_size": "3",
	}
	res := m.Transition(StateConfirm, c, 0, domain.TurnInput{Utterance: "no", Intent: domain.Intent{Name: "deny"}})
	if res.State != domain.StateCancelled || !res.Complete {
		t.Fatalf("deny should cancel, got %+v", res)
	}
}

func TestBooking_SeededCuisineSkipsQuestion(t *testing.T) {
	_, m := bookingMachine(t, true)

	seed := domain.Context{"cuisine": "Italian"}
	res := m.Transition(m.Initial(), seed, 0, domain.TurnInput{
		Utterance: "book an Italian restaurant",
		Intent:    domain.Intent{Name: "book_restaurant", Entities: map[string]string{"cuisine": "Italian"}},
	})
	if res.State != StateAskDate {
		t.Fatalf("seeded cuisine should skip straight to the date question, got %s", res.State)
	}
}
