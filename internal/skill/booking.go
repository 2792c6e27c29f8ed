package skill

import (
	"fmt"

	"opendialog/internal/domain"
)

// Restaurant booking skill states.
const (
	StateBookingInitial domain.State = "INITIAL"
	StateAskCuisine     domain.State = "ASK_CUISINE"
	StateAskDate        domain.State = "ASK_DATE"
	StateAskTime        domain.State = "ASK_TIME"
	StateAskPartySize   domain.State = "ASK_PARTY_SIZE"
	StateAskRequests    domain.State = "ASK_SPECIAL_REQUESTS"
	StateConfirm        domain.State = "CONFIRM"
)

// Context fields captured by the booking skill.
const (
	FieldCuisine   = "cuisine"
	FieldDate      = "date"
	FieldTime      = "time"
	FieldPartySize = "party_size"
	FieldRequests  = "requests"
)

var bookingFields = []string{FieldCuisine, FieldDate, FieldTime, FieldPartySize, FieldRequests}

// BookingConfig tunes the restaurant booking skill.
type BookingConfig struct {
	// MaxRetries bounds consecutive unrecognized inputs per question.
	MaxRetries int
	// RestartOnDeny sends a negative confirmation back to the cuisine
	// question instead of cancelling the booking.
	RestartOnDeny bool
}

// NewRestaurantBooking builds the restaurant booking skill: a linear
// slot-filling exchange ending in an explicit confirmation.
func NewRestaurantBooking(cfg BookingConfig) (domain.SkillDefinition, error) {
	denyBranch := Branch{Next: domain.StateCancelled}
	if cfg.RestartOnDeny {
		denyBranch = Branch{Next: StateAskCuisine, Clear: bookingFields}
	}

	states := map[domain.State]StateSpec{
		StateBookingInitial: {
			Prompt: func(domain.Context) string { return "Let's book a restaurant." },
			Next:   StateAskCuisine,
		},
		StateAskCuisine: {
			Prompt: func(domain.Context) string { return "What cuisine would you like?" },
			Field:  FieldCuisine,
			Next:   StateAskDate,
		},
		StateAskDate: {
			Prompt: func(domain.Context) string { return "What day should I book for?" },
			Field:  FieldDate,
			Next:   StateAskTime,
		},
		StateAskTime: {
			Prompt: func(domain.Context) string { return "What time works for you?" },
			Field:  FieldTime,
			Next:   StateAskPartySize,
		},
		StateAskPartySize: {
			Prompt: func(domain.Context) string { return "How many people should I book for?" },
			Field:  FieldPartySize,
			Next:   StateAskRequests,
		},
		StateAskRequests: {
			Prompt: func(domain.Context) string {
				return `Any special requests? Say "none" to skip.`
			},
			Field:    FieldRequests,
			Optional: true,
			Next:     StateConfirm,
		},
		StateConfirm: {
			Prompt: bookingSummary,
			Branches: map[string]Branch{
				ClassAffirm: {Next: domain.StateComplete},
				ClassDeny:   denyBranch,
			},
		},
		domain.StateComplete: {
			Prompt: func(c domain.Context) string {
				return fmt.Sprintf("Your %s table for %s on %s at %s is noted. I'll get that booked.",
					c[FieldCuisine], c[FieldPartySize], c[FieldDate], c[FieldTime])
			},
		},
		domain.StateCancelled: {
			Prompt: func(domain.Context) string { return "Okay, I won't book anything." },
		},
	}

	machine, err := NewMachine(MachineConfig{
		Initial:     StateBookingInitial,
		States:      states,
		Required:    []string{FieldCuisine, FieldDate, FieldTime, FieldPartySize},
		Optional:    []string{FieldRequests},
		MaxRetries:  cfg.MaxRetries,
		CancelReply: "Okay, I won't book anything.",
	})
	if err != nil {
		return domain.SkillDefinition{}, err
	}

	return domain.SkillDefinition{
		Name:        "restaurant_booking",
		Description: "Book a restaurant table: cuisine, date, time, party size, special requests.",
		Trigger:     domain.Trigger{Intents: []string{"book_restaurant"}},
		Required:    []string{FieldCuisine, FieldDate, FieldTime, FieldPartySize},
		Optional:    []string{FieldRequests},
		Seed:        []string{FieldCuisine},
		Machine:     machine,
	}, nil
}

func bookingSummary(c domain.Context) string {
	requests := c[FieldRequests]
	if requests == "" {
		requests = "no special requests"
	}
	return fmt.Sprintf("To confirm: a %s restaurant on %s at %s for %s, %s. Shall I book it?",
		c[FieldCuisine], c[FieldDate], c[FieldTime], c[FieldPartySize], requests)
}
