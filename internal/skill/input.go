package skill

import (
	"strings"

	"opendialog/internal/domain"
)

// Intent names the engine recognizes independent of any skill.
const (
	IntentCancel = "cancel"
	IntentAffirm = "affirm"
	IntentDeny   = "deny"
)

// Input classes used by branch tables.
const (
	ClassAffirm = "affirm"
	ClassDeny   = "deny"
)

var (
	cancelWords = []string{"cancel", "never mind", "nevermind", "stop", "forget it", "abort"}
	affirmWords = []string{"yes", "yeah", "yep", "yup", "sure", "ok", "okay", "correct", "right", "affirmative", "y"}
	denyWords   = []string{"no", "nope", "nah", "negative", "wrong", "n"}
	noneWords   = []string{"none", "no", "nothing", "skip", "nope"}
)

// IsCancel recognizes the global cancellation input. The parsed intent
// wins; the word list covers parsers that pass cancellation through as
// unknown.
func IsCancel(in domain.TurnInput) bool {
	if in.Intent.Name == IntentCancel {
		return true
	}
	return matchesWord(in.Utterance, cancelWords)
}

// IsAffirm reports whether the input reads as a yes.
func IsAffirm(in domain.TurnInput) bool {
	if in.Intent.Name == IntentAffirm {
		return true
	}
	return matchesWord(in.Utterance, affirmWords)
}

// IsDeny reports whether the input reads as a no.
func IsDeny(in domain.TurnInput) bool {
	if in.Intent.Name == IntentDeny {
		return true
	}
	return matchesWord(in.Utterance, denyWords)
}

// isDeclined accepts the ways users skip an optional field.
func isDeclined(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	lower = strings.TrimRight(lower, ".!,")
	for _, w := range noneWords {
		if lower == w {
			return true
		}
	}
	return false
}

// matchesWord checks the normalized utterance against a word list. The
// first word alone also counts, so "yes please" still affirms.
func matchesWord(utterance string, words []string) bool {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	lower = strings.TrimRight(lower, ".!,?")
	first, _, _ := strings.Cut(lower, " ")
	for _, w := range words {
		if lower == w || first == w {
			return true
		}
	}
	return false
}
