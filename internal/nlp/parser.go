// Package nlp is the shipped default for the NLP collaborator: a
// rule-based parser producing intent, entities, and a language tag
// from one utterance. Deployments with a real NLU service swap it out
// behind domain.IntentParser.
package nlp

import (
	"log/slog"
	"regexp"
	"strings"

	"opendialog/internal/domain"
)

// IntentUnknown is returned when no rule claims the utterance.
const IntentUnknown = "unknown"

type rule struct {
	intent   string
	keywords []string // lowercase substrings
	pattern  *regexp.Regexp
}

// Parser matches utterances against an ordered rule list, first match
// wins. Keywords are stored lowercase and patterns compiled once.
type Parser struct {
	rules    []rule
	cuisines []string
	logger   *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	return &Parser{
		rules: []rule{
			{intent: "cancel", keywords: []string{"cancel", "never mind", "nevermind", "forget it", "abort"},
				pattern: regexp.MustCompile(`(?i)^stop\b`)},
			{intent: "book_restaurant", keywords: []string{"book a restaurant", "book a table", "reserve a table", "restaurant booking"},
				pattern: regexp.MustCompile(`(?i)book\s+\w*\s*(restaurant|table)`)},
			{intent: "diagnose_wifi", keywords: []string{"wifi", "wi-fi", "internet is down", "no internet", "connection problem"}},
			{intent: "time", keywords: []string{"what time", "time is it", "current time"}},
			{intent: "ping", keywords: []string{"ping", "are you there", "are you alive"}},
			{intent: "help", keywords: []string{"help", "what can you do"}},
			// Yes/no classes come last so "no internet" still reads
			// as a troubleshooting request.
			{intent: "affirm", pattern: regexp.MustCompile(`(?i)^(yes|yeah|yep|yup|sure|ok|okay|correct|right|affirmative|y)\b`)},
			{intent: "deny", pattern: regexp.MustCompile(`(?i)^(no|nope|nah|negative|wrong|n)\b`)},
		},
		cuisines: []string{
			"italian", "chinese", "japanese", "mexican", "indian", "thai",
			"french", "greek", "korean", "vietnamese", "spanish", "turkish",
		},
		logger: logger,
	}
}

// Parse classifies one utterance. It never fails: anything the rules
// miss comes back as IntentUnknown with whatever entities were found.
func (p *Parser) Parse(utterance string) domain.Intent {
	lower := strings.ToLower(strings.TrimSpace(utterance))

	intent := domain.Intent{
		Name:     IntentUnknown,
		Entities: p.entities(utterance, lower),
		Language: detectLanguage(lower),
	}

	for _, r := range p.rules {
		if r.matches(lower) {
			intent.Name = r.intent
			break
		}
	}

	p.logger.Debug("parsed utterance", "intent", intent.Name, "entities", len(intent.Entities))
	return intent
}

func (r rule) matches(lower string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return r.pattern != nil && r.pattern.MatchString(lower)
}

// entities extracts the structured values the built-in skills declare
// they read. Values keep the user's original casing.
func (p *Parser) entities(original, lower string) map[string]string {
	entities := make(map[string]string)
	for _, cuisine := range p.cuisines {
		idx := indexWord(lower, cuisine)
		if idx < 0 {
			continue
		}
		entities["cuisine"] = original[idx : idx+len(cuisine)]
		break
	}
	if len(entities) == 0 {
		return nil
	}
	return entities
}

// indexWord finds needle in haystack at word boundaries.
func indexWord(haystack, needle string) int {
	for from := 0; ; {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return -1
		}
		idx += from
		before := idx == 0 || !isLetter(haystack[idx-1])
		afterPos := idx + len(needle)
		after := afterPos >= len(haystack) || !isLetter(haystack[afterPos])
		if before && after {
			return idx
		}
		from = idx + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// detectLanguage is a deliberately naive tag so the contract is
// complete; a real language detector lives outside this process.
func detectLanguage(lower string) string {
	switch {
	case strings.Contains(lower, "hola") || strings.Contains(lower, "gracias"):
		return "es"
	case strings.Contains(lower, "bonjour") || strings.Contains(lower, "merci"):
		return "fr"
	default:
		return "en"
	}
}
