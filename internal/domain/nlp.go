package domain

// IntentParser is the NLP collaborator contract: one utterance in,
// intent name, extracted entities, and a language tag out. The engine
// depends only on the intent name and the entity names each skill
// declares it reads.
type IntentParser interface {
	Parse(utterance string) Intent
}
