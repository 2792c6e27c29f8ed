package domain

import "time"

// Intent is the NLP collaborator's classification of one utterance.
type Intent struct {
	Name     string            `json:"name"`
	Entities map[string]string `json:"entities,omitempty"`
	Language string            `json:"language,omitempty"`
}

// TurnInput carries one user utterance into the engine. The raw
// utterance is kept for capture fallback and logging only.
type TurnInput struct {
	UserID    string
	Utterance string
	Intent    Intent
	Timestamp time.Time
}

// TurnOutput is the engine's reply for one turn. When Complete is true
// the caller may hand Skill and Context to an execution backend.
type TurnOutput struct {
	Skill    string
	State    State
	Reply    string
	Context  Context
	Complete bool
}
