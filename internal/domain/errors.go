package domain

import "errors"

var (
	// ErrDuplicateSkill means a skill name was registered twice.
	// Configuration error, fatal at startup.
	ErrDuplicateSkill = errors.New("skill already registered")

	// ErrSkillNotFound means a lookup named an unregistered skill.
	ErrSkillNotFound = errors.New("skill not registered")

	// ErrNoSession means an update or lookup hit an absent session.
	// Callers treat it as "no active session" and start fresh.
	ErrNoSession = errors.New("no active session")

	// ErrSessionActive means a create raced an existing live session.
	// Callers must evict or cancel first.
	ErrSessionActive = errors.New("session already active")
)
