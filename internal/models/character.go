// internal/models/character.go
package models

import "time"

// Character represents a tracked character of a serialized novel.
type Character struct {
	ID            string            `json:"id"`
	NovelID       string            `json:"novel_id"`
	Name          string            `json:"name"`
	Role          string            `json:"role"`
	Description   string            `json:"description"`
	Personality   string            `json:"personality"`
	Background    string            `json:"background"`
	SpeechStyle   string            `json:"speech_style,omitempty"`
	Relationships map[string]string `json:"relationships,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	LastUpdated   time.Time         `json:"last_updated"`
}

// EvolvableCharacterFields are the only character fields the auto-evolution
// controller is allowed to overwrite.
var EvolvableCharacterFields = map[string]bool{
	"description": true,
	"personality": true,
	"background":  true,
}
