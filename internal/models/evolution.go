// internal/models/evolution.go
package models

import "time"

// FieldChange records one audited field overwrite.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
	Reason   string `json:"reason"`
}

// EvolutionRecord is the audit trail of one auto-evolution mutation. All
// field changes of a record were applied as a single atomic batch.
type EvolutionRecord struct {
	ID         string        `json:"id"`
	NovelID    string        `json:"novel_id"`
	EntityType string        `json:"entity_type"` // character, plotline, world
	EntityID   string        `json:"entity_id"`
	Changes    []FieldChange `json:"changes,omitempty"`
	AppliedAt  time.Time     `json:"applied_at"`
}

// CharacterAdjustment is one field change proposed by the qualitative
// analyzer during character evolution.
type CharacterAdjustment struct {
	Field    string `json:"field"`
	NewValue string `json:"new_value"`
	Reason   string `json:"reason"`
}
