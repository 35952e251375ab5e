// internal/models/world.go
package models

import "time"

// RuleCategory classifies an established world rule.
type RuleCategory string

const (
	RuleMagic        RuleCategory = "magic"
	RuleTechnology   RuleCategory = "technology"
	RuleSocial       RuleCategory = "social"
	RulePhysical     RuleCategory = "physical"
	RuleSupernatural RuleCategory = "supernatural"
)

// WorldRule is a single established rule of the story world.
type WorldRule struct {
	ID            string       `json:"id"`
	NovelID       string       `json:"novel_id"`
	Category      RuleCategory `json:"category"`
	Rule          string       `json:"rule"`
	EstablishedAt int          `json:"established_at"` // chapter index
	Applications  []string     `json:"applications,omitempty"`
	Limitations   []string     `json:"limitations,omitempty"`
}

// WorldBuilding aggregates the persistent worldbuilding state of a novel.
type WorldBuilding struct {
	NovelID     string      `json:"novel_id"`
	Locations   []string    `json:"locations,omitempty"`
	Cultures    string      `json:"cultures,omitempty"`
	MagicSystem string      `json:"magic_system,omitempty"`
	Rules       []WorldRule `json:"rules,omitempty"`
	LastUpdated time.Time   `json:"last_updated"`
}

// WorldElements is the additive payload of a worldbuilding merge.
type WorldElements struct {
	Locations   []string    `json:"locations,omitempty"`
	Cultures    string      `json:"cultures,omitempty"`
	MagicSystem string      `json:"magic_system,omitempty"`
	Rules       []WorldRule `json:"rules,omitempty"`
}

// WorldMergeResult reports what a merge actually changed.
type WorldMergeResult struct {
	ElementsAdded []string `json:"elements_added"`
}
