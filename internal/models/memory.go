// internal/models/memory.go
package models

import "time"

// TimelineEntry is one ordered event of the consolidated story timeline.
type TimelineEntry struct {
	ChapterIndex int    `json:"chapter_index"`
	Description  string `json:"description"`
	Importance   int    `json:"importance"`
}

// UnresolvedState lists narrative debt the story has not paid off yet.
type UnresolvedState struct {
	Plotlines []string `json:"plotlines,omitempty"`
	Mysteries []string `json:"mysteries,omitempty"`
	Promises  []string `json:"promises,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// StoryMemory is a point-in-time snapshot of everything the engine knows
// about a novel. It is recomputed on demand and never persisted as a unit.
type StoryMemory struct {
	NovelID      string                       `json:"novel_id"`
	ChapterCount int                          `json:"chapter_count"`
	LastChapter  int                          `json:"last_chapter"`
	Characters   map[string]*Character        `json:"characters"`
	Profiles     map[string]*CharacterProfile `json:"profiles"`
	Plotlines    []*Plotline                  `json:"plotlines"`
	World        *WorldBuilding               `json:"world,omitempty"`
	Timeline     []TimelineEntry              `json:"timeline,omitempty"`
	Unresolved   UnresolvedState              `json:"unresolved"`
	BuiltAt      time.Time                    `json:"built_at"`
}
