// internal/models/chapter.go
package models

import "time"

// Novel is the top-level record a corpus belongs to.
type Novel struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Genre       string    `json:"genre,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// StoryEvent is a notable occurrence inside one chapter.
type StoryEvent struct {
	ID           string   `json:"id"`
	ChapterIndex int      `json:"chapter_index"`
	Description  string   `json:"description"`
	Importance   int      `json:"importance"` // 1-5
	CharacterIDs []string `json:"character_ids,omitempty"`
	PlotlineIDs  []string `json:"plotline_ids,omitempty"`
}

// DevelopmentRef ties a chapter to a plot thread development it carries.
type DevelopmentRef struct {
	PlotlineID  string          `json:"plotline_id"`
	Type        DevelopmentType `json:"type"`
	Description string          `json:"description"`
}

// Chapter is one serialized installment of a novel. The corpus reader
// returns chapters ordered by Index; gaps in numbering are tolerated.
type Chapter struct {
	NovelID           string           `json:"novel_id"`
	Index             int              `json:"index"`
	Title             string           `json:"title,omitempty"`
	Text              string           `json:"text"`
	Events            []StoryEvent     `json:"events,omitempty"`
	CharacterMentions []string         `json:"character_mentions,omitempty"`
	Developments      []DevelopmentRef `json:"plotline_developments,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}
