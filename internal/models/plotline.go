// internal/models/plotline.go
package models

import "time"

// PlotlineStatus is the lifecycle state of a plot thread.
type PlotlineStatus string

const (
	PlotlinePlanned     PlotlineStatus = "PLANNED"
	PlotlineIntroduced  PlotlineStatus = "INTRODUCED"
	PlotlineDeveloping  PlotlineStatus = "DEVELOPING"
	PlotlineComplicated PlotlineStatus = "COMPLICATED"
	PlotlineClimaxing   PlotlineStatus = "CLIMAXING"
	PlotlineResolved    PlotlineStatus = "RESOLVED"
	PlotlineAbandoned   PlotlineStatus = "ABANDONED"
)

// Terminal reports whether the status is one the state machine never
// auto-transitions out of.
func (s PlotlineStatus) Terminal() bool {
	return s == PlotlineResolved || s == PlotlineAbandoned
}

// Valid reports whether s is one of the closed set of statuses.
func (s PlotlineStatus) Valid() bool {
	switch s {
	case PlotlinePlanned, PlotlineIntroduced, PlotlineDeveloping,
		PlotlineComplicated, PlotlineClimaxing, PlotlineResolved, PlotlineAbandoned:
		return true
	}
	return false
}

// PlotlineCategory classifies a plot thread by its narrative function.
type PlotlineCategory string

const (
	PlotCategoryMain     PlotlineCategory = "main"
	PlotCategorySubplot  PlotlineCategory = "subplot"
	PlotCategoryRomance  PlotlineCategory = "romance"
	PlotCategoryMystery  PlotlineCategory = "mystery"
	PlotCategoryConflict PlotlineCategory = "conflict"
)

// DevelopmentType classifies a single narrative development event.
type DevelopmentType string

const (
	DevelopmentIntroduction DevelopmentType = "introduction"
	DevelopmentAdvancement  DevelopmentType = "advancement"
	DevelopmentComplication DevelopmentType = "complication"
	DevelopmentResolution   DevelopmentType = "resolution"
)

// Development is one entry of a plot thread's development history.
type Development struct {
	ChapterIndex int             `json:"chapter_index"`
	Type         DevelopmentType `json:"type"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Plotline is a tracked narrative arc with a lifecycle status.
type Plotline struct {
	ID              string           `json:"id"`
	NovelID         string           `json:"novel_id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Category        PlotlineCategory `json:"category"`
	Importance      int              `json:"importance"` // 1-5 priority
	Status          PlotlineStatus   `json:"status"`
	Developments    []Development    `json:"developments"`
	IntroducedAt    int              `json:"introduced_at"`
	LastDevelopedAt int              `json:"last_developed_at"`
	CreatedAt       time.Time        `json:"created_at"`
	LastUpdated     time.Time        `json:"last_updated"`
}

// AdvancementCount returns how many advancement entries the history holds.
func (p *Plotline) AdvancementCount() int {
	count := 0
	for _, d := range p.Developments {
		if d.Type == DevelopmentAdvancement {
			count++
		}
	}
	return count
}
