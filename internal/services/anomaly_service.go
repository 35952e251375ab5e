// internal/services/anomaly_service.go
package services

import (
	"fmt"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
)

const (
	// concentratedMentionMin is the mention count above which a narrow
	// chapter spread becomes suspicious.
	concentratedMentionMin = 10
	// concentratedChapterMax is the distinct-chapter count below which a
	// heavily mentioned character counts as concentrated.
	concentratedChapterMax = 3
	// dialogueLengthRatio bounds a single line against the window mean.
	dialogueLengthRatio = 3.0
)

// CharacterWindowStats are the per-character distribution counts over a
// chapter window.
type CharacterWindowStats struct {
	CharacterID      string `json:"character_id"`
	Name             string `json:"name"`
	TotalSnippets    int    `json:"total_snippets"`
	DialogueCount    int    `json:"dialogue_count"`
	ActionCount      int    `json:"action_count"`
	DistinctChapters int    `json:"distinct_chapters"`
}

// AnomalyService inspects snippet distributions across a chapter window
// for statistical outliers.
type AnomalyService struct {
	extractor *ExtractorService
}

// NewAnomalyService creates the service.
func NewAnomalyService(extractor *ExtractorService) *AnomalyService {
	return &AnomalyService{extractor: extractor}
}

// WindowStats computes per-character counts over the chapter window.
func (s *AnomalyService) WindowStats(characters []models.Character, chapters []models.Chapter) map[string]*CharacterWindowStats {
	stats := make(map[string]*CharacterWindowStats, len(characters))

	for _, character := range characters {
		cs := &CharacterWindowStats{CharacterID: character.ID, Name: character.Name}
		stats[character.ID] = cs

		for _, chapter := range chapters {
			snippets := s.extractor.Extract(chapter.Text, character.Name)
			if len(snippets) == 0 {
				continue
			}
			cs.DistinctChapters++
			cs.TotalSnippets += len(snippets)
			for _, snippet := range snippets {
				switch snippet.Category {
				case models.SnippetDialogue:
					cs.DialogueCount++
				case models.SnippetAction:
					cs.ActionCount++
				}
			}
		}
	}

	return stats
}

// Analyze flags distribution anomalies over the window: characters that
// are heavily mentioned but concentrated in very few chapters, and
// dialogue lines far outside the window's mean length.
func (s *AnomalyService) Analyze(characters []models.Character, chapters []models.Chapter) []models.ConsistencyIssue {
	var issues []models.ConsistencyIssue

	stats := s.WindowStats(characters, chapters)
	for _, character := range characters {
		cs := stats[character.ID]
		if cs == nil {
			continue
		}
		if cs.DistinctChapters < concentratedChapterMax && cs.TotalSnippets > concentratedMentionMin {
			issues = append(issues, models.ConsistencyIssue{
				Category: models.IssueCharacter,
				Severity: models.SeverityMedium,
				Description: fmt.Sprintf(
					"%s has %d mentions concentrated in only %d chapter(s) of the window",
					cs.Name, cs.TotalSnippets, cs.DistinctChapters),
				Suggestion: fmt.Sprintf(
					"spread %s's appearances across more chapters or reduce the spotlight in the concentrated ones", cs.Name),
			})
		}
	}

	issues = append(issues, s.dialogueLengthIssues(characters, chapters)...)

	return issues
}

func (s *AnomalyService) dialogueLengthIssues(characters []models.Character, chapters []models.Chapter) []models.ConsistencyIssue {
	type line struct {
		name   string
		length int
	}

	var lines []line
	var total int

	for _, character := range characters {
		for _, chapter := range chapters {
			for _, snippet := range s.extractor.Extract(chapter.Text, character.Name) {
				if snippet.Category != models.SnippetDialogue {
					continue
				}
				length := len([]rune(snippet.Text))
				lines = append(lines, line{name: character.Name, length: length})
				total += length
			}
		}
	}

	if len(lines) < 2 {
		return nil
	}

	mean := float64(total) / float64(len(lines))
	if mean == 0 {
		return nil
	}

	var issues []models.ConsistencyIssue
	for _, l := range lines {
		ratio := float64(l.length) / mean
		if ratio > dialogueLengthRatio || ratio < 1/dialogueLengthRatio {
			issues = append(issues, models.ConsistencyIssue{
				Category: models.IssueCharacter,
				Severity: models.SeverityLow,
				Description: fmt.Sprintf(
					"a dialogue line of %s is %d characters long against a window mean of %.0f",
					l.name, l.length, mean),
				Suggestion: "check whether the line's length fits the speaker's established rhythm",
			})
		}
	}

	return issues
}
