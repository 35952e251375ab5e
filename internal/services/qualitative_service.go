// internal/services/qualitative_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/llm"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/utils"
)

// maxPromptChars bounds how much chapter text goes into one prompt.
const maxPromptChars = 6000

// QualitativeService is the external judgment collaborator: an LLM pass
// for the checks rules cannot make. Every deterministic engine path works
// without it; a missing, slow or malformed analyzer degrades a check to
// rule-based issues, never fails it.
type QualitativeService struct {
	provider     llm.Provider
	providerName string
	timeout      time.Duration
	usage        *UsageService
	logger       *utils.Logger
	semaphore    chan struct{}
}

// NewQualitativeService creates the service. A nil provider is valid and
// yields a permanently degraded (rule-based-only) analyzer.
func NewQualitativeService(provider llm.Provider, timeout time.Duration, usage *UsageService) *QualitativeService {
	name := "none"
	if provider != nil {
		name = provider.GetName()
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &QualitativeService{
		provider:     provider,
		providerName: name,
		timeout:      timeout,
		usage:        usage,
		logger:       utils.GetLogger(),
		semaphore:    make(chan struct{}, 3),
	}
}

// IsReady reports whether an analyzer backend is configured.
func (s *QualitativeService) IsReady() bool {
	return s.provider != nil
}

type issueDTO struct {
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// AnalyzeChapter runs the qualitative pass over a candidate chapter with
// story context. Timeout, transport errors and malformed responses all log
// and return zero issues.
func (s *QualitativeService) AnalyzeChapter(ctx context.Context, chapterText string, memory *models.StoryMemory) []models.ConsistencyIssue {
	if !s.IsReady() {
		return nil
	}

	s.semaphore <- struct{}{}
	defer func() { <-s.semaphore }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := s.buildChapterPrompt(chapterText, memory)
	systemPrompt := "You are a continuity editor for serialized Korean webnovels. " +
		"Return ONLY a JSON array of issues with this schema: " +
		`[{"category":"character"|"plot"|"worldbuilding"|"timeline",` +
		`"severity":"low"|"medium"|"high","description":string,"suggestion":string}]. ` +
		"Return [] when the chapter is consistent. No markdown, no commentary."

	resp, err := s.provider.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Temperature:  0.3,
	})
	if err != nil {
		s.logger.Warn("qualitative analyzer unavailable, degrading to rule-based issues", map[string]interface{}{
			"novel_id": memory.NovelID,
			"provider": s.providerName,
			"error":    err.Error(),
		})
		return nil
	}

	if s.usage != nil {
		s.usage.RecordAnalyzerCall(resp.TokensUsed)
	}

	var dtos []issueDTO
	if err := json.Unmarshal([]byte(cleanModelJSON(resp.Text)), &dtos); err != nil {
		s.logger.Warn("qualitative analyzer returned malformed JSON, ignoring its issues", map[string]interface{}{
			"novel_id": memory.NovelID,
			"provider": s.providerName,
			"error":    err.Error(),
		})
		return nil
	}

	issues := make([]models.ConsistencyIssue, 0, len(dtos))
	for _, dto := range dtos {
		issue, ok := dto.toIssue()
		if !ok {
			s.logger.Debug("dropping analyzer issue with unknown category", map[string]interface{}{
				"category": dto.Category,
			})
			continue
		}
		issues = append(issues, issue)
	}
	return issues
}

func (dto issueDTO) toIssue() (models.ConsistencyIssue, bool) {
	category := models.IssueCategory(strings.ToLower(dto.Category))
	switch category {
	case models.IssueCharacter, models.IssuePlot, models.IssueWorldbuilding, models.IssueTimeline:
	default:
		return models.ConsistencyIssue{}, false
	}

	severity := models.IssueSeverity(strings.ToLower(dto.Severity))
	switch severity {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh:
	default:
		severity = models.SeverityLow
	}

	if strings.TrimSpace(dto.Description) == "" {
		return models.ConsistencyIssue{}, false
	}

	return models.ConsistencyIssue{
		Category:    category,
		Severity:    severity,
		Description: dto.Description,
		Suggestion:  dto.Suggestion,
	}, true
}

func (s *QualitativeService) buildChapterPrompt(chapterText string, memory *models.StoryMemory) string {
	var b strings.Builder

	b.WriteString("Established characters:\n")
	for _, character := range memory.Characters {
		fmt.Fprintf(&b, "- %s: %s / personality: %s\n",
			character.Name, truncateText(character.Description, 200), truncateText(character.Personality, 200))
	}

	b.WriteString("\nPlot threads:\n")
	for _, plotline := range memory.Plotlines {
		fmt.Fprintf(&b, "- %s [%s, importance %d, last developed ch.%d]\n",
			plotline.Name, plotline.Status, plotline.Importance, plotline.LastDevelopedAt)
	}

	if memory.World != nil && len(memory.World.Rules) > 0 {
		b.WriteString("\nWorld rules:\n")
		for _, rule := range memory.World.Rules {
			fmt.Fprintf(&b, "- [%s] %s\n", rule.Category, truncateText(rule.Rule, 200))
		}
	}

	fmt.Fprintf(&b, "\nCandidate chapter text:\n%s\n", truncateText(chapterText, maxPromptChars))
	b.WriteString("\nList every continuity problem the chapter introduces against the context above.")

	return b.String()
}

type adjustmentDTO struct {
	Field    string `json:"field"`
	NewValue string `json:"new_value"`
	Reason   string `json:"reason"`
}

// SuggestCharacterAdjustments asks the analyzer whether accumulated
// development notes justify overwriting character fields. Returns nil with
// no error when nothing should change; returns an error only when the
// analyzer is unreachable or unparseable, so the caller can decide to skip
// the evolution.
func (s *QualitativeService) SuggestCharacterAdjustments(ctx context.Context, character *models.Character, notes []string) ([]models.CharacterAdjustment, error) {
	if !s.IsReady() {
		return nil, fmt.Errorf("qualitative analyzer is not configured")
	}

	s.semaphore <- struct{}{}
	defer func() { <-s.semaphore }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var b strings.Builder
	fmt.Fprintf(&b, "Character %s\ndescription: %s\npersonality: %s\nbackground: %s\n\n",
		character.Name, character.Description, character.Personality, character.Background)
	b.WriteString("Accumulated development notes:\n")
	for _, note := range notes {
		fmt.Fprintf(&b, "- %s\n", truncateText(note, 300))
	}
	b.WriteString("\nDecide whether the notes justify updating any of the fields " +
		"description, personality, background. Only propose a change when the notes " +
		"clearly establish it.")

	systemPrompt := "You are a continuity editor maintaining character records for a serialized novel. " +
		"Return ONLY a JSON array: " +
		`[{"field":"description"|"personality"|"background","new_value":string,"reason":string}]. ` +
		"Return [] when nothing should change."

	resp, err := s.provider.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       b.String(),
		SystemPrompt: systemPrompt,
		Temperature:  0.2,
	})
	if err != nil {
		return nil, err
	}

	if s.usage != nil {
		s.usage.RecordAnalyzerCall(resp.TokensUsed)
	}

	var dtos []adjustmentDTO
	if err := json.Unmarshal([]byte(cleanModelJSON(resp.Text)), &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse analyzer adjustments: %w", err)
	}

	adjustments := make([]models.CharacterAdjustment, 0, len(dtos))
	for _, dto := range dtos {
		field := strings.ToLower(strings.TrimSpace(dto.Field))
		if !models.EvolvableCharacterFields[field] {
			s.logger.Debug("dropping adjustment for non-evolvable field", map[string]interface{}{
				"character_id": character.ID,
				"field":        dto.Field,
			})
			continue
		}
		if strings.TrimSpace(dto.NewValue) == "" {
			continue
		}
		adjustments = append(adjustments, models.CharacterAdjustment{
			Field:    field,
			NewValue: dto.NewValue,
			Reason:   dto.Reason,
		})
	}
	return adjustments, nil
}

// cleanModelJSON strips markdown fences and surrounding prose from a model
// response, returning the first balanced JSON value.
func cleanModelJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "[{")
	if start == -1 {
		return text
	}
	text = text[start:]

	opening := text[0]
	var closing byte = ']'
	if opening == '{' {
		closing = '}'
	}

	balance := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if c == opening {
			balance++
		} else if c == closing {
			balance--
			if balance == 0 {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}

	return strings.TrimSpace(text)
}

func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
