// internal/services/plotline_service.go
package services

import (
	"fmt"
	"strings"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/storage"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/utils"
)

const (
	// neglectGap is how many chapters an important thread may go without
	// development before a neglect issue fires.
	neglectGap = 5
	// neglectImportance is the minimum importance for the neglect check.
	neglectImportance = 3
	// advancementThreshold is how many advancement entries a thread needs
	// before it counts as DEVELOPING rather than freshly INTRODUCED.
	advancementThreshold = 2
)

// PlotlineService drives the plot thread state machine and the
// plot-related consistency checks.
type PlotlineService struct {
	store  *storage.CorpusStore
	logger *utils.Logger
}

// NewPlotlineService creates the service.
func NewPlotlineService(store *storage.CorpusStore) *PlotlineService {
	return &PlotlineService{
		store:  store,
		logger: utils.GetLogger(),
	}
}

// RecomputeStatus derives a plot thread's status from its full development
// history. Terminal statuses are sticky: once RESOLVED or ABANDONED the
// recompute returns the stored status regardless of later entries.
// CLIMAXING is never inferred here; it is reachable only through an
// explicit forced status assignment.
func RecomputeStatus(plotline *models.Plotline) models.PlotlineStatus {
	if plotline.Status.Terminal() {
		return plotline.Status
	}

	for _, dev := range plotline.Developments {
		if dev.Type == models.DevelopmentResolution {
			return models.PlotlineResolved
		}
	}

	if len(plotline.Developments) == 0 {
		return models.PlotlinePlanned
	}

	latest := plotline.Developments[len(plotline.Developments)-1]
	switch latest.Type {
	case models.DevelopmentIntroduction:
		return models.PlotlineIntroduced
	case models.DevelopmentComplication:
		return models.PlotlineComplicated
	case models.DevelopmentAdvancement:
		if plotline.AdvancementCount() >= advancementThreshold {
			return models.PlotlineDeveloping
		}
		return models.PlotlineIntroduced
	default:
		return models.PlotlinePlanned
	}
}

// SyncStatus recomputes a thread's status and writes it back only when it
// differs from the stored value. Returns the derived status and whether a
// write happened.
func (s *PlotlineService) SyncStatus(plotline *models.Plotline) (models.PlotlineStatus, bool, error) {
	derived := RecomputeStatus(plotline)
	if derived == plotline.Status {
		return derived, false, nil
	}

	if err := s.store.UpdatePlotlineStatus(plotline.NovelID, plotline.ID, derived); err != nil {
		return derived, false, err
	}

	s.logger.Info("plotline status updated", map[string]interface{}{
		"novel_id":    plotline.NovelID,
		"plotline_id": plotline.ID,
		"from":        plotline.Status,
		"to":          derived,
	})

	plotline.Status = derived
	return derived, true, nil
}

// ForceStatus assigns a status explicitly, bypassing the state machine.
// This is the only path to CLIMAXING.
func (s *PlotlineService) ForceStatus(novelID, plotlineID string, status models.PlotlineStatus) error {
	if err := s.store.UpdatePlotlineStatus(novelID, plotlineID, status); err != nil {
		return err
	}

	s.logger.Warn("plotline status forced", map[string]interface{}{
		"novel_id":    novelID,
		"plotline_id": plotlineID,
		"status":      status,
	})
	return nil
}

// InferCategory classifies a plot thread from its name and description.
func InferCategory(name, description string) models.PlotlineCategory {
	text := strings.ToLower(name + " " + description)

	switch {
	case containsAny(text, []string{"로맨스", "사랑", "연애", "고백", "romance", "love"}):
		return models.PlotCategoryRomance
	case containsAny(text, []string{"미스터리", "비밀", "정체", "수수께끼", "mystery", "secret"}):
		return models.PlotCategoryMystery
	case containsAny(text, []string{"갈등", "대립", "전쟁", "복수", "conflict", "war", "revenge"}):
		return models.PlotCategoryConflict
	case containsAny(text, []string{"메인", "주선", "중심", "main"}):
		return models.PlotCategoryMain
	default:
		return models.PlotCategorySubplot
	}
}

// reopenMarkers is the "new development" language that flags a resolved
// thread as reopened when it co-occurs with the thread in chapter text.
var reopenMarkers = []string{
	"새로운", "다시", "또다시", "재개", "되살아", "부활",
	"again", "once more", "new development", "resurfaced", "reopened",
}

// ReopenedIssues flags RESOLVED threads that reappear in the chapter text
// together with new-development language.
func (s *PlotlineService) ReopenedIssues(memory *models.StoryMemory, chapterText string) []models.ConsistencyIssue {
	var issues []models.ConsistencyIssue

	for _, plotline := range memory.Plotlines {
		if plotline.Status != models.PlotlineResolved {
			continue
		}
		if !plotlineMentioned(plotline, chapterText) {
			continue
		}
		if !containsAny(chapterText, reopenMarkers) {
			continue
		}

		issues = append(issues, models.ConsistencyIssue{
			Category: models.IssuePlot,
			Severity: models.SeverityHigh,
			Description: fmt.Sprintf(
				"resolved plot thread %q reappears with new development language", plotline.Name),
			Suggestion: fmt.Sprintf(
				"thread %q was resolved at its last resolution entry; either keep it closed or introduce a successor thread instead of silently reopening it", plotline.Name),
		})
	}

	return issues
}

// NeglectIssues flags important non-terminal threads that have not been
// developed within the neglect gap. Neglect is measured against the whole
// corpus, independent of whether the thread appears in the current text.
func (s *PlotlineService) NeglectIssues(memory *models.StoryMemory, currentChapter int) []models.ConsistencyIssue {
	var issues []models.ConsistencyIssue

	for _, plotline := range memory.Plotlines {
		if plotline.Status.Terminal() {
			continue
		}
		if plotline.Importance < neglectImportance {
			continue
		}
		if plotline.LastDevelopedAt == 0 && len(plotline.Developments) == 0 {
			// Never developed at all; handled by unresolved tracking.
			continue
		}
		if currentChapter-plotline.LastDevelopedAt <= neglectGap {
			continue
		}

		issues = append(issues, models.ConsistencyIssue{
			Category: models.IssuePlot,
			Severity: models.SeverityMedium,
			Description: fmt.Sprintf(
				"plot thread %q (importance %d) has not developed since chapter %d",
				plotline.Name, plotline.Importance, plotline.LastDevelopedAt),
			Suggestion: fmt.Sprintf(
				"advance or deliberately close thread %q within the next few chapters", plotline.Name),
		})
	}

	return issues
}

func plotlineMentioned(plotline *models.Plotline, chapterText string) bool {
	if plotline.Name != "" && strings.Contains(chapterText, plotline.Name) {
		return true
	}
	// Keyword fallback: any reasonably specific word of the thread name.
	for _, token := range Tokenize(plotline.Name) {
		if len([]rune(token)) >= 2 && strings.Contains(strings.ToLower(chapterText), token) {
			return true
		}
	}
	return false
}
