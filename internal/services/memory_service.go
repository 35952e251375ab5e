// internal/services/memory_service.go
package services

import (
	"strings"
	"time"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/storage"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/utils"
)

// MemoryService assembles point-in-time story memory snapshots. Snapshots
// are rebuilt from persisted history on every call and never cached across
// requests.
type MemoryService struct {
	store     *storage.CorpusStore
	extractor *ExtractorService
	profiles  *ProfileService
	logger    *utils.Logger
}

// NewMemoryService creates the service.
func NewMemoryService(store *storage.CorpusStore, extractor *ExtractorService, profiles *ProfileService) *MemoryService {
	return &MemoryService{
		store:     store,
		extractor: extractor,
		profiles:  profiles,
		logger:    utils.GetLogger(),
	}
}

// BuildStoryMemory walks all chapters of a novel in chronological order,
// folding character mentions into profiles, developments into plot thread
// statuses, and worldbuilding into the snapshot. Malformed or empty
// chapters are skipped with a log entry; only persistence failures abort
// the build.
func (s *MemoryService) BuildStoryMemory(novelID string) (*models.StoryMemory, error) {
	chapters, err := s.store.GetChapters(novelID, -1)
	if err != nil {
		return nil, err
	}
	characters, err := s.store.GetCharacters(novelID)
	if err != nil {
		return nil, err
	}
	plotlines, err := s.store.GetPlotlines(novelID)
	if err != nil {
		return nil, err
	}
	world, err := s.store.GetWorld(novelID)
	if err != nil {
		return nil, err
	}

	memory := &models.StoryMemory{
		NovelID:    novelID,
		Characters: make(map[string]*models.Character, len(characters)),
		World:      world,
		BuiltAt:    time.Now(),
	}

	cache := NewProfileCache()
	for i := range characters {
		memory.Characters[characters[i].ID] = &characters[i]
		s.profiles.SeedProfile(cache, &characters[i])
	}

	for _, chapter := range chapters {
		if strings.TrimSpace(chapter.Text) == "" {
			s.logger.Warn("skipping chapter with empty text", map[string]interface{}{
				"novel_id":      novelID,
				"chapter_index": chapter.Index,
			})
			continue
		}

		memory.ChapterCount++
		if chapter.Index > memory.LastChapter {
			memory.LastChapter = chapter.Index
		}

		for i := range characters {
			snippets := s.extractor.Extract(chapter.Text, characters[i].Name)
			for _, snippet := range snippets {
				snippet.ChapterIndex = chapter.Index
				s.profiles.AddSnippet(cache, &characters[i], snippet)
			}
		}

		for _, event := range chapter.Events {
			memory.Timeline = append(memory.Timeline, models.TimelineEntry{
				ChapterIndex: chapter.Index,
				Description:  event.Description,
				Importance:   event.Importance,
			})
		}
	}

	memory.Profiles = cache.All()

	// Plot thread statuses are derived into the snapshot only; writeback
	// happens through the evolution controller.
	memory.Plotlines = make([]*models.Plotline, 0, len(plotlines))
	for i := range plotlines {
		plotline := plotlines[i]
		plotline.Status = RecomputeStatus(&plotline)
		memory.Plotlines = append(memory.Plotlines, &plotline)
	}

	memory.Unresolved = s.collectUnresolved(memory)

	return memory, nil
}

var (
	mysteryMarkers  = []string{"비밀", "정체", "수수께끼", "미스터리", "mystery", "secret"}
	promiseMarkers  = []string{"약속", "맹세", "계약", "promise", "oath", "vow"}
	conflictMarkers = []string{"갈등", "대립", "복수", "전쟁", "conflict", "revenge", "feud"}
)

// collectUnresolved lists narrative debt: important non-terminal threads
// stalled past the neglect gap, plus detected mysteries, promises and
// conflicts that no resolution entry has paid off.
func (s *MemoryService) collectUnresolved(memory *models.StoryMemory) models.UnresolvedState {
	var unresolved models.UnresolvedState

	for _, plotline := range memory.Plotlines {
		if plotline.Status.Terminal() {
			continue
		}
		if plotline.Importance < neglectImportance {
			continue
		}
		if memory.LastChapter-plotline.LastDevelopedAt <= neglectGap {
			continue
		}
		unresolved.Plotlines = append(unresolved.Plotlines, plotline.Name)
	}

	for _, plotline := range memory.Plotlines {
		if plotline.Status.Terminal() {
			continue
		}
		text := plotline.Name + " " + plotline.Description
		switch {
		case plotline.Category == models.PlotCategoryMystery || containsAny(text, mysteryMarkers):
			unresolved.Mysteries = append(unresolved.Mysteries, plotline.Name)
		case plotline.Category == models.PlotCategoryConflict || containsAny(text, conflictMarkers):
			unresolved.Conflicts = append(unresolved.Conflicts, plotline.Name)
		}
	}

	for _, entry := range memory.Timeline {
		if containsAny(entry.Description, promiseMarkers) {
			unresolved.Promises = append(unresolved.Promises, entry.Description)
		}
	}

	return unresolved
}
