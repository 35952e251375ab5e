// internal/storage/corpus.go
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	apperrors "github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/errors"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
)

const (
	novelFile      = "novel.json"
	chaptersFile   = "chapters.json"
	charactersFile = "characters.json"
	plotlinesFile  = "plotlines.json"
	worldFile      = "world.json"
	evolutionFile  = "evolution_log.json"
)

// CorpusStore is the file-backed corpus reader and mutation sink. Chapters
// are returned ordered by index; gaps in numbering are tolerated and never
// reordered.
type CorpusStore struct {
	files *FileStorage

	// Serializes read-modify-write sequences per novel.
	novelLocks sync.Map // novelID -> *sync.Mutex
}

// NewCorpusStore creates a corpus store rooted at dataDir/novels.
func NewCorpusStore(dataDir string) (*CorpusStore, error) {
	files, err := NewFileStorage(filepath.Join(dataDir, "novels"))
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to initialize corpus storage", err)
	}
	return &CorpusStore{files: files}, nil
}

func (s *CorpusStore) novelLock(novelID string) *sync.Mutex {
	value, _ := s.novelLocks.LoadOrStore(novelID, &sync.Mutex{})
	return value.(*sync.Mutex)
}

func (s *CorpusStore) novelDir(novelID string) string {
	return novelID
}

func isMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// CreateNovel persists a new novel record.
func (s *CorpusStore) CreateNovel(novel *models.Novel) error {
	if novel.ID == "" {
		return apperrors.NewValidationError("novel id is required", nil)
	}

	lock := s.novelLock(novel.ID)
	lock.Lock()
	defer lock.Unlock()

	if s.files.FileExists(s.novelDir(novel.ID), novelFile) {
		return apperrors.NewConflictError(fmt.Sprintf("novel already exists: %s", novel.ID), nil)
	}

	novel.CreatedAt = time.Now()
	novel.LastUpdated = novel.CreatedAt

	if err := s.files.SaveJSONFile(s.novelDir(novel.ID), novelFile, novel); err != nil {
		return apperrors.NewPersistenceError("failed to save novel", err)
	}
	return nil
}

// GetNovel loads a novel record.
func (s *CorpusStore) GetNovel(novelID string) (*models.Novel, error) {
	var novel models.Novel
	if err := s.files.LoadJSONFile(s.novelDir(novelID), novelFile, &novel); err != nil {
		if isMissing(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("novel not found: %s", novelID), err)
		}
		return nil, apperrors.NewPersistenceError("failed to load novel", err)
	}
	return &novel, nil
}

// ListNovels lists all stored novel ids.
func (s *CorpusStore) ListNovels() ([]string, error) {
	dirs, err := s.files.ListDirs("")
	if err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, apperrors.NewPersistenceError("failed to list novels", err)
	}
	return dirs, nil
}

// GetChapters returns the chapters of a novel ordered by index. A negative
// upTo returns everything; otherwise only chapters with Index <= upTo.
func (s *CorpusStore) GetChapters(novelID string, upTo int) ([]models.Chapter, error) {
	var chapters []models.Chapter
	if err := s.files.LoadJSONFile(s.novelDir(novelID), chaptersFile, &chapters); err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, apperrors.NewPersistenceError("failed to load chapters", err)
	}

	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].Index < chapters[j].Index
	})

	if upTo < 0 {
		return chapters, nil
	}

	filtered := chapters[:0]
	for _, ch := range chapters {
		if ch.Index <= upTo {
			filtered = append(filtered, ch)
		}
	}
	return filtered, nil
}

// AppendChapter adds a chapter to the corpus and records any plot thread
// developments it carries onto the owning plotlines.
func (s *CorpusStore) AppendChapter(chapter *models.Chapter) error {
	lock := s.novelLock(chapter.NovelID)
	lock.Lock()
	defer lock.Unlock()

	chapters, err := s.GetChapters(chapter.NovelID, -1)
	if err != nil {
		return err
	}

	for _, existing := range chapters {
		if existing.Index == chapter.Index {
			return apperrors.NewConflictError(
				fmt.Sprintf("chapter %d already exists", chapter.Index), nil)
		}
	}

	chapter.CreatedAt = time.Now()
	chapters = append(chapters, *chapter)

	if err := s.files.SaveJSONFile(s.novelDir(chapter.NovelID), chaptersFile, chapters); err != nil {
		return apperrors.NewPersistenceError("failed to save chapters", err)
	}

	for _, dev := range chapter.Developments {
		if err := s.appendDevelopmentLocked(chapter.NovelID, dev.PlotlineID, models.Development{
			ChapterIndex: chapter.Index,
			Type:         dev.Type,
			Description:  dev.Description,
			CreatedAt:    time.Now(),
		}); err != nil {
			return err
		}
	}

	return nil
}

// GetCharacters loads all characters of a novel.
func (s *CorpusStore) GetCharacters(novelID string) ([]models.Character, error) {
	var characters []models.Character
	if err := s.files.LoadJSONFile(s.novelDir(novelID), charactersFile, &characters); err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, apperrors.NewPersistenceError("failed to load characters", err)
	}
	return characters, nil
}

// GetCharacter loads a single character by id.
func (s *CorpusStore) GetCharacter(novelID, characterID string) (*models.Character, error) {
	characters, err := s.GetCharacters(novelID)
	if err != nil {
		return nil, err
	}
	for i := range characters {
		if characters[i].ID == characterID {
			return &characters[i], nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("character not found: %s", characterID), nil)
}

// SaveCharacter inserts or replaces a character record. The whole record is
// written in one atomic file replacement, so a batch of field updates either
// lands completely or not at all.
func (s *CorpusStore) SaveCharacter(character *models.Character) error {
	lock := s.novelLock(character.NovelID)
	lock.Lock()
	defer lock.Unlock()

	return s.saveCharacterLocked(character)
}

func (s *CorpusStore) saveCharacterLocked(character *models.Character) error {
	characters, err := s.GetCharacters(character.NovelID)
	if err != nil {
		return err
	}

	character.LastUpdated = time.Now()

	replaced := false
	for i := range characters {
		if characters[i].ID == character.ID {
			characters[i] = *character
			replaced = true
			break
		}
	}
	if !replaced {
		if character.CreatedAt.IsZero() {
			character.CreatedAt = character.LastUpdated
		}
		characters = append(characters, *character)
	}

	if err := s.files.SaveJSONFile(s.novelDir(character.NovelID), charactersFile, characters); err != nil {
		return apperrors.NewPersistenceError("failed to save characters", err)
	}
	return nil
}

// UpdateCharacterFields applies a batch of field overwrites atomically.
// Only description, personality and background may be written this way.
func (s *CorpusStore) UpdateCharacterFields(novelID, characterID string, fields map[string]string) error {
	lock := s.novelLock(novelID)
	lock.Lock()
	defer lock.Unlock()

	character, err := s.GetCharacter(novelID, characterID)
	if err != nil {
		return err
	}

	for field, value := range fields {
		switch field {
		case "description":
			character.Description = value
		case "personality":
			character.Personality = value
		case "background":
			character.Background = value
		default:
			return apperrors.NewValidationError(
				fmt.Sprintf("field is not evolvable: %s", field), nil)
		}
	}

	return s.saveCharacterLocked(character)
}

// GetPlotlines loads all plot threads of a novel.
func (s *CorpusStore) GetPlotlines(novelID string) ([]models.Plotline, error) {
	var plotlines []models.Plotline
	if err := s.files.LoadJSONFile(s.novelDir(novelID), plotlinesFile, &plotlines); err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, apperrors.NewPersistenceError("failed to load plotlines", err)
	}
	return plotlines, nil
}

// GetPlotline loads a single plot thread by id.
func (s *CorpusStore) GetPlotline(novelID, plotlineID string) (*models.Plotline, error) {
	plotlines, err := s.GetPlotlines(novelID)
	if err != nil {
		return nil, err
	}
	for i := range plotlines {
		if plotlines[i].ID == plotlineID {
			return &plotlines[i], nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("plotline not found: %s", plotlineID), nil)
}

// SavePlotline inserts or replaces a plot thread record.
func (s *CorpusStore) SavePlotline(plotline *models.Plotline) error {
	lock := s.novelLock(plotline.NovelID)
	lock.Lock()
	defer lock.Unlock()

	return s.savePlotlineLocked(plotline)
}

func (s *CorpusStore) savePlotlineLocked(plotline *models.Plotline) error {
	plotlines, err := s.GetPlotlines(plotline.NovelID)
	if err != nil {
		return err
	}

	plotline.LastUpdated = time.Now()

	replaced := false
	for i := range plotlines {
		if plotlines[i].ID == plotline.ID {
			plotlines[i] = *plotline
			replaced = true
			break
		}
	}
	if !replaced {
		if plotline.CreatedAt.IsZero() {
			plotline.CreatedAt = plotline.LastUpdated
		}
		plotlines = append(plotlines, *plotline)
	}

	if err := s.files.SaveJSONFile(s.novelDir(plotline.NovelID), plotlinesFile, plotlines); err != nil {
		return apperrors.NewPersistenceError("failed to save plotlines", err)
	}
	return nil
}

func (s *CorpusStore) appendDevelopmentLocked(novelID, plotlineID string, dev models.Development) error {
	plotline, err := s.GetPlotline(novelID, plotlineID)
	if err != nil {
		return err
	}

	plotline.Developments = append(plotline.Developments, dev)
	plotline.LastDevelopedAt = dev.ChapterIndex
	if dev.Type == models.DevelopmentIntroduction && plotline.IntroducedAt == 0 {
		plotline.IntroducedAt = dev.ChapterIndex
	}

	return s.savePlotlineLocked(plotline)
}

// AppendDevelopment appends one development entry to a plot thread.
func (s *CorpusStore) AppendDevelopment(novelID, plotlineID string, dev models.Development) error {
	lock := s.novelLock(novelID)
	lock.Lock()
	defer lock.Unlock()

	return s.appendDevelopmentLocked(novelID, plotlineID, dev)
}

// UpdatePlotlineStatus writes a plot thread status. The write is idempotent:
// storing the current status is a no-op.
func (s *CorpusStore) UpdatePlotlineStatus(novelID, plotlineID string, status models.PlotlineStatus) error {
	if !status.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid plotline status: %s", status), nil)
	}

	lock := s.novelLock(novelID)
	lock.Lock()
	defer lock.Unlock()

	plotline, err := s.GetPlotline(novelID, plotlineID)
	if err != nil {
		return err
	}

	if plotline.Status == status {
		return nil
	}

	plotline.Status = status
	return s.savePlotlineLocked(plotline)
}

// GetWorld loads the worldbuilding state of a novel. A missing file yields
// an empty, usable WorldBuilding.
func (s *CorpusStore) GetWorld(novelID string) (*models.WorldBuilding, error) {
	var world models.WorldBuilding
	if err := s.files.LoadJSONFile(s.novelDir(novelID), worldFile, &world); err != nil {
		if isMissing(err) {
			return &models.WorldBuilding{NovelID: novelID}, nil
		}
		return nil, apperrors.NewPersistenceError("failed to load worldbuilding", err)
	}
	return &world, nil
}

// SaveWorld persists the worldbuilding state.
func (s *CorpusStore) SaveWorld(world *models.WorldBuilding) error {
	lock := s.novelLock(world.NovelID)
	lock.Lock()
	defer lock.Unlock()

	world.LastUpdated = time.Now()
	if err := s.files.SaveJSONFile(s.novelDir(world.NovelID), worldFile, world); err != nil {
		return apperrors.NewPersistenceError("failed to save worldbuilding", err)
	}
	return nil
}

// AppendEvolutionRecord appends one audit record to the evolution log.
func (s *CorpusStore) AppendEvolutionRecord(record *models.EvolutionRecord) error {
	lock := s.novelLock(record.NovelID)
	lock.Lock()
	defer lock.Unlock()

	records, err := s.GetEvolutionRecords(record.NovelID)
	if err != nil {
		return err
	}

	records = append(records, *record)
	if err := s.files.SaveJSONFile(s.novelDir(record.NovelID), evolutionFile, records); err != nil {
		return apperrors.NewPersistenceError("failed to save evolution log", err)
	}
	return nil
}

// GetEvolutionRecords loads the evolution audit log of a novel.
func (s *CorpusStore) GetEvolutionRecords(novelID string) ([]models.EvolutionRecord, error) {
	var records []models.EvolutionRecord
	if err := s.files.LoadJSONFile(s.novelDir(novelID), evolutionFile, &records); err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, apperrors.NewPersistenceError("failed to load evolution log", err)
	}
	return records, nil
}
