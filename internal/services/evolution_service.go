// internal/services/evolution_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/errors"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/storage"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/utils"
)

// EvolutionService is the auto-evolution controller: the only component
// allowed to overwrite established records. Character evolution requires
// the qualitative analyzer's judgment; plot thread evolution is mechanical
// status recomputation; world evolution is additive merging. Every applied
// mutation leaves an audit record.
type EvolutionService struct {
	store       *storage.CorpusStore
	plotlines   *PlotlineService
	qualitative *QualitativeService
	locks       *LockManager
	logger      *utils.Logger
}

// NewEvolutionService creates the controller.
func NewEvolutionService(store *storage.CorpusStore, plotlines *PlotlineService, qualitative *QualitativeService, locks *LockManager) *EvolutionService {
	return &EvolutionService{
		store:       store,
		plotlines:   plotlines,
		qualitative: qualitative,
		locks:       locks,
		logger:      utils.GetLogger(),
	}
}

// EvolveCharacter applies analyzer-approved field changes to a character
// based on accumulated development notes. Requires at least one note and a
// configured analyzer; when the analyzer proposes nothing, the character is
// untouched and no record is written. The returned record lists exactly the
// changes applied as one atomic batch.
func (s *EvolutionService) EvolveCharacter(ctx context.Context, novelID, characterID string, notes []string) (*models.EvolutionRecord, error) {
	trimmed := make([]string, 0, len(notes))
	for _, note := range notes {
		if strings.TrimSpace(note) != "" {
			trimmed = append(trimmed, note)
		}
	}
	if len(trimmed) == 0 {
		return nil, apperrors.NewValidationError("character evolution requires at least one development note", nil)
	}
	if !s.qualitative.IsReady() {
		return nil, apperrors.NewAnalyzerUnavailableError("character evolution requires the qualitative analyzer", nil)
	}

	var record *models.EvolutionRecord
	err := s.locks.WithEntityLock(characterID, func() error {
		character, err := s.store.GetCharacter(novelID, characterID)
		if err != nil {
			return err
		}

		adjustments, err := s.qualitative.SuggestCharacterAdjustments(ctx, character, trimmed)
		if err != nil {
			return apperrors.NewAnalyzerUnavailableError("analyzer could not evaluate the development notes", err)
		}
		if len(adjustments) == 0 {
			s.logger.Info("analyzer proposed no character changes", map[string]interface{}{
				"novel_id":     novelID,
				"character_id": characterID,
				"note_count":   len(trimmed),
			})
			return nil
		}

		fields := make(map[string]string, len(adjustments))
		changes := make([]models.FieldChange, 0, len(adjustments))
		for _, adj := range adjustments {
			if !models.EvolvableCharacterFields[adj.Field] {
				return apperrors.NewValidationError(
					fmt.Sprintf("field is not evolvable: %s", adj.Field), nil)
			}
			fields[adj.Field] = adj.NewValue
			changes = append(changes, models.FieldChange{
				Field:    adj.Field,
				OldValue: characterFieldValue(character, adj.Field),
				NewValue: adj.NewValue,
				Reason:   adj.Reason,
			})
		}

		if err := s.store.UpdateCharacterFields(novelID, characterID, fields); err != nil {
			return err
		}

		record = &models.EvolutionRecord{
			ID:         fmt.Sprintf("evo-%s-%d", characterID, time.Now().UnixNano()),
			NovelID:    novelID,
			EntityType: "character",
			EntityID:   characterID,
			Changes:    changes,
			AppliedAt:  time.Now(),
		}
		if err := s.store.AppendEvolutionRecord(record); err != nil {
			return err
		}

		s.logger.Info("character evolved", map[string]interface{}{
			"novel_id":     novelID,
			"character_id": characterID,
			"change_count": len(changes),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func characterFieldValue(character *models.Character, field string) string {
	switch field {
	case "description":
		return character.Description
	case "personality":
		return character.Personality
	case "background":
		return character.Background
	}
	return ""
}

// EvolvePlotline recomputes a thread's status from its development history
// and writes it back when it changed. No analyzer involvement; the state
// machine is the sole authority. A no-op sync writes no audit record.
func (s *EvolutionService) EvolvePlotline(novelID, plotlineID string) (*models.EvolutionRecord, error) {
	var record *models.EvolutionRecord
	err := s.locks.WithEntityLock(plotlineID, func() error {
		plotline, err := s.store.GetPlotline(novelID, plotlineID)
		if err != nil {
			return err
		}

		previous := plotline.Status
		derived, changed, err := s.plotlines.SyncStatus(plotline)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		record = &models.EvolutionRecord{
			ID:         fmt.Sprintf("evo-%s-%d", plotlineID, time.Now().UnixNano()),
			NovelID:    novelID,
			EntityType: "plotline",
			EntityID:   plotlineID,
			Changes: []models.FieldChange{{
				Field:    "status",
				OldValue: string(previous),
				NewValue: string(derived),
				Reason:   "derived from development history",
			}},
			AppliedAt: time.Now(),
		}
		return s.store.AppendEvolutionRecord(record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// MergeWorldElements folds new elements into existing worldbuilding state
// without ever removing anything. Locations append with containment
// dedupe; cultures and magic system text concatenate when genuinely new;
// rules append by id or rule-text identity. Merging the same payload twice
// is a no-op the second time.
func MergeWorldElements(world *models.WorldBuilding, elements *models.WorldElements) models.WorldMergeResult {
	result := models.WorldMergeResult{ElementsAdded: []string{}}
	if elements == nil {
		return result
	}

	for _, location := range elements.Locations {
		location = strings.TrimSpace(location)
		if location == "" || containsString(world.Locations, location) {
			continue
		}
		world.Locations = append(world.Locations, location)
		result.ElementsAdded = append(result.ElementsAdded, "location: "+location)
	}

	if addition := strings.TrimSpace(elements.Cultures); addition != "" && !strings.Contains(world.Cultures, addition) {
		world.Cultures = concatWorldText(world.Cultures, addition)
		result.ElementsAdded = append(result.ElementsAdded, "cultures")
	}

	if addition := strings.TrimSpace(elements.MagicSystem); addition != "" && !strings.Contains(world.MagicSystem, addition) {
		world.MagicSystem = concatWorldText(world.MagicSystem, addition)
		result.ElementsAdded = append(result.ElementsAdded, "magic_system")
	}

	for _, rule := range elements.Rules {
		if strings.TrimSpace(rule.Rule) == "" || worldRuleExists(world.Rules, rule) {
			continue
		}
		world.Rules = append(world.Rules, rule)
		result.ElementsAdded = append(result.ElementsAdded, "rule: "+rule.Rule)
	}

	return result
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func concatWorldText(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + "\n" + addition
}

func worldRuleExists(rules []models.WorldRule, candidate models.WorldRule) bool {
	for _, rule := range rules {
		if candidate.ID != "" && rule.ID == candidate.ID {
			return true
		}
		if rule.Rule == candidate.Rule {
			return true
		}
	}
	return false
}

// MergeWorldBuilding loads the novel's world state, merges the elements in
// and persists the result. Writes only when the merge actually added
// something; the audit record lists the added elements.
func (s *EvolutionService) MergeWorldBuilding(novelID string, elements *models.WorldElements) (*models.WorldMergeResult, error) {
	var result models.WorldMergeResult
	err := s.locks.WithEntityLock("world:"+novelID, func() error {
		world, err := s.store.GetWorld(novelID)
		if err != nil {
			return err
		}

		result = MergeWorldElements(world, elements)
		if len(result.ElementsAdded) == 0 {
			return nil
		}

		if err := s.store.SaveWorld(world); err != nil {
			return err
		}

		changes := make([]models.FieldChange, 0, len(result.ElementsAdded))
		for _, added := range result.ElementsAdded {
			changes = append(changes, models.FieldChange{
				Field:    "world",
				NewValue: added,
				Reason:   "additive worldbuilding merge",
			})
		}
		record := &models.EvolutionRecord{
			ID:         fmt.Sprintf("evo-world-%s-%d", novelID, time.Now().UnixNano()),
			NovelID:    novelID,
			EntityType: "world",
			EntityID:   novelID,
			Changes:    changes,
			AppliedAt:  time.Now(),
		}
		if err := s.store.AppendEvolutionRecord(record); err != nil {
			return err
		}

		s.logger.Info("worldbuilding merged", map[string]interface{}{
			"novel_id":       novelID,
			"elements_added": len(result.ElementsAdded),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
