// internal/services/profile_service.go
package services

import (
	"sync"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
)

// ProfileCache holds the character profiles of one story-memory build. It
// is request-scoped: every public engine operation rebuilds a fresh cache
// from persisted history, so no profile state survives between requests.
type ProfileCache struct {
	mu       sync.RWMutex
	profiles map[string]*models.CharacterProfile
}

// NewProfileCache creates an empty cache.
func NewProfileCache() *ProfileCache {
	return &ProfileCache{
		profiles: make(map[string]*models.CharacterProfile),
	}
}

// Get returns the profile for a character id, or nil.
func (c *ProfileCache) Get(characterID string) *models.CharacterProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profiles[characterID]
}

// All returns the profiles keyed by character id.
func (c *ProfileCache) All() map[string]*models.CharacterProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*models.CharacterProfile, len(c.profiles))
	for id, p := range c.profiles {
		out[id] = p
	}
	return out
}

func (c *ProfileCache) getOrCreate(characterID, name string) *models.CharacterProfile {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, exists := c.profiles[characterID]; exists {
		return p
	}
	p := &models.CharacterProfile{
		CharacterID: characterID,
		Name:        name,
		Embeddings:  make(map[models.SnippetCategory][]models.CategoryEmbedding),
		Baseline:    make([]float64, EmbeddingDim),
	}
	c.profiles[characterID] = p
	return p
}

// ProfileService builds and extends character profiles from snippets.
type ProfileService struct {
	embedding *EmbeddingService
}

// NewProfileService creates the service.
func NewProfileService(embedding *EmbeddingService) *ProfileService {
	return &ProfileService{embedding: embedding}
}

// SeedProfile primes a profile with the character's planned personality
// and description text, so deviation checks have a baseline before the
// first chapter appearance.
func (s *ProfileService) SeedProfile(cache *ProfileCache, character *models.Character) *models.CharacterProfile {
	profile := cache.getOrCreate(character.ID, character.Name)

	if character.Personality != "" {
		s.appendEmbedding(profile, models.Snippet{
			Text:     character.Personality,
			Category: models.SnippetPersonality,
		})
	}
	if character.Description != "" {
		s.appendEmbedding(profile, models.Snippet{
			Text:     character.Description,
			Category: models.SnippetDescription,
		})
	}

	return profile
}

// AddSnippet embeds a snippet and appends it to the character's profile.
// Zero-vector embeddings carry no signal and are not stored.
func (s *ProfileService) AddSnippet(cache *ProfileCache, character *models.Character, snippet models.Snippet) {
	profile := cache.getOrCreate(character.ID, character.Name)
	s.appendEmbedding(profile, snippet)
}

func (s *ProfileService) appendEmbedding(profile *models.CharacterProfile, snippet models.Snippet) {
	vector := s.embedding.Embed(snippet.Text, snippet.Category)
	if IsZeroVector(vector) {
		return
	}

	profile.Embeddings[snippet.Category] = append(profile.Embeddings[snippet.Category], models.CategoryEmbedding{
		SourceText:   snippet.Text,
		Vector:       vector,
		Category:     snippet.Category,
		ChapterIndex: snippet.ChapterIndex,
	})

	s.recomputeBaseline(profile)
}

// recomputeBaseline rebuilds the weighted centroid of all stored
// embeddings (personality 1.5, emotion 1.3, dialogue 1.2, action 1.1,
// description 1.0), normalized back to unit length.
func (s *ProfileService) recomputeBaseline(profile *models.CharacterProfile) {
	baseline := make([]float64, EmbeddingDim)
	var totalWeight float64

	for category, embeddings := range profile.Embeddings {
		weight := category.CategoryWeight()
		for _, emb := range embeddings {
			for i, x := range emb.Vector {
				baseline[i] += x * weight
			}
			totalWeight += weight
		}
	}

	if totalWeight > 0 {
		for i := range baseline {
			baseline[i] /= totalWeight
		}
	}

	normalize(baseline)
	profile.Baseline = baseline
}

// RecordConsistency appends one chapter's verdict to the profile history.
func (s *ProfileService) RecordConsistency(profile *models.CharacterProfile, chapterIndex int, score float64, deviations []string) {
	profile.History = append(profile.History, models.ConsistencyRecord{
		ChapterIndex: chapterIndex,
		Score:        score,
		Deviations:   deviations,
	})
}
