// internal/models/profile.go
package models

// SnippetCategory types a behavioral snippet extracted from chapter text.
type SnippetCategory string

const (
	SnippetPersonality SnippetCategory = "personality"
	SnippetDialogue    SnippetCategory = "dialogue"
	SnippetAction      SnippetCategory = "action"
	SnippetEmotion     SnippetCategory = "emotion"
	SnippetDescription SnippetCategory = "description"
)

// CategoryWeight returns the blending weight used when folding a category's
// embeddings into a character's baseline vector.
func (c SnippetCategory) CategoryWeight() float64 {
	switch c {
	case SnippetPersonality:
		return 1.5
	case SnippetEmotion:
		return 1.3
	case SnippetDialogue:
		return 1.2
	case SnippetAction:
		return 1.1
	default:
		return 1.0
	}
}

// Snippet is one typed behavioral fragment attributed to a character.
type Snippet struct {
	Text         string          `json:"text"`
	Category     SnippetCategory `json:"category"`
	ChapterIndex int             `json:"chapter_index"`
}

// CategoryEmbedding pairs a stored snippet with its embedding vector.
type CategoryEmbedding struct {
	SourceText   string          `json:"source_text"`
	Vector       []float64       `json:"vector"`
	Category     SnippetCategory `json:"category"`
	ChapterIndex int             `json:"chapter_index"`
}

// ConsistencyRecord is one entry of a character's consistency history.
type ConsistencyRecord struct {
	ChapterIndex int      `json:"chapter_index"`
	Score        float64  `json:"score"`
	Deviations   []string `json:"deviations,omitempty"`
}

// CharacterProfile accumulates a character's categorized embeddings plus the
// derived baseline vector. Embeddings only ever append; the baseline is
// recomputed whenever new embeddings arrive.
type CharacterProfile struct {
	CharacterID string                                  `json:"character_id"`
	Name        string                                  `json:"name"`
	Embeddings  map[SnippetCategory][]CategoryEmbedding `json:"embeddings"`
	Baseline    []float64                               `json:"baseline"`
	History     []ConsistencyRecord                     `json:"consistency_history,omitempty"`
}

// EmbeddingCount returns the total number of stored embeddings.
func (p *CharacterProfile) EmbeddingCount() int {
	total := 0
	for _, embs := range p.Embeddings {
		total += len(embs)
	}
	return total
}

// DeviationScore is the similarity verdict for one new snippet.
type DeviationScore struct {
	Similarity  float64 `json:"similarity"`  // [-1, 1]
	Confidence  float64 `json:"confidence"`  // [0, 1], reflects sample size
	Explanation string  `json:"explanation"`
}
