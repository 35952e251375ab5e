// internal/services/embedding_service.go
package services

import (
	"math"
	"strings"
	"unicode"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
)

// EmbeddingDim is the fixed dimensionality of every embedding vector.
const EmbeddingDim = 384

// EmbeddingService turns text snippets into fixed-length vectors via
// weighted term-frequency projection into the vocabulary index.
type EmbeddingService struct {
	vocab *Vocabulary
}

// NewEmbeddingService creates the service over a vocabulary.
func NewEmbeddingService(vocab *Vocabulary) *EmbeddingService {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &EmbeddingService{vocab: vocab}
}

// Embed converts text into an L2-normalized vector. Tokens outside the
// vocabulary are ignored, so text with no vocabulary overlap yields an
// all-zero vector that callers must treat as "no signal".
func (s *EmbeddingService) Embed(text string, category models.SnippetCategory) []float64 {
	vector := make([]float64, EmbeddingDim)

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return vector
	}

	freq := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freq[token]++
	}

	weight := s.vocab.CategoryWeight(category)
	for token, count := range freq {
		idx, known := s.vocab.Lookup(token)
		if !known {
			continue
		}
		vector[idx%EmbeddingDim] += float64(count) * weight
	}

	normalize(vector)
	return vector
}

// Cosine computes cosine similarity in [-1, 1]. Similarity against a zero
// vector is 0 by definition, never NaN.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim
}

// IsZeroVector reports whether the vector carries no signal.
func IsZeroVector(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func normalize(v []float64) {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
}

type tokenScript int

const (
	scriptNone tokenScript = iota
	scriptHangul
	scriptLatin
	scriptHan
	scriptDigit
	scriptOther
)

func scriptOf(r rune) tokenScript {
	switch {
	case unicode.Is(unicode.Hangul, r):
		return scriptHangul
	case r <= unicode.MaxASCII && unicode.IsLetter(r):
		return scriptLatin
	case unicode.Is(unicode.Han, r):
		return scriptHan
	case unicode.IsDigit(r):
		return scriptDigit
	case unicode.IsLetter(r):
		return scriptOther
	default:
		return scriptNone
	}
}

// Tokenize lowercases the text, strips punctuation, and splits on
// whitespace and on script boundaries (Hangul / Latin / Han / digits), so
// mixed strings like "S급헌터" split into usable terms.
func Tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var current strings.Builder
	currentScript := scriptNone

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		currentScript = scriptNone
	}

	for _, r := range text {
		script := scriptOf(r)
		if script == scriptNone {
			flush()
			continue
		}
		if currentScript != scriptNone && script != currentScript {
			flush()
		}
		currentScript = script
		current.WriteRune(r)
	}
	flush()

	return tokens
}
