// internal/services/embedding_service_test.go
package services

import (
	"math"
	"reflect"
	"testing"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
)

func TestTokenizeSplitsOnScriptBoundaries(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "korean with punctuation",
			text: "서연은 검을 잡았다.",
			want: []string{"서연은", "검을", "잡았다"},
		},
		{
			name: "mixed latin and hangul",
			text: "S급헌터",
			want: []string{"s", "급헌터"},
		},
		{
			name: "digits split from hangul",
			text: "3층 복도",
			want: []string{"3", "층", "복도"},
		},
		{
			name: "empty text",
			text: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestEmbedIsDeterministic(t *testing.T) {
	svc := NewEmbeddingService(nil)

	a := svc.Embed("서연은 마법 검을 잡았다", models.SnippetAction)
	b := svc.Embed("서연은 마법 검을 잡았다", models.SnippetAction)

	if !reflect.DeepEqual(a, b) {
		t.Error("identical text must embed to identical vectors")
	}
	if len(a) != EmbeddingDim {
		t.Errorf("vector length = %d, want %d", len(a), EmbeddingDim)
	}
}

func TestEmbedUnknownTokensYieldZeroVector(t *testing.T) {
	svc := NewEmbeddingService(NewVocabulary([]string{"검", "마법"}))

	v := svc.Embed("완전히 모르는 단어들", models.SnippetDialogue)
	if !IsZeroVector(v) {
		t.Error("text with no vocabulary overlap must embed to the zero vector")
	}
}

func TestEmbedIsUnitLength(t *testing.T) {
	svc := NewEmbeddingService(NewVocabulary([]string{"검", "마법", "왕궁"}))

	v := svc.Embed("검 마법 검", models.SnippetDialogue)
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-9 {
		t.Errorf("embedding norm = %f, want 1", math.Sqrt(norm))
	}
}

func TestCosine(t *testing.T) {
	a := []float64{1, 0, 0}
	b := []float64{0, 1, 0}
	zero := []float64{0, 0, 0}

	if got := Cosine(a, a); math.Abs(got-1) > 1e-9 {
		t.Errorf("Cosine(a, a) = %f, want 1", got)
	}
	if got := Cosine(a, b); math.Abs(got) > 1e-9 {
		t.Errorf("Cosine(a, b) = %f, want 0", got)
	}
	if got := Cosine(a, zero); got != 0 {
		t.Errorf("Cosine against zero vector = %f, want 0", got)
	}
	if got := Cosine(a, []float64{1, 0}); got != 0 {
		t.Errorf("Cosine with mismatched lengths = %f, want 0", got)
	}

	neg := []float64{-1, 0, 0}
	if got := Cosine(a, neg); math.Abs(got+1) > 1e-9 {
		t.Errorf("Cosine(a, -a) = %f, want -1", got)
	}
}

func TestCategoryWeightScalesBeforeNormalization(t *testing.T) {
	vocab := NewVocabulary([]string{"검", "마법"})
	svc := NewEmbeddingService(vocab)

	// Mixing categories changes nothing for single-category vectors after
	// normalization; direction is what matters.
	dialogue := svc.Embed("검", models.SnippetDialogue)
	action := svc.Embed("검", models.SnippetAction)

	if got := Cosine(dialogue, action); math.Abs(got-1) > 1e-9 {
		t.Errorf("same-text embeddings across categories diverge: cos = %f", got)
	}
}
