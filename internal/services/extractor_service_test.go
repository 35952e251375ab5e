// internal/services/extractor_service_test.go
package services

import (
	"strings"
	"testing"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
)

func countCategory(snippets []models.Snippet, category models.SnippetCategory) int {
	n := 0
	for _, s := range snippets {
		if s.Category == category {
			n++
		}
	}
	return n
}

func TestExtractAbsentCharacterYieldsNothing(t *testing.T) {
	svc := NewExtractorService()

	if got := svc.Extract("민준은 조용히 걸었다.", "서연"); got != nil {
		t.Errorf("absent character produced %d snippets, want none", len(got))
	}
	if got := svc.Extract("", "서연"); got != nil {
		t.Error("empty chapter text must produce no snippets")
	}
}

func TestExtractDialogueAttribution(t *testing.T) {
	svc := NewExtractorService()

	text := "서연이 말했다. \"오늘은 날씨가 좋네요.\""
	snippets := svc.Extract(text, "서연")

	if countCategory(snippets, models.SnippetDialogue) != 1 {
		t.Fatalf("want 1 dialogue snippet, got %d (all: %v)", countCategory(snippets, models.SnippetDialogue), snippets)
	}
	for _, s := range snippets {
		if s.Category == models.SnippetDialogue && s.Text != "오늘은 날씨가 좋네요." {
			t.Errorf("dialogue text = %q", s.Text)
		}
	}
}

func TestExtractDialogueOutsideWindowIsNotAttributed(t *testing.T) {
	svc := NewExtractorService()

	// Name sits more than 80 runes before the quote, same paragraph.
	padding := strings.Repeat("그리고 ", 30) // 120 runes
	text := "서연은 떠났다 " + padding + "\"누구의 말인지 알 수 없다\""
	snippets := svc.Extract(text, "서연")

	if n := countCategory(snippets, models.SnippetDialogue); n != 0 {
		t.Errorf("distant quote attributed anyway: %d dialogue snippets", n)
	}
}

func TestExtractCornerBrackets(t *testing.T) {
	svc := NewExtractorService()

	text := "민준이 「돌아가자」 라고 중얼거렸다."
	snippets := svc.Extract(text, "민준")

	if countCategory(snippets, models.SnippetDialogue) != 1 {
		t.Errorf("corner-bracket dialogue not extracted: %v", snippets)
	}
}

func TestExtractActionAndEmotion(t *testing.T) {
	svc := NewExtractorService()

	text := "서연은 검을 잡았다. 서연은 눈물을 참지 못했다."
	snippets := svc.Extract(text, "서연")

	if countCategory(snippets, models.SnippetAction) != 1 {
		t.Errorf("want 1 action snippet, got %d", countCategory(snippets, models.SnippetAction))
	}
	if countCategory(snippets, models.SnippetEmotion) != 1 {
		t.Errorf("want 1 emotion snippet, got %d", countCategory(snippets, models.SnippetEmotion))
	}
}

func TestExtractDescriptionFallback(t *testing.T) {
	svc := NewExtractorService()

	text := "서연은 아카데미에서 가장 조용한 학생이다."
	snippets := svc.Extract(text, "서연")

	if countCategory(snippets, models.SnippetDescription) != 1 {
		t.Errorf("want 1 description snippet, got %v", snippets)
	}
}

func TestExtractSentenceCanBeBothActionAndEmotion(t *testing.T) {
	svc := NewExtractorService()

	text := "서연은 눈물을 흘리며 달렸다."
	snippets := svc.Extract(text, "서연")

	if countCategory(snippets, models.SnippetAction) != 1 || countCategory(snippets, models.SnippetEmotion) != 1 {
		t.Errorf("sentence should yield both action and emotion, got %v", snippets)
	}
	if countCategory(snippets, models.SnippetDescription) != 0 {
		t.Error("typed sentence must not also fall back to description")
	}
}
