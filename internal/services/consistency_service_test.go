// internal/services/consistency_service_test.go
package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/storage"
)

func newDeviationFixture() (*ConsistencyService, *ProfileService, *ProfileCache, *models.Character) {
	embedding := NewEmbeddingService(NewVocabulary([]string{"습니다", "야"}))
	extractor := NewExtractorService()
	profiles := NewProfileService(embedding)
	svc := NewConsistencyService(nil, nil, extractor, embedding, profiles, nil, nil, nil)

	character := &models.Character{ID: "char-1", NovelID: "novel-1", Name: "서연"}
	cache := NewProfileCache()

	return svc, profiles, cache, character
}

func TestScoreSnippetColdStart(t *testing.T) {
	svc, _, cache, character := newDeviationFixture()
	profile := cache.getOrCreate(character.ID, character.Name)

	score := svc.ScoreSnippet(profile, models.Snippet{
		Text:     "야 야 야",
		Category: models.SnippetDialogue,
	})
	if score.Confidence != 0 {
		t.Errorf("empty profile must yield zero confidence, got %f", score.Confidence)
	}
}

func TestScoreSnippetNoVocabularyOverlap(t *testing.T) {
	svc, profiles, cache, character := newDeviationFixture()
	profiles.AddSnippet(cache, character, models.Snippet{Text: "습니다", Category: models.SnippetDialogue})

	score := svc.ScoreSnippet(cache.Get(character.ID), models.Snippet{
		Text:     "전혀 모르는 단어",
		Category: models.SnippetDialogue,
	})
	if score.Confidence != 0 {
		t.Errorf("zero-signal snippet must yield zero confidence, got %f", score.Confidence)
	}
}

func TestScoreSnippetBlendsBaselineAndCategory(t *testing.T) {
	svc, profiles, cache, character := newDeviationFixture()
	for i := 0; i < 5; i++ {
		profiles.AddSnippet(cache, character, models.Snippet{
			Text: "습니다", Category: models.SnippetDialogue, ChapterIndex: i + 1,
		})
	}

	score := svc.ScoreSnippet(cache.Get(character.ID), models.Snippet{
		Text:     "야 야 야 야 습니다",
		Category: models.SnippetDialogue,
	})

	// Both the baseline and every stored dialogue embedding point along the
	// formal-register axis; the blend collapses to cos = 1/sqrt(17).
	want := 1 / math.Sqrt(17)
	if math.Abs(score.Similarity-want) > 1e-9 {
		t.Errorf("similarity = %f, want %f", score.Similarity, want)
	}
	if score.Confidence != 1 {
		t.Errorf("confidence with 5 samples = %f, want 1", score.Confidence)
	}
}

func TestScoreSnippetColdCategoryScalesBaseline(t *testing.T) {
	svc, profiles, cache, character := newDeviationFixture()
	// Action history only; the dialogue category is still cold.
	profiles.AddSnippet(cache, character, models.Snippet{Text: "습니다", Category: models.SnippetAction})

	score := svc.ScoreSnippet(cache.Get(character.ID), models.Snippet{
		Text:     "습니다",
		Category: models.SnippetDialogue,
	})

	// The type-mean term is zero, so only the 0.4-weighted baseline term
	// remains even though the baseline similarity itself is 1.
	if math.Abs(score.Similarity-0.4) > 1e-9 {
		t.Errorf("similarity = %f, want 0.4", score.Similarity)
	}
	if score.Confidence != 0 {
		t.Errorf("confidence with no same-category samples = %f, want 0", score.Confidence)
	}
}

func TestDetectDeviationsFlagsColdCategorySnippet(t *testing.T) {
	svc, profiles, cache, character := newDeviationFixture()
	profiles.AddSnippet(cache, character, models.Snippet{Text: "습니다", Category: models.SnippetAction})

	memory := &models.StoryMemory{
		NovelID:    "novel-1",
		Characters: map[string]*models.Character{character.ID: character},
		Profiles:   cache.All(),
	}

	issues := svc.DetectDeviations(memory, "서연이 말했다. \"습니다\"", 2)
	if len(issues) != 1 {
		t.Fatalf("want exactly 1 cold-category issue, got %d: %v", len(issues), issues)
	}
	// Scaled baseline 0.4 lands in the medium band.
	if issues[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want medium", issues[0].Severity)
	}
	if issues[0].Category != models.IssueCharacter {
		t.Errorf("category = %s, want character", issues[0].Category)
	}
}

func TestDetectDeviationsFlagsRegisterShift(t *testing.T) {
	svc, profiles, cache, character := newDeviationFixture()
	for i := 0; i < 5; i++ {
		profiles.AddSnippet(cache, character, models.Snippet{
			Text: "습니다", Category: models.SnippetDialogue, ChapterIndex: i + 1,
		})
	}

	memory := &models.StoryMemory{
		NovelID:    "novel-1",
		Characters: map[string]*models.Character{character.ID: character},
		Profiles:   cache.All(),
	}

	chapterText := "서연이 말했다. \"야 야 야 야 습니다\""
	issues := svc.DetectDeviations(memory, chapterText, 6)

	if len(issues) != 1 {
		t.Fatalf("want exactly 1 deviation issue, got %d: %v", len(issues), issues)
	}
	issue := issues[0]
	if issue.Category != models.IssueCharacter {
		t.Errorf("category = %s, want character", issue.Category)
	}
	if issue.Severity != models.SeverityHigh {
		t.Errorf("severity = %s, want high", issue.Severity)
	}
	if !strings.Contains(issue.Description, "서연") {
		t.Errorf("issue does not name the character: %q", issue.Description)
	}
	if !strings.Contains(issue.Suggestion, "speech register") {
		t.Errorf("dialogue deviation should suggest a register fix: %q", issue.Suggestion)
	}
}

func TestDetectDeviationsLowSampleKeepsHighSeverity(t *testing.T) {
	svc, profiles, cache, character := newDeviationFixture()
	for i := 0; i < 3; i++ {
		profiles.AddSnippet(cache, character, models.Snippet{
			Text: "습니다", Category: models.SnippetDialogue, ChapterIndex: i + 1,
		})
	}

	memory := &models.StoryMemory{
		NovelID:    "novel-1",
		Characters: map[string]*models.Character{character.ID: character},
		Profiles:   cache.All(),
	}

	// Blended similarity 1/sqrt(17) < 0.3; severity depends on the blend
	// alone, not on how many samples back it.
	issues := svc.DetectDeviations(memory, "서연이 말했다. \"야 야 야 야 습니다\"", 4)
	if len(issues) != 1 {
		t.Fatalf("want exactly 1 deviation issue, got %d: %v", len(issues), issues)
	}
	if issues[0].Severity != models.SeverityHigh {
		t.Errorf("severity with 3 samples = %s, want high", issues[0].Severity)
	}
}

func TestDetectDeviationsColdStartNeverFlags(t *testing.T) {
	svc, _, cache, character := newDeviationFixture()
	cache.getOrCreate(character.ID, character.Name)

	memory := &models.StoryMemory{
		NovelID:    "novel-1",
		Characters: map[string]*models.Character{character.ID: character},
		Profiles:   cache.All(),
	}

	issues := svc.DetectDeviations(memory, "서연이 말했다. \"야 야 야 야\"", 1)
	if len(issues) != 0 {
		t.Errorf("cold-start profile produced issues: %v", issues)
	}
}

func TestSeverityBands(t *testing.T) {
	tests := []struct {
		similarity float64
		want       models.IssueSeverity
	}{
		{0.1, models.SeverityHigh},
		{0.29, models.SeverityHigh},
		{0.3, models.SeverityMedium},
		{0.49, models.SeverityMedium},
		{0.5, models.SeverityLow},
		{0.69, models.SeverityLow},
	}
	for _, tt := range tests {
		if got := severityFor(tt.similarity); got != tt.want {
			t.Errorf("severityFor(%f) = %s, want %s", tt.similarity, got, tt.want)
		}
	}
}

func TestComputeScores(t *testing.T) {
	clean := computeScores(nil, 1)
	if clean.Overall != 100 {
		t.Errorf("no issues must score 100 overall, got %f", clean.Overall)
	}

	scores := computeScores([]models.ConsistencyIssue{
		{Category: models.IssueCharacter, Severity: models.SeverityHigh},
		{Category: models.IssuePlot, Severity: models.SeverityMedium},
		{Category: models.IssuePlot, Severity: models.SeverityMedium},
		{Category: models.IssuePlot, Severity: models.SeverityLow},
	}, 1)

	if want := 100 * 2.0 / 3.0; math.Abs(scores.Character-want) > 1e-9 {
		t.Errorf("character score = %f, want %f", scores.Character, want)
	}
	// More issues than expected checks floors at zero.
	if scores.Plot != 0 {
		t.Errorf("plot score = %f, want 0", scores.Plot)
	}
	if scores.Worldbuilding != 100 || scores.Timeline != 100 {
		t.Error("untouched categories must stay at 100")
	}
}

func TestComputeScoresScalesWithChapters(t *testing.T) {
	issues := []models.ConsistencyIssue{
		{Category: models.IssueCharacter, Severity: models.SeverityMedium},
	}

	// One issue over ten chapters weighs far less than over one chapter.
	one := computeScores(issues, 1)
	ten := computeScores(issues, 10)
	if ten.Character <= one.Character {
		t.Errorf("scaled score %f not above single-chapter score %f", ten.Character, one.Character)
	}
	if want := 100 * 29.0 / 30.0; math.Abs(ten.Character-want) > 1e-9 {
		t.Errorf("character score over 10 chapters = %f, want %f", ten.Character, want)
	}
}

func TestCheckChapterScoresScaleWithCorpusSize(t *testing.T) {
	store, err := storage.NewCorpusStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.CreateNovel(&models.Novel{ID: "novel-1", Title: "회귀자의 검"}); err != nil {
		t.Fatalf("failed to create novel: %v", err)
	}
	for i := 1; i <= 10; i++ {
		err := store.AppendChapter(&models.Chapter{
			NovelID: "novel-1",
			Index:   i,
			Text:    fmt.Sprintf("%d장. 평범한 하루가 지나갔다.", i),
		})
		if err != nil {
			t.Fatalf("failed to append chapter %d: %v", i, err)
		}
	}

	// One important thread, last developed in chapter 1, so the check at
	// chapter 12 raises exactly one plot neglect issue.
	plotline := &models.Plotline{
		ID: "plot-1", NovelID: "novel-1", Name: "흑막의 정체",
		Category: models.PlotCategoryMystery, Importance: 4, Status: models.PlotlinePlanned,
	}
	if err := store.SavePlotline(plotline); err != nil {
		t.Fatalf("failed to save plotline: %v", err)
	}
	err = store.AppendDevelopment("novel-1", "plot-1", models.Development{
		ChapterIndex: 1, Type: models.DevelopmentIntroduction,
	})
	if err != nil {
		t.Fatalf("failed to append development: %v", err)
	}

	embedding := NewEmbeddingService(NewVocabulary([]string{"습니다", "야"}))
	extractor := NewExtractorService()
	profiles := NewProfileService(embedding)
	memory := NewMemoryService(store, extractor, profiles)
	plotlines := NewPlotlineService(store)
	anomalies := NewAnomalyService(extractor)
	qualitative := NewQualitativeService(nil, 0, nil)
	svc := NewConsistencyService(store, memory, extractor, embedding, profiles, plotlines, anomalies, qualitative)

	report, err := svc.CheckChapter(context.Background(), "novel-1", "조용한 밤이었다.", 12, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Category != models.IssuePlot {
		t.Fatalf("want exactly 1 plot issue, got %v", report.Issues)
	}

	// Ten chapters expect 20 plot checks, so a single neglect issue costs
	// 5 points instead of flooring a long novel's plot score.
	if want := 95.0; math.Abs(report.Scores.Plot-want) > 1e-9 {
		t.Errorf("plot score = %f, want %f", report.Scores.Plot, want)
	}
	if report.Scores.Character != 100 {
		t.Errorf("character score = %f, want 100", report.Scores.Character)
	}
}

func TestConfidenceFor(t *testing.T) {
	if got := confidenceFor(0); got != 0 {
		t.Errorf("confidenceFor(0) = %f", got)
	}
	if got := confidenceFor(2); math.Abs(got-0.4) > 1e-9 {
		t.Errorf("confidenceFor(2) = %f, want 0.4", got)
	}
	if got := confidenceFor(9); got != 1 {
		t.Errorf("confidenceFor(9) = %f, want 1", got)
	}
}
