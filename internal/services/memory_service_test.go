// internal/services/memory_service_test.go
package services

import (
	"testing"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/storage"
)

func newMemoryFixture(t *testing.T) (*MemoryService, *storage.CorpusStore) {
	t.Helper()

	store, err := storage.NewCorpusStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.CreateNovel(&models.Novel{ID: "novel-1", Title: "회귀한 검사"}); err != nil {
		t.Fatalf("failed to create novel: %v", err)
	}

	embedding := NewEmbeddingService(nil)
	svc := NewMemoryService(store, NewExtractorService(), NewProfileService(embedding))
	return svc, store
}

func TestBuildStoryMemory(t *testing.T) {
	svc, store := newMemoryFixture(t)

	store.SaveCharacter(&models.Character{
		ID: "char-1", NovelID: "novel-1", Name: "서연",
		Personality: "차분하고 신중한 검사",
	})
	store.SavePlotline(&models.Plotline{
		ID: "plot-1", NovelID: "novel-1", Name: "흑막 찾기",
		Category: models.PlotCategoryMystery, Importance: 4,
		Status: models.PlotlinePlanned,
	})

	chapters := []*models.Chapter{
		{
			NovelID: "novel-1", Index: 1,
			Text: "서연은 검을 잡았다. \"시작하죠.\" 서연이 말했다.",
			Events: []models.StoryEvent{
				{ChapterIndex: 1, Description: "서연이 흑막을 쫓기로 약속했다", Importance: 4},
			},
			Developments: []models.DevelopmentRef{
				{PlotlineID: "plot-1", Type: models.DevelopmentIntroduction, Description: "흑막의 흔적 발견"},
			},
		},
		{NovelID: "novel-1", Index: 2, Text: "   "},
		{NovelID: "novel-1", Index: 3, Text: "서연은 조용히 웃었다."},
	}
	for _, ch := range chapters {
		if err := store.AppendChapter(ch); err != nil {
			t.Fatalf("failed to append chapter %d: %v", ch.Index, err)
		}
	}

	memory, err := svc.BuildStoryMemory("novel-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The blank chapter is skipped, not fatal.
	if memory.ChapterCount != 2 {
		t.Errorf("chapter count = %d, want 2", memory.ChapterCount)
	}
	if memory.LastChapter != 3 {
		t.Errorf("last chapter = %d, want 3", memory.LastChapter)
	}

	profile := memory.Profiles["char-1"]
	if profile == nil {
		t.Fatal("character profile missing")
	}
	if profile.EmbeddingCount() == 0 {
		t.Error("profile has no embeddings after two chapters of appearances")
	}
	if IsZeroVector(profile.Baseline) {
		t.Error("baseline is still the zero vector")
	}

	if len(memory.Timeline) != 1 {
		t.Fatalf("timeline has %d entries, want 1", len(memory.Timeline))
	}
	if memory.Timeline[0].ChapterIndex != 1 {
		t.Errorf("timeline entry chapter = %d", memory.Timeline[0].ChapterIndex)
	}

	if len(memory.Plotlines) != 1 {
		t.Fatalf("plotlines = %d, want 1", len(memory.Plotlines))
	}
	if memory.Plotlines[0].Status != models.PlotlineIntroduced {
		t.Errorf("derived status = %s, want INTRODUCED", memory.Plotlines[0].Status)
	}

	// Derivation must not write back to the store.
	stored, err := store.GetPlotline("novel-1", "plot-1")
	if err != nil {
		t.Fatalf("failed to reload plotline: %v", err)
	}
	if stored.Status != models.PlotlinePlanned {
		t.Errorf("snapshot derivation leaked into storage: %s", stored.Status)
	}

	// The promise event surfaces as narrative debt.
	if len(memory.Unresolved.Promises) != 1 {
		t.Errorf("promises = %v, want the chapter-1 promise", memory.Unresolved.Promises)
	}
	// The mystery thread is open, so it is tracked.
	if len(memory.Unresolved.Mysteries) != 1 {
		t.Errorf("mysteries = %v", memory.Unresolved.Mysteries)
	}
}

func TestBuildStoryMemoryEmptyNovel(t *testing.T) {
	svc, _ := newMemoryFixture(t)

	memory, err := svc.BuildStoryMemory("novel-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if memory.ChapterCount != 0 || len(memory.Characters) != 0 {
		t.Errorf("empty novel memory = %+v", memory)
	}
}

func TestBuildStoryMemoryStallsImportantThreads(t *testing.T) {
	svc, store := newMemoryFixture(t)

	store.SavePlotline(&models.Plotline{
		ID: "plot-1", NovelID: "novel-1", Name: "왕위 계승",
		Importance: 5, Status: models.PlotlineDeveloping,
		Developments: []models.Development{
			{ChapterIndex: 1, Type: models.DevelopmentIntroduction},
			{ChapterIndex: 2, Type: models.DevelopmentAdvancement},
			{ChapterIndex: 3, Type: models.DevelopmentAdvancement},
		},
		LastDevelopedAt: 3,
	})

	for i := 1; i <= 10; i++ {
		store.AppendChapter(&models.Chapter{NovelID: "novel-1", Index: i, Text: "평온한 하루였다."})
	}

	memory, err := svc.BuildStoryMemory("novel-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(memory.Unresolved.Plotlines) != 1 {
		t.Errorf("stalled threads = %v, want the succession thread", memory.Unresolved.Plotlines)
	}
}
