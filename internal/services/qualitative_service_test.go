// internal/services/qualitative_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/llm"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
)

type fakeProvider struct {
	response string
	err      error
	lastReq  llm.CompletionRequest
}

func (f *fakeProvider) Initialize(config map[string]string) error { return nil }
func (f *fakeProvider) GetName() string                           { return "fake" }
func (f *fakeProvider) GetSupportedModels() []string              { return []string{"fake-1"} }

func (f *fakeProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Text: f.response, TokensUsed: 42}, nil
}

func testMemory() *models.StoryMemory {
	return &models.StoryMemory{
		NovelID: "novel-1",
		Characters: map[string]*models.Character{
			"char-1": {ID: "char-1", Name: "서연", Personality: "차분하고 신중함"},
		},
		Plotlines: []*models.Plotline{
			{Name: "흑막 찾기", Status: models.PlotlineDeveloping, Importance: 4},
		},
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced array",
			in:   "```json\n[{\"category\":\"plot\"}]\n```",
			want: `[{"category":"plot"}]`,
		},
		{
			name: "prose around object",
			in:   "Here is the result: {\"a\": 1} hope it helps",
			want: `{"a": 1}`,
		},
		{
			name: "brackets inside strings",
			in:   `[{"description":"uses ] and } freely"}] trailing`,
			want: `[{"description":"uses ] and } freely"}]`,
		},
		{
			name: "no json at all",
			in:   "cannot comply",
			want: "cannot comply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.in); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAnalyzeChapterParsesIssues(t *testing.T) {
	provider := &fakeProvider{
		response: `[
			{"category":"timeline","severity":"medium","description":"사흘 전 사건이 어제로 언급됨","suggestion":"시간 표현을 고치세요"},
			{"category":"unknown","severity":"high","description":"dropped"},
			{"category":"plot","severity":"weird","description":"severity falls back to low"}
		]`,
	}
	svc := NewQualitativeService(provider, time.Second, nil)

	issues := svc.AnalyzeChapter(context.Background(), "본문", testMemory())
	if len(issues) != 2 {
		t.Fatalf("want 2 issues, got %d: %v", len(issues), issues)
	}
	if issues[0].Category != models.IssueTimeline || issues[0].Severity != models.SeverityMedium {
		t.Errorf("first issue = %s/%s", issues[0].Category, issues[0].Severity)
	}
	if issues[1].Severity != models.SeverityLow {
		t.Errorf("unknown severity must fall back to low, got %s", issues[1].Severity)
	}
}

func TestAnalyzeChapterDegradesOnFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	svc := NewQualitativeService(provider, time.Second, nil)

	if issues := svc.AnalyzeChapter(context.Background(), "본문", testMemory()); issues != nil {
		t.Errorf("provider failure must degrade to nil issues, got %v", issues)
	}

	malformed := &fakeProvider{response: "this is not json"}
	svc = NewQualitativeService(malformed, time.Second, nil)
	if issues := svc.AnalyzeChapter(context.Background(), "본문", testMemory()); issues != nil {
		t.Errorf("malformed response must degrade to nil issues, got %v", issues)
	}
}

func TestAnalyzeChapterWithoutProvider(t *testing.T) {
	svc := NewQualitativeService(nil, time.Second, nil)

	if svc.IsReady() {
		t.Error("nil provider must not report ready")
	}
	if issues := svc.AnalyzeChapter(context.Background(), "본문", testMemory()); issues != nil {
		t.Errorf("unconfigured analyzer must return nil issues, got %v", issues)
	}
}

func TestSuggestCharacterAdjustments(t *testing.T) {
	provider := &fakeProvider{
		response: `[
			{"field":"personality","new_value":"여전히 신중하지만 결단력이 생김","reason":"10화의 결단"},
			{"field":"name","new_value":"ignored","reason":"not evolvable"},
			{"field":"background","new_value":"","reason":"empty value dropped"}
		]`,
	}
	svc := NewQualitativeService(provider, time.Second, nil)

	character := &models.Character{ID: "char-1", Name: "서연", Personality: "차분하고 신중함"}
	adjustments, err := svc.SuggestCharacterAdjustments(context.Background(), character, []string{"10화에서 결단을 내림"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(adjustments) != 1 {
		t.Fatalf("want 1 adjustment, got %d: %v", len(adjustments), adjustments)
	}
	if adjustments[0].Field != "personality" {
		t.Errorf("field = %s, want personality", adjustments[0].Field)
	}
}

func TestSuggestCharacterAdjustmentsErrors(t *testing.T) {
	svc := NewQualitativeService(nil, time.Second, nil)
	if _, err := svc.SuggestCharacterAdjustments(context.Background(), &models.Character{}, nil); err == nil {
		t.Error("unconfigured analyzer must error for evolution suggestions")
	}

	broken := NewQualitativeService(&fakeProvider{response: "no json here"}, time.Second, nil)
	if _, err := broken.SuggestCharacterAdjustments(context.Background(), &models.Character{}, []string{"note"}); err == nil {
		t.Error("malformed analyzer response must error for evolution suggestions")
	}
}
