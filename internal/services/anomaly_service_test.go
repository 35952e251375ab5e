// internal/services/anomaly_service_test.go
package services

import (
	"strings"
	"testing"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
)

func TestAnalyzeFlagsConcentratedMentions(t *testing.T) {
	svc := NewAnomalyService(NewExtractorService())

	characters := []models.Character{{ID: "char-1", NovelID: "novel-1", Name: "서연"}}
	chapters := []models.Chapter{
		{NovelID: "novel-1", Index: 1, Text: strings.Repeat("서연은 달렸다. ", 12)},
		{NovelID: "novel-1", Index: 2, Text: "민준은 홀로 남았다."},
		{NovelID: "novel-1", Index: 3, Text: "왕궁은 조용했다."},
		{NovelID: "novel-1", Index: 4, Text: "아카데미의 아침이 밝았다."},
	}

	issues := svc.Analyze(characters, chapters)
	if len(issues) != 1 {
		t.Fatalf("want exactly 1 issue, got %d: %v", len(issues), issues)
	}
	if issues[0].Severity != models.SeverityMedium || issues[0].Category != models.IssueCharacter {
		t.Errorf("issue = %s/%s, want character/medium", issues[0].Category, issues[0].Severity)
	}
	if !strings.Contains(issues[0].Description, "서연") {
		t.Errorf("issue does not name the character: %q", issues[0].Description)
	}
}

func TestAnalyzeSpreadMentionsAreFine(t *testing.T) {
	svc := NewAnomalyService(NewExtractorService())

	characters := []models.Character{{ID: "char-1", NovelID: "novel-1", Name: "서연"}}
	chapters := []models.Chapter{
		{Index: 1, Text: strings.Repeat("서연은 달렸다. ", 4)},
		{Index: 2, Text: strings.Repeat("서연은 달렸다. ", 4)},
		{Index: 3, Text: strings.Repeat("서연은 달렸다. ", 4)},
	}

	if issues := svc.Analyze(characters, chapters); len(issues) != 0 {
		t.Errorf("spread mentions flagged: %v", issues)
	}
}

func TestAnalyzeFlagsDialogueLengthOutliers(t *testing.T) {
	svc := NewAnomalyService(NewExtractorService())

	characters := []models.Character{{ID: "char-1", NovelID: "novel-1", Name: "민준"}}
	long := strings.Repeat("가", 90)
	short := strings.Repeat("가", 10)
	chapters := []models.Chapter{
		{Index: 1, Text: "민준이 말했다. \"" + long + "\""},
		{Index: 2, Text: "민준이 말했다. \"" + short + "\""},
	}

	issues := svc.Analyze(characters, chapters)
	if len(issues) != 1 {
		t.Fatalf("want exactly 1 outlier issue, got %d: %v", len(issues), issues)
	}
	if issues[0].Severity != models.SeverityLow {
		t.Errorf("severity = %s, want low", issues[0].Severity)
	}
}

func TestWindowStats(t *testing.T) {
	svc := NewAnomalyService(NewExtractorService())

	characters := []models.Character{
		{ID: "char-1", Name: "서연"},
		{ID: "char-2", Name: "민준"},
	}
	chapters := []models.Chapter{
		{Index: 1, Text: "서연은 검을 잡았다. \"서연, 가자.\" 민준이 말했다."},
		{Index: 2, Text: "서연은 조용히 웃었다."},
	}

	stats := svc.WindowStats(characters, chapters)
	if stats["char-1"].DistinctChapters != 2 {
		t.Errorf("서연 distinct chapters = %d, want 2", stats["char-1"].DistinctChapters)
	}
	if stats["char-2"].DistinctChapters != 1 {
		t.Errorf("민준 distinct chapters = %d, want 1", stats["char-2"].DistinctChapters)
	}
	if stats["char-1"].ActionCount == 0 {
		t.Error("서연 action count must be positive")
	}
}
