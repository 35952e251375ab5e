// internal/services/plotline_service_test.go
package services

import (
	"strings"
	"testing"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
)

func devs(types ...models.DevelopmentType) []models.Development {
	out := make([]models.Development, 0, len(types))
	for i, typ := range types {
		out = append(out, models.Development{ChapterIndex: i + 1, Type: typ})
	}
	return out
}

func TestRecomputeStatus(t *testing.T) {
	tests := []struct {
		name     string
		stored   models.PlotlineStatus
		history  []models.Development
		expected models.PlotlineStatus
	}{
		{
			name:     "no history stays planned",
			stored:   models.PlotlinePlanned,
			history:  nil,
			expected: models.PlotlinePlanned,
		},
		{
			name:     "introduction",
			stored:   models.PlotlinePlanned,
			history:  devs(models.DevelopmentIntroduction),
			expected: models.PlotlineIntroduced,
		},
		{
			name:     "single advancement is still introduced",
			stored:   models.PlotlinePlanned,
			history:  devs(models.DevelopmentIntroduction, models.DevelopmentAdvancement),
			expected: models.PlotlineIntroduced,
		},
		{
			name:   "second advancement reaches developing",
			stored: models.PlotlinePlanned,
			history: devs(models.DevelopmentIntroduction,
				models.DevelopmentAdvancement, models.DevelopmentAdvancement),
			expected: models.PlotlineDeveloping,
		},
		{
			name:     "latest complication wins",
			stored:   models.PlotlinePlanned,
			history:  devs(models.DevelopmentIntroduction, models.DevelopmentComplication),
			expected: models.PlotlineComplicated,
		},
		{
			name:   "resolution anywhere resolves",
			stored: models.PlotlinePlanned,
			history: devs(models.DevelopmentIntroduction,
				models.DevelopmentResolution, models.DevelopmentAdvancement),
			expected: models.PlotlineResolved,
		},
		{
			name:     "abandoned is sticky",
			stored:   models.PlotlineAbandoned,
			history:  devs(models.DevelopmentAdvancement, models.DevelopmentAdvancement),
			expected: models.PlotlineAbandoned,
		},
		{
			name:     "resolved is sticky",
			stored:   models.PlotlineResolved,
			history:  devs(models.DevelopmentIntroduction),
			expected: models.PlotlineResolved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plotline := &models.Plotline{Status: tt.stored, Developments: tt.history}
			if got := RecomputeStatus(plotline); got != tt.expected {
				t.Errorf("RecomputeStatus = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestRecomputeStatusNeverInfersClimaxing(t *testing.T) {
	// CLIMAXING is reachable only through a forced status write; any
	// recompute over history derives a machine status instead.
	plotline := &models.Plotline{
		Status: models.PlotlineClimaxing,
		Developments: devs(models.DevelopmentIntroduction,
			models.DevelopmentAdvancement, models.DevelopmentAdvancement),
	}
	if got := RecomputeStatus(plotline); got == models.PlotlineClimaxing {
		t.Error("recompute must never yield CLIMAXING")
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    models.PlotlineCategory
	}{
		{"서연과 민준의 로맨스", "", models.PlotCategoryRomance},
		{"흑막의 정체", "미스터리한 배후", models.PlotCategoryMystery},
		{"가문의 복수", "", models.PlotCategoryConflict},
		{"메인 스토리", "", models.PlotCategoryMain},
		{"아카데미 생활", "", models.PlotCategorySubplot},
	}

	for _, tt := range tests {
		if got := InferCategory(tt.name, tt.description); got != tt.expected {
			t.Errorf("InferCategory(%q) = %s, want %s", tt.name, got, tt.expected)
		}
	}
}

func TestNeglectIssues(t *testing.T) {
	svc := NewPlotlineService(nil)

	memory := &models.StoryMemory{
		Plotlines: []*models.Plotline{
			{
				Name:            "흑막 찾기",
				Status:          models.PlotlineDeveloping,
				Importance:      4,
				LastDevelopedAt: 10,
				Developments:    devs(models.DevelopmentIntroduction),
			},
			{
				Name:            "사소한 내기",
				Status:          models.PlotlineDeveloping,
				Importance:      2,
				LastDevelopedAt: 1,
				Developments:    devs(models.DevelopmentIntroduction),
			},
			{
				Name:            "끝난 이야기",
				Status:          models.PlotlineResolved,
				Importance:      5,
				LastDevelopedAt: 2,
				Developments:    devs(models.DevelopmentResolution),
			},
		},
	}

	issues := svc.NeglectIssues(memory, 16)
	if len(issues) != 1 {
		t.Fatalf("want exactly 1 neglect issue, got %d: %v", len(issues), issues)
	}
	issue := issues[0]
	if issue.Category != models.IssuePlot || issue.Severity != models.SeverityMedium {
		t.Errorf("issue = %s/%s, want plot/medium", issue.Category, issue.Severity)
	}
	if !strings.Contains(issue.Description, "흑막 찾기") {
		t.Errorf("issue does not name the neglected thread: %q", issue.Description)
	}
}

func TestNeglectIssuesRespectsGapBoundary(t *testing.T) {
	svc := NewPlotlineService(nil)

	memory := &models.StoryMemory{
		Plotlines: []*models.Plotline{{
			Name:            "경계선",
			Status:          models.PlotlineDeveloping,
			Importance:      5,
			LastDevelopedAt: 10,
			Developments:    devs(models.DevelopmentIntroduction),
		}},
	}

	// Exactly at the gap: not yet neglected.
	if issues := svc.NeglectIssues(memory, 15); len(issues) != 0 {
		t.Errorf("gap of exactly 5 chapters flagged: %v", issues)
	}
	// One past the gap: neglected.
	if issues := svc.NeglectIssues(memory, 16); len(issues) != 1 {
		t.Errorf("gap of 6 chapters not flagged: %v", issues)
	}
}

func TestReopenedIssues(t *testing.T) {
	svc := NewPlotlineService(nil)

	memory := &models.StoryMemory{
		Plotlines: []*models.Plotline{{
			Name:   "왕위 계승 분쟁",
			Status: models.PlotlineResolved,
		}},
	}

	text := "끝난 줄 알았던 왕위 계승 분쟁이 다시 수면 위로 떠올랐다."
	issues := svc.ReopenedIssues(memory, text)
	if len(issues) != 1 {
		t.Fatalf("want 1 reopened issue, got %d", len(issues))
	}
	if issues[0].Severity != models.SeverityHigh {
		t.Errorf("reopened issue severity = %s, want high", issues[0].Severity)
	}

	// Mention without new-development language is fine.
	quiet := "왕위 계승 분쟁은 이미 끝난 일이었다."
	if issues := svc.ReopenedIssues(memory, quiet); len(issues) != 0 {
		t.Errorf("plain mention flagged as reopened: %v", issues)
	}
}
