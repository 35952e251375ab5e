// internal/services/consistency_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/storage"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/utils"
)

const (
	// ConsistencyThreshold is the blended similarity below which a snippet
	// counts as a deviation from the character's established profile.
	ConsistencyThreshold = 0.7

	// severityHighBelow and severityMediumBelow band a deviation's
	// similarity into a severity.
	severityHighBelow   = 0.3
	severityMediumBelow = 0.5

	// baselineBlendWeight and categoryBlendWeight mix the whole-profile
	// similarity with the same-category similarity.
	baselineBlendWeight = 0.4
	categoryBlendWeight = 0.6

	// fullConfidenceSamples is the same-category sample count at which a
	// verdict reaches full confidence.
	fullConfidenceSamples = 5

	// anomalyWindowSize is how many trailing chapters feed the statistical
	// anomaly pass.
	anomalyWindowSize = 10
)

// perChapterChecks is the expected number of checks one chapter exercises
// in each category; the denominator of the category score.
var perChapterChecks = map[models.IssueCategory]int{
	models.IssueCharacter:     3,
	models.IssuePlot:          2,
	models.IssueWorldbuilding: 1,
	models.IssueTimeline:      1,
}

// ProgressFunc receives stage updates while a chapter check runs.
type ProgressFunc func(stage string, percent int)

// ConsistencyService orchestrates a full chapter check: embedding-based
// character deviations, plot thread checks, statistical anomalies, and the
// optional qualitative pass, merged into one scored report.
type ConsistencyService struct {
	store       *storage.CorpusStore
	memory      *MemoryService
	extractor   *ExtractorService
	embedding   *EmbeddingService
	profiles    *ProfileService
	plotlines   *PlotlineService
	anomalies   *AnomalyService
	qualitative *QualitativeService
	logger      *utils.Logger
}

// NewConsistencyService creates the orchestrator.
func NewConsistencyService(
	store *storage.CorpusStore,
	memory *MemoryService,
	extractor *ExtractorService,
	embedding *EmbeddingService,
	profiles *ProfileService,
	plotlines *PlotlineService,
	anomalies *AnomalyService,
	qualitative *QualitativeService,
) *ConsistencyService {
	return &ConsistencyService{
		store:       store,
		memory:      memory,
		extractor:   extractor,
		embedding:   embedding,
		profiles:    profiles,
		plotlines:   plotlines,
		anomalies:   anomalies,
		qualitative: qualitative,
		logger:      utils.GetLogger(),
	}
}

// ScoreSnippet scores one new snippet against a character profile. The
// similarity blends the whole-profile baseline with the mean similarity to
// stored embeddings of the same category; when the profile has no stored
// embeddings of that category yet, the type-mean term is zero and only the
// scaled baseline term remains, which keeps a category-cold snippet under
// the flagging threshold by construction. Confidence grows with the
// same-category sample size, so sparse profiles yield tentative verdicts.
func (s *ConsistencyService) ScoreSnippet(profile *models.CharacterProfile, snippet models.Snippet) models.DeviationScore {
	vector := s.embedding.Embed(snippet.Text, snippet.Category)
	if IsZeroVector(vector) {
		return models.DeviationScore{
			Similarity:  1,
			Confidence:  0,
			Explanation: "snippet has no vocabulary overlap; no verdict possible",
		}
	}
	if profile == nil || profile.EmbeddingCount() == 0 {
		return models.DeviationScore{
			Similarity:  1,
			Confidence:  0,
			Explanation: "profile has no established history yet",
		}
	}

	baselineSim := Cosine(vector, profile.Baseline)

	sameCategory := profile.Embeddings[snippet.Category]
	if len(sameCategory) == 0 {
		return models.DeviationScore{
			Similarity: baselineBlendWeight * baselineSim,
			Confidence: confidenceFor(0),
			Explanation: fmt.Sprintf("no prior %s history; baseline similarity %.2f scaled by the %.1f blend weight",
				snippet.Category, baselineSim, baselineBlendWeight),
		}
	}

	var categorySum float64
	for _, emb := range sameCategory {
		categorySum += Cosine(vector, emb.Vector)
	}
	categorySim := categorySum / float64(len(sameCategory))

	blended := baselineBlendWeight*baselineSim + categoryBlendWeight*categorySim
	return models.DeviationScore{
		Similarity: blended,
		Confidence: confidenceFor(len(sameCategory)),
		Explanation: fmt.Sprintf("blend of baseline similarity %.2f and %s similarity %.2f over %d sample(s)",
			baselineSim, snippet.Category, categorySim, len(sameCategory)),
	}
}

// confidenceFor maps a same-category sample count to [0, 1].
func confidenceFor(samples int) float64 {
	if samples >= fullConfidenceSamples {
		return 1
	}
	return float64(samples) / float64(fullConfidenceSamples)
}

// DetectDeviations extracts the candidate chapter's snippets per character
// and flags those whose blended similarity falls under the threshold.
// Severity is a pure function of the blended similarity. Only a character
// with no stored embeddings at all is exempt; such a profile carries
// nothing to be inconsistent with yet.
func (s *ConsistencyService) DetectDeviations(memory *models.StoryMemory, chapterText string, chapterIndex int) []models.ConsistencyIssue {
	var issues []models.ConsistencyIssue

	ids := make([]string, 0, len(memory.Characters))
	for id := range memory.Characters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		character := memory.Characters[id]
		profile := memory.Profiles[id]
		if profile == nil || profile.EmbeddingCount() == 0 {
			continue
		}

		for _, snippet := range s.extractor.Extract(chapterText, character.Name) {
			snippet.ChapterIndex = chapterIndex
			score := s.ScoreSnippet(profile, snippet)
			if score.Similarity >= ConsistencyThreshold {
				continue
			}

			severity := severityFor(score.Similarity)

			issues = append(issues, models.ConsistencyIssue{
				Category: models.IssueCharacter,
				Severity: severity,
				Description: fmt.Sprintf("%s shows %s %s deviation (similarity %.2f): %q",
					character.Name, deviationAdjective(severity), snippet.Category,
					score.Similarity, truncateText(snippet.Text, 80)),
				Suggestion: deviationSuggestion(character.Name, snippet.Category, severity),
			})
		}
	}

	return issues
}

func severityFor(similarity float64) models.IssueSeverity {
	switch {
	case similarity < severityHighBelow:
		return models.SeverityHigh
	case similarity < severityMediumBelow:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func deviationAdjective(severity models.IssueSeverity) string {
	switch severity {
	case models.SeverityHigh:
		return "a significant"
	case models.SeverityMedium:
		return "a moderate"
	default:
		return "a minor"
	}
}

func deviationSuggestion(name string, category models.SnippetCategory, severity models.IssueSeverity) string {
	adjective := deviationAdjective(severity)
	switch category {
	case models.SnippetDialogue:
		return fmt.Sprintf("revise %s's lines toward the established speech register, or show %s in-story cause for the shift", name, adjective)
	case models.SnippetAction:
		return fmt.Sprintf("align %s's actions with established behavior, or set up %s turning point beforehand", name, adjective)
	case models.SnippetEmotion:
		return fmt.Sprintf("ground %s's emotional reaction in prior chapters, or soften %s swing", name, adjective)
	default:
		return fmt.Sprintf("reconcile this portrayal of %s with the established profile; it reads as %s break", name, adjective)
	}
}

// CheckChapter runs the full consistency check of a candidate chapter
// against everything established so far. The read-only passes run
// concurrently; the report merges their issues and scores each category.
// progress may be nil.
func (s *ConsistencyService) CheckChapter(ctx context.Context, novelID, chapterText string, chapterIndex int, progress ProgressFunc) (*models.ConsistencyReport, error) {
	report := func(stage string, percent int) {
		if progress != nil {
			progress(stage, percent)
		}
	}

	report("building story memory", 10)
	memory, err := s.memory.BuildStoryMemory(novelID)
	if err != nil {
		return nil, err
	}

	windowCharacters := make([]models.Character, 0, len(memory.Characters))
	for _, character := range memory.Characters {
		windowCharacters = append(windowCharacters, *character)
	}
	sort.Slice(windowCharacters, func(i, j int) bool {
		return windowCharacters[i].ID < windowCharacters[j].ID
	})

	report("running analyses", 30)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		issues []models.ConsistencyIssue
	)
	collect := func(batch []models.ConsistencyIssue) {
		if len(batch) == 0 {
			return
		}
		mu.Lock()
		issues = append(issues, batch...)
		mu.Unlock()
	}

	wg.Add(4)

	go func() {
		defer wg.Done()
		collect(s.DetectDeviations(memory, chapterText, chapterIndex))
	}()

	go func() {
		defer wg.Done()
		collect(s.plotlines.ReopenedIssues(memory, chapterText))
		collect(s.plotlines.NeglectIssues(memory, chapterIndex))
	}()

	go func() {
		defer wg.Done()
		window, err := s.anomalyWindow(novelID, chapterIndex)
		if err != nil {
			s.logger.Warn("anomaly window unavailable, skipping statistical pass", map[string]interface{}{
				"novel_id": novelID,
				"error":    err.Error(),
			})
			return
		}
		collect(s.anomalies.Analyze(windowCharacters, window))
	}()

	go func() {
		defer wg.Done()
		collect(s.qualitative.AnalyzeChapter(ctx, chapterText, memory))
	}()

	wg.Wait()

	report("scoring", 80)

	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank(issues[i].Severity) > severityRank(issues[j].Severity)
	})

	result := &models.ConsistencyReport{
		HasIssues: len(issues) > 0,
		Issues:    issues,
		Scores:    computeScores(issues, memory.ChapterCount),
		Insights:  buildInsights(memory, issues),
	}

	s.logger.Info("chapter consistency check complete", map[string]interface{}{
		"novel_id":      novelID,
		"chapter_index": chapterIndex,
		"issue_count":   len(issues),
		"overall_score": result.Scores.Overall,
	})

	report("done", 100)
	return result, nil
}

// ReportNovel audits the corpus as it stands: plot neglect measured at the
// latest chapter, statistical anomalies over the trailing window, and
// scores scaled by how many chapters have been checked over the novel's
// lifetime. No candidate text is involved, so character deviation and the
// qualitative pass are out of scope here.
func (s *ConsistencyService) ReportNovel(novelID string) (*models.ConsistencyReport, error) {
	memory, err := s.memory.BuildStoryMemory(novelID)
	if err != nil {
		return nil, err
	}

	var issues []models.ConsistencyIssue
	issues = append(issues, s.plotlines.NeglectIssues(memory, memory.LastChapter)...)

	windowCharacters := make([]models.Character, 0, len(memory.Characters))
	for _, character := range memory.Characters {
		windowCharacters = append(windowCharacters, *character)
	}
	sort.Slice(windowCharacters, func(i, j int) bool {
		return windowCharacters[i].ID < windowCharacters[j].ID
	})

	window, err := s.anomalyWindow(novelID, memory.LastChapter)
	if err != nil {
		return nil, err
	}
	issues = append(issues, s.anomalies.Analyze(windowCharacters, window)...)

	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank(issues[i].Severity) > severityRank(issues[j].Severity)
	})

	return &models.ConsistencyReport{
		HasIssues: len(issues) > 0,
		Issues:    issues,
		Scores:    computeScores(issues, memory.ChapterCount),
		Insights:  buildInsights(memory, issues),
	}, nil
}

// anomalyWindow loads the trailing chapters feeding the statistical pass.
func (s *ConsistencyService) anomalyWindow(novelID string, currentChapter int) ([]models.Chapter, error) {
	chapters, err := s.store.GetChapters(novelID, currentChapter)
	if err != nil {
		return nil, err
	}
	if len(chapters) > anomalyWindowSize {
		chapters = chapters[len(chapters)-anomalyWindowSize:]
	}
	return chapters, nil
}

func severityRank(severity models.IssueSeverity) int {
	switch severity {
	case models.SeverityHigh:
		return 3
	case models.SeverityMedium:
		return 2
	default:
		return 1
	}
}

// computeScores turns issue counts into 0-100 category scores. Each
// category expects chapters × perChapterChecks checks; the score is the
// surviving fraction of expected checks, floored at zero.
func computeScores(issues []models.ConsistencyIssue, chapters int) *models.ConsistencyScores {
	if chapters < 1 {
		chapters = 1
	}

	counts := make(map[models.IssueCategory]int)
	for _, issue := range issues {
		counts[issue.Category]++
	}

	scoreFor := func(category models.IssueCategory) float64 {
		expected := chapters * perChapterChecks[category]
		if expected < 1 {
			expected = 1
		}
		remaining := float64(expected-counts[category]) / float64(expected)
		if remaining < 0 {
			remaining = 0
		}
		return 100 * remaining
	}

	scores := &models.ConsistencyScores{
		Character:     scoreFor(models.IssueCharacter),
		Plot:          scoreFor(models.IssuePlot),
		Worldbuilding: scoreFor(models.IssueWorldbuilding),
		Timeline:      scoreFor(models.IssueTimeline),
	}
	scores.Overall = (scores.Character + scores.Plot + scores.Worldbuilding + scores.Timeline) / 4
	return scores
}

// buildInsights summarizes the check for a writer: where the issues
// cluster and what narrative debt is outstanding.
func buildInsights(memory *models.StoryMemory, issues []models.ConsistencyIssue) []string {
	var insights []string

	counts := make(map[models.IssueCategory]int)
	highCount := 0
	for _, issue := range issues {
		counts[issue.Category]++
		if issue.Severity == models.SeverityHigh {
			highCount++
		}
	}

	if len(issues) == 0 {
		insights = append(insights, "chapter is consistent with everything established so far")
	} else {
		var worst models.IssueCategory
		worstCount := 0
		for _, category := range []models.IssueCategory{
			models.IssueCharacter, models.IssuePlot, models.IssueWorldbuilding, models.IssueTimeline,
		} {
			if counts[category] > worstCount {
				worst = category
				worstCount = counts[category]
			}
		}
		insights = append(insights, fmt.Sprintf("issues cluster in the %s layer (%d of %d)", worst, worstCount, len(issues)))
		if highCount > 0 {
			insights = append(insights, fmt.Sprintf("%d high-severity issue(s) should be fixed before publishing", highCount))
		}
	}

	if n := len(memory.Unresolved.Plotlines); n > 0 {
		insights = append(insights, fmt.Sprintf("%d important thread(s) are stalled: %s",
			n, strings.Join(memory.Unresolved.Plotlines, ", ")))
	}
	if n := len(memory.Unresolved.Mysteries); n > 0 {
		insights = append(insights, fmt.Sprintf("%d open mystery thread(s) still owe the reader an answer", n))
	}

	return insights
}
