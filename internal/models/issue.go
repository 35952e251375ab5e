// internal/models/issue.go
package models

// IssueCategory buckets a consistency issue by the narrative layer it hits.
type IssueCategory string

const (
	IssueCharacter     IssueCategory = "character"
	IssuePlot          IssueCategory = "plot"
	IssueWorldbuilding IssueCategory = "worldbuilding"
	IssueTimeline      IssueCategory = "timeline"
)

// IssueSeverity ranks how badly an issue breaks continuity.
type IssueSeverity string

const (
	SeverityLow    IssueSeverity = "low"
	SeverityMedium IssueSeverity = "medium"
	SeverityHigh   IssueSeverity = "high"
)

// ConsistencyIssue is a single detected continuity problem. It is an output
// value only, never persisted.
type ConsistencyIssue struct {
	Category    IssueCategory `json:"category"`
	Severity    IssueSeverity `json:"severity"`
	Description string        `json:"description"`
	Suggestion  string        `json:"suggestion,omitempty"`
}

// ConsistencyScores holds the 0-100 per-category and overall scores.
type ConsistencyScores struct {
	Character     float64 `json:"character"`
	Plot          float64 `json:"plot"`
	Worldbuilding float64 `json:"worldbuilding"`
	Timeline      float64 `json:"timeline"`
	Overall       float64 `json:"overall"`
}

// ConsistencyReport is the shape returned to callers of a chapter check.
type ConsistencyReport struct {
	HasIssues bool               `json:"has_issues"`
	Issues    []ConsistencyIssue `json:"issues"`
	Scores    *ConsistencyScores `json:"scores,omitempty"`
	Insights  []string           `json:"insights,omitempty"`
}
