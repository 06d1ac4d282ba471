package models

import "time"

// Issue types a sentence comment may carry.
var IssueTypes = []string{"grammar", "clarity", "style", "tone", "logic", "conciseness"}

// Severities a sentence comment may carry.
var Severities = []string{"high", "medium", "low"}

// User dispositions accepted on a prior suggestion.
const (
	ActionResolved = "resolved"
	ActionRejected = "rejected"
)

// SentenceComment is one structured suggestion inside an analysis,
// anchored to a character span of the submitted text.
type SentenceComment struct {
	ID                  string  `json:"id"`
	OriginalText        string  `json:"original_text"`
	StartIndex          int     `json:"start_index"`
	EndIndex            int     `json:"end_index"`
	IssueType           string  `json:"issue_type"`
	Severity            string  `json:"severity"`
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	Suggestion          string  `json:"suggestion"`
	ImprovementFeedback *string `json:"improvement_feedback,omitempty"`
}

// DimensionEvaluation scores one rubric dimension of a submission.
type DimensionEvaluation struct {
	Level     string `json:"level"`
	Reasoning string `json:"reasoning"`
}

// TextAnalysis is the validated AI feedback for one submitted version.
type TextAnalysis struct {
	ID                string                         `json:"analysis_id"`
	WorkID            string                         `json:"-"`
	UserEmail         string                         `json:"-"`
	VersionNumber     int                            `json:"version_number"`
	TextSnapshot      string                         `json:"-"`
	FAOComment        string                         `json:"fao_comment"`
	SentenceComments  []SentenceComment              `json:"sentence_comments"`
	ReflectionComment *string                        `json:"reflection_comment,omitempty"`
	RubricEvaluation  map[string]DimensionEvaluation `json:"rubric_evaluation,omitempty"`
	CreatedAt         time.Time                      `json:"created_at"`
}

// SuggestionAction is the caller-supplied disposition for one prior
// suggestion, keyed by suggestion id in submit requests.
type SuggestionAction struct {
	Action   string `json:"action"`
	UserNote string `json:"user_note,omitempty"`
}

// SuggestionResolution records one disposition persisted during a
// 2nd+ submission. ResolutionStatus and LLMFeedback are reserved.
type SuggestionResolution struct {
	ID               string    `json:"id"`
	WorkID           string    `json:"work_id"`
	AnalysisID       string    `json:"analysis_id"`
	SuggestionID     string    `json:"suggestion_id"`
	FromVersion      int       `json:"from_version"`
	ToVersion        int       `json:"to_version"`
	UserAction       string    `json:"user_action"`
	UserNote         *string   `json:"user_note,omitempty"`
	ResolutionStatus *string   `json:"resolution_status,omitempty"`
	LLMFeedback      *string   `json:"llm_feedback,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
