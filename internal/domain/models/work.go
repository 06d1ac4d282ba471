package models

import "time"

// Change types recorded on version rows. Reverts reuse ChangeDraftEdit
// because a revert is just a new draft carrying old content.
const (
	ChangeDraftEdit  = "draft_edit"
	ChangeSubmission = "submission"
)

// Work is a user's essay project: the live content plus the version
// counter that anchors the append-only version ledger.
type Work struct {
	ID             string    `json:"id"`
	UserEmail      string    `json:"-"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	CurrentVersion int       `json:"current_version"`
	WordCount      int       `json:"word_count"`
	EssayPrompt    *string   `json:"essay_prompt,omitempty"`
	Rubric         *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WorkVersion is an immutable snapshot of a work at one version number.
// Submitted versions never carry a parent; drafts chain to the latest
// submission that existed when they were created (nil before the first).
type WorkVersion struct {
	ID                      string    `json:"id"`
	WorkID                  string    `json:"work_id"`
	UserEmail               string    `json:"-"`
	VersionNumber           int       `json:"version_number"`
	Content                 string    `json:"content"`
	ContentPreview          string    `json:"content_preview,omitempty"`
	IsSubmitted             bool      `json:"is_submitted"`
	ParentSubmissionVersion *int      `json:"parent_submission_version,omitempty"`
	UserReflection          *string   `json:"user_reflection,omitempty"`
	ChangeType              string    `json:"change_type"`
	CreatedAt               time.Time `json:"created_at"`
}

// WorkStats aggregates counts across all of a user's works.
type WorkStats struct {
	TotalWordCount    int `json:"total_word_count"`
	TotalProjectCount int `json:"total_project_count"`
}

// Comment is a per-work feedback note in the work's conversation thread.
type Comment struct {
	ID        string    `json:"id"`
	WorkID    string    `json:"work_id"`
	UserEmail string    `json:"-"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
