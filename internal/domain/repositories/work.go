package repositories

import (
	"context"
	"time"

	"redraft/internal/domain/models"
)

// WorkRepository persists work rows. All lookups are scoped by owner
// email; a miss reads the same as a missing row.
type WorkRepository interface {
	Create(ctx context.Context, userEmail string) (string, error)
	GetByID(ctx context.Context, id, userEmail string) (*models.Work, error)
	List(ctx context.Context, userEmail string) ([]models.Work, error)
	UpdateContent(ctx context.Context, id, userEmail, content string, wordCount int) error
	UpdateEssayPrompt(ctx context.Context, id, userEmail, essayPrompt string) error
	UpdateRubric(ctx context.Context, id, userEmail, rubric string) error
	UpdateTitle(ctx context.Context, id, userEmail, title string) error
	SetCurrentVersion(ctx context.Context, id string, versionNumber int) error
	Delete(ctx context.Context, id, userEmail string) error
	Stats(ctx context.Context, userEmail string) (*models.WorkStats, error)
}

// VersionFilter narrows version listings. Submitted filters by lane,
// ParentVersion filters drafts of one submission, Cursor pages by
// creation time (exclusive, descending).
type VersionFilter struct {
	Submitted     *bool
	ParentVersion *int
	Limit         int
	Cursor        *time.Time
}

// VersionRepository persists the append-only version ledger.
type VersionRepository interface {
	Create(ctx context.Context, version *models.WorkVersion) error
	CurrentVersionNumber(ctx context.Context, workID string) (int, error)
	LatestSubmitted(ctx context.Context, workID string) (*models.WorkVersion, error)
	Get(ctx context.Context, workID string, versionNumber int) (*models.WorkVersion, error)
	List(ctx context.Context, workID string, filter VersionFilter) ([]models.WorkVersion, error)
	DeleteDraftsByParent(ctx context.Context, workID string, parentVersion int) error
}

// AnalysisRepository persists validated AI analyses, one per
// submitted version.
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *models.TextAnalysis) (string, error)
	GetByVersion(ctx context.Context, workID string, versionNumber int) (*models.TextAnalysis, error)
}

// ResolutionRepository persists suggestion dispositions recorded
// during 2nd+ submissions.
type ResolutionRepository interface {
	Create(ctx context.Context, resolution *models.SuggestionResolution) error
	ListByAnalysis(ctx context.Context, analysisID string) ([]models.SuggestionResolution, error)
	ListByWork(ctx context.Context, workID string) ([]models.SuggestionResolution, error)
}

// CommentRepository persists the per-work conversation thread.
type CommentRepository interface {
	Create(ctx context.Context, workID, userEmail, content string) (string, error)
	ListByWork(ctx context.Context, workID string) ([]models.Comment, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, email, username, passwordHash string) (string, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}
