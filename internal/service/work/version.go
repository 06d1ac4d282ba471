package work

import (
	"context"
	"log/slog"

	"redraft/internal/domain"
	"redraft/internal/domain/models"
	"redraft/internal/domain/repositories"
)

// VersionService manages the append-only version ledger of a work.
// Version numbers are allocated by reading the work's counter,
// incrementing, and writing the new row plus the counter inside one
// transaction, so allocation stays race-free even if a caller slips
// past the session lock.
type VersionService struct {
	versions  repositories.VersionRepository
	works     repositories.WorkRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

func NewVersionService(
	versions repositories.VersionRepository,
	works repositories.WorkRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *VersionService {
	return &VersionService{
		versions:  versions,
		works:     works,
		txManager: txManager,
		logger:    logger,
	}
}

// CurrentVersionNumber returns the work's version counter, 0 when no
// version exists yet.
func (s *VersionService) CurrentVersionNumber(ctx context.Context, workID string) (int, error) {
	return s.versions.CurrentVersionNumber(ctx, workID)
}

// LatestSubmitted returns the highest-numbered submitted version, or
// nil when the work has never been submitted.
func (s *VersionService) LatestSubmitted(ctx context.Context, workID string) (*models.WorkVersion, error) {
	return s.versions.LatestSubmitted(ctx, workID)
}

// CreateDraft allocates the next version number and inserts a draft
// row chained to parentSubmissionVersion (nil before any submission).
func (s *VersionService) CreateDraft(ctx context.Context, workID, userEmail, content string, parentSubmissionVersion *int) (int, error) {
	return s.create(ctx, &models.WorkVersion{
		WorkID:                  workID,
		UserEmail:               userEmail,
		Content:                 content,
		IsSubmitted:             false,
		ParentSubmissionVersion: parentSubmissionVersion,
		ChangeType:              models.ChangeDraftEdit,
	})
}

// CreateSubmitted allocates the next version number and inserts a
// submitted row. Submitted versions never carry a parent.
func (s *VersionService) CreateSubmitted(ctx context.Context, workID, userEmail, content string, userReflection *string) (int, error) {
	return s.create(ctx, &models.WorkVersion{
		WorkID:         workID,
		UserEmail:      userEmail,
		Content:        content,
		IsSubmitted:    true,
		UserReflection: userReflection,
		ChangeType:     models.ChangeSubmission,
	})
}

func (s *VersionService) create(ctx context.Context, version *models.WorkVersion) (int, error) {
	var newVersion int
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		current, err := s.versions.CurrentVersionNumber(ctx, version.WorkID)
		if err != nil {
			return err
		}
		newVersion = current + 1
		version.VersionNumber = newVersion

		if err := s.versions.Create(ctx, version); err != nil {
			return err
		}
		return s.works.SetCurrentVersion(ctx, version.WorkID, newVersion)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("version created",
		"work_id", version.WorkID,
		"version", newVersion,
		"submitted", version.IsSubmitted,
	)
	return newVersion, nil
}

// DeleteDraftsAfterSubmission prunes every draft chained to the given
// submission. Called once that submission is superseded by a new one.
func (s *VersionService) DeleteDraftsAfterSubmission(ctx context.Context, workID string, parentVersion int) error {
	return s.versions.DeleteDraftsByParent(ctx, workID, parentVersion)
}

// VersionPage is one page of a version listing.
type VersionPage struct {
	Versions []models.WorkVersion
	HasMore  bool
}

// List returns version rows newest first. When a limit is set, one
// extra row is fetched to detect a next page.
func (s *VersionService) List(ctx context.Context, workID string, filter repositories.VersionFilter) (*VersionPage, error) {
	limit := filter.Limit
	if limit > 0 {
		filter.Limit = limit + 1
	}

	versions, err := s.versions.List(ctx, workID, filter)
	if err != nil {
		return nil, err
	}

	page := &VersionPage{Versions: versions}
	if limit > 0 && len(versions) > limit {
		page.Versions = versions[:limit]
		page.HasMore = true
	}
	return page, nil
}

// Get returns one version row, not_found when absent.
func (s *VersionService) Get(ctx context.Context, workID string, versionNumber int) (*models.WorkVersion, error) {
	return s.versions.Get(ctx, workID, versionNumber)
}

// Revert copies an old version's content into a brand-new draft
// chained to the latest submission. History is never rewritten.
func (s *VersionService) Revert(ctx context.Context, workID, userEmail string, targetVersion int) (int, error) {
	target, err := s.versions.Get(ctx, workID, targetVersion)
	if err != nil {
		return 0, err
	}
	if target == nil {
		return 0, domain.NewError(domain.CodeNotFound, "version not found")
	}

	latest, err := s.versions.LatestSubmitted(ctx, workID)
	if err != nil {
		return 0, err
	}
	var parent *int
	if latest != nil {
		parent = &latest.VersionNumber
	}

	newVersion, err := s.CreateDraft(ctx, workID, userEmail, target.Content, parent)
	if err != nil {
		return 0, err
	}

	s.logger.Info("reverted to version",
		"work_id", workID,
		"target", targetVersion,
		"new_version", newVersion,
	)
	return newVersion, nil
}
