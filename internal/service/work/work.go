package work

import (
	"context"
	"fmt"
	"log/slog"

	"redraft/internal/domain"
	"redraft/internal/domain/models"
	"redraft/internal/domain/repositories"
	"redraft/internal/llm"
	"redraft/internal/utils"
)

// Locker is the session lock a device must hold to mutate a work.
type Locker interface {
	Acquire(ctx context.Context, workID, deviceID string) (bool, error)
	Refresh(ctx context.Context, workID, deviceID string) (bool, error)
	Release(ctx context.Context, workID, deviceID string) (bool, error)
	Holder(ctx context.Context, workID string) (string, error)
}

// AnalysisGenerator produces validated AI feedback for a submission.
type AnalysisGenerator interface {
	Generate(ctx context.Context, in llm.AnalysisInput) (*llm.AnalysisResult, error)
}

// Service orchestrates work content, the version ledger, the session
// lock, and the analysis pipeline.
type Service struct {
	works       repositories.WorkRepository
	versions    *VersionService
	analyses    repositories.AnalysisRepository
	resolutions repositories.ResolutionRepository
	comments    repositories.CommentRepository
	lock        Locker
	analyzer    AnalysisGenerator
	rubricGen   llm.RubricGenerator
	logger      *slog.Logger
}

func NewService(
	works repositories.WorkRepository,
	versions *VersionService,
	analyses repositories.AnalysisRepository,
	resolutions repositories.ResolutionRepository,
	comments repositories.CommentRepository,
	lock Locker,
	analyzer AnalysisGenerator,
	rubricGen llm.RubricGenerator,
	logger *slog.Logger,
) *Service {
	return &Service{
		works:       works,
		versions:    versions,
		analyses:    analyses,
		resolutions: resolutions,
		comments:    comments,
		lock:        lock,
		analyzer:    analyzer,
		rubricGen:   rubricGen,
		logger:      logger,
	}
}

// Create makes an empty work and returns its id.
func (s *Service) Create(ctx context.Context, userEmail string) (string, error) {
	id, err := s.works.Create(ctx, userEmail)
	if err != nil {
		return "", err
	}
	s.logger.Info("work created", "work_id", id, "user", userEmail)
	return id, nil
}

// List returns all works owned by the user, newest first.
func (s *Service) List(ctx context.Context, userEmail string) ([]models.Work, error) {
	return s.works.List(ctx, userEmail)
}

// Get returns one work, not_found when absent or owned by someone else.
func (s *Service) Get(ctx context.Context, workID, userEmail string) (*models.Work, error) {
	return s.works.GetByID(ctx, workID, userEmail)
}

// Rename updates a work's title after an ownership check.
func (s *Service) Rename(ctx context.Context, workID, userEmail, title string) error {
	if _, err := s.Get(ctx, workID, userEmail); err != nil {
		return err
	}
	return s.works.UpdateTitle(ctx, workID, userEmail, title)
}

// Delete removes a work; versions, analyses, resolutions and comments
// go with it through storage-level cascades.
func (s *Service) Delete(ctx context.Context, workID, userEmail string) error {
	if _, err := s.Get(ctx, workID, userEmail); err != nil {
		return err
	}
	if err := s.works.Delete(ctx, workID, userEmail); err != nil {
		return err
	}
	s.logger.Info("work deleted", "work_id", workID, "user", userEmail)
	return nil
}

// Stats returns the user's aggregate word and project counts.
func (s *Service) Stats(ctx context.Context, userEmail string) (*models.WorkStats, error) {
	return s.works.Stats(ctx, userEmail)
}

// UpdateInput is one content update from an editing device.
type UpdateInput struct {
	WorkID      string
	UserEmail   string
	Content     string
	DeviceID    string
	AutoSave    bool
	EssayPrompt *string
}

// UpdateResult reports a content update. Version is set only when a
// draft version was created (manual save).
type UpdateResult struct {
	Version *int
}

// Update writes the work's live content and word count. Auto-saves
// stop there; manual saves also append a draft version chained to the
// latest submission. The caller's device must hold the session lock,
// which is refreshed on the way out to keep the editing session alive.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*UpdateResult, error) {
	if _, err := s.Get(ctx, in.WorkID, in.UserEmail); err != nil {
		return nil, err
	}
	if err := s.acquireLock(ctx, in.WorkID, in.DeviceID); err != nil {
		return nil, err
	}

	wordCount := utils.CountWords(in.Content)
	if err := s.works.UpdateContent(ctx, in.WorkID, in.UserEmail, in.Content, wordCount); err != nil {
		return nil, err
	}
	if in.EssayPrompt != nil {
		if err := s.works.UpdateEssayPrompt(ctx, in.WorkID, in.UserEmail, *in.EssayPrompt); err != nil {
			return nil, err
		}
	}

	result := &UpdateResult{}
	if !in.AutoSave {
		latest, err := s.versions.LatestSubmitted(ctx, in.WorkID)
		if err != nil {
			return nil, err
		}
		var parent *int
		if latest != nil {
			parent = &latest.VersionNumber
		}

		version, err := s.versions.CreateDraft(ctx, in.WorkID, in.UserEmail, in.Content, parent)
		if err != nil {
			return nil, err
		}
		result.Version = &version
	}

	s.refreshLock(ctx, in.WorkID, in.DeviceID)
	return result, nil
}

// SubmitInput is one submission for AI evaluation.
type SubmitInput struct {
	WorkID            string
	UserEmail         string
	Content           string
	DeviceID          string
	UserReflection    *string
	SuggestionActions map[string]models.SuggestionAction
}

// SubmitResult reports a successful submission.
type SubmitResult struct {
	Version    int
	AnalysisID string
}

// Submit creates a submitted version and runs the analysis pipeline.
//
// Resubmission is gated: when the previous submission produced
// sentence-level suggestions, every one of them must arrive marked
// resolved or rejected, otherwise the call fails with
// suggestions_not_processed. The first submission also generates a
// reusable rubric and persists it on the work row; rubric failures
// never block the submission.
//
// Analysis failures surface after the submitted version is persisted,
// so a failed call can leave a valid version with no analysis row; the
// caller retries by resubmitting.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	work, err := s.Get(ctx, in.WorkID, in.UserEmail)
	if err != nil {
		return nil, err
	}
	if err := s.acquireLock(ctx, in.WorkID, in.DeviceID); err != nil {
		return nil, err
	}

	latestSubmission, err := s.versions.LatestSubmitted(ctx, in.WorkID)
	if err != nil {
		return nil, err
	}

	var previousAnalysis *models.TextAnalysis
	if latestSubmission != nil {
		previousAnalysis, err = s.analyses.GetByVersion(ctx, in.WorkID, latestSubmission.VersionNumber)
		if err != nil {
			return nil, err
		}
		if err := checkSuggestionsProcessed(previousAnalysis, in.SuggestionActions); err != nil {
			return nil, err
		}
	}

	newVersion, err := s.versions.CreateSubmitted(ctx, in.WorkID, in.UserEmail, in.Content, in.UserReflection)
	if err != nil {
		return nil, err
	}

	wordCount := utils.CountWords(in.Content)
	if err := s.works.UpdateContent(ctx, in.WorkID, in.UserEmail, in.Content, wordCount); err != nil {
		return nil, err
	}

	if latestSubmission != nil {
		if err := s.versions.DeleteDraftsAfterSubmission(ctx, in.WorkID, latestSubmission.VersionNumber); err != nil {
			return nil, err
		}
	}

	s.refreshLock(ctx, in.WorkID, in.DeviceID)

	essayPrompt := ""
	if work.EssayPrompt != nil {
		essayPrompt = *work.EssayPrompt
	}

	// The rubric is generated once and reused; a failed call is retried
	// on the next submission while the work row still has none.
	if work.Rubric == nil {
		if err := s.generateRubric(ctx, in.WorkID, in.UserEmail, essayPrompt, in.Content); err != nil {
			s.logger.Warn("rubric generation failed", "work_id", in.WorkID, "error", err)
		}
	}

	analysisInput := llm.AnalysisInput{
		WorkID:         in.WorkID,
		CurrentText:    in.Content,
		CurrentVersion: newVersion,
		UserActions:    in.SuggestionActions,
		EssayPrompt:    essayPrompt,
	}
	if in.UserReflection != nil {
		analysisInput.UserReflection = *in.UserReflection
	}
	// A prior submission whose analysis failed has no analysis row.
	// Resubmission then runs as a fresh analysis: there is no earlier
	// feedback for the model to judge the revision against.
	if latestSubmission != nil && previousAnalysis != nil {
		analysisInput.PreviousText = &latestSubmission.Content
		analysisInput.PreviousAnalysis = previousAnalysis
	}

	analysis, err := s.analyzer.Generate(ctx, analysisInput)
	if err != nil {
		return nil, err
	}

	analysisID, err := s.analyses.Create(ctx, &models.TextAnalysis{
		WorkID:            in.WorkID,
		UserEmail:         in.UserEmail,
		VersionNumber:     newVersion,
		TextSnapshot:      in.Content,
		FAOComment:        analysis.FAOComment,
		SentenceComments:  analysis.SentenceComments,
		ReflectionComment: analysis.ReflectionComment,
		RubricEvaluation:  analysis.RubricEvaluation,
	})
	if err != nil {
		return nil, err
	}
	if analysisID == "" {
		return nil, domain.NewError(domain.CodeAnalysisSaveFailed, "analysis persisted without an id")
	}

	if previousAnalysis != nil {
		s.saveResolutions(ctx, in, previousAnalysis, latestSubmission.VersionNumber, newVersion)
	}

	s.logger.Info("work submitted",
		"work_id", in.WorkID,
		"version", newVersion,
		"analysis_id", analysisID,
		"comments", len(analysis.SentenceComments),
	)
	return &SubmitResult{Version: newVersion, AnalysisID: analysisID}, nil
}

// Revert copies an old version's content into a new draft. Mutating
// call, so the device must hold the lock like any other edit.
func (s *Service) Revert(ctx context.Context, workID, userEmail, deviceID string, targetVersion int) (int, error) {
	if _, err := s.Get(ctx, workID, userEmail); err != nil {
		return 0, err
	}
	if err := s.acquireLock(ctx, workID, deviceID); err != nil {
		return 0, err
	}

	newVersion, err := s.versions.Revert(ctx, workID, userEmail, targetVersion)
	if err != nil {
		return 0, err
	}

	s.refreshLock(ctx, workID, deviceID)
	return newVersion, nil
}

// ListVersions returns a page of the work's version ledger.
func (s *Service) ListVersions(ctx context.Context, workID, userEmail string, filter repositories.VersionFilter) (int, *VersionPage, error) {
	if _, err := s.Get(ctx, workID, userEmail); err != nil {
		return 0, nil, err
	}

	current, err := s.versions.CurrentVersionNumber(ctx, workID)
	if err != nil {
		return 0, nil, err
	}
	page, err := s.versions.List(ctx, workID, filter)
	if err != nil {
		return 0, nil, err
	}
	return current, page, nil
}

// VersionDetail is one version row plus, for submitted versions, its
// analysis and the dispositions later recorded against that analysis.
type VersionDetail struct {
	Version     *models.WorkVersion
	Analysis    *models.TextAnalysis
	Resolutions []models.SuggestionResolution
}

// GetVersion returns one version and, for submitted versions, the
// analysis generated for it (nil when analysis generation failed).
func (s *Service) GetVersion(ctx context.Context, workID, userEmail string, versionNumber int) (*VersionDetail, error) {
	if _, err := s.Get(ctx, workID, userEmail); err != nil {
		return nil, err
	}

	version, err := s.versions.Get(ctx, workID, versionNumber)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, domain.NewError(domain.CodeNotFound, "version not found")
	}

	detail := &VersionDetail{Version: version}
	if version.IsSubmitted {
		analysis, err := s.analyses.GetByVersion(ctx, workID, versionNumber)
		if err != nil {
			return nil, err
		}
		detail.Analysis = analysis
		if analysis != nil {
			resolutions, err := s.resolutions.ListByAnalysis(ctx, analysis.ID)
			if err != nil {
				return nil, err
			}
			detail.Resolutions = resolutions
		}
	}
	return detail, nil
}

// ListResolutions returns every suggestion disposition recorded on the
// work across all submission cycles, oldest first.
func (s *Service) ListResolutions(ctx context.Context, workID, userEmail string) ([]models.SuggestionResolution, error) {
	if _, err := s.Get(ctx, workID, userEmail); err != nil {
		return nil, err
	}
	return s.resolutions.ListByWork(ctx, workID)
}

// ReleaseLock drops the session lock if the device holds it.
func (s *Service) ReleaseLock(ctx context.Context, workID, userEmail, deviceID string) (bool, error) {
	if _, err := s.Get(ctx, workID, userEmail); err != nil {
		return false, err
	}
	return s.lock.Release(ctx, workID, deviceID)
}

// LockHolder reports which device currently holds the work's lock,
// empty when unlocked.
func (s *Service) LockHolder(ctx context.Context, workID, userEmail string) (string, error) {
	if _, err := s.Get(ctx, workID, userEmail); err != nil {
		return "", err
	}
	return s.lock.Holder(ctx, workID)
}

// AddComment appends a note to the work's conversation thread.
func (s *Service) AddComment(ctx context.Context, workID, userEmail, content string) (string, error) {
	if _, err := s.Get(ctx, workID, userEmail); err != nil {
		return "", err
	}
	return s.comments.Create(ctx, workID, userEmail, content)
}

// ListComments returns the work's conversation thread, oldest first.
func (s *Service) ListComments(ctx context.Context, workID, userEmail string) ([]models.Comment, error) {
	if _, err := s.Get(ctx, workID, userEmail); err != nil {
		return nil, err
	}
	return s.comments.ListByWork(ctx, workID)
}

func (s *Service) acquireLock(ctx context.Context, workID, deviceID string) error {
	ok, err := s.lock.Acquire(ctx, workID, deviceID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewError(domain.CodeLocked, "work locked by another device")
	}
	return nil
}

func (s *Service) refreshLock(ctx context.Context, workID, deviceID string) {
	if _, err := s.lock.Refresh(ctx, workID, deviceID); err != nil {
		s.logger.Warn("lock refresh failed", "work_id", workID, "error", err)
	}
}

func (s *Service) generateRubric(ctx context.Context, workID, userEmail, essayPrompt, content string) error {
	rubric, err := s.rubricGen.GenerateRubric(ctx, llm.BuildRubricPrompt(essayPrompt, content))
	if err != nil {
		return err
	}
	if err := s.works.UpdateRubric(ctx, workID, userEmail, rubric); err != nil {
		return err
	}
	s.logger.Info("rubric generated", "work_id", workID, "chars", len(rubric))
	return nil
}

// saveResolutions records the user's disposition of each prior
// suggestion. Unknown action values and ids that never appeared in the
// previous analysis are logged and skipped, never failing a submission
// that already passed gating.
func (s *Service) saveResolutions(ctx context.Context, in SubmitInput, previousAnalysis *models.TextAnalysis, fromVersion, toVersion int) {
	knownIDs := make(map[string]bool, len(previousAnalysis.SentenceComments))
	for _, comment := range previousAnalysis.SentenceComments {
		knownIDs[comment.ID] = true
	}

	for suggestionID, action := range in.SuggestionActions {
		if !knownIDs[suggestionID] {
			s.logger.Warn("skipping action for unknown suggestion id",
				"work_id", in.WorkID,
				"suggestion_id", suggestionID,
			)
			continue
		}
		if action.Action != models.ActionResolved && action.Action != models.ActionRejected {
			s.logger.Warn("skipping unknown suggestion action",
				"work_id", in.WorkID,
				"suggestion_id", suggestionID,
				"action", action.Action,
			)
			continue
		}

		resolution := &models.SuggestionResolution{
			WorkID:       in.WorkID,
			AnalysisID:   previousAnalysis.ID,
			SuggestionID: suggestionID,
			FromVersion:  fromVersion,
			ToVersion:    toVersion,
			UserAction:   action.Action,
		}
		if action.UserNote != "" {
			note := action.UserNote
			resolution.UserNote = &note
		}

		if err := s.resolutions.Create(ctx, resolution); err != nil {
			s.logger.Warn("failed to save suggestion resolution",
				"work_id", in.WorkID,
				"suggestion_id", suggestionID,
				"error", err,
			)
		}
	}
}

// checkSuggestionsProcessed enforces the resubmission gate: every
// suggestion from the previous analysis must arrive marked resolved
// or rejected.
func checkSuggestionsProcessed(previousAnalysis *models.TextAnalysis, actions map[string]models.SuggestionAction) error {
	if previousAnalysis == nil || len(previousAnalysis.SentenceComments) == 0 {
		return nil
	}

	unprocessed := 0
	for _, comment := range previousAnalysis.SentenceComments {
		action, ok := actions[comment.ID]
		if !ok || (action.Action != models.ActionResolved && action.Action != models.ActionRejected) {
			unprocessed++
		}
	}
	if unprocessed > 0 {
		return domain.NewError(domain.CodeSuggestionsNotProcessed,
			fmt.Sprintf("%d suggestions from the previous analysis are unprocessed", unprocessed))
	}
	return nil
}
