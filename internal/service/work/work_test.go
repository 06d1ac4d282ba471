package work

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"redraft/internal/domain"
	"redraft/internal/domain/models"
	"redraft/internal/domain/repositories"
	"redraft/internal/llm"
)

// passTx runs the function directly; the fakes have no transactions.
type passTx struct{}

func (passTx) ExecTx(ctx context.Context, fn repositories.TxFn) error { return fn(ctx) }

type fakeWorkRepo struct {
	works map[string]*models.Work
}

func newFakeWorkRepo() *fakeWorkRepo {
	return &fakeWorkRepo{works: make(map[string]*models.Work)}
}

func (r *fakeWorkRepo) Create(_ context.Context, userEmail string) (string, error) {
	id := uuid.NewString()
	r.works[id] = &models.Work{ID: id, UserEmail: userEmail, Title: "Untitled", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	return id, nil
}

func (r *fakeWorkRepo) GetByID(_ context.Context, id, userEmail string) (*models.Work, error) {
	w, ok := r.works[id]
	if !ok || w.UserEmail != userEmail {
		return nil, domain.NewError(domain.CodeNotFound, "work not found")
	}
	copied := *w
	return &copied, nil
}

func (r *fakeWorkRepo) List(_ context.Context, userEmail string) ([]models.Work, error) {
	var out []models.Work
	for _, w := range r.works {
		if w.UserEmail == userEmail {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *fakeWorkRepo) UpdateContent(_ context.Context, id, _, content string, wordCount int) error {
	if w, ok := r.works[id]; ok {
		w.Content = content
		w.WordCount = wordCount
		w.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeWorkRepo) UpdateEssayPrompt(_ context.Context, id, _, essayPrompt string) error {
	if w, ok := r.works[id]; ok {
		w.EssayPrompt = &essayPrompt
	}
	return nil
}

func (r *fakeWorkRepo) UpdateRubric(_ context.Context, id, _, rubric string) error {
	if w, ok := r.works[id]; ok {
		w.Rubric = &rubric
	}
	return nil
}

func (r *fakeWorkRepo) UpdateTitle(_ context.Context, id, _, title string) error {
	if w, ok := r.works[id]; ok {
		w.Title = title
	}
	return nil
}

func (r *fakeWorkRepo) SetCurrentVersion(_ context.Context, id string, versionNumber int) error {
	if w, ok := r.works[id]; ok {
		w.CurrentVersion = versionNumber
	}
	return nil
}

func (r *fakeWorkRepo) Delete(_ context.Context, id, _ string) error {
	delete(r.works, id)
	return nil
}

func (r *fakeWorkRepo) Stats(_ context.Context, userEmail string) (*models.WorkStats, error) {
	stats := &models.WorkStats{}
	for _, w := range r.works {
		if w.UserEmail == userEmail {
			stats.TotalProjectCount++
			stats.TotalWordCount += w.WordCount
		}
	}
	return stats, nil
}

type fakeVersionRepo struct {
	works    *fakeWorkRepo
	versions map[string][]*models.WorkVersion
}

func newFakeVersionRepo(works *fakeWorkRepo) *fakeVersionRepo {
	return &fakeVersionRepo{works: works, versions: make(map[string][]*models.WorkVersion)}
}

func (r *fakeVersionRepo) Create(_ context.Context, v *models.WorkVersion) error {
	v.ID = uuid.NewString()
	v.CreatedAt = time.Now()
	r.versions[v.WorkID] = append(r.versions[v.WorkID], v)
	return nil
}

func (r *fakeVersionRepo) CurrentVersionNumber(_ context.Context, workID string) (int, error) {
	if w, ok := r.works.works[workID]; ok {
		return w.CurrentVersion, nil
	}
	return 0, nil
}

func (r *fakeVersionRepo) LatestSubmitted(_ context.Context, workID string) (*models.WorkVersion, error) {
	var latest *models.WorkVersion
	for _, v := range r.versions[workID] {
		if v.IsSubmitted && (latest == nil || v.VersionNumber > latest.VersionNumber) {
			latest = v
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeVersionRepo) Get(_ context.Context, workID string, versionNumber int) (*models.WorkVersion, error) {
	for _, v := range r.versions[workID] {
		if v.VersionNumber == versionNumber {
			copied := *v
			return &copied, nil
		}
	}
	return nil, domain.NewError(domain.CodeNotFound, "version not found")
}

func (r *fakeVersionRepo) List(_ context.Context, workID string, filter repositories.VersionFilter) ([]models.WorkVersion, error) {
	var out []models.WorkVersion
	for _, v := range r.versions[workID] {
		if filter.Submitted != nil && v.IsSubmitted != *filter.Submitted {
			continue
		}
		if filter.ParentVersion != nil {
			if v.ParentSubmissionVersion == nil || *v.ParentSubmissionVersion != *filter.ParentVersion {
				continue
			}
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeVersionRepo) DeleteDraftsByParent(_ context.Context, workID string, parentVersion int) error {
	kept := r.versions[workID][:0]
	for _, v := range r.versions[workID] {
		drop := !v.IsSubmitted && v.ParentSubmissionVersion != nil && *v.ParentSubmissionVersion == parentVersion
		if !drop {
			kept = append(kept, v)
		}
	}
	r.versions[workID] = kept
	return nil
}

type fakeAnalysisRepo struct {
	analyses []*models.TextAnalysis
	failSave bool
}

func (r *fakeAnalysisRepo) Create(_ context.Context, a *models.TextAnalysis) (string, error) {
	if r.failSave {
		return "", nil
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	r.analyses = append(r.analyses, a)
	return a.ID, nil
}

func (r *fakeAnalysisRepo) GetByVersion(_ context.Context, workID string, versionNumber int) (*models.TextAnalysis, error) {
	for _, a := range r.analyses {
		if a.WorkID == workID && a.VersionNumber == versionNumber {
			return a, nil
		}
	}
	return nil, nil
}

type fakeResolutionRepo struct {
	resolutions []*models.SuggestionResolution
}

func (r *fakeResolutionRepo) Create(_ context.Context, res *models.SuggestionResolution) error {
	res.ID = uuid.NewString()
	r.resolutions = append(r.resolutions, res)
	return nil
}

func (r *fakeResolutionRepo) ListByAnalysis(_ context.Context, analysisID string) ([]models.SuggestionResolution, error) {
	var out []models.SuggestionResolution
	for _, res := range r.resolutions {
		if res.AnalysisID == analysisID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (r *fakeResolutionRepo) ListByWork(_ context.Context, workID string) ([]models.SuggestionResolution, error) {
	var out []models.SuggestionResolution
	for _, res := range r.resolutions {
		if res.WorkID == workID {
			out = append(out, *res)
		}
	}
	return out, nil
}

type fakeCommentRepo struct {
	comments []models.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, workID, userEmail, content string) (string, error) {
	id := uuid.NewString()
	r.comments = append(r.comments, models.Comment{ID: id, WorkID: workID, UserEmail: userEmail, Content: content, CreatedAt: time.Now()})
	return id, nil
}

func (r *fakeCommentRepo) ListByWork(_ context.Context, workID string) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range r.comments {
		if c.WorkID == workID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeLock struct {
	holders map[string]string
}

func newFakeLock() *fakeLock { return &fakeLock{holders: make(map[string]string)} }

func (l *fakeLock) Acquire(_ context.Context, workID, deviceID string) (bool, error) {
	holder, ok := l.holders[workID]
	if ok && holder != deviceID {
		return false, nil
	}
	l.holders[workID] = deviceID
	return true, nil
}

func (l *fakeLock) Refresh(_ context.Context, workID, deviceID string) (bool, error) {
	return l.holders[workID] == deviceID, nil
}

func (l *fakeLock) Release(_ context.Context, workID, deviceID string) (bool, error) {
	if l.holders[workID] != deviceID {
		return false, nil
	}
	delete(l.holders, workID)
	return true, nil
}

func (l *fakeLock) Holder(_ context.Context, workID string) (string, error) {
	return l.holders[workID], nil
}

// fakeAnalyzer returns a canned analysis with the configured comment ids.
type fakeAnalyzer struct {
	commentIDs []string
	err        error
	lastInput  llm.AnalysisInput
}

func (a *fakeAnalyzer) Generate(_ context.Context, in llm.AnalysisInput) (*llm.AnalysisResult, error) {
	a.lastInput = in
	if a.err != nil {
		return nil, a.err
	}
	result := &llm.AnalysisResult{FAOComment: "Needs work."}
	for _, id := range a.commentIDs {
		result.SentenceComments = append(result.SentenceComments, models.SentenceComment{
			ID: id, OriginalText: "text", StartIndex: 0, EndIndex: 4,
			IssueType: "clarity", Severity: "medium",
			Title: "t", Description: "d", Suggestion: "s",
		})
	}
	return result, nil
}

type fakeRubricGen struct {
	rubric string
	err    error
	calls  int
}

func (g *fakeRubricGen) GenerateRubric(_ context.Context, _ string) (string, error) {
	g.calls++
	return g.rubric, g.err
}

type fixture struct {
	svc         *Service
	works       *fakeWorkRepo
	versions    *fakeVersionRepo
	analyses    *fakeAnalysisRepo
	resolutions *fakeResolutionRepo
	lock        *fakeLock
	analyzer    *fakeAnalyzer
	rubricGen   *fakeRubricGen
}

func newFixture() *fixture {
	logger := slog.New(slog.DiscardHandler)
	works := newFakeWorkRepo()
	versions := newFakeVersionRepo(works)
	analyses := &fakeAnalysisRepo{}
	resolutions := &fakeResolutionRepo{}
	comments := &fakeCommentRepo{}
	lock := newFakeLock()
	analyzer := &fakeAnalyzer{commentIDs: []string{"sug-1", "sug-2"}}
	rubricGen := &fakeRubricGen{rubric: `{"dimensions":[]}`}

	versionSvc := NewVersionService(versions, works, passTx{}, logger)
	svc := NewService(works, versionSvc, analyses, resolutions, comments, lock, analyzer, rubricGen, logger)
	return &fixture{
		svc: svc, works: works, versions: versions, analyses: analyses,
		resolutions: resolutions, lock: lock, analyzer: analyzer, rubricGen: rubricGen,
	}
}

const (
	user   = "alice@example.com"
	device = "device-a"
)

func (f *fixture) createWork(t *testing.T) string {
	t.Helper()
	id, err := f.svc.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return id
}

func TestUpdateAutoSaveCreatesNoVersion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	result, err := f.svc.Update(ctx, UpdateInput{WorkID: workID, UserEmail: user, Content: "draft text", DeviceID: device, AutoSave: true})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if result.Version != nil {
		t.Errorf("auto-save should not create a version, got %d", *result.Version)
	}

	w, _ := f.svc.Get(ctx, workID, user)
	if w.Content != "draft text" {
		t.Errorf("content not updated: %q", w.Content)
	}
	if w.CurrentVersion != 0 {
		t.Errorf("current_version = %d, want 0", w.CurrentVersion)
	}
	if w.WordCount != 2 {
		t.Errorf("word_count = %d, want 2", w.WordCount)
	}
}

func TestUpdateManualSaveChainsDrafts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	// First draft before any submission: parent is nil.
	result, err := f.svc.Update(ctx, UpdateInput{WorkID: workID, UserEmail: user, Content: "v1", DeviceID: device})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if result.Version == nil || *result.Version != 1 {
		t.Fatalf("first manual save should create version 1, got %v", result.Version)
	}
	v1, _ := f.versions.Get(ctx, workID, 1)
	if v1.ParentSubmissionVersion != nil {
		t.Error("draft before any submission should have nil parent")
	}

	// Submit, then a new draft must chain to that submission.
	if _, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "v2 final", DeviceID: device}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	result, err = f.svc.Update(ctx, UpdateInput{WorkID: workID, UserEmail: user, Content: "v3", DeviceID: device})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	v3, _ := f.versions.Get(ctx, workID, *result.Version)
	if v3.ParentSubmissionVersion == nil || *v3.ParentSubmissionVersion != 2 {
		t.Errorf("draft after submission should chain to version 2, got %v", v3.ParentSubmissionVersion)
	}
}

func TestVersionCounterMonotonic(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	for i := 1; i <= 5; i++ {
		result, err := f.svc.Update(ctx, UpdateInput{WorkID: workID, UserEmail: user, Content: fmt.Sprintf("draft %d", i), DeviceID: device})
		if err != nil {
			t.Fatalf("Update() %d error = %v", i, err)
		}
		if *result.Version != i {
			t.Errorf("version = %d, want %d", *result.Version, i)
		}
	}

	w, _ := f.svc.Get(ctx, workID, user)
	if w.CurrentVersion != 5 {
		t.Errorf("current_version = %d, want 5", w.CurrentVersion)
	}
}

func TestUpdateLockedByOtherDevice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	if _, err := f.svc.Update(ctx, UpdateInput{WorkID: workID, UserEmail: user, Content: "a", DeviceID: "device-a", AutoSave: true}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	_, err := f.svc.Update(ctx, UpdateInput{WorkID: workID, UserEmail: user, Content: "b", DeviceID: "device-b", AutoSave: true})
	if !domain.IsCode(err, domain.CodeLocked) {
		t.Fatalf("expected locked error, got %v", err)
	}
}

func TestFirstSubmitGeneratesRubric(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	result, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "My essay.", DeviceID: device})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Version != 1 || result.AnalysisID == "" {
		t.Errorf("unexpected result %+v", result)
	}
	if f.rubricGen.calls != 1 {
		t.Errorf("rubric generator called %d times, want 1", f.rubricGen.calls)
	}
	w, _ := f.svc.Get(ctx, workID, user)
	if w.Rubric == nil {
		t.Error("rubric not persisted on work row")
	}

	// Second submission reuses the stored rubric.
	actions := map[string]models.SuggestionAction{
		"sug-1": {Action: models.ActionResolved},
		"sug-2": {Action: models.ActionRejected},
	}
	if _, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "Revised.", DeviceID: device, SuggestionActions: actions}); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if f.rubricGen.calls != 1 {
		t.Errorf("rubric regenerated on second submission")
	}
}

func TestSubmitRubricFailureNonFatal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)
	f.rubricGen.err = errors.New("claude unavailable")

	result, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "My essay.", DeviceID: device})
	if err != nil {
		t.Fatalf("Submit() error = %v, want rubric failure swallowed", err)
	}
	if result.AnalysisID == "" {
		t.Error("analysis not created despite rubric failure")
	}
	w, _ := f.svc.Get(ctx, workID, user)
	if w.Rubric != nil {
		t.Error("rubric persisted despite generator error")
	}

	// Next submission retries while the work row has no rubric.
	f.rubricGen.err = nil
	actions := map[string]models.SuggestionAction{
		"sug-1": {Action: models.ActionResolved},
		"sug-2": {Action: models.ActionRejected},
	}
	if _, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "Revised.", DeviceID: device, SuggestionActions: actions}); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if f.rubricGen.calls != 2 {
		t.Errorf("rubric generator called %d times, want 2", f.rubricGen.calls)
	}
	w, _ = f.svc.Get(ctx, workID, user)
	if w.Rubric == nil {
		t.Error("rubric not persisted after retry")
	}
}

func TestSubmitGating(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	if _, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "First.", DeviceID: device}); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	// No actions at all.
	_, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "Second.", DeviceID: device})
	if !domain.IsCode(err, domain.CodeSuggestionsNotProcessed) {
		t.Fatalf("expected suggestions_not_processed, got %v", err)
	}

	// Partial coverage still fails.
	partial := map[string]models.SuggestionAction{"sug-1": {Action: models.ActionResolved}}
	_, err = f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "Second.", DeviceID: device, SuggestionActions: partial})
	if !domain.IsCode(err, domain.CodeSuggestionsNotProcessed) {
		t.Fatalf("expected suggestions_not_processed for partial actions, got %v", err)
	}

	// Full coverage with a mix of resolved and rejected succeeds and
	// persists one resolution per suggestion.
	full := map[string]models.SuggestionAction{
		"sug-1": {Action: models.ActionResolved, UserNote: "fixed"},
		"sug-2": {Action: models.ActionRejected},
	}
	result, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "Second.", DeviceID: device, SuggestionActions: full})
	if err != nil {
		t.Fatalf("Submit() with full actions error = %v", err)
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2", result.Version)
	}
	if len(f.resolutions.resolutions) != 2 {
		t.Errorf("resolutions = %d, want 2", len(f.resolutions.resolutions))
	}
	for _, res := range f.resolutions.resolutions {
		if res.FromVersion != 1 || res.ToVersion != 2 {
			t.Errorf("resolution versions %d->%d, want 1->2", res.FromVersion, res.ToVersion)
		}
	}
}

func TestSubmitIgnoresUnknownSuggestionIDs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	if _, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "First.", DeviceID: device}); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	// Actions cover both prior suggestions plus an id the previous
	// analysis never produced; the stray id must not become a row.
	actions := map[string]models.SuggestionAction{
		"sug-1":       {Action: models.ActionResolved},
		"sug-2":       {Action: models.ActionRejected},
		"sug-phantom": {Action: models.ActionResolved},
	}
	if _, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "Revised.", DeviceID: device, SuggestionActions: actions}); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if len(f.resolutions.resolutions) != 2 {
		t.Fatalf("resolutions = %d, want 2", len(f.resolutions.resolutions))
	}
	for _, res := range f.resolutions.resolutions {
		if res.SuggestionID == "sug-phantom" {
			t.Error("resolution saved for a suggestion id outside the previous analysis")
		}
	}
}

func TestSubmitPrunesDraftsOfSupersededSubmission(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	if _, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "v1", DeviceID: device}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Two drafts chained to submission 1.
	for i := 0; i < 2; i++ {
		if _, err := f.svc.Update(ctx, UpdateInput{WorkID: workID, UserEmail: user, Content: fmt.Sprintf("d%d", i), DeviceID: device}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	actions := map[string]models.SuggestionAction{
		"sug-1": {Action: models.ActionResolved},
		"sug-2": {Action: models.ActionRejected},
	}
	if _, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "v4", DeviceID: device, SuggestionActions: actions}); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}

	parent := 1
	drafts, err := f.versions.List(ctx, workID, repositories.VersionFilter{ParentVersion: &parent})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(drafts) != 0 {
		t.Errorf("drafts of superseded submission survive: %d", len(drafts))
	}

	// Both submitted versions remain.
	submitted := true
	subs, _ := f.versions.List(ctx, workID, repositories.VersionFilter{Submitted: &submitted})
	if len(subs) != 2 {
		t.Errorf("submitted versions = %d, want 2", len(subs))
	}
}

func TestSubmitAnalysisFailureLeavesVersion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)
	f.analyzer.err = domain.NewError(domain.CodeLLMFailed, "invalid llm response format")

	_, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "v1", DeviceID: device})
	if !domain.IsCode(err, domain.CodeLLMFailed) {
		t.Fatalf("expected llm_failed, got %v", err)
	}

	// The submitted version is persisted; no analysis row exists.
	v, err := f.versions.Get(ctx, workID, 1)
	if err != nil || !v.IsSubmitted {
		t.Fatalf("submitted version missing after analysis failure: %v", err)
	}
	if a, _ := f.analyses.GetByVersion(ctx, workID, 1); a != nil {
		t.Error("analysis row should not exist after failure")
	}
}

func TestResubmitAfterAnalysisFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)
	f.analyzer.err = domain.NewError(domain.CodeLLMFailed, "invalid llm response format")

	if _, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "v1", DeviceID: device}); !domain.IsCode(err, domain.CodeLLMFailed) {
		t.Fatalf("expected llm_failed, got %v", err)
	}

	// The generator recovers. With no analysis row to revise against,
	// resubmission runs as a fresh analysis and must succeed.
	f.analyzer.err = nil
	result, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "v1 revised", DeviceID: device})
	if err != nil {
		t.Fatalf("resubmit after analysis failure: %v", err)
	}
	if result.Version != 2 || result.AnalysisID == "" {
		t.Errorf("unexpected result %+v", result)
	}
	if f.analyzer.lastInput.PreviousText != nil || f.analyzer.lastInput.PreviousAnalysis != nil {
		t.Error("resubmission should build first-time analysis context when no previous analysis exists")
	}
	if a, _ := f.analyses.GetByVersion(ctx, workID, 2); a == nil {
		t.Error("analysis row missing after recovered resubmission")
	}
}

func TestSubmitAnalysisSaveFailed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)
	f.analyses.failSave = true

	_, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "v1", DeviceID: device})
	if !domain.IsCode(err, domain.CodeAnalysisSaveFailed) {
		t.Fatalf("expected analysis_save_failed, got %v", err)
	}
}

func TestRevertRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	if _, err := f.svc.Update(ctx, UpdateInput{WorkID: workID, UserEmail: user, Content: "original text", DeviceID: device}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := f.svc.Update(ctx, UpdateInput{WorkID: workID, UserEmail: user, Content: "changed text", DeviceID: device}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	newVersion, err := f.svc.Revert(ctx, workID, user, device, 1)
	if err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	if newVersion != 3 {
		t.Errorf("revert created version %d, want 3", newVersion)
	}

	reverted, _ := f.versions.Get(ctx, workID, newVersion)
	if reverted.Content != "original text" {
		t.Errorf("reverted content = %q", reverted.Content)
	}
	if reverted.IsSubmitted || reverted.ChangeType != models.ChangeDraftEdit {
		t.Error("revert must create a draft")
	}

	// Target version untouched.
	original, _ := f.versions.Get(ctx, workID, 1)
	if original.Content != "original text" {
		t.Error("revert mutated the target version")
	}
}

func TestRevertMissingVersion(t *testing.T) {
	f := newFixture()
	workID := f.createWork(t)

	_, err := f.svc.Revert(context.Background(), workID, user, device, 42)
	if !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestListVersionsPagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	for i := 1; i <= 5; i++ {
		if _, err := f.svc.Update(ctx, UpdateInput{WorkID: workID, UserEmail: user, Content: fmt.Sprintf("d%d", i), DeviceID: device}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	current, page, err := f.svc.ListVersions(ctx, workID, user, repositories.VersionFilter{Limit: 3})
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if current != 5 {
		t.Errorf("current = %d, want 5", current)
	}
	if len(page.Versions) != 3 || !page.HasMore {
		t.Errorf("page = %d versions, hasMore=%v; want 3, true", len(page.Versions), page.HasMore)
	}

	_, page, err = f.svc.ListVersions(ctx, workID, user, repositories.VersionFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(page.Versions) != 5 || page.HasMore {
		t.Errorf("page = %d versions, hasMore=%v; want 5, false", len(page.Versions), page.HasMore)
	}
}

func TestGetVersionDetailWithAnalysis(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	result, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "v1", DeviceID: device})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	detail, err := f.svc.GetVersion(ctx, workID, user, result.Version)
	if err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}
	if detail.Analysis == nil {
		t.Fatal("submitted version detail should include its analysis")
	}
	if detail.Analysis.ID != result.AnalysisID {
		t.Errorf("analysis id mismatch: %s vs %s", detail.Analysis.ID, result.AnalysisID)
	}
	if len(detail.Resolutions) != 0 {
		t.Errorf("no dispositions recorded yet, got %d", len(detail.Resolutions))
	}

	// The second submission records dispositions against version 1's
	// analysis; its detail view surfaces them.
	actions := map[string]models.SuggestionAction{
		"sug-1": {Action: models.ActionResolved},
		"sug-2": {Action: models.ActionRejected},
	}
	if _, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "v2", DeviceID: device, SuggestionActions: actions}); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	detail, err = f.svc.GetVersion(ctx, workID, user, result.Version)
	if err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}
	if len(detail.Resolutions) != 2 {
		t.Errorf("resolutions in detail = %d, want 2", len(detail.Resolutions))
	}

	history, err := f.svc.ListResolutions(ctx, workID, user)
	if err != nil {
		t.Fatalf("ListResolutions() error = %v", err)
	}
	if len(history) != 2 {
		t.Errorf("resolution history = %d, want 2", len(history))
	}
	if _, err := f.svc.ListResolutions(ctx, workID, "mallory@example.com"); !domain.IsCode(err, domain.CodeNotFound) {
		t.Errorf("expected not_found for non-owner, got %v", err)
	}
}

func TestLockEndpointsScopedByOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	if _, err := f.svc.Update(ctx, UpdateInput{WorkID: workID, UserEmail: user, Content: "x", DeviceID: device, AutoSave: true}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	holder, err := f.svc.LockHolder(ctx, workID, user)
	if err != nil || holder != device {
		t.Fatalf("LockHolder() = %q, %v; want %q", holder, err, device)
	}

	if _, err := f.svc.LockHolder(ctx, workID, "mallory@example.com"); !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("expected not_found for non-owner, got %v", err)
	}

	released, err := f.svc.ReleaseLock(ctx, workID, user, device)
	if err != nil || !released {
		t.Fatalf("ReleaseLock() = %v, %v", released, err)
	}
	if holder, _ := f.svc.LockHolder(ctx, workID, user); holder != "" {
		t.Errorf("lock still held after release: %q", holder)
	}
}

func TestComments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	id, err := f.svc.AddComment(ctx, workID, user, "remember to tighten the intro")
	if err != nil || id == "" {
		t.Fatalf("AddComment() = %q, %v", id, err)
	}

	comments, err := f.svc.ListComments(ctx, workID, user)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 1 || comments[0].Content != "remember to tighten the intro" {
		t.Errorf("unexpected comments %+v", comments)
	}
}

func TestIterativeSubmitPassesContextToAnalyzer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	workID := f.createWork(t)

	if _, err := f.svc.Submit(ctx, SubmitInput{WorkID: workID, UserEmail: user, Content: "first draft", DeviceID: device}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	reflection := "I reworked the middle section."
	actions := map[string]models.SuggestionAction{
		"sug-1": {Action: models.ActionResolved},
		"sug-2": {Action: models.ActionRejected},
	}
	if _, err := f.svc.Submit(ctx, SubmitInput{
		WorkID: workID, UserEmail: user, Content: "second draft",
		DeviceID: device, UserReflection: &reflection, SuggestionActions: actions,
	}); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}

	in := f.analyzer.lastInput
	if in.PreviousText == nil || *in.PreviousText != "first draft" {
		t.Error("previous text not passed to analyzer")
	}
	if in.PreviousAnalysis == nil {
		t.Error("previous analysis not passed to analyzer")
	}
	if in.UserReflection != reflection {
		t.Errorf("reflection = %q", in.UserReflection)
	}
	if len(in.UserActions) != 2 {
		t.Errorf("actions = %d, want 2", len(in.UserActions))
	}
}
