package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"redraft/internal/domain/models"
	"redraft/internal/domain/repositories"
	"redraft/internal/httputil"
	workservice "redraft/internal/service/work"
)

// VersionHandler handles the version ledger endpoints.
type VersionHandler struct {
	workService *workservice.Service
	logger      *slog.Logger
}

func NewVersionHandler(workService *workservice.Service, logger *slog.Logger) *VersionHandler {
	return &VersionHandler{workService: workService, logger: logger}
}

type versionListItem struct {
	VersionNumber  int       `json:"version_number"`
	ContentPreview string    `json:"content_preview"`
	IsSubmitted    bool      `json:"is_submitted"`
	ChangeType     string    `json:"change_type"`
	CreatedAt      time.Time `json:"created_at"`
}

type versionListResponse struct {
	CurrentVersion int               `json:"current_version"`
	Versions       []versionListItem `json:"versions"`
	HasMore        bool              `json:"has_more"`
}

// List returns a page of version rows, newest first
// GET /api/works/{id}/versions?type=submitted|draft&parent=N&limit=N&cursor=RFC3339
func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := repositories.VersionFilter{ParentVersion: queryInt(query.Get("parent"))}
	switch query.Get("type") {
	case "submitted":
		submitted := true
		filter.Submitted = &submitted
	case "draft":
		submitted := false
		filter.Submitted = &submitted
	}
	if limit := queryInt(query.Get("limit")); limit != nil && *limit > 0 {
		filter.Limit = *limit
	}
	if cursor := query.Get("cursor"); cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "validation_failed", "cursor must be an RFC3339 timestamp")
			return
		}
		filter.Cursor = &t
	}

	current, page, err := h.workService.ListVersions(r.Context(), r.PathValue("id"), httputil.GetUserEmail(r), filter)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	items := make([]versionListItem, 0, len(page.Versions))
	for _, v := range page.Versions {
		items = append(items, versionListItem{
			VersionNumber:  v.VersionNumber,
			ContentPreview: v.ContentPreview,
			IsSubmitted:    v.IsSubmitted,
			ChangeType:     v.ChangeType,
			CreatedAt:      v.CreatedAt,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, versionListResponse{
		CurrentVersion: current,
		Versions:       items,
		HasMore:        page.HasMore,
	})
}

type analysisResponse struct {
	AnalysisID        string                                `json:"analysis_id"`
	FAOComment        string                                `json:"fao_comment"`
	SentenceComments  []models.SentenceComment              `json:"sentence_comments"`
	ReflectionComment *string                               `json:"reflection_comment,omitempty"`
	RubricEvaluation  map[string]models.DimensionEvaluation `json:"rubric_evaluation,omitempty"`
}

type versionDetailResponse struct {
	VersionNumber  int                           `json:"version_number"`
	Content        string                        `json:"content"`
	IsSubmitted    bool                          `json:"is_submitted"`
	UserReflection *string                       `json:"user_reflection,omitempty"`
	ChangeType     string                        `json:"change_type"`
	CreatedAt      time.Time                     `json:"created_at"`
	Analysis       *analysisResponse             `json:"analysis,omitempty"`
	Resolutions    []models.SuggestionResolution `json:"resolutions,omitempty"`
}

// Detail returns one version, with its analysis when submitted
// GET /api/works/{id}/versions/{number}
func (h *VersionHandler) Detail(w http.ResponseWriter, r *http.Request) {
	versionNumber, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "validation_failed", "version number must be an integer")
		return
	}

	detail, err := h.workService.GetVersion(r.Context(), r.PathValue("id"), httputil.GetUserEmail(r), versionNumber)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	resp := versionDetailResponse{
		VersionNumber:  detail.Version.VersionNumber,
		Content:        detail.Version.Content,
		IsSubmitted:    detail.Version.IsSubmitted,
		UserReflection: detail.Version.UserReflection,
		ChangeType:     detail.Version.ChangeType,
		CreatedAt:      detail.Version.CreatedAt,
	}
	if detail.Analysis != nil {
		resp.Analysis = &analysisResponse{
			AnalysisID:        detail.Analysis.ID,
			FAOComment:        detail.Analysis.FAOComment,
			SentenceComments:  detail.Analysis.SentenceComments,
			ReflectionComment: detail.Analysis.ReflectionComment,
			RubricEvaluation:  detail.Analysis.RubricEvaluation,
		}
		resp.Resolutions = detail.Resolutions
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// ListResolutions returns the work's suggestion disposition history
// GET /api/works/{id}/resolutions
func (h *VersionHandler) ListResolutions(w http.ResponseWriter, r *http.Request) {
	resolutions, err := h.workService.ListResolutions(r.Context(), r.PathValue("id"), httputil.GetUserEmail(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"resolutions": resolutions})
}

type revertRequest struct {
	TargetVersion int    `json:"target_version"`
	DeviceID      string `json:"device_id"`
}

// Revert copies an old version's content into a new draft
// POST /api/works/{id}/revert
func (h *VersionHandler) Revert(w http.ResponseWriter, r *http.Request) {
	var req revertRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}

	newVersion, err := h.workService.Revert(r.Context(), r.PathValue("id"), httputil.GetUserEmail(r), req.DeviceID, req.TargetVersion)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "new_version": newVersion})
}
