package handler

import (
	"log/slog"
	"net/http"
	"time"

	"redraft/internal/domain/models"
	"redraft/internal/httputil"
	workservice "redraft/internal/service/work"
)

// WorkHandler handles work CRUD and the update/submit flows.
type WorkHandler struct {
	workService *workservice.Service
	logger      *slog.Logger
}

func NewWorkHandler(workService *workservice.Service, logger *slog.Logger) *WorkHandler {
	return &WorkHandler{workService: workService, logger: logger}
}

// HealthCheck reports liveness
// GET /health
func (h *WorkHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Create makes an empty work
// POST /api/works
func (h *WorkHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := h.workService.Create(r.Context(), httputil.GetUserEmail(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, map[string]string{"work_id": id})
}

type workListItem struct {
	WorkID         string    `json:"work_id"`
	Title          string    `json:"title"`
	CurrentVersion int       `json:"current_version"`
	WordCount      int       `json:"word_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// List returns the caller's works
// GET /api/works
func (h *WorkHandler) List(w http.ResponseWriter, r *http.Request) {
	works, err := h.workService.List(r.Context(), httputil.GetUserEmail(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	items := make([]workListItem, 0, len(works))
	for _, work := range works {
		items = append(items, workListItem{
			WorkID:         work.ID,
			Title:          work.Title,
			CurrentVersion: work.CurrentVersion,
			WordCount:      work.WordCount,
			UpdatedAt:      work.UpdatedAt,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"works": items})
}

type workResponse struct {
	WorkID         string      `json:"work_id"`
	Title          string      `json:"title"`
	Content        string      `json:"content"`
	CurrentVersion int         `json:"current_version"`
	WordCount      int         `json:"word_count"`
	EssayPrompt    *string     `json:"essay_prompt,omitempty"`
	Rubric         interface{} `json:"rubric,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Get returns one work
// GET /api/works/{id}
func (h *WorkHandler) Get(w http.ResponseWriter, r *http.Request) {
	work, err := h.workService.Get(r.Context(), r.PathValue("id"), httputil.GetUserEmail(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, workResponse{
		WorkID:         work.ID,
		Title:          work.Title,
		Content:        work.Content,
		CurrentVersion: work.CurrentVersion,
		WordCount:      work.WordCount,
		EssayPrompt:    work.EssayPrompt,
		Rubric:         decodeRubric(work.Rubric),
		CreatedAt:      work.CreatedAt,
		UpdatedAt:      work.UpdatedAt,
	})
}

// Stats returns aggregate word and project counts
// GET /api/works/stats
func (h *WorkHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.workService.Stats(r.Context(), httputil.GetUserEmail(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, stats)
}

type updateRequest struct {
	Content     string  `json:"content"`
	DeviceID    string  `json:"device_id"`
	AutoSave    bool    `json:"auto_save"`
	EssayPrompt *string `json:"essay_prompt,omitempty"`
}

type updateResponse struct {
	OK      bool `json:"ok"`
	Version *int `json:"version,omitempty"`
}

// Update writes content, optionally creating a draft version
// POST /api/works/{id}/update
func (h *WorkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}

	result, err := h.workService.Update(r.Context(), workservice.UpdateInput{
		WorkID:      r.PathValue("id"),
		UserEmail:   httputil.GetUserEmail(r),
		Content:     req.Content,
		DeviceID:    req.DeviceID,
		AutoSave:    req.AutoSave,
		EssayPrompt: req.EssayPrompt,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, updateResponse{OK: true, Version: result.Version})
}

type submitRequest struct {
	Content           string                             `json:"content"`
	DeviceID          string                             `json:"device_id"`
	FAOReflection     *string                            `json:"fao_reflection,omitempty"`
	SuggestionActions map[string]models.SuggestionAction `json:"suggestion_actions,omitempty"`
}

type submitResponse struct {
	OK         bool   `json:"ok"`
	Version    int    `json:"version"`
	AnalysisID string `json:"analysis_id"`
}

// Submit creates a submitted version and runs AI analysis
// POST /api/works/{id}/submit
func (h *WorkHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}

	result, err := h.workService.Submit(r.Context(), workservice.SubmitInput{
		WorkID:            r.PathValue("id"),
		UserEmail:         httputil.GetUserEmail(r),
		Content:           req.Content,
		DeviceID:          req.DeviceID,
		UserReflection:    req.FAOReflection,
		SuggestionActions: req.SuggestionActions,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, submitResponse{OK: true, Version: result.Version, AnalysisID: result.AnalysisID})
}

type renameRequest struct {
	Title string `json:"title"`
}

// Rename updates the title
// POST /api/works/{id}/rename
func (h *WorkHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil || req.Title == "" {
		httputil.RespondError(w, http.StatusBadRequest, "validation_failed", "title is required")
		return
	}

	if err := h.workService.Rename(r.Context(), r.PathValue("id"), httputil.GetUserEmail(r), req.Title); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Delete removes a work and everything under it
// DELETE /api/works/{id}
func (h *WorkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.workService.Delete(r.Context(), r.PathValue("id"), httputil.GetUserEmail(r)); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type lockRequest struct {
	DeviceID string `json:"device_id"`
}

// ReleaseLock drops the caller's session lock
// POST /api/works/{id}/lock/release
func (h *WorkHandler) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}

	released, err := h.workService.ReleaseLock(r.Context(), r.PathValue("id"), httputil.GetUserEmail(r), req.DeviceID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true, "released": released})
}

// LockHolder reports the device currently holding the lock
// GET /api/works/{id}/lock
func (h *WorkHandler) LockHolder(w http.ResponseWriter, r *http.Request) {
	holder, err := h.workService.LockHolder(r.Context(), r.PathValue("id"), httputil.GetUserEmail(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	resp := map[string]interface{}{"locked": holder != ""}
	if holder != "" {
		resp["holder"] = holder
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
