package handler

import (
	"log/slog"
	"net/http"

	"redraft/internal/httputil"
	workservice "redraft/internal/service/work"
)

// CommentHandler handles the per-work conversation thread.
type CommentHandler struct {
	workService *workservice.Service
	logger      *slog.Logger
}

func NewCommentHandler(workService *workservice.Service, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{workService: workService, logger: logger}
}

type addCommentRequest struct {
	Content string `json:"content"`
}

// Add appends a comment
// POST /api/works/{id}/comments
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil || req.Content == "" {
		httputil.RespondError(w, http.StatusBadRequest, "validation_failed", "content is required")
		return
	}

	id, err := h.workService.AddComment(r.Context(), r.PathValue("id"), httputil.GetUserEmail(r), req.Content)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, map[string]string{"comment_id": id})
}

// List returns the thread, oldest first
// GET /api/works/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	comments, err := h.workService.ListComments(r.Context(), r.PathValue("id"), httputil.GetUserEmail(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}
