package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"redraft/internal/domain"
	"redraft/internal/httputil"
)

// handleError translates a service error into the {code, message}
// wire contract. Unknown errors become an opaque 500.
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.ErrorCode(), httpErr.Error())
		return
	}

	logger.Error("unexpected error", "error", err)
	httputil.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
}
