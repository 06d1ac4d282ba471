package handler

import (
	"log/slog"
	"net/http"

	"redraft/internal/httputil"
	authservice "redraft/internal/service/auth"
)

// AuthHandler handles signup, login, and password changes.
type AuthHandler struct {
	authService *authservice.Service
	logger      *slog.Logger
}

func NewAuthHandler(authService *authservice.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Signup creates an account
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}

	result, err := h.authService.Signup(r.Context(), authservice.SignupInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, authResponse{
		UserID: result.UserID, Email: result.Email, Username: result.Username, Token: result.Token,
	})
}

type loginRequest struct {
	EmailOrUsername string `json:"email_or_username"`
	Password        string `json:"password"`
}

// Login authenticates by email or username
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), req.EmailOrUsername, req.Password)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, authResponse{
		UserID: result.UserID, Email: result.Email, Username: result.Username, Token: result.Token,
	})
}

type changePasswordRequest struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// ChangePassword rotates the caller's password
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}

	email := httputil.GetUserEmail(r)
	if err := h.authService.ChangePassword(r.Context(), email, req.OldPassword, req.NewPassword, req.NewPasswordConfirm); err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
