package domain

import (
	"errors"
	"net/http"
)

// Business error codes. Every failure the service layer exposes to the
// HTTP boundary carries exactly one of these.
const (
	CodeNotFound                = "not_found"
	CodeLocked                  = "locked"
	CodeSuggestionsNotProcessed = "suggestions_not_processed"
	CodeLLMFailed               = "llm_failed"
	CodeClaudeTimeout           = "claude_timeout"
	CodeAnalysisSaveFailed      = "analysis_save_failed"
	CodeValidationFailed        = "validation_failed"
	CodeUnauthorized            = "unauthorized"
	CodeInvalidCredentials      = "invalid_credentials"
	CodeEmailTaken              = "email_taken"
	CodeUsernameTaken           = "username_taken"
	CodePasswordMismatch        = "password_mismatch"
)

// statusByCode maps business error codes to HTTP status codes. Codes
// not listed here map to 400.
var statusByCode = map[string]int{
	CodeNotFound:                http.StatusNotFound,
	CodeLocked:                  http.StatusConflict,
	CodeSuggestionsNotProcessed: http.StatusUnprocessableEntity,
	CodeLLMFailed:               http.StatusBadGateway,
	CodeClaudeTimeout:           http.StatusGatewayTimeout,
	CodeAnalysisSaveFailed:      http.StatusBadGateway,
	CodeValidationFailed:        http.StatusUnprocessableEntity,
	CodeUnauthorized:            http.StatusUnauthorized,
	CodeInvalidCredentials:      http.StatusUnauthorized,
	CodeEmailTaken:              http.StatusConflict,
	CodeUsernameTaken:           http.StatusConflict,
	CodePasswordMismatch:        http.StatusUnprocessableEntity,
}

// Error is the structured business error surfaced to callers. It
// implements HTTPError so handlers can map it without a switch per code.
type Error struct {
	Code    string
	Message string
}

// NewError creates a business error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string { return e.Message }

// ErrorCode returns the machine-readable code.
func (e *Error) ErrorCode() string { return e.Code }

// StatusCode returns the HTTP status for the error's code.
func (e *Error) StatusCode() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusBadRequest
}

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	ErrorCode() string
	StatusCode() int
}

// IsCode reports whether err is a business error with the given code.
func IsCode(err error, code string) bool {
	var be *Error
	return errors.As(err, &be) && be.Code == code
}
