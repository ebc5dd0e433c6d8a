package errors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrValidation     = errors.New("validation failed")
	ErrUpload         = errors.New("upload failed")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrInternalServer = errors.New("internal server error")

	ErrMessageNotFound error = &kindError{kind: ErrNotFound, msg: "Message not found"}
	ErrUserNotFound    error = &kindError{kind: ErrNotFound, msg: "User not found"}
	ErrSongNotFound    error = &kindError{kind: ErrNotFound, msg: "Song not found"}
	ErrAlbumNotFound   error = &kindError{kind: ErrNotFound, msg: "Album not found"}
	ErrStatusNotFound  error = &kindError{kind: ErrNotFound, msg: "User status not found"}
	ErrInvalidToken    error = &kindError{kind: ErrUnauthorized, msg: "Invalid or expired token"}
	ErrNotSender       error = &kindError{kind: ErrForbidden, msg: "You can only modify your own messages"}
	ErrAdminOnly       error = &kindError{kind: ErrForbidden, msg: "Forbidden: Admins only"}
	ErrSessionMismatch error = &kindError{kind: ErrForbidden, msg: "Session belongs to another user"}
)

// Machine readable codes returned next to the human message.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeUpload       = "UPLOAD_FAILED"
	CodeRateLimited  = "RATE_LIMITED"
	CodeServer       = "SERVER_ERROR"
)

type APIError struct {
	Message string `json:"error"`
	Code    string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code string) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

// Validation wraps a human readable message as a validation failure.
func Validation(message string) error {
	return &kindError{kind: ErrValidation, msg: message}
}

// Upload wraps cause as an upload failure; the message stays client safe.
func Upload(message string, cause error) error {
	return &kindError{kind: ErrUpload, msg: message, cause: cause}
}

// Internal hides cause behind a generic server error.
func Internal(cause error) error {
	return &kindError{kind: ErrInternalServer, msg: "Server error", cause: cause}
}

type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.cause }

func HTTPStatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func CodeFromError(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUpload):
		return CodeUpload
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	default:
		return CodeServer
	}
}

// FromError converts err into the JSON body sent to clients.
// Uncategorized errors never leak their text.
func FromError(err error) *APIError {
	code := CodeFromError(err)
	if code == CodeServer && !errors.Is(err, ErrInternalServer) {
		return NewAPIError("Server error", code)
	}
	return NewAPIError(err.Error(), code)
}
