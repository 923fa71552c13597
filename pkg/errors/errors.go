package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound marks a repository-host 404 (content deleted after its
	// commit). Tolerated per item, never fatal for a whole scan.
	ErrNotFound = errors.New("content not found")
	// ErrBadModelOutput marks a language-model response that failed shape
	// validation (classifier or digest). Stage-fatal.
	ErrBadModelOutput = errors.New("model output failed shape validation")
	// ErrInvalidSignature marks a queue message whose envelope failed HMAC
	// verification. The message is rejected before any processing.
	ErrInvalidSignature = errors.New("invalid message signature")
	ErrStageFailed      = errors.New("pipeline stage failed")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
