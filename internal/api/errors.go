package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"stockmeta/internal/batch"
	"stockmeta/internal/export"
	"stockmeta/internal/generator"
	"stockmeta/internal/logging"
	"stockmeta/internal/queue"
	"stockmeta/internal/services"
	"stockmeta/internal/session"
	"stockmeta/internal/workspace"
)

// APIError represents a structured API error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error.
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewNotFoundError creates a 404 Not Found error.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

var errorCodes = []struct {
	target  error
	status  int
	code    string
	message string
}{
	{batch.ErrBatchRunning, http.StatusConflict, "BATCH_RUNNING", "a batch is already running"},
	{workspace.ErrNotRunning, http.StatusConflict, "NOT_RUNNING", "no batch is running"},
	{queue.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION", "item cannot change to that status"},
	{generator.ErrMissingCredential, http.StatusPreconditionFailed, "MISSING_API_KEY", "set a Gemini API key first"},
	{generator.ErrEmptyResponse, http.StatusBadGateway, "EMPTY_RESPONSE", "No response text generated"},
	{session.ErrNoSession, http.StatusUnauthorized, "NO_SESSION", "no user is signed in"},
	{session.ErrEmailRequired, http.StatusBadRequest, "VALIDATION_ERROR", "email is required"},
	{session.ErrPasswordRequired, http.StatusBadRequest, "VALIDATION_ERROR", "password is required for developer accounts"},
	{export.ErrNothingToExport, http.StatusNotFound, "NOTHING_TO_EXPORT", "no results to export"},
	{workspace.ErrNoResult, http.StatusNotFound, "NO_RESULT", "item has no result"},
	{services.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "not found"},
	{services.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request"},
	{services.ErrConfiguration, http.StatusPreconditionFailed, "CONFIGURATION_ERROR", "configuration incomplete"},
}

// FromError maps err to the API error it is reported as. Known domain errors
// get stable codes; anything else is an internal error carrying err's text.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	}
	for _, known := range errorCodes {
		if errors.Is(err, known.target) {
			return &APIError{
				Status:  known.status,
				Code:    known.code,
				Message: known.message,
				Details: err.Error(),
			}
		}
	}
	return &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: "An unexpected error occurred",
		Details: err.Error(),
	}
}

// ErrorHandler renders handler errors as APIError JSON.
// Usage: e.HTTPErrorHandler = api.ErrorHandler(logger)
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		apiErr := FromError(err)
		if apiErr.Status >= http.StatusInternalServerError {
			logging.ErrorWithContext(logger, "request failed", "api_internal_error",
				logging.String("method", c.Request().Method),
				logging.String("path", c.Path()),
				logging.Error(err),
			)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(apiErr.Status)
			return
		}
		_ = c.JSON(apiErr.Status, apiErr)
	}
}
