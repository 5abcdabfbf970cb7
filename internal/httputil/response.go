// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/credentials/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ClassifyError maps an error chain to a status code and a response that is safe
// to send to clients. Details of internal errors are not exposed.
func ClassifyError(err error) (int, ErrorResponse) {
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "The requested resource was not found",
		}
	case apperrors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: "A conflict occurred with existing data",
		}
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "invalid_input",
			Message: err.Error(),
		}
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication is required",
		}
	case apperrors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "You don't have permission to access this resource",
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		}
	}
}

// ErrorCode returns the client-facing code of err, e.g. "not_found". Invalid input
// keeps its message since it describes the caller's own request.
func ErrorCode(err error) string {
	_, response := ClassifyError(err)
	if response.Error == "invalid_input" {
		return response.Error + ": " + response.Message
	}
	return response.Error
}

// HandleErrorGin logs err and writes the mapped JSON error response.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, errorResponse := ClassifyError(err)

	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	})
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}
