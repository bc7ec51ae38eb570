// Package errors provides error handling and HTTP status code mapping for
// the flight tracking service.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/skyward/flighttrack/internal/auth"
	"github.com/skyward/flighttrack/internal/model"
	"github.com/skyward/flighttrack/internal/store"
)

// ErrorCode represents application-specific error codes.
type ErrorCode string

const (
	// General errors
	ErrorCodeUnknown        ErrorCode = "UNKNOWN"
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrorCodeServiceDown    ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeRateLimited    ErrorCode = "RATE_LIMITED"

	// Flight store errors
	ErrorCodeFlightNotFound ErrorCode = "FLIGHT_NOT_FOUND"
	ErrorCodeWriteConflict  ErrorCode = "WRITE_CONFLICT"

	// Auth errors
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// ErrorResponse represents the standard error response format.
type ErrorResponse struct {
	Status    string    `json:"status"`
	ErrorCode ErrorCode `json:"error_code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// Handler provides error handling functionality.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

// HandleError maps a typed service error to an HTTP response. Auth failures
// are checked first and surfaced immediately; everything unrecognized is a
// 500.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := r.Header.Get("X-Request-ID")

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		h.WriteErrorResponse(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid or missing credentials", requestID)
	case errors.Is(err, model.ErrValidation):
		h.WriteErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error(), requestID)
	case errors.Is(err, store.ErrNotFound):
		h.WriteErrorResponse(w, http.StatusNotFound, ErrorCodeFlightNotFound, "flight not found", requestID)
	case errors.Is(err, store.ErrConflict):
		h.WriteErrorResponse(w, http.StatusConflict, ErrorCodeWriteConflict, "concurrent write conflict, retry the request", requestID)
	case errors.Is(err, store.ErrUnavailable):
		h.WriteErrorResponse(w, http.StatusServiceUnavailable, ErrorCodeServiceDown, "storage backend unavailable", requestID)
	default:
		h.logger.Error("unhandled error",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
		)
		h.WriteErrorResponse(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error", requestID)
	}
}

// WriteErrorResponse writes a formatted error response to the HTTP response writer.
func (h *Handler) WriteErrorResponse(w http.ResponseWriter, statusCode int, errorCode ErrorCode, message string, requestID string) {
	h.logger.Warn("HTTP error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", string(errorCode)),
		zap.String("message", message),
		zap.String("request_id", requestID),
	)

	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: errorCode,
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// WriteValidationError writes a validation error response.
func (h *Handler) WriteValidationError(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, message, requestID)
}

// WriteUnauthorized writes an authentication rejection response.
func (h *Handler) WriteUnauthorized(w http.ResponseWriter, requestID string) {
	h.WriteErrorResponse(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid or missing credentials", requestID)
}

// WriteInternalError writes an internal error response.
func (h *Handler) WriteInternalError(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusInternalServerError, ErrorCodeInternalError, message, requestID)
}
