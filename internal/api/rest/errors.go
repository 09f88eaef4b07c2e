package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Kasha228/forecasting/internal/api/schema"
	"github.com/Kasha228/forecasting/internal/forecast"
	"github.com/Kasha228/forecasting/internal/history"
	"github.com/Kasha228/forecasting/internal/repository"
)

// APIError represents a structured API error response
type APIError struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Error codes for common scenarios
const (
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeCircuitBreaker      = "CIRCUIT_BREAKER_OPEN"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeRequestTooLarge     = "REQUEST_TOO_LARGE"
	ErrCodeNotImplemented      = "NOT_IMPLEMENTED"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

// respondStructuredError sends a structured error response with error code and details
func respondStructuredError(w http.ResponseWriter, status int, code, message string, requestID string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIError{
		Error:     message,
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Details:   details,
	})
}

// classify maps an error from the service layer to a status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, schema.ErrInvalidDocument):
		return http.StatusBadRequest, ErrCodeValidationFailed
	case errors.Is(err, forecast.ErrUnknownAlgorithm),
		errors.Is(err, forecast.ErrInvalidEventType):
		return http.StatusBadRequest, ErrCodeInvalidRequest
	case errors.Is(err, forecast.ErrInvalidParameter),
		errors.Is(err, forecast.ErrNoValidHistory),
		errors.Is(err, forecast.ErrInvalidTimestamp),
		errors.Is(err, forecast.ErrInconsistentTimezone),
		errors.Is(err, forecast.ErrInsufficientSeasonalData),
		errors.Is(err, forecast.ErrDegenerateRate):
		return http.StatusBadRequest, ErrCodeValidationFailed
	case errors.Is(err, forecast.ErrUnsupportedEmbeddedHistory):
		return http.StatusNotImplemented, ErrCodeNotImplemented
	case errors.Is(err, history.ErrCircuitOpen):
		return http.StatusServiceUnavailable, ErrCodeCircuitBreaker
	case errors.Is(err, forecast.ErrHistoryUnavailable):
		return http.StatusBadGateway, ErrCodeUpstreamUnavailable
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// problemDetails turns schema violations into a location -> message map.
func problemDetails(err error) map[string]string {
	var de *schema.DocumentError
	if !errors.As(err, &de) {
		return nil
	}
	details := make(map[string]string, len(de.Problems))
	for _, p := range de.Problems {
		loc, msg, ok := strings.Cut(p, ": ")
		if !ok {
			loc, msg = "/", p
		}
		if prev, dup := details[loc]; dup {
			msg = prev + "; " + msg
		}
		details[loc] = msg
	}
	return details
}
