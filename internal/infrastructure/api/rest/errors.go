package rest

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/swsreview/engine/internal/domain/apperr"
)

type APIError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(code, message string, httpStatus int) *APIError {
	return &APIError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func NewAPIErrorWithDetails(code, message string, httpStatus int, details map[string]interface{}) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: httpStatus}
}

var (
	ErrBadRequest       = NewAPIError("BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrInvalidJSON      = NewAPIError("INVALID_JSON", "Invalid JSON in request body", http.StatusBadRequest)
	ErrInternalServer   = NewAPIError("INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrValidationFailed = NewAPIError("VALIDATION_FAILED", "Validation failed", http.StatusBadRequest)
)

// TranslateError maps the domain error taxonomy (internal/domain/apperr) onto
// the JSON error envelope returned by the slim HTTP surface.
func TranslateError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var valErr *apperr.ValidationError
	if errors.As(err, &valErr) {
		return NewAPIErrorWithDetails("VALIDATION_FAILED", valErr.Error(), http.StatusBadRequest, map[string]interface{}{
			"field": valErr.Field,
		})
	}

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return NewAPIError("NOT_FOUND", "resource not found", http.StatusNotFound)
	case errors.Is(err, apperr.ErrConflict):
		return NewAPIError("CONFLICT", err.Error(), http.StatusConflict)
	case errors.Is(err, apperr.ErrValidation):
		return NewAPIError("VALIDATION_FAILED", err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrTransient):
		return NewAPIError("UPSTREAM_UNAVAILABLE", err.Error(), http.StatusBadGateway)
	case errors.Is(err, sql.ErrNoRows):
		return NewAPIError("NOT_FOUND", "resource not found", http.StatusNotFound)
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "no rows") || strings.Contains(errMsg, "not found") {
		return NewAPIError("NOT_FOUND", "resource not found", http.StatusNotFound)
	}

	return NewAPIError("INTERNAL_ERROR", "an unexpected error occurred", http.StatusInternalServerError)
}
