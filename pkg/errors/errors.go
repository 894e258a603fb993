package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory represents the category of error for handling
type ErrorCategory string

const (
	CategoryClientError    ErrorCategory = "client_error"  // 4xx other than auth/throttling
	CategoryUnauthorized   ErrorCategory = "unauthorized"  // 401/403, token or certificate problem
	CategoryNotFound       ErrorCategory = "not_found"     // resource id unknown to the bank
	CategoryRateLimited    ErrorCategory = "rate_limited"  // 429
	CategorySystemError    ErrorCategory = "system_error"  // 5xx
	CategoryNetworkError   ErrorCategory = "network_error" // no HTTP response at all
	CategoryInvalidRequest ErrorCategory = "invalid_request"
)

// APIError is a non-2xx answer from the bank API
type APIError struct {
	StatusCode  int
	Message     string // first TPP message, error field, or raw body
	Body        string
	RequestID   string
	Category    ErrorCategory
	IsRetriable bool
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Category, e.Message)
	}
	return fmt.Sprintf("HTTP %d (%s): %s", e.StatusCode, e.Category, e.Message)
}

// NewAPIError categorises a failed response by status code
func NewAPIError(statusCode int, message, body, requestID string) *APIError {
	category, retriable := categorize(statusCode)
	return &APIError{
		StatusCode:  statusCode,
		Message:     message,
		Body:        body,
		RequestID:   requestID,
		Category:    category,
		IsRetriable: retriable,
	}
}

func categorize(statusCode int) (ErrorCategory, bool) {
	switch {
	case statusCode == 0:
		return CategoryNetworkError, true
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return CategoryUnauthorized, false
	case statusCode == http.StatusNotFound:
		return CategoryNotFound, false
	case statusCode == http.StatusTooManyRequests:
		return CategoryRateLimited, true
	case statusCode == http.StatusBadRequest:
		return CategoryInvalidRequest, false
	case statusCode >= 500:
		return CategorySystemError, true
	default:
		return CategoryClientError, false
	}
}

// AsAPIError extracts an APIError from an error chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsRetriable reports whether err is an APIError worth retrying
func IsRetriable(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.IsRetriable
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
