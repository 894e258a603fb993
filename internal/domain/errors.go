package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Token exchange & wire protocol errors
	ErrorCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrorCodeProtocolDecode       ErrorCode = "PROTOCOL_DECODE"
	ErrorCodeUnrecognizedStatus   ErrorCode = "UNRECOGNIZED_STATUS"
	ErrorCodeTransport            ErrorCode = "TRANSPORT_ERROR"

	// SCA ceremony errors (AUTHORIZATION_*)
	ErrorCodeAuthorizationRejected   ErrorCode = "AUTHORIZATION_REJECTED"
	ErrorCodeAuthorizationFailed     ErrorCode = "AUTHORIZATION_FAILED"
	ErrorCodeAuthorizationIncomplete ErrorCode = "AUTHORIZATION_INCOMPLETE"
	ErrorCodeNoAuthenticationMethod  ErrorCode = "NO_AUTHENTICATION_METHOD"

	// Bank-side transaction outcomes (TRANSACTION_*)
	ErrorCodeTransactionRejected  ErrorCode = "TRANSACTION_REJECTED"
	ErrorCodeTransactionCancelled ErrorCode = "TRANSACTION_CANCELLED"

	// Stored outbound payments (PAYMENT_*)
	ErrorCodePaymentNotFound    ErrorCode = "PAYMENT_NOT_FOUND"
	ErrorCodePaymentAlreadyPaid ErrorCode = "PAYMENT_ALREADY_PAID"
	ErrorCodePaymentInBasket    ErrorCode = "PAYMENT_IN_BASKET"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrorCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeShuttingDown  ErrorCode = "SHUTTING_DOWN"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsProtocolError reports failures caused by the bank API answering with
// something the client could not interpret.
func IsProtocolError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeProtocolDecode ||
		code == ErrorCodeUnrecognizedStatus
}

// IsAuthorizationError checks if the SCA ceremony ended adversely
func IsAuthorizationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeAuthorizationRejected ||
		code == ErrorCodeAuthorizationFailed ||
		code == ErrorCodeNoAuthenticationMethod
}

// IsTransactionError checks if the bank reported a terminal adverse payment outcome
func IsTransactionError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeTransactionRejected ||
		code == ErrorCodeTransactionCancelled
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	return GetErrorCode(err) == ErrorCodePaymentNotFound
}

// NewAuthenticationError reports a failed client-credentials token exchange.
func NewAuthenticationError(message string) *DomainError {
	return NewDomainError(ErrorCodeAuthenticationFailed, message)
}

// NewProtocolDecodeError names the resource, operation and field that could not be decoded.
func NewProtocolDecodeError(resource, operation, field string) *DomainError {
	msg := fmt.Sprintf("unable to decode %s response for %s", resource, operation)
	if field != "" {
		msg += fmt.Sprintf(": missing or invalid %q", field)
	}
	return NewDomainError(ErrorCodeProtocolDecode, msg).
		WithDetail("resource", resource).
		WithDetail("operation", operation).
		WithDetail("field", field)
}

// NewUnrecognizedStatusError reports an enumeration value outside the known set.
func NewUnrecognizedStatusError(kind, value string) *DomainError {
	return NewDomainError(ErrorCodeUnrecognizedStatus,
		fmt.Sprintf("unrecognized %s received: %s", kind, value)).
		WithDetail("kind", kind).
		WithDetail("value", value)
}

// NewAuthorizationRejected joins the bank's error texts into one message.
func NewAuthorizationRejected(texts []string) *DomainError {
	return NewDomainError(ErrorCodeAuthorizationRejected, strings.Join(texts, "\n")).
		WithDetail("messages", texts)
}

// NewConfigurationError reports missing or invalid service configuration.
func NewConfigurationError(message string) *DomainError {
	return NewDomainError(ErrorCodeConfiguration, message)
}

// NewValidationError reports an invalid end-user request field.
func NewValidationError(field, message string) *DomainError {
	return NewDomainError(ErrorCodeValidationFailed, message).WithDetail("field", field)
}

// Structured error instances
var (
	ErrNoAuthenticationMethod = NewDomainError(ErrorCodeNoAuthenticationMethod,
		"Unable to find a Mobile Bank ID authorization method for the operation.")
	ErrAuthorizationFailed     = NewDomainError(ErrorCodeAuthorizationFailed, "Authorization failed.")
	ErrAuthorizationIncomplete = NewDomainError(ErrorCodeAuthorizationIncomplete, "Transaction took too long to complete.")

	ErrPaymentRejected  = NewDomainError(ErrorCodeTransactionRejected, "Payment was rejected.")
	ErrPaymentCancelled = NewDomainError(ErrorCodeTransactionCancelled, "Payment was cancelled.")
	ErrBasketRejected   = NewDomainError(ErrorCodeTransactionRejected, "Payment basket was rejected.")

	ErrPaymentNotFound    = NewDomainError(ErrorCodePaymentNotFound, "outbound payment not found")
	ErrPaymentAlreadyPaid = NewDomainError(ErrorCodePaymentAlreadyPaid, "outbound payment has already been paid")
	ErrPaymentInBasket    = NewDomainError(ErrorCodePaymentInBasket, "outbound payment is already part of a payment basket")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrShuttingDown  = NewDomainError(ErrorCodeShuttingDown, "Service is shutting down.")
)
