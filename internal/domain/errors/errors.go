package errors

import (
	"errors"
	"fmt"
)

// Error types surfaced by the client data layer
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeBusiness     ErrorType = "business"
	ErrorTypeTransport    ErrorType = "transport"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
)

// GenericMessage is the fixed fallback when no more specific message is
// available from the server or the transport.
const GenericMessage = "Unexpected error"

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		Retryable:  false,
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		Retryable:  false,
		StatusCode: 403,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       "CONFLICT",
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

// NewTransportError marks a request that never produced a response
// (connection refused, timeout, canceled context).
func NewTransportError(message string) *AppError {
	return &AppError{
		Type:      ErrorTypeTransport,
		Code:      "TRANSPORT_ERROR",
		Message:   message,
		Retryable: true,
	}
}

// FromStatus builds an AppError for an HTTP failure response. The message
// precedence is: server-provided message, then server-provided error code,
// then the HTTP status text.
func FromStatus(statusCode int, serverMessage, serverError, statusText string) *AppError {
	message := serverMessage
	if message == "" {
		message = serverError
	}
	if message == "" {
		message = statusText
	}
	if message == "" {
		message = GenericMessage
	}

	e := &AppError{
		Code:       "REQUEST_FAILED",
		Message:    message,
		StatusCode: statusCode,
	}
	switch {
	case statusCode == 401:
		e.Type = ErrorTypeUnauthorized
		e.Code = "UNAUTHORIZED"
	case statusCode == 403:
		e.Type = ErrorTypeForbidden
		e.Code = "FORBIDDEN"
	case statusCode == 404:
		e.Type = ErrorTypeNotFound
		e.Code = "RESOURCE_NOT_FOUND"
	case statusCode == 409:
		e.Type = ErrorTypeConflict
		e.Code = "CONFLICT"
	case statusCode >= 400 && statusCode < 500:
		e.Type = ErrorTypeValidation
	default:
		e.Type = ErrorTypeInternal
		e.Retryable = true
	}
	return e
}

// UserMessage extracts a human-readable message from any error, following
// the same precedence everywhere in the data layer: structured AppError
// message, then the raw error text, then the generic fallback.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return GenericMessage
}

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsUnauthorized reports whether the error represents a 401 from the server.
func IsUnauthorized(err error) bool {
	return IsType(err, ErrorTypeUnauthorized)
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
