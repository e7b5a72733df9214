package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a typed error code.
type ErrorCode string

const (
	// ErrorCodeInternal represents an internal server error.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeNotFound represents a missing file.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeBadRequest represents a malformed request.
	ErrorCodeBadRequest ErrorCode = "BAD_REQUEST"
	// ErrorCodeUnauthorized represents a missing or unknown access key.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeForbidden represents a credential rejected by the backing store.
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrorCodeConflict represents a write that collides with an existing file.
	ErrorCodeConflict ErrorCode = "CONFLICT"
	// ErrorCodeValidation represents invalid input or settings.
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorCodeServiceUnavailable represents a transient storage failure.
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrorCodeTooManyRequests represents a caller over its rate limit.
	ErrorCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
)

// AppError is an error that knows how it should be rendered over HTTP.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Err        error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithErr attaches the underlying cause.
func (e *AppError) WithErr(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new application error.
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrorResponse is the JSON body written for failed requests.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ToErrorResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
	}
}

// ToHTTPStatus maps an error code to HTTP status code.
func ToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrorCodeBadRequest, ErrorCodeValidation:
		return http.StatusBadRequest
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts a standard error to an AppError.
// An AppError anywhere in the chain is returned as-is, anything else is
// wrapped as an internal error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return NewAppError(ErrorCodeInternal, "An internal error occurred", http.StatusInternalServerError).WithErr(err)
}

func newCoded(code ErrorCode, message string) *AppError {
	return NewAppError(code, message, ToHTTPStatus(code))
}

// NewBadRequestError creates a bad request error.
func NewBadRequestError(message string) *AppError {
	return newCoded(ErrorCodeBadRequest, message)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *AppError {
	return newCoded(ErrorCodeNotFound, message)
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	return newCoded(ErrorCodeUnauthorized, message)
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *AppError {
	return newCoded(ErrorCodeForbidden, message)
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *AppError {
	return newCoded(ErrorCodeInternal, message)
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return newCoded(ErrorCodeValidation, message)
}

// NewConflictError creates a conflict error.
func NewConflictError(message string) *AppError {
	return newCoded(ErrorCodeConflict, message)
}

// NewServiceUnavailableError creates a service unavailable error.
func NewServiceUnavailableError(message string) *AppError {
	return newCoded(ErrorCodeServiceUnavailable, message)
}
