package domain

import (
	"errors"
	"net/http"
)

// Error codes for business logic errors.
const (
	CodeApp                = 0 // generic; HTTP status taken from AppError.Status (default 400)
	CodeNotFound           = 1
	CodeAlreadyExists      = 2
	CodeValidation         = 3
	CodeInternal           = 4
	CodeUnauthorized       = 5
	CodeForbidden          = 6
	CodeInvalidToken       = 7
	CodeStorageUnavailable = 8
)

// AppError represents a business logic error with a code, message, and optional wrapped error.
// Status overrides the code-derived HTTP status when non-zero.
// Details carries structured context (for example per-field validation messages)
// that is safe to show to clients.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Details any    `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined business errors.
//
// To check whether an error matches one of these categories, use the
// corresponding helper function (IsNotFound, IsAlreadyExists, etc.)
// instead of errors.Is. The helpers use errors.As with error-code
// comparison, so they correctly match any *AppError that carries the
// same code, including freshly constructed instances from NewAppError
// and wrapped errors. errors.Is only matches by pointer identity with
// the specific sentinel below.
var (
	ErrNotFound           = &AppError{Code: CodeNotFound, Message: "Resource not found"}
	ErrAlreadyExists      = &AppError{Code: CodeAlreadyExists, Message: "Resource already exists"}
	ErrValidation         = &AppError{Code: CodeValidation, Message: "Validation error"}
	ErrInternal           = &AppError{Code: CodeInternal, Message: "Internal server error"}
	ErrUnauthorized       = &AppError{Code: CodeUnauthorized, Message: "Not authenticated"}
	ErrForbidden          = &AppError{Code: CodeForbidden, Message: "Not enough permissions"}
	ErrInvalidToken       = &AppError{Code: CodeInvalidToken, Message: "Invalid or expired token"}
	ErrInvalidCredentials = &AppError{Code: CodeUnauthorized, Message: "Invalid email or password"}
	ErrStorageUnavailable = &AppError{Code: CodeStorageUnavailable, Message: "Storage unavailable"}
)

// NewAppError creates a new AppError with the given code, message, and wrapped error.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewStatusError creates a generic AppError that renders with the given HTTP status.
// A status of 0 renders as 400.
func NewStatusError(status int, message string) *AppError {
	return &AppError{
		Code:    CodeApp,
		Message: message,
		Status:  status,
	}
}

// NewValidationError creates a validation AppError carrying per-field details.
func NewValidationError(message string, details any) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Details: details,
	}
}

// NotFound returns a not-found AppError naming the missing resource, e.g. "Item not found".
func NotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, resource+" not found", nil)
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsAlreadyExists reports whether err is or wraps an AppError with CodeAlreadyExists.
func IsAlreadyExists(err error) bool {
	return hasCode(err, CodeAlreadyExists)
}

// IsValidation reports whether err is or wraps an AppError with CodeValidation.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsInternal reports whether err is or wraps an AppError with CodeInternal.
func IsInternal(err error) bool {
	return hasCode(err, CodeInternal)
}

// IsUnauthorized reports whether err is or wraps an AppError with CodeUnauthorized
// or CodeInvalidToken. Both surface to clients as 401.
func IsUnauthorized(err error) bool {
	return hasCode(err, CodeUnauthorized) || hasCode(err, CodeInvalidToken)
}

// IsForbidden reports whether err is or wraps an AppError with CodeForbidden.
func IsForbidden(err error) bool {
	return hasCode(err, CodeForbidden)
}

// IsInvalidToken reports whether err is or wraps an AppError with CodeInvalidToken.
func IsInvalidToken(err error) bool {
	return hasCode(err, CodeInvalidToken)
}

// IsStorageUnavailable reports whether err is or wraps an AppError with CodeStorageUnavailable.
func IsStorageUnavailable(err error) bool {
	return hasCode(err, CodeStorageUnavailable)
}

// hasCode checks whether err is or wraps an *AppError with the given code.
func hasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatusCode maps an error to an HTTP status code.
// If the error is an *AppError, the code is mapped; otherwise http.StatusInternalServerError is returned.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if err != nil && errors.As(err, &appErr) {
		if appErr.Status != 0 {
			return appErr.Status
		}
		switch appErr.Code {
		case CodeApp, CodeValidation:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeAlreadyExists:
			return http.StatusConflict
		case CodeUnauthorized, CodeInvalidToken:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		case CodeInternal, CodeStorageUnavailable:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
