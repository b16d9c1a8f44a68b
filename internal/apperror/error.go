// Package apperror provides structured errors rendered as {code, message, details}.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInternal   = "INTERNAL_ERROR"
	CodeDatabase   = "DATABASE_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeBadConfig  = "CONFIG_INVALID"
)

// AppError is the error type handlers hand to the error middleware.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// NewValidation creates a validation error (400).
func NewValidation(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NewFieldErrors creates a validation error carrying per-field messages.
func NewFieldErrors(fields map[string]string) *AppError {
	return NewValidation("form has invalid fields").WithDetail("fields", fields)
}

// NewNotFound creates a not found error (404).
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewConflict creates a conflict error (409).
func NewConflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// NewBadConfig reports form configuration that failed loading or lint (400).
func NewBadConfig(message string) *AppError {
	return &AppError{Code: CodeBadConfig, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NewDatabase wraps a store failure (502: the store is an upstream dependency).
func NewDatabase(op string, err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "store request failed",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"op": op},
		Err:        err,
	}
}

// NewInternal creates an internal server error; details stay out of the response.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// AsAppError extracts AppError from error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound.
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// FieldErrorsOf returns the per-field messages of a validation error, if any.
func FieldErrorsOf(err error) (map[string]string, bool) {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Code != CodeValidation {
		return nil, false
	}
	fields, ok := appErr.Details["fields"].(map[string]string)
	return fields, ok
}
