package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL_ERROR"
	CodeBadRequest        = "BAD_REQUEST"
	CodeTimeout           = "TIMEOUT"
	CodeUnavailable       = "SERVICE_UNAVAILABLE"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInvalidTransition = "INVALID_TRANSITION"
)

// defaultStatus is the HTTP status each code maps to unless the caller
// overrides it through New or Wrap.
var defaultStatus = map[string]int{
	CodeNotFound:          http.StatusNotFound,
	CodeValidation:        http.StatusUnprocessableEntity,
	CodeUnauthorized:      http.StatusUnauthorized,
	CodeForbidden:         http.StatusForbidden,
	CodeConflict:          http.StatusConflict,
	CodeInternal:          http.StatusInternalServerError,
	CodeBadRequest:        http.StatusBadRequest,
	CodeTimeout:           http.StatusGatewayTimeout,
	CodeUnavailable:       http.StatusServiceUnavailable,
	CodeInvalidInput:      http.StatusBadRequest,
	CodeRateLimited:       http.StatusTooManyRequests,
	CodeInvalidTransition: http.StatusBadRequest,
}

// AppError is the error every service returns to its handler. Err is the
// internal cause and is never rendered to clients.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

// ErrorResponse is the wire shape of an AppError.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) StatusCode() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	if status, ok := defaultStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{Code: e.Code, Message: e.Message, Details: e.Details}
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

func coded(code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: defaultStatus[code]}
}

func NotFound(resource string) *AppError {
	return coded(CodeNotFound, resource+" not found")
}

func NotFoundWithID(resource, id string) *AppError {
	e := NotFound(resource)
	e.Details = map[string]any{"resource": resource, "id": id}
	return e
}

// Validation carries per-field problems in details, keyed by field name.
func Validation(message string, details map[string]any) *AppError {
	e := coded(CodeValidation, message)
	e.Details = details
	return e
}

func InvalidInput(message string) *AppError { return coded(CodeInvalidInput, message) }
func Unauthorized(message string) *AppError { return coded(CodeUnauthorized, message) }
func Forbidden(message string) *AppError    { return coded(CodeForbidden, message) }
func Conflict(message string) *AppError     { return coded(CodeConflict, message) }
func Timeout(message string) *AppError      { return coded(CodeTimeout, message) }

func TooManyRequests(message string) *AppError { return coded(CodeRateLimited, message) }

func Internal(message string, err error) *AppError {
	e := coded(CodeInternal, message)
	e.Err = err
	return e
}

func Unavailable(service string) *AppError {
	return coded(CodeUnavailable, service+" is temporarily unavailable")
}

// InvalidTransition reports a booking action that is not legal from the
// booking's current status.
func InvalidTransition(action, current string, allowedFrom []string) *AppError {
	e := coded(CodeInvalidTransition, fmt.Sprintf("cannot %s a booking that is %s", action, current))
	e.Details = map[string]any{
		"action":         action,
		"current_status": current,
		"allowed_from":   allowedFrom,
	}
	return e
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError unwraps err to an AppError, hiding anything else behind a
// generic internal error.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
