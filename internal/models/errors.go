package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

var codeStatus = map[string]int{
	CodeNotFound:     fiber.StatusNotFound,
	CodeValidation:   fiber.StatusBadRequest,
	CodeUnauthorized: fiber.StatusUnauthorized,
	CodeForbidden:    fiber.StatusForbidden,
	CodeConflict:     fiber.StatusConflict,
	CodeInternal:     fiber.StatusInternalServerError,
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError is a store or service failure tagged with one of the Code values.
// Message is safe to show to gallery users; Err carries the cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

// Status is the HTTP status for the error's code.
func (e *AppError) Status() int {
	if s, ok := codeStatus[e.Code]; ok {
		return s
	}
	return fiber.StatusInternalServerError
}

func newError(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError reports a missing pin, user, collection or notification.
func NewNotFoundError(resource string, id any) *AppError {
	return newError(CodeNotFound, fmt.Sprintf("%s with ID %v not found", resource, id), nil)
}

func NewValidationError(message string) *AppError {
	return newError(CodeValidation, message, nil)
}

func NewUnauthorizedError(message string) *AppError {
	return newError(CodeUnauthorized, message, nil)
}

// NewForbiddenError is for a signed-in user touching another user's pin or
// collection.
func NewForbiddenError(message string) *AppError {
	return newError(CodeForbidden, message, nil)
}

// NewConflictError covers duplicate keys and optimistic updates that kept
// losing to a concurrent writer.
func NewConflictError(message string, err error) *AppError {
	return newError(CodeConflict, message, err)
}

func NewInternalError(err error) *AppError {
	return newError(CodeInternal, "Internal server error", err)
}

func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusOf maps err to an HTTP status; errors without a code are 500s.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status()
	}
	return fiber.StatusInternalServerError
}

// RespondWithError writes err as an ErrorResponse with the given status.
// Internal causes are only exposed for non-500 errors.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	response := ErrorResponse{Error: err.Error()}
	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{Error: appErr.Message, Code: appErr.Code}
		if appErr.Err != nil && appErr.Code != CodeInternal {
			response.Details = appErr.Err.Error()
		}
	}
	return c.Status(status).JSON(response)
}
