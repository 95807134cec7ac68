package utils

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCategory classifies failures so handlers can pick a status code.
type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "validation"
	CategoryUnauthorized ErrorCategory = "unauthorized"
	CategoryForbidden    ErrorCategory = "forbidden"
	CategoryNotFound     ErrorCategory = "not_found"
	CategoryConflict     ErrorCategory = "conflict"
	CategoryRateLimited  ErrorCategory = "rate_limited"
	CategoryInternal     ErrorCategory = "internal"
)

// AppError carries a category, a client-safe message and the underlying error.
type AppError struct {
	Category ErrorCategory
	Message  string
	Err      error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// PublicMessage hides internal detail from clients.
func (e *AppError) PublicMessage() string {
	if e.Category == CategoryInternal {
		return "internal server error"
	}
	return e.Message
}

func (e *AppError) HTTPStatus() int {
	switch e.Category {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryForbidden:
		return http.StatusForbidden
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	case CategoryRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func Validation(format string, args ...interface{}) *AppError {
	return &AppError{Category: CategoryValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) *AppError {
	return &AppError{Category: CategoryUnauthorized, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Category: CategoryForbidden, Message: message}
}

func NotFound(format string, args ...interface{}) *AppError {
	return &AppError{Category: CategoryNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *AppError {
	return &AppError{Category: CategoryConflict, Message: fmt.Sprintf(format, args...)}
}

func RateLimited(message string) *AppError {
	return &AppError{Category: CategoryRateLimited, Message: message}
}

func Internal(message string, err error) *AppError {
	return &AppError{Category: CategoryInternal, Message: message, Err: err}
}

// AsAppError classifies any error. Unknown errors become internal errors.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &AppError{Category: CategoryNotFound, Message: "resource not found", Err: err}
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return &AppError{Category: CategoryValidation, Message: describeValidation(validationErrs), Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate key"):
		return &AppError{Category: CategoryConflict, Message: "resource already exists", Err: err}
	case strings.Contains(msg, "update or delete on table") && strings.Contains(msg, "violates foreign key"):
		return &AppError{Category: CategoryConflict, Message: "resource is still in use", Err: err}
	case IsForeignKeyViolation(err):
		return &AppError{Category: CategoryValidation, Message: "referenced resource does not exist", Err: err}
	}

	return Internal("unexpected error", err)
}

// IsForeignKeyViolation reports whether err is a SQLite or PostgreSQL foreign key failure.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint") || strings.Contains(msg, "violates foreign key")
}

// IsCategory reports whether err classifies as c.
func IsCategory(err error, c ErrorCategory) bool {
	appErr := AsAppError(err)
	return appErr != nil && appErr.Category == c
}

func describeValidation(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
