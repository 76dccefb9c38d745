package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Failure classes surfaced by the query pipeline. Wrap them with %w so callers can errors.Is.
var (
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrExecutionFailed       = errors.New("execution failed")
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrConflict              = errors.New("conflict")
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// NotFound wraps ErrNotFound with a resource label, e.g. NotFound("audience list").
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// Validation wraps ErrValidation with a reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// From maps any error onto an *Error for the HTTP layer. Explicit *Error values win.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, ErrValidation):
		return New(http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, ErrUnauthorized):
		return New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrConflict), IsUniqueViolation(err):
		return New(http.StatusConflict, "conflict", err)
	case errors.Is(err, ErrGenerationUnavailable):
		return New(http.StatusBadGateway, "generation_unavailable", err)
	case errors.Is(err, ErrExecutionFailed):
		return New(http.StatusBadGateway, "execution_failed", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}

// IsUniqueViolation reports a unique constraint failure from postgres (23505) or sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.TrimSpace(pgErr.Code) == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key")
}
