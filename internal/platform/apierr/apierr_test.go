package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestFromMapsFailureClasses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", Validation("page must be >= 1"), http.StatusBadRequest, "validation_failed"},
		{"not found", NotFound("audience list"), http.StatusNotFound, "not_found"},
		{"generation", fmt.Errorf("round: %w", ErrGenerationUnavailable), http.StatusBadGateway, "generation_unavailable"},
		{"execution", fmt.Errorf("round: %w", ErrExecutionFailed), http.StatusBadGateway, "execution_failed"},
		{"pg unique", &pgconn.PgError{Code: "23505"}, http.StatusConflict, "conflict"},
		{"sqlite unique", errors.New("UNIQUE constraint failed: audience_feedback.round_id"), http.StatusConflict, "conflict"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
		{"explicit", New(http.StatusTeapot, "teapot", nil), http.StatusTeapot, "teapot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			if got.Status != tt.status || got.Code != tt.code {
				t.Fatalf("From(%v) = %d/%s, want %d/%s", tt.err, got.Status, got.Code, tt.status, tt.code)
			}
		})
	}
	if From(nil) != nil {
		t.Fatalf("From(nil) should be nil")
	}
}

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("audience query")
	if err.Error() != "audience query not found" {
		t.Fatalf("message = %q", err.Error())
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound")
	}
}
