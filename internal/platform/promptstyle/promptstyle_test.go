package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystem(t *testing.T) {
	base := "You are an assistant helping to generate SQL queries for ClickHouse."
	got := ApplySystem(base, "sql")
	if !strings.HasPrefix(got, marker) {
		t.Fatalf("missing marker: %q", got)
	}
	if !strings.Contains(got, base) {
		t.Fatalf("base text lost: %q", got)
	}
	if !strings.Contains(got, "markdown fences") {
		t.Fatalf("sql rules missing: %q", got)
	}
	if again := ApplySystem(got, "sql"); again != got {
		t.Fatalf("not idempotent:\n%q\n%q", got, again)
	}
	if ApplySystem("  ", "sql") != "" {
		t.Fatalf("blank system should stay blank")
	}
}
