package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/audience-backend/internal/data/repos/testutil"
	"github.com/yungbote/audience-backend/internal/modules/audience/prompts"
	"github.com/yungbote/audience-backend/internal/platform/apierr"
)

func TestCleanCompletion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "SELECT id FROM contacts LIMIT 5000", "SELECT id FROM contacts LIMIT 5000"},
		{"padded", "\n  SELECT 1  \n", "SELECT 1"},
		{"sql fence", "```sql\nSELECT 1\nFROM t\n```", "SELECT 1\nFROM t"},
		{"bare fence", "```\nSELECT 1\n```", "SELECT 1"},
		{"only fences", "```\n```", ""},
		{"blank", "   ", ""},
		{"inner backticks kept", "SELECT `id` FROM t", "SELECT `id` FROM t"},
		{"one-line fence with tag", "```sql SELECT 1 ```", "SELECT 1"},
		{"one-line fence upper tag", "```SQL SELECT 1```", "SELECT 1"},
		{"one-line fence without tag", "```SELECT id FROM t```", "SELECT id FROM t"},
		{"one-line fence lowercase query", "``` select 1 ```", "select 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCompletion(tt.in); got != tt.want {
				t.Fatalf("CleanCompletion(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerationServiceComplete(t *testing.T) {
	log := testutil.Logger(t)
	p := prompts.Prompt{Name: "p", Version: 1, System: "sys", User: "usr"}

	gen := &fakeGenerator{out: "```sql\nSELECT id FROM contacts\n```"}
	svc := NewGenerationService(log, gen, time.Second)
	got, err := svc.Complete(context.Background(), p)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "SELECT id FROM contacts" {
		t.Fatalf("unexpected query %q", got)
	}
	if !strings.Contains(gen.lastSystem, "sys") || !strings.Contains(gen.lastSystem, "SQL statement") || gen.lastUser != "usr" {
		t.Fatalf("prompt not forwarded: system=%q user=%q", gen.lastSystem, gen.lastUser)
	}
	if svc.Model() != "fake-model" {
		t.Fatalf("Model = %q", svc.Model())
	}

	gen.out = "  "
	if _, err := svc.Complete(context.Background(), p); !errors.Is(err, apierr.ErrGenerationUnavailable) || !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected empty completion failure, got %v", err)
	}

	gen.out, gen.err = "", errors.New("upstream 500")
	if _, err := svc.Complete(context.Background(), p); !errors.Is(err, apierr.ErrGenerationUnavailable) {
		t.Fatalf("expected generation unavailable, got %v", err)
	}
}

func TestGenerationServiceTimeout(t *testing.T) {
	svc := NewGenerationService(testutil.Logger(t), &fakeGenerator{block: true}, 20*time.Millisecond)
	start := time.Now()
	_, err := svc.Complete(context.Background(), prompts.Prompt{Name: "p", User: "u"})
	if !errors.Is(err, apierr.ErrGenerationUnavailable) {
		t.Fatalf("expected generation unavailable, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("timeout not applied")
	}
}

func TestGenerationServiceWithoutBackend(t *testing.T) {
	svc := NewGenerationService(testutil.Logger(t), nil, 0)
	if _, err := svc.Complete(context.Background(), prompts.Prompt{}); !errors.Is(err, apierr.ErrGenerationUnavailable) {
		t.Fatalf("expected generation unavailable, got %v", err)
	}
}

func TestNewTextGeneratorRejectsUnknownProvider(t *testing.T) {
	if _, err := NewTextGenerator(context.Background(), testutil.Logger(t), "llama"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
