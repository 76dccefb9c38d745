package gemini

import (
	"context"
	"math"
	"testing"

	"github.com/yungbote/audience-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GEMINI_MODEL", "")

	cfg := LoadConfig()
	if cfg.APIKey != "g-key" {
		t.Fatalf("expected GOOGLE_API_KEY fallback, got %q", cfg.APIKey)
	}
	if cfg.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected default model %q", cfg.Model)
	}
	if cfg.MaxOutputTokens != 1500 {
		t.Fatalf("unexpected token budget %d", cfg.MaxOutputTokens)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestOutputTokensClamped(t *testing.T) {
	tests := []struct {
		in   int
		want int32
	}{
		{1500, 1500},
		{0, 0},
		{-4, 0},
		{math.MaxInt32, math.MaxInt32},
		{math.MaxInt, math.MaxInt32},
	}
	for _, tt := range tests {
		if got := (Config{MaxOutputTokens: tt.in}).outputTokens(); got != tt.want {
			t.Fatalf("outputTokens(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
