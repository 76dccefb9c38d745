package app

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "9090")
	t.Setenv("GENERATION_TIMEOUT_SECONDS", "")
	t.Setenv("EXECUTION_TIMEOUT_SECONDS", "")
	t.Setenv("SUMMARY_TOP_K", "")
	t.Setenv("ROUND_STALE_AFTER_SECONDS", "")

	cfg := LoadConfig()
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.GenerationTimeout != 120*time.Second || cfg.ExecutionTimeout != 300*time.Second {
		t.Fatalf("timeouts = %s / %s", cfg.GenerationTimeout, cfg.ExecutionTimeout)
	}
	if cfg.SummaryTopK != 5 {
		t.Fatalf("SummaryTopK = %d", cfg.SummaryTopK)
	}
	if cfg.RoundStaleAfter != 900*time.Second {
		t.Fatalf("RoundStaleAfter = %s", cfg.RoundStaleAfter)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		JWTSecret:         "s3cret",
		GenerationTimeout: 2 * time.Minute,
		ExecutionTimeout:  5 * time.Minute,
		SummaryTopK:       5,
		RoundStaleAfter:   15 * time.Minute,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no secret", func(c *Config) { c.JWTSecret = "  " }, "JWT_SECRET"},
		{"zero generation timeout", func(c *Config) { c.GenerationTimeout = 0 }, "must be positive"},
		{"zero top k", func(c *Config) { c.SummaryTopK = 0 }, "SUMMARY_TOP_K"},
		{"stale window too short", func(c *Config) { c.RoundStaleAfter = 7 * time.Minute }, "ROUND_STALE_AFTER_SECONDS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
