package logger

import (
	"strings"
	"testing"
)

func TestRedactPolicy(t *testing.T) {
	p := &redactPolicy{enabled: true, salt: "pepper"}
	in := []interface{}{
		"api_key", "sk-123",
		"user_id", "user_abc",
		"round_id", "r1",
		"auth", "aaaaaaaaaaaa.bbbbbbbbbbbb.cccc",
		"meta", map[string]interface{}{"contact_email": "a@b.c", "rows": 3},
		"dangling",
	}
	out := p.apply(in)
	if len(out) != len(in) {
		t.Fatalf("expected %d entries, got %d: %v", len(in), len(out), out)
	}
	if out[1] != redacted {
		t.Fatalf("api_key not redacted: %v", out[1])
	}
	if s, _ := out[3].(string); !strings.HasPrefix(s, "hash:") || len(s) != len("hash:")+12 {
		t.Fatalf("user_id not hashed: %v", out[3])
	}
	if out[5] != "r1" {
		t.Fatalf("round_id changed: %v", out[5])
	}
	if out[7] != redacted {
		t.Fatalf("jwt-looking value not redacted: %v", out[7])
	}
	meta := out[9].(map[string]interface{})
	if meta["contact_email"] != redacted || meta["rows"] != 3 {
		t.Fatalf("nested map not sanitized: %v", meta)
	}
	if out[10] != "dangling" {
		t.Fatalf("dangling key lost: %v", out[10])
	}
	if in[1] != "sk-123" {
		t.Fatalf("input slice was modified")
	}
}

func TestRedactPolicyDisabledAndSalted(t *testing.T) {
	off := &redactPolicy{}
	if out := off.apply([]interface{}{"password", "x"}); out[1] != "x" {
		t.Fatalf("disabled policy rewrote value: %v", out)
	}
	a := (&redactPolicy{enabled: true, salt: "a"}).digest("user-1")
	b := (&redactPolicy{enabled: true, salt: "b"}).digest("user-1")
	if a == b {
		t.Fatalf("salt not applied: %s == %s", a, b)
	}
}

func TestNewTestModeIsQuiet(t *testing.T) {
	l, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.With("component", "x").Info("hello", "k", "v")
	l.Sync()
}

func TestParseLevel(t *testing.T) {
	if got := parseLevel(" WARN ", 0); got.String() != "warn" {
		t.Fatalf("parseLevel(WARN) = %s", got)
	}
	if got := parseLevel("loud", 0); got.String() != "info" {
		t.Fatalf("unknown level should fall back, got %s", got)
	}
}
