package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const redacted = "[REDACTED]"

// Contact rows and generated SQL payloads are personal data; anything under these keys is dropped.
var redactKeyParts = []string{"token", "authorization", "password", "secret", "api_key", "apikey", "dsn", "email", "payload", "contact"}

// Identity keys are replaced by a short salted digest so entries can still be correlated.
var hashKeyParts = []string{"user_id", "owner"}

type redactPolicy struct {
	enabled bool
	salt    string
}

func policyFromEnv() *redactPolicy {
	p := &redactPolicy{enabled: true, salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		p.enabled = false
	}
	return p
}

// apply rewrites the values of a zap key/value list. A trailing key without a value is kept.
func (p *redactPolicy) apply(kv []interface{}) []interface{} {
	if p == nil || !p.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		out[i+1] = p.value(normKey(out[i]), out[i+1])
	}
	return out
}

func (p *redactPolicy) value(key string, v interface{}) interface{} {
	switch {
	case key == "":
		return v
	case containsAny(key, redactKeyParts):
		return redacted
	case containsAny(key, hashKeyParts):
		return p.digest(v)
	}
	switch t := v.(type) {
	case map[string]interface{}:
		nested := make(map[string]interface{}, len(t))
		for k, inner := range t {
			nested[k] = p.value(normKey(k), inner)
		}
		return nested
	case string:
		if isJWT(t) {
			return redacted
		}
	}
	return v
}

func (p *redactPolicy) digest(v interface{}) string {
	raw := stringify(v)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(p.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func containsAny(key string, parts []string) bool {
	for _, part := range parts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func normKey(k interface{}) string { return strings.ToLower(strings.TrimSpace(stringify(k))) }

// isJWT matches three dot-separated segments with non-trivial header and claims.
func isJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
