package promptstyle

import "strings"

const marker = "AUDIENCE_PROMPT_STYLE_V1"

// ApplySystem prepends a short guidance block to a system prompt. Idempotent.
// mode "sql" adds output rules for query generation; anything else is treated as prose.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\n")
	b.WriteString(base)
	b.WriteString("\nFollow the user instructions precisely.")
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "sql":
		b.WriteString("\nReturn exactly one SQL statement and nothing else.")
		b.WriteString("\nDo not wrap the statement in markdown fences and do not explain it.")
	default:
		b.WriteString("\nBe concise.")
	}
	return strings.TrimSpace(b.String())
}
