package prompts

import (
	"fmt"
	"strings"
)

// Validator checks an Input before a template renders it.
type Validator func(Input) error

// RequireText fails when the named input renders as blank text.
func RequireText(field string, get func(Input) string) Validator {
	return func(in Input) error {
		if v := get(in); strings.TrimSpace(v) == "" {
			return fmt.Errorf("prompt input %s is empty", field)
		}
		return nil
	}
}

// RequirePositive fails unless the named input is at least 1.
func RequirePositive(field string, get func(Input) int) Validator {
	return func(in Input) error {
		if n := get(in); n < 1 {
			return fmt.Errorf("prompt input %s must be positive, got %d", field, n)
		}
		return nil
	}
}

// grounded is shared by every audience prompt: both render the table, column list and row cap.
func grounded() []Validator {
	return []Validator{
		RequireText("Table", func(in Input) string { return in.Table }),
		RequireText("RequiredColumns", func(in Input) string { return in.RequiredColumns }),
		RequirePositive("RowLimit", func(in Input) int { return in.RowLimit }),
	}
}
