// Package envutil reads typed settings from the environment. Unset, blank or unparseable
// values yield the caller's default.
package envutil

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

func lookup[T any](name string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func String(name string, def string) string {
	return lookup(name, def, func(s string) (string, error) { return s, nil })
}

func Int(name string, def int) int { return lookup(name, def, strconv.Atoi) }

func Float(name string, def float64) float64 {
	return lookup(name, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

var errNotBool = errors.New("not a boolean")

// Bool accepts 1/0, true/false, yes/no and on/off in any case.
func Bool(name string, def bool) bool {
	return lookup(name, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off":
			return false, nil
		}
		return false, errNotBool
	})
}

// Seconds reads a whole number of seconds. Negative values fall back to def.
func Seconds(name string, def int) time.Duration {
	n := lookup(name, def, func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err == nil && n < 0 {
			return 0, strconv.ErrRange
		}
		return n, err
	})
	return time.Duration(n) * time.Second
}

// List splits a comma separated value and drops blank entries.
func List(name string, def []string) []string {
	return lookup(name, def, func(s string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, errors.New("empty list")
		}
		return out, nil
	})
}
