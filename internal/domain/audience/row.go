package audience

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ContactRow is one warehouse row keyed by column name.
type ContactRow map[string]any

// ID returns the row's external identifier as text, or "" when absent.
func (r ContactRow) ID() string {
	return ValueText(r[RowIDField])
}

// ValueText renders a warehouse value as trimmed text. Arrays are joined with ", " after
// dropping blank elements; nil and blank values render as "".
func ValueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case []string:
		return joinNonBlank(len(t), func(i int) string { return strings.TrimSpace(t[i]) })
	case []any:
		return joinNonBlank(len(t), func(i int) string { return ValueText(t[i]) })
	}

	rv := reflect.ValueOf(v)
	if s, ok := v.(fmt.Stringer); ok && (rv.Kind() != reflect.Pointer || !rv.IsNil()) {
		return strings.TrimSpace(s.String())
	}
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return ""
		}
		return ValueText(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		return joinNonBlank(rv.Len(), func(i int) string { return ValueText(rv.Index(i).Interface()) })
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func joinNonBlank(n int, at func(int) string) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if s := at(i); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
