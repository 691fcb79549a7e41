package message

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Separator joins formatted entries.
const Separator = "\n"

// Format renders a message body. Strings are returned unchanged; mappings
// produce one "key: value" line per entry, recursing into nested mappings.
// Entries with numeric keys are unlabeled and emit only their value.
//
// Map and slices keep their order. Go maps have no insertion order and are
// rendered in sorted key order.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	}

	m, ok := asMap(v)
	if !ok {
		return fmt.Sprint(v)
	}

	lines := make([]string, 0, len(m))
	for _, e := range m {
		lines = append(lines, formatEntry(e))
	}
	return strings.Join(lines, Separator)
}

func formatEntry(e Entry) string {
	if nested, ok := asMap(e.Value); ok {
		return label(e.Key) + Format(nested)
	}
	return label(e.Key) + scalar(e.Value)
}

func label(key string) string {
	if isNumeric(key) {
		return ""
	}
	return key + ": "
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// numericKey matches plain decimal numbers with an optional exponent.
// Special values (inf, NaN), hex and underscore forms are not numeric.
var numericKey = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// isNumeric reports whether key looks like a number (positional entries).
// Surrounding whitespace is ignored.
func isNumeric(key string) bool {
	return numericKey.MatchString(strings.TrimSpace(key))
}

// asMap normalizes the supported mapping shapes to a Map.
func asMap(v any) (Map, bool) {
	switch x := v.(type) {
	case Map:
		return x, true
	case []Entry:
		return Map(x), true
	case map[string]any:
		keys := sortedKeys(x)
		m := make(Map, len(keys))
		for i, k := range keys {
			m[i] = Entry{Key: k, Value: x[k]}
		}
		return m, true
	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := make(Map, len(keys))
		for i, k := range keys {
			m[i] = Entry{Key: k, Value: x[k]}
		}
		return m, true
	case []any:
		return List(x...), true
	case []string:
		m := make(Map, len(x))
		for i, s := range x {
			m[i] = Entry{Key: strconv.Itoa(i), Value: s}
		}
		return m, true
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}
