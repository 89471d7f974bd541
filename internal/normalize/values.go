package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultScore is returned by ClampScore for values that are not numeric.
const DefaultScore = 0.5

// ClampScore coerces v to a score in [0,1]. Numeric strings are accepted;
// anything else, including NaN, yields DefaultScore.
func ClampScore(v any) float64 {
	f, ok := Float(v)
	if !ok || math.IsNaN(f) {
		return DefaultScore
	}
	return clamp(f, 0, 1)
}

// ParsePercent coerces v to a percentage in [0,100]. Strings such as "45%"
// are accepted. Unparseable input yields def, also clamped.
func ParsePercent(v any, def float64) float64 {
	if s, ok := v.(string); ok {
		v = strings.TrimSuffix(strings.TrimSpace(s), "%")
	}
	f, ok := Float(v)
	if !ok || math.IsNaN(f) {
		f = def
	}
	return clamp(f, 0, 100)
}

// Float converts JSON-decoded numbers and numeric strings to float64.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FloatOr returns Float(v) or def when v is not numeric.
func FloatOr(v any, def float64) float64 {
	if f, ok := Float(v); ok && !math.IsNaN(f) {
		return f
	}
	return def
}

// String returns v as trimmed text. Numbers are formatted; other types
// yield "".
func String(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// FirstString returns the first non-empty string among keys of m.
func FirstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := String(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// Objects returns the elements of v that are JSON objects. Non-array input
// yields nil.
func Objects(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Strings returns the string elements of a JSON array, or a one-element
// slice when v is a single non-empty string.
func Strings(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := String(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func clamp(f, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, f))
}
