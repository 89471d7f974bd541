// Package normalize turns free-form model output into structured data.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Kind classifies the outcome of an extraction.
type Kind int

const (
	// KindEmpty means no usable JSON was found.
	KindEmpty Kind = iota
	// KindParsed means a mapping was decoded.
	KindParsed
)

func (k Kind) String() string {
	if k == KindParsed {
		return "parsed"
	}
	return "empty"
}

// Strategy names the extraction strategy that produced a result.
type Strategy string

const (
	StrategyNone   Strategy = ""
	StrategyDirect Strategy = "direct"
	StrategyFenced Strategy = "fenced"
	StrategyObject Strategy = "object"
	StrategyArray  Strategy = "array"
)

// ResultsKey wraps top-level arrays so callers always receive a mapping.
const ResultsKey = "results"

// Result is the outcome of Extract. It never carries an error: malformed
// input yields KindEmpty with a Reason.
type Result struct {
	Data     map[string]any
	Kind     Kind
	Strategy Strategy
	Reason   string
}

// Map returns the decoded mapping, or an empty non-nil map.
func (r Result) Map() map[string]any {
	if r.Data == nil {
		return map[string]any{}
	}
	return r.Data
}

// Empty reports whether nothing usable was extracted.
func (r Result) Empty() bool {
	return r.Kind == KindEmpty
}

var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\}|\\[.*?\\])\\s*```")

// Extract applies four strategies in order and returns the first mapping
// found: the whole text as JSON, a fenced code block, the first balanced
// object, then the first balanced array.
func Extract(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{Kind: KindEmpty, Reason: "empty input"}
	}

	if m, ok := decode(trimmed); ok {
		return parsed(m, StrategyDirect)
	}

	for _, match := range fenceRe.FindAllStringSubmatch(trimmed, -1) {
		if m, ok := decode(match[1]); ok {
			return parsed(m, StrategyFenced)
		}
	}

	if m, ok := scanBalanced(trimmed, '{', '}'); ok {
		return parsed(m, StrategyObject)
	}

	if m, ok := scanBalanced(trimmed, '[', ']'); ok {
		return parsed(m, StrategyArray)
	}

	zap.L().Error("normalize: no JSON found in model output",
		zap.Int("length", len(text)),
		zap.String("preview", preview(trimmed, 200)),
	)
	return Result{Kind: KindEmpty, Reason: "no JSON object or array found"}
}

func parsed(m map[string]any, s Strategy) Result {
	return Result{Data: m, Kind: KindParsed, Strategy: s}
}

// decode parses s as JSON. Objects are returned as-is, arrays are wrapped
// under ResultsKey, and scalars are rejected.
func decode(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		return map[string]any{ResultsKey: t}, true
	default:
		return nil, false
	}
}

// scanBalanced tries each opener position in turn, finds its matching
// closer while skipping string literals, and decodes the first candidate
// that parses.
func scanBalanced(s string, opener, closer byte) (map[string]any, bool) {
	for start := strings.IndexByte(s, opener); start >= 0; {
		if end := matchClose(s, start, opener, closer); end > start {
			if m, ok := decode(s[start : end+1]); ok {
				return m, true
			}
		}
		next := strings.IndexByte(s[start+1:], opener)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

func matchClose(s string, start int, opener, closer byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
