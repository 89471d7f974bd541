package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		want     map[string]any
		kind     Kind
		strategy Strategy
	}{
		{
			name:  "empty",
			input: "",
			want:  map[string]any{},
			kind:  KindEmpty,
		},
		{
			name:  "whitespace only",
			input: "  \n\t ",
			want:  map[string]any{},
			kind:  KindEmpty,
		},
		{
			name:     "plain object",
			input:    `{"a":1}`,
			want:     map[string]any{"a": float64(1)},
			kind:     KindParsed,
			strategy: StrategyDirect,
		},
		{
			name:     "fenced json block in prose",
			input:    "blah ```json\n{\"a\":1}\n``` blah",
			want:     map[string]any{"a": float64(1)},
			kind:     KindParsed,
			strategy: StrategyFenced,
		},
		{
			name:     "untagged fence",
			input:    "Result:\n```\n{\"vendors\": []}\n```",
			want:     map[string]any{"vendors": []any{}},
			kind:     KindParsed,
			strategy: StrategyFenced,
		},
		{
			name:     "top level array",
			input:    `[1,2]`,
			want:     map[string]any{"results": []any{float64(1), float64(2)}},
			kind:     KindParsed,
			strategy: StrategyDirect,
		},
		{
			name:     "fenced array",
			input:    "```json\n[{\"vendor_company\": \"Acme\"}]\n```",
			want:     map[string]any{"results": []any{map[string]any{"vendor_company": "Acme"}}},
			kind:     KindParsed,
			strategy: StrategyFenced,
		},
		{
			name:     "object in prose with one level of nesting",
			input:    `Sure! Here it is: {"a": {"b": 1}} hope this helps`,
			want:     map[string]any{"a": map[string]any{"b": float64(1)}},
			kind:     KindParsed,
			strategy: StrategyObject,
		},
		{
			name:     "deeper nesting in prose",
			input:    `x {"a":{"b":{"c":1}}} y`,
			want:     map[string]any{"a": map[string]any{"b": map[string]any{"c": float64(1)}}},
			kind:     KindParsed,
			strategy: StrategyObject,
		},
		{
			name:     "brace inside string literal",
			input:    `prefix {"a": "brace } inside"} suffix`,
			want:     map[string]any{"a": "brace } inside"},
			kind:     KindParsed,
			strategy: StrategyObject,
		},
		{
			name:     "skips unparseable object",
			input:    `bad {not json} good {"ok":true}`,
			want:     map[string]any{"ok": true},
			kind:     KindParsed,
			strategy: StrategyObject,
		},
		{
			name:     "array in prose",
			input:    `values: [1, 2, 3] ok`,
			want:     map[string]any{"results": []any{float64(1), float64(2), float64(3)}},
			kind:     KindParsed,
			strategy: StrategyArray,
		},
		{
			name:  "prose only",
			input: "I could not find any vendors, sorry.",
			want:  map[string]any{},
			kind:  KindEmpty,
		},
		{
			name:  "unterminated object",
			input: `{"a": 1`,
			want:  map[string]any{},
			kind:  KindEmpty,
		},
		{
			name:  "scalar is not a mapping",
			input: `42`,
			want:  map[string]any{},
			kind:  KindEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Extract(tt.input)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.strategy, res.Strategy)
			if diff := cmp.Diff(tt.want, res.Map()); diff != "" {
				t.Errorf("Extract(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestExtract_NeverPanics(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"{", "}", "[", "]", "{{{{", "]]]]", `"`, `{"a":"\`, "```", "```json", "```json\n{",
		`{"a": [1, 2}`, `[{"a": 1]`, "\x00\x01", "null", "true", `"just a string"`,
		`{"unicode": "日本語"}`, "{\"a\":1}\n{\"b\":2}",
	}
	for _, in := range inputs {
		require.NotPanics(t, func() {
			res := Extract(in)
			assert.NotNil(t, res.Map())
		}, "input %q", in)
	}
}

func TestResult_MapNeverNil(t *testing.T) {
	t.Parallel()

	var r Result
	assert.NotNil(t, r.Map())
	assert.True(t, r.Empty())
	assert.Equal(t, "empty", r.Kind.String())
	assert.Equal(t, "parsed", KindParsed.String())
}
