package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/vendor-pipeline/pkg/anthropic"
	"github.com/sells-group/vendor-pipeline/pkg/azopenai"
	"github.com/sells-group/vendor-pipeline/pkg/gemini"
)

type stringer struct{ s string }

func (s stringer) String() string { return s.s }

type panicStringer struct{}

func (panicStringer) String() string { panic("boom") }

func TestExtractText(t *testing.T) {
	var nilAzure *azopenai.ChatCompletionResponse

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", `{"a":1}`, `{"a":1}`},
		{"bytes", []byte("raw"), "raw"},
		{"azure", &azopenai.ChatCompletionResponse{Choices: []azopenai.Choice{{Message: azopenai.Message{Content: "az"}}}}, "az"},
		{"azure no choices", &azopenai.ChatCompletionResponse{}, ""},
		{"azure nil pointer", nilAzure, ""},
		{"anthropic", &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: "claude"}}}, "claude"},
		{"gemini", &gemini.Response{Text: "gem"}, "gem"},
		{"map message", map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": "m"}}}}, "m"},
		{"map text", map[string]any{"choices": []any{map[string]any{"text": "t"}}}, "t"},
		{"map without choices", map[string]any{"x": 1}, "map[x:1]"},
		{"stringer", stringer{"s"}, "s"},
		{"panicking stringer", panicStringer{}, ""},
		{"int", 42, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, ExtractText(tt.in))
			})
		})
	}
}
