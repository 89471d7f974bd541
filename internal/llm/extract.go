package llm

import (
	"fmt"

	"github.com/sells-group/vendor-pipeline/pkg/anthropic"
	"github.com/sells-group/vendor-pipeline/pkg/azopenai"
	"github.com/sells-group/vendor-pipeline/pkg/gemini"
)

// ExtractText pulls the completion text out of any provider response shape.
// It never panics; unrecognized values are formatted with fmt.Sprint.
func ExtractText(resp any) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	switch v := resp.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case *azopenai.ChatCompletionResponse:
		if v == nil {
			return ""
		}
		return v.Text()
	case *anthropic.MessageResponse:
		if v == nil {
			return ""
		}
		return v.Text()
	case *gemini.Response:
		if v == nil {
			return ""
		}
		return v.Text
	case map[string]any:
		if s, ok := choiceText(v); ok {
			return s
		}
		return fmt.Sprint(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// choiceText reads choices[0].message.content or choices[0].text.
func choiceText(m map[string]any) (string, bool) {
	choices, ok := m["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	if msg, ok := first["message"].(map[string]any); ok {
		if s, ok := msg["content"].(string); ok {
			return s, true
		}
	}
	if s, ok := first["text"].(string); ok {
		return s, true
	}
	return "", false
}
