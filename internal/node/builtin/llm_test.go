package builtin

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMNodeFallsBackWithoutAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	n := newNode(t, "llm")
	out, err := n.Run(context.Background(), map[string]any{
		"model":  "gpt-4o",
		"prompt": "hello",
	})
	require.NoError(t, err, "llm node must never fail the workflow")

	text, ok := out["text"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(text, "[MOCK LLM RESPONSE]"), "got %q", text)

	usage, ok := out["usage"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0, usage["total_tokens"])
	assert.Equal(t, "gpt-4o", out["model"])
}

func TestLLMNodeFallsBackWhenServiceUnreachable(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	// Nothing listens here; the call fails at dial time.
	t.Setenv("OPENAI_BASE_URL", "http://127.0.0.1:1/v1")

	n := newNode(t, "llm")
	out, err := n.Run(context.Background(), map[string]any{
		"model":  "gpt-4o",
		"prompt": "hello",
	})
	require.NoError(t, err)

	text := out["text"].(string)
	assert.True(t, strings.HasPrefix(text, "[MOCK LLM RESPONSE]"))
	usage := out["usage"].(map[string]any)
	assert.Equal(t, 0, usage["total_tokens"])
}

func TestLLMNodeDefaultsModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	n := newNode(t, "llm")
	out, err := n.Run(context.Background(), map[string]any{"prompt": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", out["model"])
}
