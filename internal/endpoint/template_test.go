package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHydrateTemplate(t *testing.T) {
	t.Run("substitutes single occurrence", func(t *testing.T) {
		body, err := HydrateTemplate(`{"question":"{{PROMPT}}"}`, "Who leads well?")
		require.NoError(t, err)

		obj, ok := body.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Who leads well?", obj["question"])
	})

	t.Run("substitutes every occurrence across nesting", func(t *testing.T) {
		template := `{
			"messages":[{"role":"user","content":"{{PROMPT}}"}],
			"metadata":{"echo":"{{PROMPT}}","tags":["{{PROMPT}}"]}
		}`
		body, err := HydrateTemplate(template, "hello")
		require.NoError(t, err)

		obj := body.(map[string]any)
		messages := obj["messages"].([]any)
		first := messages[0].(map[string]any)
		assert.Equal(t, "hello", first["content"])

		meta := obj["metadata"].(map[string]any)
		assert.Equal(t, "hello", meta["echo"])
		tags := meta["tags"].([]any)
		assert.Equal(t, "hello", tags[0])
	})

	t.Run("placeholder inside larger string", func(t *testing.T) {
		body, err := HydrateTemplate(`{"q":"Please answer: {{PROMPT}} concisely"}`, "why")
		require.NoError(t, err)
		obj := body.(map[string]any)
		assert.Equal(t, "Please answer: why concisely", obj["q"])
	})

	t.Run("missing placeholder is a template error", func(t *testing.T) {
		_, err := HydrateTemplate(`{"question":"static"}`, "prompt")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTemplate)
	})

	t.Run("invalid JSON is a template error", func(t *testing.T) {
		_, err := HydrateTemplate(`{"question": {{PROMPT}}`, "prompt")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTemplate)
	})
}
