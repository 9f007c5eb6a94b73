package jobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactConfig(t *testing.T) {
	t.Run("redacts secret-like fields case-insensitively", func(t *testing.T) {
		cfg := map[string]any{
			"url":          "https://api.example.com",
			"api_key":      "sk-live-1234",
			"AccessToken":  "tok",
			"SECRET_VALUE": "s",
			"password":     "p",
			"method":       "POST",
		}

		got := RedactConfig(cfg)
		assert.Equal(t, "https://api.example.com", got["url"])
		assert.Equal(t, RedactedValue, got["api_key"])
		assert.Equal(t, RedactedValue, got["AccessToken"])
		assert.Equal(t, RedactedValue, got["SECRET_VALUE"])
		assert.Equal(t, RedactedValue, got["password"])
		assert.Equal(t, "POST", got["method"])
	})

	t.Run("recurses into nested objects and arrays", func(t *testing.T) {
		cfg := map[string]any{
			"headers": map[string]any{
				"X-Api-Key":    "k",
				"Content-Type": "application/json",
			},
			"endpoints": []any{
				map[string]any{"auth_token": "t", "path": "/v1"},
			},
		}

		got := RedactConfig(cfg)
		headers := got["headers"].(map[string]any)
		assert.Equal(t, RedactedValue, headers["X-Api-Key"])
		assert.Equal(t, "application/json", headers["Content-Type"])

		endpoints := got["endpoints"].([]any)
		first := endpoints[0].(map[string]any)
		assert.Equal(t, RedactedValue, first["auth_token"])
		assert.Equal(t, "/v1", first["path"])
	})

	t.Run("original document is left untouched", func(t *testing.T) {
		cfg := map[string]any{"api_key": "real"}
		got := RedactConfig(cfg)
		require.Equal(t, RedactedValue, got["api_key"])
		assert.Equal(t, "real", cfg["api_key"])
	})

	t.Run("nil config passes through", func(t *testing.T) {
		assert.Nil(t, RedactConfig(nil))
	})
}
