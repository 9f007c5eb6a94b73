package endpoint

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlens/fairlens/internal/domain"
)

func newTestConfig(url string) *domain.EndpointConfig {
	return &domain.EndpointConfig{
		URL:          url,
		BodyTemplate: `{"question":"{{PROMPT}}"}`,
		ResponsePath: "data.answer",
	}
}

func TestCallerCall(t *testing.T) {
	t.Run("round trip extracts answer", func(t *testing.T) {
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &gotBody))
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"data":{"answer":"a fine answer"}}`)
		}))
		defer srv.Close()

		caller := NewCaller()
		got, err := caller.Call(context.Background(), newTestConfig(srv.URL), "what is fair?")
		require.NoError(t, err)
		assert.Equal(t, "a fine answer", got)
		assert.Equal(t, "what is fair?", gotBody["question"])
	})

	t.Run("auth header placement", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			io.WriteString(w, `{"data":{"answer":"ok"}}`)
		}))
		defer srv.Close()

		cfg := newTestConfig(srv.URL)
		cfg.APIKey = "sk-test"
		cfg.KeyPlacement = domain.PlacementAuthHeader

		_, err := NewCaller().Call(context.Background(), cfg, "p")
		require.NoError(t, err)
		assert.Equal(t, "Bearer sk-test", gotAuth)
	})

	t.Run("query param placement preserves existing query", func(t *testing.T) {
		var gotURL string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotURL = r.URL.String()
			io.WriteString(w, `{"data":{"answer":"ok"}}`)
		}))
		defer srv.Close()

		cfg := newTestConfig(srv.URL + "/v1?version=2")
		cfg.APIKey = "qk"
		cfg.KeyPlacement = domain.PlacementQueryParam
		cfg.KeyField = "token"

		_, err := NewCaller().Call(context.Background(), cfg, "p")
		require.NoError(t, err)
		assert.Contains(t, gotURL, "token=qk")
		assert.Contains(t, gotURL, "version=2")
	})

	t.Run("body field placement with provider header mirroring", func(t *testing.T) {
		var gotBody map[string]any
		var gotHeader string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &gotBody))
			gotHeader = r.Header.Get("X-Goog-Api-Key")
			io.WriteString(w, `{"data":{"answer":"ok"}}`)
		}))
		defer srv.Close()

		cfg := newTestConfig(srv.URL)
		cfg.APIKey = "gk"
		cfg.KeyPlacement = domain.PlacementBodyField
		cfg.KeyField = "x-goog-api-key"

		_, err := NewCaller().Call(context.Background(), cfg, "p")
		require.NoError(t, err)
		assert.Equal(t, "gk", gotBody["x-goog-api-key"])
		assert.Equal(t, "gk", gotHeader)
	})

	t.Run("non-2xx yields HTTPError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "upstream broke")
		}))
		defer srv.Close()

		_, err := NewCaller().Call(context.Background(), newTestConfig(srv.URL), "p")
		require.Error(t, err)

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
		assert.Contains(t, httpErr.Body, "upstream broke")
	})

	t.Run("slow endpoint yields TimeoutError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()

		caller := NewCaller(WithTimeout(50 * time.Millisecond))
		_, err := caller.Call(context.Background(), newTestConfig(srv.URL), "p")
		require.Error(t, err)

		var timeoutErr *TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
	})

	t.Run("missing answer path yields extraction error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"data":{}}`)
		}))
		defer srv.Close()

		_, err := NewCaller().Call(context.Background(), newTestConfig(srv.URL), "p")
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("template without placeholder fails before any request", func(t *testing.T) {
		cfg := newTestConfig("http://unused.invalid")
		cfg.BodyTemplate = `{"static":"body"}`

		_, err := NewCaller().Call(context.Background(), cfg, "p")
		assert.ErrorIs(t, err, ErrTemplate)
	})
}
