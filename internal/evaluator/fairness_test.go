package evaluator

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

	"github.com/fairlens/fairlens/internal/evaluator/configuration"
)

func fairnessTestConfig(baseURL string, timeout time.Duration) *configuration.Config {
	return &configuration.Config{
		HTTPClient: &http.Client{},
		Fairness: configuration.FairnessConfig{
			Enabled: true,
			BaseURL: baseURL,
			Timeout: timeout,
		},
	}
}

func TestFairnessEvaluate(t *testing.T) {
	t.Run("reduces metric triples to their max", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/evaluate", r.URL.Path)
			io.WriteString(w, `[{
				"success": true,
				"metrics": {
					"toxicity": {"toxic_fraction":0.1,"expected_max_toxicity":0.4,"toxicity_probability":0.2},
					"stereotype": {"stereotype_association":0.3,"cooccurrence_bias":0.1,"stereotype_fraction":0.25}
				}
			}]`)
		}))
		defer srv.Close()

		client := NewFairnessClient(fairnessTestConfig(srv.URL, 5*time.Second))
		result := client.Evaluate(context.Background(), "proj", "gender", "q", "a")

		require.NotNil(t, result.Toxicity)
		assert.InDelta(t, 0.4, *result.Toxicity, 1e-9)
		require.NotNil(t, result.Stereotype)
		assert.InDelta(t, 0.3, *result.Stereotype, 1e-9)
		assert.Empty(t, result.Reason)
	})

	t.Run("maps categories onto supported attributes", func(t *testing.T) {
		var gotCategory string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Items []fairnessItem `json:"items"`
			}
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &req))
			require.Len(t, req.Items, 1)
			gotCategory = req.Items[0].Category
			io.WriteString(w, `[{"success":true,"metrics":{"toxicity":{},"stereotype":{}}}]`)
		}))
		defer srv.Close()

		client := NewFairnessClient(fairnessTestConfig(srv.URL, 5*time.Second))

		client.Evaluate(context.Background(), "proj", "Ethnicity", "q", "a")
		assert.Equal(t, "race", gotCategory)

		client.Evaluate(context.Background(), "proj", "unknown-category", "q", "a")
		assert.Equal(t, "gender", gotCategory)
	})

	t.Run("missing metrics yield nil scores", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `[{"success":true,"metrics":{"toxicity":{},"stereotype":{}}}]`)
		}))
		defer srv.Close()

		client := NewFairnessClient(fairnessTestConfig(srv.URL, 5*time.Second))
		result := client.Evaluate(context.Background(), "proj", "gender", "q", "a")

		assert.Nil(t, result.Toxicity)
		assert.Nil(t, result.Stereotype)
	})

	t.Run("timeout collapses to nulls with reason and no retry", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()

		client := NewFairnessClient(fairnessTestConfig(srv.URL, 50*time.Millisecond))
		result := client.Evaluate(context.Background(), "proj", "gender", "q", "a")

		assert.Nil(t, result.Toxicity)
		assert.Nil(t, result.Stereotype)
		assert.Contains(t, result.Reason, "timed out")
		assert.Equal(t, 1, calls)
	})

	t.Run("non-200 yields reason", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewFairnessClient(fairnessTestConfig(srv.URL, 5*time.Second))
		result := client.Evaluate(context.Background(), "proj", "gender", "q", "a")
		assert.Contains(t, result.Reason, "status 500")
	})

	t.Run("unsuccessful item carries service error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `[{"success":false,"error":"model not loaded"}]`)
		}))
		defer srv.Close()

		client := NewFairnessClient(fairnessTestConfig(srv.URL, 5*time.Second))
		result := client.Evaluate(context.Background(), "proj", "gender", "q", "a")
		assert.Equal(t, "model not loaded", result.Reason)
	})

	t.Run("disabled client reports unconfigured", func(t *testing.T) {
		client := NewFairnessClient(&configuration.Config{})
		result := client.Evaluate(context.Background(), "proj", "gender", "q", "a")
		assert.Nil(t, result.Toxicity)
		assert.NotEmpty(t, result.Reason)
		assert.False(t, client.Healthy(context.Background()))
	})

	t.Run("healthy probes the health endpoint", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := NewFairnessClient(fairnessTestConfig(srv.URL, time.Second))
		assert.True(t, client.Healthy(context.Background()))
	})
}
