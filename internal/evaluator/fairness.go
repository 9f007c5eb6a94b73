package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fairlens/fairlens/internal/domain"
	"github.com/fairlens/fairlens/internal/evaluator/configuration"
)

// FairnessClient calls the secondary statistical fairness service. One call
// per item with a hard timeout enforced via context cancellation; never
// retried, so a slow service bounds rather than multiplies job latency.
// Failures yield null-scored metrics with a reason string, never an error.
type FairnessClient interface {
	Evaluate(ctx context.Context, projectID, category, questionText, userResponse string) domain.FairnessResult
	Healthy(ctx context.Context) bool
}

// NewFairnessClient creates a fairness client from configuration. A
// disabled or unconfigured service returns the explicit disabled variant.
func NewFairnessClient(cfg *configuration.Config) FairnessClient {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	if !cfg.Fairness.Enabled || cfg.Fairness.BaseURL == "" {
		return &disabledFairnessClient{}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	timeout := cfg.Fairness.Timeout
	if timeout <= 0 {
		timeout = configuration.DefaultFairnessTimeout
	}

	return &fairnessClient{
		baseURL:    strings.TrimSuffix(cfg.Fairness.BaseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// disabledFairnessClient is the explicit "service not configured" variant.
type disabledFairnessClient struct{}

func (d *disabledFairnessClient) Evaluate(context.Context, string, string, string, string) domain.FairnessResult {
	return domain.FairnessResult{Reason: "fairness service not configured"}
}

func (d *disabledFairnessClient) Healthy(context.Context) bool { return false }

type fairnessClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// categoryAttributes maps request categories onto the attributes the
// fairness service supports; unknown categories default to gender.
var categoryAttributes = map[string]string{
	"gender":    "gender",
	"race":      "race",
	"ethnicity": "race",
	"religion":  "religion",
	"age":       "age",
}

// mapCategory normalizes a request category for the fairness service.
func mapCategory(category string) string {
	if attr, ok := categoryAttributes[strings.ToLower(category)]; ok {
		return attr
	}
	return "gender"
}

// fairnessItem is the per-item request shape; the service consumes batches,
// so a single item is sent as a one-element list.
type fairnessItem struct {
	ProjectID    string `json:"projectId"`
	Category     string `json:"category"`
	QuestionText string `json:"questionText"`
	UserResponse string `json:"userResponse"`
}

// fairnessResponse mirrors the service's per-item result envelope.
type fairnessResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Metrics struct {
		Toxicity struct {
			ToxicFraction       *float64 `json:"toxic_fraction"`
			ExpectedMaxToxicity *float64 `json:"expected_max_toxicity"`
			ToxicityProbability *float64 `json:"toxicity_probability"`
		} `json:"toxicity"`
		Stereotype struct {
			StereotypeAssociation *float64 `json:"stereotype_association"`
			CooccurrenceBias      *float64 `json:"cooccurrence_bias"`
			StereotypeFraction    *float64 `json:"stereotype_fraction"`
		} `json:"stereotype"`
	} `json:"metrics"`
}

// Evaluate performs the single fairness call. Any failure mode (timeout,
// transport error, non-2xx, unparseable body, unsuccessful result) collapses
// to null scores with a reason.
func (f *fairnessClient) Evaluate(
	ctx context.Context,
	projectID, category, questionText, userResponse string,
) domain.FairnessResult {
	payload := map[string]any{
		"items": []fairnessItem{{
			ProjectID:    projectID,
			Category:     mapCategory(category),
			QuestionText: questionText,
			UserResponse: userResponse,
		}},
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return domain.FairnessResult{Reason: "fairness request encoding failed: " + err.Error()}
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, f.baseURL+"/evaluate", bytes.NewReader(jsonBody))
	if err != nil {
		return domain.FairnessResult{Reason: "fairness request build failed: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return domain.FairnessResult{Reason: fmt.Sprintf("fairness service timed out after %s", f.timeout)}
		}
		return domain.FairnessResult{Reason: "fairness service unreachable: " + err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.FairnessResult{Reason: "fairness response read failed: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return domain.FairnessResult{Reason: fmt.Sprintf("fairness service returned status %d", resp.StatusCode)}
	}

	var results []fairnessResponse
	if err := json.Unmarshal(raw, &results); err != nil {
		return domain.FairnessResult{Reason: "fairness response decode failed: " + err.Error()}
	}
	if len(results) == 0 {
		return domain.FairnessResult{Reason: "fairness service returned no results"}
	}

	result := results[0]
	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "fairness evaluation failed"
		}
		return domain.FairnessResult{Reason: reason}
	}

	tox := maxScore(
		result.Metrics.Toxicity.ToxicFraction,
		result.Metrics.Toxicity.ExpectedMaxToxicity,
		result.Metrics.Toxicity.ToxicityProbability,
	)
	stereo := maxScore(
		result.Metrics.Stereotype.StereotypeAssociation,
		result.Metrics.Stereotype.CooccurrenceBias,
		result.Metrics.Stereotype.StereotypeFraction,
	)

	return domain.FairnessResult{Toxicity: tox, Stereotype: stereo}
}

// Healthy probes the service's health endpoint, best-effort.
func (f *fairnessClient) Healthy(ctx context.Context) bool {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, f.baseURL+"/health", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// maxScore reduces a metric triple to its strongest signal, nil when every
// component is missing.
func maxScore(values ...*float64) domain.MetricScore {
	var out *float64
	for _, v := range values {
		if v == nil {
			continue
		}
		if out == nil || *v > *out {
			out = v
		}
	}
	if out == nil {
		return nil
	}
	return domain.Float(*out)
}
