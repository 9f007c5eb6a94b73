package endpoint

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fairlens/fairlens/internal/domain"
)

// defaultQueryKeyField names the query parameter used when query_param
// placement has no field override.
const defaultQueryKeyField = "api_key"

// defaultBodyKeyField names the body field used when body_field placement
// has no field override.
const defaultBodyKeyField = "api_key"

// providerKeyHeaders lists header names some providers require the key on
// in addition to its configured placement. When the resolved key field name
// matches one of these (case-insensitively), the key is mirrored onto that
// header too.
var providerKeyHeaders = map[string]string{
	"x-api-key":      "X-API-Key",
	"x-goog-api-key": "X-Goog-Api-Key",
	"api-key":        "Api-Key",
}

// applyKeyPlacement injects the API key into the request per the configured
// strategy. requestURL and body are mutated views of the outgoing request;
// the returned URL carries any query-string changes. Returns ErrConfig when
// body_field placement is selected but the hydrated body is not a JSON
// object.
func applyKeyPlacement(
	cfg *domain.EndpointConfig,
	requestURL *url.URL,
	header http.Header,
	body any,
) (*url.URL, any, error) {
	placement := cfg.KeyPlacement
	if placement == "" || placement == domain.PlacementNone || cfg.APIKey == "" {
		return requestURL, body, nil
	}

	field := cfg.KeyField

	switch placement {
	case domain.PlacementAuthHeader:
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	case domain.PlacementXAPIKey:
		header.Set("X-API-Key", cfg.APIKey)
	case domain.PlacementQueryParam:
		if field == "" {
			field = defaultQueryKeyField
		}
		q := requestURL.Query()
		q.Set(field, cfg.APIKey)
		requestURL.RawQuery = q.Encode()
	case domain.PlacementBodyField:
		if field == "" {
			field = defaultBodyKeyField
		}
		obj, ok := body.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("%w: body_field placement requires a JSON object body", ErrConfig)
		}
		obj[field] = cfg.APIKey
	default:
		return nil, nil, fmt.Errorf("%w: unsupported key placement %q", ErrConfig, placement)
	}

	// Some providers expect the key on a specific header regardless of its
	// primary placement; mirror it when the field name matches.
	if canonical, ok := providerKeyHeaders[strings.ToLower(field)]; ok {
		header.Set(canonical, cfg.APIKey)
	}

	return requestURL, body, nil
}
