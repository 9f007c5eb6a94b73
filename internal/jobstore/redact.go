package jobstore

import "regexp"

// RedactedValue replaces secret-like configuration values in persisted
// history reports.
const RedactedValue = "[REDACTED]"

// secretFieldPattern matches configuration field names that carry secret
// material.
var secretFieldPattern = regexp.MustCompile(`(?i)(key|token|secret|password)`)

// RedactConfig returns a copy of a configuration document with every field
// whose name matches the secret pattern replaced by the redaction marker,
// recursively across nested objects and arrays. Non-secret values are
// preserved as-is.
func RedactConfig(cfg map[string]any) map[string]any {
	if cfg == nil {
		return nil
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		if secretFieldPattern.MatchString(k) {
			out[k] = RedactedValue
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return RedactConfig(val)
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = redactValue(child)
		}
		return out
	default:
		return v
	}
}
