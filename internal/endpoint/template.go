package endpoint

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PromptPlaceholder is the token a stored body template must contain at
// least once, anywhere in the hydrated structure.
const PromptPlaceholder = "{{PROMPT}}"

// HydrateTemplate parses the JSON body template and substitutes every
// occurrence of the prompt placeholder, recursively across nested objects
// and arrays. Returns ErrTemplate if the template is not valid JSON or if
// the placeholder never appears.
func HydrateTemplate(template, prompt string) (any, error) {
	var body any
	if err := json.Unmarshal([]byte(template), &body); err != nil {
		return nil, fmt.Errorf("%w: body template is not valid JSON: %v", ErrTemplate, err)
	}

	hydrated, replaced := substitute(body, prompt)
	if replaced == 0 {
		return nil, fmt.Errorf("%w: placeholder %s not found in body template", ErrTemplate, PromptPlaceholder)
	}
	return hydrated, nil
}

// substitute walks the decoded JSON value replacing placeholder occurrences
// in string leaves. Returns the rewritten value and the replacement count.
func substitute(v any, prompt string) (any, int) {
	switch val := v.(type) {
	case string:
		if !strings.Contains(val, PromptPlaceholder) {
			return val, 0
		}
		n := strings.Count(val, PromptPlaceholder)
		return strings.ReplaceAll(val, PromptPlaceholder, prompt), n
	case map[string]any:
		total := 0
		out := make(map[string]any, len(val))
		for k, child := range val {
			replaced, n := substitute(child, prompt)
			out[k] = replaced
			total += n
		}
		return out, total
	case []any:
		total := 0
		out := make([]any, len(val))
		for i, child := range val {
			replaced, n := substitute(child, prompt)
			out[i] = replaced
			total += n
		}
		return out, total
	default:
		return v, 0
	}
}
