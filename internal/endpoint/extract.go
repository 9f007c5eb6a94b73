package endpoint

import (
	"fmt"
	"strconv"
	"strings"
)

// ExtractAnswer resolves a dotted/bracketed path expression against a
// decoded JSON document and returns the string it points at. Paths look
// like "choices[0].message.content". Returns ErrExtraction when the path
// resolves to nothing or to a non-string value.
func ExtractAnswer(doc any, path string) (string, error) {
	segments, err := parsePath(path)
	if err != nil {
		return "", err
	}

	current := doc
	for _, seg := range segments {
		switch {
		case seg.isIndex:
			arr, ok := current.([]any)
			if !ok {
				return "", fmt.Errorf("%w: path %q indexes into a non-array", ErrExtraction, path)
			}
			if seg.index < 0 || seg.index >= len(arr) {
				return "", fmt.Errorf("%w: path %q index %d out of range", ErrExtraction, path, seg.index)
			}
			current = arr[seg.index]
		default:
			obj, ok := current.(map[string]any)
			if !ok {
				return "", fmt.Errorf("%w: path %q descends into a non-object", ErrExtraction, path)
			}
			child, exists := obj[seg.key]
			if !exists {
				return "", fmt.Errorf("%w: path %q has no field %q", ErrExtraction, path, seg.key)
			}
			current = child
		}
	}

	answer, ok := current.(string)
	if !ok {
		return "", fmt.Errorf("%w: path %q resolved to a non-string value", ErrExtraction, path)
	}
	return answer, nil
}

type pathSegment struct {
	key     string
	index   int
	isIndex bool
}

// parsePath splits a path expression into field and index segments.
func parsePath(path string) ([]pathSegment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty response path", ErrExtraction)
	}

	var segments []pathSegment
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("%w: malformed response path %q", ErrExtraction, path)
		}
		for {
			open := strings.IndexByte(part, '[')
			if open == -1 {
				if part != "" {
					segments = append(segments, pathSegment{key: part})
				}
				break
			}
			if open > 0 {
				segments = append(segments, pathSegment{key: part[:open]})
			}
			closing := strings.IndexByte(part, ']')
			if closing < open {
				return nil, fmt.Errorf("%w: malformed response path %q", ErrExtraction, path)
			}
			idx, err := strconv.Atoi(part[open+1 : closing])
			if err != nil {
				return nil, fmt.Errorf("%w: non-numeric index in response path %q", ErrExtraction, path)
			}
			segments = append(segments, pathSegment{index: idx, isIndex: true})
			part = part[closing+1:]
			if part == "" {
				break
			}
		}
	}
	return segments, nil
}
