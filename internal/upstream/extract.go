package upstream

import (
	"strconv"
	"strings"
)

// Upstream payload shapes are not contractually guaranteed, so each concept is
// probed through an explicit ordered list of candidate paths. Paths use dots
// to descend into nested objects; a numeric segment indexes into an array.
// The first candidate that yields a usable value wins, which keeps the
// precedence auditable and testable away from any network code.

// FirstString returns the first non-empty string found at any of the candidate paths.
func FirstString(payload map[string]any, paths ...string) (string, bool) {
	for _, path := range paths {
		value, ok := lookup(payload, path)
		if !ok {
			continue
		}
		if s, ok := value.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// FirstNumber returns the first numeric value found at any of the candidate
// paths. JSON numbers decode as float64; numeric strings are accepted too
// since some upstreams quote their coordinates.
func FirstNumber(payload map[string]any, paths ...string) (float64, bool) {
	for _, path := range paths {
		value, ok := lookup(payload, path)
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

// FirstObject returns the first nested object found at any of the candidate paths.
func FirstObject(payload map[string]any, paths ...string) (map[string]any, bool) {
	for _, path := range paths {
		value, ok := lookup(payload, path)
		if !ok {
			continue
		}
		if object, ok := value.(map[string]any); ok {
			return object, true
		}
	}
	return nil, false
}

func lookup(payload map[string]any, path string) (any, bool) {
	var current any = payload
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}
			current = node[index]
		default:
			return nil, false
		}
	}
	return current, true
}
