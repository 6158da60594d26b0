package game

import (
	"sort"
	"strings"
)

// Find resolves name against a lookup keyed by another source's spelling.
// Passes run in order and the first hit wins: exact key, case-insensitive
// equality, then case-insensitive containment in either direction. Keys are
// scanned in sorted order so a permissive match is stable across runs.
func Find[V any](name string, mapping map[string]V) (V, bool) {
	var zero V
	if name == "" || len(mapping) == 0 {
		return zero, false
	}

	if value, ok := mapping[name]; ok {
		return value, true
	}

	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lowered := strings.ToLower(name)
	for _, key := range keys {
		if strings.ToLower(key) == lowered {
			return mapping[key], true
		}
	}

	for _, key := range keys {
		candidate := strings.ToLower(key)
		if candidate == "" {
			continue
		}
		if strings.Contains(lowered, candidate) || strings.Contains(candidate, lowered) {
			return mapping[key], true
		}
	}

	return zero, false
}
