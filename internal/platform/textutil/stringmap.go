// Package textutil holds small string helpers shared across the platform
// packages.
package textutil

import "strings"

// NormalizeStringMap trims keys and values and drops entries whose key or
// value ends up empty. Returns nil when nothing survives, which lets callers
// pass the result straight to APIs that treat nil as "no attributes".
func NormalizeStringMap(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		result[key] = value
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
