// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// SplitList splits each value on commas, trims the parts and drops empty or
// repeated entries. Order of first occurrence is preserved, so list-valued
// settings can arrive as repeated flags, a YAML list, or one
// "a, b" environment string.
//
// Example:
//
//	SplitList("k1:9092, k2:9092", "k1:9092", " ")
//	// Returns: []string{"k1:9092", "k2:9092"}
func SplitList(values ...string) []string {
	var result []string
	seen := make(map[string]struct{})

	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if _, ok := seen[trimmed]; !ok {
				seen[trimmed] = struct{}{}
				result = append(result, trimmed)
			}
		}
	}

	return result
}
