// Package strutil provides small string-list helpers shared by the
// ingestion paths.
package strutil

import "strings"

// SplitTags splits a delimited tag list, trims each entry, and drops
// empties and duplicates while preserving order. Jurisdiction areas
// arrive this way from CSV ("federal; interstate; federal").
func SplitTags(raw, sep string) []string {
	if raw == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, sep) {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
