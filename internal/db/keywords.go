package db

import "strings"

// NormalizeKeywords lowercases, trims and de-duplicates words, keeping order.
func NormalizeKeywords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	res := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		res = append(res, w)
	}
	return res
}
