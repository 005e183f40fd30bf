package grading

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSONRE = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSONObject finds the first valid JSON object in free-form
// judge output. Candidates are tried in order: the full trimmed text,
// any fenced json block, then balanced-brace substrings found by a
// brute-force scan. Duplicate candidates are tried once.
func ExtractJSONObject(text string) (map[string]any, bool) {
	var candidates []string
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		candidates = append(candidates, trimmed)
	}

	for _, match := range fencedJSONRE.FindAllStringSubmatch(text, -1) {
		if block := strings.TrimSpace(match[1]); block != "" {
			candidates = append(candidates, block)
		}
	}

	if blob, ok := firstBalancedObject(text); ok {
		candidates = append(candidates, blob)
	}

	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		var obj map[string]any
		if err := json.Unmarshal([]byte(candidate), &obj); err == nil && obj != nil {
			return obj, true
		}
	}
	return nil, false
}

// firstBalancedObject scans for the first brace-balanced {...}
// substring, skipping open braces that never close.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start != -1 {
		depth := 0
		for i := start; i < len(text); i++ {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					if blob := strings.TrimSpace(text[start : i+1]); blob != "" {
						return blob, true
					}
					return "", false
				}
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next == -1 {
			break
		}
		start += 1 + next
	}
	return "", false
}
