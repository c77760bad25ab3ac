package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SanitizeAndParse extracts the JSON object from model output that may be
// wrapped in markdown code fences or surrounded by prose, and unmarshals it
// into dst.
func SanitizeAndParse(raw string, dst any) error {
	s := strings.TrimSpace(raw)

	// Strip a markdown code fence if present.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Trim any prose around the outermost object.
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first < 0 || last < first {
		return fmt.Errorf("no JSON object in oracle output: %q", truncate(raw, 120))
	}
	s = s[first : last+1]

	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return fmt.Errorf("malformed JSON in oracle output: %w", err)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
