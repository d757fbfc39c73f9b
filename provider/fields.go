package provider

import (
	"encoding/json"
	"strings"
)

// ParseFields extracts structured fields from raw model output. Providers
// that speak plain text use it to surface machine-readable results (test
// counts, verdicts, complexity signals) to downstream gates: if the output
// ends with a JSON object, its top-level members become the fields.
func ParseFields(output string) map[string]any {
	trimmed := strings.TrimSpace(output)
	if fields := unmarshalObject(trimmed); fields != nil {
		return fields
	}
	if idx := strings.LastIndex(trimmed, "\n{"); idx >= 0 {
		if fields := unmarshalObject(trimmed[idx+1:]); fields != nil {
			return fields
		}
	}
	return nil
}

func unmarshalObject(s string) map[string]any {
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil
	}
	return fields
}
