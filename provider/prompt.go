package provider

import (
	"sort"
	"strings"

	"github.com/deepnoodle-ai/gantry"
)

// FormatPrompt folds the forwarded upstream context into the prompt in a
// stable order so identical inputs produce identical requests.
func FormatPrompt(request *gantry.ProviderRequest) string {
	if len(request.Context) == 0 {
		return request.Prompt
	}
	names := make([]string, 0, len(request.Context))
	for name := range request.Context {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(request.Prompt)
	sb.WriteString("\n\n# Upstream context\n")
	for _, name := range names {
		sb.WriteString("\n## ")
		sb.WriteString(name)
		sb.WriteString("\n")
		sb.WriteString(request.Context[name])
		sb.WriteString("\n")
	}
	return sb.String()
}
