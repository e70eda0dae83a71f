package pipeline

import (
	"fmt"
	"strings"
	"text/template"
)

// promptTemplate parameterizes the summarization request by mode. Modes the
// template does not know are handled by the downstream service reading the
// mode legend, not rejected here.
const promptTemplate = `You are an expert research assistant.

Summarize the following PDF content in "{{.Mode}}" format.

Modes:
- short    -> 5-7 concise lines
- detailed -> structured explanation
- bullet   -> bullet points
- insights -> insights and implications

PDF Content:
{{.Content}}`

var summaryPrompt = template.Must(template.New("summary").Parse(promptTemplate))

type promptData struct {
	Mode    string
	Content string
}

// BuildPrompt composes the task prompt for the given mode and document text.
func BuildPrompt(mode, content string) (string, error) {
	if mode == "" {
		mode = "detailed"
	}

	var buf strings.Builder
	if err := summaryPrompt.Execute(&buf, promptData{Mode: mode, Content: content}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}
