package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/prompts"
)

// ComposePrompt appends the stage context, serialized as indented JSON, to
// the stage template.
func ComposePrompt(stage prompts.Stage, context any) (string, error) {
	base, err := prompts.Compose(stage)
	if err != nil {
		return "", fmt.Errorf("compose %s prompt: %w", stage, err)
	}
	if context == nil {
		return base, nil
	}

	contextJSON, err := json.MarshalIndent(context, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize %s context: %w", stage, err)
	}

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\nContext:\n\n")
	sb.Write(contextJSON)
	return sb.String(), nil
}
