// Package prompts holds the instructions and response formats sent to the
// decision model at each workflow stage.
package prompts

import (
	"slices"
	"strings"
)

// Stage identifies a workflow stage that consults the decision model.
type Stage string

const (
	StageExtract    Stage = "extract"
	StageApprove    Stage = "approve"
	StageTranscribe Stage = "transcribe"
)

type template struct {
	instructions string
	spec         string
}

var templates = map[Stage]template{
	StageExtract:    {extractInstructions, extractSpec},
	StageApprove:    {approveInstructions, approveSpec},
	StageTranscribe: {transcribeInstructions, transcribeSpec},
}

// Stages returns every stage with a registered template in name order.
func Stages() []Stage {
	out := make([]Stage, 0, len(templates))
	for s := range templates {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Compose joins the instructions and response format for stage.
func Compose(stage Stage) (string, error) {
	t, ok := templates[stage]
	if !ok {
		return "", ErrInvalidStage
	}

	var b strings.Builder
	b.WriteString(t.instructions)
	b.WriteString("\n\n")
	b.WriteString(t.spec)
	return b.String(), nil
}
