package prompts

import "errors"

// ErrInvalidStage is returned for a stage with no registered template.
var ErrInvalidStage = errors.New("unknown prompt stage")
