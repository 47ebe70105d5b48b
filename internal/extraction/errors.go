package extraction

import "errors"

// Errors returned by Extract.
var (
	ErrUnsupported = errors.New("unsupported invoice format")
	ErrEmptyText   = errors.New("no text could be extracted")
	ErrNoVision    = errors.New("vision transcription is not configured")
)
