// Package extraction turns an invoice reference into raw text. Plain text
// formats pass through, PDFs use their text layer, and scanned documents fall
// back to vision transcription of rendered page images.
package extraction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/DevDizzle/galatiq-invoice-agent/pkg/storage"
)

// Opener opens the bytes behind an invoice reference.
type Opener func(ctx context.Context, ref string) (io.ReadCloser, error)

// FileOpener opens references as local filesystem paths.
func FileOpener() Opener {
	return func(_ context.Context, ref string) (io.ReadCloser, error) {
		return os.Open(ref)
	}
}

// StorageOpener opens references as blob keys in sys.
func StorageOpener(sys storage.System) Opener {
	return sys.Download
}

// Transcriber reads text from page images encoded as data URIs.
type Transcriber interface {
	Transcribe(ctx context.Context, images []string) (string, error)
}

// Kind classifies an invoice by file extension.
type Kind string

// Supported invoice kinds.
const (
	KindText  Kind = "text"
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

var kinds = map[string]Kind{
	".txt":  KindText,
	".md":   KindText,
	".csv":  KindText,
	".json": KindText,
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
}

// KindOf returns the kind for ref, or ErrUnsupported.
func KindOf(ref string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(ref))
	k, ok := kinds[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return k, nil
}

// Extractor reads invoice text through an Opener.
type Extractor struct {
	open     Opener
	vision   Transcriber
	fallback bool
	render   func(ctx context.Context, data []byte) ([]string, error)
	logger   *slog.Logger
}

// New creates an Extractor. vision may be nil, in which case scanned PDFs
// and images fail with ErrNoVision. fallback controls whether PDFs without
// a text layer are transcribed.
func New(open Opener, vision Transcriber, fallback bool, logger *slog.Logger) *Extractor {
	return &Extractor{
		open:     open,
		vision:   vision,
		fallback: fallback,
		render:   renderPDF,
		logger:   logger.With("system", "extraction"),
	}
}

// Extract returns the raw text of the invoice at ref.
func (e *Extractor) Extract(ctx context.Context, ref string) (string, error) {
	kind, err := KindOf(ref)
	if err != nil {
		return "", err
	}

	data, err := e.read(ctx, ref)
	if err != nil {
		return "", err
	}

	var text string
	switch kind {
	case KindText:
		text = string(data)
	case KindPDF:
		text, err = e.extractPDF(ctx, ref, data)
	case KindImage:
		text, err = e.extractImage(ctx, data)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	e.logger.DebugContext(ctx, "invoice text extracted", "ref", ref, "kind", kind, "chars", len(text))
	return text, nil
}

func (e *Extractor) read(ctx context.Context, ref string) ([]byte, error) {
	rc, err := e.open(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return data, nil
}

func (e *Extractor) extractPDF(ctx context.Context, ref string, data []byte) (string, error) {
	text, err := pdfText(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if err != nil {
		e.logger.WarnContext(ctx, "pdf text layer unreadable", "ref", ref, "error", err)
	}

	if !e.fallback {
		if err != nil {
			return "", err
		}
		return "", ErrEmptyText
	}
	if e.vision == nil {
		return "", ErrNoVision
	}

	images, err := e.render(ctx, data)
	if err != nil {
		return "", err
	}

	e.logger.InfoContext(ctx, "transcribing scanned pdf", "ref", ref, "pages", len(images))
	return e.vision.Transcribe(ctx, images)
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (string, error) {
	if e.vision == nil {
		return "", ErrNoVision
	}

	uri, err := imageDataURI(data)
	if err != nil {
		return "", err
	}

	return e.vision.Transcribe(ctx, []string{uri})
}
