// Package decision wraps the go-agents client used for every model call in
// the workflow: structured extraction, approval, and page transcription.
package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/prompts"
)

// DefaultTimeout bounds a single model call when none is configured.
const DefaultTimeout = 2 * time.Minute

// Errors returned by Agent calls.
var (
	ErrTimeout       = errors.New("decision call timed out")
	ErrEmptyPrompt   = errors.New("prompt is empty")
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrNoImages      = errors.New("no images to transcribe")
)

// Agent issues bounded chat and vision calls against the configured provider.
type Agent struct {
	cfg     gaconfig.AgentConfig
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Agent. A non-positive timeout selects DefaultTimeout.
func New(cfg gaconfig.AgentConfig, timeout time.Duration, logger *slog.Logger) *Agent {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Agent{
		cfg:     cfg,
		timeout: timeout,
		logger:  logger.With("system", "decision"),
	}
}

// Timeout returns the per-call deadline.
func (a *Agent) Timeout() time.Duration {
	return a.timeout
}

// Decide sends prompt as a chat message and returns the response text.
func (a *Agent) Decide(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	client, err := agent.New(&a.cfg)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	start := time.Now()
	resp, err := client.Chat(ctx, prompt)
	if err != nil {
		return "", a.callError(ctx, "chat", err)
	}

	a.logger.DebugContext(ctx, "chat call complete", "elapsed", time.Since(start))
	return content(resp.Content())
}

// Transcribe sends page images as data URIs to the vision model and returns
// their text.
func (a *Agent) Transcribe(ctx context.Context, images []string) (string, error) {
	if len(images) == 0 {
		return "", ErrNoImages
	}

	prompt, err := prompts.Compose(prompts.StageTranscribe)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	client, err := agent.New(&a.cfg)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	start := time.Now()
	resp, err := client.Vision(ctx, prompt, images)
	if err != nil {
		return "", a.callError(ctx, "vision", err)
	}

	a.logger.DebugContext(ctx, "vision call complete",
		"pages", len(images),
		"elapsed", time.Since(start),
	)
	return content(resp.Content())
}

func (a *Agent) callError(ctx context.Context, call string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %v: %w", ErrTimeout, a.timeout, err)
	}
	return fmt.Errorf("%s call: %w", call, err)
}

func content(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
