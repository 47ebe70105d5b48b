package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/prompts"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/formatting"
)

type approveContext struct {
	Vendor         string  `json:"vendor"`
	Amount         float64 `json:"amount"`
	Date           string  `json:"date"`
	Threshold      float64 `json:"approval_threshold"`
	RequiresReview bool    `json:"requires_review"`
}

type approveResponse struct {
	Status    string `json:"status"`
	Reasoning string `json:"reasoning"`
}

// Approve asks the decision model to approve or reject a validated invoice.
// Invoices with validation errors are rejected without a model call.
func Approve(ctx context.Context, rt *Runtime, s *InvoiceState) error {
	if len(s.ValidationErrors) > 0 {
		s.ApprovalStatus = StatusRejected
		s.ApprovalReasoning = "Validation errors present"
		s.log(AgentApproval, "Skipped: validation errors present", nil, "Status: "+string(s.ApprovalStatus))
		return nil
	}

	data := s.ExtractedData
	prompt, err := ComposePrompt(prompts.StageApprove, approveContext{
		Vendor:         data.Vendor,
		Amount:         data.Amount,
		Date:           data.Date,
		Threshold:      rt.Policy.ApprovalThreshold,
		RequiresReview: data.Amount >= rt.Policy.ApprovalThreshold,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrApproval, err)
	}

	content, err := rt.Decider.Decide(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%w: decision call: %w", ErrApproval, err)
	}

	status, reasoning, err := parseApproval(content)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrApproval, err)
	}

	s.ApprovalStatus = status
	s.ApprovalReasoning = reasoning
	s.log(
		AgentApproval,
		fmt.Sprintf("Reviewed invoice from %s for %.2f", data.Vendor, data.Amount),
		nil,
		"Status: "+string(status),
	)

	rt.Logger.InfoContext(ctx, "approval decided", "run_id", s.RunID, "status", status)
	return nil
}

func parseApproval(content string) (ApprovalStatus, string, error) {
	parsed, err := formatting.Parse[approveResponse](content)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrSchema, err)
	}

	status := ApprovalStatus(parsed.Status)

	switch status {
	case StatusApproved:
	case StatusRejected:
		if strings.TrimSpace(parsed.Reasoning) == "" {
			return "", "", fmt.Errorf("%w: rejection without reasoning", ErrSchema)
		}
	default:
		return "", "", fmt.Errorf("%w: status %q", ErrSchema, parsed.Status)
	}

	return status, parsed.Reasoning, nil
}
