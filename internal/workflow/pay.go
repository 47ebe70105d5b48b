package workflow

import (
	"context"
	"fmt"
)

type paymentInput struct {
	Vendor string  `json:"vendor"`
	Amount float64 `json:"amount"`
}

// Pay settles an approved invoice through the payment gateway. Any other
// approval status is logged as skipped.
func Pay(ctx context.Context, rt *Runtime, s *InvoiceState) error {
	if s.ApprovalStatus != StatusApproved {
		s.log(AgentPayment, "Skipped: invoice not approved", nil, "No payment")
		return nil
	}

	data := s.ExtractedData
	receipt, err := rt.Payments.Pay(ctx, data.Vendor, data.Amount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPayment, err)
	}

	s.PaymentStatus = receipt.Status
	s.TransactionID = receipt.TransactionID
	s.log(
		AgentPayment,
		fmt.Sprintf("Processed payment to %s", data.Vendor),
		[]ToolCall{{
			Tool:   "mock_payment",
			Input:  paymentInput{Vendor: data.Vendor, Amount: data.Amount},
			Output: receipt,
		}},
		"Payment "+receipt.Status,
	)

	return nil
}
