// Package payment settles approved invoices. Only a mock gateway exists.
package payment

import (
	"context"
	"log/slog"
)

// Receipt is the gateway response for a settled invoice.
type Receipt struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// Gateway settles an amount owed to a vendor.
type Gateway interface {
	Pay(ctx context.Context, vendor string, amount float64) (Receipt, error)
}

// MockTransactionID is returned by every Mock payment.
const MockTransactionID = "mock_tx_123"

// Mock is a Gateway that always succeeds without moving money.
type Mock struct {
	logger *slog.Logger
}

// NewMock creates a Mock gateway.
func NewMock(logger *slog.Logger) *Mock {
	return &Mock{logger: logger.With("system", "payment", "gateway", "mock")}
}

func (m *Mock) Pay(ctx context.Context, vendor string, amount float64) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	m.logger.InfoContext(ctx, "mock payment processed", "vendor", vendor, "amount", amount)

	return Receipt{
		Status:        "success",
		TransactionID: MockTransactionID,
	}, nil
}
