package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/inventory"
)

// Validate checks every extracted item against inventory. An unknown name
// gets one fuzzy retry against the known names. When ingestion left errors
// pending, Validate records a skipped entry and changes nothing else.
// Lookup failures are returned and abort the run.
func Validate(ctx context.Context, rt *Runtime, s *InvoiceState) error {
	if len(s.ValidationErrors) > 0 {
		s.log(AgentValidation, "Skipped: ingestion errors pending", nil, "Errors: "+formatErrors(s.ValidationErrors))
		return nil
	}

	var (
		errs  = []string{}
		calls []ToolCall
		names []string
	)

	for _, item := range s.ExtractedData.Items {
		stock, err := rt.Inventory.Lookup(ctx, item.ItemName)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInventory, err)
		}
		calls = append(calls, ToolCall{Tool: "query_inventory", Input: item.ItemName, Output: stock})

		if stock == inventory.NotFound {
			if names == nil {
				if names, err = rt.Inventory.Names(ctx); err != nil {
					return fmt.Errorf("%w: %w", ErrInventory, err)
				}
			}

			if match, ok := inventory.ClosestMatch(item.ItemName, names, rt.Policy.FuzzyCutoff); ok {
				if stock, err = rt.Inventory.Lookup(ctx, match); err != nil {
					return fmt.Errorf("%w: %w", ErrInventory, err)
				}
				calls = append(calls, ToolCall{Tool: "fuzzy_query", Input: match, Output: stock})
			}
		}

		switch {
		case stock == inventory.NotFound:
			errs = append(errs, fmt.Sprintf("Item %s: Not found", item.ItemName))
		case item.Quantity > stock:
			errs = append(errs, fmt.Sprintf("Item %s: Insufficient stock", item.ItemName))
		}
	}

	s.ValidationErrors = errs
	if len(errs) > 0 {
		s.Failure = FailureInventory
		s.ApprovalStatus = StatusRejected
		s.ApprovalReasoning = "Validation failed: " + strings.Join(errs, "; ")
	}

	s.log(AgentValidation, fmt.Sprintf("Validated %d items", len(s.ExtractedData.Items)), calls, "Errors: "+formatErrors(errs))
	return nil
}

func formatErrors(errs []string) string {
	if errs == nil {
		errs = []string{}
	}
	b, _ := json.Marshal(errs)
	return string(b)
}
