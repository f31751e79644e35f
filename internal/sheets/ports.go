package sheets

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for outbound adapters.
type (
	// Mirror keeps a copy of every transaction in an external spreadsheet,
	// one row per transaction keyed on its id.
	Mirror interface {
		// Upsert writes t, replacing the row with the same id if there is one.
		Upsert(ctx context.Context, t core.Transaction) error
		// Remove deletes the row for id. A missing row is not an error.
		Remove(ctx context.Context, id string) error
	}
)
