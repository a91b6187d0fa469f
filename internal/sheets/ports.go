package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter mirrors transactions into an external ledger, one row per
	// transaction ID.
	LedgerWriter interface {
		UpsertTransaction(ctx context.Context, t core.Transaction) error
		RemoveTransaction(ctx context.Context, id string) error
	}
)
