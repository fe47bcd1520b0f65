package sheets

import (
	"context"

	"tracker/internal/core"
)

// Ports for the spreadsheet mirror of the ledger.
type (
	// TransactionExporter keeps one row per transaction, keyed by ID.
	TransactionExporter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// Upsert rewrites the row holding t.ID, appending when none exists.
		Upsert(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// Delete clears the row holding id. Missing rows are not an error.
		Delete(ctx context.Context, id string) error
		// Replace rewrites the whole sheet with ts, in order.
		Replace(ctx context.Context, ts []core.Transaction) error
	}

	// TransactionReader loads the rows back as transactions.
	TransactionReader interface {
		ReadTransactions(ctx context.Context) ([]core.Transaction, error)
	}
)
