// Package store declares the persistence ports used by the services.
// Adapters live in sub-packages (memory) and in internal/storage (SQLite).
package store

import (
	"context"
	"errors"

	"tracker/internal/core"
)

var ErrNotFound = errors.New("transaction not found")

// Ports for outbound adapters.
type (
	// TransactionRepository owns the transaction collection. List returns a
	// snapshot that callers may keep without further locking.
	TransactionRepository interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		AddTransactions(ctx context.Context, ts ...core.Transaction) error
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
		// ReplaceTransactions swaps the whole collection atomically.
		ReplaceTransactions(ctx context.Context, ts []core.Transaction) error
	}

	// CategoryStore persists the ordered category set. A nil result means
	// nothing was saved yet.
	CategoryStore interface {
		ListCategories(ctx context.Context) ([]string, error)
		SaveCategories(ctx context.Context, categories []string) error
	}

	// BudgetStore persists the category budget map.
	BudgetStore interface {
		LoadBudgets(ctx context.Context) (core.Budgets, error)
		SaveBudgets(ctx context.Context, budgets core.Budgets) error
	}

	// Store is implemented by every backend.
	Store interface {
		TransactionRepository
		CategoryStore
		BudgetStore
		Close() error
	}
)
