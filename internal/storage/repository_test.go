package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"tracker/internal/core"
	"tracker/internal/store"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracker.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func mustTx(t *testing.T, date string, amount float64, category, note string) core.Transaction {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatal(err)
	}
	tx, err := core.NewTransaction(d, amount, category, note)
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepo(t)
	v, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != 1 || dirty {
		t.Fatalf("SchemaVersion() = %d dirty=%v", v, dirty)
	}
	// Running again is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations() second run error = %v", err)
	}
}

func TestSQLiteTransactionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	a := mustTx(t, "2024-03-15", 30, "Food", "dinner")
	b := mustTx(t, "2024-03-01", 50, "Food", "")
	c := mustTx(t, "2024-03-20", 20, "Transport", "")
	if err := repo.AddTransactions(ctx, a, b); err != nil {
		t.Fatalf("AddTransactions() error = %v", err)
	}
	if err := repo.AddTransactions(ctx, c); err != nil {
		t.Fatalf("AddTransactions() error = %v", err)
	}

	list, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 3 || list[0].ID != a.ID || list[1].ID != b.ID || list[2].ID != c.ID {
		t.Fatalf("insertion order not preserved: %+v", list)
	}
	if !list[0].Date.Equal(a.Date) || list[0].Note != "dinner" || list[0].Amount != 30 {
		t.Fatalf("round trip mismatch: %+v", list[0])
	}

	a2, _ := a.Revise(a.Date, 35.5, "Fun", "")
	if err := repo.UpdateTransaction(ctx, a2); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	got, err := repo.GetTransaction(ctx, a.ID)
	if err != nil || got.Amount != 35.5 || got.Category != "Fun" {
		t.Fatalf("GetTransaction() = %+v, %v", got, err)
	}

	if err := repo.DeleteTransaction(ctx, b.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if _, err := repo.GetTransaction(ctx, b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.ReplaceTransactions(ctx, []core.Transaction{c, b}); err != nil {
		t.Fatalf("ReplaceTransactions() error = %v", err)
	}
	list, _ = repo.ListTransactions(ctx)
	if len(list) != 2 || list[0].ID != c.ID || list[1].ID != b.ID {
		t.Fatalf("replace mismatch: %+v", list)
	}
}

func TestSQLiteNaNAmountStoredAsNull(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	broken := core.Transaction{ID: "broken", Date: core.NewDate(2024, 3, 2), Amount: math.NaN(), Category: "Food"}
	if err := repo.AddTransactions(ctx, broken); err != nil {
		t.Fatalf("AddTransactions() error = %v", err)
	}
	got, err := repo.GetTransaction(ctx, "broken")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if !math.IsNaN(got.Amount) {
		t.Fatalf("expected NaN amount, got %v", got.Amount)
	}
}

func TestSQLiteMalformedDateLoadsAsZero(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO transactions (id, date, amount, category, note, position) VALUES ('x', '2024-02-30', 5, 'Food', '', 1)`); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetTransaction(ctx, "x")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if !got.Date.IsZero() {
		t.Fatalf("expected zero date, got %s", got.Date)
	}
}

func TestSQLiteCategoriesAndBudgets(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	cats, err := repo.ListCategories(ctx)
	if err != nil || cats != nil {
		t.Fatalf("fresh database should have no categories: %v, %v", cats, err)
	}
	want := []string{"Rent", "Food", "Other"}
	if err := repo.SaveCategories(ctx, want); err != nil {
		t.Fatalf("SaveCategories() error = %v", err)
	}
	cats, _ = repo.ListCategories(ctx)
	if len(cats) != 3 || cats[0] != "Rent" || cats[2] != "Other" {
		t.Fatalf("ListCategories() = %v", cats)
	}

	if err := repo.SaveBudgets(ctx, core.Budgets{"Rent": 1000, "Food": 0}); err != nil {
		t.Fatalf("SaveBudgets() error = %v", err)
	}
	if err := repo.SaveBudgets(ctx, core.Budgets{"Rent": 900}); err != nil {
		t.Fatalf("SaveBudgets() error = %v", err)
	}
	b, err := repo.LoadBudgets(ctx)
	if err != nil || len(b) != 1 || b.Limit("Rent") != 900 {
		t.Fatalf("LoadBudgets() = %v, %v", b, err)
	}

	if err := repo.SaveBudgets(ctx, core.Budgets{"Rent": -1}); err == nil {
		t.Fatal("negative budget should violate the CHECK constraint")
	}
	b, _ = repo.LoadBudgets(ctx)
	if b.Limit("Rent") != 900 {
		t.Fatalf("failed save must roll back, got %v", b)
	}
}
