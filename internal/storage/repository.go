// Package storage is the SQLite adapter for the store ports.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"tracker/internal/core"
	"tracker/internal/store"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable. Used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const selectTransactions = `SELECT id, date, amount, category, note FROM transactions`

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransactions+` ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(ctx, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransactions+` WHERE id = ?`, id)
	t, err := scanTransaction(ctx, row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return t, err
}

func (r *SQLiteRepository) AddTransactions(ctx context.Context, ts ...core.Transaction) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var next int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM transactions`).Scan(&next); err != nil {
			return fmt.Errorf("next position: %w", err)
		}
		return insertTransactions(ctx, tx, next, ts)
	})
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET date = ?, amount = ?, category = ?, note = ? WHERE id = ?`,
		t.Date.String(), amountValue(t.Amount), t.Category, t.Note, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOneRow(res, t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOneRow(res, id)
}

func (r *SQLiteRepository) ReplaceTransactions(ctx context.Context, ts []core.Transaction) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
			return fmt.Errorf("clear transactions: %w", err)
		}
		return insertTransactions(ctx, tx, 1, ts)
	})
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveCategories(ctx context.Context, categories []string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
			return fmt.Errorf("clear categories: %w", err)
		}
		for i, name := range categories {
			if _, err := tx.ExecContext(ctx, `INSERT INTO categories (name, position) VALUES (?, ?)`, name, i); err != nil {
				return fmt.Errorf("insert category %q: %w", name, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) LoadBudgets(ctx context.Context) (core.Budgets, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, amount FROM budgets`)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	defer rows.Close()

	out := core.Budgets{}
	for rows.Next() {
		var (
			category string
			amount   float64
		)
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out[category] = amount
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveBudgets(ctx context.Context, budgets core.Budgets) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM budgets`); err != nil {
			return fmt.Errorf("clear budgets: %w", err)
		}
		for category, amount := range budgets {
			if _, err := tx.ExecContext(ctx, `INSERT INTO budgets (category, amount) VALUES (?, ?)`, category, amount); err != nil {
				return fmt.Errorf("insert budget %q: %w", category, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertTransactions(ctx context.Context, tx *sql.Tx, position int64, ts []core.Transaction) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (id, date, amount, category, note, position) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range ts {
		if _, err := stmt.ExecContext(ctx, t.ID, t.Date.String(), amountValue(t.Amount), t.Category, t.Note, position+int64(i)); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(ctx context.Context, s scanner) (core.Transaction, error) {
	var (
		t      core.Transaction
		date   string
		amount sql.NullFloat64
	)
	if err := s.Scan(&t.ID, &date, &amount, &t.Category, &t.Note); err != nil {
		if err == sql.ErrNoRows {
			return t, err
		}
		return t, fmt.Errorf("scan transaction: %w", err)
	}

	// Rows with a bad date are loaded with a zero date so that aggregation
	// reports them instead of the listing silently dropping them.
	if d, err := core.ParseDate(date); err == nil {
		t.Date = d
	} else {
		slog.WarnContext(ctx, "Stored transaction has malformed date", "id", t.ID, "date", date)
	}

	t.Amount = math.NaN()
	if amount.Valid {
		t.Amount = amount.Float64
	}
	return t, nil
}

// amountValue maps NaN to NULL, which SQLite would otherwise do silently.
func amountValue(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return nil
}
