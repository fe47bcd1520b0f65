// Package worker reacts to ledger events: it mirrors transactions to Google
// Sheets and raises budget alerts.
package worker

import (
	"context"
	"fmt"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/metrics"
	"tracker/internal/query"
	"tracker/internal/sheets"
	"tracker/internal/store"
)

// BudgetSource supplies the category set and the monthly budgets.
// *services.CategoryService satisfies it.
type BudgetSource interface {
	List(ctx context.Context) ([]string, error)
	Budgets(ctx context.Context) (core.Budgets, error)
}

// SyncWorker handles transaction events from AMQP.
type SyncWorker struct {
	repo     store.TransactionRepository
	budgets  BudgetSource
	exporter sheets.TransactionExporter
	clock    core.Clock
	metrics  *metrics.Metrics
	logger   *log.Logger
}

// NewSyncWorker accepts a nil exporter when the Sheets mirror is disabled.
func NewSyncWorker(repo store.TransactionRepository, budgets BudgetSource, exporter sheets.TransactionExporter, clock core.Clock, m *metrics.Metrics, logger *log.Logger) *SyncWorker {
	return &SyncWorker{
		repo:     repo,
		budgets:  budgets,
		exporter: exporter,
		clock:    clock,
		metrics:  m,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent mirrors the change to Sheets and, for created and updated
// transactions, evaluates the category budget. An export failure is
// returned so that the message is redelivered; budget evaluation failures
// are only logged.
func (w *SyncWorker) HandleEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldEvent, string(e.Type),
		log.FieldTransactionID, e.ID)

	err := w.export(ctx, e)
	w.metrics.IncEvent("in", string(e.Type), err)
	if err != nil {
		return err
	}

	if e.Transaction != nil {
		w.checkBudget(ctx, e.Transaction.Category)
	}
	return nil
}

func (w *SyncWorker) export(ctx context.Context, e *amqp.TransactionEvent) error {
	if w.exporter == nil {
		return nil
	}

	var err error
	switch e.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		var ref string
		ref, err = w.exporter.Upsert(ctx, *e.Transaction)
		if err == nil {
			w.logger.InfoContext(ctx, "Transaction mirrored to sheet",
				log.FieldTransactionID, e.ID,
				log.FieldSheetsRef, ref)
		}
	case amqp.EventDeleted:
		err = w.exporter.Delete(ctx, e.ID)
	case amqp.EventCleared, amqp.EventImported:
		err = w.mirrorLedger(ctx)
	default:
		return fmt.Errorf("unsupported event type %q", e.Type)
	}

	w.metrics.IncSheetsExport(err)
	if err != nil {
		return fmt.Errorf("export %s to sheets: %w", e.Type, err)
	}
	return nil
}

// mirrorLedger rewrites the whole sheet from the repository.
func (w *SyncWorker) mirrorLedger(ctx context.Context) error {
	ts, err := w.repo.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if err := w.exporter.Replace(ctx, ts); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Sheet rewritten from ledger", log.FieldCount, len(ts))
	return nil
}

func (w *SyncWorker) checkBudget(ctx context.Context, category string) {
	line, err := w.evaluate(ctx, category)
	if err != nil {
		w.logger.ErrorContext(ctx, "Budget evaluation failed",
			log.FieldOperation, log.OpEvaluate,
			log.FieldCategory, category,
			log.FieldError, err)
		return
	}
	w.alert(ctx, line)
}

func (w *SyncWorker) evaluate(ctx context.Context, category string) (query.BudgetLine, error) {
	ts, err := w.repo.ListTransactions(ctx)
	if err != nil {
		return query.BudgetLine{}, fmt.Errorf("list transactions: %w", err)
	}
	budgets, err := w.budgets.Budgets(ctx)
	if err != nil {
		return query.BudgetLine{}, fmt.Errorf("load budgets: %w", err)
	}
	return query.EvaluateCategory(ts, category, budgets, w.clock.Now())
}

// alert logs Near and Over lines at warn level. It reports whether the line
// was alerting.
func (w *SyncWorker) alert(ctx context.Context, line query.BudgetLine) bool {
	if !line.Status.Alerting() {
		return false
	}
	w.metrics.IncBudgetAlert(string(line.Status))
	fields := log.NewFields().
		WithBudget(line.Category, line.Budget, line.Spent, string(line.Status)).
		WithOperation(log.OpEvaluate)
	w.logger.WarnContext(ctx, "Budget alert: "+line.Status.Label(), fields.ToSlice()...)
	return true
}
