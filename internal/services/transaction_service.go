package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/csvio"
	"tracker/internal/log"
	"tracker/internal/metrics"
	"tracker/internal/store"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, event *amqp.TransactionEvent) error
}

// TransactionInput carries already-parsed field values for add and update.
type TransactionInput struct {
	Date     core.Date
	Amount   float64
	Category string
	Note     string
}

// ImportResult summarizes a CSV import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// TransactionService orchestrates ledger mutations: it persists through the
// repository, notifies change listeners and publishes events.
type TransactionService struct {
	repo      store.TransactionRepository
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *log.Logger

	mu        sync.Mutex
	listeners []func()
}

// NewTransactionService accepts a nil publisher when events are disabled.
func NewTransactionService(repo store.TransactionRepository, publisher EventPublisher, m *metrics.Metrics, logger *log.Logger) *TransactionService {
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// OnChange registers fn to run after every successful mutation.
func (s *TransactionService) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *TransactionService) List(ctx context.Context) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx)
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// Add validates in, stores it under a fresh ID and publishes a created event.
func (s *TransactionService) Add(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	t, err := core.NewTransaction(in.Date, in.Amount, in.Category, in.Note)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.repo.AddTransactions(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.changed(ctx, log.OpCreate)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventCreated, t))
	return t, nil
}

// Update revises the transaction with id, keeping the ID.
func (s *TransactionService) Update(ctx context.Context, id string, in TransactionInput) (core.Transaction, error) {
	current, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	next, err := current.Revise(in.Date, in.Amount, in.Category, in.Note)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.repo.UpdateTransaction(ctx, next); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.changed(ctx, log.OpUpdate)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventUpdated, next))
	return next, nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, log.OpDelete)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, core.Transaction{ID: id}))
	return nil
}

// Clear removes every transaction and returns how many were removed.
func (s *TransactionService) Clear(ctx context.Context) (int, error) {
	current, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.repo.ReplaceTransactions(ctx, nil); err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	s.changed(ctx, log.OpClear)
	s.publish(ctx, amqp.NewBulkEvent(amqp.EventCleared, len(current)))
	return len(current), nil
}

// Import reads a CSV document and merges it into, or replaces, the ledger.
// Nothing is stored when the document has no valid row; the row errors are
// still returned alongside the error.
func (s *TransactionService) Import(ctx context.Context, r io.Reader, mode csvio.Mode) (ImportResult, error) {
	res, err := csvio.Read(r)
	s.metrics.AddImportedRows(len(res.Transactions), len(res.Errors))
	out := ImportResult{Imported: len(res.Transactions), Errors: make([]string, 0, len(res.Errors))}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, e.Error())
	}
	if err != nil {
		out.Imported = 0
		return out, err
	}

	switch mode {
	case csvio.ModeReplace:
		err = s.repo.ReplaceTransactions(ctx, res.Transactions)
	default:
		err = s.repo.AddTransactions(ctx, res.Transactions...)
	}
	if err != nil {
		return ImportResult{}, fmt.Errorf("store imported transactions: %w", err)
	}

	s.logger.InfoContext(ctx, "CSV imported",
		log.FieldOperation, log.OpImport,
		"mode", string(mode),
		log.FieldCount, out.Imported,
		"invalid_rows", len(out.Errors))
	s.changed(ctx, log.OpImport)
	s.publish(ctx, amqp.NewBulkEvent(amqp.EventImported, out.Imported))
	return out, nil
}

// Export writes the whole ledger as CSV in storage order.
func (s *TransactionService) Export(ctx context.Context, w io.Writer) error {
	ts, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return err
	}
	return csvio.Write(w, ts)
}

func (s *TransactionService) changed(ctx context.Context, op string) {
	s.metrics.IncMutation(op)
	if ts, err := s.repo.ListTransactions(ctx); err == nil {
		s.metrics.SetLedgerSize(len(ts))
	}

	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// publish never fails the mutation: the ledger is already saved.
func (s *TransactionService) publish(ctx context.Context, event *amqp.TransactionEvent) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, event)
	s.metrics.IncEvent("out", string(event.Type), err)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldEvent, string(event.Type),
			log.FieldTransactionID, event.ID,
			log.FieldError, err)
	}
}
