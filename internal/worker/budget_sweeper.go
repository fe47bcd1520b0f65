package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"tracker/internal/log"
	"tracker/internal/query"
)

// BudgetSweeper evaluates every category budget on a cron schedule.
type BudgetSweeper struct {
	w *SyncWorker
}

func NewBudgetSweeper(w *SyncWorker) *BudgetSweeper {
	return &BudgetSweeper{w: w}
}

// Sweep evaluates all budgets for the current month and returns the
// alerting lines.
func (s *BudgetSweeper) Sweep(ctx context.Context) ([]query.BudgetLine, error) {
	start := time.Now()
	defer func() { s.w.metrics.ObserveSweep(time.Since(start)) }()

	ts, err := s.w.repo.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	cats, err := s.w.budgets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	budgets, err := s.w.budgets.Budgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	lines, err := query.BudgetOverview(ts, cats, budgets, s.w.clock.Now())
	if err != nil {
		return nil, err
	}

	var alerts []query.BudgetLine
	for _, line := range lines {
		if s.w.alert(ctx, line) {
			alerts = append(alerts, line)
		}
	}
	s.w.logger.InfoContext(ctx, "Budget sweep completed",
		log.FieldOperation, log.OpSweep,
		log.FieldCount, len(lines),
		"alerts", len(alerts),
		"duration_ms", time.Since(start).Milliseconds())
	return alerts, nil
}

// Run schedules Sweep with a standard five-field cron expression and blocks
// until ctx is done. A running sweep is allowed to finish.
func (s *BudgetSweeper) Run(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.w.logger.ErrorContext(ctx, "Budget sweep failed", log.FieldOperation, log.OpSweep, log.FieldError, err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s.w.logger.InfoContext(ctx, "Budget sweep scheduled", "schedule", schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
