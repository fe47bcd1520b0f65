package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/store"
)

var (
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryInUse    = errors.New("category is in use; remove or edit its transactions first")
	ErrCategoryNotFound = errors.New("category not found")
)

// CategoryService owns the ordered category set and the monthly budgets
// attached to it. Budgets always have exactly one entry per category.
type CategoryService struct {
	cats    store.CategoryStore
	budgets store.BudgetStore
	txs     store.TransactionRepository
	logger  *log.Logger

	mu        sync.Mutex
	listeners []func()
}

func NewCategoryService(cats store.CategoryStore, budgets store.BudgetStore, txs store.TransactionRepository, logger *log.Logger) *CategoryService {
	return &CategoryService{cats: cats, budgets: budgets, txs: txs, logger: logger.WithComponent(log.ComponentLedger)}
}

// OnChange registers fn to run after categories or budgets change.
func (s *CategoryService) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// List returns the categories in display order, or the defaults when none
// were ever saved.
func (s *CategoryService) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx)
}

func (s *CategoryService) list(ctx context.Context) ([]string, error) {
	cats, err := s.cats.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if cats == nil {
		return core.DefaultCategories(), nil
	}
	return cats, nil
}

// Add appends name. Blank names and case-insensitive duplicates are rejected.
func (s *CategoryService) Add(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}

	s.mu.Lock()
	cats, err := s.list(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for _, c := range cats {
		if strings.EqualFold(c, name) {
			s.mu.Unlock()
			return ErrCategoryExists
		}
	}
	err = s.save(ctx, append(cats, name))
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Category added", log.FieldCategory, name)
	s.notify()
	return nil
}

// Remove deletes name unless a transaction still uses it. Removing the last
// category leaves the fallback category.
func (s *CategoryService) Remove(ctx context.Context, name string) error {
	ts, err := s.txs.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	for _, t := range ts {
		if t.Category == name {
			return ErrCategoryInUse
		}
	}

	s.mu.Lock()
	cats, err := s.list(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next := make([]string, 0, len(cats))
	for _, c := range cats {
		if c != name {
			next = append(next, c)
		}
	}
	if len(next) == len(cats) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, name)
	}
	if len(next) == 0 {
		next = []string{core.FallbackCategory}
	}
	err = s.save(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Category removed", log.FieldCategory, name)
	s.notify()
	return nil
}

// Budgets returns one limit per category; categories without a saved
// limit report 0.
func (s *CategoryService) Budgets(ctx context.Context) (core.Budgets, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cats, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	saved, err := s.budgets.LoadBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	return syncBudgets(saved, cats), nil
}

// SetBudget sets the monthly limit of an existing category.
func (s *CategoryService) SetBudget(ctx context.Context, category string, amount float64) error {
	if err := core.ValidateBudget(amount); err != nil {
		return err
	}

	s.mu.Lock()
	cats, err := s.list(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !contains(cats, category) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, category)
	}
	saved, err := s.budgets.LoadBudgets(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("load budgets: %w", err)
	}
	next := syncBudgets(saved, cats)
	next[category] = amount
	err = s.budgets.SaveBudgets(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("save budgets: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget updated", log.FieldCategory, category, log.FieldBudget, amount)
	s.notify()
	return nil
}

// save persists cats and prunes or seeds budgets to match. Callers hold mu.
func (s *CategoryService) save(ctx context.Context, cats []string) error {
	if err := s.cats.SaveCategories(ctx, cats); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	saved, err := s.budgets.LoadBudgets(ctx)
	if err != nil {
		return fmt.Errorf("load budgets: %w", err)
	}
	if err := s.budgets.SaveBudgets(ctx, syncBudgets(saved, cats)); err != nil {
		return fmt.Errorf("save budgets: %w", err)
	}
	return nil
}

func (s *CategoryService) notify() {
	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// syncBudgets keeps saved limits for cats, adds 0 for new ones and drops the
// rest.
func syncBudgets(saved core.Budgets, cats []string) core.Budgets {
	out := make(core.Budgets, len(cats))
	for _, c := range cats {
		out[c] = saved.Limit(c)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
