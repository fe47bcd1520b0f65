package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tracker/internal/core"
	"tracker/internal/store"
)

// Store keeps the ledger in process memory.
type Store struct {
	mu      sync.RWMutex
	items   []core.Transaction
	cats    []string
	budgets core.Budgets
}

var _ store.Store = (*Store)(nil)

// New returns a store seeded with categories. An empty list leaves the
// category set unsaved so that callers fall back to defaults.
func New(categories []string) *Store {
	return &Store{cats: dedupe(categories)}
}

// NewFromFiles seeds categories from seed_categories.txt in base, one per
// line. Blank lines and # comments are ignored.
func NewFromFiles(base string) *Store {
	if base == "" {
		return New(nil)
	}
	return New(readLines(filepath.Join(base, "seed_categories.txt")))
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.items...), nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], nil
	}
	return core.Transaction{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
}

func (s *Store) AddTransactions(_ context.Context, ts ...core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ts {
		if s.indexOf(t.ID) >= 0 {
			return fmt.Errorf("duplicate transaction id %s", t.ID)
		}
	}
	s.items = append(s.items, ts...)
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(t.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, t.ID)
	}
	s.items[i] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return nil
}

func (s *Store) ReplaceTransactions(_ context.Context, ts []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Transaction(nil), ts...)
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cats == nil {
		return nil, nil
	}
	return append([]string(nil), s.cats...), nil
}

func (s *Store) SaveCategories(_ context.Context, categories []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cats = append(make([]string, 0, len(categories)), categories...)
	return nil
}

func (s *Store) LoadBudgets(_ context.Context) (core.Budgets, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.budgets == nil {
		return core.Budgets{}, nil
	}
	return s.budgets.Clone(), nil
}

func (s *Store) SaveBudgets(_ context.Context, budgets core.Budgets) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = budgets.Clone()
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) indexOf(id string) int {
	for i, t := range s.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// dedupe drops blanks and case-insensitive duplicates, keeping input order.
// It returns nil for an empty result.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
