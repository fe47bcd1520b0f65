// Package csvio reads and writes the ledger's CSV interchange format:
// a header row "date,amount,category,note" followed by one row per
// transaction.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tracker/internal/core"
)

var Header = []string{"date", "amount", "category", "note"}

var (
	ErrEmpty          = errors.New("csv is empty")
	ErrMissingHeaders = errors.New("missing headers")
	ErrNoValidRows    = errors.New("no valid rows were found")
)

// Mode selects how imported rows combine with the existing ledger.
type Mode string

const (
	ModeMerge   Mode = "merge"
	ModeReplace Mode = "replace"
)

// ParseMode defaults to merge for an empty string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("invalid import mode %q: must be merge or replace", s)
	}
}

// RowError reports a data row that could not become a transaction. Row
// counts non-blank records with the header as row 1.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("Row %d has invalid data.", e.Row)
}

func (e RowError) Unwrap() error { return e.Err }

// Result is the outcome of reading a CSV document.
type Result struct {
	Transactions []core.Transaction
	Errors       []RowError
}

// Write emits ts in the given order. Non-finite amounts are written as
// empty fields.
func Write(w io.Writer, ts []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, t := range ts {
		amount := ""
		if core.IsFinite(t.Amount) {
			amount = strconv.FormatFloat(t.Amount, 'f', 2, 64)
		}
		if err := cw.Write([]string{t.Date.String(), amount, t.Category, t.Note}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a CSV document. Headers are matched case-insensitively and
// may appear in any order; blank rows are skipped. Each valid row becomes
// a transaction with a fresh ID. Read fails when the headers are missing
// or no row is valid.
func Read(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	for err == nil && blank(head) {
		head, err = cr.Read()
	}
	if err == io.EOF {
		return Result{}, ErrEmpty
	}
	if err != nil {
		return Result{}, fmt.Errorf("read CSV header: %w", err)
	}
	cols, err := columns(head)
	if err != nil {
		return Result{}, err
	}

	var res Result
	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read CSV: %w", err)
		}
		if blank(rec) {
			continue
		}
		row++
		t, err := parseRecord(rec, cols)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: row, Err: err})
			continue
		}
		res.Transactions = append(res.Transactions, t)
	}
	if len(res.Transactions) == 0 {
		return res, ErrNoValidRows
	}
	return res, nil
}

type columnIndex struct {
	date, amount, category, note int
}

func columns(head []string) (columnIndex, error) {
	idx := map[string]int{}
	for i, h := range head {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	var missing []string
	lookup := func(name string) int {
		i, ok := idx[name]
		if !ok {
			missing = append(missing, name)
		}
		return i
	}
	c := columnIndex{
		date:     lookup("date"),
		amount:   lookup("amount"),
		category: lookup("category"),
		note:     lookup("note"),
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("%w: %s", ErrMissingHeaders, strings.Join(missing, ", "))
	}
	return c, nil
}

func parseRecord(rec []string, c columnIndex) (core.Transaction, error) {
	date, err := core.ParseDate(field(rec, c.date))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(field(rec, c.amount))
	if err != nil {
		return core.Transaction{}, err
	}
	return core.NewTransaction(date, amount, field(rec, c.category), field(rec, c.note))
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
