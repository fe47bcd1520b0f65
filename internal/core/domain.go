package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

const dateLayout = "2006-01-02"

// MaxNoteLength bounds the free-text annotation of a transaction.
const MaxNoteLength = 200

type (
	// Period is a calendar-relative filter granularity anchored to "now".
	Period string

	// Date is a local calendar day. The wrapped time is always midnight UTC;
	// only its year, month and day carry meaning.
	Date struct {
		time.Time
	}

	// DateRange is the half-open interval [Start, End). A zero bound means the
	// range is unbounded on that side.
	DateRange struct {
		Start Date
		End   Date
	}

	// Transaction is a single recorded expense. Values are immutable once
	// created; Revise returns a new value with the same ID.
	Transaction struct {
		ID       string  `json:"id"`
		Date     Date    `json:"date"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Note     string  `json:"note,omitempty"`
	}

	// Budgets maps a category name to its non-negative monthly limit.
	Budgets map[string]float64
)

// Validation errors. Callers match them with errors.Is.
var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrMalformedDate = errors.New("malformed transaction date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrNoteTooLong   = errors.New("note too long (max 200 characters)")
	ErrInvalidPeriod = errors.New("invalid period")
	ErrInvalidRange  = errors.New("range end before start")
	ErrInvalidBudget = errors.New("invalid budget")
	ErrEmptyID       = errors.New("empty transaction id")
)

// NewDate creates a Date from year, month, day. Out-of-range values are
// normalized the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location, discarding the
// time of day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Validate reports whether d is a well-formed calendar day.
func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	if d.Location() != time.UTC || d.Hour() != 0 || d.Minute() != 0 || d.Second() != 0 || d.Nanosecond() != 0 {
		return fmt.Errorf("%w: %s carries a time of day", ErrInvalidDate, d.Time.Format(time.RFC3339Nano))
	}
	return nil
}

// AddDays returns the day n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Contains reports whether d falls in [Start, End).
func (r DateRange) Contains(d Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !d.Before(r.End) {
		return false
	}
	return true
}

// Validate checks that Start <= End when both bounds are set.
func (r DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("%w: [%s, %s)", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Unbounded reports whether neither side of the range is set.
func (r DateRange) Unbounded() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// ParsePeriod parses a period name, case-insensitively.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

// IsValid returns true if p is one of the known periods.
func (p Period) IsValid() bool {
	switch p {
	case PeriodWeek, PeriodMonth, PeriodYear, PeriodAll:
		return true
	default:
		return false
	}
}

// Label returns the human readable name used by list headers.
func (p Period) Label() string {
	switch p {
	case PeriodWeek:
		return "This week"
	case PeriodMonth:
		return "This month"
	case PeriodYear:
		return "This year"
	default:
		return "All time"
	}
}

func (p Period) String() string {
	return string(p)
}

// Periods returns every period in display order.
func Periods() []Period {
	return []Period{PeriodWeek, PeriodMonth, PeriodYear, PeriodAll}
}

// NewTransaction validates its inputs and returns a transaction with a fresh ID.
func NewTransaction(date Date, amount float64, category, note string) (Transaction, error) {
	t := Transaction{
		ID:       uuid.NewString(),
		Date:     date,
		Amount:   amount,
		Category: strings.TrimSpace(category),
		Note:     strings.TrimSpace(note),
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// Revise returns a validated copy of t with new field values and the same ID.
func (t Transaction) Revise(date Date, amount float64, category, note string) (Transaction, error) {
	next := Transaction{
		ID:       t.ID,
		Date:     date,
		Amount:   amount,
		Category: strings.TrimSpace(category),
		Note:     strings.TrimSpace(note),
	}
	if err := next.Validate(); err != nil {
		return Transaction{}, err
	}
	return next, nil
}

// Validate enforces the entry contract: a well-formed date, a finite positive
// amount and a category.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) || t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// Limit returns the budget for category, 0 when none is set.
func (b Budgets) Limit(category string) float64 {
	return b[category]
}

// Clone returns an independent copy of b.
func (b Budgets) Clone() Budgets {
	out := make(Budgets, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// ValidateBudget checks that a monthly limit is finite and non-negative.
func ValidateBudget(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return ErrInvalidBudget
	}
	return nil
}
