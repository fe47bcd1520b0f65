// Package aggregate computes sums, category breakdowns and trends over
// transactions falling in a half-open date range.
//
// All functions are pure: they never modify the supplied slice and return
// freshly allocated results. Amounts are accumulated exactly (see amountSum),
// so totals do not depend on the order of the input.
package aggregate

import (
	"fmt"
	"sort"

	"tracker/internal/core"
)

// AnomalyKind classifies an amount that could not be summed.
type AnomalyKind string

// Anomaly kinds.
const (
	// AnomalyNonFinite is a NaN or infinite amount.
	AnomalyNonFinite AnomalyKind = "non_finite"
)

// Anomaly describes a matching transaction whose amount contributed zero.
// Callers are expected to log these as warnings.
type Anomaly struct {
	ID       string      `json:"id"`
	Category string      `json:"category"`
	Date     core.Date   `json:"date"`
	Kind     AnomalyKind `json:"kind"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("transaction %s (%s, %s): %s amount counted as zero", a.ID, a.Date, a.Category, a.Kind)
}

// DateError reports a transaction whose date is not a well-formed calendar
// day. It unwraps to core.ErrMalformedDate.
type DateError struct {
	ID  string
	Err error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%v: transaction %q: %v", core.ErrMalformedDate, e.ID, e.Err)
}

func (e *DateError) Unwrap() []error {
	return []error{core.ErrMalformedDate, e.Err}
}

// Sum is the result of SumForRange.
type Sum struct {
	Total     float64   `json:"total"`
	Count     int       `json:"count"`
	Anomalies []Anomaly `json:"anomalies,omitempty"`
}

// Breakdown is the result of CategoryBreakdown. Categories is never nil.
type Breakdown struct {
	Categories []core.CategoryTotal `json:"categories"`
	Anomalies  []Anomaly            `json:"anomalies,omitempty"`
}

// Total returns the sum of all category totals.
func (b Breakdown) Total() float64 {
	var sum amountSum
	for _, c := range b.Categories {
		sum.add(c.Total)
	}
	return sum.value()
}

// SumForRange adds the amount of every transaction dated in r.
// A transaction with a malformed date aborts the scan with a *DateError.
func SumForRange(ts []core.Transaction, r core.DateRange) (Sum, error) {
	if err := r.Validate(); err != nil {
		return Sum{}, err
	}
	var (
		sum amountSum
		out Sum
	)
	for _, t := range ts {
		in, err := matches(t, r)
		if err != nil {
			return Sum{}, err
		}
		if !in {
			continue
		}
		out.Count++
		if anomaly, bad := checkAmount(t); bad {
			out.Anomalies = append(out.Anomalies, anomaly)
			continue
		}
		sum.add(t.Amount)
	}
	out.Total = sum.value()
	return out, nil
}

// CategoryBreakdown groups the transactions dated in r by category and
// returns the groups ordered by total descending. Equal totals keep the order
// in which their category was first seen.
func CategoryBreakdown(ts []core.Transaction, r core.DateRange) (Breakdown, error) {
	if err := r.Validate(); err != nil {
		return Breakdown{}, err
	}
	var (
		order     []string
		sums      = make(map[string]*amountSum)
		anomalies []Anomaly
	)
	for _, t := range ts {
		in, err := matches(t, r)
		if err != nil {
			return Breakdown{}, err
		}
		if !in {
			continue
		}
		if _, seen := sums[t.Category]; !seen {
			order = append(order, t.Category)
			sums[t.Category] = new(amountSum)
		}
		if anomaly, bad := checkAmount(t); bad {
			anomalies = append(anomalies, anomaly)
			continue
		}
		sums[t.Category].add(t.Amount)
	}

	categories := make([]core.CategoryTotal, 0, len(order))
	for _, name := range order {
		categories = append(categories, core.CategoryTotal{Category: name, Total: sums[name].value()})
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Total > categories[j].Total
	})
	return Breakdown{Categories: categories, Anomalies: anomalies}, nil
}

// Filter returns the transactions dated in r, in input order. An unbounded
// range keeps every transaction.
func Filter(ts []core.Transaction, r core.DateRange) ([]core.Transaction, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(ts))
	for _, t := range ts {
		in, err := matches(t, r)
		if err != nil {
			return nil, err
		}
		if in {
			out = append(out, t)
		}
	}
	return out, nil
}

func matches(t core.Transaction, r core.DateRange) (bool, error) {
	if err := t.Date.Validate(); err != nil {
		return false, &DateError{ID: t.ID, Err: err}
	}
	return r.Contains(t.Date), nil
}

func checkAmount(t core.Transaction) (Anomaly, bool) {
	if core.IsFinite(t.Amount) {
		return Anomaly{}, false
	}
	return Anomaly{ID: t.ID, Category: t.Category, Date: t.Date, Kind: AnomalyNonFinite}, true
}

// MergeAnomalies concatenates groups, keeping the first anomaly reported for
// each transaction ID.
func MergeAnomalies(groups ...[]Anomaly) []Anomaly {
	seen := map[string]bool{}
	var out []Anomaly
	for _, g := range groups {
		for _, a := range g {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			out = append(out, a)
		}
	}
	return out
}
