// Package query composes the calendar, aggregation and budget packages into
// the read models used by the presentation surfaces.
package query

import (
	"sort"
	"time"

	"tracker/internal/aggregate"
	"tracker/internal/budget"
	"tracker/internal/calendar"
	"tracker/internal/core"
)

// Totals are the standing week, month and year sums. They are computed
// regardless of the active period filter.
type Totals struct {
	Week      float64             `json:"week"`
	Month     float64             `json:"month"`
	Year      float64             `json:"year"`
	Anomalies []aggregate.Anomaly `json:"anomalies,omitempty"`
}

// BudgetLine is the evaluation of one category's monthly budget.
type BudgetLine struct {
	Category string `json:"category"`
	budget.Evaluation
}

// FilterByPeriod returns the transactions visible under period. The "all"
// period keeps everything without computing a range.
func FilterByPeriod(ts []core.Transaction, period core.Period, now time.Time) ([]core.Transaction, error) {
	if period == core.PeriodAll {
		return aggregate.Filter(ts, core.DateRange{})
	}
	r, err := calendar.RangeForPeriod(period, now)
	if err != nil {
		return nil, err
	}
	return aggregate.Filter(ts, r)
}

// SortByDateDesc returns a copy of ts ordered newest first. Transactions on
// the same day keep their relative order.
func SortByDateDesc(ts []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(ts))
	copy(out, ts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].Date.Before(out[i].Date)
	})
	return out
}

// ListForPeriod filters by period and sorts newest first.
func ListForPeriod(ts []core.Transaction, period core.Period, now time.Time) ([]core.Transaction, error) {
	filtered, err := FilterByPeriod(ts, period, now)
	if err != nil {
		return nil, err
	}
	return SortByDateDesc(filtered), nil
}

// StandingTotals sums the current week, month and year, all ending tomorrow.
func StandingTotals(ts []core.Transaction, now time.Time) (Totals, error) {
	end := calendar.EndOfRange(now)
	starts := []core.Date{calendar.StartOfWeek(now), calendar.StartOfMonth(now), calendar.StartOfYear(now)}

	var sums [3]aggregate.Sum
	for i, start := range starts {
		s, err := aggregate.SumForRange(ts, core.DateRange{Start: start, End: end})
		if err != nil {
			return Totals{}, err
		}
		sums[i] = s
	}
	// In early January the week starts in the previous year.
	return Totals{
		Week:      sums[0].Total,
		Month:     sums[1].Total,
		Year:      sums[2].Total,
		Anomalies: aggregate.MergeAnomalies(sums[2].Anomalies, sums[1].Anomalies, sums[0].Anomalies),
	}, nil
}

// BreakdownForPeriod ranks categories over the range the period selects.
func BreakdownForPeriod(ts []core.Transaction, period core.Period, now time.Time) (aggregate.Breakdown, error) {
	r, err := calendar.RangeForPeriod(period, now)
	if err != nil {
		return aggregate.Breakdown{}, err
	}
	return aggregate.CategoryBreakdown(ts, r)
}

// TrendForPeriod buckets spending by day, or by month for the "all" period.
func TrendForPeriod(ts []core.Transaction, period core.Period, now time.Time) (aggregate.Trend, error) {
	if period == core.PeriodAll {
		return aggregate.TrendSeries(ts, core.DateRange{}, aggregate.BucketMonth)
	}
	r, err := calendar.RangeForPeriod(period, now)
	if err != nil {
		return aggregate.Trend{}, err
	}
	return aggregate.TrendSeries(ts, r, aggregate.BucketDay)
}

// BudgetOverview evaluates every category in categories against the current
// month's spend. Lines follow the order of categories.
func BudgetOverview(ts []core.Transaction, categories []string, budgets core.Budgets, now time.Time) ([]BudgetLine, error) {
	r, err := calendar.RangeForPeriod(core.PeriodMonth, now)
	if err != nil {
		return nil, err
	}
	bd, err := aggregate.CategoryBreakdown(ts, r)
	if err != nil {
		return nil, err
	}
	spent := make(map[string]float64, len(bd.Categories))
	for _, c := range bd.Categories {
		spent[c.Category] = c.Total
	}

	lines := make([]BudgetLine, 0, len(categories))
	for _, name := range categories {
		lines = append(lines, BudgetLine{
			Category:   name,
			Evaluation: budget.Evaluate(budgets.Limit(name), spent[name]),
		})
	}
	return lines, nil
}

// EvaluateCategory evaluates a single category's budget for the current month.
func EvaluateCategory(ts []core.Transaction, category string, budgets core.Budgets, now time.Time) (BudgetLine, error) {
	lines, err := BudgetOverview(ts, []string{category}, budgets, now)
	if err != nil {
		return BudgetLine{}, err
	}
	return lines[0], nil
}
