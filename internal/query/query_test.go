package query

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"tracker/internal/budget"
	"tracker/internal/core"
)

func tx(id, date string, amount float64, category string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{ID: id, Date: d, Amount: amount, Category: category}
}

func at(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 14, 30, 0, 0, time.UTC)
}

func ids(ts []core.Transaction) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func fixture() []core.Transaction {
	return []core.Transaction{
		tx("old", "2023-11-05", 40, "Bills"),
		tx("jan", "2024-01-10", 15, "Fun"),
		tx("m1", "2024-03-01", 50, "Food"),
		tx("m2", "2024-03-15", 30, "Food"),
		tx("m3", "2024-03-20", 20, "Transport"),
		tx("wk", "2024-03-26", 12, "Food"),
		tx("future", "2024-04-10", 99, "Food"),
	}
}

func TestFilterByPeriod(t *testing.T) {
	now := at(2024, 3, 27) // Wednesday
	tests := []struct {
		period core.Period
		want   []string
	}{
		{core.PeriodWeek, []string{"wk"}},
		{core.PeriodMonth, []string{"m1", "m2", "m3", "wk"}},
		{core.PeriodYear, []string{"jan", "m1", "m2", "m3", "wk"}},
		{core.PeriodAll, []string{"old", "jan", "m1", "m2", "m3", "wk", "future"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			got, err := FilterByPeriod(fixture(), tt.period, now)
			if err != nil {
				t.Fatalf("FilterByPeriod() error = %v", err)
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("FilterByPeriod() = %v, want %v", ids(got), tt.want)
			}
		})
	}

	if _, err := FilterByPeriod(fixture(), core.Period("decade"), now); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestListForPeriodNewestFirst(t *testing.T) {
	ts := []core.Transaction{
		tx("a", "2024-03-02", 1, "X"),
		tx("b", "2024-03-09", 1, "X"),
		tx("c", "2024-03-02", 1, "X"),
		tx("d", "2024-03-05", 1, "X"),
	}
	got, err := ListForPeriod(ts, core.PeriodMonth, at(2024, 3, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"b", "d", "a", "c"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("ListForPeriod() = %v, want %v", ids(got), want)
	}
	if ids(ts)[0] != "a" || ids(ts)[1] != "b" {
		t.Fatalf("input reordered: %v", ids(ts))
	}
}

func TestStandingTotals(t *testing.T) {
	got, err := StandingTotals(fixture(), at(2024, 3, 27))
	if err != nil {
		t.Fatalf("StandingTotals() error = %v", err)
	}
	if got.Week != 12 || got.Month != 112 || got.Year != 127 {
		t.Fatalf("StandingTotals() = %+v", got)
	}
}

func TestStandingTotalsReportAnomalies(t *testing.T) {
	tests := []struct {
		name     string
		ts       []core.Transaction
		now      time.Time
		wantWeek float64
		wantIDs  []string
	}{
		{
			name:     "inside the year",
			ts:       append(fixture(), tx("bad", "2024-03-27", math.NaN(), "Food")),
			now:      at(2024, 3, 27),
			wantWeek: 12,
			wantIDs:  []string{"bad"},
		},
		{
			name: "week reaching into the previous year",
			ts: []core.Transaction{
				tx("dec", "2024-12-30", math.NaN(), "Food"),
				tx("ok", "2024-12-31", 7, "Food"),
				tx("jan", "2025-01-02", math.Inf(1), "Fun"),
			},
			now:      at(2025, 1, 2),
			wantWeek: 7,
			wantIDs:  []string{"jan", "dec"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StandingTotals(tt.ts, tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Week != tt.wantWeek {
				t.Errorf("Week = %v, want %v", got.Week, tt.wantWeek)
			}
			var gotIDs []string
			for _, a := range got.Anomalies {
				gotIDs = append(gotIDs, a.ID)
			}
			if !reflect.DeepEqual(gotIDs, tt.wantIDs) {
				t.Errorf("anomaly IDs = %v, want %v", gotIDs, tt.wantIDs)
			}
		})
	}
}

func TestBreakdownForPeriodScenarios(t *testing.T) {
	ts := []core.Transaction{
		tx("1", "2024-03-01", 50, "Food"),
		tx("2", "2024-03-15", 30, "Food"),
		tx("3", "2024-03-20", 20, "Transport"),
	}

	got, err := BreakdownForPeriod(ts, core.PeriodMonth, at(2024, 3, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []core.CategoryTotal{{Category: "Food", Total: 80}, {Category: "Transport", Total: 20}}
	if !reflect.DeepEqual(got.Categories, want) {
		t.Fatalf("breakdown = %+v, want %+v", got.Categories, want)
	}

	got, err = BreakdownForPeriod(ts, core.PeriodMonth, at(2024, 4, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Categories) != 0 || got.Categories == nil {
		t.Fatalf("expected empty breakdown, got %#v", got.Categories)
	}
}

func TestTrendForPeriod(t *testing.T) {
	daily, err := TrendForPeriod(fixture(), core.PeriodWeek, at(2024, 3, 27))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(daily.Points) != 1 || daily.Points[0].Label != "2024-03-26" {
		t.Fatalf("weekly trend = %+v", daily.Points)
	}

	monthly, err := TrendForPeriod(fixture(), core.PeriodAll, at(2024, 3, 27))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var labels []string
	for _, p := range monthly.Points {
		labels = append(labels, p.Label)
	}
	if want := []string{"2023-11", "2024-01", "2024-03", "2024-04"}; !reflect.DeepEqual(labels, want) {
		t.Fatalf("monthly labels = %v, want %v", labels, want)
	}
}

func TestBudgetOverview(t *testing.T) {
	budgets := core.Budgets{"Food": 100, "Transport": 25, "Fun": 50}
	categories := []string{"Food", "Transport", "Fun", "Bills"}

	lines, err := BudgetOverview(fixture(), categories, budgets, at(2024, 3, 27))
	if err != nil {
		t.Fatalf("BudgetOverview() error = %v", err)
	}
	want := map[string]budget.Status{
		"Food":      budget.StatusNear,    // 92 of 100
		"Transport": budget.StatusNear,    // 20 of 25
		"Fun":       budget.StatusOnTrack, // nothing this month
		"Bills":     budget.StatusNoBudget,
	}
	if len(lines) != len(categories) {
		t.Fatalf("got %d lines", len(lines))
	}
	for i, l := range lines {
		if l.Category != categories[i] {
			t.Fatalf("line %d = %q, want %q", i, l.Category, categories[i])
		}
		if l.Status != want[l.Category] {
			t.Errorf("%s status = %q, want %q", l.Category, l.Status, want[l.Category])
		}
	}
	if lines[0].Spent != 92 || lines[0].Remaining != 8 {
		t.Errorf("Food line = %+v", lines[0])
	}

	one, err := EvaluateCategory(fixture(), "Transport", budgets, at(2024, 3, 27))
	if err != nil || one.Status != budget.StatusNear {
		t.Fatalf("EvaluateCategory() = %+v, %v", one, err)
	}
}
