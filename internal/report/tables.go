// Package report renders read models for the console and as PNG charts.
package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"tracker/internal/aggregate"
	"tracker/internal/budget"
	"tracker/internal/core"
	"tracker/internal/format"
	"tracker/internal/query"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	return table
}

// WriteTotals prints the standing week, month and year totals.
func WriteTotals(w io.Writer, t query.Totals, money *format.MoneyFormatter) {
	table := newTable(w, "Period", "Spent")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Append([]string{core.PeriodWeek.Label(), money.Format(t.Week)})
	table.Append([]string{core.PeriodMonth.Label(), money.Format(t.Month)})
	table.Append([]string{core.PeriodYear.Label(), money.Format(t.Year)})
	table.Render()
}

// WriteBreakdown prints categories by descending total with their share.
func WriteBreakdown(w io.Writer, b aggregate.Breakdown, money *format.MoneyFormatter) {
	table := newTable(w, "Category", "Spent", "Share")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	total := b.Total()
	for _, c := range b.Categories {
		share := 0.0
		if total > 0 {
			share = c.Total / total * 100
		}
		table.Append([]string{c.Category, money.Format(c.Total), fmt.Sprintf("%.1f%%", share)})
	}
	table.SetFooter([]string{"Total", money.Format(total), ""})
	table.Render()
}

// WriteBudgets prints each category's monthly budget status.
func WriteBudgets(w io.Writer, lines []query.BudgetLine, money *format.MoneyFormatter) {
	table := newTable(w, "Category", "Budget", "Spent", "Progress", "Status", "Remaining")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
	})
	for _, l := range lines {
		label, amount := l.RemainingLabel()
		limit, progress, remaining := "-", "-", "-"
		if l.Status != budget.StatusNoBudget {
			limit = money.Format(l.Budget)
			progress = fmt.Sprintf("%.0f%%", l.Ratio*100)
			remaining = label + " " + money.Format(amount)
		}
		table.Append([]string{l.Category, limit, money.Format(l.Spent), progress, l.Status.Label(), remaining})
	}
	table.Render()
}

// WriteTransactions prints ts in the given order. Non-finite amounts show
// as "invalid".
func WriteTransactions(w io.Writer, ts []core.Transaction, money *format.MoneyFormatter) {
	table := newTable(w, "Date", "Category", "Amount", "Note")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	for _, t := range ts {
		amount := "invalid"
		if core.IsFinite(t.Amount) {
			amount = money.Format(t.Amount)
		}
		table.Append([]string{t.Date.String(), t.Category, amount, t.Note})
	}
	table.Render()
}
