package http

import (
	"time"

	"tracker/internal/aggregate"
	"tracker/internal/core"
	"tracker/internal/format"
	"tracker/internal/query"
	"tracker/internal/services"
)

// JSON cannot carry NaN or infinities, so response bodies go through these
// views. A non-finite amount becomes null.

type moneyDTO struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

type transactionDTO struct {
	ID       string   `json:"id"`
	Date     string   `json:"date"`
	Amount   *float64 `json:"amount"`
	Display  string   `json:"display"`
	Category string   `json:"category"`
	Note     string   `json:"note,omitempty"`
}

type totalsDTO struct {
	Week  moneyDTO `json:"week"`
	Month moneyDTO `json:"month"`
	Year  moneyDTO `json:"year"`
}

type categoryTotalDTO struct {
	Category string   `json:"category"`
	Total    moneyDTO `json:"total"`
	Share    float64  `json:"share"`
}

type budgetDTO struct {
	Category       string   `json:"category"`
	Budget         moneyDTO `json:"budget"`
	Spent          moneyDTO `json:"spent"`
	Remaining      moneyDTO `json:"remaining"`
	RemainingLabel string   `json:"remaining_label"`
	Progress       float64  `json:"progress"`
	Status         string   `json:"status"`
	Label          string   `json:"label"`
	Tone           string   `json:"tone"`
}

type trendDTO struct {
	Bucket aggregate.Bucket       `json:"bucket"`
	Points []aggregate.TrendPoint `json:"points"`
}

type dashboardDTO struct {
	Period       core.Period         `json:"period"`
	Label        string              `json:"label"`
	Transactions []transactionDTO    `json:"transactions"`
	Totals       totalsDTO           `json:"totals"`
	Breakdown    []categoryTotalDTO  `json:"breakdown"`
	Budgets      []budgetDTO         `json:"budgets"`
	Trend        trendDTO            `json:"trend"`
	Anomalies    []aggregate.Anomaly `json:"anomalies,omitempty"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

type presenter struct {
	formatter *format.MoneyFormatter
}

func (p presenter) money(v float64) moneyDTO {
	return moneyDTO{Value: v, Display: p.formatter.Format(v)}
}

func (p presenter) transaction(t core.Transaction) transactionDTO {
	dto := transactionDTO{ID: t.ID, Date: t.Date.String(), Category: t.Category, Note: t.Note}
	if core.IsFinite(t.Amount) {
		amount := t.Amount
		dto.Amount = &amount
		dto.Display = p.formatter.Format(amount)
	}
	return dto
}

func (p presenter) transactions(ts []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(ts))
	for _, t := range ts {
		out = append(out, p.transaction(t))
	}
	return out
}

func (p presenter) totals(t query.Totals) totalsDTO {
	return totalsDTO{Week: p.money(t.Week), Month: p.money(t.Month), Year: p.money(t.Year)}
}

func (p presenter) breakdown(b aggregate.Breakdown) []categoryTotalDTO {
	total := b.Total()
	out := make([]categoryTotalDTO, 0, len(b.Categories))
	for _, c := range b.Categories {
		share := 0.0
		if total > 0 {
			share = c.Total / total
		}
		out = append(out, categoryTotalDTO{Category: c.Category, Total: p.money(c.Total), Share: share})
	}
	return out
}

func (p presenter) budgets(lines []query.BudgetLine) []budgetDTO {
	out := make([]budgetDTO, 0, len(lines))
	for _, l := range lines {
		label, remaining := l.RemainingLabel()
		out = append(out, budgetDTO{
			Category:       l.Category,
			Budget:         p.money(l.Budget),
			Spent:          p.money(l.Spent),
			Remaining:      p.money(remaining),
			RemainingLabel: label,
			Progress:       l.Progress(),
			Status:         string(l.Status),
			Label:          l.Status.Label(),
			Tone:           l.Status.Tone(),
		})
	}
	return out
}

func (p presenter) trend(t aggregate.Trend) trendDTO {
	return trendDTO{Bucket: t.Bucket, Points: t.Points}
}

func (p presenter) dashboard(d services.Dashboard) dashboardDTO {
	return dashboardDTO{
		Period:       d.Period,
		Label:        d.Label,
		Transactions: p.transactions(d.Transactions),
		Totals:       p.totals(d.Totals),
		Breakdown:    p.breakdown(d.Breakdown),
		Budgets:      p.budgets(d.Budgets),
		Trend:        p.trend(d.Trend),
		Anomalies:    d.Anomalies,
		GeneratedAt:  d.GeneratedAt,
	}
}
