package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"tracker/internal/log"
	"tracker/internal/report"
	"tracker/internal/services"
)

// dashboard resolves ?period= and returns the cached dashboard for it.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) (services.Dashboard, bool) {
	period, err := parsePeriod(r, s.deps.DefaultPeriod)
	if err != nil {
		s.writeError(w, r, log.OpAggregate, err)
		return services.Dashboard{}, false
	}
	d, err := s.deps.Dashboards.Dashboard(r.Context(), period)
	if err != nil {
		s.writeError(w, r, log.OpAggregate, err)
		return services.Dashboard{}, false
	}
	return d, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		s.writeJSON(w, r, http.StatusOK, s.present.dashboard(d))
	}
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		s.writeJSON(w, r, http.StatusOK, s.present.totals(d.Totals))
	}
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		s.writeJSON(w, r, http.StatusOK, map[string]any{
			"period":     d.Period,
			"total":      s.present.money(d.Breakdown.Total()),
			"categories": s.present.breakdown(d.Breakdown),
		})
	}
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		s.writeJSON(w, r, http.StatusOK, s.present.trend(d.Trend))
	}
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Dashboards.Dashboard(r.Context(), s.deps.DefaultPeriod)
	if err != nil {
		s.writeError(w, r, log.OpEvaluate, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.present.budgets(d.Budgets))
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	amount, err := parseBudgetField(req.Amount)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	category := r.PathValue("category")
	if err := s.deps.Categories.SetBudget(r.Context(), category, amount); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"category": category,
		"budget":   s.present.money(amount),
	})
}

func (s *Server) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		s.writeChart(w, r, func(out io.Writer) error { return report.RenderTrendPNG(out, d.Trend) })
	}
}

func (s *Server) handleBreakdownChart(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		s.writeChart(w, r, func(out io.Writer) error { return report.RenderBreakdownPNG(out, d.Breakdown) })
	}
}

// writeChart buffers the PNG before any header is written.
func (s *Server) writeChart(w http.ResponseWriter, r *http.Request, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		if errors.Is(err, report.ErrNotEnoughData) {
			_ = UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		s.writeError(w, r, log.OpRender, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
