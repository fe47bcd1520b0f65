package http

import (
	"net/http"

	"tracker/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, s.deps.DefaultPeriod)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	d, err := s.deps.Dashboards.Dashboard(r.Context(), period)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"period":       d.Period,
		"label":        d.Label,
		"count":        len(d.Transactions),
		"transactions": s.present.transactions(d.Transactions),
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Transactions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.present.transaction(t))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	t, err := s.deps.Transactions.Add(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTransactionSaved(r.Context(), log.OpCreate, t.ID, t.Date.String(), t.Amount, t.Category)
	w.Header().Set("Location", "/api/transactions/"+t.ID)
	s.writeJSON(w, r, http.StatusCreated, s.present.transaction(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	t, err := s.deps.Transactions.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTransactionSaved(r.Context(), log.OpUpdate, t.ID, t.Date.String(), t.Amount, t.Category)
	s.writeJSON(w, r, http.StatusOK, s.present.transaction(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Transactions.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Transactions.Clear(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpClear, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]int{"removed": n})
}
