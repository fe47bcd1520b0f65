package http

import (
	"net/http"

	"tracker/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Categories.List(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	budgets, err := s.deps.Categories.Budgets(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"categories": cats,
		"budgets":    budgets,
	})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	name := sanitizeInput(req.Name)
	if err := s.deps.Categories.Add(r.Context(), name); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, map[string]string{"name": name})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Categories.Remove(r.Context(), r.PathValue("name")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
