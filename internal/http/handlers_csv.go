package http

import (
	"bytes"
	"net/http"

	"tracker/internal/log"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.deps.Transactions.Export(r.Context(), &buf); err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleImport accepts a CSV document as the raw body or as the "file" part
// of a multipart form. ?mode= is merge (default) or replace.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	mode, err := parseImportMode(r)
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	body, closeBody, err := uploadReader(w, r)
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	defer closeBody()

	res, err := s.deps.Transactions.Import(r.Context(), body, mode)
	if err != nil {
		s.writeError(w, r, log.OpImport, err, res.Errors...)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}
