package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tracker/internal/core"
	"tracker/internal/csvio"
	"tracker/internal/log"
	"tracker/internal/services"
	"tracker/internal/store"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

// statusFor maps a service error to an HTTP status. Malformed stored dates
// are server-side data errors, not client mistakes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrMalformedDate):
		return http.StatusInternalServerError
	case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrCategoryExists), errors.Is(err, services.ErrCategoryInUse):
		return http.StatusConflict
	case errors.Is(err, errBadRequest), errors.Is(err, core.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrNoteTooLong),
		errors.Is(err, core.ErrInvalidBudget),
		errors.Is(err, core.ErrEmptyID),
		errors.Is(err, csvio.ErrEmpty),
		errors.Is(err, csvio.ErrMissingHeaders),
		errors.Is(err, csvio.ErrNoValidRows):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server errors and hides their text from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error, details ...string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
			"Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithRequestID(requestIDFrom(r.Context())))
		_ = InternalServerError().Write(w)
		return
	}
	_ = ErrorResponse(status, err.Error(), details...).Write(w)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := NewJSONResponse().Status(status).Body(v).Write(w); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to write response", "error", err, log.FieldPath, r.URL.Path)
	}
}

// sanitizeInput trims s and strips control characters except tab, newline
// and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
