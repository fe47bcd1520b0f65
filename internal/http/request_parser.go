package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"tracker/internal/core"
	"tracker/internal/csvio"
	"tracker/internal/services"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 5 << 20
)

// transactionRequest is the body of POST and PUT on transactions. Amount
// accepts a JSON number or a decimal string such as "12,50".
type transactionRequest struct {
	Date     string          `json:"date"`
	Amount   json.RawMessage `json:"amount"`
	Category string          `json:"category"`
	Note     string          `json:"note"`
}

type budgetRequest struct {
	Amount json.RawMessage `json:"amount"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

// decodeJSON reads a single JSON object from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must contain a single JSON object", errBadRequest)
	}
	return nil
}

func (req transactionRequest) input() (services.TransactionInput, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return services.TransactionInput{}, err
	}
	amount, err := parseAmountField(req.Amount)
	if err != nil {
		return services.TransactionInput{}, err
	}
	return services.TransactionInput{
		Date:     date,
		Amount:   amount,
		Category: sanitizeInput(req.Category),
		Note:     sanitizeInput(req.Note),
	}, nil
}

// parseAmountField parses a positive amount given as a JSON number or
// string.
func parseAmountField(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: amount is required", core.ErrInvalidAmount)
	}
	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
		}
		text = n.String()
	}
	return core.ParseAmount(text)
}

// parseBudgetField parses a non-negative budget. Zero clears the budget.
func parseBudgetField(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: amount is required", core.ErrInvalidBudget)
	}
	var n json.Number
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %v", core.ErrInvalidBudget, err)
		}
		n = json.Number(text)
	} else if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidBudget, err)
	}
	v, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidBudget, n.String())
	}
	return v, nil
}

// parsePeriod reads ?period=, falling back to def when it is absent.
func parsePeriod(r *http.Request, def core.Period) (core.Period, error) {
	v := r.URL.Query().Get("period")
	if v == "" {
		return def, nil
	}
	return core.ParsePeriod(v)
}

func parseImportMode(r *http.Request) (csvio.Mode, error) {
	mode, err := csvio.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return mode, nil
}

// uploadReader returns the CSV document of an import request: the "file"
// part of a multipart form, or the raw body otherwise.
func uploadReader(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return r.Body, func() {}, nil
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, fmt.Errorf("%w: missing file field", errBadRequest)
		}
		return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return file, func() { file.Close() }, nil
}
