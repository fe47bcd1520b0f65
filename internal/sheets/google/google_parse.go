package google

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"tracker/internal/core"
)

// toRow renders t in column order. Non-finite amounts are written as empty
// cells; the sheet cannot hold NaN.
func toRow(t core.Transaction) []any {
	var amount any = ""
	if core.IsFinite(t.Amount) {
		amount = t.Amount
	}
	return []any{t.Date.String(), amount, t.Category, t.Note, t.ID}
}

// parseRows converts a values matrix back into transactions. The header row
// and rows without an ID are skipped. Unparseable dates load as the zero
// date and unparseable amounts as NaN so that aggregation reports them.
func parseRows(values [][]any) []core.Transaction {
	out := make([]core.Transaction, 0, len(values))
	for i, raw := range values {
		row := toStrings(raw)
		if i == 0 && strings.EqualFold(safeGet(row, 0), "date") {
			continue
		}
		id := safeGet(row, 4)
		if id == "" {
			continue
		}
		date, err := core.ParseDate(safeGet(row, 0))
		if err != nil {
			date = core.Date{}
		}
		out = append(out, core.Transaction{
			ID:       id,
			Date:     date,
			Amount:   parseAmountCell(raw, 1),
			Category: safeGet(row, 2),
			Note:     safeGet(row, 3),
		})
	}
	return out
}

func parseAmountCell(row []any, idx int) float64 {
	if idx >= len(row) {
		return math.NaN()
	}
	switch v := row[idx].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
