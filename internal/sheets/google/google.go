package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tracker/internal/config"
	"tracker/internal/core"
	"tracker/internal/log"
	ports "tracker/internal/sheets"
)

// Columns of the mirror sheet, A through E.
var header = []any{"Date", "Amount", "Category", "Note", "ID"}

const lastColumn = "E"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// Appends are read-then-write; serialize them within the process.
	mu sync.Mutex
}

var (
	_ ports.TransactionExporter = (*Client)(nil)
	_ ports.TransactionReader   = (*Client)(nil)
)

// New creates a client for sheetName in the given spreadsheet. opts are
// passed to the Sheets service unchanged.
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// NewFromConfig authenticates with the configured service account.
// Inline JSON takes precedence over the credentials file.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Client, error) {
	credentials, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Creating Google Sheets client",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName,
		"credentials_size", len(credentials))
	return New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func loadCredentials(cfg *config.Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.GoogleServiceAccountJSON) != "":
		return []byte(cfg.GoogleServiceAccountJSON), nil
	case cfg.GoogleServiceAccountFile != "":
		b, err := os.ReadFile(cfg.GoogleServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func (c *Client) Append(ctx context.Context, t core.Transaction) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(ctx, t)
}

func (c *Client) appendLocked(ctx context.Context, t core.Transaction) (string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.sheetName, err)
	}

	rows := [][]any{toRow(t)}
	nextRow := len(resp.Values) + 1
	first := nextRow
	if len(resp.Values) == 0 {
		rows = [][]any{header, toRow(t)}
		first, nextRow = 1, 2
	}
	return c.writeRows(ctx, first, nextRow, rows)
}

func (c *Client) Upsert(ctx context.Context, t core.Transaction) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.findRow(ctx, t.ID)
	if err != nil {
		return "", err
	}
	if row == 0 {
		return c.appendLocked(ctx, t)
	}
	return c.writeRows(ctx, row, row, [][]any{toRow(t)})
}

func (c *Client) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.findRow(ctx, id)
	if err != nil || row == 0 {
		return err
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) Replace(ctx context.Context, ts []core.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", rng, err)
	}
	rows := make([][]any, 0, len(ts)+1)
	rows = append(rows, header)
	for _, t := range ts {
		rows = append(rows, toRow(t))
	}
	_, err := c.writeRows(ctx, 1, len(rows), rows)
	return err
}

func (c *Client) ReadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values), nil
}

// writeRows overwrites rows first..last and returns the written range.
func (c *Client) writeRows(ctx context.Context, first, last int, rows [][]any) (string, error) {
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, first, lastColumn, last)
	vr := &gsheet.ValueRange{Values: rows}
	// RAW keeps dates as text instead of spreadsheet serials.
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return rng, nil
}

// findRow returns the 1-based row whose ID column equals id, or 0.
func (c *Client) findRow(ctx context.Context, id string) (int, error) {
	rng := fmt.Sprintf("%s!%s:%s", c.sheetName, lastColumn, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}
