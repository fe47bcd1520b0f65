// Command tracker-report prints the dashboard of the configured ledger as
// text tables and can render the trend and breakdown charts as PNG files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"tracker/internal/backend"
	"tracker/internal/cli"
	"tracker/internal/config"
	"tracker/internal/core"
	"tracker/internal/csvio"
	"tracker/internal/format"
	"tracker/internal/log"
	"tracker/internal/query"
	"tracker/internal/services"
	"tracker/internal/report"
	gsheet "tracker/internal/sheets/google"
)

type options struct {
	period       string
	date         string
	csvPath      string
	fromSheets   bool
	list         bool
	trendPNG     string
	breakdownPNG string
}

func main() {
	cli.LoadEnvFile()
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "tracker-report:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("tracker-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.period, "period", cfg.DefaultPeriod, "period for the breakdown, trend and listing: week, month, year or all")
	fs.StringVar(&opts.date, "date", "", "report as of this day (YYYY-MM-DD), default today")
	fs.StringVar(&opts.csvPath, "csv", "", "read transactions from a CSV export instead of the store")
	fs.BoolVar(&opts.fromSheets, "sheets", false, "read transactions from the Google Sheets mirror")
	fs.BoolVar(&opts.list, "list", false, "also list the transactions of the period")
	fs.StringVar(&opts.trendPNG, "trend-png", "", "write the spending trend chart to this PNG file")
	fs.StringVar(&opts.breakdownPNG, "breakdown-png", "", "write the category breakdown chart to this PNG file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentReport,
		Output:    stderr,
	})

	period, err := core.ParsePeriod(opts.period)
	if err != nil {
		return err
	}
	now := time.Now()
	if opts.date != "" {
		d, err := core.ParseDate(opts.date)
		if err != nil {
			return err
		}
		now = d.Time
	}
	money, err := format.NewMoneyFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		return err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	bcfg.AMQPURL = ""
	be, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer be.Cleanup()

	ts, err := loadTransactions(ctx, cfg, opts, be.Store.ListTransactions, logger)
	if err != nil {
		return err
	}
	cats := services.NewCategoryService(be.Store, be.Store, be.Store, logger)
	categories, err := cats.List(ctx)
	if err != nil {
		return err
	}
	budgets, err := cats.Budgets(ctx)
	if err != nil {
		return err
	}

	totals, err := query.StandingTotals(ts, now)
	if err != nil {
		return err
	}
	breakdown, err := query.BreakdownForPeriod(ts, period, now)
	if err != nil {
		return err
	}
	lines, err := query.BudgetOverview(ts, categories, budgets, now)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Totals as of %s\n", core.DateOf(now))
	report.WriteTotals(stdout, totals, money)
	fmt.Fprintf(stdout, "\nSpending by category (%s)\n", period.Label())
	report.WriteBreakdown(stdout, breakdown, money)
	fmt.Fprintln(stdout, "\nMonthly budgets")
	report.WriteBudgets(stdout, lines, money)

	if opts.list {
		listed, err := query.ListForPeriod(ts, period, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\nTransactions (%s)\n", period.Label())
		report.WriteTransactions(stdout, listed, money)
	}

	for _, a := range totals.Anomalies {
		logger.Warn("Transaction ignored in totals", "anomaly", a.String())
	}

	if opts.trendPNG != "" {
		trend, err := query.TrendForPeriod(ts, period, now)
		if err != nil {
			return err
		}
		if err := writeChart(opts.trendPNG, func(w io.Writer) error { return report.RenderTrendPNG(w, trend) }); err != nil {
			return fmt.Errorf("trend chart: %w", err)
		}
		logger.Info("Trend chart written", "path", opts.trendPNG, log.FieldCount, len(trend.Points))
	}
	if opts.breakdownPNG != "" {
		if err := writeChart(opts.breakdownPNG, func(w io.Writer) error { return report.RenderBreakdownPNG(w, breakdown) }); err != nil {
			return fmt.Errorf("breakdown chart: %w", err)
		}
		logger.Info("Breakdown chart written", "path", opts.breakdownPNG, log.FieldCount, len(breakdown.Categories))
	}
	return nil
}

func loadTransactions(ctx context.Context, cfg *config.Config, opts options, fromStore func(context.Context) ([]core.Transaction, error), logger *log.Logger) ([]core.Transaction, error) {
	switch {
	case opts.csvPath != "" && opts.fromSheets:
		return nil, errors.New("-csv and -sheets are mutually exclusive")
	case opts.csvPath != "":
		f, err := os.Open(opts.csvPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		res, err := csvio.Read(f)
		for _, rowErr := range res.Errors {
			logger.Warn("Skipping CSV row", log.FieldError, rowErr.Err, "row", rowErr.Row)
		}
		return res.Transactions, err
	case opts.fromSheets:
		if !cfg.SheetsEnabled() {
			return nil, errors.New("-sheets requires GOOGLE_SPREADSHEET_ID")
		}
		client, err := gsheet.NewFromConfig(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return client.ReadTransactions(ctx)
	default:
		return fromStore(ctx)
	}
}

// writeChart renders into path, removing the file when rendering fails.
func writeChart(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
