package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"tracker/internal/aggregate"
	"tracker/internal/cache"
	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/metrics"
	"tracker/internal/query"
	"tracker/internal/store"
)

const dashboardCache = "dashboard"

// Dashboard is every read model of one period, computed from a single
// snapshot of the ledger. Cached values are shared: treat them as read-only.
type Dashboard struct {
	Period       core.Period         `json:"period"`
	Label        string              `json:"label"`
	Transactions []core.Transaction  `json:"transactions"`
	Totals       query.Totals        `json:"totals"`
	Breakdown    aggregate.Breakdown `json:"breakdown"`
	Budgets      []query.BudgetLine  `json:"budgets"`
	Trend        aggregate.Trend     `json:"trend"`
	Anomalies    []aggregate.Anomaly `json:"anomalies,omitempty"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// DashboardService computes dashboards on demand. Results are cached per
// period and calendar day, and concurrent misses for the same key share
// one computation.
type DashboardService struct {
	txs     store.TransactionRepository
	cats    *CategoryService
	clock   core.Clock
	cache   *cache.LRUCache[Dashboard]
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *log.Logger
}

func NewDashboardService(txs store.TransactionRepository, cats *CategoryService, clock core.Clock, c *cache.LRUCache[Dashboard], m *metrics.Metrics, logger *log.Logger) *DashboardService {
	return &DashboardService{
		txs:     txs,
		cats:    cats,
		clock:   clock,
		cache:   c,
		metrics: m,
		logger:  logger.WithComponent(log.ComponentDashboard),
	}
}

// Invalidate drops every cached dashboard. Register it with the services'
// OnChange hooks.
func (s *DashboardService) Invalidate() {
	s.cache.Purge()
}

func (s *DashboardService) Dashboard(ctx context.Context, period core.Period) (Dashboard, error) {
	if !period.IsValid() {
		return Dashboard{}, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, period)
	}
	now := s.clock.Now()
	key := string(period) + ":" + core.DateOf(now).String()

	if d, ok := s.cache.Get(key); ok {
		s.metrics.CacheHit(dashboardCache)
		return d, nil
	}
	s.metrics.CacheMiss(dashboardCache)

	v, err, _ := s.group.Do(key, func() (any, error) {
		d, err := s.build(ctx, period, now)
		if err != nil {
			return Dashboard{}, err
		}
		s.cache.Set(key, d)
		return d, nil
	})
	if err != nil {
		return Dashboard{}, err
	}
	return v.(Dashboard), nil
}

func (s *DashboardService) build(ctx context.Context, period core.Period, now time.Time) (Dashboard, error) {
	ts, err := s.txs.ListTransactions(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list transactions: %w", err)
	}
	cats, err := s.cats.List(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	budgets, err := s.cats.Budgets(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	list, err := query.ListForPeriod(ts, period, now)
	if err != nil {
		return Dashboard{}, s.aggregationFailed(ctx, period, err)
	}
	totals, err := query.StandingTotals(ts, now)
	if err != nil {
		return Dashboard{}, s.aggregationFailed(ctx, period, err)
	}
	breakdown, err := query.BreakdownForPeriod(ts, period, now)
	if err != nil {
		return Dashboard{}, s.aggregationFailed(ctx, period, err)
	}
	lines, err := query.BudgetOverview(ts, cats, budgets, now)
	if err != nil {
		return Dashboard{}, s.aggregationFailed(ctx, period, err)
	}
	trend, err := query.TrendForPeriod(ts, period, now)
	if err != nil {
		return Dashboard{}, s.aggregationFailed(ctx, period, err)
	}

	anomalies := aggregate.MergeAnomalies(totals.Anomalies, breakdown.Anomalies, trend.Anomalies)
	s.metrics.RecordAnomalies(anomalies)
	for _, a := range anomalies {
		s.logger.WarnContext(ctx, "Amount excluded from totals",
			log.FieldTransactionID, a.ID,
			log.FieldCategory, a.Category,
			log.FieldDate, a.Date.String(),
			"kind", string(a.Kind))
	}

	return Dashboard{
		Period:       period,
		Label:        period.Label(),
		Transactions: list,
		Totals:       totals,
		Breakdown:    breakdown,
		Budgets:      lines,
		Trend:        trend,
		Anomalies:    anomalies,
		GeneratedAt:  now,
	}, nil
}

func (s *DashboardService) aggregationFailed(ctx context.Context, period core.Period, err error) error {
	s.logger.ErrorContext(ctx, "Aggregation failed",
		log.FieldOperation, log.OpAggregate,
		log.FieldPeriod, string(period),
		log.FieldError, err)
	return err
}
