// Package metrics exposes the tracker's Prometheus collectors. Every method
// is safe on a nil *Metrics so that callers may run without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tracker/internal/aggregate"
)

type Metrics struct {
	// Registry owns every collector below; /metrics serves it.
	Registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	mutations      *prometheus.CounterVec
	anomalies      *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	budgetAlerts   *prometheus.CounterVec
	eventsTotal    *prometheus.CounterVec
	sheetsExports  *prometheus.CounterVec
	importedRows   *prometheus.CounterVec
	ledgerSize     prometheus.Gauge
	sweepDurations prometheus.Histogram
}

// New registers all collectors in a private registry, so repeated calls
// (tests, several binaries) never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracker_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_transaction_mutations_total",
			Help: "Ledger mutations by operation.",
		}, []string{"operation"}),
		anomalies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_amount_anomalies_total",
			Help: "Transactions whose amount was excluded from a sum.",
		}, []string{"kind"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_cache_lookups_total",
			Help: "Dashboard cache lookups by result.",
		}, []string{"cache", "result"}),
		budgetAlerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_budget_alerts_total",
			Help: "Budget evaluations that reached near or over.",
		}, []string{"status"}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_events_total",
			Help: "Transaction events by direction, type and result.",
		}, []string{"direction", "type", "result"}),
		sheetsExports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_sheets_exports_total",
			Help: "Google Sheets writes by result.",
		}, []string{"result"}),
		importedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_import_rows_total",
			Help: "CSV rows processed by result.",
		}, []string{"result"}),
		ledgerSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_ledger_transactions",
			Help: "Number of transactions in the ledger after the last mutation.",
		}),
		sweepDurations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_budget_sweep_duration_seconds",
			Help:    "Duration of scheduled budget sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) IncMutation(operation string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation).Inc()
}

func (m *Metrics) SetLedgerSize(n int) {
	if m == nil {
		return
	}
	m.ledgerSize.Set(float64(n))
}

func (m *Metrics) RecordAnomalies(anomalies []aggregate.Anomaly) {
	if m == nil {
		return
	}
	for _, a := range anomalies {
		m.anomalies.WithLabelValues(string(a.Kind)).Inc()
	}
}

func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "miss").Inc()
}

func (m *Metrics) IncBudgetAlert(status string) {
	if m == nil {
		return
	}
	m.budgetAlerts.WithLabelValues(status).Inc()
}

// IncEvent counts a published ("out") or consumed ("in") event.
func (m *Metrics) IncEvent(direction, eventType string, err error) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(direction, eventType, result(err)).Inc()
}

func (m *Metrics) IncSheetsExport(err error) {
	if m == nil {
		return
	}
	m.sheetsExports.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) AddImportedRows(valid, invalid int) {
	if m == nil {
		return
	}
	m.importedRows.WithLabelValues("valid").Add(float64(valid))
	m.importedRows.WithLabelValues("invalid").Add(float64(invalid))
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDurations.Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
