package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tracker/internal/aggregate"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/api/totals", 200, time.Millisecond)
	m.IncMutation("create")
	m.RecordAnomalies([]aggregate.Anomaly{{Kind: aggregate.AnomalyNonFinite}})
	m.IncEvent("out", "transaction.created", nil)
	m.ObserveSweep(time.Second)
}

func TestCounters(t *testing.T) {
	m := New()
	m.RecordAnomalies([]aggregate.Anomaly{
		{ID: "a", Kind: aggregate.AnomalyNonFinite},
		{ID: "b", Kind: aggregate.AnomalyNonFinite},
	})
	if got := testutil.ToFloat64(m.anomalies.WithLabelValues(string(aggregate.AnomalyNonFinite))); got != 2 {
		t.Errorf("non_finite anomalies = %v, want 2", got)
	}

	m.IncEvent("out", "transaction.created", nil)
	m.IncEvent("out", "transaction.created", errors.New("broker down"))
	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("out", "transaction.created", "error")); got != 1 {
		t.Errorf("failed events = %v, want 1", got)
	}

	m.AddImportedRows(3, 1)
	if got := testutil.ToFloat64(m.importedRows.WithLabelValues("valid")); got != 3 {
		t.Errorf("valid rows = %v, want 3", got)
	}

	m.SetLedgerSize(7)
	if got := testutil.ToFloat64(m.ledgerSize); got != 7 {
		t.Errorf("ledger size = %v, want 7", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.IncMutation("create")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), `tracker_transaction_mutations_total{operation="create"} 1`) {
		t.Fatalf("metrics output missing mutation counter:\n%s", body)
	}
}
