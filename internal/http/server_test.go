package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tracker/internal/cache"
	"tracker/internal/core"
	"tracker/internal/format"
	"tracker/internal/log"
	"tracker/internal/metrics"
	"tracker/internal/services"
	"tracker/internal/store/memory"
)

var testNow = time.Date(2024, 3, 27, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	store *memory.Store
	m     *metrics.Metrics
}

func newTestEnv(t *testing.T, seed ...core.Transaction) *testEnv {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	st := memory.New(nil)
	if len(seed) > 0 {
		if err := st.AddTransactions(context.Background(), seed...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	money, err := format.NewMoneyFormatter("en-US", "USD")
	if err != nil {
		t.Fatalf("NewMoneyFormatter() error = %v", err)
	}
	m := metrics.New()

	txs := services.NewTransactionService(st, nil, m, logger)
	cats := services.NewCategoryService(st, st, st, logger)
	dash := services.NewDashboardService(st, cats, core.FixedClock{At: testNow},
		cache.NewLRUCache[services.Dashboard](16, time.Minute), m, logger)
	txs.OnChange(dash.Invalidate)
	cats.OnChange(dash.Invalidate)

	srv := NewServer(":0", Deps{
		Transactions:  txs,
		Categories:    cats,
		Dashboards:    dash,
		Money:         money,
		Metrics:       m,
		Logger:        logger,
		DefaultPeriod: core.PeriodMonth,
		RateLimit:     1000,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: st, m: m}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "203.0.113.7:5555"
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func tx(id, date string, amount float64, category string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{ID: id, Date: d, Amount: amount, Category: category}
}

func TestHealthAndReady(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := e.do(t, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
	}

	e.srv.deps.Ready = func(context.Context) error { return errors.New("database is locked") }
	rr := e.do(t, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "database is locked") {
		t.Fatalf("readyz = %d %s", rr.Code, rr.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/api/totals", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("X-Request-ID = %q", rr.Header().Get("X-Request-ID"))
	}
}

func TestTransactionLifecycle(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/api/transactions", `{"date":"2024-03-25","amount":"12,50","category":"Food","note":"lunch"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rr.Code, rr.Body.String())
	}
	created := decode[transactionDTO](t, rr)
	if created.Amount == nil || *created.Amount != 12.5 || created.Display != "$12.50" {
		t.Fatalf("created = %+v", created)
	}
	if rr.Header().Get("Location") != "/api/transactions/"+created.ID {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}

	rr = e.do(t, http.MethodPost, "/api/transactions", `{"date":"2024-01-05","amount":40,"category":"Fun"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rr.Code, rr.Body.String())
	}

	list := decode[struct {
		Count        int              `json:"count"`
		Transactions []transactionDTO `json:"transactions"`
	}](t, e.do(t, http.MethodGet, "/api/transactions?period=month", ""))
	if list.Count != 1 || list.Transactions[0].ID != created.ID {
		t.Fatalf("month list = %+v", list)
	}
	all := decode[struct {
		Count int `json:"count"`
	}](t, e.do(t, http.MethodGet, "/api/transactions?period=all", ""))
	if all.Count != 2 {
		t.Fatalf("all count = %d", all.Count)
	}

	rr = e.do(t, http.MethodPut, "/api/transactions/"+created.ID, `{"date":"2024-03-26","amount":15,"category":"Food"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update = %d %s", rr.Code, rr.Body.String())
	}
	if got := decode[transactionDTO](t, rr); got.ID != created.ID || *got.Amount != 15 || got.Date != "2024-03-26" {
		t.Fatalf("updated = %+v", got)
	}

	totals := decode[totalsDTO](t, e.do(t, http.MethodGet, "/api/totals", ""))
	if totals.Week.Value != 15 || totals.Month.Value != 15 || totals.Year.Value != 55 {
		t.Fatalf("totals = %+v", totals)
	}

	if rr := e.do(t, http.MethodDelete, "/api/transactions/"+created.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rr.Code)
	}
	if rr := e.do(t, http.MethodGet, "/api/transactions/"+created.ID, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rr.Code)
	}

	rr = e.do(t, http.MethodDelete, "/api/transactions", "")
	if got := decode[map[string]int](t, rr); got["removed"] != 1 {
		t.Fatalf("clear = %v", got)
	}
}

func TestRequestErrors(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed json", http.MethodPost, "/api/transactions", `{"date":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/transactions", `{"date":"2024-03-01","amount":1,"category":"Food","x":1}`, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/transactions", `{"date":"2024-02-30","amount":1,"category":"Food"}`, http.StatusUnprocessableEntity},
		{"negative amount", http.MethodPost, "/api/transactions", `{"date":"2024-03-01","amount":-1,"category":"Food"}`, http.StatusUnprocessableEntity},
		{"missing amount", http.MethodPost, "/api/transactions", `{"date":"2024-03-01","category":"Food"}`, http.StatusUnprocessableEntity},
		{"blank category", http.MethodPost, "/api/transactions", `{"date":"2024-03-01","amount":1,"category":"  "}`, http.StatusUnprocessableEntity},
		{"unknown period", http.MethodGet, "/api/breakdown?period=decade", "", http.StatusBadRequest},
		{"unknown transaction", http.MethodPut, "/api/transactions/nope", `{"date":"2024-03-01","amount":1,"category":"Food"}`, http.StatusNotFound},
		{"bad import mode", http.MethodPost, "/api/import?mode=append", "date,amount,category,note\n", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(t, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.want, rr.Body.String())
			}
			if body := decode[errorBody](t, rr); body.Error == "" {
				t.Errorf("missing error message")
			}
		})
	}
}

func TestDashboardReportsNonFiniteAmounts(t *testing.T) {
	e := newTestEnv(t,
		tx("1", "2024-03-25", 10, "Food"),
		tx("2", "2024-03-26", math.NaN(), "Food"),
	)
	rr := e.do(t, http.MethodGet, "/api/dashboard?period=week", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
	}
	d := decode[dashboardDTO](t, rr)
	if d.Totals.Week.Value != 10 || len(d.Transactions) != 2 {
		t.Fatalf("dashboard = %+v", d)
	}
	if len(d.Anomalies) != 1 || d.Anomalies[0].ID != "2" {
		t.Fatalf("anomalies = %+v", d.Anomalies)
	}
	for _, tr := range d.Transactions {
		if tr.ID == "2" && tr.Amount != nil {
			t.Errorf("non-finite amount should be null, got %v", *tr.Amount)
		}
	}
}

func TestMalformedStoredDateIsServerError(t *testing.T) {
	bad := core.Transaction{ID: "bad", Date: core.Date{Time: time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)}, Amount: 5, Category: "Food"}
	e := newTestEnv(t, bad)
	rr := e.do(t, http.MethodGet, "/api/breakdown?period=month", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decode[errorBody](t, rr); body.Error != "internal error" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestCategoriesAndBudgets(t *testing.T) {
	e := newTestEnv(t, tx("1", "2024-03-10", 92, "Food"))

	if rr := e.do(t, http.MethodPost, "/api/categories", `{"name":"Travel"}`); rr.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rr.Code, rr.Body.String())
	}
	if rr := e.do(t, http.MethodPost, "/api/categories", `{"name":"travel"}`); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate = %d", rr.Code)
	}
	if rr := e.do(t, http.MethodDelete, "/api/categories/Food", ""); rr.Code != http.StatusConflict {
		t.Fatalf("delete in use = %d", rr.Code)
	}
	if rr := e.do(t, http.MethodDelete, "/api/categories/Travel", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rr.Code)
	}
	if rr := e.do(t, http.MethodPut, "/api/budgets/Food", `{"amount":-5}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative budget = %d", rr.Code)
	}
	if rr := e.do(t, http.MethodPut, "/api/budgets/Nope", `{"amount":5}`); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown category = %d", rr.Code)
	}
	if rr := e.do(t, http.MethodPut, "/api/budgets/Food", `{"amount":"100"}`); rr.Code != http.StatusOK {
		t.Fatalf("set budget = %d %s", rr.Code, rr.Body.String())
	}

	lines := decode[[]budgetDTO](t, e.do(t, http.MethodGet, "/api/budgets", ""))
	var food *budgetDTO
	for i := range lines {
		if lines[i].Category == "Food" {
			food = &lines[i]
		}
	}
	if food == nil || food.Status != "near" || food.Remaining.Value != 8 || food.Tone != "warn" {
		t.Fatalf("food budget = %+v", food)
	}

	cats := decode[struct {
		Categories []string           `json:"categories"`
		Budgets    map[string]float64 `json:"budgets"`
	}](t, e.do(t, http.MethodGet, "/api/categories", ""))
	if cats.Budgets["Food"] != 100 || len(cats.Categories) != len(core.DefaultCategories()) {
		t.Fatalf("categories = %+v", cats)
	}
}

func TestCSVExportImport(t *testing.T) {
	e := newTestEnv(t, tx("1", "2024-03-10", 12.5, "Food"))

	rr := e.do(t, http.MethodGet, "/api/export.csv", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "text/csv; charset=utf-8" {
		t.Fatalf("export = %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if want := "date,amount,category,note\n2024-03-10,12.50,Food,\n"; rr.Body.String() != want {
		t.Fatalf("export body = %q", rr.Body.String())
	}

	doc := "Date,Amount,Category,Note\n2024-03-11,5,Fun,film\n2024-03-12,oops,Fun,\n"
	rr = e.do(t, http.MethodPost, "/api/import", doc)
	if rr.Code != http.StatusOK {
		t.Fatalf("import = %d %s", rr.Code, rr.Body.String())
	}
	res := decode[services.ImportResult](t, rr)
	if res.Imported != 1 || len(res.Errors) != 1 || res.Errors[0] != "Row 3 has invalid data." {
		t.Fatalf("import result = %+v", res)
	}

	rr = e.do(t, http.MethodPost, "/api/import?mode=replace", "date,amount,category,note\nbad,1,Fun,\n")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid import = %d", rr.Code)
	}
	if body := decode[errorBody](t, rr); len(body.Details) != 1 {
		t.Fatalf("details = %+v", body)
	}
	all, _ := e.store.ListTransactions(context.Background())
	if len(all) != 2 {
		t.Fatalf("failed replace must keep the ledger, have %d", len(all))
	}
}

func TestImportMultipart(t *testing.T) {
	e := newTestEnv(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "ledger.csv")
	_, _ = part.Write([]byte("date,amount,category,note\n2024-03-11,5,Fun,\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import?mode=replace", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("import = %d %s", rr.Code, rr.Body.String())
	}
	if res := decode[services.ImportResult](t, rr); res.Imported != 1 {
		t.Fatalf("import result = %+v", res)
	}
}

func TestCharts(t *testing.T) {
	e := newTestEnv(t,
		tx("1", "2024-03-25", 10, "Food"),
		tx("2", "2024-03-26", 20, "Fun"),
	)
	for _, path := range []string{"/api/charts/trend.png?period=week", "/api/charts/breakdown.png?period=week"} {
		rr := e.do(t, http.MethodGet, path, "")
		if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
			t.Fatalf("%s = %d %s", path, rr.Code, rr.Body.String())
		}
		if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
			t.Fatalf("%s is not a PNG", path)
		}
	}

	empty := newTestEnv(t)
	if rr := empty.do(t, http.MethodGet, "/api/charts/trend.png", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty trend = %d", rr.Code)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	e := newTestEnv(t)
	e.srv.rateLimiter.limit = 2

	for i := 0; i < 2; i++ {
		if rr := e.do(t, http.MethodPost, "/api/categories", `{"name":"C`+string(rune('a'+i))+`"}`); rr.Code != http.StatusCreated {
			t.Fatalf("request %d = %d", i, rr.Code)
		}
	}
	rr := e.do(t, http.MethodPost, "/api/categories", `{"name":"Cz"}`)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("third request = %d", rr.Code)
	}
	if rr := e.do(t, http.MethodGet, "/api/categories", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodGet, "/api/totals", "")
	rr := e.do(t, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `tracker_http_requests_total{method="GET",route="GET /api/totals",status="200"} 1`) {
		t.Fatalf("metrics output missing request counter:\n%s", rr.Body.String())
	}
}
