package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/services"
	"expensetracker/internal/store/memory"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, checks map[string]ReadinessCheck) *Server {
	t.Helper()
	repo := memory.New(nil, nil)
	hub := services.NewSnapshotHub(repo)
	clock := func() time.Time { return testNow }

	srv, err := NewServer(":0", Options{
		Transactions:       services.NewTransactionService(repo, nil, hub),
		Insights:           services.NewInsightService(hub, services.WithClock(clock)),
		Categories:         services.NewCategoryService(repo),
		Checks:             checks,
		RateLimitPerMinute: 100,
		Clock:              clock,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		if strings.HasPrefix(body, "{") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	req.Header.Set(HeaderUserID, "u1")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
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

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
	})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestReadyReportsFailedCheck(t *testing.T) {
	srv := newTestServer(t, map[string]ReadinessCheck{
		"amqp": func(context.Context) error { return errors.New("connection refused") },
	})
	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	body := decode[map[string]any](t, rr)
	if body["status"] != "not_ready" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestAPIRequiresUser(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateTransactionValidationAndSuccess(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"invalid amount", "title=x&amount=abc&type=expense&category=Food&date=2024-01-10", 422},
		{"unknown type", "title=x&amount=1&type=gift&category=Food&date=2024-01-10", 422},
		{"bad date", "title=x&amount=1&type=expense&category=Food&date=10/01/2024", 422},
		{"missing category", "title=x&amount=1&type=expense&date=2024-01-10", 422},
		{"malformed json", `{"title":`, 400},
		{"form", "title=lunch&amount=12,50&type=expense&category=Food&date=2024-01-10", 201},
		{"json", `{"title":"pay","amount":2500,"type":"Income","category":"Salary","date":"2024-01-12"}`, 201},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rr.Code, rr.Body.String())
			}
		})
	}

	list := decode[transactionListJSON](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	if list.Count != 2 {
		t.Fatalf("count = %d, want 2", list.Count)
	}
	if list.Transactions[0].Date != "2024-01-12" || list.Transactions[0].Amount != "2500.00" {
		t.Errorf("newest first expected, got %+v", list.Transactions[0])
	}
	if list.Transactions[1].AmountCents != 1250 {
		t.Errorf("amount_cents = %d, want 1250", list.Transactions[1].AmountCents)
	}
}

func TestCreateTransactionDefaultsDateToToday(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(t, srv, http.MethodPost, "/api/transactions", "title=x&amount=1&type=expense&category=Food")
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := decode[transactionJSON](t, rr).Date; got != "2024-01-15" {
		t.Errorf("date = %q", got)
	}
	if loc := rr.Header().Get("Location"); !strings.HasPrefix(loc, "/api/transactions/") {
		t.Errorf("Location = %q", loc)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	srv := newTestServer(t, nil)
	seed := []string{
		"title=a&amount=1&type=expense&category=Food&date=2024-01-15",
		"title=b&amount=2&type=income&category=Salary&date=2024-01-14",
		"title=c&amount=3&type=expense&category=Food&date=2023-12-01",
	}
	for _, b := range seed {
		if rr := do(t, srv, http.MethodPost, "/api/transactions", b); rr.Code != http.StatusCreated {
			t.Fatalf("seed: %d %s", rr.Code, rr.Body.String())
		}
	}

	tests := []struct {
		query string
		code  int
		count int
	}{
		{"", 200, 3},
		{"?type=expense", 200, 2},
		{"?type=income&period=this-month", 200, 1},
		{"?period=last-7-days", 200, 2},
		{"?date=2023-12-01", 200, 1},
		{"?type=expense&date=2024-01-14", 200, 0},
		{"?type=bogus", 400, 0},
		{"?period=yesterday", 400, 0},
		{"?date=yesterday", 400, 0},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodGet, "/api/transactions"+tt.query, "")
		if rr.Code != tt.code {
			t.Fatalf("%q: expected %d, got %d", tt.query, tt.code, rr.Code)
		}
		if tt.code == 200 {
			if n := decode[transactionListJSON](t, rr).Count; n != tt.count {
				t.Errorf("%q: count = %d, want %d", tt.query, n, tt.count)
			}
		}
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	srv := newTestServer(t, nil)
	created := decode[transactionJSON](t, do(t, srv, http.MethodPost, "/api/transactions",
		"title=a&amount=1&type=expense&category=Food&date=2024-01-15"))
	path := "/api/transactions/" + created.ID

	rr := do(t, srv, http.MethodPut, path, `{"title":"b","amount":"4.20","type":"expense","category":"Bills","date":"2024-01-14"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d %s", rr.Code, rr.Body.String())
	}
	got := decode[transactionJSON](t, do(t, srv, http.MethodGet, path, ""))
	if got.Category != "Bills" || got.AmountCents != 420 {
		t.Errorf("after update: %+v", got)
	}

	if rr := do(t, srv, http.MethodPut, "/api/transactions/missing", `{"amount":"1","type":"expense","category":"Food","date":"2024-01-14"}`); rr.Code != http.StatusNotFound {
		t.Errorf("update missing: expected 404, got %d", rr.Code)
	}

	if rr := do(t, srv, http.MethodDelete, path, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, path, ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPatch, path, ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH: expected 405, got %d", rr.Code)
	}
}

func TestSummaryAndInsights(t *testing.T) {
	srv := newTestServer(t, nil)
	do(t, srv, http.MethodPost, "/api/transactions", "title=f&amount=100&type=expense&category=Food&date=2024-01-10")
	do(t, srv, http.MethodPost, "/api/transactions", "title=s&amount=500&type=income&category=Salary&date=2024-01-10")

	sum := decode[summaryJSON](t, do(t, srv, http.MethodGet, "/api/summary", ""))
	if sum.Balance != "400.00" || sum.Count != 2 {
		t.Errorf("summary = %+v", sum)
	}

	rr := do(t, srv, http.MethodGet, "/api/insights?period=this-month", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("insights status=%d", rr.Code)
	}
	in := decode[insightsJSON](t, rr)
	if in.SavingsRate != 80 || in.TopCategory != "Food" || in.SavingsRateLabel != "80.0%" {
		t.Errorf("insights = %+v", in)
	}
	if len(in.Expenses) != 30 || len(in.Ticks) != 6 || in.Ticks[5] != 500 {
		t.Errorf("series=%d ticks=%v", len(in.Expenses), in.Ticks)
	}

	if rr := do(t, srv, http.MethodGet, "/api/insights?period=yearly", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown period: expected 400, got %d", rr.Code)
	}
}

func TestChartEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	do(t, srv, http.MethodPost, "/api/transactions", "title=f&amount=100&type=expense&category=Food&date=2024-01-14")

	for _, path := range []string{"/api/insights/trend.png?period=week", "/api/insights/categories.png"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d %s", path, rr.Code, rr.Body.String())
		}
		if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("%s Content-Type = %q", path, ct)
		}
		if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
			t.Errorf("%s body is not a PNG", path)
		}
	}
}

func TestAxis(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		query string
		code  int
		ticks int
	}{
		{"?max=450", 200, 6},
		{"?max=0", 200, 2},
		{"?max=12000", 200, 13},
		{"?max=1e9", 200, 101},
		{"?max=1e300", 400, 0},
		{"?max=NaN", 400, 0},
		{"?max=abc", 400, 0},
		{"", 400, 0},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodGet, "/api/axis"+tt.query, "")
		if rr.Code != tt.code {
			t.Fatalf("%q: expected %d, got %d", tt.query, tt.code, rr.Code)
		}
		if tt.code == 200 {
			if n := len(decode[axisJSON](t, rr).Ticks); n != tt.ticks {
				t.Errorf("%q: %d ticks, want %d", tt.query, n, tt.ticks)
			}
		}
	}
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t, nil)

	list := decode[categoriesJSON](t, do(t, srv, http.MethodGet, "/api/categories?type=income", ""))
	if list.Type != "income" || len(list.Labels) == 0 || list.Selected != list.Labels[0] {
		t.Fatalf("income categories = %+v", list)
	}

	rr := do(t, srv, http.MethodPost, "/api/categories", `{"type":"expense","label":"Pets"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d", rr.Code)
	}
	if got := decode[categoriesJSON](t, rr); got.Selected != "Pets" {
		t.Errorf("added label should be selected, got %+v", got)
	}
	if rr := do(t, srv, http.MethodPost, "/api/categories", "type=expense&label=+"); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank label: expected 422, got %d", rr.Code)
	}

	if rr := do(t, srv, http.MethodPut, "/api/categories/Food/selected", ""); rr.Code != http.StatusOK {
		t.Errorf("select status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, "/api/categories/Pets", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("remove status=%d", rr.Code)
	}
	for _, l := range decode[categoriesJSON](t, rr).Labels {
		if l == "Pets" {
			t.Error("Pets should be removed")
		}
	}
	if rr := do(t, srv, http.MethodDelete, "/api/categories/Nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("remove missing: expected 404, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/categories?type=gift", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad type: expected 400, got %d", rr.Code)
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	repo := memory.New(nil, nil)
	hub := services.NewSnapshotHub(repo)
	srv, err := NewServer(":0", Options{
		Transactions:       services.NewTransactionService(repo, nil, hub),
		Insights:           services.NewInsightService(hub),
		Categories:         services.NewCategoryService(nil),
		RateLimitPerMinute: 1,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Shutdown(context.Background())

	body := `{"type":"expense","label":"A"}`
	if rr := do(t, srv, http.MethodPost, "/api/categories", body); rr.Code != http.StatusCreated {
		t.Fatalf("first write status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/categories", body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	for i := 0; i < 3; i++ {
		if rr := do(t, srv, http.MethodGet, "/api/categories", ""); rr.Code != http.StatusOK {
			t.Fatalf("reads are not limited, got %d", rr.Code)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(t, srv, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if decode[errorBody](t, rr).Error == "" {
		t.Error("expected JSON error body")
	}
}
