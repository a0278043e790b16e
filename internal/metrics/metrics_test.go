package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHTTPRequest_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveHTTPRequest(http.MethodGet, 200, 50*time.Millisecond)
	c.ObserveHTTPRequest(http.MethodGet, 200, 30*time.Millisecond)
	c.ObserveHTTPRequest(http.MethodPost, 201, 80*time.Millisecond)

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "200")); got != 2 {
		t.Errorf("GET/200 count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("POST", "201")); got != 1 {
		t.Errorf("POST/201 count = %v, want 1", got)
	}
}

func TestObserveImport_RecordsAllCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveImport(10, 3, 2, 1500*time.Millisecond)

	if got := testutil.ToFloat64(c.booksImported); got != 10 {
		t.Errorf("booksImported = %v, want 10", got)
	}
	if got := testutil.ToFloat64(c.importSkipped); got != 3 {
		t.Errorf("importSkipped = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.importFailed); got != 2 {
		t.Errorf("importFailed = %v, want 2", got)
	}
}

func TestIncGoalCompletions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.IncGoalCompletions()
	c.IncGoalCompletions()

	if got := testutil.ToFloat64(c.goalCompletions); got != 2 {
		t.Errorf("goalCompletions = %v, want 2", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveHTTPRequest(http.MethodGet, 200, time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"bookbuddy_http_requests_total",
		"bookbuddy_books_imported_total",
		"bookbuddy_goal_completions_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("メトリクス %s が出力に含まれていない", name)
		}
	}
}
