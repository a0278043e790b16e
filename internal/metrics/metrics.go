// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpLatency     prometheus.Histogram
	booksImported   prometheus.Counter
	importSkipped   prometheus.Counter
	importFailed    prometheus.Counter
	importDuration  prometheus.Histogram
	goalCompletions prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookbuddy_http_requests_total",
			Help: "HTTPメソッド・ステータスコード別のリクエスト数",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookbuddy_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		booksImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookbuddy_books_imported_total",
			Help: "CSVインポートで登録された本の合計数",
		}),
		importSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookbuddy_import_rows_skipped_total",
			Help: "重複のためスキップされたインポート行の合計数",
		}),
		importFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookbuddy_import_rows_failed_total",
			Help: "検証エラーで失敗したインポート行の合計数",
		}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookbuddy_import_duration_seconds",
			Help:    "CSVインポート1回あたりの処理時間（秒）",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		goalCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookbuddy_goal_completions_total",
			Help: "達成された読書目標の合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.booksImported,
		c.importSkipped,
		c.importFailed,
		c.importDuration,
		c.goalCompletions,
	)

	return c
}

// ObserveHTTPRequest はHTTPリクエストの結果を記録する。
func (c *Collector) ObserveHTTPRequest(method string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// ObserveImport はCSVインポート1回の結果を記録する。
func (c *Collector) ObserveImport(imported, skipped, failed int, duration time.Duration) {
	c.booksImported.Add(float64(imported))
	c.importSkipped.Add(float64(skipped))
	c.importFailed.Add(float64(failed))
	c.importDuration.Observe(duration.Seconds())
}

// IncGoalCompletions は目標達成を記録する。
func (c *Collector) IncGoalCompletions() {
	c.goalCompletions.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
