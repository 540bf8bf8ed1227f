// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordLogin()
	RecordCallbackFailure(reason string)
	RecordSessionsReaped(count int64)
	RecordPublish(platform string, outcome string)
	RecordPublishLatency(platform string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins         prometheus.Counter
	callbackFail   *prometheus.CounterVec
	sessionsReaped prometheus.Counter
	publish        *prometheus.CounterVec
	publishLatency *prometheus.HistogramVec
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "creatorflow_logins_total",
			Help: "ログイン成功の合計数",
		}),
		callbackFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "creatorflow_callback_failures_total",
			Help: "OIDCコールバック失敗の理由別合計数",
		}, []string{"reason"}),
		sessionsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "creatorflow_sessions_reaped_total",
			Help: "reaperが削除した期限切れセッションの合計数",
		}),
		publish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "creatorflow_publish_total",
			Help: "プラットフォーム別・結果別の投稿試行数",
		}, []string{"platform", "outcome"}),
		publishLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "creatorflow_publish_latency_seconds",
			Help:    "プラットフォームAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "creatorflow_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.callbackFail,
		c.sessionsReaped,
		c.publish,
		c.publishLatency,
		c.httpStatus,
	)

	return c
}

// RecordLogin はログイン成功を記録する。
func (c *Collector) RecordLogin() {
	c.logins.Inc()
}

// RecordCallbackFailure はOIDCコールバック失敗をエラーコード別に記録する。
func (c *Collector) RecordCallbackFailure(reason string) {
	c.callbackFail.WithLabelValues(reason).Inc()
}

// RecordSessionsReaped は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsReaped(count int64) {
	c.sessionsReaped.Add(float64(count))
}

// RecordPublish は投稿試行の結果を記録する。outcomeは"success"または"failure"。
func (c *Collector) RecordPublish(platform string, outcome string) {
	c.publish.WithLabelValues(platform, outcome).Inc()
}

// RecordPublishLatency はプラットフォームAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordPublishLatency(platform string, duration time.Duration) {
	c.publishLatency.WithLabelValues(platform).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
