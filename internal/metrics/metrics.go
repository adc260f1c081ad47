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
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordSessionRefresh(outcome string)
	RecordLocaleRedirect(locale string)
	RecordConversationCreated()
	RecordMessageSent()
	RecordListingCreated()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus          *prometheus.CounterVec
	requestLatency      prometheus.Histogram
	sessionRefresh      *prometheus.CounterVec
	localeRedirect      *prometheus.CounterVec
	conversationCreated prometheus.Counter
	messageSent         prometheus.Counter
	listingCreated      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carmart_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carmart_request_latency_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carmart_session_refresh_total",
			Help: "セッション検証の結果別の回数",
		}, []string{"outcome"}),
		localeRedirect: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carmart_locale_redirect_total",
			Help: "ロケール付与のためのリダイレクト数",
		}, []string{"locale"}),
		conversationCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carmart_conversations_created_total",
			Help: "新規作成された会話の合計数",
		}),
		messageSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carmart_messages_sent_total",
			Help: "送信されたメッセージの合計数",
		}),
		listingCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carmart_listings_created_total",
			Help: "作成された出品の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.sessionRefresh,
		c.localeRedirect,
		c.conversationCreated,
		c.messageSent,
		c.listingCreated,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSessionRefresh はセッション検証の結果を記録する。
func (c *Collector) RecordSessionRefresh(outcome string) {
	c.sessionRefresh.WithLabelValues(outcome).Inc()
}

// RecordLocaleRedirect はロケール付与リダイレクトを記録する。
func (c *Collector) RecordLocaleRedirect(locale string) {
	c.localeRedirect.WithLabelValues(locale).Inc()
}

// RecordConversationCreated は会話の新規作成を記録する。
func (c *Collector) RecordConversationCreated() {
	c.conversationCreated.Inc()
}

// RecordMessageSent はメッセージ送信を記録する。
func (c *Collector) RecordMessageSent() {
	c.messageSent.Inc()
}

// RecordListingCreated は出品作成を記録する。
func (c *Collector) RecordListingCreated() {
	c.listingCreated.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
