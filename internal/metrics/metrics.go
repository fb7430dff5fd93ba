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
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordSnapshotFetchSuccess()
	RecordSnapshotFetchFailure()
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordAnnouncementDelivered()
	RecordAnnouncementFailed()
	RecordSweepRemovals(n int)
	SetActiveSessions(n int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fetchSuccess   prometheus.Counter
	fetchFail      prometheus.Counter
	httpStatus     *prometheus.CounterVec
	fetchLatency   prometheus.Histogram
	cacheHit       prometheus.Counter
	cacheMiss      prometheus.Counter
	announceOK     prometheus.Counter
	announceFail   prometheus.Counter
	sweepRemoved   prometheus.Counter
	activeSessions prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotwatch_snapshot_fetch_success_total",
			Help: "スナップショット取得成功の合計数",
		}),
		fetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotwatch_snapshot_fetch_fail_total",
			Help: "スナップショット取得失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plotwatch_upstream_http_status_total",
			Help: "上流HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plotwatch_snapshot_fetch_latency_seconds",
			Help:    "スナップショット取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotwatch_cache_hit_total",
			Help: "スナップショットキャッシュヒットの合計数",
		}),
		cacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotwatch_cache_miss_total",
			Help: "スナップショットキャッシュミスの合計数",
		}),
		announceOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotwatch_announcements_delivered_total",
			Help: "配信に成功したフェーズ告知の合計数",
		}),
		announceFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotwatch_announcements_failed_total",
			Help: "配信に失敗したフェーズ告知の合計数",
		}),
		sweepRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotwatch_sweep_removed_total",
			Help: "掃除で削除された登録の合計数",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plotwatch_active_sessions",
			Help: "アクティブなページングセッション数",
		}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.httpStatus,
		c.fetchLatency,
		c.cacheHit,
		c.cacheMiss,
		c.announceOK,
		c.announceFail,
		c.sweepRemoved,
		c.activeSessions,
	)

	return c
}

// RecordSnapshotFetchSuccess はスナップショット取得成功を記録する。
func (c *Collector) RecordSnapshotFetchSuccess() {
	c.fetchSuccess.Inc()
}

// RecordSnapshotFetchFailure はスナップショット取得失敗を記録する。
func (c *Collector) RecordSnapshotFetchFailure() {
	c.fetchFail.Inc()
}

// RecordHTTPStatus は上流のHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はスナップショット取得のレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHit.Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMiss.Inc()
}

// RecordAnnouncementDelivered は告知配信成功を記録する。
func (c *Collector) RecordAnnouncementDelivered() {
	c.announceOK.Inc()
}

// RecordAnnouncementFailed は告知配信失敗を記録する。
func (c *Collector) RecordAnnouncementFailed() {
	c.announceFail.Inc()
}

// RecordSweepRemovals は掃除で削除された登録数を記録する。
func (c *Collector) RecordSweepRemovals(n int) {
	c.sweepRemoved.Add(float64(n))
}

// SetActiveSessions はアクティブなセッション数を記録する。
func (c *Collector) SetActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
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
