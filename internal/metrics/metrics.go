// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 予約結果のラベル値。
const (
	BookingCreated    = "created"
	BookingConflict   = "conflict"
	BookingNotFound   = "not_found"
	BookingInvalid    = "invalid"
	BookingInProgress = "in_progress"
	BookingError      = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やミドルウェアから利用する。
type MetricsCollector interface {
	RecordBooking(result string)
	RecordAvailabilityQuery(duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	bookings         *prometheus.CounterVec
	availability     prometheus.Counter
	availabilityTime prometheus.Histogram
	httpStatus       *prometheus.CounterVec
	sessionsCleaned  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentacar_bookings_total",
			Help: "結果別の予約リクエスト数",
		}, []string{"result"}),
		availability: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rentacar_availability_queries_total",
			Help: "空き車両検索の合計数",
		}),
		availabilityTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentacar_availability_query_seconds",
			Help:    "空き車両検索のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentacar_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rentacar_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.bookings,
		c.availability,
		c.availabilityTime,
		c.httpStatus,
		c.sessionsCleaned,
	)

	return c
}

// RecordBooking は予約結果を記録する。
func (c *Collector) RecordBooking(result string) {
	c.bookings.WithLabelValues(result).Inc()
}

// RecordAvailabilityQuery は空き車両検索の件数とレイテンシを記録する。
func (c *Collector) RecordAvailabilityQuery(duration time.Duration) {
	c.availability.Inc()
	c.availabilityTime.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionsCleaned は削除したセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordBooking(string)                  {}
func (Nop) RecordAvailabilityQuery(time.Duration) {}
func (Nop) RecordHTTPStatus(int)                  {}
func (Nop) RecordSessionsCleaned(int64)           {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
