package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 予約結果のラベル値
const (
	ResultSuccess     = "success"
	ResultConflict    = "conflict"
	ResultNotFound    = "not_found"
	ResultInvalid     = "invalid"
	ResultStoreFailed = "store_failure"
)

// リコンサイラーのサイクル結果のラベル値
const (
	CycleCompleted = "completed"
	CycleSkipped   = "skipped"
	CycleFailed    = "failed"
)

// Metrics はアプリケーションのメトリクスを管理する
// nil レシーバーでもメソッドは何もしない
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約の総数（result: success, conflict, not_found, invalid, store_failure）
	ReservationsTotal *prometheus.CounterVec

	// リコンサイラーのサイクル数（result: completed, skipped, failed）
	ReconcilerCyclesTotal *prometheus.CounterVec

	// 期限切れで解放した予約数
	ReconcilerReclaimedTotal prometheus.Counter

	// 排他トークンの取得時間（backend: postgres/redis, status: acquired/busy/error）
	MutexLockDuration *prometheus.HistogramVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservations_total",
				Help: "Total number of reservation attempts by result",
			},
			[]string{"result"},
		),
		ReconcilerCyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciler_cycles_total",
				Help: "Expiry reconciler cycles by result",
			},
			[]string{"result"},
		),
		ReconcilerReclaimedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reconciler_reclaimed_total",
				Help: "Stale pending reservations marked failed by the reconciler",
			},
		),
		MutexLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reconciler_lock_duration_seconds",
				Help:    "Time spent trying to acquire the reconciler mutual-exclusion token",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"backend", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.ReconcilerCyclesTotal,
		m.ReconcilerReclaimedTotal,
		m.MutexLockDuration,
	)

	return m
}

// IncReservation は予約結果を1件記録する
func (m *Metrics) IncReservation(result string) {
	if m == nil {
		return
	}
	m.ReservationsTotal.WithLabelValues(result).Inc()
}

// IncCycle はリコンサイラーのサイクル結果を記録する
func (m *Metrics) IncCycle(result string) {
	if m == nil {
		return
	}
	m.ReconcilerCyclesTotal.WithLabelValues(result).Inc()
}

// AddReclaimed は解放した予約数を加算する
func (m *Metrics) AddReclaimed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReconcilerReclaimedTotal.Add(float64(n))
}

// ObserveLock は排他トークン取得にかかった時間を記録する
func (m *Metrics) ObserveLock(backend, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.MutexLockDuration.WithLabelValues(backend, status).Observe(d.Seconds())
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
