// Package observability - метрики Prometheus на отдельном реестре.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - все метрики приложения
type Metrics struct {
	registry *prometheus.Registry

	// Рынок
	FetchTotal       *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	SnapshotCoins    prometheus.Gauge
	LastSuccessfulAt prometheus.Gauge
	TicksSkipped     *prometheus.CounterVec

	// Watchlist
	WatchlistOps *prometheus.CounterVec

	// Клиенты
	WSClients prometheus.Gauge
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// NewMetrics - создаёт и регистрирует метрики
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "crypto_tracker"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "fetch_total",
			Help:      "Market data fetches by result",
		}, []string{"result"}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "fetch_duration_seconds",
			Help:      "Market data fetch latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SnapshotCoins: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "snapshot_coins",
			Help:      "Coins in the current snapshot",
		}),
		LastSuccessfulAt: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful fetch",
		}),
		TicksSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_skipped_total",
			Help:      "Refresh requests skipped because a fetch was in flight",
		}, []string{"reason"}),

		WatchlistOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchlist",
			Name:      "store_ops_total",
			Help:      "Watchlist store reads and writes by result",
		}, []string{"op", "result"}),

		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected websocket clients",
		}),
	}
}

// ObserveFetch - результат одного запроса к провайдеру
func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	m.FetchTotal.WithLabelValues(result(err)).Inc()
	m.FetchDuration.Observe(d.Seconds())
	if err == nil {
		m.LastSuccessfulAt.SetToCurrentTime()
	}
}

func (m *Metrics) SetSnapshotSize(n int) {
	m.SnapshotCoins.Set(float64(n))
}

func (m *Metrics) TickSkipped(reason string) {
	m.TicksSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveLoad(err error) {
	m.WatchlistOps.WithLabelValues("load", result(err)).Inc()
}

func (m *Metrics) ObserveWrite(err error) {
	m.WatchlistOps.WithLabelValues("write", result(err)).Inc()
}

func (m *Metrics) WSConnected()    { m.WSClients.Inc() }
func (m *Metrics) WSDisconnected() { m.WSClients.Dec() }

// Handler - /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry - для тестов и дополнительных коллекторов
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
