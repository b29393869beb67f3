// Package monitoring exposes Prometheus metrics for the tab tracker.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Restoration outcomes recorded in RestoresTotal.
const (
	RestoreMatched   = "matched"
	RestoreRetried   = "retried"
	RestoreAbandoned = "abandoned"
)

// Metrics holds the tracker's collectors. Each Metrics registers on its own
// registerer so several trackers can coexist in one process.
type Metrics struct {
	EventsTotal  *prometheus.CounterVec
	SavesTotal   prometheus.Counter
	SaveErrors   prometheus.Counter
	SkippedSaves prometheus.Counter
	SaveDuration prometheus.Histogram

	RestoresTotal *prometheus.CounterVec

	Windows prometheus.Gauge
	Tabs    prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// creates unregistered collectors, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabtree_events_total",
				Help: "Host events handled, by type",
			},
			[]string{"type"},
		),
		SavesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tabtree_saves_total",
			Help: "Whole-state saves issued",
		}),
		SaveErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "tabtree_save_errors_total",
			Help: "Whole-state saves that failed",
		}),
		SkippedSaves: factory.NewCounter(prometheus.CounterOpts{
			Name: "tabtree_skipped_saves_total",
			Help: "Events that changed nothing and were not persisted",
		}),
		SaveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tabtree_save_duration_seconds",
			Help:    "Whole-state save latency",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		RestoresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabtree_restores_total",
				Help: "Window restoration attempts, by outcome",
			},
			[]string{"outcome"},
		),
		Windows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tabtree_windows",
			Help: "Windows held in the state store, open and retained",
		}),
		Tabs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tabtree_tabs",
			Help: "Tabs held in the state store",
		}),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabtree_http_requests_total",
				Help: "HTTP requests served, by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabtree_http_request_duration_seconds",
				Help:    "HTTP request latency, by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveStore updates the size gauges.
func (m *Metrics) ObserveStore(windows, tabs int) {
	m.Windows.Set(float64(windows))
	m.Tabs.Set(float64(tabs))
}
