// Package metrics exposes Prometheus collectors for check cycles, quota and the web layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "multistream"

// Registry bundles the collectors. All methods are safe on a nil *Registry.
type Registry struct {
	registry      *prometheus.Registry
	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	cycleDuration prometheus.Histogram
	cyclesTotal   *prometheus.CounterVec
	entries       *prometheus.GaugeVec
	panicsTotal   prometheus.Counter
	quotaUsed     prometheus.Gauge
	wsClients     prometheus.Gauge
	loginsTotal   *prometheus.CounterVec
}

func New() *Registry {
	registry := prometheus.NewRegistry()
	m := &Registry{
		registry: registry,
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Entry checks completed, by platform and resulting status",
		}, []string{"platform", "status"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of a single entry check",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full check cycle",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Check cycles run, by trigger",
		}, []string{"forced"}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Monitored entries by platform and current status",
		}, []string{"platform", "status"}),
		panicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_panics_total",
			Help:      "Entry checks that panicked and were degraded to an API error",
		}),
		quotaUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "youtube_quota_used_units",
			Help:      "YouTube Data API units spent in the current quota day",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected websocket clients",
		}),
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.checksTotal,
		m.checkDuration,
		m.cycleDuration,
		m.cyclesTotal,
		m.entries,
		m.panicsTotal,
		m.quotaUsed,
		m.wsClients,
		m.loginsTotal,
	)
	return m
}

func (m *Registry) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Registry) ObserveCheck(p domain.Platform, status domain.StreamStatus, dur time.Duration) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(p.String(), status.String()).Inc()
	m.checkDuration.WithLabelValues(p.String()).Observe(dur.Seconds())
}

func (m *Registry) ObserveCycle(forced bool, dur time.Duration) {
	if m == nil {
		return
	}
	label := "false"
	if forced {
		label = "true"
	}
	m.cyclesTotal.WithLabelValues(label).Inc()
	m.cycleDuration.Observe(dur.Seconds())
}

// SetEntries replaces the per-platform/status gauge with the given snapshot.
func (m *Registry) SetEntries(entries []domain.MonitoredEntry) {
	if m == nil {
		return
	}
	m.entries.Reset()
	for _, e := range entries {
		m.entries.WithLabelValues(e.Platform.String(), e.Status.String()).Inc()
	}
}

func (m *Registry) IncPanics() {
	if m == nil {
		return
	}
	m.panicsTotal.Inc()
}

func (m *Registry) SetQuotaUsed(units int) {
	if m == nil {
		return
	}
	m.quotaUsed.Set(float64(units))
}

func (m *Registry) IncWSClients(delta float64) {
	if m == nil {
		return
	}
	m.wsClients.Add(delta)
}

func (m *Registry) IncLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}
