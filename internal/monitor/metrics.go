package monitor

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the collector's Prometheus instruments on a private
// registry, so the status server never exports Go runtime noise it
// did not ask for.
type Metrics struct {
	registry *prometheus.Registry

	cycles      *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
	retries     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarflux",
			Name:      "cycles_total",
			Help:      "Completed collection cycles by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "solarflux",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one collection cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solarflux",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful cycle.",
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarflux",
			Name:      "retry_attempts_total",
			Help:      "Retries performed within cycles, by operation.",
		}, []string{"operation"}),
	}
	m.registry.MustRegister(m.cycles, m.duration, m.lastSuccess, m.retries)
	return m
}

// Registry exposes the instruments for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordRetry is shaped to plug into the retry policy's OnRetry hook.
func (m *Metrics) RecordRetry(op string) {
	m.retries.WithLabelValues(op).Inc()
}
