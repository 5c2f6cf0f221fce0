// Package metrics exposes Prometheus collectors for preparation runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Provider outcomes.
const (
	ResultPrepared = "prepared"
	ResultCached   = "cached"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
)

// Metrics holds the collectors of one preparation run on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Providers *prometheus.CounterVec
	Events    prometheus.Counter
	Sessions  prometheus.Counter
	Tokens    prometheus.Counter
	Duration  prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Providers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ehrtok",
			Name:      "providers_total",
			Help:      "Providers handled by outcome.",
		}, []string{"result"}),
		Events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ehrtok",
			Name:      "events_total",
			Help:      "Audit log events read.",
		}),
		Sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ehrtok",
			Name:      "sessions_total",
			Help:      "Sessions produced.",
		}),
		Tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ehrtok",
			Name:      "tokens_total",
			Help:      "Tokens produced.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ehrtok",
			Name:      "provider_prepare_seconds",
			Help:      "Time spent preparing one provider from its log.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	m.Registry.MustRegister(m.Providers, m.Events, m.Sessions, m.Tokens, m.Duration)
	return m
}

// WriteTextfile writes the current values in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
