package llm

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts layout flow calls by provider.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Failures *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventdesk", Subsystem: "layout", Name: "calls_total",
			Help: "Layout suggestion calls by provider.",
		}, []string{"provider"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventdesk", Subsystem: "layout", Name: "failures_total",
			Help: "Failed layout suggestion calls by provider.",
		}, []string{"provider"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventdesk", Subsystem: "layout", Name: "duration_seconds",
			Help:    "Layout suggestion latency by provider.",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 20},
		}, []string{"provider"}),
	}
	if reg != nil {
		reg.MustRegister(m.Calls, m.Failures, m.Latency)
	}
	return m
}

type instrumented struct {
	name    string
	next    LayoutProvider
	metrics *Metrics
}

// Instrument records calls, failures and latency of p under name.
func Instrument(name string, p LayoutProvider, m *Metrics) LayoutProvider {
	return &instrumented{name: name, next: p, metrics: m}
}

func (i *instrumented) SuggestLayout(ctx context.Context, req LayoutRequest) (LayoutResponse, error) {
	timer := prometheus.NewTimer(i.metrics.Latency.WithLabelValues(i.name))
	defer timer.ObserveDuration()
	i.metrics.Calls.WithLabelValues(i.name).Inc()
	resp, err := i.next.SuggestLayout(ctx, req)
	if err != nil {
		i.metrics.Failures.WithLabelValues(i.name).Inc()
	}
	return resp, err
}
