package designer

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts lifecycle events. Counters are usable without a registry.
type Metrics struct {
	LoadAttempts       *prometheus.CounterVec
	LoadFailures       *prometheus.CounterVec
	Fallbacks          prometheus.Counter
	Exhausted          prometheus.Counter
	Constructions      prometheus.Counter
	ConstructionErrors prometheus.Counter
	Destroys           prometheus.Counter
	TeardownErrors     prometheus.Counter
	QueryErrors        prometheus.Counter
}

// NewMetrics builds the counters and registers them with reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoadAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventdesk", Subsystem: "designer", Name: "load_attempts_total",
			Help: "Script load attempts by region.",
		}, []string{"region"}),
		LoadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventdesk", Subsystem: "designer", Name: "load_failures_total",
			Help: "Script load failures by region.",
		}, []string{"region"}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventdesk", Subsystem: "designer", Name: "region_fallbacks_total",
			Help: "Advances to a successor region after a load failure.",
		}),
		Exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventdesk", Subsystem: "designer", Name: "regions_exhausted_total",
			Help: "Sessions that failed in every region.",
		}),
		Constructions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventdesk", Subsystem: "designer", Name: "constructions_total",
			Help: "Widgets constructed and rendered.",
		}),
		ConstructionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventdesk", Subsystem: "designer", Name: "construction_errors_total",
			Help: "Factory failures during construction.",
		}),
		Destroys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventdesk", Subsystem: "designer", Name: "destroys_total",
			Help: "Widget handles destroyed.",
		}),
		TeardownErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventdesk", Subsystem: "designer", Name: "teardown_errors_total",
			Help: "Destroy calls that failed.",
		}),
		QueryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventdesk", Subsystem: "designer", Name: "selection_query_errors_total",
			Help: "Selection queries that failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.LoadAttempts, m.LoadFailures, m.Fallbacks, m.Exhausted,
			m.Constructions, m.ConstructionErrors, m.Destroys, m.TeardownErrors, m.QueryErrors)
	}
	return m
}
