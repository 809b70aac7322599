// Package metrics holds the Prometheus collectors recorded by the answer
// pipeline. A Registry is created once at startup, injected where needed and
// never reset.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "ai_docs"

// Registry owns the service's collectors.
type Registry struct {
	reg *prometheus.Registry

	Queries                     prometheus.Counter
	Unanswered                  prometheus.Counter
	Refusals                    *prometheus.CounterVec
	CitationGaps                prometheus.Counter
	VersionConflicts            prometheus.Counter
	UnsupportedFeatureQuestions prometheus.Counter
	RetrievalErrors             prometheus.Counter
	GenerationFallbacks         prometheus.Counter
	RequestLatency              prometheus.Histogram
}

// New creates a registry with all collectors registered. Process and Go
// runtime collectors are included when withRuntime is set.
func New(withRuntime bool) *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Queries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "queries_total",
			Help:      "Total queries received by the docs assistant",
		}),
		Unanswered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "unanswered_total",
			Help:      "Queries where the assistant could not answer confidently from docs",
		}),
		Refusals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "refusals_total",
			Help:      "Queries explicitly refused",
		}, []string{"reason"}),
		CitationGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "citation_gaps_total",
			Help:      "Answers returned without citations",
		}),
		VersionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "version_conflicts_total",
			Help:      "Answers where citations disagree on version (multi-version evidence)",
		}),
		UnsupportedFeatureQuestions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "unsupported_feature_questions_total",
			Help:      "Queries asking about features that are not supported",
		}),
		RetrievalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_errors_total",
			Help:      "Queries that failed because the retrieval backend failed",
		}),
		GenerationFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generation_fallbacks_total",
			Help:      "Answers produced by the deterministic fallback instead of the generator",
		}),
		RequestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "request_latency_seconds",
			Help:      "Latency for /ask requests",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4},
		}),
	}

	r.reg.MustRegister(
		r.Queries,
		r.Unanswered,
		r.Refusals,
		r.CitationGaps,
		r.VersionConflicts,
		r.UnsupportedFeatureQuestions,
		r.RetrievalErrors,
		r.GenerationFallbacks,
		r.RequestLatency,
	)
	if withRuntime {
		r.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// ObserveLatency records the time elapsed since start.
func (r *Registry) ObserveLatency(start time.Time) {
	r.RequestLatency.Observe(time.Since(start).Seconds())
}

// Gatherer exposes the registry's collectors. Handler scrapes through it and
// tests read samples from it directly.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}
