package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GraphMutations counts successful graph store mutations by operation.
	GraphMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giraph_graph_mutations_total",
			Help: "Graph store mutations by operation",
		},
		[]string{"op"},
	)

	// ScoreItems counts bulk score items by outcome (applied, skipped, filtered).
	ScoreItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giraph_score_items_total",
			Help: "Bulk score items processed by outcome",
		},
		[]string{"outcome"},
	)

	// HeaderResolutions counts which resolution strategy matched a header.
	HeaderResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giraph_header_resolutions_total",
			Help: "Header resolutions by matching strategy",
		},
		[]string{"strategy"},
	)

	// SyllabusExtractions counts finished extraction tasks by status.
	SyllabusExtractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giraph_syllabus_extractions_total",
			Help: "Syllabus extraction tasks by final status",
		},
		[]string{"status"},
	)

	// HTTPRequestDuration observes request latency by route pattern and status.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "giraph_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(GraphMutations)
	prometheus.MustRegister(ScoreItems)
	prometheus.MustRegister(HeaderResolutions)
	prometheus.MustRegister(SyllabusExtractions)
	prometheus.MustRegister(HTTPRequestDuration)
}
