// Package metrics declares the Prometheus collectors exported by the training engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global collectors. promauto registers them on the default registry at init time.

var (
	// GraphVertices tracks how many distinct vertices a loaded graph holds.
	GraphVertices = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektorgraph_graph_vertices",
			Help: "Number of distinct vertices in a loaded graph",
		},
		[]string{"graph"},
	)

	// GraphEdges tracks the accepted edge-list lines of a loaded graph.
	GraphEdges = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektorgraph_graph_edges",
			Help: "Number of edge-list lines accepted for a graph",
		},
		[]string{"graph"},
	)

	// SkippedLines counts malformed edge-list lines dropped during ingestion.
	SkippedLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorgraph_skipped_lines_total",
			Help: "Total number of malformed edge-list lines skipped",
		},
		[]string{"graph"},
	)

	// AliasEntries tracks the flat size of every alias bank built by a sampler.
	AliasEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektorgraph_alias_entries",
			Help: "Number of entries stored in an alias bank",
		},
		[]string{"bank"},
	)

	// UpdatesTotal counts completed sampling/update rounds per algorithm.
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorgraph_updates_total",
			Help: "Total number of training updates performed",
		},
		[]string{"algorithm"},
	)

	// LearningRate exposes the most recently computed learning rate.
	LearningRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektorgraph_learning_rate",
			Help: "Current learning rate of the running algorithm",
		},
		[]string{"algorithm"},
	)

	// Progress is the finished fraction of the update budget (0.0-1.0).
	Progress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektorgraph_training_progress_ratio",
			Help: "Fraction of the update budget completed",
		},
		[]string{"algorithm"},
	)
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
