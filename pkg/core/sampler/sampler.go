// Package sampler derives alias-method distributions from a graph and exposes the
// draw and walk primitives the training algorithms are built from.
//
// Two samplers are provided. VertexContext keeps one distribution per vertex over
// its outgoing edges, which supports random walks and skip-gram pair generation.
// Edge keeps a single distribution over every edge, for direct edge sampling.
//
// Samplers are built once and are read-only afterwards. Every draw takes the
// caller's *rand.Rand, so one sampler can serve any number of workers.
package sampler

import (
	"errors"
	"log/slog"

	"github.com/sanonone/kektorgraph/pkg/core/alias"
	"github.com/sanonone/kektorgraph/pkg/core/graph"
	"github.com/sanonone/kektorgraph/pkg/metrics"
)

const (
	// NoSample marks a draw that has no candidate, e.g. a context of a vertex
	// without outgoing edges.
	NoSample = alias.NoSample

	// NegativePower skews the negative distribution away from high in-degree vertices.
	NegativePower = 0.75
)

// ErrNoEdges is returned when a sampler is built from a graph without edges.
var ErrNoEdges = errors.New("graph has no edges to sample from")

// Source is the read-only view of a graph a sampler is derived from.
type Source interface {
	VertexCount() int
	Edges(v int) []graph.Edge
}

func publishBank(name string, bank *alias.Bank) {
	metrics.AliasEntries.WithLabelValues(name).Set(float64(bank.Size()))
}

func logBuild(kind string, vertices, edges int) {
	slog.Info("[Sampler] Built alias tables", "sampler", kind, "vertices", vertices, "edges", edges)
}
