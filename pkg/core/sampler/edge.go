package sampler

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/alias"
)

// Edge samples whole edges proportionally to their weight.
type Edge struct {
	vertexCount int

	edge           *alias.Bank // one distribution over every edge
	negative       *alias.Bank // in-degree^0.75
	vertexUniform  *alias.Bank
	contextUniform *alias.Bank

	// Parallel per-edge arrays; edges of a vertex are contiguous.
	vertexes []int
	contexts []int
}

// NewEdge builds the sampler from src.
func NewEdge(src Source) (*Edge, error) {
	n := src.VertexCount()
	s := &Edge{
		vertexCount:    n,
		edge:           alias.New(),
		negative:       alias.New(),
		vertexUniform:  alias.New(),
		contextUniform: alias.New(),
	}

	negativeDist := make([]float64, n)
	vertexUniformDist := make([]float64, n)
	contextUniformDist := make([]float64, n)
	var edgeDist []float64

	for from := 0; from < n; from++ {
		for _, e := range src.Edges(from) {
			vertexUniformDist[from] = 1
			contextUniformDist[e.To] = 1
			negativeDist[e.To] += e.Weight
			edgeDist = append(edgeDist, e.Weight)
			s.vertexes = append(s.vertexes, from)
			s.contexts = append(s.contexts, e.To)
		}
	}
	if len(edgeDist) == 0 {
		return nil, ErrNoEdges
	}

	s.vertexUniform.Append(vertexUniformDist, 1.0)
	s.contextUniform.Append(contextUniformDist, 1.0)
	s.negative.Append(negativeDist, NegativePower)
	s.edge.Append(edgeDist, 1.0)

	publishBank("edge_edge", s.edge)
	publishBank("edge_negative", s.negative)
	logBuild("edge", n, len(edgeDist))
	return s, nil
}

// VertexCount returns the size of the vertex domain.
func (s *Edge) VertexCount() int { return s.vertexCount }

// EdgeCount returns the number of sampled edges.
func (s *Edge) EdgeCount() int { return len(s.vertexes) }

// DrawEdge draws an edge by weight and returns its endpoints.
func (s *Edge) DrawEdge(rng *rand.Rand) (from, to int) {
	i := s.edge.DrawAny(rng)
	return s.vertexes[i], s.contexts[i]
}

// DrawNegative draws a negative context from the skewed in-degree distribution.
func (s *Edge) DrawNegative(rng *rand.Rand) int {
	return s.negative.DrawAny(rng)
}

// DrawVertexUniformly draws uniformly among vertices with outgoing edges.
func (s *Edge) DrawVertexUniformly(rng *rand.Rand) int {
	return s.vertexUniform.DrawAny(rng)
}

// DrawContextUniformly draws uniformly among vertices with incoming edges.
func (s *Edge) DrawContextUniformly(rng *rand.Rand) int {
	return s.contextUniform.DrawAny(rng)
}
