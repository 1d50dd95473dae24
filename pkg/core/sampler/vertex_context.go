package sampler

import (
	"math/rand/v2"

	"github.com/sanonone/kektorgraph/pkg/core/alias"
)

// VertexContext performs vertex-context sampling: a vertex is drawn from its
// marginal, then a context from that vertex's own out-edge distribution.
type VertexContext struct {
	vertexCount int
	edgeCount   int

	vertex         *alias.Bank // out-degree weighted marginal
	context        *alias.Bank // one distribution per vertex
	negative       *alias.Bank // in-degree^0.75
	vertexUniform  *alias.Bank
	contextUniform *alias.Bank

	// contexts[p] is the target vertex of bank-global context position p.
	contexts []int
}

// NewVertexContext builds the sampler from src.
func NewVertexContext(src Source) (*VertexContext, error) {
	n := src.VertexCount()
	s := &VertexContext{
		vertexCount:    n,
		vertex:         alias.New(),
		context:        alias.New(),
		negative:       alias.New(),
		vertexUniform:  alias.New(),
		contextUniform: alias.New(),
	}

	vertexDist := make([]float64, n)
	negativeDist := make([]float64, n)
	vertexUniformDist := make([]float64, n)
	contextUniformDist := make([]float64, n)
	var contextDist []float64

	for from := 0; from < n; from++ {
		contextDist = contextDist[:0]
		for _, e := range src.Edges(from) {
			vertexDist[from] += e.Weight
			contextDist = append(contextDist, e.Weight)
			negativeDist[e.To] += e.Weight
			vertexUniformDist[from] = 1
			contextUniformDist[e.To] = 1
			s.contexts = append(s.contexts, e.To)
		}
		s.context.Append(contextDist, 1.0)
	}
	s.edgeCount = len(s.contexts)
	if s.edgeCount == 0 {
		return nil, ErrNoEdges
	}

	s.vertex.Append(vertexDist, 1.0)
	s.vertexUniform.Append(vertexUniformDist, 1.0)
	s.contextUniform.Append(contextUniformDist, 1.0)
	s.negative.Append(negativeDist, NegativePower)

	publishBank("vc_vertex", s.vertex)
	publishBank("vc_context", s.context)
	publishBank("vc_negative", s.negative)
	logBuild("vertex_context", n, s.edgeCount)
	return s, nil
}

// VertexCount returns the size of the vertex domain.
func (s *VertexContext) VertexCount() int { return s.vertexCount }

// EdgeCount returns the number of (vertex, context) entries.
func (s *VertexContext) EdgeCount() int { return s.edgeCount }

// DrawVertex draws a vertex proportionally to its weighted out-degree.
func (s *VertexContext) DrawVertex(rng *rand.Rand) int {
	return s.vertex.DrawAny(rng)
}

// DrawVertexUniformly draws uniformly among vertices with outgoing edges.
func (s *VertexContext) DrawVertexUniformly(rng *rand.Rand) int {
	return s.vertexUniform.DrawAny(rng)
}

// DrawContext draws an out-neighbour of v by edge weight. v must have out-edges.
func (s *VertexContext) DrawContext(rng *rand.Rand, v int) int {
	return s.contexts[s.context.Draw(rng, v)]
}

// DrawContextSafely is DrawContext returning NoSample when v has no out-edges.
func (s *VertexContext) DrawContextSafely(rng *rand.Rand, v int) int {
	p := s.context.DrawSafely(rng, v)
	if p == alias.NoSample {
		return NoSample
	}
	return s.contexts[p]
}

// DrawContextUniformly draws uniformly among vertices with incoming edges.
func (s *VertexContext) DrawContextUniformly(rng *rand.Rand) int {
	return s.contextUniform.DrawAny(rng)
}

// DrawNegative draws a negative context from the skewed in-degree distribution.
func (s *VertexContext) DrawNegative(rng *rand.Rand) int {
	return s.negative.DrawAny(rng)
}

// FeedSampledContexts appends up to n weighted context draws of v to dst.
// Nothing is appended when v has no out-edges.
func (s *VertexContext) FeedSampledContexts(rng *rand.Rand, v, n int, dst []int) []int {
	for i := 0; i < n; i++ {
		c := s.DrawContextSafely(rng, v)
		if c == NoSample {
			return dst
		}
		dst = append(dst, c)
	}
	return dst
}

// DrawWalk walks up to steps hops from start. The start vertex is not part of the
// result, and the walk ends early at the first vertex without outgoing edges, so
// the result may be shorter than steps (or empty).
func (s *VertexContext) DrawWalk(rng *rand.Rand, start, steps int) []int {
	walk := make([]int, 0, steps)
	node := start
	for i := 0; i < steps; i++ {
		node = s.DrawContextSafely(rng, node)
		if node == NoSample {
			return walk
		}
		walk = append(walk, node)
	}
	return walk
}

// DrawSkipGram draws one walk of up to walkLength hops from start and emits
// (center, context) pairs: for every position a window radius is drawn from
// [1, windowSize] and the position is paired with every other position inside it.
// Both returned slices have the same, variable length.
func (s *VertexContext) DrawSkipGram(rng *rand.Rand, start, walkLength, windowSize int) (centers, contexts []int) {
	walk := s.DrawWalk(rng, start, walkLength)
	last := len(walk) - 1
	for i := range walk {
		reduce := 1
		if windowSize > 1 {
			reduce += rng.IntN(windowSize)
		}
		left := max(i-reduce, 0)
		right := min(i+reduce, last)
		for j := left; j <= right; j++ {
			if j == i {
				continue
			}
			centers = append(centers, walk[i])
			contexts = append(contexts, walk[j])
		}
	}
	return centers, contexts
}
