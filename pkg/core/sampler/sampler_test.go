package sampler

import (
	"strings"
	"testing"

	"github.com/sanonone/kektorgraph/pkg/core/alias"
	"github.com/sanonone/kektorgraph/pkg/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadGraph(t *testing.T, data string, undirected bool) *graph.Graph {
	t.Helper()
	g, err := graph.LoadReader(strings.NewReader(data), graph.Options{Undirected: undirected, Capacity: 1024, Name: "test"})
	require.NoError(t, err)
	return g
}

// a -> b -> c, c is a dead end.
const chain = "a\tb\t1\nb\tc\t1\n"

const cycle = "A\tB\t1\nB\tC\t1\nC\tD\t1\nD\tA\t1\n"

func TestWalkStopsAtDeadEnd(t *testing.T) {
	g := loadGraph(t, chain, false)
	s, err := NewVertexContext(g)
	require.NoError(t, err)
	rng := alias.NewRand(1)

	walk := s.DrawWalk(rng, g.Index("a"), 10)
	assert.Equal(t, []int{g.Index("b"), g.Index("c")}, walk)

	assert.Empty(t, s.DrawWalk(rng, g.Index("c"), 10))
	assert.Equal(t, NoSample, s.DrawContextSafely(rng, g.Index("c")))
}

func TestWalkFollowsEdges(t *testing.T) {
	g := loadGraph(t, cycle, false)
	s, err := NewVertexContext(g)
	require.NoError(t, err)
	rng := alias.NewRand(2)

	walk := s.DrawWalk(rng, g.Index("A"), 8)
	require.Len(t, walk, 8)
	prev := g.Index("A")
	for _, v := range walk {
		_, ok := g.Weight(prev, v)
		assert.True(t, ok, "step %s -> %s is not an edge", g.Label(prev), g.Label(v))
		prev = v
	}
}

func TestSkipGramPairsStayInsideWalk(t *testing.T) {
	g := loadGraph(t, cycle, false)
	s, err := NewVertexContext(g)
	require.NoError(t, err)
	rng := alias.NewRand(3)

	for i := 0; i < 200; i++ {
		centers, contexts := s.DrawSkipGram(rng, g.Index("A"), 6, 3)
		require.Equal(t, len(centers), len(contexts))
		require.NotEmpty(t, centers)
		for k := range centers {
			assert.NotEqual(t, centers[k], contexts[k], "a cycle of 4 never pairs a vertex with itself within radius 3")
			assert.GreaterOrEqual(t, contexts[k], 0)
			assert.Less(t, contexts[k], g.VertexCount())
		}
	}
}

func TestSkipGramOnShortWalk(t *testing.T) {
	g := loadGraph(t, chain, false)
	s, err := NewVertexContext(g)
	require.NoError(t, err)
	rng := alias.NewRand(4)

	// The walk from a is [b c]; every window covers both positions.
	centers, contexts := s.DrawSkipGram(rng, g.Index("a"), 10, 5)
	b, c := g.Index("b"), g.Index("c")
	assert.Equal(t, []int{b, c}, centers)
	assert.Equal(t, []int{c, b}, contexts)

	centers, contexts = s.DrawSkipGram(rng, g.Index("c"), 10, 5)
	assert.Empty(t, centers)
	assert.Empty(t, contexts)
}

func TestFeedSampledContexts(t *testing.T) {
	g := loadGraph(t, "a\tb\t1\na\tc\t3\nb\tc\t1\n", false)
	s, err := NewVertexContext(g)
	require.NoError(t, err)
	rng := alias.NewRand(6)

	a, b, c := g.Index("a"), g.Index("b"), g.Index("c")
	dst := s.FeedSampledContexts(rng, b, 3, []int{b})
	assert.Equal(t, []int{b, c, c, c}, dst)

	sampled := s.FeedSampledContexts(rng, a, 50, nil)
	assert.Len(t, sampled, 50)
	assert.Subset(t, []int{b, c}, sampled)
	assert.Empty(t, s.FeedSampledContexts(rng, c, 50, nil))
}

func TestVertexDrawFollowsOutDegree(t *testing.T) {
	g := loadGraph(t, "a\tb\t1\na\tc\t3\nb\tc\t1\n", false)
	s, err := NewVertexContext(g)
	require.NoError(t, err)
	rng := alias.NewRand(7)

	counts := make([]int, g.VertexCount())
	const draws = 100_000
	for i := 0; i < draws; i++ {
		counts[s.DrawVertex(rng)]++
	}
	// Out-weight: a=4, b=1, c=0.
	assert.InDelta(t, 0.8, float64(counts[g.Index("a")])/draws, 0.01)
	assert.InDelta(t, 0.2, float64(counts[g.Index("b")])/draws, 0.01)
	assert.Zero(t, counts[g.Index("c")])

	for i := 0; i < 1000; i++ {
		assert.NotEqual(t, g.Index("a"), s.DrawNegative(rng), "a has no incoming edges")
		assert.NotEqual(t, g.Index("c"), s.DrawVertexUniformly(rng))
		assert.NotEqual(t, g.Index("a"), s.DrawContextUniformly(rng))
	}
}

func TestEmptyGraphIsRejected(t *testing.T) {
	g := loadGraph(t, "", false)
	_, err := NewVertexContext(g)
	assert.ErrorIs(t, err, ErrNoEdges)
	_, err = NewEdge(g)
	assert.ErrorIs(t, err, ErrNoEdges)
}

func TestEdgeSampler(t *testing.T) {
	g := loadGraph(t, "a\tb\t1\na\tc\t3\nb\tc\t1\n", false)
	s, err := NewEdge(g)
	require.NoError(t, err)
	rng := alias.NewRand(9)

	a, b, c := g.Index("a"), g.Index("b"), g.Index("c")
	assert.Equal(t, 3, s.EdgeCount())

	hits := map[[2]int]int{}
	const draws = 100_000
	for i := 0; i < draws; i++ {
		from, to := s.DrawEdge(rng)
		hits[[2]int{from, to}]++
	}
	require.Len(t, hits, 3)
	assert.InDelta(t, 0.6, float64(hits[[2]int{a, c}])/draws, 0.01)
	assert.InDelta(t, 0.2, float64(hits[[2]int{a, b}])/draws, 0.01)
	assert.InDelta(t, 0.2, float64(hits[[2]int{b, c}])/draws, 0.01)

	for k := 0; k < 1000; k++ {
		assert.NotEqual(t, a, s.DrawNegative(rng))
		assert.NotEqual(t, a, s.DrawContextUniformly(rng))
		assert.NotEqual(t, c, s.DrawVertexUniformly(rng))
	}
}
