package embedding

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sanonone/kektorgraph/pkg/core/graph"
	"github.com/sanonone/kektorgraph/pkg/persistence"
)

// Graph is the view of a graph needed to label and aggregate saved vectors.
type Graph interface {
	VertexCount() int
	Label(v int) string
	Edges(v int) []graph.Edge
}

// Save writes every vector, labelled by labels[i], truncating path.
func (s *Store) Save(path string, labels []string) error {
	if len(labels) != s.n {
		return fmt.Errorf("%w: %d labels for %d vectors", ErrLabelCount, len(labels), s.n)
	}
	return s.writeText(path, false, func(emit func(string, []float64) error) error {
		for i, label := range labels {
			if err := emit(label, s.Vector(i)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSubset writes the vectors of the given vertices, labelled through g.
func (s *Store) SaveSubset(path string, g Graph, indexes []int, appendMode bool) error {
	return s.writeText(path, appendMode, func(emit func(string, []float64) error) error {
		for _, i := range indexes {
			if err := emit(g.Label(i), s.Vector(i)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveTranslational writes, for every vertex of g, its vector plus the mean of its
// out-neighbours' vectors. Vertices without out-edges are written unchanged.
func (s *Store) SaveTranslational(path string, g Graph) error {
	fused := make([]float64, s.dim)
	return s.writeText(path, false, func(emit func(string, []float64) error) error {
		for from := 0; from < g.VertexCount(); from++ {
			own := s.Vector(from)
			edges := g.Edges(from)
			if len(edges) == 0 {
				if err := emit(g.Label(from), own); err != nil {
					return err
				}
				continue
			}
			clear(fused)
			for _, e := range edges {
				to := s.Vector(e.To)
				for d := range fused {
					fused[d] += own[d] + to[d]
				}
			}
			branch := float64(len(edges))
			for d := range fused {
				fused[d] /= branch
			}
			if err := emit(g.Label(from), fused); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveGraphConvolution writes, for the given vertices, (own + weighted neighbour
// mean) / 2. Vertices without out-edges, or whose out-edges all weigh zero, are
// written unchanged.
func (s *Store) SaveGraphConvolution(path string, g Graph, indexes []int, appendMode bool) error {
	fused := make([]float64, s.dim)
	return s.writeText(path, appendMode, func(emit func(string, []float64) error) error {
		for _, from := range indexes {
			own := s.Vector(from)
			clear(fused)
			var weightSum float64
			for _, e := range g.Edges(from) {
				weightSum += e.Weight
				to := s.Vector(e.To)
				for d := range fused {
					fused[d] += to[d] * e.Weight
				}
			}
			if weightSum == 0 {
				if err := emit(g.Label(from), own); err != nil {
					return err
				}
				continue
			}
			for d := range fused {
				fused[d] = (own[d] + fused[d]/weightSum) / 2
			}
			if err := emit(g.Label(from), fused); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) writeText(path string, appendMode bool, body func(emit func(string, []float64) error) error) error {
	w, err := persistence.NewEmbeddingWriter(path, appendMode)
	if err != nil {
		return err
	}
	if err := body(w.WriteVector); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	slog.Info("[Embedding] Saved", "path", path, "vectors", w.Lines(), "append", appendMode)
	return nil
}

// WriteSnapshot encodes every vector, labelled by labels[i], as a binary snapshot.
func (s *Store) WriteSnapshot(w io.Writer, labels []string, precision persistence.Precision, runID uuid.UUID) error {
	if len(labels) != s.n {
		return fmt.Errorf("%w: %d labels for %d vectors", ErrLabelCount, len(labels), s.n)
	}
	sw, err := persistence.NewSnapshotWriter(w, persistence.SnapshotHeader{
		RunID:     runID,
		Count:     uint64(s.n),
		Dim:       s.dim,
		Precision: precision,
	})
	if err != nil {
		return err
	}
	for i, label := range labels {
		if err := sw.WriteVector(label, s.Vector(i)); err != nil {
			return err
		}
	}
	return nil
}

// ReadSnapshot copies snapshot vectors into the store. index maps a label to its
// vertex; records whose label maps to a negative index are skipped. It returns
// how many vectors were loaded.
func (s *Store) ReadSnapshot(r io.Reader, index func(label string) int) (int, error) {
	sr, err := persistence.NewSnapshotReader(r)
	if err != nil {
		return 0, err
	}
	if h := sr.Header(); h.Dim != s.dim {
		return 0, fmt.Errorf("%w: snapshot has %d, store has %d", ErrDimensionMismatch, h.Dim, s.dim)
	}

	loaded := 0
	var buf []float64
	for {
		label, vec, err := sr.Next(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return loaded, err
		}
		buf = vec
		i := index(label)
		if i < 0 || i >= s.n {
			continue
		}
		copy(s.Vector(i), vec)
		loaded++
	}
	slog.Info("[Embedding] Snapshot loaded", "run_id", sr.Header().RunID, "vectors", loaded)
	return loaded, nil
}
