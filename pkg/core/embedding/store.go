// Package embedding holds the per-vertex vectors being trained.
//
// A Store is a flat row-major []float64 shared by every training worker. Updates
// are plain unsynchronized read-modify-writes: workers touching the same vertex at
// the same time may lose part of each other's update, which lock-free SGD
// (Hogwild) tolerates. No method of Store takes a lock.
package embedding

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sanonone/kektorgraph/pkg/core/alias"
	"github.com/sanonone/kektorgraph/pkg/storage/mmap"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrLabelCount        = errors.New("label count does not match embedding count")
)

// Store is a dense n x dim embedding table.
type Store struct {
	n      int
	dim    int
	values []float64

	// matrix is non-nil when values live in a mapped file.
	matrix *mmap.Matrix
	warm   bool
}

// New allocates a heap-backed store for n vectors of length dim, filled with
// small uniform noise in [-0.5/dim, 0.5/dim).
func New(n, dim int, seed uint64) *Store {
	s := &Store{n: n, dim: dim, values: make([]float64, n*dim)}
	s.randomize(seed)
	return s
}

// NewMapped opens a store whose values live in the file at path. A file written
// by a previous run with the same shape is reused as is (warm start); a new file
// is filled with noise.
func NewMapped(path string, n, dim int, seed uint64) (*Store, error) {
	m, err := mmap.Open(path, n, dim)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapped embeddings: %w", err)
	}
	s := &Store{n: n, dim: dim, values: m.Float64s(), matrix: m}
	if m.Initialized() {
		s.warm = true
		slog.Info("[Embedding] Warm start from mapped file", "path", path, "vertices", n, "dimension", dim)
		return s, nil
	}
	s.randomize(seed)
	m.MarkInitialized()
	return s, nil
}

func (s *Store) randomize(seed uint64) {
	rng := alias.NewRand(seed)
	scale := float64(s.dim)
	for i := range s.values {
		s.values[i] = (rng.Float64() - 0.5) / scale
	}
}

// Len returns the number of vectors.
func (s *Store) Len() int { return s.n }

// Dimension returns the vector length.
func (s *Store) Dimension() int { return s.dim }

// WarmStart reports whether the values were loaded from an existing mapped file.
func (s *Store) WarmStart() bool { return s.warm }

// Vector returns the live vector of vertex i. Writes through the slice are
// visible to every other user of the store.
func (s *Store) Vector(i int) []float64 {
	off := i * s.dim
	return s.values[off : off+s.dim : off+s.dim]
}

// UpdateWithL2 applies e[i][d] += alpha*(loss[d] - lambda*e[i][d]).
func (s *Store) UpdateWithL2(i int, loss []float64, alpha, lambda float64) {
	e := s.Vector(i)
	for d := range e {
		e[d] += alpha * (loss[d] - lambda*e[d])
	}
}

// TextGCN writes into dst the first vector blended 50/50 with the mean of the
// remaining ones, and returns dst. With a single index dst holds a copy of that
// vector; with none it is zeroed. dst must have length Dimension.
func (s *Store) TextGCN(dst []float64, indexes []int) []float64 {
	clear(dst)
	if len(indexes) == 0 {
		return dst
	}
	own := s.Vector(indexes[0])
	rest := indexes[1:]
	if len(rest) == 0 {
		copy(dst, own)
		return dst
	}
	for _, i := range rest {
		floats.Add(dst, s.Vector(i))
	}
	size := float64(len(rest))
	for d := range dst {
		dst[d] = (own[d] + dst[d]/size) / 2
	}
	return dst
}

// Sync flushes a mapped store to its file. It is a no-op for heap stores.
func (s *Store) Sync() error {
	if s.matrix == nil {
		return nil
	}
	return s.matrix.Sync()
}

// Close releases a mapped store. Vectors obtained earlier must not be used after Close.
func (s *Store) Close() error {
	if s.matrix == nil {
		return nil
	}
	err := s.matrix.Close()
	s.values = nil
	return err
}
