// Package stringindex implements a fixed-capacity open-addressing hash table that
// interns vertex labels into dense integer indices.
//
// Indices are assigned in strict first-seen order starting at 0. The table never
// resizes and never deletes: the label arena is append-only and every label keeps its
// index for the lifetime of the Index. Collisions are resolved by linear probing with
// wraparound.
package stringindex

import (
	"errors"
	"fmt"
)

const (
	// DefaultCapacity is the number of slots allocated when no capacity is configured.
	DefaultCapacity = 30_000_000

	// NotFound is returned by Search for labels that were never inserted.
	NotFound = -1

	// MaxLoadFactor is the occupancy ratio at which Insert starts refusing new labels.
	// Linear probing degrades sharply near a full table, and a completely full table
	// would make the probe sequence unbounded.
	MaxLoadFactor = 0.9

	hashSeed = 131
	empty    = -1
)

// ErrCapacityExceeded is returned when an insertion would push the table past MaxLoadFactor.
var ErrCapacityExceeded = errors.New("string index capacity exceeded")

// Index maps string labels to dense integer indices.
// It is not safe for concurrent writers; concurrent readers are fine once loading is done.
type Index struct {
	capacity int
	limit    int
	table    []int32
	labels   []string
}

// New allocates an Index with the given number of slots.
// A non-positive capacity selects DefaultCapacity. A single-slot Index accepts no
// labels.
func New(capacity int) *Index {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	table := make([]int32, capacity)
	for i := range table {
		table[i] = empty
	}
	// At least one slot always stays empty so every probe sequence terminates.
	limit := min(int(float64(capacity)*MaxLoadFactor), capacity-1)
	return &Index{
		capacity: capacity,
		limit:    limit,
		table:    table,
	}
}

// hash is the BKDR rolling hash with seed 131, reduced modulo the capacity.
func (x *Index) hash(label string) int {
	var h uint32
	for i := 0; i < len(label); i++ {
		h = h*hashSeed + uint32(label[i])
	}
	return int(h % uint32(x.capacity))
}

// Insert stores label and returns its new index.
//
// Insert does not check whether the label is already present: inserting the same
// label twice yields two indices and Search keeps returning the first one. Callers
// that need idempotence use Search first, or Intern.
func (x *Index) Insert(label string) (int, error) {
	if len(x.labels) >= x.limit {
		return NotFound, fmt.Errorf("%w: %d labels in %d slots", ErrCapacityExceeded, len(x.labels), x.capacity)
	}
	pos := x.hash(label)
	for x.table[pos] != empty {
		pos++
		if pos == x.capacity {
			pos = 0
		}
	}
	idx := len(x.labels)
	x.table[pos] = int32(idx)
	x.labels = append(x.labels, label)
	return idx, nil
}

// Search returns the index of label, or NotFound. It inspects at most Cap slots.
func (x *Index) Search(label string) int {
	pos := x.hash(label)
	for probes := 0; probes < x.capacity; probes++ {
		slot := x.table[pos]
		if slot == empty {
			return NotFound
		}
		if x.labels[slot] == label {
			return int(slot)
		}
		pos++
		if pos == x.capacity {
			pos = 0
		}
	}
	return NotFound
}

// Intern returns the index of label, inserting it on first sight.
// The boolean reports whether the label was already known.
func (x *Index) Intern(label string) (int, bool, error) {
	if idx := x.Search(label); idx != NotFound {
		return idx, true, nil
	}
	idx, err := x.Insert(label)
	return idx, false, err
}

// Label returns the label stored at idx.
func (x *Index) Label(idx int) string {
	return x.labels[idx]
}

// Labels returns the label arena in index order. The slice must not be modified.
func (x *Index) Labels() []string {
	return x.labels
}

// Len returns the number of labels stored.
func (x *Index) Len() int {
	return len(x.labels)
}

// Cap returns the number of slots in the table.
func (x *Index) Cap() int {
	return x.capacity
}
