// Package alias implements Walker's alias method over many independent discrete
// distributions stored back to back in shared flat arrays.
//
// Every call to Append builds one alias table and returns a handle. Handles address
// an (offset, length) window of the flat acceptance/alias arrays, so a bank can hold
// millions of per-vertex distributions without a slice header per distribution.
// Drawing from any distribution is O(1) regardless of its size.
//
// A Bank is built once and is read-only afterwards; draws take a caller-owned random
// source so that concurrent workers never share mutable state.
package alias

import (
	"math"
	"math/rand/v2"
)

// NoSample is returned by DrawSafely when the distribution is empty.
const NoSample = -1

// Bank is a flat arena of alias tables.
type Bank struct {
	offset []int
	length []int

	// acceptance[i] is the probability of keeping position i; alias[i] is the
	// bank-global position taken otherwise.
	acceptance []float64
	alias      []int
}

// New returns an empty Bank.
func New() *Bank {
	return &Bank{}
}

// NewRand returns a random source for a single worker.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Append builds the alias table of weights[i]^power and returns its handle.
//
// The powered weights are normalised to mean 1 and split into a light block (< 1)
// and a heavy block (>= 1). Light positions are paired with heavy ones until one
// block runs out; the heavy position absorbs the light one's deficit and moves back
// to the block matching its residual. Whatever remains keeps acceptance >= 1 and
// aliases itself. A distribution whose powered weights sum to zero degenerates to
// the uniform distribution.
func (b *Bank) Append(weights []float64, power float64) int {
	base := len(b.alias)
	n := len(weights)
	handle := len(b.offset)
	b.offset = append(b.offset, base)
	b.length = append(b.length, n)

	norm := make([]float64, n)
	var sum float64
	for i, w := range weights {
		norm[i] = math.Pow(w, power)
		sum += norm[i]
	}

	for i := 0; i < n; i++ {
		b.alias = append(b.alias, base+i)
		b.acceptance = append(b.acceptance, 1)
	}
	if n == 0 || sum <= 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
		return handle
	}

	scale := float64(n) / sum
	light := make([]int, 0, n)
	heavy := make([]int, 0, n)
	for i := range norm {
		norm[i] *= scale
		if norm[i] < 1 {
			light = append(light, i)
		} else {
			heavy = append(heavy, i)
		}
	}

	for len(light) > 0 && len(heavy) > 0 {
		l := light[len(light)-1]
		light = light[:len(light)-1]
		h := heavy[len(heavy)-1]
		heavy = heavy[:len(heavy)-1]

		b.acceptance[base+l] = norm[l]
		b.alias[base+l] = base + h

		norm[h] = norm[h] + norm[l] - 1
		if norm[h] < 1 {
			light = append(light, h)
		} else {
			heavy = append(heavy, h)
		}
	}
	// Leftovers in either block are full-probability entries: they keep acceptance 1
	// and alias themselves, which absorbs floating point drift.
	return handle
}

func (b *Bank) pick(rng *rand.Rand, pos int) int {
	if rng.Float64() < b.acceptance[pos] {
		return pos
	}
	return b.alias[pos]
}

// Draw samples distribution k and returns a bank-global position.
// Subtract Offset(k) to obtain the position inside the distribution.
// k must refer to a non-empty distribution.
func (b *Bank) Draw(rng *rand.Rand, k int) int {
	return b.pick(rng, b.offset[k]+rng.IntN(b.length[k]))
}

// DrawSafely is Draw returning NoSample for an empty distribution.
func (b *Bank) DrawSafely(rng *rand.Rand, k int) int {
	if b.length[k] == 0 {
		return NoSample
	}
	return b.pick(rng, b.offset[k]+rng.IntN(b.length[k]))
}

// DrawAny runs one weighted draw over the whole bank. It is meaningful for banks
// that hold a single distribution.
func (b *Bank) DrawAny(rng *rand.Rand) int {
	return b.pick(rng, rng.IntN(len(b.alias)))
}

// DrawUniformly returns a bank-global position chosen uniformly, ignoring weights.
func (b *Bank) DrawUniformly(rng *rand.Rand) int {
	return rng.IntN(len(b.alias))
}

// Offset returns the first bank-global position of distribution k.
func (b *Bank) Offset(k int) int { return b.offset[k] }

// Length returns the domain size of distribution k.
func (b *Bank) Length(k int) int { return b.length[k] }

// Distributions returns the number of distributions appended so far.
func (b *Bank) Distributions() int { return len(b.offset) }

// Size returns the total number of entries over all distributions.
func (b *Bank) Size() int { return len(b.alias) }
