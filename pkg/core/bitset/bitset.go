// Package bitset provides a growable dense set of vertex indices.
package bitset

import "math/bits"

type BitSet struct {
	buckets []uint64
}

func New(initialCapacity int) *BitSet {
	numBuckets := (initialCapacity >> 6) + 1 // >> 6 == / 64
	return &BitSet{
		buckets: make([]uint64, numBuckets),
	}
}

func (bs *BitSet) grow(n int) {
	neededBuckets := (n >> 6) + 1
	if len(bs.buckets) < neededBuckets {
		newBuckets := make([]uint64, neededBuckets)
		copy(newBuckets, bs.buckets)
		bs.buckets = newBuckets
	}
}

// Add inserts n and reports whether it was absent before.
func (bs *BitSet) Add(n int) bool {
	bucketIndex := n >> 6
	if bucketIndex >= len(bs.buckets) {
		bs.grow(n)
	}
	mask := uint64(1) << (uint(n) & 63) // n & 63 == n % 64
	if bs.buckets[bucketIndex]&mask != 0 {
		return false
	}
	bs.buckets[bucketIndex] |= mask
	return true
}

// Members returns the members in ascending order.
func (bs *BitSet) Members() []int {
	var out []int
	for i, b := range bs.buckets {
		for b != 0 {
			out = append(out, i<<6+bits.TrailingZeros64(b))
			b &= b - 1
		}
	}
	return out
}
