package stringindex

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAssignsFirstSeenOrder(t *testing.T) {
	idx := New(1024)
	labels := []string{"alice", "bob", "carol", "dave", "eve"}

	for want, label := range labels {
		got, err := idx.Insert(label)
		require.NoError(t, err)
		assert.Equal(t, want, got, "label %q", label)
	}

	for want, label := range labels {
		assert.Equal(t, want, idx.Search(label), "search %q", label)
		assert.Equal(t, label, idx.Label(want))
	}
	assert.Equal(t, len(labels), idx.Len())
	assert.Equal(t, labels, idx.Labels())
}

func TestSearchMissing(t *testing.T) {
	idx := New(64)
	_, err := idx.Insert("present")
	require.NoError(t, err)

	assert.Equal(t, NotFound, idx.Search("absent"))
	assert.Equal(t, NotFound, New(64).Search("anything"))
}

func TestCollisionsWrapAround(t *testing.T) {
	// A tiny table forces long collision chains that wrap past the last slot.
	idx := New(11)
	labels := []string{"a", "l", "w", "b", "m", "x", "c", "n", "y"}
	for i, label := range labels {
		got, err := idx.Insert(label)
		require.NoError(t, err)
		require.Equal(t, i, got)
	}
	for i, label := range labels {
		assert.Equal(t, i, idx.Search(label), "label %q", label)
	}
}

func TestRoundTripManyLabels(t *testing.T) {
	const n = 5000
	idx := New(2 * n)
	for i := 0; i < n; i++ {
		got, err := idx.Insert(fmt.Sprintf("vertex-%d", i))
		require.NoError(t, err)
		require.Equal(t, i, got)
	}
	for i := 0; i < n; i++ {
		require.Equal(t, i, idx.Search(fmt.Sprintf("vertex-%d", i)))
	}
}

func TestInternIsIdempotent(t *testing.T) {
	idx := New(32)

	first, known, err := idx.Intern("x")
	require.NoError(t, err)
	assert.False(t, known)

	again, known, err := idx.Intern("x")
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, idx.Len())
}

func TestCapacityExceeded(t *testing.T) {
	idx := New(10) // limit is 9 labels

	for i := 0; i < 9; i++ {
		_, err := idx.Insert(fmt.Sprintf("k%d", i))
		require.NoError(t, err)
	}
	_, err := idx.Insert("overflow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.Equal(t, 9, idx.Len())
	assert.Equal(t, NotFound, idx.Search("overflow"))
}

func TestTinyTablesFailInsteadOfProbing(t *testing.T) {
	for _, capacity := range []int{1, 2, 3} {
		t.Run(fmt.Sprint(capacity), func(t *testing.T) {
			idx := New(capacity)
			done := make(chan int, 1)
			go func() {
				n := 0
				for {
					if _, _, err := idx.Intern(fmt.Sprintf("v%d", n)); err != nil {
						assert.ErrorIs(t, err, ErrCapacityExceeded)
						break
					}
					n++
				}
				done <- n
			}()

			select {
			case n := <-done:
				assert.Less(t, n, capacity, "one slot stays empty")
				assert.Equal(t, NotFound, idx.Search("absent"))
			case <-time.After(2 * time.Second):
				t.Fatalf("Intern on a full %d-slot table did not return", capacity)
			}
		})
	}
}

func TestDefaultCapacity(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates the full default table")
	}
	assert.Equal(t, DefaultCapacity, New(0).Cap())
}
