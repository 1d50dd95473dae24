package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddAndMembers(t *testing.T) {
	bs := New(10)
	assert.Empty(t, bs.Members())

	assert.True(t, bs.Add(3))
	assert.False(t, bs.Add(3), "second add reports a duplicate")
	assert.True(t, bs.Add(200), "add beyond the initial capacity grows the set")
	assert.True(t, bs.Add(0))
	assert.True(t, bs.Add(63))
	assert.True(t, bs.Add(64))

	assert.Equal(t, []int{0, 3, 63, 64, 200}, bs.Members())
}
