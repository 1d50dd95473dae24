package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emb.mat")

	m, err := Open(path, 3, 4)
	require.NoError(t, err)
	assert.False(t, m.Initialized())
	require.Len(t, m.Float64s(), 12)

	for i := range m.Float64s() {
		m.Float64s()[i] = float64(i) * 0.5
	}
	m.MarkInitialized()
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "second close is a no-op")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(MatrixHeaderSize+12*8), info.Size())

	m, err = Open(path, 3, 4)
	require.NoError(t, err)
	defer m.Close()
	assert.True(t, m.Initialized())
	assert.Equal(t, 5.5, m.Float64s()[11])
	assert.Equal(t, 3, m.Rows())
	assert.Equal(t, 4, m.Dimension())
}

func TestMatrixRejectsShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emb.mat")
	m, err := Open(path, 3, 4)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = Open(path, 3, 8)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestMatrixRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.mat")
	require.NoError(t, os.WriteFile(path, make([]byte, MatrixHeaderSize+16), 0644))

	_, err := Open(path, 1, 2)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestMatrixRejectsEmptyShape(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.mat"), 0, 4)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}
