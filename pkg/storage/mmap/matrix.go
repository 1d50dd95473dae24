// Package mmap backs a dense float64 matrix with a memory-mapped file, so an
// embedding table can outlive the process and be reopened for a warm start.
//
// File layout: a 64-byte header followed by rows*dim little-endian float64 values.
//
//	[0:4]   magic "KGMX"
//	[4:8]   format version
//	[8:16]  rows
//	[16:20] dimension
//	[20]    initialized flag
//	[21:64] reserved
package mmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"unsafe"
)

const (
	MatrixMagic      = 0x584D474B // "KGMX"
	MatrixVersion    = 1
	MatrixHeaderSize = 64

	flagOffset = 20
)

var (
	ErrInvalidMagic     = errors.New("mmap: not a matrix file (magic mismatch)")
	ErrUnsupported      = errors.New("mmap: unsupported matrix version")
	ErrShapeMismatch    = errors.New("mmap: matrix shape mismatch")
	ErrInvalidDimension = errors.New("mmap: rows and dimension must be > 0")
)

// Matrix is a rows x dim float64 matrix living in a mapped file.
type Matrix struct {
	path   string
	file   *os.File
	data   []byte
	rows   int
	dim    int
	values []float64
}

// Open maps the matrix file at path, creating it when missing. An existing file
// must carry the same shape.
func Open(path string, rows, dim int) (*Matrix, error) {
	if rows <= 0 || dim <= 0 {
		return nil, ErrInvalidDimension
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open matrix file %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	size := MatrixHeaderSize + rows*dim*8
	isNewFile := info.Size() == 0
	if info.Size() < int64(size) {
		if !isNewFile {
			file.Close()
			return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrShapeMismatch, path, info.Size(), size)
		}
		if err := file.Truncate(int64(size)); err != nil {
			file.Close()
			return nil, err
		}
	}

	data, err := mmapFile(file.Fd(), size)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}

	if isNewFile {
		binary.LittleEndian.PutUint32(data[0:4], MatrixMagic)
		binary.LittleEndian.PutUint32(data[4:8], MatrixVersion)
		binary.LittleEndian.PutUint64(data[8:16], uint64(rows))
		binary.LittleEndian.PutUint32(data[16:20], uint32(dim))
	} else if err := checkHeader(data, rows, dim); err != nil {
		munmapFile(data)
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m := &Matrix{
		path: path,
		file: file,
		data: data,
		rows: rows,
		dim:  dim,
	}
	m.values = unsafe.Slice((*float64)(unsafe.Pointer(&data[MatrixHeaderSize])), rows*dim)
	return m, nil
}

func checkHeader(data []byte, rows, dim int) error {
	if binary.LittleEndian.Uint32(data[0:4]) != MatrixMagic {
		return ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != MatrixVersion {
		return fmt.Errorf("%w %d", ErrUnsupported, v)
	}
	fileRows := binary.LittleEndian.Uint64(data[8:16])
	fileDim := binary.LittleEndian.Uint32(data[16:20])
	if fileRows != uint64(rows) || fileDim != uint32(dim) {
		return fmt.Errorf("%w: expected %dx%d, got %dx%d", ErrShapeMismatch, rows, dim, fileRows, fileDim)
	}
	return nil
}

// Float64s returns the matrix payload, row-major. The slice aliases the mapping
// and is invalid after Close.
func (m *Matrix) Float64s() []float64 { return m.values }

func (m *Matrix) Rows() int      { return m.rows }
func (m *Matrix) Dimension() int { return m.dim }
func (m *Matrix) Path() string   { return m.path }

// Initialized reports whether the payload was marked as filled by a previous run.
func (m *Matrix) Initialized() bool { return m.data[flagOffset] == 1 }

// MarkInitialized records that the payload holds valid values.
func (m *Matrix) MarkInitialized() { m.data[flagOffset] = 1 }

// Sync flushes dirty pages to the file.
func (m *Matrix) Sync() error {
	return flushFile(m.data)
}

// Close flushes, unmaps and closes the file. The matrix must not be used afterwards.
func (m *Matrix) Close() error {
	if m.data == nil {
		return nil
	}
	firstErr := flushFile(m.data)
	if err := munmapFile(m.data); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	m.data = nil
	m.values = nil
	return firstErr
}
