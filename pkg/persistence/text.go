// Package persistence writes trained embeddings to disk.
//
// Two formats are supported. The text format holds one vertex per line,
// "<label> <d0> <d1> ... <dD-1>", space separated, and can be appended to so that
// several vertex subsets land in one file. The snapshot format is a sequence of
// CRC-checked binary frames holding reduced-precision vectors, used to move a
// trained table between runs.
package persistence

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// EmbeddingWriter writes the text embedding format to a file.
type EmbeddingWriter struct {
	mu    sync.Mutex
	file  *os.File
	buf   *bufio.Writer
	path  string
	line  []byte
	lines int
}

// NewEmbeddingWriter opens path for writing. With appendMode the file is extended,
// otherwise it is truncated.
func NewEmbeddingWriter(path string, appendMode bool) (*EmbeddingWriter, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding file: %w", err)
	}

	return &EmbeddingWriter{
		file: file,
		buf:  bufio.NewWriterSize(file, 64*1024),
		path: path,
	}, nil
}

// WriteVector appends one "<label> <values...>" line.
func (w *EmbeddingWriter) WriteVector(label string, vec []float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.line = AppendVector(append(w.line[:0], label...), vec)
	w.line = append(w.line, '\n')
	if _, err := w.buf.Write(w.line); err != nil {
		return err
	}
	w.lines++
	return nil
}

// Lines returns how many vectors this writer has written.
func (w *EmbeddingWriter) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// Flush forces buffered lines to the file descriptor.
func (w *EmbeddingWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

// Sync flushes and fsyncs the file.
func (w *EmbeddingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes and closes the file.
func (w *EmbeddingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// Path returns the file path.
func (w *EmbeddingWriter) Path() string {
	return w.path
}

// AppendVector appends the space-prefixed decimal form of every value to dst.
func AppendVector(dst []byte, vec []float64) []byte {
	for _, v := range vec {
		dst = append(dst, ' ')
		dst = strconv.AppendFloat(dst, v, 'g', 6, 64)
	}
	return dst
}

// ParseEmbeddingLine splits a text-format line into its label and values.
func ParseEmbeddingLine(line string) (string, []float64, error) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "", nil, fmt.Errorf("embedding line has %d fields, want a label and at least one value", len(parts))
	}
	vec := make([]float64, len(parts)-1)
	for i, part := range parts[1:] {
		val, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return "", nil, fmt.Errorf("embedding %q: %w", parts[0], err)
		}
		vec[i] = val
	}
	return parts[0], vec, nil
}

// ReadEmbeddings parses a whole text-format stream. Blank lines are ignored.
func ReadEmbeddings(r io.Reader, fn func(label string, vec []float64) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		label, vec, err := ParseEmbeddingLine(line)
		if err != nil {
			return err
		}
		if err := fn(label, vec); err != nil {
			return err
		}
	}
	return scanner.Err()
}
