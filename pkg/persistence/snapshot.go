package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
	"github.com/x448/float16"
)

// Precision is the on-disk element type of snapshot vectors.
type Precision uint8

const (
	Float32 Precision = 0
	Float16 Precision = 1
)

// snapshot header payload: RunID(16) Count(8) Dim(4) Precision(1)
const snapshotHeaderSize = 16 + 8 + 4 + 1

var (
	ErrUnknownPrecision = errors.New("unknown snapshot precision")
	ErrMissingHeader    = errors.New("snapshot does not start with a header frame")
	ErrMalformedRecord  = errors.New("malformed snapshot record")
)

// ParsePrecision maps "float32" / "float16" to a Precision.
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "float32", "":
		return Float32, nil
	case "float16":
		return Float16, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPrecision, s)
}

func (p Precision) String() string {
	switch p {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	}
	return fmt.Sprintf("precision(%d)", uint8(p))
}

func (p Precision) width() int {
	if p == Float16 {
		return 2
	}
	return 4
}

// SnapshotHeader describes the vectors that follow it.
type SnapshotHeader struct {
	RunID     uuid.UUID
	Count     uint64
	Dim       int
	Precision Precision
}

// SnapshotWriter encodes labelled vectors as snapshot frames.
type SnapshotWriter struct {
	fw      *FrameWriter
	header  SnapshotHeader
	payload []byte
	written uint64
}

// NewSnapshotWriter writes the header frame and returns a writer for the vectors.
func NewSnapshotWriter(w io.Writer, h SnapshotHeader) (*SnapshotWriter, error) {
	if h.Precision != Float32 && h.Precision != Float16 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPrecision, h.Precision)
	}
	sw := &SnapshotWriter{fw: NewFrameWriter(w), header: h}

	buf := make([]byte, snapshotHeaderSize)
	copy(buf[0:16], h.RunID[:])
	binary.LittleEndian.PutUint64(buf[16:24], h.Count)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.Dim))
	buf[28] = byte(h.Precision)
	if err := sw.fw.WriteFrame(OpSnapshotHeader, buf); err != nil {
		return nil, fmt.Errorf("failed to write snapshot header: %w", err)
	}
	return sw, nil
}

// WriteVector appends one record. Record payload:
// [LabelLen(2)][Label][Values(Dim * width)].
func (sw *SnapshotWriter) WriteVector(label string, vec []float64) error {
	if len(vec) != sw.header.Dim {
		return fmt.Errorf("vector %q has dimension %d, snapshot expects %d", label, len(vec), sw.header.Dim)
	}
	if len(label) > math.MaxUint16 {
		return fmt.Errorf("label %.32q... exceeds %d bytes", label, math.MaxUint16)
	}

	p := sw.payload[:0]
	p = binary.LittleEndian.AppendUint16(p, uint16(len(label)))
	p = append(p, label...)
	switch sw.header.Precision {
	case Float16:
		for _, v := range vec {
			p = binary.LittleEndian.AppendUint16(p, float16.Fromfloat32(float32(v)).Bits())
		}
	default:
		for _, v := range vec {
			p = binary.LittleEndian.AppendUint32(p, math.Float32bits(float32(v)))
		}
	}
	sw.payload = p

	if err := sw.fw.WriteFrame(OpVector, p); err != nil {
		return err
	}
	sw.written++
	return nil
}

// Written returns the number of records written so far.
func (sw *SnapshotWriter) Written() uint64 { return sw.written }

// SnapshotReader decodes a snapshot stream.
type SnapshotReader struct {
	r      io.Reader
	header SnapshotHeader
}

// NewSnapshotReader reads and validates the header frame.
func NewSnapshotReader(r io.Reader) (*SnapshotReader, error) {
	op, payload, err := ReadFrame(r)
	if err != nil {
		if err == io.EOF {
			return nil, ErrMissingHeader
		}
		return nil, err
	}
	if op != OpSnapshotHeader || len(payload) != snapshotHeaderSize {
		return nil, ErrMissingHeader
	}

	var h SnapshotHeader
	copy(h.RunID[:], payload[0:16])
	h.Count = binary.LittleEndian.Uint64(payload[16:24])
	h.Dim = int(binary.LittleEndian.Uint32(payload[24:28]))
	h.Precision = Precision(payload[28])
	if h.Precision != Float32 && h.Precision != Float16 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPrecision, h.Precision)
	}
	return &SnapshotReader{r: r, header: h}, nil
}

// Header returns the decoded snapshot header.
func (sr *SnapshotReader) Header() SnapshotHeader { return sr.header }

// Next decodes the next record into dst (grown as needed) and returns it.
// It returns io.EOF after the last record.
func (sr *SnapshotReader) Next(dst []float64) (string, []float64, error) {
	op, payload, err := ReadFrame(sr.r)
	if err != nil {
		return "", nil, err
	}
	if op != OpVector || len(payload) < 2 {
		return "", nil, ErrMalformedRecord
	}

	labelLen := int(binary.LittleEndian.Uint16(payload[0:2]))
	width := sr.header.Precision.width()
	if len(payload) != 2+labelLen+sr.header.Dim*width {
		return "", nil, ErrMalformedRecord
	}
	label := string(payload[2 : 2+labelLen])
	values := payload[2+labelLen:]

	if cap(dst) < sr.header.Dim {
		dst = make([]float64, sr.header.Dim)
	}
	dst = dst[:sr.header.Dim]
	for i := range dst {
		if sr.header.Precision == Float16 {
			dst[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(values[i*2:])).Float32())
		} else {
			dst[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(values[i*4:])))
		}
	}
	return label, dst, nil
}
