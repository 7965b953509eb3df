// Package wire is the compact binary encoding used both for the
// serialized Capsule payload and for control-protocol messages:
// length-prefixed, fixed big-endian, no self-describing field names.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"
	"time"
)

// ErrTruncated is returned when a buffer ends before a declared field.
var ErrTruncated = errors.New("wire: truncated buffer")

// Writer accumulates a length-prefixed binary encoding.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) PutUint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutInt64(v int64) { w.PutUint64(uint64(v)) }

func (w *Writer) PutFloat64(v float64) { w.PutUint64(math.Float64bits(v)) }

func (w *Writer) PutDuration(d time.Duration) { w.PutInt64(int64(d)) }

// PutBytes writes a uint32 length prefix followed by the raw bytes.
func (w *Writer) PutBytes(b []byte) {
	w.PutUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// PutString writes a length-prefixed UTF-8 string.
func (w *Writer) PutString(s string) { w.PutBytes([]byte(s)) }

// PutStringMap writes a count-prefixed sequence of (key,value) string pairs.
func (w *Writer) PutStringMap(m map[string]string) {
	w.PutUint32(uint32(len(m)))
	// Stable order keeps encoding deterministic for tests/golden files.
	for _, k := range sortedKeys(m) {
		w.PutString(k)
		w.PutString(m[k])
	}
}

// PutStringSlice writes a count-prefixed sequence of strings.
func (w *Writer) PutStringSlice(s []string) {
	w.PutUint32(uint32(len(s)))
	for _, v := range s {
		w.PutString(v)
	}
}

// Reader walks a buffer produced by Writer.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(b []byte) *Reader { return &Reader{buf: b} }

func (r *Reader) remaining() int { return len(r.buf) - r.pos }

func (r *Reader) GetUint8() (uint8, error) {
	if r.remaining() < 1 {
		return 0, ErrTruncated
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) GetUint32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) GetUint64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) GetInt64() (int64, error) {
	v, err := r.GetUint64()
	return int64(v), err
}

func (r *Reader) GetFloat64() (float64, error) {
	v, err := r.GetUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (r *Reader) GetDuration() (time.Duration, error) {
	v, err := r.GetInt64()
	return time.Duration(v), err
}

func (r *Reader) GetBytes() ([]byte, error) {
	n, err := r.GetUint32()
	if err != nil {
		return nil, err
	}
	if r.remaining() < int(n) {
		return nil, ErrTruncated
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

func (r *Reader) GetString() (string, error) {
	b, err := r.GetBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) GetStringMap() (map[string]string, error) {
	n, err := r.GetUint32()
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, n)
	for i := uint32(0); i < n; i++ {
		k, err := r.GetString()
		if err != nil {
			return nil, err
		}
		v, err := r.GetString()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func (r *Reader) GetStringSlice() ([]string, error) {
	n, err := r.GetUint32()
	if err != nil {
		return nil, err
	}
	s := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := r.GetString()
		if err != nil {
			return nil, err
		}
		s = append(s, v)
	}
	return s, nil
}

// Done reports whether the reader has consumed the whole buffer.
func (r *Reader) Done() bool { return r.remaining() == 0 }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
