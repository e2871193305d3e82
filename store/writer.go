// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package store

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// Writer builds a payload of little endian values grouped in tagged
// sections. The first failure is kept and reported by Err and Flush; later
// writes are no-ops.
type Writer struct {
	buf     bytes.Buffer
	scratch [8]byte
	err     error
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Err() error {
	return w.err
}

// Bytes returns the payload written so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Flush encodes the payload to dst with codec.
func (w *Writer) Flush(dst io.Writer, codec Codec) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	return Encode(dst, codec, w.buf.Bytes())
}

// Section starts the section tagged tag.
func (w *Writer) Section(tag uint32) {
	w.Uint32(tag)
}

func (w *Writer) Uint8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf.WriteByte(v)
}

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

func (w *Writer) Uint32(v uint32) {
	if w.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	w.buf.Write(w.scratch[:4])
}

func (w *Writer) Uint64(v uint64) {
	if w.err != nil {
		return
	}
	binary.LittleEndian.PutUint64(w.scratch[:], v)
	w.buf.Write(w.scratch[:])
}

func (w *Writer) Int(v int) {
	w.Uint64(uint64(int64(v)))
}

func (w *Writer) Float64(v float64) {
	w.Uint64(math.Float64bits(v))
}

func (w *Writer) Ints(vs []int) {
	w.Int(len(vs))
	for _, v := range vs {
		w.Int(v)
	}
}

func (w *Writer) Float64s(vs []float64) {
	w.Int(len(vs))
	for _, v := range vs {
		w.Float64(v)
	}
}

func (w *Writer) Bools(vs []bool) {
	w.Int(len(vs))
	for _, v := range vs {
		w.Bool(v)
	}
}

func (w *Writer) Text(s string) {
	w.Int(len(s))
	if w.err != nil {
		return
	}
	w.buf.WriteString(s)
}

// Bitmap writes b in the portable roaring format. A nil bitmap is written as
// an empty one.
func (w *Writer) Bitmap(b *roaring.Bitmap) {
	if b == nil {
		b = roaring.New()
	}
	w.Int(int(b.GetSerializedSizeInBytes()))
	if w.err != nil {
		return
	}
	_, w.err = b.WriteTo(&w.buf)
}
