// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// Reader decodes a payload produced by Writer. Like Writer it keeps the first
// failure; reads after it return zero values.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(payload []byte) *Reader {
	return &Reader{data: payload}
}

func (r *Reader) Err() error {
	return r.err
}

// Done reports the first failure, or an error if unread bytes remain.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.data) {
		return fmt.Errorf("store: %d trailing bytes", len(r.data)-r.off)
	}
	return nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Fail records err unless the reader already failed.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.data)-r.off {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncated, n, r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Section consumes a section tag and fails unless it equals tag.
func (r *Reader) Section(tag uint32) {
	got := r.Uint32()
	if r.err == nil && got != tag {
		r.err = fmt.Errorf("%w: %#x, want %#x", ErrSection, got, tag)
	}
}

func (r *Reader) Uint8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool {
	return r.Uint8() != 0
}

func (r *Reader) Uint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Int() int {
	return int(int64(r.Uint64()))
}

func (r *Reader) Float64() float64 {
	return math.Float64frombits(r.Uint64())
}

// length reads a collection length whose elements take at least size bytes.
func (r *Reader) length(size int) int {
	n := r.Int()
	if r.err != nil {
		return 0
	}
	if n < 0 || n > (len(r.data)-r.off)/size {
		r.err = fmt.Errorf("%w: length %d at offset %d", ErrTruncated, n, r.off)
		return 0
	}
	return n
}

func (r *Reader) Ints() []int {
	n := r.length(8)
	if n == 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = r.Int()
	}
	return out
}

func (r *Reader) Float64s() []float64 {
	n := r.length(8)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Float64()
	}
	return out
}

func (r *Reader) Bools() []bool {
	n := r.length(1)
	if n == 0 {
		return nil
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = r.Bool()
	}
	return out
}

func (r *Reader) Text() string {
	return string(r.next(r.length(1)))
}

func (r *Reader) Bitmap() *roaring.Bitmap {
	b := r.next(r.length(1))
	if r.err != nil {
		return nil
	}
	bm := roaring.New()
	if _, err := bm.FromBuffer(b); err != nil {
		r.err = fmt.Errorf("store: bitmap at offset %d: %w", r.off-len(b), err)
		return nil
	}
	// FromBuffer aliases the payload.
	return bm.Clone()
}
