// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package store implements the binary container of persisted indexes: a
// fixed header followed by a payload of tagged sections, optionally
// compressed with zstd or lz4 and protected by a CRC32 checksum.
//
// Header layout, little endian:
//
//	magic    [4]byte "EHLX"
//	version  uint16
//	codec    uint8
//	reserved uint8
//	raw      uint64 payload length before compression
//	stored   uint64 payload length as written
//	checksum uint32 CRC32 (Castagnoli) of the uncompressed payload
package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// Version is the container version written by this package.
	Version = 1

	headerSize = 28
)

var magic = [4]byte{'E', 'H', 'L', 'X'}

var (
	ErrInvalidMagic       = errors.New("store: invalid magic")
	ErrUnsupportedVersion = errors.New("store: unsupported version")
	ErrUnknownCodec       = errors.New("store: unknown codec")
	ErrChecksum           = errors.New("store: checksum mismatch")
	ErrTruncated          = errors.New("store: truncated data")
	ErrSection            = errors.New("store: unexpected section")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Codec selects the payload compression.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecZstd
	CodecLZ4
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// ParseCodec returns the codec named s.
func ParseCodec(s string) (Codec, error) {
	for _, c := range []Codec{CodecNone, CodecZstd, CodecLZ4} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, s)
}

// Header describes a stored payload.
type Header struct {
	Version  uint16
	Codec    Codec
	Raw      uint64
	Stored   uint64
	Checksum uint32
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

func compress(data []byte, codec Codec) ([]byte, Codec, error) {
	switch codec {
	case CodecNone:
		return data, CodecNone, nil
	case CodecZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, 0, err
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), CodecZstd, nil
	case CodecLZ4:
		out := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, out, nil)
		if err != nil {
			return nil, 0, err
		}
		// Incompressible.
		if n == 0 {
			return data, CodecNone, nil
		}
		return out[:n], CodecLZ4, nil
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownCodec, codec)
	}
}

func decompress(data []byte, h Header) ([]byte, error) {
	switch h.Codec {
	case CodecNone:
		return data, nil
	case CodecZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		return dec.DecodeAll(data, nil)
	case CodecLZ4:
		// lz4 blocks never expand more than 255 times.
		if h.Raw > 255*uint64(len(data))+16 {
			return nil, fmt.Errorf("%w: raw length %d", ErrTruncated, h.Raw)
		}
		out := make([]byte, h.Raw)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, h.Codec)
	}
}

// Encode writes payload to w behind a header, compressed with codec. An lz4
// payload that does not compress is stored uncompressed.
func Encode(w io.Writer, codec Codec, payload []byte) (int64, error) {
	body, used, err := compress(payload, codec)
	if err != nil {
		return 0, fmt.Errorf("store: compress: %w", err)
	}
	var hdr [headerSize]byte
	copy(hdr[0:4], magic[:])
	binary.LittleEndian.PutUint16(hdr[4:], Version)
	hdr[6] = byte(used)
	binary.LittleEndian.PutUint64(hdr[8:], uint64(len(payload)))
	binary.LittleEndian.PutUint64(hdr[16:], uint64(len(body)))
	binary.LittleEndian.PutUint32(hdr[24:], crc32.Checksum(payload, castagnoli))

	n, err := w.Write(hdr[:])
	total := int64(n)
	if err != nil {
		return total, err
	}
	n, err = w.Write(body)
	total += int64(n)
	return total, err
}

// ReadHeader reads and checks a header.
func ReadHeader(r io.Reader) (Header, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, ErrTruncated
		}
		return Header{}, err
	}
	if !bytes.Equal(hdr[0:4], magic[:]) {
		return Header{}, ErrInvalidMagic
	}
	h := Header{
		Version:  binary.LittleEndian.Uint16(hdr[4:]),
		Codec:    Codec(hdr[6]),
		Raw:      binary.LittleEndian.Uint64(hdr[8:]),
		Stored:   binary.LittleEndian.Uint64(hdr[16:]),
		Checksum: binary.LittleEndian.Uint32(hdr[24:]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Codec > CodecLZ4 {
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownCodec, h.Codec)
	}
	return h, nil
}

// Decode reads a header and its payload from r and returns the verified
// uncompressed payload.
func Decode(r io.Reader) ([]byte, Header, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, Header{}, err
	}
	body, err := io.ReadAll(io.LimitReader(r, int64(h.Stored)))
	if err != nil {
		return nil, Header{}, err
	}
	if uint64(len(body)) != h.Stored {
		return nil, Header{}, ErrTruncated
	}
	payload, err := decompress(body, h)
	if err != nil {
		return nil, Header{}, fmt.Errorf("store: decompress: %w", err)
	}
	if uint64(len(payload)) != h.Raw {
		return nil, Header{}, fmt.Errorf("%w: payload length %d, want %d", ErrTruncated, len(payload), h.Raw)
	}
	if crc32.Checksum(payload, castagnoli) != h.Checksum {
		return nil, Header{}, ErrChecksum
	}
	return payload, h, nil
}
