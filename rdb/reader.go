package rdb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Redis refuses strings above proto-max-bulk-len (512mb by default), anything
// bigger in a key position is corruption.
const maxStringLen = 512 << 20

type rdbReader struct {
	br *bufio.Reader

	// offset counts bytes consumed from the stream.
	offset int64

	hashing bool
	crc     uint64
	scratch []byte
}

func newRdbReader(r io.Reader) *rdbReader {
	return &rdbReader{br: bufio.NewReaderSize(r, 64*1024)}
}

func (r *rdbReader) formatErr(format string, args ...interface{}) error {
	return &FormatError{Offset: r.offset, Opcode: -1, Msg: fmt.Sprintf(format, args...)}
}

func (r *rdbReader) readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("rdb: read at offset %d: %w", r.offset, ErrEarlyTermination)
	}
	return &IOError{Op: "read", Err: err}
}

func (r *rdbReader) consumed(p []byte) {
	r.offset += int64(len(p))
	if r.hashing {
		r.crc = Checksum(r.crc, p)
	}
}

func (r *rdbReader) ReadByte() (byte, error) {
	b, err := r.br.ReadByte()
	if err != nil {
		return 0, r.readErr(err)
	}
	r.offset++
	if r.hashing {
		r.crc = Checksum(r.crc, []byte{b})
	}
	return b, nil
}

// Sizes above this are read in chunks, the buffer only grows as bytes arrive
// so a corrupt length cannot force a large allocation up front.
const readChunkSize = 64 * 1024

func (r *rdbReader) ReadFixedBytes(size int) ([]byte, error) {
	if size <= readChunkSize {
		bs := make([]byte, size)
		n, err := io.ReadFull(r.br, bs)
		r.consumed(bs[:n])
		if err != nil {
			return nil, r.readErr(err)
		}
		return bs, nil
	}

	bs := make([]byte, 0, readChunkSize)
	for len(bs) < size {
		chunk := size - len(bs)
		if chunk > readChunkSize {
			chunk = readChunkSize
		}
		start := len(bs)
		bs = append(bs, make([]byte, chunk)...)
		n, err := io.ReadFull(r.br, bs[start:])
		r.consumed(bs[start : start+n])
		if err != nil {
			return nil, r.readErr(err)
		}
	}
	return bs, nil
}

// Skip discards n bytes. Bytes still go through the checksum when it is
// being computed.
func (r *rdbReader) Skip(n int64) error {
	if n < 0 {
		return r.formatErr("negative skip %d", n)
	}
	if !r.hashing {
		for n > 0 {
			chunk := n
			if chunk > math.MaxInt32 {
				chunk = math.MaxInt32
			}
			d, err := r.br.Discard(int(chunk))
			r.offset += int64(d)
			if err != nil {
				return r.readErr(err)
			}
			n -= int64(d)
		}
		return nil
	}

	if r.scratch == nil {
		r.scratch = make([]byte, 32*1024)
	}
	for n > 0 {
		buf := r.scratch
		if int64(len(buf)) > n {
			buf = buf[:n]
		}
		m, err := io.ReadFull(r.br, buf)
		r.consumed(buf[:m])
		if err != nil {
			return r.readErr(err)
		}
		n -= int64(m)
	}
	return nil
}

func (r *rdbReader) GetLUint64() (uint64, error) {
	b, err := r.ReadFixedBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

type lengthEncoding uint8

const (
	lengthEncodingLength lengthEncoding = iota
	lengthEncodingInteger
	lengthEncodingCompressed
)

const (
	len6Bit  = 0
	len14Bit = 1
	len32Bit = 0x80
	len64Bit = 0x81
	lenEnc   = 3

	encInt8  = 0
	encInt16 = 1
	encInt32 = 2
	encLZF   = 3
)

// GetEncodingLength decodes a length or a special string encoding.
// For lengthEncodingInteger the value holds the two's complement bits of the
// signed integer. rdb.c::rdbLoadLenByRef
func (r *rdbReader) GetEncodingLength() (lengthEncoding, uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}

	switch b >> 6 {
	case len6Bit:
		return lengthEncodingLength, uint64(b & 0x3F), nil
	case len14Bit:
		b2, err := r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		return lengthEncodingLength, uint64(b&0x3F)<<8 | uint64(b2), nil
	case lenEnc:
		switch b & 0x3F {
		case encInt8:
			v, err := r.ReadByte()
			if err != nil {
				return 0, 0, err
			}
			return lengthEncodingInteger, uint64(int64(int8(v))), nil
		case encInt16:
			bs, err := r.ReadFixedBytes(2)
			if err != nil {
				return 0, 0, err
			}
			return lengthEncodingInteger, uint64(int64(int16(binary.LittleEndian.Uint16(bs)))), nil
		case encInt32:
			bs, err := r.ReadFixedBytes(4)
			if err != nil {
				return 0, 0, err
			}
			return lengthEncodingInteger, uint64(int64(int32(binary.LittleEndian.Uint32(bs)))), nil
		case encLZF:
			return lengthEncodingCompressed, 0, nil
		default:
			return 0, 0, r.formatErr("unknown string encoding 0x%02x", b)
		}
	}

	switch b {
	case len32Bit:
		bs, err := r.ReadFixedBytes(4)
		if err != nil {
			return 0, 0, err
		}
		return lengthEncodingLength, uint64(binary.BigEndian.Uint32(bs)), nil
	case len64Bit:
		bs, err := r.ReadFixedBytes(8)
		if err != nil {
			return 0, 0, err
		}
		return lengthEncodingLength, binary.BigEndian.Uint64(bs), nil
	default:
		return 0, 0, r.formatErr("unknown length prefix 0x%02x", b)
	}
}

// GetLength decodes a plain length; string encodings are rejected.
func (r *rdbReader) GetLength() (uint64, error) {
	encoding, n, err := r.GetEncodingLength()
	if err != nil {
		return 0, err
	}
	if encoding != lengthEncodingLength {
		return 0, r.formatErr("expected a length, got an encoded string")
	}
	return n, nil
}

// GetLengthInt is GetLength bounded to what a counter loop can use.
func (r *rdbReader) GetLengthInt() (int64, error) {
	n, err := r.GetLength()
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64 {
		return 0, r.formatErr("length %d out of range", n)
	}
	return int64(n), nil
}

// GetLengthBytes decodes a string in any of its encodings.
func (r *rdbReader) GetLengthBytes() ([]byte, error) {
	encoding, n, err := r.GetEncodingLength()
	if err != nil {
		return nil, err
	}
	switch encoding {
	case lengthEncodingLength:
		if n > maxStringLen {
			return nil, r.formatErr("string length %d exceeds limit", n)
		}
		return r.ReadFixedBytes(int(n))
	case lengthEncodingInteger:
		return strconv.AppendInt(nil, int64(n), 10), nil
	default:
		return r.getLZFBytes()
	}
}

func (r *rdbReader) GetLengthString() (string, error) {
	b, err := r.GetLengthBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *rdbReader) getLZFBytes() ([]byte, error) {
	clen, err := r.GetLength()
	if err != nil {
		return nil, err
	}
	ulen, err := r.GetLength()
	if err != nil {
		return nil, err
	}
	if clen > maxStringLen || ulen > maxStringLen {
		return nil, r.formatErr("compressed string length %d/%d exceeds limit", clen, ulen)
	}
	compressed, err := r.ReadFixedBytes(int(clen))
	if err != nil {
		return nil, err
	}
	out, err := lzfDecompress(compressed, int(ulen))
	if err != nil {
		return nil, &FormatError{Offset: r.offset, Opcode: -1, Err: err}
	}
	return out, nil
}

// SkipLengthString consumes a string without materializing it.
func (r *rdbReader) SkipLengthString() error {
	encoding, n, err := r.GetEncodingLength()
	if err != nil {
		return err
	}
	switch encoding {
	case lengthEncodingLength:
		if n > math.MaxInt64 {
			return r.formatErr("string length %d out of range", n)
		}
		return r.Skip(int64(n))
	case lengthEncodingInteger:
		return nil
	default:
		clen, err := r.GetLength()
		if err != nil {
			return err
		}
		if _, err := r.GetLength(); err != nil {
			return err
		}
		if clen > math.MaxInt64 {
			return r.formatErr("compressed length %d out of range", clen)
		}
		return r.Skip(int64(clen))
	}
}

// SkipLengthStrings consumes n consecutive strings.
func (r *rdbReader) SkipLengthStrings(n int64) error {
	for i := int64(0); i < n; i++ {
		if err := r.SkipLengthString(); err != nil {
			return err
		}
	}
	return nil
}

// SkipDouble consumes a zset v1 score: one length byte then ASCII digits,
// with 253/254/255 standing for nan/+inf/-inf without payload.
// rdb.c::rdbLoadDoubleValue
func (r *rdbReader) SkipDouble() error {
	l, err := r.ReadByte()
	if err != nil {
		return err
	}
	switch l {
	case 253, 254, 255:
		return nil
	default:
		return r.Skip(int64(l))
	}
}
