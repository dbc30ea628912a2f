package rdb

import (
	"bytes"
	"errors"
	"runtime"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRdbReader_GetEncodingLength(t *testing.T) {
	tests := []struct {
		name     string
		in       []byte
		encoding lengthEncoding
		value    uint64
	}{
		{"6 bit", []byte{0x0a}, lengthEncodingLength, 10},
		{"14 bit", []byte{0x42, 0xbc}, lengthEncodingLength, 700},
		{"32 bit", []byte{0x80, 0x00, 0x01, 0x11, 0x70}, lengthEncodingLength, 70000},
		{"64 bit", []byte{0x81, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}, lengthEncodingLength, 1 << 32},
		{"int8", []byte{0xc0, 0xfe}, lengthEncodingInteger, uint64(0xfffffffffffffffe)},
		{"int16", []byte{0xc1, 0xe8, 0x03}, lengthEncodingInteger, 1000},
		{"int32", []byte{0xc2, 0x70, 0x11, 0x01, 0x00}, lengthEncodingInteger, 70000},
		{"lzf", []byte{0xc3}, lengthEncodingCompressed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRdbReader(bytes.NewReader(tt.in))
			encoding, v, err := r.GetEncodingLength()
			require.NoError(t, err)
			assert.Equal(t, tt.encoding, encoding)
			assert.Equal(t, tt.value, v)
			assert.Equal(t, int64(len(tt.in)), r.offset)
		})
	}
}

func TestRdbReader_GetLengthBytes(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain", []byte{0x03, 'f', 'o', 'o'}, "foo"},
		{"negative int8", []byte{0xc0, 0xd6}, "-42"},
		{"int16", []byte{0xc1, 0xe8, 0x03}, "1000"},
		{"negative int32", []byte{0xc2, 0x90, 0xee, 0xfe, 0xff}, "-70000"},
		{"lzf", []byte{0xc3, 0x06, 0x09, 0x02, 'a', 'b', 'c', 0x80, 0x02}, "abcabcabc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRdbReader(bytes.NewReader(tt.in))
			b, err := r.GetLengthBytes()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}
}

func TestRdbReader_SkipKeepsChecksum(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 10000)

	r := newRdbReader(bytes.NewReader(data))
	r.hashing = true
	_, err := r.ReadFixedBytes(10)
	require.NoError(t, err)
	require.NoError(t, r.Skip(int64(len(data)-10)))

	assert.Equal(t, Checksum(0, data), r.crc)
	assert.Equal(t, int64(len(data)), r.offset)
}

func TestRdbReader_Errors(t *testing.T) {
	r := newRdbReader(bytes.NewReader([]byte{0x05, 'a'}))
	_, err := r.GetLengthBytes()
	assert.ErrorIs(t, err, ErrEarlyTermination)

	r = newRdbReader(bytes.NewReader([]byte{0x85}))
	_, err = r.GetLength()
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, int64(1), fe.Offset)

	boom := errors.New("disk on fire")
	r = newRdbReader(iotest.ErrReader(boom))
	_, err = r.ReadByte()
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.ErrorIs(t, err, boom)
}

func TestRdbReader_SkipDouble(t *testing.T) {
	r := newRdbReader(bytes.NewReader([]byte{254, 3, '1', '.', '5', 0x01}))
	require.NoError(t, r.SkipDouble())
	require.NoError(t, r.SkipDouble())
	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b)
}

func TestRdbReader_ReadFixedBytesLarge(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 40000)

	r := newRdbReader(bytes.NewReader(data))
	r.hashing = true
	b, err := r.ReadFixedBytes(len(data))
	require.NoError(t, err)
	assert.Equal(t, data, b)
	assert.Equal(t, Checksum(0, data), r.crc)
	assert.Equal(t, int64(len(data)), r.offset)
}

func TestRdbReader_ReadFixedBytesTruncated(t *testing.T) {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)

	r := newRdbReader(bytes.NewReader([]byte("0123456789")))
	_, err := r.ReadFixedBytes(maxStringLen)
	assert.ErrorIs(t, err, ErrEarlyTermination)
	assert.Equal(t, int64(10), r.offset)

	runtime.ReadMemStats(&after)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(16<<20))
}
