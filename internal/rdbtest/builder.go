// Package rdbtest writes synthetic dump files for tests. It knows the on-disk
// shape of every record the scanner skips, nothing more.
package rdbtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vczyh/rdbkeys/rdb"
)

const (
	OpSlotInfo  = 244
	OpFunction2 = 245
	OpModuleAux = 247
	OpIdle      = 248
	OpFreq      = 249
	OpAux       = 250
	OpResizeDB  = 251
	OpExpireMs  = 252
	OpExpire    = 253
	OpSelectDB  = 254
	OpEOF       = 255
)

type Builder struct {
	buf     bytes.Buffer
	version int
}

// NewBuilder starts a dump with the REDIS magic and the given version.
func NewBuilder(version int) *Builder {
	b := &Builder{version: version}
	fmt.Fprintf(&b.buf, "REDIS%04d", version)
	return b
}

func (b *Builder) Raw(p ...byte) *Builder {
	b.buf.Write(p)
	return b
}

func (b *Builder) Op(op byte) *Builder {
	return b.Raw(op)
}

// Len writes a length with the smallest prefix that fits.
func (b *Builder) Len(n uint64) *Builder {
	switch {
	case n < 1<<6:
		b.buf.WriteByte(byte(n))
	case n < 1<<14:
		b.buf.WriteByte(0x40 | byte(n>>8))
		b.buf.WriteByte(byte(n))
	case n <= math.MaxUint32:
		b.buf.WriteByte(0x80)
		b.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(n)))
	default:
		b.buf.WriteByte(0x81)
		b.buf.Write(binary.BigEndian.AppendUint64(nil, n))
	}
	return b
}

func (b *Builder) Str(s string) *Builder {
	b.Len(uint64(len(s)))
	b.buf.WriteString(s)
	return b
}

// IntStr writes an integer-encoded string.
func (b *Builder) IntStr(v int64) *Builder {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		b.buf.WriteByte(0xC0)
		b.buf.WriteByte(byte(int8(v)))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		b.buf.WriteByte(0xC1)
		b.buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(int16(v))))
	default:
		b.buf.WriteByte(0xC2)
		b.buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(int32(v))))
	}
	return b
}

// LZFStr writes an already compressed string of rawLen bytes.
func (b *Builder) LZFStr(compressed []byte, rawLen int) *Builder {
	b.buf.WriteByte(0xC3)
	b.Len(uint64(len(compressed)))
	b.Len(uint64(rawLen))
	b.buf.Write(compressed)
	return b
}

func (b *Builder) U32(v uint32) *Builder {
	b.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
	return b
}

func (b *Builder) U64(v uint64) *Builder {
	b.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
	return b
}

func (b *Builder) Aux(field, value string) *Builder {
	return b.Op(OpAux).Str(field).Str(value)
}

func (b *Builder) SelectDB(db int) *Builder {
	return b.Op(OpSelectDB).Len(uint64(db))
}

func (b *Builder) ResizeDB(size, expires int) *Builder {
	return b.Op(OpResizeDB).Len(uint64(size)).Len(uint64(expires))
}

func (b *Builder) ExpireMs(ms uint64) *Builder {
	return b.Op(OpExpireMs).U64(ms)
}

func (b *Builder) Expire(sec uint32) *Builder {
	return b.Op(OpExpire).U32(sec)
}

// Type starts a key-value record.
func (b *Builder) Type(t rdb.ValueType) *Builder {
	return b.Op(byte(t))
}

func (b *Builder) String(key, value string) *Builder {
	return b.Type(rdb.ValueTypeString).Str(key).Str(value)
}

func (b *Builder) List(key string, items ...string) *Builder {
	b.Type(rdb.ValueTypeList).Str(key).Len(uint64(len(items)))
	for _, item := range items {
		b.Str(item)
	}
	return b
}

func (b *Builder) Set(key string, members ...string) *Builder {
	b.Type(rdb.ValueTypeSet).Str(key).Len(uint64(len(members)))
	for _, m := range members {
		b.Str(m)
	}
	return b
}

// Hash takes field, value pairs.
func (b *Builder) Hash(key string, fieldValues ...string) *Builder {
	if len(fieldValues)%2 != 0 {
		panic("rdbtest: odd hash field/value count")
	}
	b.Type(rdb.ValueTypeHash).Str(key).Len(uint64(len(fieldValues) / 2))
	for _, s := range fieldValues {
		b.Str(s)
	}
	return b
}

type ZMember struct {
	Member string
	Score  float64
}

// ZSet2 writes a sorted set with binary scores.
func (b *Builder) ZSet2(key string, members ...ZMember) *Builder {
	b.Type(rdb.ValueTypeZSet2).Str(key).Len(uint64(len(members)))
	for _, m := range members {
		b.Str(m.Member)
		b.U64(math.Float64bits(m.Score))
	}
	return b
}

// ZSet writes a sorted set with v1 ASCII scores.
func (b *Builder) ZSet(key string, members ...ZMember) *Builder {
	b.Type(rdb.ValueTypeZSet).Str(key).Len(uint64(len(members)))
	for _, m := range members {
		b.Str(m.Member)
		switch {
		case math.IsNaN(m.Score):
			b.buf.WriteByte(253)
		case math.IsInf(m.Score, 1):
			b.buf.WriteByte(254)
		case math.IsInf(m.Score, -1):
			b.buf.WriteByte(255)
		default:
			s := fmt.Sprintf("%.17g", m.Score)
			b.buf.WriteByte(byte(len(s)))
			b.buf.WriteString(s)
		}
	}
	return b
}

// Blob writes a record whose value is a single opaque string (ziplist,
// listpack, intset, zipmap encodings).
func (b *Builder) Blob(t rdb.ValueType, key string, blob []byte) *Builder {
	return b.Type(t).Str(key).Str(string(blob))
}

// QuickList2 writes packed nodes holding the given listpack blobs.
func (b *Builder) QuickList2(key string, nodes ...[]byte) *Builder {
	b.Type(rdb.ValueTypeListQuickList2).Str(key).Len(uint64(len(nodes)))
	for _, n := range nodes {
		b.Len(2).Str(string(n))
	}
	return b
}

// Bytes terminates the dump with the EOF opcode and, from version 5 on, the
// CRC-64 of everything written so far.
func (b *Builder) Bytes() []byte {
	b.buf.WriteByte(OpEOF)
	out := append([]byte(nil), b.buf.Bytes()...)
	if b.version >= 5 {
		out = binary.LittleEndian.AppendUint64(out, rdb.Checksum(0, out))
	}
	return out
}

// BytesWithChecksum terminates the dump with a caller chosen checksum.
func (b *Builder) BytesWithChecksum(sum uint64) []byte {
	b.buf.WriteByte(OpEOF)
	return binary.LittleEndian.AppendUint64(append([]byte(nil), b.buf.Bytes()...), sum)
}
