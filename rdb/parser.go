package rdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const (
	opCodeSlotInfo  = 244
	opCodeFunction2 = 245
	opCodeFunction  = 246
	opCodeModuleAux = 247
	opCodeIdle      = 248
	opCodeFreq      = 249
	opCodeAux       = 250
	opCodeResizeDb  = 251
	opExpireTimeMs  = 252
	opExpireTime    = 253
	opCodeSelectDb  = 254
	opCodeEOF       = 255

	// Newest dump version this decoder knows the shape of.
	MaxVersion = 12

	// Dumps older than this carry no checksum after the EOF opcode.
	checksumMinVersion = 5
)

var magic = []byte("REDIS")

type options struct {
	verifyChecksum bool
	progressEvery  int64
}

type Option func(*options)

// WithChecksum toggles verification of the CRC-64 trailer. Enabled by default.
func WithChecksum(verify bool) Option {
	return func(o *options) {
		o.verifyChecksum = verify
	}
}

// WithProgressEvery logs scan progress every n keys, 0 disables it.
func WithProgressEvery(n int64) Option {
	return func(o *options) {
		o.progressEvery = n
	}
}

// Stats describes what a scan went through.
type Stats struct {
	Version int
	Keys    int64
	// Bytes consumed, header and checksum included.
	Bytes     int64
	Databases int
	Aux       map[string]string

	Checksum         uint64
	ChecksumVerified bool
}

// Parser decodes one dump stream. It is single use: once the stream reached
// EOF or failed, a new Parser is needed to scan again.
type Parser struct {
	r    *rdbReader
	opts options

	version    int
	headerRead bool
	done       bool

	db       int
	expireAt int64

	// Value of the last emitted key, skipped before decoding the next record.
	pending     bool
	pendingType ValueType

	// Offset of the expire opcode preceding the current record.
	expireOffset int64

	stats Stats
}

func NewParser(r io.Reader, opts ...Option) *Parser {
	o := options{verifyChecksum: true}
	for _, opt := range opts {
		opt(&o)
	}
	rr := newRdbReader(r)
	rr.hashing = o.verifyChecksum
	return &Parser{
		r:        rr,
		opts:     o,
		expireAt: -1,
		stats:    Stats{Aux: map[string]string{}},
	}
}

func (p *Parser) Version() int {
	return p.version
}

func (p *Parser) Stats() *Stats {
	s := p.stats
	s.Version = p.version
	s.Bytes = p.r.offset
	return &s
}

// Keys returns a streamer over the dump's keys in file order. ctx is checked
// between records.
func (p *Parser) Keys(ctx context.Context) *KeyStreamer {
	return newKeyStreamer(ctx, p)
}

// Scan calls fn for every key as soon as its name is decoded, before the
// value is skipped. An error from fn stops the scan and is returned as is.
func (p *Parser) Scan(ctx context.Context, fn func(Key) error) (*Stats, error) {
	s := p.Keys(ctx)
	for s.HasNext() {
		if err := fn(s.Next()); err != nil {
			return p.Stats(), err
		}
	}
	return p.Stats(), s.Err()
}

func (p *Parser) readHeader() error {
	b, err := p.r.ReadFixedBytes(len(magic))
	if err != nil {
		return err
	}
	if !bytes.Equal(b, magic) {
		return &FormatError{Offset: 0, Opcode: -1, Msg: fmt.Sprintf("bad magic %q", b)}
	}

	version, err := p.r.ReadFixedBytes(4)
	if err != nil {
		return err
	}
	versionNumber, err := strconv.Atoi(string(version))
	if err != nil || versionNumber < 1 {
		return &FormatError{Offset: int64(len(magic)), Opcode: -1, Msg: fmt.Sprintf("bad version %q", version)}
	}
	if versionNumber > MaxVersion {
		return &FormatError{Offset: int64(len(magic)), Opcode: -1, Msg: fmt.Sprintf("unsupported version %d", versionNumber)}
	}
	p.version = versionNumber
	p.headerRead = true

	zlog.Debug("dump header read", zap.Int("version", versionNumber))
	return nil
}

// next decodes records until a key is found. io.EOF signals a clean end.
func (p *Parser) next(ctx context.Context) (Key, error) {
	if p.done {
		return Key{}, io.EOF
	}
	if !p.headerRead {
		if err := p.readHeader(); err != nil {
			return Key{}, err
		}
	}

	if p.pending {
		p.pending = false
		if err := skipValue(p.r, p.pendingType); err != nil {
			return Key{}, withOpcode(err, byte(p.pendingType))
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return Key{}, err
		}

		recordOffset := p.r.offset
		if p.expireAt != -1 {
			// The expire opcode belongs to the record that follows it.
			recordOffset = p.expireOffset
		}
		opcode, err := p.r.ReadByte()
		if err != nil {
			return Key{}, err
		}

		switch opcode {
		case opExpireTime:
			p.expireOffset = p.r.offset - 1
			b, err := p.r.ReadFixedBytes(4)
			if err != nil {
				return Key{}, err
			}
			p.expireAt = int64(binary.LittleEndian.Uint32(b)) * 1000
			continue
		case opExpireTimeMs:
			p.expireOffset = p.r.offset - 1
			ms, err := p.r.GetLUint64()
			if err != nil {
				return Key{}, err
			}
			p.expireAt = int64(ms)
			continue
		case opCodeFreq:
			// LFU frequency.
			if _, err := p.r.ReadByte(); err != nil {
				return Key{}, err
			}
			continue
		case opCodeIdle:
			// LRU idle time.
			if _, err := p.r.GetLength(); err != nil {
				return Key{}, withOpcode(err, opcode)
			}
			continue
		case opCodeEOF:
			return Key{}, p.finish()
		case opCodeSelectDb:
			db, err := p.r.GetLengthInt()
			if err != nil {
				return Key{}, withOpcode(err, opcode)
			}
			p.db = int(db)
			p.stats.Databases++
			continue
		case opCodeResizeDb:
			// Hint about the size of the keys in the currently selected data base.
			if err := skipLengths(p.r, 2); err != nil {
				return Key{}, withOpcode(err, opcode)
			}
			continue
		case opCodeSlotInfo:
			// Slot id, slot size, expires slot size.
			if err := skipLengths(p.r, 3); err != nil {
				return Key{}, withOpcode(err, opcode)
			}
			continue
		case opCodeAux:
			// Generic string-string fields, unknown ones must be skipped.
			if err := p.readAux(); err != nil {
				return Key{}, withOpcode(err, opcode)
			}
			continue
		case opCodeModuleAux:
			if err := skipModuleAux(p.r); err != nil {
				return Key{}, withOpcode(err, opcode)
			}
			continue
		case opCodeFunction2:
			// Function library code.
			if err := p.r.SkipLengthString(); err != nil {
				return Key{}, withOpcode(err, opcode)
			}
			continue
		case opCodeFunction:
			return Key{}, &FormatError{Offset: p.r.offset - 1, Opcode: int(opcode), Msg: "pre-release function format not supported"}
		}

		valueType := ValueType(opcode)
		if !skippable(valueType) {
			return Key{}, &FormatError{Offset: p.r.offset - 1, Opcode: int(opcode), Msg: fmt.Sprintf("unsupported value type %s", valueType)}
		}

		name, err := p.r.GetLengthBytes()
		if err != nil {
			return Key{}, withOpcode(err, opcode)
		}
		key := Key{
			Db:       p.db,
			Name:     name,
			Type:     valueType,
			ExpireAt: p.expireAt,
			Offset:   recordOffset,
		}

		p.expireAt = -1
		p.pending = true
		p.pendingType = valueType
		p.stats.Keys++

		if tracer.Enabled() {
			zlog.Debug("key decoded", zap.ByteString("key", name), zap.Stringer("type", valueType), zap.Int("db", p.db), zap.Int64("offset", recordOffset))
		}
		if n := p.opts.progressEvery; n > 0 && p.stats.Keys%n == 0 {
			zlog.Info("scan progress",
				zap.String("keys", humanize.Comma(p.stats.Keys)),
				zap.String("read", humanize.Bytes(uint64(p.r.offset))),
			)
		}
		return key, nil
	}
}

func (p *Parser) readAux() error {
	field, err := p.r.GetLengthString()
	if err != nil {
		return err
	}
	value, err := p.r.GetLengthString()
	if err != nil {
		return err
	}
	p.stats.Aux[field] = value
	zlog.Debug("aux field", zap.String("field", field), zap.String("value", value))
	return nil
}

func (p *Parser) finish() error {
	if p.expireAt != -1 {
		return &FormatError{Offset: p.r.offset - 1, Opcode: opCodeEOF, Msg: "expire time not followed by a key"}
	}
	if p.version < checksumMinVersion {
		p.done = true
		return io.EOF
	}

	computed := p.r.crc
	p.r.hashing = false
	stored, err := p.r.GetLUint64()
	if err != nil {
		return err
	}
	p.stats.Checksum = stored

	switch {
	case !p.opts.verifyChecksum:
	case stored == 0:
		// Written with rdbchecksum no.
		zlog.Debug("dump has no checksum, skipping verification")
	case stored != computed:
		return &FormatError{
			Offset: p.r.offset - 8,
			Opcode: opCodeEOF,
			Msg:    fmt.Sprintf("stored %016x, computed %016x", stored, computed),
			Err:    ErrChecksumMismatch,
		}
	default:
		p.stats.ChecksumVerified = true
	}
	p.done = true
	return io.EOF
}

func skippable(t ValueType) bool {
	switch t {
	case ValueTypeModulePreGA:
		return false
	}
	_, ok := valueTypeNames[t]
	return ok
}

func skipValue(r *rdbReader, valueType ValueType) error {
	switch valueType {
	case ValueTypeString:
		return skipString(r)
	case ValueTypeList, ValueTypeZipList, ValueTypeListQuickList, ValueTypeListQuickList2:
		return skipList(r, valueType)
	case ValueTypeSet, ValueTypeSetListPack, ValueTypeIntSet:
		return skipSet(r, valueType)
	case ValueTypeZSetZipList, ValueTypeZSetListPack, ValueTypeZSet, ValueTypeZSet2:
		return skipZSet(r, valueType)
	case ValueTypeHashZipMap, ValueTypeHashZipList, ValueTypeHashListPack, ValueTypeHash, ValueTypeHashMetadata, ValueTypeHashListPackEx:
		return skipHash(r, valueType)
	case ValueTypeStreamListPacks, ValueTypeStreamListPacks2, ValueTypeStreamListPacks3:
		return skipStream(r, valueType)
	case ValueTypeModule2:
		return skipModule2(r)
	default:
		return fmt.Errorf("unsupported rdb value type: 0x%x", byte(valueType))
	}
}
