package rdb

import (
	"errors"
	"fmt"
)

var (
	// ErrEarlyTermination is returned when the stream ends before the EOF opcode
	// (or before the checksum trailer that follows it).
	ErrEarlyTermination = errors.New("stream ended before EOF opcode")

	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// FormatError reports a structural violation of the dump format. It is fatal:
// once the decoder loses track of record boundaries every later offset is
// meaningless.
type FormatError struct {
	// Offset is the byte offset at which the violation was detected.
	Offset int64
	// Opcode is the opcode or value type of the record being decoded, -1 when
	// the error happened outside of a record (header).
	Opcode int
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Opcode < 0 {
		return fmt.Sprintf("rdb: invalid format at offset %d: %s", e.Offset, msg)
	}
	return fmt.Sprintf("rdb: invalid format at offset %d (opcode 0x%02x): %s", e.Offset, e.Opcode, msg)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IOError wraps a failure of the underlying reader or writer.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("rdb: %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("rdb: %s %s: %s", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// withOpcode stamps the record opcode on format errors raised by the reader,
// which has no notion of records.
func withOpcode(err error, opcode byte) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Opcode < 0 {
		fe.Opcode = int(opcode)
	}
	return err
}
