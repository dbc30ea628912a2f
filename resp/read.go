package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// https://redis.io/docs/reference/protocol-spec/
const (
	DataTypeSimpleString = '+'
	DataTypeSimpleError  = '-'
	DataTypeInteger      = ':'
	DataTypeBulkString   = '$'
	DataTypeArray        = '*'
	DataTypeNull         = '_' // RESP3
	DataTypeBulkError    = '!' // RESP3
)

var (
	Separator = []byte{'\r', '\n'}
)

// ServerError is an error reply sent by the server.
type ServerError string

func (e ServerError) Error() string {
	return string(e)
}

// ReadLine reads one line without its terminator. Both "\r\n" and a bare
// "\n" are accepted.
func ReadLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}

// ReadData reads the next reply header line. Empty lines are skipped: a master
// sends bare newlines as keepalives while it prepares the RDB payload.
// Error replies are returned as ServerError.
func ReadData(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for len(line) == 0 {
		var err error
		if line, err = ReadLine(r); err != nil {
			return nil, err
		}
	}

	switch line[0] {
	case DataTypeSimpleError:
		return nil, ServerError(line[1:])
	case DataTypeBulkError:
		l, err := getLen(line)
		if err != nil {
			return nil, err
		}
		if l < 0 {
			return nil, fmt.Errorf("invalid bulk error length %d", l)
		}
		data := make([]byte, l+2)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		return nil, ServerError(data[:l])
	}

	return line, nil
}

func ReadString(r *bufio.Reader) (string, error) {
	data, err := ReadData(r)
	if err != nil {
		return "", err
	}

	switch data[0] {
	case DataTypeNull:
		return "", nil
	case DataTypeSimpleString:
		return string(data[1:]), nil
	case DataTypeBulkString:
		size, err := getLen(data)
		if err != nil {
			return "", err
		}
		if size < 0 {
			return "", nil
		}
		v := make([]byte, size+2)
		if _, err := io.ReadFull(r, v); err != nil {
			return "", err
		}
		return string(v[:size]), nil
	}

	return "", fmt.Errorf("not string type: %q", data[0])
}

// ReadBulkHeader reads a "$<size>" line and returns size. The payload is left
// in r for the caller to stream.
func ReadBulkHeader(r *bufio.Reader) (int64, error) {
	data, err := ReadData(r)
	if err != nil {
		return 0, err
	}
	if data[0] != DataTypeBulkString {
		return 0, fmt.Errorf("expected bulk string, the first byte is %q", data[0])
	}
	size, err := strconv.ParseInt(string(data[1:]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bulk length %q: %w", data[1:], err)
	}
	if size < 0 {
		return 0, errors.New("null bulk string")
	}
	return size, nil
}

// ReadCommand reads a client command sent as an array of bulk strings.
func ReadCommand(r *bufio.Reader) ([]string, error) {
	data, err := ReadData(r)
	if err != nil {
		return nil, err
	}
	if data[0] != DataTypeArray {
		return nil, fmt.Errorf("expected array, the first byte is %q", data[0])
	}
	n, err := getLen(data)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("invalid array length %d", n)
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		arg, err := ReadString(r)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func getLen(data []byte) (int, error) {
	return strconv.Atoi(string(data[1:]))
}
