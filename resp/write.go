package resp

import (
	"io"
	"strconv"
)

func appendHeader(dst []byte, typ byte, n int) []byte {
	dst = append(dst, typ)
	dst = strconv.AppendInt(dst, int64(n), 10)
	return append(dst, Separator...)
}

// AppendBulkString appends str encoded as a bulk string to dst.
func AppendBulkString(dst []byte, str string) []byte {
	dst = appendHeader(dst, DataTypeBulkString, len(str))
	dst = append(dst, str...)
	return append(dst, Separator...)
}

// AppendArray appends args encoded as an array of bulk strings, the form
// commands are sent in.
func AppendArray(dst []byte, args ...string) []byte {
	dst = appendHeader(dst, DataTypeArray, len(args))
	for _, arg := range args {
		dst = AppendBulkString(dst, arg)
	}
	return dst
}

func WriteBulkString(w io.Writer, str string) error {
	_, err := w.Write(AppendBulkString(nil, str))
	return err
}

func WriteSimpleString(w io.Writer, str string) error {
	_, err := io.WriteString(w, string(DataTypeSimpleString)+str+string(Separator))
	return err
}

// WriteArray writes the whole array with a single Write call.
func WriteArray(w io.Writer, args ...string) error {
	_, err := w.Write(AppendArray(nil, args...))
	return err
}
