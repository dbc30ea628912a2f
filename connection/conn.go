package connection

import (
	"bufio"
	"net"
	"time"

	"github.com/vczyh/rdbkeys/resp"
)

// Conn is a RESP connection. Replies are read through the embedded reader so
// a bulk payload announced by ReadBulkHeader can be streamed straight out of
// it with io.Copy.
type Conn struct {
	nc net.Conn
	*bufio.Reader

	// Reused between commands, a connection is not safe for concurrent use.
	wbuf []byte
}

func NewConn(nc net.Conn) *Conn {
	return &Conn{
		nc:     nc,
		Reader: bufio.NewReaderSize(nc, 64*1024),
	}
}

func (c *Conn) ReadString() (string, error) {
	return resp.ReadString(c.Reader)
}

// ReadBulkHeader reads the "$<size>" line preceding a bulk payload.
func (c *Conn) ReadBulkHeader() (int64, error) {
	return resp.ReadBulkHeader(c.Reader)
}

func (c *Conn) WriteCommand(command string, args ...string) error {
	c.wbuf = resp.AppendArray(c.wbuf[:0], append([]string{command}, args...)...)
	_, err := c.nc.Write(c.wbuf)
	return err
}

// Do sends a command and reads its string reply.
func (c *Conn) Do(command string, args ...string) (string, error) {
	if err := c.WriteCommand(command, args...); err != nil {
		return "", err
	}
	return c.ReadString()
}

func (c *Conn) SetDeadline(t time.Time) error {
	return c.nc.SetDeadline(t)
}

func (c *Conn) Close() error {
	return c.nc.Close()
}
