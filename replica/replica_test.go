package replica

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vczyh/rdbkeys/resp"
)

// fakeMaster answers the replica handshake and sends payload, truncated to
// send bytes when send >= 0.
type fakeMaster struct {
	ln       net.Listener
	password string
	payload  []byte
	send     int

	commands chan []string
}

func newFakeMaster(t *testing.T, password string, payload []byte) *fakeMaster {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	m := &fakeMaster{ln: ln, password: password, payload: payload, send: -1, commands: make(chan []string, 16)}
	t.Cleanup(func() { ln.Close() })
	go m.serve()
	return m
}

func (m *fakeMaster) port() int {
	return m.ln.Addr().(*net.TCPAddr).Port
}

func (m *fakeMaster) serve() {
	nc, err := m.ln.Accept()
	if err != nil {
		return
	}
	defer nc.Close()

	r := bufio.NewReader(nc)
	for {
		args, err := resp.ReadCommand(r)
		if err != nil {
			return
		}
		m.commands <- args

		switch strings.ToUpper(args[0]) {
		case "AUTH":
			if args[len(args)-1] != m.password {
				io.WriteString(nc, "-WRONGPASS invalid username-password pair\r\n")
				return
			}
			resp.WriteSimpleString(nc, "OK")
		case "PING":
			resp.WriteSimpleString(nc, "PONG")
		case "REPLCONF":
			resp.WriteSimpleString(nc, "OK")
		case "PSYNC":
			resp.WriteSimpleString(nc, "FULLRESYNC 8371b4fb1155b71f4a04d3e1bc3e18c4a990aeeb 42")
			// Keepalives while the child writes the RDB.
			io.WriteString(nc, "\n\n")
			fmt.Fprintf(nc, "$%d\r\n", len(m.payload))
			payload := m.payload
			if m.send >= 0 {
				payload = payload[:m.send]
			}
			nc.Write(payload)
			if m.send < 0 {
				// Replication stream, must be ignored.
				resp.WriteArray(nc, "SELECT", "0")
			}
			return
		default:
			io.WriteString(nc, "-ERR unknown command\r\n")
		}
	}
}

type recordingWriteCloser struct {
	bytes.Buffer
	closed bool
}

func (w *recordingWriteCloser) Close() error {
	w.closed = true
	return nil
}

func TestReplica_FullSync(t *testing.T) {
	payload := []byte("REDIS0011\xff0123456789abcdef")
	m := newFakeMaster(t, "secret", payload)

	r := NewReplica(&Config{MasterIP: "127.0.0.1", MasterPort: m.port(), MasterPassword: "secret", AnnouncePort: 6380})
	w := &recordingWriteCloser{}
	info, err := r.FullSync(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, "8371b4fb1155b71f4a04d3e1bc3e18c4a990aeeb", info.ReplicationID)
	assert.Equal(t, int64(42), info.Offset)
	assert.Equal(t, int64(len(payload)), info.Size)
	assert.Equal(t, payload, w.Bytes())
	assert.True(t, w.closed)

	assert.Equal(t, []string{"AUTH", "secret"}, <-m.commands)
	assert.Equal(t, []string{"PING"}, <-m.commands)
	assert.Equal(t, []string{"REPLCONF", "listening-port", "6380"}, <-m.commands)
	assert.Equal(t, []string{"REPLCONF", "capa", "psync2"}, <-m.commands)
	assert.Equal(t, []string{"PSYNC", "?", "-1"}, <-m.commands)
}

func TestReplica_FullSyncThroughPipe(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 256*1024)
	m := newFakeMaster(t, "", payload)

	pr, pw := io.Pipe()
	done := make(chan []byte)
	go func() {
		b, _ := io.ReadAll(pr)
		done <- b
	}()

	_, err := NewReplica(&Config{MasterIP: "127.0.0.1", MasterPort: m.port()}).FullSync(context.Background(), pw)
	require.NoError(t, err)
	assert.Equal(t, payload, <-done)
}

func TestReplica_TruncatedTransfer(t *testing.T) {
	m := newFakeMaster(t, "", []byte("REDIS0011\xff0123456789abcdef"))
	m.send = 5

	pr, pw := io.Pipe()
	errC := make(chan error)
	go func() {
		_, err := io.ReadAll(pr)
		errC <- err
	}()

	_, err := NewReplica(&Config{MasterIP: "127.0.0.1", MasterPort: m.port()}).FullSync(context.Background(), pw)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	// The reading side sees the failure instead of a clean EOF.
	assert.ErrorIs(t, <-errC, io.ErrUnexpectedEOF)
}

func TestReplica_AuthFailure(t *testing.T) {
	m := newFakeMaster(t, "secret", nil)

	_, err := NewReplica(&Config{MasterIP: "127.0.0.1", MasterPort: m.port(), MasterPassword: "nope"}).FullSync(context.Background(), &recordingWriteCloser{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WRONGPASS")
}
