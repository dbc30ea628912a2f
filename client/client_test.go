package client

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vczyh/rdbkeys/resp"
)

// serve answers each command with the reply registered for its name, and
// records what it received.
func serve(t *testing.T, replies map[string]string) (*Config, <-chan []string) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	received := make(chan []string, 16)
	go func() {
		nc, err := ln.Accept()
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
			received <- args
			reply, found := replies[strings.ToUpper(args[0])]
			if !found {
				// Never answer, the client has to time out.
				continue
			}
			nc.Write([]byte(reply))
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return &Config{Host: "127.0.0.1", Port: addr.Port}, received
}

func TestClient_AuthAndPing(t *testing.T) {
	config, received := serve(t, map[string]string{
		"AUTH": "+OK\r\n",
		"PING": "+PONG\r\n",
	})
	config.Username = "default"
	config.Password = "secret"

	c, err := NewClient(context.Background(), config)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Auth())
	require.NoError(t, c.Ping())
	assert.Equal(t, []string{"AUTH", "default", "secret"}, <-received)
	assert.Equal(t, []string{"PING"}, <-received)
}

func TestClient_AuthSkippedWithoutPassword(t *testing.T) {
	config, received := serve(t, map[string]string{"PING": "+PONG\r\n"})

	c, err := NewClient(context.Background(), config)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Auth())
	require.NoError(t, c.Ping())
	assert.Equal(t, []string{"PING"}, <-received)
}

func TestClient_Expect(t *testing.T) {
	config, _ := serve(t, map[string]string{
		"REPLCONF": "-ERR Unrecognized REPLCONF option: foo\r\n",
		"PING":     "$4\r\nPONG\r\n",
		"ECHO":     "+NOPE\r\n",
	})

	c, err := NewClient(context.Background(), config)
	require.NoError(t, err)
	defer c.Close()

	err = c.Expect("OK", "REPLCONF", "foo", "bar")
	assert.EqualError(t, err, "REPLCONF: ERR Unrecognized REPLCONF option: foo")
	var serverErr resp.ServerError
	assert.ErrorAs(t, err, &serverErr)

	// Bulk replies are accepted as well.
	require.NoError(t, c.Ping())

	assert.EqualError(t, c.Expect("OK", "ECHO", "x"), `ECHO response not OK: "NOPE"`)
}

func TestClient_CommandTimeout(t *testing.T) {
	config, _ := serve(t, map[string]string{})
	config.CommandTimeout = 50 * time.Millisecond

	c, err := NewClient(context.Background(), config)
	require.NoError(t, err)
	defer c.Close()

	err = c.Ping()
	require.Error(t, err)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestClient_DialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = NewClient(context.Background(), &Config{Host: "127.0.0.1", Port: port, DialTimeout: time.Second})
	assert.Error(t, err)
}
