package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/vczyh/rdbkeys/connection"
	"go.uber.org/zap"
)

type Client struct {
	conn   *connection.Conn
	config *Config
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// Zero means no dial timeout beyond ctx.
	DialTimeout time.Duration
	// Deadline of each handshake command, zero disables it.
	CommandTimeout time.Duration
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func NewClient(ctx context.Context, config *Config) (*Client, error) {
	d := net.Dialer{Timeout: config.DialTimeout}
	nc, err := d.DialContext(ctx, "tcp", config.Addr())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", config.Addr(), err)
	}
	zlog.Debug("connected", zap.String("addr", config.Addr()))

	return &Client{
		conn:   connection.NewConn(nc),
		config: config,
	}, nil
}

// Do sends one command and returns its string reply, under CommandTimeout
// when set.
func (c *Client) Do(command string, args ...string) (string, error) {
	if t := c.config.CommandTimeout; t > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(t)); err != nil {
			return "", err
		}
		defer c.conn.SetDeadline(time.Time{})
	}

	res, err := c.conn.Do(command, args...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", command, err)
	}
	return res, nil
}

// Expect sends a command and fails unless the reply is want.
func (c *Client) Expect(want string, command string, args ...string) error {
	res, err := c.Do(command, args...)
	if err != nil {
		return err
	}
	if res != want {
		return fmt.Errorf("%s response not %s: %q", command, want, res)
	}
	return nil
}

// Auth authenticates with the configured credentials, it is a no-op when no
// password is set.
func (c *Client) Auth() error {
	if c.config.Password == "" {
		return nil
	}

	var args []string
	if c.config.Username != "" {
		args = append(args, c.config.Username)
	}
	args = append(args, c.config.Password)
	return c.Expect("OK", "AUTH", args...)
}

func (c *Client) Ping() error {
	return c.Expect("PONG", "PING")
}

func (c *Client) Conn() *connection.Conn {
	return c.conn
}

func (c *Client) Close() error {
	return c.conn.Close()
}
