package replica

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vczyh/rdbkeys/client"
	"go.uber.org/zap"
)

// Replica pulls a point-in-time RDB out of a running master by posing as a
// replica and requesting a full resynchronization.
type Replica struct {
	config *Config
	client *client.Client
}

type Config struct {
	MasterIP       string
	MasterPort     int
	MasterUser     string
	MasterPassword string

	AnnounceIP   string
	AnnouncePort int

	// Deadline of each handshake command. The RDB transfer itself is only
	// bounded by the context.
	HandshakeTimeout time.Duration
}

// SyncInfo is what the master answered to PSYNC.
type SyncInfo struct {
	ReplicationID string
	Offset        int64
	// Size of the RDB payload in bytes.
	Size int64
}

func NewReplica(config *Config) *Replica {
	return &Replica{config: config}
}

// errorCloser is implemented by *io.PipeWriter.
type errorCloser interface {
	CloseWithError(err error) error
}

// FullSync connects to the master and copies the RDB it sends for a full
// resynchronization into w. w is closed once the payload has been copied, or
// closed with the error when the transfer fails. The connection is dropped
// afterwards: the replication stream that follows is not consumed.
// replication.c::syncWithMaster
func (r *Replica) FullSync(ctx context.Context, w io.WriteCloser) (info *SyncInfo, err error) {
	defer func() {
		if err != nil {
			if ec, ok := w.(errorCloser); ok {
				ec.CloseWithError(err)
			} else {
				w.Close()
			}
		}
	}()

	c, err := client.NewClient(ctx, &client.Config{
		Host:     r.config.MasterIP,
		Port:     r.config.MasterPort,
		Username: r.config.MasterUser,
		Password: r.config.MasterPassword,

		CommandTimeout: r.config.HandshakeTimeout,
	})
	if err != nil {
		return nil, err
	}
	r.client = c
	defer c.Close()

	stop := context.AfterFunc(ctx, func() {
		c.Close()
	})
	defer stop()

	info, err = r.handshake()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	if err := r.transfer(info, w); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return info, nil
}

func (r *Replica) handshake() (*SyncInfo, error) {
	if err := r.client.Auth(); err != nil {
		return nil, err
	}
	if err := r.client.Ping(); err != nil {
		return nil, err
	}

	if port := r.config.AnnouncePort; port != 0 {
		if err := r.client.Expect("OK", "REPLCONF", "listening-port", strconv.Itoa(port)); err != nil {
			return nil, err
		}
	}
	if ip := r.config.AnnounceIP; ip != "" {
		if err := r.client.Expect("OK", "REPLCONF", "ip-address", ip); err != nil {
			return nil, err
		}
	}

	// Only psync2 is advertised: without "eof" the master never switches to
	// the diskless EOF-marker transfer and always announces the payload size.
	if err := r.client.Expect("OK", "REPLCONF", "capa", "psync2"); err != nil {
		return nil, err
	}

	data, err := r.client.Do("PSYNC", "?", "-1")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(data, "FULLRESYNC") {
		return nil, fmt.Errorf("unsupported PSYNC response: %s", data)
	}
	split := strings.Split(data, " ")
	if len(split) != 3 {
		return nil, fmt.Errorf("PSYNC FULLRESYNC response format invalid: %s", data)
	}
	offset, err := strconv.ParseInt(split[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("PSYNC FULLRESYNC offset invalid: %w", err)
	}
	return &SyncInfo{ReplicationID: split[1], Offset: offset}, nil
}

func (r *Replica) transfer(info *SyncInfo, w io.Writer) error {
	conn := r.client.Conn()

	size, err := conn.ReadBulkHeader()
	if err != nil {
		return fmt.Errorf("bad protocol from MASTER: %w", err)
	}
	info.Size = size
	zlog.Info("receiving rdb from master",
		zap.String("replication_id", info.ReplicationID),
		zap.Int64("offset", info.Offset),
		zap.Int64("size", size),
	)

	n, err := io.CopyN(w, conn, size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("master closed the connection after %d of %d rdb bytes: %w", n, size, io.ErrUnexpectedEOF)
		}
		return err
	}
	return nil
}
