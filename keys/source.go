package keys

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/streamingfast/dstore"
	"github.com/vczyh/rdbkeys/rdb"
	"github.com/vczyh/rdbkeys/replica"
	"go.uber.org/zap"
)

const defaultRedisPort = 6379

// newStore is swapped in tests to serve object URLs from a mock store.
var newStore = func(baseURL string, overwrite bool) (dstore.Store, error) {
	return dstore.NewStore(baseURL, "", "", overwrite)
}

// OpenSource opens a dump for reading. input is one of
//
//	/path/to/dump.rdb
//	file:///path/to/dump.rdb, s3://bucket/dump.rdb, gs://..., az://...
//	redis://[user:password@]host[:port][?announce-ip=IP&announce-port=PORT]
//
// The redis form pulls a fresh dump from a running master through a full
// resynchronization, nothing is written to disk.
func OpenSource(ctx context.Context, input string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(input, "redis://"):
		return openReplicaSource(ctx, input)
	case isObjectURL(input):
		return openObjectSource(ctx, input)
	}

	f, err := os.Open(input)
	if err != nil {
		return nil, &rdb.IOError{Op: "open", Path: input, Err: err}
	}
	return f, nil
}

// redact hides the password of a redis:// input for display.
func redact(input string) string {
	if !strings.HasPrefix(input, "redis://") {
		return input
	}
	u, err := url.Parse(input)
	if err != nil {
		return "redis://"
	}
	return u.Redacted()
}

func isObjectURL(s string) bool {
	return strings.Contains(s, "://")
}

// splitObjectURL cuts an object URL into the store base URL and the object
// name inside it.
func splitObjectURL(u string) (base, name string, err error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", "", fmt.Errorf("parse %q: %w", u, err)
	}
	idx := strings.LastIndex(parsed.Path, "/")
	name = parsed.Path[idx+1:]
	if name == "" {
		return "", "", fmt.Errorf("url %q does not name an object", u)
	}
	parsed.Path = parsed.Path[:idx+1]
	return parsed.String(), name, nil
}

func openObjectSource(ctx context.Context, input string) (io.ReadCloser, error) {
	base, name, err := splitObjectURL(input)
	if err != nil {
		return nil, err
	}
	store, err := newStore(base, false)
	if err != nil {
		return nil, fmt.Errorf("new store %q: %w", base, err)
	}
	rc, err := store.OpenObject(ctx, name)
	if err != nil {
		return nil, &rdb.IOError{Op: "open", Path: input, Err: err}
	}
	zlog.Debug("opened object", zap.String("base", base), zap.String("name", name))
	return rc, nil
}

// parseRedisURL turns redis://[user:password@]host[:port] into a replica
// configuration. The announce-ip and announce-port parameters set what the
// master shows for this replica in INFO replication.
func parseRedisURL(input string) (*replica.Config, error) {
	u, err := url.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", input, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("redis url %q has no host", input)
	}
	if u.Path != "" && u.Path != "/" {
		return nil, fmt.Errorf("redis url %q: a full sync covers every database, drop the path", input)
	}

	config := &replica.Config{
		MasterIP:   u.Hostname(),
		MasterPort: defaultRedisPort,
	}
	if p := u.Port(); p != "" {
		config.MasterPort, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("redis url %q: invalid port: %w", input, err)
		}
	}
	for name, values := range u.Query() {
		v := values[len(values)-1]
		switch name {
		case "announce-ip":
			config.AnnounceIP = v
		case "announce-port":
			config.AnnouncePort, err = strconv.Atoi(v)
			if err != nil || config.AnnouncePort <= 0 || config.AnnouncePort > 65535 {
				return nil, fmt.Errorf("redis url %q: invalid announce-port %q", input, v)
			}
		default:
			return nil, fmt.Errorf("redis url %q: unknown parameter %q", input, name)
		}
	}
	if u.User != nil {
		config.MasterUser = u.User.Username()
		config.MasterPassword, _ = u.User.Password()
		// redis://:password@host is the password only form.
		if _, hasPassword := u.User.Password(); !hasPassword {
			config.MasterUser, config.MasterPassword = "", u.User.Username()
		}
	}
	return config, nil
}

type replicaSource struct {
	*io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}
}

// Close stops the transfer and waits for the sync goroutine to exit.
func (s *replicaSource) Close() error {
	err := s.PipeReader.Close()
	s.cancel()
	<-s.done
	return err
}

func openReplicaSource(ctx context.Context, input string) (io.ReadCloser, error) {
	config, err := parseRedisURL(input)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	src := &replicaSource{PipeReader: pr, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(src.done)
		info, err := replica.NewReplica(config).FullSync(ctx, pw)
		if err != nil {
			zlog.Debug("full sync failed", zap.String("master_ip", config.MasterIP), zap.Int("master_port", config.MasterPort), zap.Error(err))
			return
		}
		zlog.Info("full sync complete",
			zap.String("replication_id", info.ReplicationID),
			zap.Int64("offset", info.Offset),
			zap.Int64("size", info.Size),
		)
	}()
	return src, nil
}
