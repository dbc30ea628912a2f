package keys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vczyh/rdbkeys/rdb"
	"go.uber.org/zap"
)

// Sink receives the extracted keys. Nothing is visible at the destination
// until Commit succeeds, and Abort discards everything written so far.
type Sink interface {
	io.Writer
	Commit() error
	Abort(cause error)
}

// CreateSink opens the destination of a keys file: a local path or an object
// store URL (file://, s3://, gs://, az://).
func CreateSink(ctx context.Context, output string) (Sink, error) {
	if isObjectURL(output) {
		return newObjectSink(ctx, output)
	}
	return newFileSink(output)
}

// fileSink writes next to the destination and renames over it on commit, so
// a failed scan never leaves a truncated keys file behind.
type fileSink struct {
	path string
	f    *os.File
}

func newFileSink(path string) (*fileSink, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return nil, &rdb.IOError{Op: "create", Path: path, Err: err}
	}
	return &fileSink{path: path, f: f}, nil
}

func (s *fileSink) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	if err != nil {
		return n, &rdb.IOError{Op: "write", Path: s.path, Err: err}
	}
	return n, nil
}

func (s *fileSink) Commit() error {
	if err := s.f.Sync(); err != nil {
		s.Abort(err)
		return &rdb.IOError{Op: "sync", Path: s.path, Err: err}
	}
	if err := s.f.Close(); err != nil {
		os.Remove(s.f.Name())
		return &rdb.IOError{Op: "close", Path: s.path, Err: err}
	}
	if err := os.Rename(s.f.Name(), s.path); err != nil {
		os.Remove(s.f.Name())
		return &rdb.IOError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}

func (s *fileSink) Abort(cause error) {
	s.f.Close()
	if err := os.Remove(s.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		zlog.Warn("unable to remove partial keys file", zap.String("path", s.f.Name()), zap.Error(err))
	}
	zlog.Debug("keys file discarded", zap.String("path", s.path), zap.NamedError("cause", cause))
}

// objectSink streams into a single WriteObject call. Aborting closes the pipe
// with the cause so the store never finalizes the object.
type objectSink struct {
	output string
	pw     *io.PipeWriter
	done   chan error
}

func newObjectSink(ctx context.Context, output string) (*objectSink, error) {
	base, name, err := splitObjectURL(output)
	if err != nil {
		return nil, err
	}
	store, err := newStore(base, true)
	if err != nil {
		return nil, fmt.Errorf("new store %q: %w", base, err)
	}

	pr, pw := io.Pipe()
	s := &objectSink{output: output, pw: pw, done: make(chan error, 1)}
	go func() {
		err := store.WriteObject(ctx, name, pr)
		if err == nil {
			// A store that returns before draining the pipe must not block writers.
			pr.CloseWithError(io.ErrClosedPipe)
		} else {
			pr.CloseWithError(err)
		}
		s.done <- err
	}()
	return s, nil
}

func (s *objectSink) Write(p []byte) (int, error) {
	n, err := s.pw.Write(p)
	if err != nil {
		return n, &rdb.IOError{Op: "write", Path: s.output, Err: err}
	}
	return n, nil
}

func (s *objectSink) Commit() error {
	s.pw.Close()
	if err := <-s.done; err != nil {
		return &rdb.IOError{Op: "upload", Path: s.output, Err: err}
	}
	return nil
}

func (s *objectSink) Abort(cause error) {
	if cause == nil {
		cause = errors.New("aborted")
	}
	s.pw.CloseWithError(cause)
	if err := <-s.done; err != nil {
		zlog.Debug("upload aborted", zap.String("output", s.output), zap.Error(err))
	}
}
