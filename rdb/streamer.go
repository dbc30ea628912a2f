package rdb

import (
	"context"
	"errors"
	"io"
)

// KeyStreamer pulls keys out of a Parser one record at a time.
//
//	s := p.Keys(ctx)
//	for s.HasNext() {
//		key := s.Next()
//	}
//	if err := s.Err(); err != nil {
//	}
type KeyStreamer struct {
	ctx context.Context
	p   *Parser

	o   Key
	err error
}

func newKeyStreamer(ctx context.Context, p *Parser) *KeyStreamer {
	return &KeyStreamer{ctx: ctx, p: p}
}

func (s *KeyStreamer) HasNext() bool {
	if s.err != nil {
		return false
	}

	key, err := s.p.next(s.ctx)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		return false
	}
	s.o = key
	return true
}

func (s *KeyStreamer) Next() Key {
	return s.o
}

// Err returns the error that stopped the stream, nil on a clean EOF.
func (s *KeyStreamer) Err() error {
	return s.err
}
