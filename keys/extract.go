package keys

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vczyh/rdbkeys/rdb"
	"go.uber.org/zap"
)

// Config describes one extraction.
type Config struct {
	// Input is a dump path or URL, see OpenSource.
	Input string
	// Output is the keys file path or URL, see CreateSink.
	Output string

	VerifyChecksum bool
	// ProgressEvery logs progress every n keys, 0 disables it.
	ProgressEvery int64

	// Progress receives human readable stage lines, nil discards them.
	Progress io.Writer
}

func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("input dump is required")
	}
	if c.Output == "" {
		return errors.New("output keys file is required")
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("progress interval must be positive, got %d", c.ProgressEvery)
	}
	return nil
}

type Result struct {
	Input    string
	Output   string
	Keys     int64
	Stats    *rdb.Stats
	Duration time.Duration
}

// Extract writes the name of every key of the input dump to the output, one
// per line, in file order. The output only appears once the whole dump has
// been scanned and, when enabled, its checksum verified.
func Extract(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	progress := config.Progress
	if progress == nil {
		progress = io.Discard
	}
	start := time.Now()
	input := redact(config.Input)

	fmt.Fprintf(progress, "Parsing File: %s\n", input)
	src, err := OpenSource(ctx, config.Input)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	sink, err := CreateSink(ctx, config.Output)
	if err != nil {
		return nil, err
	}

	parser := rdb.NewParser(src,
		rdb.WithChecksum(config.VerifyChecksum),
		rdb.WithProgressEvery(config.ProgressEvery),
	)
	fmt.Fprintln(progress, "Parser Created")

	w := bufio.NewWriterSize(sink, 64*1024)
	stats, err := parser.Scan(ctx, func(key rdb.Key) error {
		if _, err := w.Write(key.Name); err != nil {
			return err
		}
		return w.WriteByte('\n')
	})
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		sink.Abort(err)
		return nil, fmt.Errorf("extract %s: %w", input, err)
	}
	if err := sink.Commit(); err != nil {
		return nil, err
	}
	fmt.Fprintln(progress, "Parsing Complete")

	res := &Result{
		Input:    input,
		Output:   config.Output,
		Keys:     stats.Keys,
		Stats:    stats,
		Duration: time.Since(start),
	}
	zlog.Info("keys extracted",
		zap.String("input", input),
		zap.String("output", config.Output),
		zap.String("keys", humanize.Comma(res.Keys)),
		zap.String("size", humanize.Bytes(uint64(stats.Bytes))),
		zap.Int("version", stats.Version),
		zap.Bool("checksum_verified", stats.ChecksumVerified),
		zap.Duration("elapsed", res.Duration),
	)
	return res, nil
}
