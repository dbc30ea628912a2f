package keys

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abourget/llerrgroup"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const defaultConcurrency = 2

type Job struct {
	RDB  string `yaml:"rdb"`
	Keys string `yaml:"keys"`
}

// BatchConfig is the content of a jobs file:
//
//	concurrency: 2
//	verify_checksum: true
//	jobs:
//	  - rdb: dumps/before.rdb
//	    keys: out/before.keys
//	  - rdb: s3://backups/after.rdb
//	    keys: out/after.keys
type BatchConfig struct {
	Concurrency    int   `yaml:"concurrency"`
	VerifyChecksum *bool `yaml:"verify_checksum"`
	ProgressEvery  int64 `yaml:"progress_every"`
	Jobs           []Job `yaml:"jobs"`
}

func (c *BatchConfig) verifyChecksum() bool {
	return c.VerifyChecksum == nil || *c.VerifyChecksum
}

func (c *BatchConfig) Validate() error {
	if len(c.Jobs) == 0 {
		return fmt.Errorf("no jobs defined")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	outputs := map[string]int{}
	for i, job := range c.Jobs {
		if job.RDB == "" || job.Keys == "" {
			return fmt.Errorf("job #%d: both rdb and keys are required", i)
		}
		if prev, found := outputs[job.Keys]; found {
			return fmt.Errorf("job #%d: keys output %q already written by job #%d", i, job.Keys, prev)
		}
		outputs[job.Keys] = i
	}
	return nil
}

func LoadBatchConfig(path string) (*BatchConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jobs file: %w", err)
	}
	defer f.Close()
	return ReadBatchConfig(f)
}

func ReadBatchConfig(r io.Reader) (*BatchConfig, error) {
	config := &BatchConfig{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("decode jobs file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Batch runs every job with at most Concurrency extractions in flight. The
// first failure stops scheduling new jobs, the results of the jobs that did
// complete are returned along with the error.
func Batch(ctx context.Context, config *BatchConfig) ([]*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	concurrency := config.Concurrency
	if concurrency == 0 {
		concurrency = defaultConcurrency
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	results := make([]*Result, len(config.Jobs))
	eg := llerrgroup.New(concurrency)
	for i, job := range config.Jobs {
		if eg.Stop() {
			break
		}

		i, job := i, job
		eg.Go(func() error {
			res, err := Extract(ctx, Config{
				Input:          job.RDB,
				Output:         job.Keys,
				VerifyChecksum: config.verifyChecksum(),
				ProgressEvery:  config.ProgressEvery,
			})
			if err != nil {
				cancel()
				return fmt.Errorf("job #%d (%s): %w", i, redact(job.RDB), err)
			}
			results[i] = res
			return nil
		})
	}

	err := eg.Wait()
	zlog.Info("batch done", zap.Int("jobs", len(config.Jobs)), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
	return results, err
}
