package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
	"github.com/vczyh/rdbkeys/keys"
)

func init() {
	batchCmd.Flags().Uint64("concurrency", 0, "Number of dumps scanned at once, overrides the jobs file value when set")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch <jobs.yaml>",
	Short: "Extract keys from several dumps at once",
	Long: cli.Dedent(`
		Runs every rdb/keys pair of the jobs file, a couple of them at a time. The first
		failing job stops the batch; keys files of jobs that already completed are kept.

		  concurrency: 2
		  verify_checksum: true
		  jobs:
		    - rdb: dumps/before.rdb
		      keys: out/before.keys
		    - rdb: dumps/after.rdb
		      keys: out/after.keys
	`),
	Args:         cobra.ExactArgs(1),
	RunE:         batchE,
	SilenceUsage: true,
}

func batchE(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	config, err := keys.LoadBatchConfig(args[0])
	if err != nil {
		return err
	}
	if n := sflags.MustGetUint64(cmd, "concurrency"); n > 0 {
		config.Concurrency = int(n)
	}

	results, err := keys.Batch(ctx, config)
	out := cmd.OutOrStdout()
	for _, res := range results {
		if res == nil {
			continue
		}
		fmt.Fprintf(out, "%s -> %s: %s keys, %s in %s\n",
			res.Input, res.Output,
			humanize.Comma(res.Keys), humanize.Bytes(uint64(res.Stats.Bytes)), res.Duration.Round(time.Millisecond),
		)
	}
	return err
}
