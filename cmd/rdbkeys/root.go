package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
	"github.com/streamingfast/derr"
	"github.com/vczyh/rdbkeys/keys"
)

var rootCmd = &cobra.Command{
	Use:   "rdbkeys --rdb <dump> --keys <output>",
	Short: "Extract the key names of a Redis RDB dump",
	Long: cli.Dedent(`
		Streams an RDB dump and writes the name of every key it holds to the keys file,
		one per line, in dump order. Values are skipped without being decoded.

		--rdb accepts a local path, an object store URL (file://, s3://, gs://, az://)
		or redis://[user:password@]host[:port] to pull a fresh dump from a running
		master. --keys accepts a local path or an object store URL; it is only
		written once the whole dump has been read successfully.
	`),
	Example: cli.Dedent(`
		rdbkeys --rdb /var/lib/redis/dump.rdb --keys dump.keys
		rdbkeys --rdb redis://:secret@10.0.0.2:6379 --keys s3://reports/keys/prod.keys
	`),
	Args:              cobra.NoArgs,
	PersistentPreRunE: rootPreRunE,
	RunE:              extractE,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Logging level: debug, info, warn or error")

	rootCmd.Flags().String("rdb", "", "Dump to read, path or URL")
	rootCmd.Flags().String("keys", "", "Keys file to write, path or URL")
	rootCmd.Flags().Bool("verify-checksum", true, "Verify the CRC-64 trailer of the dump, a mismatch fails the extraction")
	rootCmd.Flags().Uint64("progress-every", 0, "Log progress every N keys, 0 disables it")
	rootCmd.MarkFlagRequired("rdb")
	rootCmd.MarkFlagRequired("keys")
}

func rootPreRunE(cmd *cobra.Command, args []string) error {
	return setupLogging(sflags.MustGetString(cmd, "log-level"))
}

func extractE(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	_, err := keys.Extract(ctx, keys.Config{
		Input:          sflags.MustGetString(cmd, "rdb"),
		Output:         sflags.MustGetString(cmd, "keys"),
		VerifyChecksum: sflags.MustGetBool(cmd, "verify-checksum"),
		ProgressEvery:  int64(sflags.MustGetUint64(cmd, "progress-every")),
		Progress:       cmd.OutOrStdout(),
	})
	return err
}

// signalContext is canceled on SIGINT or SIGTERM, the scan then stops at the
// next record and the keys file is discarded.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	signal := derr.SetupSignalHandler(0)
	go func() {
		select {
		case <-signal:
			zlog.Info("received termination signal, stopping")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
