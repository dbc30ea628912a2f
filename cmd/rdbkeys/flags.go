package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const envPrefix = "RDBKEYS"

func init() {
	cobra.OnInitialize(func() {
		autoBind(rootCmd, envPrefix)
	})
}

// autoBind fills unset flags from the environment: --log-level reads
// RDBKEYS_LOG_LEVEL and `query --delimiter` reads RDBKEYS_QUERY_DELIMITER.
// Values are applied through the flag set so required flags see them as set.
func autoBind(root *cobra.Command, prefix string) {
	recurseCommands(root, prefix, nil)
}

func recurseCommands(cmd *cobra.Command, prefix string, segments []string) {
	var segmentPrefix string
	if len(segments) > 0 {
		segmentPrefix = strings.ToUpper(strings.Join(segments, "_")) + "_"
	}

	bind := func(flags *pflag.FlagSet) {
		flags.VisitAll(func(f *pflag.Flag) {
			varName := prefix + "_" + segmentPrefix + envName(f.Name)
			val, found := os.LookupEnv(varName)
			if !found || val == "" || f.Changed {
				return
			}
			if err := flags.Set(f.Name, val); err != nil {
				zlog.Warn("ignoring invalid flag value from environment", zap.String("flag", f.Name), zap.String("env", varName), zap.Error(err))
				return
			}
			f.Usage += " [LOADED FROM ENV]"
		})
	}
	bind(cmd.PersistentFlags())
	bind(cmd.LocalNonPersistentFlags())

	for _, sub := range cmd.Commands() {
		recurseCommands(sub, prefix, append(segments, sub.Name()))
	}
}

func envName(flag string) string {
	return strings.ReplaceAll(strings.ToUpper(flag), "-", "_")
}
