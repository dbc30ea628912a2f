package main

import (
	"fmt"

	"github.com/streamingfast/logging"
	"go.uber.org/zap/zapcore"
)

var zlog, tracer = logging.RootLogger("rdbkeys", "github.com/vczyh/rdbkeys/cmd/rdbkeys")

func setupLogging(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logging.InstantiateLoggers(logging.WithDefaultLevel(lvl))
	return nil
}
