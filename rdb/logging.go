package rdb

import (
	"github.com/streamingfast/logging"
)

var zlog, tracer = logging.PackageLogger("rdb", "github.com/vczyh/rdbkeys/rdb")
