package client

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("client", "github.com/vczyh/rdbkeys/client")
