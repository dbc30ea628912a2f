package keys

import (
	"github.com/streamingfast/logging"
)

var zlog, tracer = logging.PackageLogger("keys", "github.com/vczyh/rdbkeys/keys")
