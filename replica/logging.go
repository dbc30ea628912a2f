package replica

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("replica", "github.com/vczyh/rdbkeys/replica")
