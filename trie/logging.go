package trie

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("trie", "github.com/vczyh/rdbkeys/trie")
