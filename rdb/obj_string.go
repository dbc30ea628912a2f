package rdb

// skipString consumes a plain string value. Ziplists, listpacks, intsets and
// zipmaps are also serialized as one opaque string blob and go through here.
func skipString(r *rdbReader) error {
	return r.SkipLengthString()
}
