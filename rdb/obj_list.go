package rdb

import "fmt"

func skipList(r *rdbReader, valueType ValueType) error {
	switch valueType {
	case ValueTypeList, ValueTypeListQuickList:
		// Linked list of strings, or (quicklist v1) a list of ziplist blobs.
		size, err := r.GetLengthInt()
		if err != nil {
			return err
		}
		return r.SkipLengthStrings(size)
	case ValueTypeZipList:
		return skipString(r)
	case ValueTypeListQuickList2:
		return skipQuickList2(r)
	default:
		return fmt.Errorf("unsupported list value type: %s", valueType)
	}
}

// Each quicklist v2 node is prefixed by its container kind (plain or packed).
func skipQuickList2(r *rdbReader) error {
	size, err := r.GetLengthInt()
	if err != nil {
		return err
	}
	for i := int64(0); i < size; i++ {
		container, err := r.GetLength()
		if err != nil {
			return err
		}
		if container != quicklistNodePlain && container != quicklistNodePacked {
			return r.formatErr("unknown quicklist container %d", container)
		}
		if err := r.SkipLengthString(); err != nil {
			return err
		}
	}
	return nil
}

const (
	quicklistNodePlain  = 1
	quicklistNodePacked = 2
)
