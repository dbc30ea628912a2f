package rdb

import "fmt"

func skipZSet(r *rdbReader, valueType ValueType) error {
	switch valueType {
	case ValueTypeZSetZipList, ValueTypeZSetListPack:
		return skipString(r)
	case ValueTypeZSet, ValueTypeZSet2:
		size, err := r.GetLengthInt()
		if err != nil {
			return err
		}
		for i := int64(0); i < size; i++ {
			if err := r.SkipLengthString(); err != nil {
				return err
			}
			if valueType == ValueTypeZSet2 {
				// Binary little endian double.
				err = r.Skip(8)
			} else {
				err = r.SkipDouble()
			}
			if err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported zset value type: %s", valueType)
	}
}
