package rdb

import "fmt"

func skipHash(r *rdbReader, valueType ValueType) error {
	switch valueType {
	case ValueTypeHashZipMap, ValueTypeHashZipList, ValueTypeHashListPack:
		return skipString(r)
	case ValueTypeHash:
		size, err := r.GetLengthInt()
		if err != nil {
			return err
		}
		for i := int64(0); i < size; i++ {
			// field, value
			if err := r.SkipLengthStrings(2); err != nil {
				return err
			}
		}
		return nil
	case ValueTypeHashMetadata:
		// Minimum field expire time, then per field a relative ttl.
		if err := r.Skip(8); err != nil {
			return err
		}
		size, err := r.GetLengthInt()
		if err != nil {
			return err
		}
		for i := int64(0); i < size; i++ {
			if _, err := r.GetLength(); err != nil {
				return err
			}
			if err := r.SkipLengthStrings(2); err != nil {
				return err
			}
		}
		return nil
	case ValueTypeHashListPackEx:
		if err := r.Skip(8); err != nil {
			return err
		}
		return skipString(r)
	default:
		return fmt.Errorf("unsupported hash value type: %s", valueType)
	}
}
