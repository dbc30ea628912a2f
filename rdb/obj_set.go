package rdb

import "fmt"

func skipSet(r *rdbReader, valueType ValueType) error {
	switch valueType {
	case ValueTypeSet:
		size, err := r.GetLengthInt()
		if err != nil {
			return err
		}
		return r.SkipLengthStrings(size)
	case ValueTypeIntSet, ValueTypeSetListPack:
		return skipString(r)
	default:
		return fmt.Errorf("unsupported set value type: %s", valueType)
	}
}
