package rdb

import (
	"fmt"
	"math"
)

const (
	streamIDSize   = 16 // ms and seq, both 64 bit big endian
	streamTimeSize = 8
)

// skipStream consumes a stream value without decoding entries.
// rdb.c::rdbSaveObject, OBJ_STREAM branch.
func skipStream(r *rdbReader, valueType ValueType) error {
	switch valueType {
	case ValueTypeStreamListPacks, ValueTypeStreamListPacks2, ValueTypeStreamListPacks3:
	default:
		return fmt.Errorf("unsupported stream value type: %s", valueType)
	}

	// Radix tree nodes: master ID as key, listpack blob as value.
	nodes, err := r.GetLengthInt()
	if err != nil {
		return err
	}
	if nodes > math.MaxInt64/2 {
		return r.formatErr("stream node count %d out of range", nodes)
	}
	if err := r.SkipLengthStrings(nodes * 2); err != nil {
		return err
	}

	// Length, then last entry ID.
	metadata := 3
	if valueType != ValueTypeStreamListPacks {
		// First entry ID, max deleted entry ID and entries added.
		metadata += 5
	}
	if err := skipLengths(r, metadata); err != nil {
		return err
	}

	groups, err := r.GetLengthInt()
	if err != nil {
		return err
	}
	for i := int64(0); i < groups; i++ {
		if err := skipStreamGroup(r, valueType); err != nil {
			return err
		}
	}
	return nil
}

func skipStreamGroup(r *rdbReader, valueType ValueType) error {
	// Name, then last delivered ID.
	if err := r.SkipLengthString(); err != nil {
		return err
	}
	fields := 2
	if valueType != ValueTypeStreamListPacks {
		// Entries read offset.
		fields++
	}
	if err := skipLengths(r, fields); err != nil {
		return err
	}

	// Global PEL: raw ID, delivery time, delivery count.
	pel, err := r.GetLengthInt()
	if err != nil {
		return err
	}
	for i := int64(0); i < pel; i++ {
		if err := r.Skip(streamIDSize + streamTimeSize); err != nil {
			return err
		}
		if _, err := r.GetLength(); err != nil {
			return err
		}
	}

	consumers, err := r.GetLengthInt()
	if err != nil {
		return err
	}
	for i := int64(0); i < consumers; i++ {
		if err := r.SkipLengthString(); err != nil {
			return err
		}
		// Seen time, plus active time since v3.
		times := int64(1)
		if valueType == ValueTypeStreamListPacks3 {
			times++
		}
		if err := r.Skip(times * streamTimeSize); err != nil {
			return err
		}

		// Consumer PEL only references IDs from the global one.
		ids, err := r.GetLengthInt()
		if err != nil {
			return err
		}
		if ids > math.MaxInt64/streamIDSize {
			return r.formatErr("consumer pel size %d out of range", ids)
		}
		if err := r.Skip(ids * streamIDSize); err != nil {
			return err
		}
	}
	return nil
}

func skipLengths(r *rdbReader, n int) error {
	for i := 0; i < n; i++ {
		if _, err := r.GetLength(); err != nil {
			return err
		}
	}
	return nil
}
