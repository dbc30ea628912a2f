package rdb

import "fmt"

type ValueType byte

const (
	ValueTypeString           ValueType = 0
	ValueTypeList             ValueType = 1
	ValueTypeSet              ValueType = 2
	ValueTypeZSet             ValueType = 3
	ValueTypeHash             ValueType = 4
	ValueTypeZSet2            ValueType = 5 // ZSET version 2 with doubles stored in binary.
	ValueTypeModulePreGA      ValueType = 6
	ValueTypeModule2          ValueType = 7 // Module value with annotations for parsing without the generating module being loaded.
	ValueTypeHashZipMap       ValueType = 9
	ValueTypeZipList          ValueType = 10
	ValueTypeIntSet           ValueType = 11
	ValueTypeZSetZipList      ValueType = 12
	ValueTypeHashZipList      ValueType = 13
	ValueTypeListQuickList    ValueType = 14
	ValueTypeStreamListPacks  ValueType = 15
	ValueTypeHashListPack     ValueType = 16
	ValueTypeZSetListPack     ValueType = 17
	ValueTypeListQuickList2   ValueType = 18
	ValueTypeStreamListPacks2 ValueType = 19
	ValueTypeSetListPack      ValueType = 20
	ValueTypeStreamListPacks3 ValueType = 21
	ValueTypeHashMetadata     ValueType = 24 // Hash with field expirations, min expire stored up front.
	ValueTypeHashListPackEx   ValueType = 25
)

var valueTypeNames = map[ValueType]string{
	ValueTypeString:           "string",
	ValueTypeList:             "list",
	ValueTypeSet:              "set",
	ValueTypeZSet:             "zset",
	ValueTypeHash:             "hash",
	ValueTypeZSet2:            "zset2",
	ValueTypeModulePreGA:      "module-pre-ga",
	ValueTypeModule2:          "module2",
	ValueTypeHashZipMap:       "hash-zipmap",
	ValueTypeZipList:          "list-ziplist",
	ValueTypeIntSet:           "set-intset",
	ValueTypeZSetZipList:      "zset-ziplist",
	ValueTypeHashZipList:      "hash-ziplist",
	ValueTypeListQuickList:    "list-quicklist",
	ValueTypeStreamListPacks:  "stream-listpacks",
	ValueTypeHashListPack:     "hash-listpack",
	ValueTypeZSetListPack:     "zset-listpack",
	ValueTypeListQuickList2:   "list-quicklist2",
	ValueTypeStreamListPacks2: "stream-listpacks2",
	ValueTypeSetListPack:      "set-listpack",
	ValueTypeStreamListPacks3: "stream-listpacks3",
	ValueTypeHashMetadata:     "hash-metadata",
	ValueTypeHashListPackEx:   "hash-listpack-ex",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// Key is one key-value record as found in the dump. Only the name is decoded,
// the value has been (or will be) skipped.
type Key struct {
	Db int

	Name []byte

	Type ValueType

	// Unix milliseconds, -1 when the record carries no expire time.
	ExpireAt int64

	// Offset of the record's first byte (expire opcode included) in the stream.
	Offset int64
}
