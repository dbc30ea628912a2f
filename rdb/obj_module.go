package rdb

const (
	moduleOpcodeEOF    = 0
	moduleOpcodeSInt   = 1
	moduleOpcodeUInt   = 2
	moduleOpcodeFloat  = 3
	moduleOpcodeDouble = 4
	moduleOpcodeString = 5
)

// skipModule2 consumes a module value: the 64 bit module id (name and
// encoding version packed together) followed by the annotated value stream.
func skipModule2(r *rdbReader) error {
	if _, err := r.GetLength(); err != nil {
		return err
	}
	return skipModuleValue(r)
}

// skipModuleAux consumes the payload of a MODULE_AUX opcode.
// rdb.c::rdbLoadRioWithLoadingCtx, RDB_OPCODE_MODULE_AUX branch.
func skipModuleAux(r *rdbReader) error {
	if _, err := r.GetLength(); err != nil {
		return err
	}
	whenOpcode, err := r.GetLength()
	if err != nil {
		return err
	}
	if whenOpcode != moduleOpcodeUInt {
		return r.formatErr("module aux 'when' opcode must be uint, got %d", whenOpcode)
	}
	if _, err := r.GetLength(); err != nil {
		return err
	}
	return skipModuleValue(r)
}

// rdb.c::rdbLoadCheckModuleValue
func skipModuleValue(r *rdbReader) error {
	for {
		opcode, err := r.GetLength()
		if err != nil {
			return err
		}
		switch opcode {
		case moduleOpcodeEOF:
			return nil
		case moduleOpcodeSInt, moduleOpcodeUInt:
			_, err = r.GetLength()
		case moduleOpcodeFloat:
			err = r.Skip(4)
		case moduleOpcodeDouble:
			err = r.Skip(8)
		case moduleOpcodeString:
			err = r.SkipLengthString()
		default:
			return r.formatErr("unknown module opcode %d", opcode)
		}
		if err != nil {
			return err
		}
	}
}
