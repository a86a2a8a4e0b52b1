package amli

// skipArg advances the decoder past one argument of the given shape
// without evaluating it, per spec.md §4.2's "opaque consumption" paragraph
// and the decoder's consume_instruction_args responsibility.
func (st *State) skipArg(a argKind) *Error {
	switch a {
	case argByteData:
		_, err := st.dec.consumeByte()
		return err
	case argWordData:
		_, err := st.dec.consumeWord()
		return err
	case argDwordData:
		_, err := st.dec.consumeDword()
		return err
	case argQwordData:
		_, err := st.dec.consumeQword()
		return err
	case argStringData:
		for {
			b, err := st.dec.consumeByte()
			if err != nil {
				return err
			}
			if b == 0x00 {
				return nil
			}
		}
	case argNameString:
		_, err := st.dec.consumeNameString()
		return err
	case argTermArg:
		return st.skipTermArg()
	case argSuperName:
		return st.skipSuperName()
	case argTarget:
		if st.dec.matchByte(0x00) {
			return nil
		}
		return st.skipSuperName()
	case argTermList:
		end, err := st.dec.consumePackageLength()
		if err != nil {
			return err
		}
		st.dec.offset = end
		return nil
	case argByteList:
		st.dec.offset = st.dec.windowEnd
		return nil
	case argFieldList:
		st.dec.offset = st.dec.windowEnd
		return nil
	default:
		return nil
	}
}

// consumeArgOpaque is the State-level entry point skipStatementArgs (eval.go)
// calls for opcodes this module accepts syntactically but never evaluates
// (Load/Unload/Fatal — spec.md §1's Non-goals exclude real table/firmware
// plumbing).
func (st *State) consumeArgOpaque(a argKind) (Value, *Error) {
	return UninitializedValue, st.skipArg(a)
}

// skipInstruction advances the decoder past one already-recognized opcode's
// full argument list, recursing for nested TermArgs, per spec.md §4.2's
// "consume_instruction" responsibility.
func (st *State) skipInstruction(op opcode) *Error {
	info := opcodeTable[op]
	if info == nil {
		return errUnknownOpcode
	}
	if info.hasPkgLen {
		end, err := st.dec.consumePackageLength()
		if err != nil {
			return err
		}
		st.dec.offset = end
		return nil
	}
	for _, a := range info.args {
		if err := st.skipArg(a); err != nil {
			return err
		}
	}
	return nil
}

// skipTermArg advances the decoder past one TermArg without evaluating it
// (spec.md §4.2): data objects and Local/Arg refs are structurally
// self-describing; anything else is a NameString, which is either a bare
// reference or a method invocation. For a method invocation the decoder
// consults the namespace to discover the argument count; if the method is
// not yet declared (forward reference), consumption returns gracefully
// after the name itself, per spec.md §4.2.
func (st *State) skipTermArg() *Error {
	op, width, err := st.dec.peekOpcode()
	// errUnknownOpcode falls through: a NameString's lead byte is no opcode.
	if err != nil && err != errUnknownOpcode {
		return err
	}

	switch {
	case isDataObjectOp(op):
		st.dec.offset += width
		return st.skipInstruction(op)
	case isLocalOp(op), isArgOp(op):
		st.dec.offset += width
		return nil
	case isExpressionOp(op) && opcodeTable[op] != nil:
		st.dec.offset += width
		return st.skipInstruction(op)
	}

	name, nerr := st.dec.consumeNameString()
	if nerr != nil {
		return nerr
	}
	node := st.ns.Search(name, searchFlags{})
	if node == nil || node.object == nil || node.object.Kind != ObjMethod {
		// Forward reference or plain name: nothing more to skip.
		return nil
	}
	for i := 0; i < node.object.method.ArgCount; i++ {
		if err := st.skipTermArg(); err != nil {
			return err
		}
	}
	return nil
}

// skipSuperName advances the decoder past one SuperName without evaluating
// it: SimpleName (NameString | ArgObj | LocalObj) | DebugObj | a
// reference-producing expression opcode.
func (st *State) skipSuperName() *Error {
	op, width, err := st.dec.peekOpcode()
	// errUnknownOpcode falls through: a NameString's lead byte is no opcode.
	if err != nil && err != errUnknownOpcode {
		return err
	}
	switch {
	case op == opDebug, isLocalOp(op), isArgOp(op):
		st.dec.offset += width
		return nil
	}
	if _, ok := st.dec.matchNameString(); ok {
		return nil
	}
	st.dec.offset += width
	return st.skipInstruction(op)
}
