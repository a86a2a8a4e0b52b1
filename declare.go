package amli

// declareTermList walks [cursor, end) of the current decoder window,
// creating namespace nodes for every name-declaring opcode and skipping
// everything else opaquely, per spec.md §4.7's declaration pass: "walks
// the table creating namespace nodes for every opcode that declares a
// name ... capturing their argument spans for later evaluation, and
// skipping expression opcodes and control flow bodies."
func (st *State) declareTermList(end int) *Error {
	for st.dec.offset < end {
		if err := st.dec.enter(); err != nil {
			return err
		}
		err := st.declareOneTerm()
		st.dec.leave()
		if err != nil {
			return err
		}
	}
	return nil
}

func (st *State) declareOneTerm() *Error {
	op, _, err := st.dec.peekOpcode()
	if err != nil {
		return err
	}
	if isNamespaceModifierOp(op) || isNamedObjectOp(op) {
		res := st.declareOne(nil)
		return res.err
	}
	op, err = st.dec.consumeOpcode()
	if err != nil {
		return err
	}
	return st.skipInstruction(op)
}

// nameStringToString renders a parsed name string back to its textual dot
// form, used to stash an Alias's target path (object.go's aliasTarget is a
// plain string, re-parsed with parseNameString at alias-resolution time).
func nameStringToString(n parsedNameString) string {
	out := ""
	if n.isAbsolute {
		out += `\`
	}
	for i := 0; i < n.parentHops; i++ {
		out += "^"
	}
	for i, s := range n.segments {
		if i > 0 {
			out += "."
		}
		out += s.String()
	}
	return out
}

var globalLockSegment = segmentFromString("_GL")

// declareOne parses and declares exactly one named-object or
// namespace-modifier opcode, per spec.md §4.3's "Node creation" and the
// per-opcode shapes in §4.2/§4.7. It is shared between the table-level
// declaration pass (scope == nil) and in-method declarations evaluated at
// invocation time (scope != nil) — ACPI permits Name/Mutex/Event/
// OperationRegion/CreateXField to appear inside a control method body,
// becoming temporary nodes released when the method scope pops.
func (st *State) declareOne(scope *methodScope) StepResult {
	op, err := st.dec.consumeOpcode()
	if err != nil {
		return stepFatalResult(err)
	}

	switch op {
	case opAlias:
		src, e := st.dec.consumeNameString()
		if e != nil {
			return stepFatalResult(e)
		}
		aliasName, e := st.dec.consumeNameString()
		if e != nil {
			return stepFatalResult(e)
		}
		node, cerr := st.ns.CreateNode(aliasName)
		if cerr != nil {
			return stepFatalResult(cerr)
		}
		node.object = &Object{Kind: ObjAlias, refCount: 1, node: node, aliasTarget: nameStringToString(src)}
		return stepNormalResult()

	case opName:
		name, e := st.dec.consumeNameString()
		if e != nil {
			return stepFatalResult(e)
		}
		node, cerr := st.ns.CreateNode(name)
		if cerr != nil {
			return stepFatalResult(cerr)
		}
		v, verr := st.evalTermArgValue(scope)
		if verr != nil {
			return stepFatalResult(verr)
		}
		node.object = newNameObject(v)
		node.object.node = node
		return stepNormalResult()

	case opScope:
		return st.declareScopeLike(scope, op)

	case opDevice, opThermalZone:
		return st.declareSimpleContainer(scope, op)

	case opProcessor:
		return st.declareProcessor(scope)

	case opPowerRes:
		return st.declarePowerResource(scope)

	case opMethod:
		return st.declareMethod()

	case opMutex:
		name, e := st.dec.consumeNameString()
		if e != nil {
			return stepFatalResult(e)
		}
		flagByte, e := st.dec.consumeByte()
		if e != nil {
			return stepFatalResult(e)
		}
		node, cerr := st.ns.CreateNode(name)
		if cerr != nil {
			return stepFatalResult(cerr)
		}
		var handle HostMutexHandle
		if st.Host != nil {
			handle = st.Host.MutexCreate()
		}
		isGlobal := len(name.segments) == 1 && name.segments[0] == globalLockSegment
		node.object = &Object{Kind: ObjMutex, refCount: 1, node: node, mutex: &MutexInfo{SyncLevel: flagByte & 0x0f, IsGlobal: isGlobal, hostHandle: handle}}
		if isGlobal {
			st.globalLockMutex = node.object
		}
		return stepNormalResult()

	case opEvent:
		name, e := st.dec.consumeNameString()
		if e != nil {
			return stepFatalResult(e)
		}
		node, cerr := st.ns.CreateNode(name)
		if cerr != nil {
			return stepFatalResult(cerr)
		}
		var handle HostEventHandle
		if st.Host != nil {
			handle = st.Host.EventCreate()
		}
		node.object = &Object{Kind: ObjEvent, refCount: 1, node: node, event: &EventInfo{hostHandle: handle}}
		return stepNormalResult()

	case opOpRegion:
		return st.declareOpRegion(scope)

	case opField:
		return st.declareField(scope)
	case opIndexField:
		return st.declareIndexField(scope)
	case opBankField:
		return st.declareBankField(scope)

	case opCreateByteField, opCreateWordField, opCreateDWordField, opCreateQWordField:
		return st.declareFixedBufferField(scope, op)
	case opCreateField:
		return st.declareCreateField(scope)
	case opCreateBitField:
		return st.declareBitBufferField(scope)

	case opDataRegion:
		return st.declareDataRegion(scope)

	case opExternal:
		// External is a forward-declaration hint with no local effect: it
		// names an object this table expects another table to provide.
		// No node is created here; the real declaration (in whichever
		// table actually defines it) is what namespace search will find.
		if _, e := st.dec.consumeNameString(); e != nil {
			return stepFatalResult(e)
		}
		if e := st.skipArg(argByteData); e != nil {
			return stepFatalResult(e)
		}
		if e := st.skipArg(argByteData); e != nil {
			return stepFatalResult(e)
		}
		return stepNormalResult()

	default:
		return stepFatalResult(errUnknownOpcode)
	}
}

// declareBody walks a scope-opening construct's TermList the same way
// declareTermList does (declare names, skip everything else opaquely),
// used for Scope/Device/Processor/PowerResource/ThermalZone bodies.
func (st *State) declareBody(end int) *Error {
	return st.declareTermList(end)
}

func (st *State) declareScopeLike(scope *methodScope, op opcode) StepResult {
	end, err := st.dec.consumePackageLength()
	if err != nil {
		return stepFatalResult(err)
	}
	name, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	st.ns.PushScope(name, 0)
	derr := st.declareBody(end)
	_ = st.ns.PopScope()
	st.dec.offset = end
	if derr != nil {
		return stepFatalResult(derr)
	}
	return stepNormalResult()
}

// declareSimpleContainer handles Device/ThermalZone: NameString then a
// TermList body, creating a namespace node of the matching kind whose
// children are declared by recursing into the body under a pushed scope.
func (st *State) declareSimpleContainer(scope *methodScope, op opcode) StepResult {
	end, err := st.dec.consumePackageLength()
	if err != nil {
		return stepFatalResult(err)
	}
	name, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	node, cerr := st.ns.CreateNode(name)
	if cerr != nil {
		return stepFatalResult(cerr)
	}
	kind := ObjDevice
	if op == opThermalZone {
		kind = ObjThermalZone
	}
	node.object = &Object{Kind: kind, refCount: 1, node: node}

	st.ns.PushScope(name, 0)
	derr := st.declareBody(end)
	_ = st.ns.PopScope()
	st.dec.offset = end
	if derr != nil {
		return stepFatalResult(derr)
	}
	return stepNormalResult()
}

func (st *State) declareProcessor(scope *methodScope) StepResult {
	end, err := st.dec.consumePackageLength()
	if err != nil {
		return stepFatalResult(err)
	}
	name, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	procID, err := st.dec.consumeByte()
	if err != nil {
		return stepFatalResult(err)
	}
	blkAddr, err := st.dec.consumeDword()
	if err != nil {
		return stepFatalResult(err)
	}
	blkLen, err := st.dec.consumeByte()
	if err != nil {
		return stepFatalResult(err)
	}
	node, cerr := st.ns.CreateNode(name)
	if cerr != nil {
		return stepFatalResult(cerr)
	}
	node.object = &Object{Kind: ObjProcessor, refCount: 1, node: node, procID: procID, procBlkAddr: blkAddr, procBlkLen: blkLen}

	st.ns.PushScope(name, 0)
	derr := st.declareBody(end)
	_ = st.ns.PopScope()
	st.dec.offset = end
	if derr != nil {
		return stepFatalResult(derr)
	}
	return stepNormalResult()
}

func (st *State) declarePowerResource(scope *methodScope) StepResult {
	end, err := st.dec.consumePackageLength()
	if err != nil {
		return stepFatalResult(err)
	}
	name, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	sysLevel, err := st.dec.consumeByte()
	if err != nil {
		return stepFatalResult(err)
	}
	resOrder, err := st.dec.consumeWord()
	if err != nil {
		return stepFatalResult(err)
	}
	node, cerr := st.ns.CreateNode(name)
	if cerr != nil {
		return stepFatalResult(cerr)
	}
	node.object = &Object{Kind: ObjPowerResource, refCount: 1, node: node, pwrSysLevel: sysLevel, pwrResOrder: resOrder}

	st.ns.PushScope(name, 0)
	derr := st.declareBody(end)
	_ = st.ns.PopScope()
	st.dec.offset = end
	if derr != nil {
		return stepFatalResult(derr)
	}
	return stepNormalResult()
}

func (st *State) declareMethod() StepResult {
	end, err := st.dec.consumePackageLength()
	if err != nil {
		return stepFatalResult(err)
	}
	name, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	flagByte, err := st.dec.consumeByte()
	if err != nil {
		return stepFatalResult(err)
	}
	node, cerr := st.ns.CreateNode(name)
	if cerr != nil {
		return stepFatalResult(cerr)
	}
	mi := &MethodInfo{
		TableHandle: st.currentTableHandle,
		ByteOffset:  st.dec.offset,
		ByteLength:  end - st.dec.offset,
		ArgCount:    int(flagByte & 0x07),
		Serialized:  flagByte&0x08 != 0,
		SyncLevel:   flagByte >> 4,
	}
	node.object = &Object{Kind: ObjMethod, refCount: 1, node: node, method: mi}
	st.dec.offset = end // method body is only walked when invoked
	return stepNormalResult()
}

func (st *State) declareOpRegion(scope *methodScope) StepResult {
	name, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	spaceByte, err := st.dec.consumeByte()
	if err != nil {
		return stepFatalResult(err)
	}
	offsetVal, verr := st.evalTermArgValue(scope)
	if verr != nil {
		return stepFatalResult(verr)
	}
	offset, oerr := offsetVal.asInteger(st.intWidth)
	if oerr != nil {
		return stepFatalResult(oerr)
	}
	lengthVal, verr := st.evalTermArgValue(scope)
	if verr != nil {
		return stepFatalResult(verr)
	}
	length, lerr := lengthVal.asInteger(st.intWidth)
	if lerr != nil {
		return stepFatalResult(lerr)
	}

	node, cerr := st.ns.CreateNode(name)
	if cerr != nil {
		return stepFatalResult(cerr)
	}
	region := &RegionInfo{Space: RegionSpace(spaceByte), Offset: offset, Length: length}
	node.object = &Object{Kind: ObjOperationRegion, refCount: 1, node: node, region: region}
	return stepNormalResult()
}

func (st *State) declareDataRegion(scope *methodScope) StepResult {
	name, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	// Signature/OEMID/OEMTableID TermArgs: evaluated only to advance the
	// decoder past them. Host.TableLookup is not called; the node always
	// gets an empty SystemMemory region, whether or not such a table exists.
	for i := 0; i < 3; i++ {
		if _, verr := st.evalTermArgValue(scope); verr != nil {
			return stepFatalResult(verr)
		}
	}
	node, cerr := st.ns.CreateNode(name)
	if cerr != nil {
		return stepFatalResult(cerr)
	}
	node.object = &Object{Kind: ObjOperationRegion, refCount: 1, node: node, region: &RegionInfo{Space: RegionSystemMemory}}
	return stepNormalResult()
}

// --- Field lists (spec.md §4.4, §4.2's named-object-op group) ---

const (
	fieldTagReserved = 0x00
	fieldTagAccess   = 0x01
	fieldTagConnect  = 0x02
	fieldTagExtAcc   = 0x03
)

// parseFieldList walks a FieldList body, creating one object per NamedField
// via create, and advancing a running bit cursor across
// ReservedField/AccessField/ConnectionField entries, per spec.md §4.4's
// FieldUnit description.
func (st *State) parseFieldList(end int, baseFlags byte, create func(seg nameSegment, bitOffset, bitLength uint64, access FieldAccessType) *Error) *Error {
	access := FieldAccessType(baseFlags & 0x0f)
	bitCursor := uint64(0)

	for st.dec.offset < end {
		tag, err := st.dec.consumeByte()
		if err != nil {
			return err
		}
		switch tag {
		case fieldTagReserved:
			bits, err := st.dec.consumePkgLengthValue()
			if err != nil {
				return err
			}
			bitCursor += uint64(bits)
		case fieldTagAccess:
			accessByte, err := st.dec.consumeByte()
			if err != nil {
				return err
			}
			if _, err := st.dec.consumeByte(); err != nil { // AccessAttrib
				return err
			}
			access = FieldAccessType(accessByte & 0x0f)
		case fieldTagExtAcc:
			accessByte, err := st.dec.consumeByte()
			if err != nil {
				return err
			}
			if _, err := st.dec.consumeByte(); err != nil { // AccessAttrib
				return err
			}
			if _, err := st.dec.consumeByte(); err != nil { // AccessLength
				return err
			}
			access = FieldAccessType(accessByte & 0x0f)
		case fieldTagConnect:
			// ConnectionField: either a NameString (to a Resource
			// template Name) or a DefBuffer TermArg. Skipped opaquely:
			// GPIO/SerialBus connection routing is a host-side concern
			// this core does not resolve on its own (spec.md §1 excludes
			// "the low-level byte layout of ACPI resource descriptors").
			if _, ok := st.dec.matchNameString(); !ok {
				if err := st.skipTermArg(); err != nil {
					return err
				}
			}
		default:
			var seg nameSegment
			seg[0] = tag
			if st.dec.offset+3 > st.dec.windowEnd {
				return errTruncatedStream
			}
			copy(seg[1:], st.dec.data[st.dec.offset:st.dec.offset+3])
			st.dec.offset += 3
			if verr := validateSegment(seg); verr != nil {
				return verr
			}
			bits, err := st.dec.consumePkgLengthValue()
			if err != nil {
				return err
			}
			if err := create(seg, bitCursor, uint64(bits), access); err != nil {
				return err
			}
			bitCursor += uint64(bits)
		}
	}
	return nil
}

func singleSegName(seg nameSegment) parsedNameString {
	return parsedNameString{segments: []nameSegment{seg}}
}

func (st *State) declareField(scope *methodScope) StepResult {
	end, err := st.dec.consumePackageLength()
	if err != nil {
		return stepFatalResult(err)
	}
	regionName, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	flags, err := st.dec.consumeByte()
	if err != nil {
		return stepFatalResult(err)
	}
	regionNode := st.ns.Search(regionName, searchFlags{})
	if regionNode == nil || regionNode.object == nil {
		return stepFatalResult(errNameNotFound)
	}
	lockRule := FieldLockRule(0)
	if flags&0x10 != 0 {
		lockRule = LockRule
	}
	updateRule := FieldUpdateRule((flags >> 5) & 0x3)

	perr := st.parseFieldList(end, flags, func(seg nameSegment, bitOffset, bitLength uint64, access FieldAccessType) *Error {
		node, cerr := st.ns.CreateNode(singleSegName(seg))
		if cerr != nil {
			return cerr
		}
		node.object = &Object{Kind: ObjField, refCount: 1, node: node, field: &FieldInfo{
			AccessType: access, LockRule: lockRule, UpdateRule: updateRule,
			BitOffset: bitOffset, BitLength: bitLength, region: regionNode.object,
		}}
		return nil
	})
	st.dec.offset = end
	if perr != nil {
		return stepFatalResult(perr)
	}
	return stepNormalResult()
}

func (st *State) declareIndexField(scope *methodScope) StepResult {
	end, err := st.dec.consumePackageLength()
	if err != nil {
		return stepFatalResult(err)
	}
	indexName, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	dataName, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	flags, err := st.dec.consumeByte()
	if err != nil {
		return stepFatalResult(err)
	}
	indexNode := st.ns.Search(indexName, searchFlags{})
	dataNode := st.ns.Search(dataName, searchFlags{})
	if indexNode == nil || dataNode == nil || indexNode.object == nil || dataNode.object == nil {
		return stepFatalResult(errNameNotFound)
	}
	lockRule := FieldLockRule(0)
	if flags&0x10 != 0 {
		lockRule = LockRule
	}
	updateRule := FieldUpdateRule((flags >> 5) & 0x3)

	perr := st.parseFieldList(end, flags, func(seg nameSegment, bitOffset, bitLength uint64, access FieldAccessType) *Error {
		node, cerr := st.ns.CreateNode(singleSegName(seg))
		if cerr != nil {
			return cerr
		}
		node.object = &Object{Kind: ObjIndexField, refCount: 1, node: node, field: &FieldInfo{
			AccessType: access, LockRule: lockRule, UpdateRule: updateRule,
			BitOffset: bitOffset, BitLength: bitLength,
			indexField: indexNode.object, dataField: dataNode.object,
		}}
		return nil
	})
	st.dec.offset = end
	if perr != nil {
		return stepFatalResult(perr)
	}
	return stepNormalResult()
}

func (st *State) declareBankField(scope *methodScope) StepResult {
	end, err := st.dec.consumePackageLength()
	if err != nil {
		return stepFatalResult(err)
	}
	regionName, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	bankName, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	bankValueVal, verr := st.evalTermArgValue(scope)
	if verr != nil {
		return stepFatalResult(verr)
	}
	bankValue, berr := bankValueVal.asInteger(st.intWidth)
	if berr != nil {
		return stepFatalResult(berr)
	}
	flags, err := st.dec.consumeByte()
	if err != nil {
		return stepFatalResult(err)
	}
	regionNode := st.ns.Search(regionName, searchFlags{})
	bankNode := st.ns.Search(bankName, searchFlags{})
	if regionNode == nil || bankNode == nil || regionNode.object == nil || bankNode.object == nil {
		return stepFatalResult(errNameNotFound)
	}
	lockRule := FieldLockRule(0)
	if flags&0x10 != 0 {
		lockRule = LockRule
	}
	updateRule := FieldUpdateRule((flags >> 5) & 0x3)

	perr := st.parseFieldList(end, flags, func(seg nameSegment, bitOffset, bitLength uint64, access FieldAccessType) *Error {
		node, cerr := st.ns.CreateNode(singleSegName(seg))
		if cerr != nil {
			return cerr
		}
		node.object = &Object{Kind: ObjBankField, refCount: 1, node: node, field: &FieldInfo{
			AccessType: access, LockRule: lockRule, UpdateRule: updateRule,
			BitOffset: bitOffset, BitLength: bitLength,
			region: regionNode.object, bankField: bankNode.object, bankValue: bankValue,
		}}
		return nil
	})
	st.dec.offset = end
	if perr != nil {
		return stepFatalResult(perr)
	}
	return stepNormalResult()
}

// --- CreateXField (BufferField declarations over an existing Buffer) ---

func (st *State) declareFixedBufferField(scope *methodScope, op opcode) StepResult {
	bufVal, verr := st.evalTermArgValue(scope)
	if verr != nil {
		return stepFatalResult(verr)
	}
	byteOffsetVal, verr := st.evalTermArgValue(scope)
	if verr != nil {
		return stepFatalResult(verr)
	}
	byteOffset, oerr := byteOffsetVal.asInteger(st.intWidth)
	if oerr != nil {
		return stepFatalResult(oerr)
	}
	name, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	bitLength := uint64(8)
	switch op {
	case opCreateWordField:
		bitLength = 16
	case opCreateDWordField:
		bitLength = 32
	case opCreateQWordField:
		bitLength = 64
	}
	return st.createBufferFieldNode(name, bufVal, byteOffset*8, bitLength)
}

func (st *State) declareBitBufferField(scope *methodScope) StepResult {
	bufVal, verr := st.evalTermArgValue(scope)
	if verr != nil {
		return stepFatalResult(verr)
	}
	bitOffsetVal, verr := st.evalTermArgValue(scope)
	if verr != nil {
		return stepFatalResult(verr)
	}
	bitOffset, oerr := bitOffsetVal.asInteger(st.intWidth)
	if oerr != nil {
		return stepFatalResult(oerr)
	}
	name, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	return st.createBufferFieldNode(name, bufVal, bitOffset, 1)
}

func (st *State) declareCreateField(scope *methodScope) StepResult {
	bufVal, verr := st.evalTermArgValue(scope)
	if verr != nil {
		return stepFatalResult(verr)
	}
	bitOffsetVal, verr := st.evalTermArgValue(scope)
	if verr != nil {
		return stepFatalResult(verr)
	}
	bitOffset, oerr := bitOffsetVal.asInteger(st.intWidth)
	if oerr != nil {
		return stepFatalResult(oerr)
	}
	numBitsVal, verr := st.evalTermArgValue(scope)
	if verr != nil {
		return stepFatalResult(verr)
	}
	numBits, nerr := numBitsVal.asInteger(st.intWidth)
	if nerr != nil {
		return stepFatalResult(nerr)
	}
	name, err := st.dec.consumeNameString()
	if err != nil {
		return stepFatalResult(err)
	}
	return st.createBufferFieldNode(name, bufVal, bitOffset, numBits)
}

func (st *State) createBufferFieldNode(name parsedNameString, bufVal Value, bitOffset, bitLength uint64) StepResult {
	if bufVal.Kind != KindBuffer || bufVal.buf == nil {
		return stepFatalResult(errTypeMismatch)
	}
	node, cerr := st.ns.CreateNode(name)
	if cerr != nil {
		return stepFatalResult(cerr)
	}
	node.object = &Object{Kind: ObjBufferField, refCount: 1, node: node, field: &FieldInfo{
		BitOffset: bitOffset, BitLength: bitLength, bufferField: bufVal.buf.addRef(),
	}}
	return stepNormalResult()
}
