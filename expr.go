package amli

// evalTermArgValue consumes and evaluates exactly one TermArg (spec.md
// §4.2/§4.7): a DataObject, a Local/Arg reference, an expression opcode, or
// a bare NameString (a plain reference or a zero/more-arg method
// invocation).
func (st *State) evalTermArgValue(scope *methodScope) (Value, *Error) {
	op, width, err := st.dec.peekOpcode()
	// errUnknownOpcode falls through: a NameString's lead byte is no opcode.
	if err != nil && err != errUnknownOpcode {
		return UninitializedValue, err
	}

	switch {
	case isLocalOp(op):
		st.dec.offset += width
		return scope.getLocal(int(op - opLocal0)), nil
	case isArgOp(op):
		st.dec.offset += width
		return scope.getArg(int(op - opArg0)), nil
	case op == opZero, op == opOne, op == opOnes, op == opRevision,
		op == opBytePrefix, op == opWordPrefix, op == opDwordPrefix, op == opQwordPrefix, op == opStringPrefix,
		op == opBuffer, op == opPackage, op == opVarPackage:
		st.dec.offset += width
		return st.evalDataObject(scope, op)
	case op == opDebug:
		st.dec.offset += width
		return Value{}, nil
	}

	if isExpressionOp(op) {
		st.dec.offset += width
		return st.evalExpressionOp(scope, op)
	}

	// Bare NameString: a plain data reference, or a method invocation if
	// the resolved object turns out to be one.
	name, ok := st.dec.matchNameString()
	if !ok {
		return UninitializedValue, errUnknownOpcode
	}
	node := st.ns.Search(name, searchFlags{})
	if node == nil || node.object == nil {
		return UninitializedValue, errNameNotFound
	}
	obj := node.object
	if obj.Kind == ObjMethod {
		args := make([]Value, obj.method.ArgCount)
		for i := range args {
			v, verr := st.evalTermArgValue(scope)
			if verr != nil {
				return UninitializedValue, verr
			}
			args[i] = v
		}
		return st.invokeMethod(obj, scope, args)
	}
	return st.loadNode(node, scope)
}

// evalExpression consumes one opcode and evaluates it as an expression,
// used wherever a SuperName falls through to a reference-producing nested
// expression (e.g. Index/RefOf/DerefOf appearing as a store target).
func (st *State) evalExpression(scope *methodScope) (Value, *Error) {
	op, err := st.dec.consumeOpcode()
	if err != nil {
		return UninitializedValue, err
	}
	if isDataObjectOp(op) {
		return st.evalDataObject(scope, op)
	}
	return st.evalExpressionOp(scope, op)
}

// evalDataObject evaluates a literal DataObject opcode already consumed
// from the stream.
func (st *State) evalDataObject(scope *methodScope, op opcode) (Value, *Error) {
	switch op {
	case opZero:
		return IntegerValue(0), nil
	case opOne:
		return IntegerValue(1), nil
	case opOnes:
		return IntegerValue(onesForWidth(st.intWidth)), nil
	case opRevision:
		return IntegerValue(2), nil
	case opBytePrefix:
		b, err := st.dec.consumeByte()
		return IntegerValue(uint64(b)), err
	case opWordPrefix:
		w, err := st.dec.consumeWord()
		return IntegerValue(uint64(w)), err
	case opDwordPrefix:
		d, err := st.dec.consumeDword()
		return IntegerValue(uint64(d)), err
	case opQwordPrefix:
		q, err := st.dec.consumeQword()
		return IntegerValue(q), err
	case opStringPrefix:
		start := st.dec.offset
		for st.dec.offset < st.dec.windowEnd && st.dec.data[st.dec.offset] != 0x00 {
			st.dec.offset++
		}
		if st.dec.offset >= st.dec.windowEnd {
			return UninitializedValue, errTruncatedStream
		}
		s := string(st.dec.data[start:st.dec.offset])
		st.dec.offset++ // NUL terminator
		return StringValue(s), nil
	case opBuffer:
		end, err := st.dec.consumePackageLength()
		if err != nil {
			return UninitializedValue, err
		}
		sizeVal, verr := st.evalTermArgValue(scope)
		if verr != nil {
			return UninitializedValue, verr
		}
		size, serr := sizeVal.asInteger(st.intWidth)
		if serr != nil {
			return UninitializedValue, serr
		}
		buf := make([]byte, size)
		n := copy(buf, st.dec.data[st.dec.offset:end])
		_ = n
		st.dec.offset = end
		return BufferValue(buf), nil
	case opPackage, opVarPackage:
		end, err := st.dec.consumePackageLength()
		if err != nil {
			return UninitializedValue, err
		}
		var count uint64
		if op == opPackage {
			b, berr := st.dec.consumeByte()
			if berr != nil {
				return UninitializedValue, berr
			}
			count = uint64(b)
		} else {
			cv, cerr := st.evalTermArgValue(scope)
			if cerr != nil {
				return UninitializedValue, cerr
			}
			count, err = cv.asInteger(st.intWidth)
			if err != nil {
				return UninitializedValue, err
			}
		}
		elems := make([]Value, 0, count)
		for st.dec.offset < end {
			v, verr := st.evalPackageElement(scope)
			if verr != nil {
				return UninitializedValue, verr
			}
			elems = append(elems, v)
		}
		for uint64(len(elems)) < count {
			elems = append(elems, UninitializedValue)
		}
		st.dec.offset = end
		if op == opPackage {
			return PackageValue(elems), nil
		}
		return VarPackageValue(elems), nil
	default:
		return UninitializedValue, errUnknownOpcode
	}
}

// evalPackageElement evaluates one PackageElement: either a nested
// DataObject/expression TermArg, or a bare NameString naming an existing
// object (ACPI allows plain object references inside package literals).
func (st *State) evalPackageElement(scope *methodScope) (Value, *Error) {
	save := st.dec.offset
	if name, ok := st.dec.matchNameString(); ok {
		node := st.ns.Search(name, searchFlags{})
		if node != nil {
			return ReferenceValue(RefObject, node.object, 0), nil
		}
	}
	st.dec.offset = save
	return st.evalTermArgValue(scope)
}

// evalExpressionOp evaluates an already-consumed expression opcode's
// arguments, per spec.md §4.7's expression-evaluation rules.
func (st *State) evalExpressionOp(scope *methodScope, op opcode) (Value, *Error) {
	switch op {
	case opAdd, opSubtract, opMultiply, opAnd, opNand, opOr, opNor, opXor, opShiftLeft, opShiftRight, opMod:
		return st.evalBinaryArith(scope, op)
	case opDivide:
		return st.evalDivide(scope)
	case opNot:
		a, target, err := st.evalUnaryArith(scope)
		if err != nil {
			return UninitializedValue, err
		}
		return st.storeArithResult(scope, target, truncateToWidth(^a, st.intWidth))
	case opFindSetLeftBit:
		a, target, err := st.evalUnaryArith(scope)
		if err != nil {
			return UninitializedValue, err
		}
		return st.storeArithResult(scope, target, findSetLeftBit(a, st.intWidth))
	case opFindSetRightBit:
		a, target, err := st.evalUnaryArith(scope)
		if err != nil {
			return UninitializedValue, err
		}
		return st.storeArithResult(scope, target, findSetRightBit(a))
	case opIncrement, opDecrement:
		// Reached as a TermArg and also in statement position: Increment/
		// Decrement are not statement opcodes, so evalOneTerm sends them
		// through evalExpression to here rather than to execIncDec.
		target, err := st.consumeSuperName(scope)
		if err != nil {
			return UninitializedValue, err
		}
		v, err := st.loadTarget(scope, target)
		if err != nil {
			return UninitializedValue, err
		}
		n, err := v.asInteger(st.intWidth)
		if err != nil {
			return UninitializedValue, err
		}
		if op == opIncrement {
			n++
		} else {
			n--
		}
		n = truncateToWidth(n, st.intWidth)
		if err := st.storeToTarget(scope, target, IntegerValue(n)); err != nil {
			return UninitializedValue, err
		}
		return IntegerValue(n), nil
	case opConcat:
		return st.evalConcat(scope)
	case opConcatRes:
		return st.evalConcat(scope) // resource-descriptor concat treated as plain buffer concat
	case opLand, opLor:
		a, err := st.evalTermArgValue(scope)
		if err != nil {
			return UninitializedValue, err
		}
		an, _ := a.asInteger(st.intWidth)
		b, err := st.evalTermArgValue(scope)
		if err != nil {
			return UninitializedValue, err
		}
		bn, _ := b.asInteger(st.intWidth)
		var r bool
		if op == opLand {
			r = an != 0 && bn != 0
		} else {
			r = an != 0 || bn != 0
		}
		return boolValue(r, st.intWidth), nil
	case opLnot:
		a, err := st.evalTermArgValue(scope)
		if err != nil {
			return UninitializedValue, err
		}
		an, _ := a.asInteger(st.intWidth)
		return boolValue(an == 0, st.intWidth), nil
	case opLEqual, opLNotEqual, opLGreater, opLGreaterEqual, opLLess, opLLessEqual:
		return st.evalComparison(scope, op)
	case opToBuffer:
		return st.evalConversion(scope, op)
	case opToDecimalString, opToHexString, opToString:
		return st.evalConversion(scope, op)
	case opToInteger:
		return st.evalConversion(scope, op)
	case opFromBCD, opToBCD:
		return st.evalBCD(scope, op)
	case opMid:
		return st.evalMid(scope)
	case opRefOf:
		target, err := st.consumeSuperName(scope)
		if err != nil {
			return UninitializedValue, err
		}
		return st.refOfTarget(target), nil
	case opCondRefOf:
		target, err := st.consumeSuperNameForCondRef(scope)
		if err != nil {
			return UninitializedValue, err
		}
		storeTarget, serr := st.consumeTarget(scope)
		if serr != nil {
			return UninitializedValue, serr
		}
		if target.kind == targetNull {
			_ = st.storeToTarget(scope, storeTarget, IntegerValue(0))
			return IntegerValue(0), nil
		}
		_ = st.storeToTarget(scope, storeTarget, st.refOfTarget(target))
		return IntegerValue(onesForWidth(st.intWidth)), nil
	case opDerefOf:
		v, err := st.evalTermArgValue(scope)
		if err != nil {
			return UninitializedValue, err
		}
		return st.derefValue(scope, v)
	case opIndex:
		return st.evalIndex(scope)
	case opSizeOf:
		target, err := st.consumeSuperName(scope)
		if err != nil {
			return UninitializedValue, err
		}
		v, err := st.loadTarget(scope, target)
		if err != nil {
			return UninitializedValue, err
		}
		return IntegerValue(sizeOfValue(v)), nil
	case opObjectType:
		target, err := st.consumeSuperName(scope)
		if err != nil {
			return UninitializedValue, err
		}
		return IntegerValue(uint64(objectTypeOf(target))), nil
	case opMatch:
		return st.evalMatch(scope)
	default:
		return UninitializedValue, errUnknownOpcode
	}
}

func boolValue(b bool, width int) Value {
	if b {
		return IntegerValue(onesForWidth(width))
	}
	return IntegerValue(0)
}

// evalUnaryArith consumes (Operand, Target) and returns the operand's
// integer value plus the resolved store target.
func (st *State) evalUnaryArith(scope *methodScope) (uint64, resolvedTarget, *Error) {
	v, err := st.evalTermArgValue(scope)
	if err != nil {
		return 0, resolvedTarget{}, err
	}
	n, err := v.asInteger(st.intWidth)
	if err != nil {
		return 0, resolvedTarget{}, err
	}
	target, terr := st.consumeTarget(scope)
	if terr != nil {
		return 0, resolvedTarget{}, terr
	}
	return n, target, nil
}

func (st *State) storeArithResult(scope *methodScope, target resolvedTarget, n uint64) (Value, *Error) {
	result := IntegerValue(n)
	if err := st.storeToTarget(scope, target, result); err != nil {
		return UninitializedValue, err
	}
	return result, nil
}

// evalBinaryArith handles the common (Operand, Operand, Target) shape.
func (st *State) evalBinaryArith(scope *methodScope, op opcode) (Value, *Error) {
	av, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	a, err := av.asInteger(st.intWidth)
	if err != nil {
		return UninitializedValue, err
	}
	bv, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	b, err := bv.asInteger(st.intWidth)
	if err != nil {
		return UninitializedValue, err
	}
	target, err := st.consumeTarget(scope)
	if err != nil {
		return UninitializedValue, err
	}

	var r uint64
	switch op {
	case opAdd:
		r = a + b
	case opSubtract:
		r = a - b
	case opMultiply:
		r = a * b
	case opAnd:
		r = a & b
	case opNand:
		r = ^(a & b)
	case opOr:
		r = a | b
	case opNor:
		r = ^(a | b)
	case opXor:
		r = a ^ b
	case opShiftLeft:
		r = a << b
	case opShiftRight:
		r = a >> b
	case opMod:
		if b == 0 {
			return UninitializedValue, errDivideByZero
		}
		r = a % b
	}
	return st.storeArithResult(scope, target, truncateToWidth(r, st.intWidth))
}

func (st *State) evalDivide(scope *methodScope) (Value, *Error) {
	av, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	a, err := av.asInteger(st.intWidth)
	if err != nil {
		return UninitializedValue, err
	}
	bv, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	b, err := bv.asInteger(st.intWidth)
	if err != nil {
		return UninitializedValue, err
	}
	if b == 0 {
		return UninitializedValue, errDivideByZero
	}
	remTarget, err := st.consumeTarget(scope)
	if err != nil {
		return UninitializedValue, err
	}
	quotTarget, err := st.consumeTarget(scope)
	if err != nil {
		return UninitializedValue, err
	}
	quot := truncateToWidth(a/b, st.intWidth)
	rem := truncateToWidth(a%b, st.intWidth)
	if err := st.storeToTarget(scope, remTarget, IntegerValue(rem)); err != nil {
		return UninitializedValue, err
	}
	if err := st.storeToTarget(scope, quotTarget, IntegerValue(quot)); err != nil {
		return UninitializedValue, err
	}
	return IntegerValue(quot), nil
}

func (st *State) evalComparison(scope *methodScope, op opcode) (Value, *Error) {
	av, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	bv, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}

	if av.Kind == KindBuffer || av.Kind == KindString || bv.Kind == KindBuffer || bv.Kind == KindString {
		return boolValue(compareByteSequences(op, valueBytes(av), valueBytes(bv)), st.intWidth), nil
	}
	a, err := av.asInteger(st.intWidth)
	if err != nil {
		return UninitializedValue, err
	}
	b, err := bv.asInteger(st.intWidth)
	if err != nil {
		return UninitializedValue, err
	}
	var r bool
	switch op {
	case opLEqual:
		r = a == b
	case opLNotEqual:
		r = a != b
	case opLGreater:
		r = a > b
	case opLGreaterEqual:
		r = a >= b
	case opLLess:
		r = a < b
	case opLLessEqual:
		r = a <= b
	}
	return boolValue(r, st.intWidth), nil
}

func valueBytes(v Value) []byte {
	switch v.Kind {
	case KindBuffer:
		b, _ := v.Bytes()
		return b
	case KindString:
		return []byte(v.str)
	default:
		return nil
	}
}

func compareByteSequences(op opcode, a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	cmp := 0
	for i := 0; i < n && cmp == 0; i++ {
		if a[i] < b[i] {
			cmp = -1
		} else if a[i] > b[i] {
			cmp = 1
		}
	}
	if cmp == 0 {
		switch {
		case len(a) < len(b):
			cmp = -1
		case len(a) > len(b):
			cmp = 1
		}
	}
	switch op {
	case opLEqual:
		return cmp == 0
	case opLNotEqual:
		return cmp != 0
	case opLGreater:
		return cmp > 0
	case opLGreaterEqual:
		return cmp >= 0
	case opLLess:
		return cmp < 0
	case opLLessEqual:
		return cmp <= 0
	default:
		return false
	}
}

func (st *State) evalConcat(scope *methodScope) (Value, *Error) {
	av, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	bv, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	target, err := st.consumeTarget(scope)
	if err != nil {
		return UninitializedValue, err
	}

	var result Value
	switch av.Kind {
	case KindString:
		result = StringValue(av.str + stringify(bv))
	case KindBuffer:
		ab, _ := av.Bytes()
		result = BufferValue(append(append([]byte{}, ab...), valueBytes(bv)...))
	default:
		an, _ := av.asInteger(st.intWidth)
		bn, _ := bv.asInteger(st.intWidth)
		buf := make([]byte, 0, 16)
		buf = appendIntBytes(buf, an, st.intWidth)
		buf = appendIntBytes(buf, bn, st.intWidth)
		result = BufferValue(buf)
	}
	if err := st.storeToTarget(scope, target, result); err != nil {
		return UninitializedValue, err
	}
	return result, nil
}

func appendIntBytes(buf []byte, n uint64, width int) []byte {
	for i := 0; i < width/8; i++ {
		buf = append(buf, byte(n>>(8*i)))
	}
	return buf
}

func stringify(v Value) string {
	switch v.Kind {
	case KindString:
		return v.str
	case KindBuffer:
		b, _ := v.Bytes()
		return string(b)
	default:
		n, _ := v.Integer()
		return formatHex(n)
	}
}

func formatHex(n uint64) string {
	const digits = "0123456789ABCDEF"
	if n == 0 {
		return "0x0"
	}
	var buf [18]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n&0xf]
		n >>= 4
	}
	return "0x" + string(buf[i:])
}

func (st *State) evalConversion(scope *methodScope, op opcode) (Value, *Error) {
	v, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	if op == opToString {
		// ToString(Buffer, Length, Target)
		lenVal, lerr := st.evalTermArgValue(scope)
		if lerr != nil {
			return UninitializedValue, lerr
		}
		_ = lenVal
	}
	target, terr := st.consumeTarget(scope)
	if terr != nil {
		return UninitializedValue, terr
	}

	var result Value
	switch op {
	case opToBuffer:
		switch v.Kind {
		case KindBuffer:
			result = v
		default:
			n, _ := v.asInteger(st.intWidth)
			result = BufferValue(appendIntBytes(nil, n, st.intWidth))
		}
	case opToInteger:
		n, cerr := v.asInteger(st.intWidth)
		if cerr != nil {
			return UninitializedValue, cerr
		}
		result = IntegerValue(n)
	case opToDecimalString:
		n, _ := v.asInteger(st.intWidth)
		result = StringValue(formatDecimal(n))
	case opToHexString:
		n, _ := v.asInteger(st.intWidth)
		result = StringValue(formatHex(n))
	case opToString:
		result = StringValue(stringify(v))
	}
	if err := st.storeToTarget(scope, target, result); err != nil {
		return UninitializedValue, err
	}
	return result, nil
}

func formatDecimal(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (st *State) evalBCD(scope *methodScope, op opcode) (Value, *Error) {
	v, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	n, err := v.asInteger(st.intWidth)
	if err != nil {
		return UninitializedValue, err
	}
	target, err := st.consumeTarget(scope)
	if err != nil {
		return UninitializedValue, err
	}
	var r uint64
	if op == opFromBCD {
		r = fromBCD(n)
	} else {
		r = toBCD(n)
	}
	return st.storeArithResult(scope, target, truncateToWidth(r, st.intWidth))
}

func fromBCD(n uint64) uint64 {
	var r uint64
	mul := uint64(1)
	for n > 0 {
		r += (n & 0xf) * mul
		mul *= 10
		n >>= 4
	}
	return r
}

func toBCD(n uint64) uint64 {
	var r uint64
	shift := uint(0)
	for n > 0 {
		r |= (n % 10) << shift
		shift += 4
		n /= 10
	}
	return r
}

func (st *State) evalMid(scope *methodScope) (Value, *Error) {
	srcVal, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	idxVal, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	idx, err := idxVal.asInteger(st.intWidth)
	if err != nil {
		return UninitializedValue, err
	}
	lenVal, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	length, err := lenVal.asInteger(st.intWidth)
	if err != nil {
		return UninitializedValue, err
	}
	target, err := st.consumeTarget(scope)
	if err != nil {
		return UninitializedValue, err
	}

	var result Value
	if srcVal.Kind == KindString {
		s := srcVal.str
		result = StringValue(sliceRange(s, int(idx), int(length)))
	} else {
		b := valueBytes(srcVal)
		result = BufferValue([]byte(sliceRange(string(b), int(idx), int(length))))
	}
	if err := st.storeToTarget(scope, target, result); err != nil {
		return UninitializedValue, err
	}
	return result, nil
}

func sliceRange(s string, idx, length int) string {
	if idx >= len(s) {
		return ""
	}
	end := idx + length
	if end > len(s) {
		end = len(s)
	}
	return s[idx:end]
}

// refOfTarget builds a Reference Value pointing at an already-resolved
// store target (spec.md §4.4's Reference kind).
func (st *State) refOfTarget(t resolvedTarget) Value {
	switch t.kind {
	case targetLocal:
		return ReferenceValue(RefLocal, nil, t.index)
	case targetArg:
		return ReferenceValue(RefArg, nil, t.index)
	case targetNode:
		return ReferenceValue(RefObject, t.node.object, 0)
	default:
		return UninitializedValue
	}
}

// consumeSuperNameForCondRef resolves a SuperName for CondRefOf without
// failing on an unresolved name: spec.md's CondRefOf evaluates to False
// rather than erroring when the referent doesn't exist.
func (st *State) consumeSuperNameForCondRef(scope *methodScope) (resolvedTarget, *Error) {
	save := st.dec.offset
	t, err := st.consumeSuperName(scope)
	if err == errNameNotFound {
		st.dec.offset = save
		if _, ok := st.dec.matchNameString(); ok {
			return resolvedTarget{kind: targetNull}, nil
		}
	}
	return t, err
}

func (st *State) derefValue(scope *methodScope, v Value) (Value, *Error) {
	if v.Kind != KindReference {
		return v, nil
	}
	return st.loadTarget(scope, referenceToTarget(v))
}

// evalIndex implements Index(Source, Index, Target): for a Package it
// returns the element's value; for a Buffer/String it returns the byte at
// Index as an Integer. The result is a copy, not a Reference, so a later
// store through it does not write back into Source.
func (st *State) evalIndex(scope *methodScope) (Value, *Error) {
	srcVal, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	idxVal, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	idx, err := idxVal.asInteger(st.intWidth)
	if err != nil {
		return UninitializedValue, err
	}
	target, err := st.consumeTarget(scope)
	if err != nil {
		return UninitializedValue, err
	}

	var result Value
	switch srcVal.Kind {
	case KindPackage, KindVarPackage:
		elems, _ := srcVal.Elements()
		if int(idx) >= len(elems) {
			return UninitializedValue, errIndexOutOfBounds
		}
		result = elems[idx]
	default:
		b := valueBytes(srcVal)
		if int(idx) >= len(b) {
			return UninitializedValue, errIndexOutOfBounds
		}
		result = IntegerValue(uint64(b[idx]))
	}
	if err := st.storeToTarget(scope, target, result); err != nil {
		return UninitializedValue, err
	}
	return result, nil
}

func sizeOfValue(v Value) uint64 {
	switch v.Kind {
	case KindBuffer:
		b, _ := v.Bytes()
		return uint64(len(b))
	case KindString:
		return uint64(len(v.str))
	case KindPackage, KindVarPackage:
		e, _ := v.Elements()
		return uint64(len(e))
	default:
		return 0
	}
}

// objectTypeOf mirrors ACPI's ObjectType opcode: an integer enumerating the
// kind of object a SuperName resolves to.
func objectTypeOf(t resolvedTarget) int {
	if t.kind != targetNode || t.node == nil || t.node.object == nil {
		return 0 // Uninitialized
	}
	switch t.node.object.Kind {
	case ObjName:
		switch t.node.object.value.Kind {
		case KindInteger:
			return 1
		case KindString:
			return 2
		case KindBuffer:
			return 3
		case KindPackage, KindVarPackage:
			return 4
		default:
			return 0
		}
	case ObjField, ObjBankField, ObjIndexField:
		return 5
	case ObjDevice:
		return 6
	case ObjEvent:
		return 7
	case ObjMethod:
		return 8
	case ObjMutex:
		return 9
	case ObjOperationRegion:
		return 10
	case ObjPowerResource:
		return 11
	case ObjProcessor:
		return 12
	case ObjThermalZone:
		return 13
	case ObjBufferField:
		return 14
	default:
		return 0
	}
}

func findSetLeftBit(n uint64, width int) uint64 {
	if n == 0 {
		return 0
	}
	for i := width - 1; i >= 0; i-- {
		if n&(uint64(1)<<uint(i)) != 0 {
			return uint64(i + 1)
		}
	}
	return 0
}

func findSetRightBit(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	for i := 0; i < 64; i++ {
		if n&(uint64(1)<<uint(i)) != 0 {
			return uint64(i + 1)
		}
	}
	return 0
}

// evalMatch implements the Match(Package, MatchOp1, MatchObj1, MatchOp2,
// MatchObj2, StartIndex) search, returning the index of the first matching
// element or Ones if none match.
func (st *State) evalMatch(scope *methodScope) (Value, *Error) {
	pkgVal, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	op1, err := st.dec.consumeByte()
	if err != nil {
		return UninitializedValue, err
	}
	obj1Val, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	op2, err := st.dec.consumeByte()
	if err != nil {
		return UninitializedValue, err
	}
	obj2Val, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	startVal, err := st.evalTermArgValue(scope)
	if err != nil {
		return UninitializedValue, err
	}
	start, _ := startVal.asInteger(st.intWidth)

	elems, ok := pkgVal.Elements()
	if !ok {
		return UninitializedValue, errTypeMismatch
	}
	o1, _ := obj1Val.asInteger(st.intWidth)
	o2, _ := obj2Val.asInteger(st.intWidth)
	for i := int(start); i < len(elems); i++ {
		n, cerr := elems[i].asInteger(st.intWidth)
		if cerr != nil {
			continue
		}
		if matchCondition(op1, n, o1) && matchCondition(op2, n, o2) {
			return IntegerValue(uint64(i)), nil
		}
	}
	return IntegerValue(onesForWidth(st.intWidth)), nil
}

func matchCondition(op byte, a, b uint64) bool {
	switch op {
	case 0: // MTR, always true
		return true
	case 1: // MEQ
		return a == b
	case 2: // MLE
		return a <= b
	case 3: // MLT
		return a < b
	case 4: // MGE
		return a >= b
	case 5: // MGT
		return a > b
	default:
		return false
	}
}
