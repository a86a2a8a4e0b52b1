package amli

// passKind distinguishes the two loading passes of spec.md §4.7.
type passKind uint8

const (
	passDeclaration passKind = iota
	passFull
)

// StepResult is the discriminated return of every statement evaluator,
// replacing the teacher's flag-based ctrlFlowType/PendingInterruptionEvent
// design per spec.md §9's Design Notes: "replace the flag with an explicit
// discriminated return from each statement evaluator."
type StepResult struct {
	kind  stepKind
	value Value
	err   *Error
}

type stepKind uint8

const (
	stepNormal stepKind = iota
	stepBreak
	stepContinue
	stepReturn
	stepFatal
)

func stepNormalResult() StepResult  { return StepResult{kind: stepNormal} }
func stepBreakResult() StepResult   { return StepResult{kind: stepBreak} }
func stepContinueResult() StepResult { return StepResult{kind: stepContinue} }
func stepReturnResult(v Value) StepResult { return StepResult{kind: stepReturn, value: v} }
func stepFatalResult(e *Error) StepResult { return StepResult{kind: stepFatal, err: e} }

// loadedTable tracks one ingested DSDT/SSDT blob.
type loadedTable struct {
	handle    int
	signature string
	oemID     string
	oemTableID string
	revision  byte
	data      []byte
}

// runMethodBody drives the pass engine over a method's byte span, per
// spec.md §4.7 step 3. Only the full pass is legal here; method invocation
// is only permitted during pass 2 (§4.7).
func (st *State) runMethodBody(obj *Object, mi *MethodInfo, scope *methodScope) (Value, *Error) {
	table := st.tables[mi.TableHandle]
	if table == nil {
		return UninitializedValue, errNameNotFound
	}

	saved := st.dec
	st.dec = newDecoder(table.data, st.limits.MaxRecursionDepth)
	st.dec.offset = mi.ByteOffset
	st.dec.windowEnd = mi.ByteOffset + mi.ByteLength
	defer func() { st.dec = saved }()

	res := st.evalTermList(scope, mi.ByteOffset+mi.ByteLength)
	switch res.kind {
	case stepReturn:
		return res.value, nil
	case stepFatal:
		return UninitializedValue, res.err
	default:
		return UninitializedValue, nil
	}
}

// evalTermList walks statements in source order until end is reached or a
// non-Normal StepResult interrupts the block, per spec.md §4.7's control
// flow description ("the evaluator checks it after each executed statement
// in a block and unwinds through the enclosing loop or method scope").
func (st *State) evalTermList(scope *methodScope, end int) StepResult {
	for st.dec.offset < end {
		res := st.evalOneTerm(scope)
		if res.kind != stepNormal {
			return res
		}
	}
	return stepNormalResult()
}

// evalOneTerm decodes and executes (or, in the declaration pass, declares)
// exactly one TermObj.
func (st *State) evalOneTerm(scope *methodScope) StepResult {
	if err := st.dec.enter(); err != nil {
		return stepFatalResult(err)
	}
	defer st.dec.leave()

	op, _, err := st.dec.peekOpcode()
	if err != nil {
		return stepFatalResult(err)
	}

	if st.currentPass == passDeclaration && (isNamedObjectOp(opFromPeek(op)) || isNamespaceModifierOp(opFromPeek(op))) {
		return st.declareOne(scope)
	}

	if isStatementOp(op) {
		return st.evalStatement(scope)
	}

	if isNamespaceModifierOp(op) || isNamedObjectOp(op) {
		return st.declareOne(scope)
	}

	// Bare expression statement: evaluate for side effects, discard value.
	_, evalErr := st.evalExpression(scope)
	if evalErr != nil {
		return stepFatalResult(evalErr)
	}
	return stepNormalResult()
}

func opFromPeek(op opcode) opcode { return op }

// evalStatement dispatches statement opcodes (If/Else/While/Return/Break/
// Continue/Store/Notify/... - spec.md §4.7).
func (st *State) evalStatement(scope *methodScope) StepResult {
	op, err := st.dec.consumeOpcode()
	if err != nil {
		return stepFatalResult(err)
	}

	switch op {
	case opIf:
		return st.execIf(scope)
	case opWhile:
		return st.execWhile(scope)
	case opReturn:
		v, err := st.evalTermArgValue(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		return stepReturnResult(v)
	case opBreak:
		return stepBreakResult()
	case opContinue:
		return stepContinueResult()
	case opNoop, opBreakPoint:
		return stepNormalResult()
	case opStore:
		v, err := st.evalTermArgValue(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		target, err := st.consumeSuperName(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		if err := st.storeToTarget(scope, target, v); err != nil {
			return stepFatalResult(err)
		}
		return stepNormalResult()
	case opCopyObject:
		v, err := st.evalTermArgValue(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		target, err := st.consumeSuperName(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		if err := st.copyObjectToTarget(scope, target, v); err != nil {
			return stepFatalResult(err)
		}
		return stepNormalResult()
	case opNotify:
		target, err := st.consumeSuperName(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		v, err := st.evalTermArgValue(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		n, _ := v.asInteger(st.intWidth)
		if target.node != nil {
			st.Host.ObjectNotify(target.node.AbsolutePath(), n)
		}
		return stepNormalResult()
	case opAcquire:
		return st.execAcquire(scope)
	case opRelease:
		return st.execRelease(scope)
	case opReset:
		tgt, err := st.consumeSuperName(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		if tgt.node != nil && tgt.node.object.Kind == ObjEvent {
			st.Host.EventReset(tgt.node.object.event.hostHandle)
		}
		return stepNormalResult()
	case opSignal:
		tgt, err := st.consumeSuperName(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		if tgt.node != nil && tgt.node.object.Kind == ObjEvent {
			st.Host.EventSignal(tgt.node.object.event.hostHandle)
		}
		return stepNormalResult()
	case opSleep:
		v, err := st.evalTermArgValue(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		n, _ := v.asInteger(st.intWidth)
		st.Host.Sleep(n)
		return stepNormalResult()
	case opStall:
		v, err := st.evalTermArgValue(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		n, _ := v.asInteger(st.intWidth)
		st.Host.Stall(n)
		return stepNormalResult()
	case opUnload, opLoad, opFatal:
		// Load/Unload/Fatal are accepted syntactically but have no
		// observable effect without real table/firmware plumbing, which
		// is out of scope (spec.md §1 Non-goals).
		return st.skipStatementArgs(op)
	case opIncrement, opDecrement:
		return st.execIncDec(scope, op)
	default:
		_, evalErr := st.evalExpressionOp(scope, op)
		if evalErr != nil {
			return stepFatalResult(evalErr)
		}
		return stepNormalResult()
	}
}

func (st *State) skipStatementArgs(op opcode) StepResult {
	info := opcodeTable[op]
	if info == nil {
		return stepNormalResult()
	}
	for _, a := range info.args {
		if _, err := st.consumeArgOpaque(a); err != nil {
			return stepFatalResult(err)
		}
	}
	return stepNormalResult()
}

func (st *State) execIncDec(scope *methodScope, op opcode) StepResult {
	target, err := st.consumeSuperName(scope)
	if err != nil {
		return stepFatalResult(err)
	}
	v, err := st.loadTarget(scope, target)
	if err != nil {
		return stepFatalResult(err)
	}
	n, err := v.asInteger(st.intWidth)
	if err != nil {
		return stepFatalResult(err)
	}
	if op == opIncrement {
		n++
	} else {
		n--
	}
	n = truncateToWidth(n, st.intWidth)
	if err := st.storeToTarget(scope, target, IntegerValue(n)); err != nil {
		return stepFatalResult(err)
	}
	return stepNormalResult()
}

func (st *State) execIf(scope *methodScope) StepResult {
	end, err := st.dec.consumePackageLength()
	if err != nil {
		return stepFatalResult(err)
	}
	cond, err := st.evalTermArgValue(scope)
	if err != nil {
		return stepFatalResult(err)
	}
	n, _ := cond.asInteger(st.intWidth)

	if n != 0 {
		res := st.evalTermList(scope, end)
		st.dec.offset = end
		if st.dec.matchOpcode(opElse) {
			elseEnd, err := st.dec.consumePackageLength()
			if err != nil {
				return stepFatalResult(err)
			}
			st.dec.offset = elseEnd
		}
		return res
	}

	st.dec.offset = end
	if st.dec.matchOpcode(opElse) {
		elseEnd, err := st.dec.consumePackageLength()
		if err != nil {
			return stepFatalResult(err)
		}
		res := st.evalTermList(scope, elseEnd)
		st.dec.offset = elseEnd
		return res
	}
	return stepNormalResult()
}

func (st *State) execWhile(scope *methodScope) StepResult {
	loopStart := st.dec.offset
	st.whileDepth++
	defer func() { st.whileDepth-- }()

	for {
		st.dec.offset = loopStart
		end, err := st.dec.consumePackageLength()
		if err != nil {
			return stepFatalResult(err)
		}
		cond, err := st.evalTermArgValue(scope)
		if err != nil {
			return stepFatalResult(err)
		}
		n, _ := cond.asInteger(st.intWidth)
		if n == 0 {
			st.dec.offset = end
			return stepNormalResult()
		}

		res := st.evalTermList(scope, end)
		switch res.kind {
		case stepBreak:
			st.dec.offset = end
			return stepNormalResult()
		case stepReturn, stepFatal:
			return res
		}
	}
}

func (st *State) execAcquire(scope *methodScope) StepResult {
	target, err := st.consumeSuperName(scope)
	if err != nil {
		return stepFatalResult(err)
	}
	timeout, derr := st.dec.consumeWord()
	if derr != nil {
		return stepFatalResult(derr)
	}
	if target.node == nil || target.node.object.Kind != ObjMutex {
		return stepFatalResult(errTypeMismatch)
	}
	res, aerr := st.AcquireMutex(target.node.object, scope, timeout)
	if aerr != nil {
		return stepFatalResult(aerr)
	}
	_ = res
	return stepNormalResult()
}

func (st *State) execRelease(scope *methodScope) StepResult {
	target, err := st.consumeSuperName(scope)
	if err != nil {
		return stepFatalResult(err)
	}
	if target.node == nil || target.node.object.Kind != ObjMutex {
		return stepFatalResult(errTypeMismatch)
	}
	if err := st.ReleaseMutex(target.node.object, scope); err != nil {
		return stepFatalResult(err)
	}
	return stepNormalResult()
}
