package amli

// targetKind classifies a resolved SuperName/Target store destination.
type targetKind uint8

const (
	targetNull targetKind = iota
	targetNode
	targetLocal
	targetArg
	targetDebug
)

// resolvedTarget is the decoded form of a SuperName/Target grammar
// production (spec.md §3's SuperName glossary entry): a namespace node, a
// Local/Arg slot, the Debug sentinel, or NullName (a no-op store target).
type resolvedTarget struct {
	kind  targetKind
	node  *NamespaceNode
	index int
}

// consumeSuperName parses a SuperName: SimpleName (NameString | ArgObj |
// LocalObj) | DebugObj | a reference-producing expression opcode such as
// Index/RefOf/DerefOf. Method-invocation-shaped names are resolved but not
// invoked (spec.md §4.7: "Store targets are resolved but not invoked").
func (st *State) consumeSuperName(scope *methodScope) (resolvedTarget, *Error) {
	op, width, err := st.dec.peekOpcode()
	// errUnknownOpcode falls through: a NameString's lead byte is no opcode.
	if err != nil && err != errUnknownOpcode {
		return resolvedTarget{}, err
	}

	switch {
	case op == opDebug:
		st.dec.offset += width
		return resolvedTarget{kind: targetDebug}, nil
	case isLocalOp(op):
		st.dec.offset += width
		return resolvedTarget{kind: targetLocal, index: int(op - opLocal0)}, nil
	case isArgOp(op):
		st.dec.offset += width
		return resolvedTarget{kind: targetArg, index: int(op - opArg0)}, nil
	}

	// Otherwise: a NameString (possibly NullName) naming an existing node,
	// or a nested reference expression we evaluate down to a Reference
	// value and re-resolve.
	if name, ok := st.dec.matchNameString(); ok {
		if len(name.segments) == 0 && !name.isAbsolute && name.parentHops == 0 {
			return resolvedTarget{kind: targetNull}, nil
		}
		node := st.ns.Search(name, searchFlags{})
		if node == nil {
			return resolvedTarget{}, errNameNotFound
		}
		return resolvedTarget{kind: targetNode, node: node}, nil
	}

	v, everr := st.evalExpression(scope)
	if everr != nil {
		return resolvedTarget{}, everr
	}
	if v.Kind == KindReference {
		return referenceToTarget(v), nil
	}
	return resolvedTarget{}, errRefOfNonSuperName
}

func referenceToTarget(v Value) resolvedTarget {
	switch v.refKind {
	case RefLocal:
		return resolvedTarget{kind: targetLocal, index: v.refIdx}
	case RefArg:
		return resolvedTarget{kind: targetArg, index: v.refIdx}
	default:
		if v.refObj != nil && v.refObj.node != nil {
			return resolvedTarget{kind: targetNode, node: v.refObj.node}
		}
		return resolvedTarget{kind: targetNull}
	}
}

// consumeTarget parses a Target (SuperName | NullName), the store
// destination grammar used by arithmetic/expression opcodes.
func (st *State) consumeTarget(scope *methodScope) (resolvedTarget, *Error) {
	if st.dec.matchByte(0x00) {
		return resolvedTarget{kind: targetNull}, nil
	}
	return st.consumeSuperName(scope)
}

// loadTarget dereferences a resolved target down to a Value, the
// teacher's vmLoad equivalent.
func (st *State) loadTarget(scope *methodScope, t resolvedTarget) (Value, *Error) {
	switch t.kind {
	case targetNull, targetDebug:
		return UninitializedValue, nil
	case targetLocal:
		return scope.getLocal(t.index), nil
	case targetArg:
		return scope.getArg(t.index), nil
	case targetNode:
		return st.loadNode(t.node, scope)
	default:
		return UninitializedValue, errTypeMismatch
	}
}

func (st *State) loadNode(n *NamespaceNode, scope *methodScope) (Value, *Error) {
	obj := n.Object()
	switch obj.Kind {
	case ObjName:
		return obj.value, nil
	case ObjField, ObjBankField, ObjIndexField, ObjBufferField:
		return st.ReadField(obj, scope)
	case ObjMethod:
		return st.invokeMethod(obj, scope, nil)
	default:
		return ReferenceValue(RefObject, obj, 0), nil
	}
}

// storeToTarget implements spec.md §4.7's Store semantics: "no-op on
// const/Debug targets, ... implicit conversion to the destination's
// existing type" (simplified here to "replace with the stored value",
// since this core's Value model has no separate fixed-width integer
// sub-kinds to convert between beyond the table's integer width, which is
// already applied by asInteger/truncateToWidth at the call sites that need
// it).
func (st *State) storeToTarget(scope *methodScope, t resolvedTarget, v Value) *Error {
	switch t.kind {
	case targetNull, targetDebug:
		return nil
	case targetLocal:
		scope.setLocal(t.index, v)
		return nil
	case targetArg:
		scope.setArg(t.index, v)
		return nil
	case targetNode:
		return st.storeNode(t.node, v, scope)
	default:
		return errStoreToConstant
	}
}

func (st *State) storeNode(n *NamespaceNode, v Value, scope *methodScope) *Error {
	obj := n.Object()
	switch obj.Kind {
	case ObjName:
		obj.value.releaseHandles()
		obj.value = v.shareHandles()
		return nil
	case ObjField, ObjBankField, ObjIndexField, ObjBufferField:
		return st.WriteField(obj, v, scope)
	default:
		return errStoreToConstant
	}
}

// copyObjectToTarget implements CopyObject semantics: replaces the
// destination's value outright rather than converting to its existing
// type (spec.md §4.7: "copy-object replaces the destination's value
// outright").
func (st *State) copyObjectToTarget(scope *methodScope, t resolvedTarget, v Value) *Error {
	return st.storeToTarget(scope, t, v)
}
