package amli

// ValueKind tags the datum a Value carries, per spec.md §3.
type ValueKind uint8

const (
	KindUninitialized ValueKind = iota
	KindInteger
	KindString
	KindBuffer
	KindPackage
	KindVarPackage
	KindReference
	KindFieldUnit
)

func (k ValueKind) String() string {
	switch k {
	case KindUninitialized:
		return "Uninitialized"
	case KindInteger:
		return "Integer"
	case KindString:
		return "String"
	case KindBuffer:
		return "Buffer"
	case KindPackage:
		return "Package"
	case KindVarPackage:
		return "VarPackage"
	case KindReference:
		return "Reference"
	case KindFieldUnit:
		return "FieldUnit"
	default:
		return "Unknown"
	}
}

// ReferenceKind distinguishes the different things a Reference value can
// point at, mirroring the SuperName/ReferenceTypeOpcode grammar production.
type ReferenceKind uint8

const (
	RefObject ReferenceKind = iota
	RefLocal
	RefArg
	RefIndex
)

// bufferHandle and packageHandle are the reference-counted backing stores
// for Buffer/Package/VarPackage values. The teacher's entity.go models a
// buffer as a plain owned []byte with no sharing; spec.md §3 requires
// shared, refcounted handles ("copying a value shares the handle"), so this
// is the one place the data shape diverges materially from entity.go -
// tracked in DESIGN.md.
type bufferHandle struct {
	refCount int
	data     []byte
}

func newBufferHandle(data []byte) *bufferHandle {
	return &bufferHandle{refCount: 1, data: data}
}

func (h *bufferHandle) addRef() *bufferHandle {
	h.refCount++
	return h
}

// release decrements the handle's refcount and reports whether it reached
// zero (the caller is then responsible for any arena bookkeeping).
func (h *bufferHandle) release() bool {
	h.refCount--
	return h.refCount <= 0
}

type packageHandle struct {
	refCount int
	elems    []Value
}

func newPackageHandle(elems []Value) *packageHandle {
	return &packageHandle{refCount: 1, elems: elems}
}

func (h *packageHandle) addRef() *packageHandle {
	h.refCount++
	return h
}

func (h *packageHandle) release() bool {
	h.refCount--
	return h.refCount <= 0
}

// Value is the tagged datum threaded through expression evaluation (§3).
// Buffer/Package/VarPackage carry a shared handle; copying a Value (a plain
// struct copy) shares that handle per spec.md's reference-counting rule.
type Value struct {
	Kind ValueKind

	integer uint64
	str     string
	buf     *bufferHandle
	pkg     *packageHandle
	refKind ReferenceKind
	refObj  *Object
	refIdx  int // slot index for RefLocal/RefArg/RefIndex
	field   *Object
}

// UninitializedValue is the zero Value.
var UninitializedValue = Value{Kind: KindUninitialized}

func IntegerValue(v uint64) Value {
	return Value{Kind: KindInteger, integer: v}
}

func StringValue(s string) Value {
	return Value{Kind: KindString, str: s}
}

// BufferValue wraps data in a fresh, singly-referenced handle.
func BufferValue(data []byte) Value {
	return Value{Kind: KindBuffer, buf: newBufferHandle(data)}
}

func PackageValue(elems []Value) Value {
	return Value{Kind: KindPackage, pkg: newPackageHandle(elems)}
}

func VarPackageValue(elems []Value) Value {
	return Value{Kind: KindVarPackage, pkg: newPackageHandle(elems)}
}

func ReferenceValue(kind ReferenceKind, obj *Object, idx int) Value {
	return Value{Kind: KindReference, refKind: kind, refObj: obj, refIdx: idx}
}

func FieldUnitValue(obj *Object) Value {
	return Value{Kind: KindFieldUnit, field: obj}
}

// Integer returns the integer payload and whether Kind was Integer.
func (v Value) Integer() (uint64, bool) {
	if v.Kind != KindInteger {
		return 0, false
	}
	return v.integer, true
}

func (v Value) String_() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) Bytes() ([]byte, bool) {
	if v.Kind != KindBuffer || v.buf == nil {
		return nil, false
	}
	return v.buf.data, true
}

func (v Value) Elements() ([]Value, bool) {
	if (v.Kind != KindPackage && v.Kind != KindVarPackage) || v.pkg == nil {
		return nil, false
	}
	return v.pkg.elems, true
}

// shareHandles bumps the refcount of whichever handle v owns, matching
// "copying a value shares the handle" (§3). Call this whenever a Value is
// duplicated into a new slot that will independently release it later.
func (v Value) shareHandles() Value {
	switch v.Kind {
	case KindBuffer:
		if v.buf != nil {
			v.buf.addRef()
		}
	case KindPackage, KindVarPackage:
		if v.pkg != nil {
			v.pkg.addRef()
		}
	}
	return v
}

// releaseHandles decrements whichever handle v owns. The caller must have
// obtained v via shareHandles (or as an original owner) so the refcount
// balances; see the Reference balance invariant (spec.md §8 invariant 3).
func (v Value) releaseHandles() {
	switch v.Kind {
	case KindBuffer:
		if v.buf != nil {
			v.buf.release()
		}
	case KindPackage, KindVarPackage:
		if v.pkg != nil {
			v.pkg.release()
		}
	}
}

// asInteger performs the implicit numeric conversions the arithmetic
// opcodes rely on: integers pass through, strings are parsed as hex/decimal
// per ACPI's ToInteger rules, buffers are read little-endian up to the
// integer width.
func (v Value) asInteger(intWidth int) (uint64, *Error) {
	switch v.Kind {
	case KindInteger:
		return v.integer, nil
	case KindString:
		n, err := parseACPIInteger(v.str)
		if err != nil {
			return 0, errTypeMismatch
		}
		return truncateToWidth(n, intWidth), nil
	case KindBuffer:
		data, _ := v.Bytes()
		var n uint64
		for i := 0; i < len(data) && i < intWidth/8; i++ {
			n |= uint64(data[i]) << (8 * i)
		}
		return n, nil
	default:
		return 0, errTypeMismatch
	}
}

func parseACPIInteger(s string) (uint64, error) {
	var n uint64
	i := 0
	base := uint64(10)
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		i = 2
	}
	for ; i < len(s); i++ {
		c := s[i]
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case base == 16 && c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		case base == 16 && c >= 'A' && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			return n, nil
		}
		if d >= base {
			return n, nil
		}
		n = n*base + d
	}
	return n, nil
}

// truncateToWidth masks a 64-bit result down to the table's integer width
// (32 or 64 bits), per spec.md §6.3's ComplianceRevision rule.
func truncateToWidth(n uint64, width int) uint64 {
	if width >= 64 {
		return n
	}
	return n & ((uint64(1) << uint(width)) - 1)
}

// onesForWidth returns the interpreter's boolean "true" (Ones) at the
// current integer width, used by comparison/logical opcodes.
func onesForWidth(width int) uint64 {
	return truncateToWidth(^uint64(0), width)
}
