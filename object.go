package amli

// ObjectKind identifies the variant an Object holds, per spec.md §3's
// "Objects (declared entities)" list.
type ObjectKind uint8

const (
	ObjName ObjectKind = iota
	ObjMethod
	ObjOperationRegion
	ObjField
	ObjBankField
	ObjIndexField
	ObjBufferField
	ObjMutex
	ObjEvent
	ObjDevice
	ObjThermalZone
	ObjPowerResource
	ObjProcessor
	ObjAlias
	ObjScope
	ObjDebug
	ObjLocalProxy
	ObjArgProxy
)

// Object is a reference-counted tagged record with an optional back-pointer
// to the namespace node that declared it, per spec.md §3/§4.4. The teacher's
// entity.go splits this across half a dozen Go structs embedding shared base
// types (unnamedEntity/namedEntity/scopeEntity); this module keeps that
// "shared base, tagged variant" shape but collapses it into one Object
// struct with a Kind discriminant plus kind-specific fields, since the
// embedded-interface style doesn't carry over cleanly once every variant
// also needs uniform refcounting and snapshot-item registration.
type Object struct {
	Kind     ObjectKind
	refCount int
	node     *NamespaceNode

	// Name
	value Value

	// Method
	method *MethodInfo

	// OperationRegion
	region *RegionInfo

	// Field / BankField / IndexField / BufferField
	field *FieldInfo

	// Mutex
	mutex *MutexInfo

	// Event
	event *EventInfo

	// Alias
	aliasTarget string

	// Device/ThermalZone/PowerResource/Processor/Scope: namespace subtree,
	// addressed through node's tree links; Processor/PowerResource carry
	// extra fixed fields.
	procID      byte
	procBlkAddr uint32
	procBlkLen  byte
	pwrSysLevel byte
	pwrResOrder uint16

	// LocalProxy/ArgProxy
	slotIndex int
}

// debugSentinel and nilObjectSentinel are persistent singletons never
// reference-counted, per spec.md §4.4 ("objects whose parent heap is null").
var debugSentinel = &Object{Kind: ObjDebug}

func newNameObject(v Value) *Object {
	return &Object{Kind: ObjName, refCount: 1, value: v.shareHandles()}
}

func newLocalProxy(idx int) *Object {
	return &Object{Kind: ObjLocalProxy, slotIndex: idx}
}

func newArgProxy(idx int) *Object {
	return &Object{Kind: ObjArgProxy, slotIndex: idx}
}

// Value returns the literal this Object carries when Kind is ObjName,
// exposed read-only for host-side inspection (e.g. cmd/amldump's dump
// subcommand); zero Value for every other Kind.
func (o *Object) Value() Value {
	return o.value
}

// addRef increments the object's reference count. The persistent
// singletons (debugSentinel, nilObjectSentinel) are left alone, matching
// "objects whose parent heap is null ... are never reference-counted".
func (o *Object) addRef() *Object {
	if o == nil || o == debugSentinel || o == nilObjectSentinel {
		return o
	}
	o.refCount++
	return o
}

// release decrements the reference count and, on last release, frees
// variant-specific resources and redirects the owning namespace node to the
// nil sentinel (spec.md §3 Invariants: "When an object is freed, every
// namespace node pointing at it is first redirected to the nil sentinel").
func (o *Object) release(st *State) {
	if o == nil || o == debugSentinel || o == nilObjectSentinel {
		return
	}
	o.refCount--
	if o.refCount > 0 {
		return
	}

	switch o.Kind {
	case ObjName:
		o.value.releaseHandles()
	case ObjOperationRegion:
		if o.region != nil && o.region.mapped && st != nil && st.Host != nil {
			st.Host.MemoryUnmap(o.region.mappedBase, uintptr(o.region.Length))
		}
	case ObjMutex:
		if o.mutex != nil && o.mutex.hostHandle != 0 && st != nil && st.Host != nil {
			st.Host.MutexFree(o.mutex.hostHandle)
		}
	case ObjEvent:
		if o.event != nil && o.event.hostHandle != 0 && st != nil && st.Host != nil {
			st.Host.EventFree(o.event.hostHandle)
		}
	}

	if o.node != nil {
		o.node.object = nilObjectSentinel
		o.node = nil
	}
}

// nilObjectSentinel is the state-global "points to nothing" object every
// namespace node falls back to once its real object is freed.
var nilObjectSentinel = &Object{Kind: ObjName, value: UninitializedValue}

// MethodInfo describes a Method object (spec.md §3, §4.7).
type MethodInfo struct {
	TableHandle  int
	ByteOffset   int
	ByteLength   int
	ArgCount     int
	SyncLevel    byte
	Serialized   bool
	NativeRoutine func(st *State, args []Value) (Value, *Error)
}

// RegionInfo describes an OperationRegion object (spec.md §4.5).
type RegionInfo struct {
	Space      RegionSpace
	Offset     uint64
	Length     uint64
	mapped     bool
	mappedBase uintptr
	pci        *PCIRegionInfo
}

// PCIRegionInfo carries the address-space routing needed for PciConfig
// accesses (spec.md §4.5: "after resolving the current bus number by
// walking the bridge chain").
type PCIRegionInfo struct {
	Segment  uint16
	Device   byte
	Function byte
	// BridgePath is the chain of bridge (device,function) pairs from the
	// host bridge down to this region's immediate parent bus, each hop
	// requiring a secondary-bus-register read to resolve the next bus
	// number (§C.3 of SPEC_FULL.md).
	BridgePath []PCIBridgeHop
}

type PCIBridgeHop struct {
	Device   byte
	Function byte
}

// MutexInfo describes a Mutex object (spec.md §4.6).
type MutexInfo struct {
	SyncLevel    byte
	IsGlobal     bool
	hostHandle   HostMutexHandle
	holder       *methodScope // current exclusive holder, nil if free
	acquireCount int
}

// EventInfo describes an Event object.
type EventInfo struct {
	hostHandle HostEventHandle
}
