package amli

import "io"

// State is the top-level interpreter instance spec.md §6.2 describes:
// state_create/state_free, load_table, complete_initial_load,
// evaluate_by_path. It owns the arena, the namespace, the decoder window
// currently in use, the open snapshot stack, and the region-handler
// registry, grounded on the teacher's parser.go/acpi.go top-level driver
// that threads an io.Writer and a backing table set through every step.
type State struct {
	// Host is the boundary contract (spec.md §6.1). Always supplied by the
	// embedder; this module ships a reference double only
	// (internal/amlitest), per SPEC_FULL.md §D.
	Host Host

	// Diag is where diagnostic/debug output is written (Debug object,
	// unhandled-region-access notices), the hosted equivalent of the
	// teacher's io.Writer-threaded kfmt.Fprintf calls (SPEC_FULL.md §A).
	// Nil disables diagnostics.
	Diag io.Writer

	limits Limits

	arena *Arena
	ns    *Namespace
	dec   *decoder

	intWidth int // 32 or 64, selected by ComplianceRevision (spec.md §6.3)

	tables            map[int]*loadedTable
	nextTableHandle   int
	currentTableHandle int

	currentPass passKind
	whileDepth  int

	methodStack []*methodScope

	openSnapshots []*Snapshot
	snapshotDepth int

	regionHandlers map[RegionSpace]*regionHandlerRegistration
	treeBuilt      bool

	globalLockMutex      *Object
	globalLockWaitEvent  HostEventHandle
}

// NewState implements spec.md §6.2's state_create: allocates the arena,
// namespace, and region-handler table, and installs the default
// SystemMemory/SystemIO/PciConfig handlers (spec.md §4.5).
func NewState(host Host, limits Limits) *State {
	if limits.MaxRecursionDepth <= 0 {
		limits = DefaultLimits()
	}
	arena := NewArena(limits.ArenaChunkSize)
	st := &State{
		Host:           host,
		limits:         limits,
		arena:          arena,
		dec:            newDecoder(nil, limits.MaxRecursionDepth),
		intWidth:       32,
		tables:         make(map[int]*loadedTable),
		currentPass:    passFull,
		regionHandlers: make(map[RegionSpace]*regionHandlerRegistration),
	}
	st.ns = newNamespace(arena, limits.NamespaceBucketCount)
	st.ns.st = st
	registerDefaultRegionHandlers(st)
	if host != nil {
		st.globalLockWaitEvent = host.EventCreate()
	}
	return st
}

// Free releases host-owned resources state_create acquired
// (state_free in spec.md §6.2's naming).
func (st *State) Free() {
	if st.Host != nil && st.globalLockWaitEvent != 0 {
		st.Host.EventFree(st.globalLockWaitEvent)
	}
}

// LoadTable implements spec.md §6.2's load_table: runs the declaration
// pass over one AML table blob inside its own snapshot, so a malformed
// table rolls back cleanly (spec.md §4.7, §7). Repeatable: each call adds
// one more table to the running namespace.
func (st *State) LoadTable(data []byte) (handle int, retErr *Error) {
	revision := byte(0)
	if len(data) > tableRevisionOffset {
		revision = data[tableRevisionOffset]
	}
	if revision > 1 {
		st.intWidth = 64
	}

	handle = st.nextTableHandle
	st.nextTableHandle++
	table := &loadedTable{
		handle:   handle,
		signature: tableSignature(data),
		oemID:    tableOEMID(data),
		oemTableID: tableOEMTableID(data),
		revision: revision,
		data:     data,
	}
	st.tables[handle] = table

	savedDec := st.dec
	savedCurrentTable := st.currentTableHandle
	st.currentTableHandle = handle
	st.dec = newDecoder(data, st.limits.MaxRecursionDepth)
	st.dec.offset = tableBodyOffset
	if st.dec.offset > len(data) {
		st.dec.offset = len(data)
	}
	defer func() {
		st.dec = savedDec
		st.currentTableHandle = savedCurrentTable
	}()

	snap := st.beginSnapshot()
	if err := st.declareTermList(len(data)); err != nil {
		snap.Rollback()
		delete(st.tables, handle)
		return 0, err
	}
	snap.Commit(false)
	return handle, nil
}

// tableHeader offsets within an ACPI table blob (DescriptionHeader),
// per spec.md §6.3.
const (
	tableSignatureOffset  = 0
	tableSignatureLength  = 4
	tableOEMIDOffset      = 10
	tableOEMIDLength      = 6
	tableOEMTableIDOffset = 16
	tableOEMTableIDLength = 8
	tableRevisionOffset   = 8
	tableBodyOffset       = 36
)

func tableSignature(data []byte) string {
	return safeHeaderString(data, tableSignatureOffset, tableSignatureLength)
}

func tableOEMID(data []byte) string {
	return safeHeaderString(data, tableOEMIDOffset, tableOEMIDLength)
}

func tableOEMTableID(data []byte) string {
	return safeHeaderString(data, tableOEMTableIDOffset, tableOEMTableIDLength)
}

func safeHeaderString(data []byte, offset, length int) string {
	if offset+length > len(data) {
		return ""
	}
	return string(data[offset : offset+length])
}

// CompleteInitialLoad implements spec.md §6.2's complete_initial_load:
// builds the hierarchical presence tree from every node declared so far,
// fires any deferred region-handler broadcasts, and (optionally) runs
// device `_INI`/`_STA` initialization in tree order, per spec.md §2's
// top-level flow description.
func (st *State) CompleteInitialLoad(initializeDevices bool) *Error {
	st.ns.BuildTree()
	st.treeBuilt = true
	st.runPendingRegionBroadcasts()

	if !initializeDevices {
		return nil
	}

	var walkErr *Error
	var walk func(n *NamespaceNode)
	walk = func(n *NamespaceNode) {
		if n == nil || walkErr != nil {
			return
		}
		if n.object != nil && n.object.Kind == ObjDevice {
			st.initializeDevice(n)
		}
		for c := n.firstChild; c != nil; c = c.nextSibling {
			walk(c)
		}
	}
	walk(st.ns.root)
	return walkErr
}

// Walk calls fn for every namespace node in tree order (parent before
// children, siblings in declaration order). Complete only after
// CompleteInitialLoad has built the presence tree; before that it visits
// the root and the nodes CreateNode linked at once because their parent
// already existed. Used by cmd/amldump's "dump" subcommand.
func (st *State) Walk(fn func(n *NamespaceNode)) {
	var walk func(n *NamespaceNode)
	walk = func(n *NamespaceNode) {
		if n == nil {
			return
		}
		fn(n)
		for c := n.firstChild; c != nil; c = c.nextSibling {
			walk(c)
		}
	}
	walk(st.ns.root)
}

// initializeDevice runs `_INI` (if present) and reports `_STA` to the host
// via DeviceInitialized, per spec.md §6.1's "Device-initialized hook".
func (st *State) initializeDevice(n *NamespaceNode) {
	iniNode := st.ns.findRelative(n, "_INI", searchFlags{})
	if iniNode != nil && iniNode.object != nil && iniNode.object.Kind == ObjMethod {
		_, _ = st.evaluateMethodObject(iniNode.object, nil)
	}

	sta := uint64(0x0f) // present/enabled/shown/functioning, the ACPI default
	if staNode := st.ns.findRelative(n, "_STA", searchFlags{}); staNode != nil && staNode.object != nil && staNode.object.Kind == ObjMethod {
		if v, err := st.evaluateMethodObject(staNode.object, nil); err == nil {
			sta, _ = v.asInteger(st.intWidth)
		}
	}
	if st.Host != nil {
		st.Host.DeviceInitialized(n.AbsolutePath(), sta)
	}
}

// EvaluateByPath implements spec.md §6.2's evaluate_by_path: resolves an
// absolute or scope-relative path, invokes the named method under a fresh
// snapshot, and rolls back on error (spec.md §7's recovery policy).
func (st *State) EvaluateByPath(path string, args []Value) (Value, *Error) {
	parsed, perr := parseNameString([]byte(path))
	if perr != nil {
		return UninitializedValue, perr
	}
	node := st.ns.Search(parsed, searchFlags{})
	if node == nil || node.object == nil {
		return UninitializedValue, errNameNotFound
	}

	snap := st.beginSnapshot()
	v, err := st.evaluateMethodObject(node.object, args)
	if err != nil {
		snap.Rollback()
		return UninitializedValue, err
	}
	snap.Commit(false)
	return v, nil
}

// evaluateMethodObject invokes obj (which may be a plain Name rather than
// a Method, in which case it is just dereferenced per spec.md §4.7 step 1:
// "If the found object is not a Method, the name is a plain data
// reference"). Used both by EvaluateByPath and by the `_REG`/`_INI`
// broadcast helpers, which have no enclosing method scope of their own.
func (st *State) evaluateMethodObject(obj *Object, args []Value) (Value, *Error) {
	if obj.Kind != ObjMethod {
		return obj.value, nil
	}
	return st.invokeMethod(obj, nil, args)
}
