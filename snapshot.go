package amli

// itemKind discriminates the underlying state datum a snapshot item
// references, per spec.md §3's Snapshot description: "Each item references
// an underlying state datum (buffer, package, node, mutex)".
type itemKind uint8

const (
	itemBuffer itemKind = iota
	itemPackage
	itemNode
	itemMutex
)

// actionKind is a raise or lower of an item-frame's use-counter, per
// spec.md §3/§4.8.
type actionKind int8

const (
	actionRaise actionKind = 1
	actionLower actionKind = -1
)

// snapshotItem is one tracked resource; releaseByCount invokes the type-
// specific release exactly |count| times on rollback.
type snapshotItem struct {
	kind   itemKind
	buf    *bufferHandle
	pkg    *packageHandle
	node   *NamespaceNode
	mutex  *Object
	ns     *Namespace
	state  *State
}

func (it *snapshotItem) releaseByCount(count int) {
	for i := 0; i < count; i++ {
		switch it.kind {
		case itemBuffer:
			it.buf.release()
		case itemPackage:
			it.pkg.release()
		case itemNode:
			it.ns.releaseNode(it.node)
		case itemMutex:
			it.mutex.release(it.state)
		}
	}
}

// itemFrame is the record of one item within a single snapshot level; it
// owns the list of actions recorded against it at that level (spec.md §3).
type itemFrame struct {
	item    *snapshotItem
	actions []actionKind
}

// passState captures everything the declaration/full pass engine needs
// restored verbatim on rollback, per spec.md §3's Snapshot description
// ("the full pass state: pass type, data cursor and bounds, while-loop
// depth, pending interruption event, method-scope depth floor,
// namespace-scope-last pointer").
type passState struct {
	pass              passKind
	cursor            int
	windowEnd         int
	whileDepth        int
	methodScopeFloor  int
	namespaceScopeTop *scopeFrame
}

// Snapshot is a transactional checkpoint (spec.md §3, §4.8). Snapshots nest;
// the newest must be committed or rolled back first (LIFO discipline,
// invariant 5 of spec.md §8).
type Snapshot struct {
	level     int
	arenaSnap arenaSnapshot
	saved     passState
	frames    []*itemFrame
	// byItem is keyed on the underlying resource pointer (*bufferHandle,
	// *packageHandle, *NamespaceNode, or *Object), not on a *snapshotItem
	// wrapper: recordAction is called with a freshly allocated snapshotItem
	// on every touch, so keying on that pointer would never dedup two
	// touches of the same resource within one level into a single frame.
	byItem map[interface{}]*itemFrame
	st     *State
}

// beginSnapshot implements spec.md §4.8's `begin`: captures arena snapshot,
// pass state, namespace-scope-last, and a fresh level index.
func (st *State) beginSnapshot() *Snapshot {
	st.snapshotDepth++
	snap := &Snapshot{
		level:     st.snapshotDepth,
		arenaSnap: st.arena.Snapshot(),
		saved: passState{
			pass:              st.currentPass,
			cursor:            st.dec.offset,
			windowEnd:         st.dec.windowEnd,
			whileDepth:        st.whileDepth,
			methodScopeFloor:  len(st.methodStack),
			namespaceScopeTop: st.ns.scopeTop,
		},
		byItem: make(map[interface{}]*itemFrame),
		st:     st,
	}
	st.openSnapshots = append(st.openSnapshots, snap)
	return snap
}

// recordAction appends an action to key's current frame within this
// snapshot level, creating the frame lazily on first touch, per spec.md
// §4.8. key is the underlying resource pointer (not the snapshotItem
// wrapper, which is rebuilt on every call) so repeated touches of the same
// resource within one level land in the same frame and their raise/lower
// actions net out instead of producing independent single-action frames.
func (s *Snapshot) recordAction(key interface{}, it *snapshotItem, a actionKind) {
	f, ok := s.byItem[key]
	if !ok {
		f = &itemFrame{item: it}
		s.byItem[key] = f
		s.frames = append(s.frames, f)
	}
	f.actions = append(f.actions, a)
}

// Commit implements spec.md §4.8: detaches the level's frames from the
// items (decrementing conceptual interest, but not releasing them - commit
// means the resources survive), and optionally restores pass state. It is a
// fatal error (panic, per invariant 5) if this isn't the innermost open
// snapshot.
func (s *Snapshot) Commit(restoreEvalState bool) {
	s.st.requireInnermost(s)
	s.st.arena.Commit(s.arenaSnap)
	if restoreEvalState {
		s.st.restorePassState(s.saved)
	}
	s.st.popSnapshot()
}

// Rollback implements spec.md §3/§4.8: walks each frame's action list to
// compute a final use-counter per item-frame, invoking the item's
// type-specific release while that counter is positive, then restores the
// arena and pass state unconditionally.
func (s *Snapshot) Rollback() {
	s.st.requireInnermost(s)
	for _, f := range s.frames {
		count := 0
		for _, a := range f.actions {
			count += int(a)
		}
		if count > 0 {
			f.item.releaseByCount(count)
		}
	}
	s.st.arena.Rollback(s.arenaSnap)
	s.st.restorePassState(s.saved)
	s.st.popSnapshot()
}

// requireInnermost enforces the LIFO discipline of spec.md §8 invariant 5:
// committing or rolling back a snapshot older than the innermost open
// snapshot is a panic.
func (st *State) requireInnermost(s *Snapshot) {
	if len(st.openSnapshots) == 0 || st.openSnapshots[len(st.openSnapshots)-1] != s {
		panic(errSnapshotLIFOViolation)
	}
}

func (st *State) popSnapshot() {
	st.openSnapshots = st.openSnapshots[:len(st.openSnapshots)-1]
	st.snapshotDepth--
}

func (st *State) restorePassState(p passState) {
	st.currentPass = p.pass
	st.dec.offset = p.cursor
	st.dec.windowEnd = p.windowEnd
	st.whileDepth = p.whileDepth
	if len(st.methodStack) > p.methodScopeFloor {
		st.methodStack = st.methodStack[:p.methodScopeFloor]
	}
	st.ns.scopeTop = p.namespaceScopeTop
}

// touchBuffer/touchPackage/touchNode/touchMutex register an action against
// the innermost open snapshot for the given resource, called from every
// place that raises or lowers a refcount during evaluation so rollback can
// undo it (spec.md §3's "item" abstraction).
func (st *State) touchBuffer(h *bufferHandle, a actionKind) {
	if len(st.openSnapshots) == 0 {
		return
	}
	st.openSnapshots[len(st.openSnapshots)-1].recordAction(h, &snapshotItem{kind: itemBuffer, buf: h}, a)
}

func (st *State) touchPackage(h *packageHandle, a actionKind) {
	if len(st.openSnapshots) == 0 {
		return
	}
	st.openSnapshots[len(st.openSnapshots)-1].recordAction(h, &snapshotItem{kind: itemPackage, pkg: h}, a)
}

func (st *State) touchNode(n *NamespaceNode, a actionKind) {
	if len(st.openSnapshots) == 0 {
		return
	}
	st.openSnapshots[len(st.openSnapshots)-1].recordAction(n, &snapshotItem{kind: itemNode, node: n, ns: st.ns}, a)
}

func (st *State) touchMutex(o *Object, a actionKind) {
	if len(st.openSnapshots) == 0 {
		return
	}
	st.openSnapshots[len(st.openSnapshots)-1].recordAction(o, &snapshotItem{kind: itemMutex, mutex: o, state: st}, a)
}
