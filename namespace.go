package amli

import "strings"

// nameSegment is a 4-byte NameSeg, underscore-padded when short, per
// spec.md §4.2's "Name strings" paragraph and §3's NamespaceNode fields.
// Storing this as a fixed [4]byte array (an owned copy, not a slice into
// the input buffer) is the redesign spec.md §9 calls for: "store owned
// copies of name segments in the namespace's permanent arena".
type nameSegment [4]byte

var rootSegment = nameSegment{'_', '_', '_', '_'}

func segmentFromString(s string) nameSegment {
	var seg nameSegment
	for i := 0; i < 4; i++ {
		if i < len(s) {
			seg[i] = s[i]
		} else {
			seg[i] = '_'
		}
	}
	return seg
}

func (s nameSegment) String() string {
	return string(s[:])
}

// namespaceHashSeed mirrors aml_namespace.h's AML_NAMESPACE_HASH_SEED
// ('AmlH'), the fixed seed spec.md §3 requires ("hash is seeded with a
// fixed constant").
const namespaceHashSeed uint32 = 0x416d6c48 // 'A','m','l','H'

// defaultPathMapBucketCount / defaultScopeMapBucketCount mirror aml_namespace.h's
// AML_NAMESPACE_PATH_MAP_BUCKET_COUNT (1024) and
// AML_NAMESPACE_SCOPE_MAP_BUCKET_COUNT (128).
const (
	defaultPathMapBucketCount  = 1024
	defaultScopeMapBucketCount = 128
)

// murmur3_32 is a seeded MurmurHash3 32-bit implementation over a byte
// slice, used to hash the ordered sequence of 4-byte path segments
// (spec.md §4.3: "Seeded MurmurHash3-32 over the ordered sequence of
// 4-byte segments").
func murmur3_32(data []byte, seed uint32) uint32 {
	const c1, c2 = 0xcc9e2d51, 0x1b873593
	h := seed
	nblocks := len(data) / 4
	for i := 0; i < nblocks; i++ {
		k := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		k *= c1
		k = (k << 15) | (k >> 17)
		k *= c2
		h ^= k
		h = (h << 13) | (h >> 19)
		h = h*5 + 0xe6546b64
	}

	tailStart := nblocks * 4
	var k uint32
	switch len(data) & 3 {
	case 3:
		k ^= uint32(data[tailStart+2]) << 16
		fallthrough
	case 2:
		k ^= uint32(data[tailStart+1]) << 8
		fallthrough
	case 1:
		k ^= uint32(data[tailStart])
		k *= c1
		k = (k << 15) | (k >> 17)
		k *= c2
		h ^= k
	}

	h ^= uint32(len(data))
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

func hashSegments(segs []nameSegment) uint32 {
	buf := make([]byte, 0, len(segs)*4)
	for _, s := range segs {
		buf = append(buf, s[:]...)
	}
	return murmur3_32(buf, namespaceHashSeed)
}

// scopeFlags mirror aml_namespace.h's scope flags.
type scopeFlags uint8

const (
	scopeFlagTemporary scopeFlags = 1 << iota
	scopeFlagSwitch
	scopeFlagBoundary
)

// NamespaceNode is one entry of the hierarchical named object space
// (spec.md §3's "Namespace node").
type NamespaceNode struct {
	segments []nameSegment
	hash     uint32
	local    nameSegment

	object *Object

	// Hash bucket list (head-insertion).
	bucketNext *NamespaceNode

	// In-evaluation-order list (tail-insertion), used to build the tree.
	orderNext *NamespaceNode

	// Temporary-scope list: nodes created inside a method-local scope,
	// released together when that scope pops.
	tempScopeNext *NamespaceNode

	// Tree entry.
	parent      *NamespaceNode
	firstChild  *NamespaceNode
	lastChild   *NamespaceNode
	prevSibling *NamespaceNode
	nextSibling *NamespaceNode
	depth       int
	isPresent   bool

	flags       scopeFlags
	refCount    int
	preParsed   bool
	evaluated   bool
}

// AbsolutePath renders the node's absolute dotted path, root-relative, with
// each segment's trailing '_' padding dropped (`\_SB_.PCI0` renders as
// `\_SB.PCI0`; an all-underscore segment renders as `_`).
func (n *NamespaceNode) AbsolutePath() string {
	if len(n.segments) == 0 {
		return `\`
	}
	out := `\`
	for i, s := range n.segments {
		if i > 0 {
			out += "."
		}
		seg := strings.TrimRight(s.String(), "_")
		if seg == "" {
			seg = "_"
		}
		out += seg
	}
	return out
}

// Object returns the object currently backing this node (never nil; falls
// back to the state-global nil sentinel per spec.md §3).
func (n *NamespaceNode) Object() *Object {
	if n.object == nil {
		return nilObjectSentinel
	}
	return n.object
}

// scopeFrame is one entry of the namespace scope stack (spec.md §3's
// "Scope stack").
type scopeFrame struct {
	arenaSnap    arenaSnapshot
	segments     []nameSegment
	hash         uint32
	flags        scopeFlags
	parent       *scopeFrame
	tempHead     *NamespaceNode
	tempTail     *NamespaceNode
	node         *NamespaceNode
}

type searchFlags struct {
	noAliasResolution bool
	followReference   bool
	nameCreation      bool
}

// Namespace owns the bucket map, the in-order creation list, the scope
// stack, and the final presence tree, per spec.md §4.3.
type Namespace struct {
	buckets    []*NamespaceNode
	orderHead  *NamespaceNode
	orderTail  *NamespaceNode
	root       *NamespaceNode
	scopeTop   *scopeFrame
	arena      *Arena
	maxDepth   int

	// st is the owning State, used by CreateNode to register the new node
	// with the innermost open snapshot (spec.md §4.8's "item" abstraction).
	// Nil in namespace-only unit tests that construct a Namespace without a
	// State; touchNode is a no-op in that case.
	st *State
}

func newNamespace(arena *Arena, bucketCount int) *Namespace {
	if bucketCount <= 0 {
		bucketCount = defaultPathMapBucketCount
	}
	ns := &Namespace{buckets: make([]*NamespaceNode, bucketCount), arena: arena}
	root := &NamespaceNode{segments: nil, hash: murmur3_32(nil, namespaceHashSeed), isPresent: true, depth: 1, refCount: 1}
	ns.root = root
	ns.insertBucket(root)
	ns.appendOrder(root)
	ns.scopeTop = &scopeFrame{segments: nil, hash: root.hash, flags: scopeFlagBoundary, node: root}
	return ns
}

func (ns *Namespace) bucketIndex(hash uint32) int {
	return int(hash) % len(ns.buckets)
}

func (ns *Namespace) insertBucket(n *NamespaceNode) {
	idx := ns.bucketIndex(n.hash)
	n.bucketNext = ns.buckets[idx]
	ns.buckets[idx] = n
}

func (ns *Namespace) removeBucket(n *NamespaceNode) {
	idx := ns.bucketIndex(n.hash)
	cur := ns.buckets[idx]
	if cur == n {
		ns.buckets[idx] = n.bucketNext
		return
	}
	for cur != nil {
		if cur.bucketNext == n {
			cur.bucketNext = n.bucketNext
			return
		}
		cur = cur.bucketNext
	}
}

func (ns *Namespace) appendOrder(n *NamespaceNode) {
	if ns.orderTail == nil {
		ns.orderHead, ns.orderTail = n, n
		return
	}
	ns.orderTail.orderNext = n
	ns.orderTail = n
}

func (ns *Namespace) lookupBucket(hash uint32, segs []nameSegment) *NamespaceNode {
	idx := ns.bucketIndex(hash)
	for n := ns.buckets[idx]; n != nil; n = n.bucketNext {
		if n.hash == hash && segmentsEqual(n.segments, segs) {
			return n
		}
	}
	return nil
}

func segmentsEqual(a, b []nameSegment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// resolveName converts a parsed name-string (prefix + segments) to an
// absolute segment path against the current scope, per spec.md §4.3's
// search rules and §4.2's name-string grammar.
func (ns *Namespace) resolveName(parsedName parsedNameString) []nameSegment {
	cur := ns.scopeTop
	switch {
	case parsedName.isAbsolute:
		return append([]nameSegment{}, parsedName.segments...)
	case parsedName.parentHops > 0:
		base := cur.segments
		for i := 0; i < parsedName.parentHops && len(base) > 0; i++ {
			base = base[:len(base)-1]
		}
		out := append([]nameSegment{}, base...)
		return append(out, parsedName.segments...)
	default:
		out := append([]nameSegment{}, cur.segments...)
		return append(out, parsedName.segments...)
	}
}

// CreateNode implements spec.md §4.3's "Node creation": resolves the
// absolute path, hashes it, refuses on collision, links into the hash
// bucket and the in-order list, and links into the tree immediately if the
// parent is already present.
func (ns *Namespace) CreateNode(parsedName parsedNameString) (*NamespaceNode, *Error) {
	segs := ns.resolveName(parsedName)
	hash := hashSegments(segs)
	if ns.lookupBucket(hash, segs) != nil {
		return nil, errNameCollision
	}

	n := &NamespaceNode{segments: segs, hash: hash, flags: ns.scopeTop.flags}
	if len(segs) > 0 {
		n.local = segs[len(segs)-1]
	}

	ns.insertBucket(n)
	ns.appendOrder(n)

	if parent := ns.lookupBucket(hashSegments(segs[:len(segs)-1]), segs[:len(segs)-1]); parent != nil && parent.isPresent {
		ns.linkChild(parent, n)
	}

	if ns.scopeTop.flags&scopeFlagTemporary != 0 {
		n.tempScopeNext = ns.scopeTop.tempHead
		ns.scopeTop.tempHead = n
		if ns.scopeTop.tempTail == nil {
			ns.scopeTop.tempTail = n
		}
	}

	// Register the node's creation with the innermost open snapshot so a
	// rollback can undo it (spec.md §4.3's "Node release" pushes a
	// corresponding action into the enclosing snapshot; §7's recovery
	// policy requires a failed pass to leave no trace). touchNode is a
	// no-op with no State (namespace-only unit tests) or no open snapshot.
	if ns.st != nil {
		ns.st.touchNode(n, actionRaise)
	}

	return n, nil
}

func (ns *Namespace) linkChild(parent, child *NamespaceNode) {
	child.parent = parent
	child.depth = parent.depth + 1
	if parent.lastChild == nil {
		parent.firstChild = child
		parent.lastChild = child
	} else {
		parent.lastChild.nextSibling = child
		child.prevSibling = parent.lastChild
		parent.lastChild = child
	}
	child.isPresent = true
	if child.depth > ns.maxDepth {
		ns.maxDepth = child.depth
	}
}

// BuildTree implements spec.md §4.3's "Tree build": walks the in-order list
// and links any ancestor whose presence bit is clear under the last present
// ancestor, then links the node itself.
func (ns *Namespace) BuildTree() {
	for n := ns.orderHead; n != nil; n = n.orderNext {
		if n.isPresent || n == ns.root {
			continue
		}
		ns.linkAncestryAndSelf(n)
	}
}

func (ns *Namespace) linkAncestryAndSelf(n *NamespaceNode) {
	// Walk from root down to n's immediate parent, linking any node along
	// the way whose presence bit is still clear.
	last := ns.root
	for depth := 1; depth < len(n.segments); depth++ {
		prefix := n.segments[:depth]
		hash := hashSegments(prefix)
		ancestor := ns.lookupBucket(hash, prefix)
		if ancestor == nil {
			continue
		}
		if !ancestor.isPresent {
			ns.linkChild(last, ancestor)
		}
		last = ancestor
	}
	if !n.isPresent {
		ns.linkChild(last, n)
	}
}

// Search implements spec.md §4.3's ACPI 5.3 search rules.
func (ns *Namespace) Search(name parsedNameString, flags searchFlags) *NamespaceNode {
	if name.isAbsolute || name.parentHops > 0 || len(name.segments) > 1 {
		segs := ns.resolveName(name)
		n := ns.lookupBucket(hashSegments(segs), segs)
		return ns.maybeResolveAlias(n, flags)
	}

	if len(name.segments) == 0 {
		return nil
	}
	seg := name.segments[0]

	if flags.nameCreation {
		segs := append(append([]nameSegment{}, ns.scopeTop.segments...), seg)
		return ns.lookupBucket(hashSegments(segs), segs)
	}

	// Single-segment relative name: walk upward from the active scope.
	prefix := ns.scopeTop.segments
	for {
		segs := append(append([]nameSegment{}, prefix...), seg)
		if n := ns.lookupBucket(hashSegments(segs), segs); n != nil {
			return ns.maybeResolveAlias(n, flags)
		}
		if len(prefix) == 0 {
			return nil
		}
		prefix = prefix[:len(prefix)-1]
	}
}

func (ns *Namespace) maybeResolveAlias(n *NamespaceNode, flags searchFlags) *NamespaceNode {
	if n == nil || flags.noAliasResolution || flags.nameCreation {
		return n
	}
	if n.object != nil && n.object.Kind == ObjAlias {
		target, err := parseNameString([]byte(n.object.aliasTarget))
		if err != nil {
			return n
		}
		return ns.Search(target, flags)
	}
	return n
}

// findRelative is a convenience used by broadcastRegionState and similar
// callers that need a name-creation-free single-segment lookup under an
// arbitrary node rather than the live scope stack.
func (ns *Namespace) findRelative(under *NamespaceNode, seg string, flags searchFlags) *NamespaceNode {
	s := segmentFromString(seg)
	segs := append(nodeSegsCopy(under), s)
	return ns.lookupBucket(hashSegments(segs), segs)
}

func nodeSegsCopy(n *NamespaceNode) []nameSegment {
	return append([]nameSegment{}, n.segments...)
}

// PushScope implements spec.md §4.3's "Scope push/pop": resolves the given
// name to an absolute path, snapshots the arena, inherits flags unless
// SWITCH is set, and pushes a new frame.
func (ns *Namespace) PushScope(name parsedNameString, extra scopeFlags) *scopeFrame {
	segs := ns.resolveName(name)
	inherited := ns.scopeTop.flags
	if extra&scopeFlagSwitch != 0 {
		inherited = extra
	} else {
		inherited |= extra
	}
	frame := &scopeFrame{
		arenaSnap: ns.arena.Snapshot(),
		segments:  segs,
		hash:      hashSegments(segs),
		flags:     inherited,
		parent:    ns.scopeTop,
	}
	ns.scopeTop = frame
	return frame
}

// PopScope implements spec.md §4.3: releases all temporary nodes created in
// the scope, then rolls back the scope arena. The root scope cannot be
// popped.
func (ns *Namespace) PopScope() *Error {
	if ns.scopeTop.parent == nil {
		return errPopRootScope
	}
	frame := ns.scopeTop
	for n := frame.tempHead; n != nil; {
		next := n.tempScopeNext
		ns.releaseNode(n)
		n = next
	}
	ns.arena.Rollback(frame.arenaSnap)
	ns.scopeTop = frame.parent
	return nil
}

// releaseNode implements spec.md §4.3's "Node release": detaches from hash
// bucket, in-order list, and tree, and releases the backing object
// reference.
func (ns *Namespace) releaseNode(n *NamespaceNode) {
	n.refCount--
	if n.refCount > 0 {
		return
	}
	ns.removeBucket(n)
	ns.removeOrder(n)
	if n.isPresent {
		ns.unlinkTree(n)
	}
	if n.object != nil {
		n.object.release(nil)
		n.object = nil
	}
}

func (ns *Namespace) removeOrder(n *NamespaceNode) {
	var prev *NamespaceNode
	for cur := ns.orderHead; cur != nil; cur = cur.orderNext {
		if cur == n {
			if prev == nil {
				ns.orderHead = cur.orderNext
			} else {
				prev.orderNext = cur.orderNext
			}
			if ns.orderTail == cur {
				ns.orderTail = prev
			}
			return
		}
		prev = cur
	}
}

func (ns *Namespace) unlinkTree(n *NamespaceNode) {
	if n.prevSibling != nil {
		n.prevSibling.nextSibling = n.nextSibling
	} else if n.parent != nil {
		n.parent.firstChild = n.nextSibling
	}
	if n.nextSibling != nil {
		n.nextSibling.prevSibling = n.prevSibling
	} else if n.parent != nil {
		n.parent.lastChild = n.prevSibling
	}
	n.isPresent = false
}

// Visit performs a depth-first walk of the presence tree, in the style of
// the teacher's scope.go Visitor pattern.
type Visitor func(n *NamespaceNode) bool

func (ns *Namespace) Visit(v Visitor) {
	var walk func(n *NamespaceNode) bool
	walk = func(n *NamespaceNode) bool {
		if !v(n) {
			return false
		}
		for c := n.firstChild; c != nil; c = c.nextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(ns.root)
}
