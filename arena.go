package amli

// arenaMinAlignment mirrors aml_arena.h's AML_ARENA_MIN_ALIGNMENT (16).
const arenaMinAlignment = 16

// arenaChunk is one backing allocation the arena bump-allocates out of.
type arenaChunk struct {
	buf      []byte
	used     int
	next     *arenaChunk
	prevFree *arenaChunk // free-list link when not current
}

// arenaSnapshot is the opaque cursor returned by Arena.Snapshot, per
// spec.md §4.1: "snapshot() returns an opaque cursor".
type arenaSnapshot struct {
	index        int
	chunkUsedAt  int
	chunk        *arenaChunk
}

// Arena is a bump-allocating region with a chunk free-list, the systems-
// language ownership primitive spec.md §9 calls for in place of hand-rolled
// refcounting for intrusive lists, grounded on aml_arena.h.
type Arena struct {
	backendAlloc  func(size int) []byte
	baseChunkSize int
	chunkHead     *arenaChunk
	current       *arenaChunk
	freeHead      *arenaChunk
	snapshotCount int
	nextIndex     int
}

// NewArena creates an arena with the given default chunk size, using Go's
// allocator as the "backend allocator" spec.md treats as out of scope
// ("the arena and binned-heap allocators per se ... their internal
// splitting strategy is not" specified).
func NewArena(baseChunkSize int) *Arena {
	if baseChunkSize <= 0 {
		baseChunkSize = 16 * 1024
	}
	a := &Arena{baseChunkSize: baseChunkSize, backendAlloc: func(n int) []byte { return make([]byte, n) }}
	a.addChunk(baseChunkSize)
	return a
}

func (a *Arena) addChunk(size int) *arenaChunk {
	c := &arenaChunk{buf: a.backendAlloc(size)}
	if a.chunkHead == nil {
		a.chunkHead = c
	} else {
		a.current.next = c
	}
	a.current = c
	return c
}

func align(n, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

// Allocate returns size bytes from the current chunk if space remains,
// otherwise reclaims the largest free chunk that fits or allocates a fresh
// one, per spec.md §4.1 and SPEC_FULL.md §C.5 ("largest first").
func (a *Arena) Allocate(size int) []byte {
	if size < 0 {
		return nil
	}
	aligned := align(size, arenaMinAlignment)
	if aligned < size {
		return nil // overflow
	}

	if a.current.used+aligned <= len(a.current.buf) {
		out := a.current.buf[a.current.used : a.current.used+aligned]
		a.current.used += aligned
		return out[:size]
	}

	if reused := a.takeLargestFree(aligned); reused != nil {
		a.current.next = reused
		a.current = reused
		out := reused.buf[:aligned]
		reused.used = aligned
		return out[:size]
	}

	chunkSize := a.baseChunkSize
	if aligned > chunkSize {
		chunkSize = aligned
	}
	c := a.addChunk(chunkSize)
	c.used = aligned
	return c.buf[:size]
}

// AllocateZeroInitialized allocates size bytes, guaranteed zeroed. Allocate
// alone can hand back stale bytes, since space returned by Rollback is
// reused without being cleared, so this clears the slice explicitly.
func (a *Arena) AllocateZeroInitialized(size int) []byte {
	b := a.Allocate(size)
	for i := range b {
		b[i] = 0
	}
	return b
}

// AllocateCopy allocates len(src) bytes and copies src into it.
func (a *Arena) AllocateCopy(src []byte) []byte {
	dst := a.Allocate(len(src))
	copy(dst, src)
	return dst
}

func (a *Arena) takeLargestFree(minSize int) *arenaChunk {
	var best, bestPrev *arenaChunk
	var prev *arenaChunk
	for c := a.freeHead; c != nil; c = c.prevFree {
		if len(c.buf) >= minSize && (best == nil || len(c.buf) > len(best.buf)) {
			best, bestPrev = c, prev
		}
		prev = c
	}
	if best == nil {
		return nil
	}
	if bestPrev == nil {
		a.freeHead = best.prevFree
	} else {
		bestPrev.prevFree = best.prevFree
	}
	best.used = 0
	best.next = nil
	best.prevFree = nil
	return best
}

// Snapshot returns an opaque cursor capturing the current chunk and its
// used-size.
func (a *Arena) Snapshot() arenaSnapshot {
	a.snapshotCount++
	return arenaSnapshot{index: a.nextIndex, chunkUsedAt: a.current.used, chunk: a.current}
}

// Rollback restores the current chunk's used-size and returns all later
// chunks to the free-list, per spec.md §4.1.
func (a *Arena) Rollback(s arenaSnapshot) {
	for c := s.chunk.next; c != nil; {
		next := c.next
		c.used = 0
		c.next = nil
		c.prevFree = a.freeHead
		a.freeHead = c
		c = next
	}
	s.chunk.next = nil
	s.chunk.used = s.chunkUsedAt
	a.current = s.chunk
	a.snapshotCount--
}

// Commit only decrements the open-snapshot count. Neither Commit nor
// Rollback checks that s is the innermost open arena snapshot.
func (a *Arena) Commit(s arenaSnapshot) {
	a.snapshotCount--
}

// Reset transplants the active chunk list to the free-list without freeing
// backing memory, per spec.md §4.1.
func (a *Arena) Reset() {
	for c := a.chunkHead; c != nil; {
		next := c.next
		c.used = 0
		c.next = nil
		c.prevFree = a.freeHead
		a.freeHead = c
		c = next
	}
	a.chunkHead = a.addChunk(a.baseChunkSize)
}
