package amli

// HostMutexHandle / HostEventHandle are opaque host-owned resource handles,
// per spec.md §6.1's "Mutex lifecycle" / "Event lifecycle" boundary calls.
type HostMutexHandle uintptr
type HostEventHandle uintptr

// AcquireResult is the tri-state result of a timed acquire, per spec.md
// §6.1/§5 ("Timeout is surfaced as a distinct result").
type AcquireResult uint8

const (
	AcquireSuccess AcquireResult = iota
	AcquireTimeout
	AcquireError
)

// globalLockWordPending / globalLockWordOwned mirror aml_host.c's bit
// layout for the ACPI global-lock word, per SPEC_FULL.md §C.1:
// PENDING = bit 0, OWNED = bit 1.
const (
	globalLockWordPending uint32 = 1 << 0
	globalLockWordOwned   uint32 = 1 << 1
)

// acquireGlobalLockWord implements the lock-free CAS protocol of spec.md
// §4.6 and §6.1, spelled out exactly by aml_host.c's
// AmlHostGlobalLockTryAcquire (SPEC_FULL.md §C.1): atomically set the owned
// bit, or set the pending bit if owned; success means we took ownership.
//
// The retry condition compares the CAS return against the *comparand*
// (current), not the desired value - this resolves the stale-macro
// ambiguity spec.md §9's Design Notes/Open Questions flags: "a rewrite
// should compare against the comparand."
func acquireGlobalLockWord(cas func(old, new uint32) uint32) bool {
	for {
		// CAS(0,0) never mutates the word under our nose: if the word is
		// already 0 the swap is a no-op, otherwise it fails and hands back
		// the real current value - either way we get a safe peek.
		current := cas(0, 0)
		desired := current | globalLockWordOwned
		if current&globalLockWordOwned != 0 {
			desired = current | globalLockWordPending
		}
		result := cas(current, desired)
		if result == current {
			return desired&globalLockWordOwned != 0 && current&globalLockWordOwned == 0
		}
		// CAS failed (another party changed the word); retry.
	}
}

// releaseGlobalLockWord clears the owned bit and reports whether a pending
// waiter was observed set at release time, matching aml_host.c's
// AmlHostGlobalLockRelease semantics (spec.md §8 S5: "pending-waiter signal
// issued iff the pending bit was observed set during release").
func releaseGlobalLockWord(cas func(old, new uint32) uint32) (pendingWasSet bool) {
	for {
		current := cas(0, 0)
		pendingWasSet = current&globalLockWordPending != 0
		desired := current &^ (globalLockWordOwned | globalLockWordPending)
		result := cas(current, desired)
		if result == current {
			return pendingWasSet
		}
	}
}

// acquisitionRecord is one entry of a method scope's mutex-acquisition list
// (spec.md §3's "Method scope": "a linked list of per-mutex acquisition
// records with (object, acquire count, SyncLevel) for release-on-exit").
type acquisitionRecord struct {
	mutex     *Object
	count     int
	syncLevel byte
}

// AcquireMutex implements spec.md §4.6's Acquire: calls the host mutex
// acquire with the timeout; for the designated `_GL` mutex, additionally
// drives the global-lock CAS protocol. Re-acquisition from the same scope
// is counted. Acquiring below the current SyncLevel floor is fatal.
func (st *State) AcquireMutex(m *Object, scope *methodScope, timeoutMS uint16) (AcquireResult, *Error) {
	if m.Kind != ObjMutex {
		return AcquireError, errTypeMismatch
	}
	mi := m.mutex

	if scope != nil && mi.SyncLevel < scope.syncLevel && mi.holder != scope {
		return AcquireError, errSyncLevelViolation
	}

	if mi.holder == scope && scope != nil {
		mi.acquireCount++
		return AcquireSuccess, nil
	}

	res := st.Host.MutexAcquire(mi.hostHandle, timeoutMS)
	if res == AcquireTimeout {
		return AcquireTimeout, nil
	}
	if res == AcquireError {
		return AcquireError, errMutexTimeout
	}

	if mi.IsGlobal {
		acquireGlobalLockWord(st.Host.GlobalLockCAS)
	}

	mi.holder = scope
	mi.acquireCount = 1

	if scope != nil {
		scope.acquisitions = append(scope.acquisitions, &acquisitionRecord{mutex: m, count: 1, syncLevel: mi.SyncLevel})
		if mi.SyncLevel > scope.syncLevel {
			scope.syncLevel = mi.SyncLevel
		}
		st.touchMutex(m, actionRaise)
	}
	return AcquireSuccess, nil
}

// ReleaseMutex implements spec.md §4.6's Release: drops the scope's
// acquisition record, unwinds the global-lock counter if applicable, and
// releases the host mutex. Releasing a mutex not held at the current scope
// is an error.
func (st *State) ReleaseMutex(m *Object, scope *methodScope) *Error {
	if m.Kind != ObjMutex {
		return errTypeMismatch
	}
	mi := m.mutex
	if mi.holder != scope {
		return errMutexReleaseNotHeld
	}

	mi.acquireCount--
	if scope != nil {
		for i := len(scope.acquisitions) - 1; i >= 0; i-- {
			if scope.acquisitions[i].mutex == m {
				scope.acquisitions[i].count--
				if scope.acquisitions[i].count <= 0 {
					scope.acquisitions = append(scope.acquisitions[:i], scope.acquisitions[i+1:]...)
				}
				break
			}
		}
		st.touchMutex(m, actionLower)
	}

	if mi.acquireCount > 0 {
		return nil
	}

	if mi.IsGlobal {
		pending := releaseGlobalLockWord(st.Host.GlobalLockCAS)
		if pending {
			st.Host.EventSignal(st.globalLockWaitEvent)
		}
	}

	mi.holder = nil
	st.Host.MutexRelease(mi.hostHandle)
	return nil
}

// releaseAllMutexes implements spec.md §4.6's "Scope exit": on method scope
// pop, release any still-held mutexes in reverse acquisition order.
func (st *State) releaseAllMutexes(scope *methodScope) {
	for len(scope.acquisitions) > 0 {
		rec := scope.acquisitions[len(scope.acquisitions)-1]
		for rec.count > 0 {
			_ = st.ReleaseMutex(rec.mutex, scope)
			rec.count--
		}
	}
}
