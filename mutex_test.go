package amli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// stubHost is a minimal in-package Host double for mutex/global-lock tests
// that need direct access to unexported State/Object fields and therefore
// can't live in internal/amlitest (which imports this package and would
// create an import cycle).
type stubHost struct {
	globalLock   uint32
	mutexHeld    map[HostMutexHandle]bool
	nextMutex    HostMutexHandle
	eventSignals int
	mem          map[uintptr][]byte
}

func newStubHost() *stubHost {
	return &stubHost{mutexHeld: make(map[HostMutexHandle]bool), nextMutex: 1, mem: make(map[uintptr][]byte)}
}

// seedMemory places raw bytes at a fixed physical address, readable through
// MemoryMap/MMIORead once a region maps it (identity-mapped by this stub).
func (h *stubHost) seedMemory(phys uintptr, data []byte) {
	h.mem[phys] = append([]byte(nil), data...)
}

func (h *stubHost) GlobalLockCAS(old, new uint32) uint32 {
	prev := h.globalLock
	if prev == old {
		h.globalLock = new
	}
	return prev
}
func (h *stubHost) DebugPrint(level int, format string, args ...interface{}) {}
func (h *stubHost) TableLookup(signature, oemID, oemTableID string) []byte   { return nil }
func (h *stubHost) MemoryMap(phys uintptr, size uintptr) (uintptr, error) {
	buf, ok := h.mem[phys]
	if !ok || uintptr(len(buf)) < size {
		grown := make([]byte, size)
		copy(grown, buf)
		h.mem[phys] = grown
	}
	return phys, nil
}
func (h *stubHost) MemoryUnmap(virt uintptr, size uintptr) {}
func (h *stubHost) MutexCreate() HostMutexHandle {
	handle := h.nextMutex
	h.nextMutex++
	h.mutexHeld[handle] = false
	return handle
}
func (h *stubHost) MutexAcquire(hd HostMutexHandle, timeoutMS uint16) AcquireResult {
	if h.mutexHeld[hd] {
		return AcquireTimeout
	}
	h.mutexHeld[hd] = true
	return AcquireSuccess
}
func (h *stubHost) MutexRelease(hd HostMutexHandle) { h.mutexHeld[hd] = false }
func (h *stubHost) MutexFree(hd HostMutexHandle)    { delete(h.mutexHeld, hd) }
func (h *stubHost) EventCreate() HostEventHandle    { return 1 }
func (h *stubHost) EventSignal(hd HostEventHandle)  { h.eventSignals++ }
func (h *stubHost) EventReset(hd HostEventHandle)   {}
func (h *stubHost) EventWait(hd HostEventHandle, timeoutMS uint16) AcquireResult {
	return AcquireSuccess
}
func (h *stubHost) EventFree(hd HostEventHandle)                   {}
func (h *stubHost) ObjectNotify(path string, value uint64)         {}
func (h *stubHost) Sleep(ms uint64)                                {}
func (h *stubHost) Stall(us uint64)                                {}
func (h *stubHost) Monotonic100ns() uint64                         { return 0 }
func (h *stubHost) PortRead(port uint16, widthBits int) uint32     { return 0 }
func (h *stubHost) PortWrite(port uint16, widthBits int, value uint32) {}
func (h *stubHost) MMIORead(addr uintptr, widthBits int) uint64 {
	for phys, b := range h.mem {
		if addr >= phys && int(addr-phys)+widthBits/8 <= len(b) {
			n := widthBits / 8
			var v uint64
			for i := 0; i < n; i++ {
				v |= uint64(b[int(addr-phys)+i]) << (8 * i)
			}
			return v
		}
	}
	return 0
}
func (h *stubHost) MMIOWrite(addr uintptr, widthBits int, value uint64) {
	for phys, b := range h.mem {
		if addr >= phys && int(addr-phys)+widthBits/8 <= len(b) {
			n := widthBits / 8
			for i := 0; i < n; i++ {
				b[int(addr-phys)+i] = byte(value >> (8 * i))
			}
			return
		}
	}
}
func (h *stubHost) PCIConfigRead(addr PCIAddress, widthBits int) uint64 { return 0 }
func (h *stubHost) PCIConfigWrite(addr PCIAddress, widthBits int, value uint64) {}
func (h *stubHost) DeviceInitialized(path string, sta uint64)      {}

func newMutexObject(st *State, syncLevel byte, isGlobal bool) *Object {
	return &Object{Kind: ObjMutex, refCount: 1, mutex: &MutexInfo{
		SyncLevel:  syncLevel,
		IsGlobal:   isGlobal,
		hostHandle: st.Host.MutexCreate(),
	}}
}

// S4: acquiring a mutex whose SyncLevel is lower than one already held in
// the same scope is a fatal SyncLevel violation, and the already-held
// mutex remains held afterward (spec.md §8 S4).
func TestMutexSyncLevelViolationLeavesFirstMutexHeld(t *testing.T) {
	host := newStubHost()
	st := NewState(host, DefaultLimits())
	defer st.Free()

	mutexA := newMutexObject(st, 4, false)
	mutexB := newMutexObject(st, 2, false)
	scope := newMethodScope("TEST", "TEST", 0)

	res, err := st.AcquireMutex(mutexA, scope, 0xFFFF)
	require.Nil(t, err)
	require.Equal(t, AcquireSuccess, res)

	_, berr := st.AcquireMutex(mutexB, scope, 0xFFFF)
	require.Equal(t, errSyncLevelViolation, berr)

	require.Equal(t, scope, mutexA.mutex.holder, "mutex A must still be held after the failed acquire of B")
	require.True(t, host.mutexHeld[mutexA.mutex.hostHandle])
}

// S5: acquiring the global-lock mutex twice and releasing once leaves the
// hold counter at 1 and the host global lock still owned; releasing again
// drops the counter to 0, releases the host lock, and signals the pending
// event iff the pending bit was observed set at release (spec.md §8 S5).
func TestGlobalLockNestedAcquireRelease(t *testing.T) {
	host := newStubHost()
	st := NewState(host, DefaultLimits())
	defer st.Free()

	gl := newMutexObject(st, 0, true)
	scope := newMethodScope("TEST", "TEST", 0)

	res1, err1 := st.AcquireMutex(gl, scope, 0xFFFF)
	require.Nil(t, err1)
	require.Equal(t, AcquireSuccess, res1)
	require.Equal(t, globalLockWordOwned, host.globalLock)

	res2, err2 := st.AcquireMutex(gl, scope, 0xFFFF)
	require.Nil(t, err2)
	require.Equal(t, AcquireSuccess, res2)
	require.Equal(t, 2, gl.mutex.acquireCount)

	require.Nil(t, st.ReleaseMutex(gl, scope))
	require.Equal(t, 1, gl.mutex.acquireCount)
	require.Equal(t, globalLockWordOwned, host.globalLock, "host global lock must still be owned after one of two releases")

	// Simulate another party observing ownership and setting the pending
	// bit before the final release.
	host.globalLock |= globalLockWordPending

	require.Nil(t, st.ReleaseMutex(gl, scope))
	require.Equal(t, 0, gl.mutex.acquireCount)
	require.Equal(t, uint32(0), host.globalLock, "host global lock must be fully released")
	require.Equal(t, 1, host.eventSignals, "pending waiter must be signaled since the pending bit was set at release")
}

// A mutex acquired and released within the same snapshot level must net
// to a single zero-count frame: an unrelated rollback of that snapshot
// must not touch the mutex at all. Before keying itemFrame lookups on the
// mutex's own *Object pointer (rather than a freshly allocated
// snapshotItem wrapper per touch), the raise and lower were recorded as
// two independent single-action frames, and replaying the raise-only
// frame on rollback spuriously released the mutex.
func TestSnapshotNetsAcquireReleaseOfSameMutexToNoOp(t *testing.T) {
	host := newStubHost()
	st := NewState(host, DefaultLimits())
	defer st.Free()

	m := newMutexObject(st, 0, false)
	scope := newMethodScope("TEST", "TEST", 0)

	snap := st.beginSnapshot()

	res, err := st.AcquireMutex(m, scope, 0xFFFF)
	require.Nil(t, err)
	require.Equal(t, AcquireSuccess, res)
	require.Nil(t, st.ReleaseMutex(m, scope))

	// Something unrelated to the mutex fails and rolls back this snapshot.
	snap.Rollback()

	require.Equal(t, 1, m.refCount, "net-zero acquire/release within one snapshot must not be replayed as a spurious release")
	require.True(t, host.mutexHeld[m.mutex.hostHandle] == false, "mutex was released normally, not force-released by rollback")
	_, stillAlive := host.mutexHeld[m.mutex.hostHandle]
	require.True(t, stillAlive, "rollback must not have freed the host mutex handle")
}

// Releasing a mutex not held at the current scope is an error (spec.md
// §4.6: "Releasing a mutex not held at the current scope is an error").
func TestMutexReleaseNotHeldIsError(t *testing.T) {
	host := newStubHost()
	st := NewState(host, DefaultLimits())
	defer st.Free()

	m := newMutexObject(st, 0, false)
	scope := newMethodScope("TEST", "TEST", 0)

	err := st.ReleaseMutex(m, scope)
	require.Equal(t, errMutexReleaseNotHeld, err)
}
