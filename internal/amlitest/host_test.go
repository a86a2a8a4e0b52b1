package amlitest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dro/amli-sub001"
)

func TestGlobalLockCASComparesAgainstComparand(t *testing.T) {
	h := New()

	// word starts at 0; CAS(old=1, new=2) must not swap since the word is 0.
	prev := h.GlobalLockCAS(1, 2)
	require.Equal(t, uint32(0), prev)
	require.Equal(t, uint32(0), h.globalLock)

	// CAS(old=0, new=2) matches the comparand and swaps.
	prev = h.GlobalLockCAS(0, 2)
	require.Equal(t, uint32(0), prev)
	require.Equal(t, uint32(2), h.globalLock)
}

func TestMutexLifecycle(t *testing.T) {
	h := New()
	m := h.MutexCreate()
	require.Equal(t, amli.AcquireSuccess, h.MutexAcquire(m, 0))
	require.Equal(t, amli.AcquireTimeout, h.MutexAcquire(m, 100))
	h.MutexRelease(m)
	require.Equal(t, amli.AcquireSuccess, h.MutexAcquire(m, 0))
	h.MutexFree(m)
}

func TestMemoryMapRoundTrip(t *testing.T) {
	h := New()
	h.SeedMemory(0x1000, []byte{0xde, 0xad, 0xbe, 0xef})
	virt, err := h.MemoryMap(0x1000, 4)
	require.Nil(t, err)
	require.Equal(t, uint64(0xefbeadde), h.MMIORead(virt, 32))
	h.MMIOWrite(virt, 8, 0xff)
	require.Equal(t, uint64(0xff), h.MMIORead(virt, 8))
}

func TestPCIConfigRoundTrip(t *testing.T) {
	h := New()
	addr := amli.PCIAddress{Bus: 0, Device: 1, Function: 0, Offset: 0x19}
	h.PCIConfigWrite(addr, 8, 0x05)
	require.Equal(t, uint64(0x05), h.PCIConfigRead(addr, 8))
}

func TestTableLookup(t *testing.T) {
	h := New()
	h.AddTable("SSDT", "ACME", "TBL1", []byte{1, 2, 3})
	got := h.TableLookup("SSDT", "", "")
	require.Equal(t, []byte{1, 2, 3}, got)
	require.Nil(t, h.TableLookup("DSDT", "", ""))
}

func TestObjectNotifyAndDeviceInitializedAreRecorded(t *testing.T) {
	h := New()
	h.ObjectNotify(`\_SB.PCI0`, 0x80)
	h.DeviceInitialized(`\_SB.PCI0`, 0x0f)
	require.Equal(t, []Notification{{Path: `\_SB.PCI0`, Value: 0x80}}, h.Notifications())
	require.Equal(t, []DeviceStatus{{Path: `\_SB.PCI0`, STA: 0x0f}}, h.InitializedDevices())
}
