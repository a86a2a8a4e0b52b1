package amli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S6 (spec.md §8): OpRegion SystemMemory at offset 0x1000 length 0x10.
// A Field at bit offset 0x70 length 0x10 covers the last 16 bits of the
// region and must read successfully; a Field at bit offset 0x80 length
// 0x8 starts one byte past the region's end and must fail with a bounds
// error.
func TestOperationRegionBounds(t *testing.T) {
	host := newStubHost()
	seeded := make([]byte, 0x10)
	seeded[0x0e] = 0xab
	seeded[0x0f] = 0xcd
	host.seedMemory(0x1000, seeded)

	st := NewState(host, DefaultLimits())
	defer st.Free()

	regionObj := &Object{Kind: ObjOperationRegion, refCount: 1, region: &RegionInfo{
		Space:  RegionSystemMemory,
		Offset: 0x1000,
		Length: 0x10,
	}}

	inBounds := &Object{Kind: ObjField, refCount: 1, field: &FieldInfo{
		AccessType: FieldAccessByte,
		BitOffset:  0x70,
		BitLength:  0x10,
		region:     regionObj,
	}}
	v, err := st.ReadField(inBounds, nil)
	require.Nil(t, err)
	n, ok := v.Integer()
	require.True(t, ok)
	require.Equal(t, uint64(0xcdab), n)

	outOfBounds := &Object{Kind: ObjField, refCount: 1, field: &FieldInfo{
		AccessType: FieldAccessByte,
		BitOffset:  0x80,
		BitLength:  0x8,
		region:     regionObj,
	}}
	_, oerr := st.ReadField(outOfBounds, nil)
	require.Equal(t, errRegionOutOfBounds, oerr)
}

// BufferAcc is rejected on a non-special region space (spec.md §4.5:
// "reject BufferAcc for non-special types").
func TestOperationRegionRejectsBufferAccOnNonSpecialSpace(t *testing.T) {
	host := newStubHost()
	st := NewState(host, DefaultLimits())
	defer st.Free()

	regionObj := &Object{Kind: ObjOperationRegion, refCount: 1, region: &RegionInfo{
		Space:  RegionSystemMemory,
		Offset: 0x1000,
		Length: 0x10,
	}}
	f := &Object{Kind: ObjField, refCount: 1, field: &FieldInfo{
		AccessType: FieldAccessBuffer,
		BitOffset:  0,
		BitLength:  0x10,
		region:     regionObj,
	}}
	_, err := st.ReadField(f, nil)
	require.Equal(t, errUnsupportedAccess, err)
}
