package amli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecoderPrimitives(t *testing.T) {
	d := newDecoder([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, 32)

	b, err := d.consumeByte()
	require.Nil(t, err)
	require.Equal(t, byte(0x01), b)

	w, err := d.consumeWord()
	require.Nil(t, err)
	require.Equal(t, uint16(0x0302), w)

	dw, err := d.consumeDword()
	require.Nil(t, err)
	require.Equal(t, uint32(0x07060504), dw)

	require.True(t, d.matchByte(0x08))
	require.True(t, d.eof())
}

func TestDecoderTruncatedStream(t *testing.T) {
	d := newDecoder([]byte{0x01}, 32)
	_, err := d.consumeWord()
	require.Equal(t, errTruncatedStream, err)
}

func TestPkgLengthOneByte(t *testing.T) {
	// lead byte 0x08: k=0, length=8 (includes the lead byte itself).
	d := newDecoder([]byte{0x08, 0, 0, 0, 0, 0, 0, 0}, 32)
	end, err := d.consumePackageLength()
	require.Nil(t, err)
	require.Equal(t, 8, end)
}

func TestPkgLengthMultiByte(t *testing.T) {
	// k=1: lead nibble 0x0, extra byte 0x10 -> length = 0 | (0x10 << 4) = 0x100.
	data := append([]byte{0x40, 0x10}, make([]byte, 0x100-2)...)
	d := newDecoder(data, 32)
	end, err := d.consumePackageLength()
	require.Nil(t, err)
	require.Equal(t, 0x100, end)
}

func TestConsumeNameStringVariants(t *testing.T) {
	t.Run("single segment", func(t *testing.T) {
		d := newDecoder(seg("FOO"), 32)
		n, err := d.consumeNameString()
		require.Nil(t, err)
		require.Len(t, n.segments, 1)
		require.Equal(t, "FOO_", n.segments[0].String())
	})

	t.Run("absolute dual path", func(t *testing.T) {
		data := concatBytes([]byte{'\\', 0x2e}, seg("_SB"), seg("PCI0"))
		d := newDecoder(data, 32)
		n, err := d.consumeNameString()
		require.Nil(t, err)
		require.True(t, n.isAbsolute)
		require.Len(t, n.segments, 2)
		require.Equal(t, "_SB_", n.segments[0].String())
		require.Equal(t, "PCI0", n.segments[1].String())
	})

	t.Run("parent prefix multi path", func(t *testing.T) {
		data := concatBytes([]byte{'^', '^', 0x2f, 0x03}, seg("AAAA"), seg("BBBB"), seg("CCCC"))
		d := newDecoder(data, 32)
		n, err := d.consumeNameString()
		require.Nil(t, err)
		require.Equal(t, 2, n.parentHops)
		require.Len(t, n.segments, 3)
	})

	t.Run("null name", func(t *testing.T) {
		d := newDecoder([]byte{0x00}, 32)
		n, err := d.consumeNameString()
		require.Nil(t, err)
		require.Empty(t, n.segments)
	})

	t.Run("bad lead char", func(t *testing.T) {
		d := newDecoder([]byte{'1', 'A', 'A', 'A'}, 32)
		_, err := d.consumeNameString()
		require.Equal(t, errBadNameSegment, err)
	})
}

func TestPeekOpcodeExtendedAndOptionalMatch(t *testing.T) {
	t.Run("ext-prefixed", func(t *testing.T) {
		d := newDecoder([]byte{extOpPrefix, byte(opMutex & 0xff)}, 32)
		op, width, err := d.peekOpcode()
		require.Nil(t, err)
		require.Equal(t, opMutex, op)
		require.Equal(t, 2, width)
	})

	t.Run("LNotEqual optional match", func(t *testing.T) {
		d := newDecoder([]byte{lnotOp, byte(opLEqual)}, 32)
		op, width, err := d.peekOpcode()
		require.Nil(t, err)
		require.Equal(t, opLNotEqual, op)
		require.Equal(t, 2, width)
	})

	t.Run("bare LNot", func(t *testing.T) {
		d := newDecoder([]byte{lnotOp, byte(opAdd)}, 32)
		op, width, err := d.peekOpcode()
		require.Nil(t, err)
		require.Equal(t, opLnot, op)
		require.Equal(t, 1, width)
	})
}

func TestSignExtendInteger(t *testing.T) {
	require.Equal(t, int64(-1), signExtendInteger(0xff, 8))
	require.Equal(t, int64(0x7f), signExtendInteger(0x7f, 8))
}
