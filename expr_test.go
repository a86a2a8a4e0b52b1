package amli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func methodTable(methodName string, body []byte) []byte {
	nameAndFlags := concatBytes(seg(methodName), []byte{0x00}, body)
	pkg := pkgLen(byte(1 + len(nameAndFlags)))
	return concatBytes([]byte{byte(opMethod)}, pkg, nameAndFlags)
}

func evalMethod(t *testing.T, methodName string, body []byte) Value {
	t.Helper()
	st := NewState(nil, DefaultLimits())
	defer st.Free()

	_, err := st.LoadTable(buildTable("DSDT", 0, methodTable(methodName, body)))
	require.Nil(t, err)
	require.Nil(t, st.CompleteInitialLoad(false))

	v, eerr := st.EvaluateByPath(`\`+methodName, nil)
	require.Nil(t, eerr)
	return v
}

func TestEvalAddStoredThenReturned(t *testing.T) {
	// Add(5, 3, Local0); Return (Local0)
	body := concatBytes(
		[]byte{byte(opAdd), byte(opBytePrefix), 0x05, byte(opBytePrefix), 0x03, byte(opLocal0)},
		[]byte{byte(opReturn), byte(opLocal0)},
	)
	v := evalMethod(t, "CALC", body)
	i, ok := v.Integer()
	require.True(t, ok)
	require.Equal(t, uint64(8), i)
}

func TestEvalLogicalAndComparison(t *testing.T) {
	// Return (LEqual(One, One))
	body := []byte{byte(opReturn), byte(opLEqual), byte(opOne), byte(opOne)}
	v := evalMethod(t, "CMPX", body)
	i, ok := v.Integer()
	require.True(t, ok)
	require.Equal(t, uint64(0xFFFFFFFF), i)
}

func TestEvalLNotOfZero(t *testing.T) {
	body := []byte{byte(opReturn), byte(lnotOp), byte(opZero)}
	v := evalMethod(t, "NOTX", body)
	i, ok := v.Integer()
	require.True(t, ok)
	require.Equal(t, uint64(0xFFFFFFFF), i)
}

// S2 (spec.md §8): feed {0x92, 0x93, 0x00, 0x00} (LNotOp + LEqualOp =
// LNotEqual of Zero, Zero). The decoder's optional-match sub-table must
// fuse the two bytes into LNotEqual rather than treating 0x92 as a
// standalone LNotOp, and evaluating LNotEqual(0, 0) must yield Ones.
func TestEvalTwoByteOpcodeLNotEqualDisambiguation(t *testing.T) {
	body := []byte{byte(opReturn), lnotOp, byte(opLEqual), byte(opZero), byte(opZero)}
	v := evalMethod(t, "LNEQ", body)
	i, ok := v.Integer()
	require.True(t, ok)
	require.Equal(t, uint64(0xFFFFFFFF), i)
}

func TestEvalSizeOfBuffer(t *testing.T) {
	// Name(BUFX, Buffer(3){1,2,3}); Return (SizeOf(BUFX))
	bufBody := []byte{0x01, 0x02, 0x03}
	sizeTerm := []byte{byte(opBytePrefix), 0x03}
	inner := concatBytes(sizeTerm, bufBody)
	pkg := pkgLen(byte(1 + len(inner)))
	bufExpr := concatBytes([]byte{byte(opBuffer)}, pkg, inner)

	nameDecl := concatBytes([]byte{byte(opName)}, seg("BUFX"), bufExpr)
	methodBody := concatBytes(nameDecl, []byte{byte(opReturn), byte(opSizeOf)}, seg("BUFX"))
	v := evalMethod(t, "SIZX", methodBody)
	i, ok := v.Integer()
	require.True(t, ok)
	require.Equal(t, uint64(3), i)
}

func TestEvalIndexIntoPackage(t *testing.T) {
	// Return (Index(Package(2){0x11,0x22}, One, <no target>))
	elem1 := []byte{byte(opBytePrefix), 0x11}
	elem2 := []byte{byte(opBytePrefix), 0x22}
	pkgInner := concatBytes([]byte{0x02}, elem1, elem2) // NumElements byte, then package elements
	pkgPkg := pkgLen(byte(1 + len(pkgInner)))
	pkgExpr := concatBytes([]byte{byte(opPackage)}, pkgPkg, pkgInner)

	body := concatBytes(
		[]byte{byte(opReturn), byte(opIndex)},
		pkgExpr,
		[]byte{byte(opOne), 0x00}, // Index = One, Target = NullName (no store)
	)
	v := evalMethod(t, "IDXX", body)
	i, ok := v.Integer()
	require.True(t, ok)
	require.Equal(t, uint64(0x22), i)
}
