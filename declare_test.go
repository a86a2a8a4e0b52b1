package amli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadTableDeclaresName(t *testing.T) {
	// Name("FOO_", 0x2a)
	body := concatBytes([]byte{byte(opName)}, seg("FOO"), []byte{byte(opBytePrefix), 0x2a})
	st := NewState(nil, DefaultLimits())
	defer st.Free()

	_, err := st.LoadTable(buildTable("DSDT", 0, body))
	require.Nil(t, err)
	require.Nil(t, st.CompleteInitialLoad(false))

	v, eerr := st.EvaluateByPath(`\FOO`, nil)
	require.Nil(t, eerr)
	i, ok := v.Integer()
	require.True(t, ok)
	require.Equal(t, uint64(0x2a), i)
}

func TestLoadTableDeclaresMethodAndReturnsOne(t *testing.T) {
	// Method(_SB_, 0, NotSerialized) { Return (One) }
	methodBody := []byte{byte(opReturn), byte(opOne)}
	nameAndFlags := concatBytes(seg("_SB"), []byte{0x00}, methodBody)
	pkg := pkgLen(byte(1 + len(nameAndFlags)))
	body := concatBytes([]byte{byte(opMethod)}, pkg, nameAndFlags)

	st := NewState(nil, DefaultLimits())
	defer st.Free()

	_, err := st.LoadTable(buildTable("DSDT", 0, body))
	require.Nil(t, err)
	require.Nil(t, st.CompleteInitialLoad(false))

	v, eerr := st.EvaluateByPath(`\_SB`, nil)
	require.Nil(t, eerr)
	i, ok := v.Integer()
	require.True(t, ok)
	require.Equal(t, uint64(1), i)
}

func TestLoadTableDeclaresScopeAndDevice(t *testing.T) {
	// Scope(\_SB) { Device(PCI0) {} }
	deviceNameAndBody := seg("PCI0")
	devicePkg := pkgLen(byte(1 + len(deviceNameAndBody)))
	deviceBytes := concatBytes([]byte{extOpPrefix, byte(opDevice & 0xff)}, devicePkg, deviceNameAndBody)

	scopeInner := concatBytes(seg("_SB"), deviceBytes)
	scopePkg := pkgLen(byte(1 + len(scopeInner)))
	body := concatBytes([]byte{byte(opScope)}, scopePkg, scopeInner)

	st := NewState(nil, DefaultLimits())
	defer st.Free()

	_, err := st.LoadTable(buildTable("DSDT", 0, body))
	require.Nil(t, err)
	require.Nil(t, st.CompleteInitialLoad(false))

	var found *NamespaceNode
	st.Walk(func(n *NamespaceNode) {
		if n.AbsolutePath() == `\_SB.PCI0` {
			found = n
		}
	})
	require.NotNil(t, found)
	require.Equal(t, ObjDevice, found.Object().Kind)
}

func TestMutexDeclarationDetectsGlobalLock(t *testing.T) {
	// Mutex(\_GL_, 0)
	body := concatBytes([]byte{extOpPrefix, byte(opMutex & 0xff)}, seg("_GL"), []byte{0x00})
	st := NewState(nil, DefaultLimits())
	defer st.Free()

	_, err := st.LoadTable(buildTable("DSDT", 0, body))
	require.Nil(t, err)
	require.NotNil(t, st.globalLockMutex)
}

func TestAliasResolvesToTarget(t *testing.T) {
	// Name(FOO_, 7); Alias(FOO_, BAR_)
	nameBytes := concatBytes([]byte{byte(opName)}, seg("FOO"), []byte{byte(opBytePrefix), 0x07})
	aliasBytes := concatBytes([]byte{byte(opAlias)}, seg("FOO"), seg("BAR"))
	body := concatBytes(nameBytes, aliasBytes)

	st := NewState(nil, DefaultLimits())
	defer st.Free()
	_, err := st.LoadTable(buildTable("DSDT", 0, body))
	require.Nil(t, err)
	require.Nil(t, st.CompleteInitialLoad(false))

	v, eerr := st.EvaluateByPath(`\BAR`, nil)
	require.Nil(t, eerr)
	i, ok := v.Integer()
	require.True(t, ok)
	require.Equal(t, uint64(7), i)
}

func TestLoadTableRollsBackOnUnknownOpcode(t *testing.T) {
	body := []byte{0xfe} // not a recognized opcode
	st := NewState(nil, DefaultLimits())
	defer st.Free()

	_, err := st.LoadTable(buildTable("DSDT", 0, body))
	require.NotNil(t, err)

	var count int
	st.Walk(func(n *NamespaceNode) { count++ })
	require.Equal(t, 1, count, "failed load must leave only the root node")
}

// A table that successfully declares a node before hitting a bad opcode
// must roll that node back too, not just leave the root untouched: the
// declare-pass snapshot spans the whole table body (state.go's LoadTable),
// so CreateNode's touchNode registration must cover every node created
// before the failure, not only tables where no node is ever created.
func TestLoadTableRollsBackPartiallyDeclaredNode(t *testing.T) {
	// Name(FOO_, 5), then an unrecognized opcode.
	body := concatBytes(
		[]byte{byte(opName)}, seg("FOO"), []byte{byte(opBytePrefix), 0x05},
		[]byte{0xfe},
	)
	st := NewState(nil, DefaultLimits())
	defer st.Free()

	_, err := st.LoadTable(buildTable("DSDT", 0, body))
	require.NotNil(t, err)

	var count int
	st.Walk(func(n *NamespaceNode) { count++ })
	require.Equal(t, 1, count, "rollback must also undo nodes declared earlier in the same table")

	parsed, perr := parseNameString([]byte(`\FOO`))
	require.Nil(t, perr)
	require.Nil(t, st.ns.Search(parsed, searchFlags{}), "rolled-back node must not be resolvable")
}
