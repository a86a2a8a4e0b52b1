package amli

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"
)

// dumpTree renders every namespace node's path and kind in tree order, a
// small human-reviewable text form of the parsed namespace (path and numeric
// kind per line, a plainer listing than cmd/amldump's "dump" subcommand
// prints), snapshot-tested here directly against the amli package's own
// State rather than through the CLI.
func dumpTree(st *State) string {
	var b strings.Builder
	st.Walk(func(n *NamespaceNode) {
		fmt.Fprintf(&b, "%s %d\n", n.AbsolutePath(), n.Object().Kind)
	})
	return b.String()
}

func TestNamespaceDumpSnapshot(t *testing.T) {
	// Scope(\_SB) { Device(PCI0) { Name(_ADR, 0) } }
	nameDecl := concatBytes([]byte{byte(opName)}, seg("_ADR"), []byte{byte(opBytePrefix), 0x00})
	deviceInner := concatBytes(seg("PCI0"), nameDecl)
	devicePkg := pkgLen(byte(1 + len(deviceInner)))
	deviceBytes := concatBytes([]byte{extOpPrefix, byte(opDevice & 0xff)}, devicePkg, deviceInner)

	scopeInner := concatBytes(seg("_SB"), deviceBytes)
	scopePkg := pkgLen(byte(1 + len(scopeInner)))
	body := concatBytes([]byte{byte(opScope)}, scopePkg, scopeInner)

	st := NewState(nil, DefaultLimits())
	defer st.Free()

	_, err := st.LoadTable(buildTable("DSDT", 0, body))
	require.Nil(t, err)
	require.Nil(t, st.CompleteInitialLoad(false))

	snaps.MatchSnapshot(t, dumpTree(st))
}
