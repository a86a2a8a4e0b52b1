package amli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamespaceCreateAndSearchAbsolute(t *testing.T) {
	arena := NewArena(4096)
	ns := newNamespace(arena, 0)

	name := parsedNameString{isAbsolute: true, segments: []nameSegment{segmentFromString("_SB")}}
	node, err := ns.CreateNode(name)
	require.Nil(t, err)
	require.Equal(t, `\_SB`, node.AbsolutePath())

	found := ns.Search(name, searchFlags{})
	require.Same(t, node, found)
}

func TestNamespaceSingleSegmentRelativeSearchWalksAncestors(t *testing.T) {
	arena := NewArena(4096)
	ns := newNamespace(arena, 0)

	sbName := parsedNameString{isAbsolute: true, segments: []nameSegment{segmentFromString("_SB")}}
	sbNode, err := ns.CreateNode(sbName)
	require.Nil(t, err)

	// Declare FOO_ at root, then push a scope under _SB and search for FOO_
	// relatively: single-segment relative search must walk up to root.
	fooName := parsedNameString{isAbsolute: true, segments: []nameSegment{segmentFromString("FOO")}}
	_, err = ns.CreateNode(fooName)
	require.Nil(t, err)

	ns.PushScope(sbName, 0)
	defer ns.PopScope()

	relative := parsedNameString{segments: []nameSegment{segmentFromString("FOO")}}
	found := ns.Search(relative, searchFlags{})
	require.NotNil(t, found)
	require.Equal(t, `\FOO`, found.AbsolutePath())
	require.NotSame(t, sbNode, found)
}

func TestNamespaceAliasResolution(t *testing.T) {
	arena := NewArena(4096)
	ns := newNamespace(arena, 0)

	target := parsedNameString{isAbsolute: true, segments: []nameSegment{segmentFromString("FOO")}}
	targetNode, err := ns.CreateNode(target)
	require.Nil(t, err)
	targetNode.object = &Object{Kind: ObjName, value: IntegerValue(9)}

	aliasName := parsedNameString{isAbsolute: true, segments: []nameSegment{segmentFromString("BAR")}}
	aliasNode, err := ns.CreateNode(aliasName)
	require.Nil(t, err)
	aliasNode.object = &Object{Kind: ObjAlias, aliasTarget: `\FOO`}

	found := ns.Search(aliasName, searchFlags{})
	require.Same(t, targetNode, found)
}

func TestNamespaceBuildTreeLinksParentChild(t *testing.T) {
	arena := NewArena(4096)
	ns := newNamespace(arena, 0)

	sb := parsedNameString{isAbsolute: true, segments: []nameSegment{segmentFromString("_SB")}}
	_, err := ns.CreateNode(sb)
	require.Nil(t, err)
	pci := parsedNameString{isAbsolute: true, segments: []nameSegment{segmentFromString("_SB"), segmentFromString("PCI0")}}
	_, err = ns.CreateNode(pci)
	require.Nil(t, err)

	ns.BuildTree()

	sbNode := ns.Search(sb, searchFlags{})
	require.NotNil(t, sbNode)
	require.NotNil(t, sbNode.firstChild)
	require.Equal(t, `\_SB.PCI0`, sbNode.firstChild.AbsolutePath())
}
