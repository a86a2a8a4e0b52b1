package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildTestTable mirrors the amli package's own test helper, duplicated
// here since cmd/amldump cannot import amli's internal _test.go helpers.
func buildTestTable(t *testing.T) string {
	t.Helper()
	header := make([]byte, 36)
	copy(header[0:4], "DSDT")
	copy(header[10:16], "TESTOE")
	copy(header[16:24], "TESTTABL")

	// Name(FOO_, 0x2a)
	body := []byte{0x08, 'F', 'O', 'O', '_', 0x0a, 0x2a}
	data := append(header, body...)

	path := filepath.Join(t.TempDir(), "table.bin")
	require.Nil(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDumpCommandPrintsDeclaredName(t *testing.T) {
	path := buildTestTable(t)
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"dump", "--table", path})

	require.Nil(t, root.Execute())
	require.Contains(t, out.String(), `\FOO`)
	require.Contains(t, out.String(), "0x2a")
}

func TestEvalCommandReturnsNameValue(t *testing.T) {
	path := buildTestTable(t)
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"eval", "--table", path, "--path", `\FOO`})

	require.Nil(t, root.Execute())
	require.Contains(t, out.String(), "0x2a")
}

func TestLoadCommandReportsHandle(t *testing.T) {
	path := buildTestTable(t)
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"load", "--table", path})

	require.Nil(t, root.Execute())
	require.Contains(t, out.String(), "handle=0")
}
