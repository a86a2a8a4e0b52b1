// Command amldump is the one host-side program this module ships
// alongside the library, per SPEC_FULL.md §A: load an AML table blob,
// print the resulting namespace, and optionally invoke a method by path —
// the hosted equivalent of original_source/examples/runtest/runtest_host.c.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dro/amli-sub001"
	"github.com/dro/amli-sub001/internal/amlitest"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "amldump",
		Short: "Load and inspect ACPI Machine Language tables",
	}
	root.AddCommand(newLoadCmd(), newDumpCmd(), newEvalCmd())
	return root
}

// loadOptions are shared by every subcommand: a table file, an optional
// initial-device-init pass, and whether to back the Host with the
// in-package fake rather than failing on any real I/O opcode.
type loadOptions struct {
	tablePath   string
	fakeHost    bool
	initDevices bool
}

func addLoadFlags(cmd *cobra.Command, opts *loadOptions) {
	cmd.Flags().StringVarP(&opts.tablePath, "table", "t", "", "path to a raw ACPI table blob (required)")
	cmd.Flags().BoolVar(&opts.fakeHost, "fake-host", true, "back Host with the deterministic in-memory double (internal/amlitest)")
	cmd.Flags().BoolVar(&opts.initDevices, "init-devices", false, "run _INI/_STA across every Device after loading")
	cmd.MarkFlagRequired("table")
}

func openState(opts loadOptions) (*amli.State, []byte, error) {
	data, err := os.ReadFile(opts.tablePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read table: %w", err)
	}
	var host amli.Host
	if opts.fakeHost {
		h := amlitest.New()
		h.Log = os.Stderr
		host = h
	}
	st := amli.NewState(host, amli.DefaultLimits())
	return st, data, nil
}

func newLoadCmd() *cobra.Command {
	var opts loadOptions
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a table and report its handle, or any decode error",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, data, err := openState(opts)
			if err != nil {
				return err
			}
			defer st.Free()
			handle, lerr := st.LoadTable(data)
			if lerr != nil {
				return fmt.Errorf("load table: %s: %s", lerr.Module, lerr.Message)
			}
			if err := st.CompleteInitialLoad(opts.initDevices); err != nil {
				return fmt.Errorf("complete initial load: %s: %s", err.Module, err.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded table handle=%d\n", handle)
			return nil
		},
	}
	addLoadFlags(cmd, &opts)
	return cmd
}

func newDumpCmd() *cobra.Command {
	var opts loadOptions
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Load a table and print the resulting namespace tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, data, err := openState(opts)
			if err != nil {
				return err
			}
			defer st.Free()
			if _, lerr := st.LoadTable(data); lerr != nil {
				return fmt.Errorf("load table: %s: %s", lerr.Module, lerr.Message)
			}
			if err := st.CompleteInitialLoad(opts.initDevices); err != nil {
				return fmt.Errorf("complete initial load: %s: %s", err.Module, err.Message)
			}
			out := cmd.OutOrStdout()
			st.Walk(func(n *amli.NamespaceNode) {
				fmt.Fprintln(out, describeNode(n))
			})
			return nil
		},
	}
	addLoadFlags(cmd, &opts)
	return cmd
}

func describeNode(n *amli.NamespaceNode) string {
	obj := n.Object()
	switch obj.Kind {
	case amli.ObjName:
		return fmt.Sprintf("%s  [Name] %s", n.AbsolutePath(), describeValue(obj.Value()))
	case amli.ObjMethod:
		return fmt.Sprintf("%s  [Method]", n.AbsolutePath())
	case amli.ObjDevice:
		return fmt.Sprintf("%s  [Device]", n.AbsolutePath())
	case amli.ObjThermalZone:
		return fmt.Sprintf("%s  [ThermalZone]", n.AbsolutePath())
	case amli.ObjProcessor:
		return fmt.Sprintf("%s  [Processor]", n.AbsolutePath())
	case amli.ObjPowerResource:
		return fmt.Sprintf("%s  [PowerResource]", n.AbsolutePath())
	case amli.ObjOperationRegion:
		return fmt.Sprintf("%s  [OperationRegion]", n.AbsolutePath())
	case amli.ObjField:
		return fmt.Sprintf("%s  [Field]", n.AbsolutePath())
	case amli.ObjIndexField:
		return fmt.Sprintf("%s  [IndexField]", n.AbsolutePath())
	case amli.ObjBankField:
		return fmt.Sprintf("%s  [BankField]", n.AbsolutePath())
	case amli.ObjBufferField:
		return fmt.Sprintf("%s  [BufferField]", n.AbsolutePath())
	case amli.ObjMutex:
		return fmt.Sprintf("%s  [Mutex]", n.AbsolutePath())
	case amli.ObjEvent:
		return fmt.Sprintf("%s  [Event]", n.AbsolutePath())
	case amli.ObjAlias:
		return fmt.Sprintf("%s  [Alias]", n.AbsolutePath())
	default:
		return fmt.Sprintf("%s  [Scope]", n.AbsolutePath())
	}
}

func describeValue(v amli.Value) string {
	if i, ok := v.Integer(); ok {
		return fmt.Sprintf("0x%x", i)
	}
	if s, ok := v.String_(); ok {
		return fmt.Sprintf("%q", s)
	}
	if b, ok := v.Bytes(); ok {
		return fmt.Sprintf("buf[%d]", len(b))
	}
	if elems, ok := v.Elements(); ok {
		return fmt.Sprintf("pkg[%d]", len(elems))
	}
	return "<uninitialized>"
}

func newEvalCmd() *cobra.Command {
	var opts loadOptions
	var path string
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Load a table and invoke one method by absolute path",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, data, err := openState(opts)
			if err != nil {
				return err
			}
			defer st.Free()
			if _, lerr := st.LoadTable(data); lerr != nil {
				return fmt.Errorf("load table: %s: %s", lerr.Module, lerr.Message)
			}
			if err := st.CompleteInitialLoad(opts.initDevices); err != nil {
				return fmt.Errorf("complete initial load: %s: %s", err.Module, err.Message)
			}
			v, eerr := st.EvaluateByPath(path, nil)
			if eerr != nil {
				return fmt.Errorf("evaluate %s: %s: %s", path, eerr.Module, eerr.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), describeValue(v))
			return nil
		},
	}
	addLoadFlags(cmd, &opts)
	cmd.Flags().StringVar(&path, "path", `\_SB`, "absolute or scope-relative object path to evaluate")
	return cmd
}
