// Package amli implements the core of an ACPI Machine Language interpreter:
// a bytecode decoder, a hierarchical named object space, and a two-pass
// evaluator for AML control methods. The package does not perform I/O or
// drive real hardware; all host interaction is routed through the Host
// interface supplied by the embedder.
package amli
