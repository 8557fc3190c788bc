// Package interop is a dynamic implementation of the binding contract. It
// reads an ir.Document at runtime instead of emitting code, and follows
// exactly the rules every generated binding follows:
//
//   - records encode as an ordered mapping from declared field name to
//     encoded value; nested records are mappings too and are never tagged
//   - enums encode as their zero-based member index
//   - records in method signatures (including inside containers) carry the
//     interface's discriminant as a Custom tag
//   - requests are positional argument lists, replies are envelopes
//
// It backs the conformance harness and serves as the reference the
// generated bindings are checked against.
package interop
