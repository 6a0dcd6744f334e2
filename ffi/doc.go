// Package ffi is the flat surface hosts call: opaque handles in, values and
// owned buffers out.
//
// Registry maps handles to polygons and rejects zero, unknown and destroyed
// handles with structured errors. Boundary adds the pointer-level entry
// points on top of a Registry and one Allocator: snapshots handed to the
// host, borrowed arrays copied in, and descriptions returned as NUL-terminated
// strings. Every allocating entry point has a matching Free on the same
// Boundary.
//
// Errors are returned, never raised. The C and WebAssembly surfaces decide
// how to escalate them.
package ffi
