// Package bridge moves coordinate arrays and strings across the boundary.
//
// Everything that leaves the core is copied into a block obtained from a
// geobridge.Allocator and described by a value that remembers which
// allocator produced it:
//
//	TransferBuffer   coordinates, core → host, freed by FreeArray
//	NativeString     NUL-terminated text, core → host, freed by FreeNativeString
//	ForeignString    NUL-terminated text, host → core, released by Ingest
//
// NativeString and ForeignString are distinct types so a host string can never
// be handed to the core's free, and a core string never to the host's release.
//
// # Empty Arrays
//
// Snapshot of an empty sequence returns a null buffer with length zero and
// allocates nothing. FreeArray and FreeNativeString treat null as a no-op.
//
// # Misuse
//
// The C surface passes bare pointers back to the core, so freeing the same
// buffer twice, or a buffer that did not come from Snapshot, cannot be
// detected there and is undefined. Callers must free each block exactly once.
// When the allocator tag is known (Go callers, the wasm ledger) a block freed
// through the wrong allocator is rejected with KindAllocatorMismatch.
package bridge
