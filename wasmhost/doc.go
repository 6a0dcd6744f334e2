// Package wasmhost offers the polygon surface to WebAssembly guests through
// wazero.
//
// The host module is named "geobridge" and exports the same entry points as
// the C library with flattened signatures: handles are i64, guest pointers
// are i32, coordinates are passed as two f64 values.
//
// A guest must export:
//
//	memory                                   linear memory
//	alloc(size, align i32) i32               allocator the core borrows
//	dealloc(ptr, size, align i32)
//	values_equal(ax, ay, bx, by f64) i32
//	generate_identifier() i32                NUL-terminated, guest-owned
//	release_string(ptr i32)                  releases that identifier
//
// Arrays and descriptions the core returns live in guest memory, allocated
// through alloc, and are recorded in a per-guest ledger until the guest hands
// them back to free_points or free_polygon_description. Each guest gets its
// own handle registry.
//
// Misuse (a bad handle, an out-of-range index, freeing a block the ledger
// does not hold) panics inside the host function, which wazero reports to the
// caller as a trap.
package wasmhost
