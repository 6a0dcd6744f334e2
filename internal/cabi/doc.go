// Package cabi holds the pieces of the C surface that need cgo definitions:
// a malloc-backed allocator for core-owned blocks and trampolines that call
// the function pointers a C host registers.
//
// Files that export symbols to C may not define C functions, so these live
// here rather than in cmd/libgeobridge.
package cabi
