// Package geobridge is a polygon geometry core that crosses a foreign
// boundary with explicit memory ownership.
//
// The core hands opaque handles, fixed-layout value structs, owned arrays and
// owned strings to a host runtime, and consumes two functions supplied by that
// host. Every allocation that crosses the boundary has exactly one owner, and
// every allocating entry point has a matching free.
//
// # Architecture Overview
//
//	geobridge/           Root package with the Allocator interface and tags
//	├── geometry/        Coordinate value type, distance, average, path length
//	├── polygon/         Polygon aggregate (points + immutable identifier)
//	├── bridge/          Transfer buffers, native and foreign strings, Go heap
//	├── host/            Callback capability supplied by the host
//	├── resource/        Generation-tagged handle table
//	├── ffi/             Flat handle surface (Registry, Boundary)
//	├── wasmhost/        The same surface offered to WebAssembly guests
//	├── errors/          Structured error types
//	├── internal/cabi/   C heap and callback trampolines (cgo)
//	└── cmd/
//	    ├── libgeobridge/  c-shared library exporting the C surface
//	    └── geobridge/     scripted host and interactive TUI
//
// # Ownership Rules
//
//	Value        Direction      Owner after the call   Released by
//	──────────────────────────────────────────────────────────────────
//	Coordinate   both           copied                 nobody
//	handle       core → host    host                   polygon_free
//	point array  core → host    host                   free_points
//	point array  host → core    host (borrowed)        host
//	description  core → host    host                   free_polygon_description
//	identifier   host → core    core copies it         host release, same call
//
// # Quick Start
//
//	heap := bridge.NewGoHeap()
//	reg := ffi.New(host.Local())
//	b := ffi.NewBoundary(reg, heap)
//
//	h, err := reg.Create()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Destroy(h)
//
//	reg.Push(h, geometry.Coordinate{X: 0, Y: 0})
//	reg.Push(h, geometry.Coordinate{X: 3, Y: 4})
//
//	desc, _ := b.DescribeOwned(h)
//	fmt.Println(desc.String()) // Polygon ... containing 2 points (opened)
//	b.FreeDescription(desc)
//
// # Thread Safety
//
// Entities are not synchronised. A handle must not be used from two goroutines
// (or host threads) at once; different handles may be used concurrently.
package geobridge
