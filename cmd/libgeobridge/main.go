// Command libgeobridge builds the C surface of geobridge as a shared library:
//
//	go build -buildmode=c-shared -o libgeobridge.so ./cmd/libgeobridge
//
// Every contract violation (a null, unknown or destroyed handle, an index out
// of range, a malformed identifier, calling polygon_new before
// geobridge_set_callbacks) is logged and aborts the process. Nothing is
// reported through return values.
package main

/*
#include <stdint.h>

typedef struct { double x; double y; } geobridge_point;
typedef uint64_t polygon_handle;

typedef int (*geobridge_equals_fn)(geobridge_point, geobridge_point);
typedef char* (*geobridge_uuid_fn)(void);
typedef void (*geobridge_release_fn)(char*);
*/
import "C"

import (
	"os"
	"unsafe"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/geobridge"
	"github.com/wippyai/geobridge/bridge"
	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/ffi"
	"github.com/wippyai/geobridge/geometry"
	"github.com/wippyai/geobridge/internal/cabi"
	"github.com/wippyai/geobridge/resource"
)

var (
	logger   = newLogger()
	registry = ffi.New(nil, ffi.WithLogger(logger))
	boundary = ffi.NewBoundary(registry, cabi.Heap{})
)

func newLogger() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.WarnLevel,
	)
	return zap.New(core).Named("geobridge")
}

// must aborts the process on any contract violation.
func must(err error) {
	if err != nil {
		logger.Fatal("contract violation", zap.Error(err))
	}
}

func coordinate(p C.geobridge_point) geometry.Coordinate {
	return geometry.Coordinate{X: float64(p.x), Y: float64(p.y)}
}

func handle(h C.polygon_handle) resource.Handle {
	return resource.Handle(h)
}

//export average
func average(a, b C.double) C.double {
	return C.double(geometry.Average(float64(a), float64(b)))
}

//export distance_to
func distance_to(a, b C.geobridge_point) C.double {
	return C.double(geometry.Distance(coordinate(a), coordinate(b)))
}

//export geobridge_set_callbacks
func geobridge_set_callbacks(equals C.geobridge_equals_fn, uuid C.geobridge_uuid_fn, release C.geobridge_release_fn) {
	cb, err := cabi.NewCallbacks(unsafe.Pointer(equals), unsafe.Pointer(uuid), unsafe.Pointer(release))
	must(err)
	registry.SetCallbacks(cb)
}

//export polygon_new
func polygon_new() C.polygon_handle {
	h, err := registry.Create()
	must(err)
	return C.polygon_handle(h)
}

//export polygon_free
func polygon_free(h C.polygon_handle) {
	must(registry.Destroy(handle(h)))
}

//export polygon_length
func polygon_length(h C.polygon_handle) C.double {
	length, err := registry.Length(handle(h))
	must(err)
	return C.double(length)
}

//export polygon_points
func polygon_points(h C.polygon_handle, length *C.uint) *C.geobridge_point {
	if length == nil {
		must(errors.NilPointer(errors.PhaseArray, ffi.OpPolygonPoints, "length out-parameter"))
	}
	buf, err := boundary.SnapshotToArray(handle(h))
	must(err)
	*length = C.uint(buf.Len())
	return (*C.geobridge_point)(buf.Ptr())
}

//export free_points
func free_points(points *C.geobridge_point) {
	must(boundary.FreeArray(bridge.Adopt(unsafe.Pointer(points), 0, geobridge.TagCore)))
}

//export polygon_set_points
func polygon_set_points(h C.polygon_handle, points *C.geobridge_point, length C.uint) {
	must(boundary.AssignFromArray(handle(h), unsafe.Pointer(points), int(length)))
}

//export polygon_push
func polygon_push(h C.polygon_handle, point C.geobridge_point) {
	must(registry.Push(handle(h), coordinate(point)))
}

//export polygon_remove
func polygon_remove(h C.polygon_handle, index C.int64_t) {
	must(registry.Remove(handle(h), int64(index)))
}

//export polygon_description
func polygon_description(h C.polygon_handle) *C.char {
	s, err := boundary.DescribeOwned(handle(h))
	must(err)
	return (*C.char)(s.Ptr())
}

//export free_polygon_description
func free_polygon_description(description *C.char) {
	must(boundary.FreeDescription(bridge.AdoptNative(unsafe.Pointer(description), geobridge.TagCore)))
}

//export geobridge_live_handles
func geobridge_live_handles() C.ulong {
	return C.ulong(registry.Live())
}

func main() {}
