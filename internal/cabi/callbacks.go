package cabi

/*
#include <stdlib.h>

typedef struct { double x; double y; } cabi_point;

typedef int (*cabi_equals_fn)(cabi_point, cabi_point);
typedef char* (*cabi_uuid_fn)(void);
typedef void (*cabi_release_fn)(char*);

static int geobridge_call_equals(void* fn, double ax, double ay, double bx, double by) {
	cabi_point a = {ax, ay};
	cabi_point b = {bx, by};
	return ((cabi_equals_fn)fn)(a, b);
}

static char* geobridge_call_uuid(void* fn) {
	return ((cabi_uuid_fn)fn)();
}

// A NULL release function means the host allocated with malloc.
static void geobridge_call_release(void* fn, char* s) {
	if (fn == NULL) {
		free(s);
		return;
	}
	((cabi_release_fn)fn)(s);
}
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/geobridge/bridge"
	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/geometry"
)

// Callbacks calls C function pointers registered by the host.
type Callbacks struct {
	equals  unsafe.Pointer
	uuid    unsafe.Pointer
	release unsafe.Pointer
}

// NewCallbacks wraps the host's function pointers. equals and uuid are
// required; release may be nil, in which case identifier strings are freed
// with free(3).
func NewCallbacks(equals, uuid, release unsafe.Pointer) (*Callbacks, error) {
	const op = "geobridge_set_callbacks"
	if equals == nil {
		return nil, errors.NilPointer(errors.PhaseCallback, op, "values_equal function")
	}
	if uuid == nil {
		return nil, errors.NilPointer(errors.PhaseCallback, op, "generate_identifier function")
	}
	return &Callbacks{equals: equals, uuid: uuid, release: release}, nil
}

// Validate rejects a nil or zero Callbacks.
func (c *Callbacks) Validate() error {
	if c == nil || c.equals == nil || c.uuid == nil {
		return errors.NotInitialized(errors.PhaseCallback, "", "host function pointers")
	}
	return nil
}

func (c *Callbacks) ValuesEqual(a, b geometry.Coordinate) bool {
	return C.geobridge_call_equals(c.equals,
		C.double(a.X), C.double(a.Y),
		C.double(b.X), C.double(b.Y)) != 0
}

func (c *Callbacks) GenerateIdentifier() bridge.ForeignString {
	s := C.geobridge_call_uuid(c.uuid)
	if s == nil {
		return bridge.ForeignString{}
	}
	return bridge.NewForeignString(bridge.CStringBytes(unsafe.Pointer(s)), func() {
		C.geobridge_call_release(c.release, s)
	})
}
