package cabi

/*
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/wippyai/geobridge"
)

// malloc guarantees alignment for any fundamental type.
const maxAlign = 16

// Heap is the C heap. Blocks it returns can be freed by C code with free(3),
// but the C surface asks hosts to use the matching geobridge free function.
type Heap struct{}

func (Heap) Tag() geobridge.AllocatorTag { return geobridge.TagCore }

func (Heap) Alloc(size, align uintptr) (unsafe.Pointer, error) {
	if align > maxAlign {
		return nil, fmt.Errorf("alignment %d exceeds malloc guarantee %d", align, maxAlign)
	}
	if size == 0 {
		size = 1
	}
	p := C.malloc(C.size_t(size))
	if p == nil {
		return nil, fmt.Errorf("malloc(%d) failed", size)
	}
	return p, nil
}

func (Heap) Free(ptr unsafe.Pointer) {
	C.free(ptr)
}

// CString copies s into the C heap. The caller frees it with Heap.Free.
func CString(s string) unsafe.Pointer {
	return unsafe.Pointer(C.CString(s))
}
