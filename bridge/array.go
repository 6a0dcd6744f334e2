package bridge

import (
	"unsafe"

	"github.com/wippyai/geobridge"
	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/geometry"
)

const (
	coordinateSize  = unsafe.Sizeof(geometry.Coordinate{})
	coordinateAlign = unsafe.Alignof(geometry.Coordinate{})
)

// TransferBuffer is a block of coordinates owned by whoever holds it.
type TransferBuffer struct {
	ptr unsafe.Pointer
	n   int
	tag geobridge.AllocatorTag
}

// Adopt rebuilds a TransferBuffer from a pointer the host hands back.
// The caller asserts that ptr came from an allocator with the given tag.
func Adopt(ptr unsafe.Pointer, n int, tag geobridge.AllocatorTag) TransferBuffer {
	if ptr == nil {
		return TransferBuffer{tag: tag}
	}
	return TransferBuffer{ptr: ptr, n: n, tag: tag}
}

func (b TransferBuffer) Ptr() unsafe.Pointer         { return b.ptr }
func (b TransferBuffer) Len() int                    { return b.n }
func (b TransferBuffer) Tag() geobridge.AllocatorTag { return b.tag }
func (b TransferBuffer) IsNull() bool                { return b.ptr == nil }

// Coordinates returns a view of the buffer. The view is invalid after FreeArray.
func (b TransferBuffer) Coordinates() []geometry.Coordinate {
	if b.ptr == nil || b.n == 0 {
		return nil
	}
	return unsafe.Slice((*geometry.Coordinate)(b.ptr), b.n)
}

// Snapshot copies points into a fresh block from alloc.
// An empty sequence yields a null buffer and no allocation.
func Snapshot(alloc geobridge.Allocator, points []geometry.Coordinate) (TransferBuffer, error) {
	if len(points) == 0 {
		return TransferBuffer{tag: alloc.Tag()}, nil
	}

	size := uintptr(len(points)) * coordinateSize
	ptr, err := alloc.Alloc(size, coordinateAlign)
	if err != nil {
		return TransferBuffer{}, errors.New(errors.PhaseArray, errors.KindAllocation).
			Detail("snapshot of %d points", len(points)).
			Cause(err).
			Build()
	}
	if ptr == nil {
		return TransferBuffer{}, errors.AllocationFailed(errors.PhaseArray, size, coordinateAlign)
	}

	copy(unsafe.Slice((*geometry.Coordinate)(ptr), len(points)), points)
	return TransferBuffer{ptr: ptr, n: len(points), tag: alloc.Tag()}, nil
}

// FreeArray releases a buffer produced by Snapshot with the same allocator.
func FreeArray(alloc geobridge.Allocator, b TransferBuffer) error {
	if b.ptr == nil {
		return nil
	}
	if b.tag != alloc.Tag() {
		return errors.AllocatorMismatch(errors.PhaseArray, "", alloc.Tag(), b.tag)
	}
	alloc.Free(b.ptr)
	return nil
}

// CopyIn copies n coordinates out of a borrowed buffer. Ownership of ptr
// stays with the caller.
func CopyIn(ptr unsafe.Pointer, n int) ([]geometry.Coordinate, error) {
	if n < 0 {
		return nil, errors.InvalidInput(errors.PhaseArray, "negative element count")
	}
	if n == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, errors.NilPointer(errors.PhaseArray, "", "points buffer")
	}

	out := make([]geometry.Coordinate, n)
	copy(out, unsafe.Slice((*geometry.Coordinate)(ptr), n))
	return out, nil
}
