package geobridge

import "unsafe"

// AllocatorTag identifies which side of the boundary produced a block.
type AllocatorTag uint8

const (
	TagNone AllocatorTag = iota
	TagCore              // allocated by the core, freed through a core entry point
	TagHost              // allocated by the host, released through the host
)

func (t AllocatorTag) String() string {
	switch t {
	case TagCore:
		return "core"
	case TagHost:
		return "host"
	default:
		return "none"
	}
}

// Allocator hands out boundary-visible memory.
type Allocator interface {
	Alloc(size, align uintptr) (unsafe.Pointer, error)
	Free(ptr unsafe.Pointer)
	Tag() AllocatorTag
}
