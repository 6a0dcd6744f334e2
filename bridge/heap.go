package bridge

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/wippyai/geobridge"
)

const maxHeapAlign = 8

// GoHeap is an Allocator backed by the Go heap. Blocks stay reachable until
// Free, so their addresses can be handed around like malloc'd memory.
// It keeps counters so tests and the scripted host can check for leaks.
type GoHeap struct {
	blocks map[unsafe.Pointer][]uint64
	stats  HeapStats
	mu     sync.Mutex
	tag    geobridge.AllocatorTag
}

// HeapStats counts what a GoHeap has handed out and taken back.
type HeapStats struct {
	Allocs    int
	Frees     int
	BadFrees  int
	LiveBytes uintptr
}

// NewGoHeap returns a heap that plays the core's allocator.
func NewGoHeap() *GoHeap {
	return newGoHeap(geobridge.TagCore)
}

// NewHostHeap returns a heap that plays the host's allocator, the one that
// produces identifier strings.
func NewHostHeap() *GoHeap {
	return newGoHeap(geobridge.TagHost)
}

func newGoHeap(tag geobridge.AllocatorTag) *GoHeap {
	return &GoHeap{
		blocks: make(map[unsafe.Pointer][]uint64),
		tag:    tag,
	}
}

func (h *GoHeap) Tag() geobridge.AllocatorTag { return h.tag }

// Alloc returns a zeroed block of at least size bytes aligned to align.
func (h *GoHeap) Alloc(size, align uintptr) (unsafe.Pointer, error) {
	if align > maxHeapAlign {
		return nil, fmt.Errorf("alignment %d exceeds %d", align, maxHeapAlign)
	}
	words := (size + 7) / 8
	if words == 0 {
		words = 1
	}
	block := make([]uint64, words)
	ptr := unsafe.Pointer(&block[0])

	h.mu.Lock()
	h.blocks[ptr] = block
	h.stats.Allocs++
	h.stats.LiveBytes += words * 8
	h.mu.Unlock()
	return ptr, nil
}

// Free releases a block. Unknown pointers are counted in BadFrees and ignored.
func (h *GoHeap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	block, ok := h.blocks[ptr]
	if !ok {
		h.stats.BadFrees++
		return
	}
	delete(h.blocks, ptr)
	h.stats.Frees++
	h.stats.LiveBytes -= uintptr(len(block)) * 8
}

// Owns reports whether ptr is a live block of this heap.
func (h *GoHeap) Owns(ptr unsafe.Pointer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.blocks[ptr]
	return ok
}

// Live returns the number of blocks not yet freed.
func (h *GoHeap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blocks)
}

func (h *GoHeap) Stats() HeapStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// Strdup copies s plus a NUL into a new block, like the C function.
func (h *GoHeap) Strdup(s string) (unsafe.Pointer, error) {
	ptr, err := h.Alloc(uintptr(len(s)+1), 1)
	if err != nil {
		return nil, err
	}
	copy(unsafe.Slice((*byte)(ptr), len(s)), s)
	return ptr, nil
}
