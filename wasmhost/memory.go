package wasmhost

import (
	"bytes"
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/geometry"
)

// coordinateSize is the size of a geometry.Coordinate in guest memory: two
// little-endian f64 values.
const (
	coordinateSize  = 16
	coordinateAlign = 8
)

// Memory adapts a guest's exported linear memory.
type Memory struct {
	Mem api.Memory
}

// WrapMemory returns nil for a nil memory.
func WrapMemory(mem api.Memory) *Memory {
	if mem == nil {
		return nil
	}
	return &Memory{Mem: mem}
}

func readError(offset, length uint32) error {
	return errors.New(errors.PhaseGuest, errors.KindOutOfBounds).
		Detail("memory read out of bounds: offset=%d, length=%d", offset, length).
		Build()
}

func writeError(offset uint32, length int) error {
	return errors.New(errors.PhaseGuest, errors.KindOutOfBounds).
		Detail("memory write out of bounds: offset=%d, length=%d", offset, length).
		Build()
}

// Read returns a view of guest memory. The view is invalidated by memory growth.
func (m *Memory) Read(offset, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, readError(offset, length)
	}
	return data, nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return writeError(offset, len(data))
	}
	return nil
}

func (m *Memory) WriteU32(offset, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return writeError(offset, 4)
	}
	return nil
}

// ReadCString returns a view of the NUL-terminated bytes at offset, without
// the NUL. A string that runs off the end of memory is an error.
func (m *Memory) ReadCString(offset uint32) ([]byte, error) {
	size := m.Mem.Size()
	if offset >= size {
		return nil, readError(offset, 1)
	}
	tail, ok := m.Mem.Read(offset, size-offset)
	if !ok {
		return nil, readError(offset, size-offset)
	}
	n := bytes.IndexByte(tail, 0)
	if n < 0 {
		return nil, errors.New(errors.PhaseGuest, errors.KindOutOfBounds).
			Detail("string at %d is not terminated", offset).
			Build()
	}
	return tail[:n], nil
}

// ReadCoordinates copies n coordinates out of guest memory.
func (m *Memory) ReadCoordinates(offset uint32, n uint32) ([]geometry.Coordinate, error) {
	if n == 0 {
		return nil, nil
	}
	size := uint64(n) * coordinateSize
	if size > uint64(m.Mem.Size()) {
		return nil, readError(offset, uint32(min(size, uint64(^uint32(0)))))
	}
	if _, ok := m.Mem.Read(offset, uint32(size)); !ok {
		return nil, readError(offset, uint32(size))
	}
	out := make([]geometry.Coordinate, n)
	for i := range out {
		base := offset + uint32(i)*coordinateSize
		x, _ := m.Mem.ReadFloat64Le(base)
		y, _ := m.Mem.ReadFloat64Le(base + 8)
		out[i] = geometry.Coordinate{X: x, Y: y}
	}
	return out, nil
}

// WriteCoordinates stores points at offset in the Coordinate layout.
func (m *Memory) WriteCoordinates(offset uint32, points []geometry.Coordinate) error {
	for i, c := range points {
		base := offset + uint32(i)*coordinateSize
		if !m.Mem.WriteFloat64Le(base, c.X) || !m.Mem.WriteFloat64Le(base+8, c.Y) {
			return writeError(base, coordinateSize)
		}
	}
	return nil
}

// GuestAllocator borrows the guest's alloc and dealloc exports to place
// core-owned blocks in guest memory.
type GuestAllocator struct {
	Ctx     context.Context
	Alloc   api.Function
	Dealloc api.Function
}

// Allocate returns the offset of a new block of size bytes.
func (a *GuestAllocator) Allocate(size, align uint32) (uint32, error) {
	results, err := a.Alloc.Call(a.Ctx, uint64(size), uint64(align))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseGuest, errors.KindAllocation, err, "guest alloc trapped")
	}
	if len(results) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseGuest, uintptr(size), uintptr(align))
	}
	ptr := api.DecodeU32(results[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseGuest, uintptr(size), uintptr(align))
	}
	return ptr, nil
}

// Free hands a block back to the guest with the size and alignment it was
// allocated with.
func (a *GuestAllocator) Free(ptr, size, align uint32) error {
	if _, err := a.Dealloc.Call(a.Ctx, uint64(ptr), uint64(size), uint64(align)); err != nil {
		return errors.Wrap(errors.PhaseGuest, errors.KindAllocation, err, "guest dealloc trapped")
	}
	return nil
}
