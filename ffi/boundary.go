package ffi

import (
	"unsafe"

	"github.com/wippyai/geobridge"
	"github.com/wippyai/geobridge/bridge"
	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/resource"
)

// Boundary is the pointer-level surface over a Registry. Blocks it returns
// come from alloc and must be handed back to the matching Free method.
type Boundary struct {
	reg   *Registry
	alloc geobridge.Allocator
}

func NewBoundary(reg *Registry, alloc geobridge.Allocator) *Boundary {
	return &Boundary{reg: reg, alloc: alloc}
}

func (b *Boundary) Registry() *Registry             { return b.reg }
func (b *Boundary) Allocator() geobridge.Allocator { return b.alloc }

// SnapshotToArray copies the polygon's points into a new block owned by the
// caller. An empty polygon yields a null buffer.
func (b *Boundary) SnapshotToArray(h resource.Handle) (bridge.TransferBuffer, error) {
	p, err := b.reg.lookup(OpPolygonPoints, h)
	if err != nil {
		return bridge.TransferBuffer{}, err
	}
	buf, err := bridge.Snapshot(b.alloc, p.View())
	return buf, errors.WithOp(err, OpPolygonPoints)
}

// FreeArray releases a buffer from SnapshotToArray. A null buffer is a no-op.
func (b *Boundary) FreeArray(buf bridge.TransferBuffer) error {
	return errors.WithOp(bridge.FreeArray(b.alloc, buf), OpFreePoints)
}

// AssignFromArray replaces the polygon's points with a copy of n coordinates
// at ptr. The buffer stays owned by the caller.
func (b *Boundary) AssignFromArray(h resource.Handle, ptr unsafe.Pointer, n int) error {
	p, err := b.reg.lookup(OpPolygonSetPoints, h)
	if err != nil {
		return err
	}
	points, err := bridge.CopyIn(ptr, n)
	if err != nil {
		return errors.WithOp(err, OpPolygonSetPoints)
	}
	p.SetPoints(points)
	return nil
}

// DescribeOwned returns the description as a NUL-terminated string owned by
// the caller.
func (b *Boundary) DescribeOwned(h resource.Handle) (bridge.NativeString, error) {
	text, err := b.reg.Describe(h)
	if err != nil {
		return bridge.NativeString{}, err
	}
	s, err := bridge.NewNativeString(b.alloc, text)
	return s, errors.WithOp(err, OpPolygonDescription)
}

// FreeDescription releases a string from DescribeOwned. A null string is a no-op.
func (b *Boundary) FreeDescription(s bridge.NativeString) error {
	return errors.WithOp(bridge.FreeNativeString(b.alloc, s), OpFreeDescription)
}
