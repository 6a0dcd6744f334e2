package ffi

import (
	stderrors "errors"
	"math"
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/geobridge"
	"github.com/wippyai/geobridge/bridge"
	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/geometry"
	"github.com/wippyai/geobridge/host"
	"github.com/wippyai/geobridge/resource"
)

func kindOf(t *testing.T, err error) errors.Kind {
	t.Helper()
	var e *errors.Error
	require.True(t, stderrors.As(err, &e), "expected *errors.Error, got %T: %v", err, err)
	return e.Kind
}

func opOf(t *testing.T, err error) string {
	t.Helper()
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	return e.Op
}

func pts(xy ...float64) []geometry.Coordinate {
	out := make([]geometry.Coordinate, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, geometry.Coordinate{X: xy[i], Y: xy[i+1]})
	}
	return out
}

func TestRegistry_Lifecycle(t *testing.T) {
	h := host.Local()
	reg := New(h)

	ph, err := reg.Create()
	require.NoError(t, err)
	require.NotZero(t, ph)
	assert.Equal(t, 1, reg.Live())
	assert.Equal(t, 0, h.Outstanding(), "identifier must be released during create")

	require.NoError(t, reg.Push(ph, geometry.Coordinate{X: 0, Y: 0}))
	require.NoError(t, reg.Push(ph, geometry.Coordinate{X: 3, Y: 4}))

	length, err := reg.Length(ph)
	require.NoError(t, err)
	assert.Equal(t, 5.0, length)

	desc, err := reg.Describe(ph)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(desc, "containing 2 points (opened)"), desc)

	require.NoError(t, reg.Destroy(ph))
	assert.Equal(t, 0, reg.Live())
}

func TestRegistry_DoubleDestroy(t *testing.T) {
	reg := New(host.Local())
	ph, err := reg.Create()
	require.NoError(t, err)

	require.NoError(t, reg.Destroy(ph))
	err = reg.Destroy(ph)
	require.Error(t, err)
	assert.Equal(t, errors.KindHandleClosed, kindOf(t, err))
	assert.Equal(t, OpPolygonFree, opOf(t, err))
}

func TestRegistry_InvalidHandles(t *testing.T) {
	reg := New(host.Local())

	closed, err := reg.Create()
	require.NoError(t, err)
	require.NoError(t, reg.Destroy(closed))

	tests := []struct {
		name   string
		handle resource.Handle
		kind   errors.Kind
	}{
		{"zero", 0, errors.KindInvalidHandle},
		{"never issued", resource.Handle(0xdead), errors.KindInvalidHandle},
		{"destroyed", closed, errors.KindHandleClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, lengthErr := reg.Length(tt.handle)
			_, pointsErr := reg.Points(tt.handle)
			_, describeErr := reg.Describe(tt.handle)
			calls := map[string]error{
				OpPolygonFree:        reg.Destroy(tt.handle),
				OpPolygonPush:        reg.Push(tt.handle, geometry.Coordinate{}),
				OpPolygonRemove:      reg.Remove(tt.handle, 0),
				OpPolygonSetPoints:   reg.SetPoints(tt.handle, nil),
				OpPolygonLength:      lengthErr,
				OpPolygonPoints:      pointsErr,
				OpPolygonDescription: describeErr,
			}
			for op, err := range calls {
				require.Error(t, err, op)
				assert.Equal(t, tt.kind, kindOf(t, err), op)
				assert.Equal(t, op, opOf(t, err))
			}
		})
	}
}

func TestRegistry_StaleHandleAfterReuse(t *testing.T) {
	reg := New(host.Local())

	first, err := reg.Create()
	require.NoError(t, err)
	require.NoError(t, reg.Destroy(first))

	next, err := reg.Create()
	require.NoError(t, err)
	require.NotEqual(t, first, next)

	err = reg.Push(first, geometry.Coordinate{X: 1})
	assert.Equal(t, errors.KindHandleClosed, kindOf(t, err))

	n, err := reg.Points(next)
	require.NoError(t, err)
	assert.Empty(t, n, "stale handle must not reach the new polygon")
}

func TestRegistry_Remove(t *testing.T) {
	reg := New(host.Local())
	ph, err := reg.Create()
	require.NoError(t, err)
	require.NoError(t, reg.SetPoints(ph, pts(0, 0, 1, 1, 2, 2)))

	for _, idx := range []int64{-1, 3} {
		err := reg.Remove(ph, idx)
		require.Error(t, err)
		assert.Equal(t, errors.KindOutOfBounds, kindOf(t, err))
	}

	require.NoError(t, reg.Remove(ph, 0))
	got, err := reg.Points(ph)
	require.NoError(t, err)
	assert.Equal(t, pts(1, 1, 2, 2), got)
}

func TestRegistry_InvalidIdentifier(t *testing.T) {
	h := host.Local(host.WithIdentifierSource(func() string { return "not-a-uuid" }))
	reg := New(h)

	ph, err := reg.Create()
	require.Error(t, err)
	assert.Zero(t, ph)
	assert.Equal(t, errors.KindInvalidIdentifier, kindOf(t, err))
	assert.Equal(t, OpPolygonNew, opOf(t, err))
	assert.Equal(t, 0, h.Outstanding(), "malformed identifier must still be released")
	assert.Equal(t, 0, reg.Live())
}

func TestRegistry_NoCallbacks(t *testing.T) {
	reg := New(nil)

	_, err := reg.Create()
	require.Error(t, err)
	assert.Equal(t, errors.KindNotInitialized, kindOf(t, err))

	reg.SetCallbacks(host.Local())
	ph, err := reg.Create()
	require.NoError(t, err)

	reg.SetCallbacks(nil)
	_, err = reg.Describe(ph)
	assert.Equal(t, errors.KindNotInitialized, kindOf(t, err))

	var typedNil *host.LocalHost
	reg.SetCallbacks(typedNil)
	_, err = reg.Create()
	assert.Equal(t, errors.KindNotInitialized, kindOf(t, err))
}

func TestRegistry_CallbacksArePerRegistry(t *testing.T) {
	calls := 0
	cb := host.Funcs{
		Equal: func(a, b geometry.Coordinate) bool {
			calls++
			return true
		},
		Identify: host.Local().GenerateIdentifier,
	}
	reg := New(cb)
	ph, err := reg.Create()
	require.NoError(t, err)
	require.NoError(t, reg.SetPoints(ph, pts(0, 0, 5, 5)))

	desc, err := reg.Describe(ph)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, desc, "(closed)")
}

func TestRegistry_CloseReportsLeaks(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reg := New(host.Local(), WithLogger(zap.New(core)))

	ph, err := reg.Create()
	require.NoError(t, err)
	leaked, err := reg.Create()
	require.NoError(t, err)
	require.NoError(t, reg.Destroy(ph))

	assert.Equal(t, 1, logs.FilterMessage("polygon destroyed").Len())
	assert.Equal(t, 2, logs.FilterMessage("polygon created").Len())

	require.NoError(t, reg.Close())
	warn := logs.FilterMessage("closing registry with live polygons").All()
	require.Len(t, warn, 1)
	assert.Equal(t, int64(1), warn[0].ContextMap()["count"])
	assert.Equal(t, 2, logs.FilterMessage("polygon destroyed").Len(), "close drops the leaked polygon")

	_, err = reg.Create()
	assert.Equal(t, errors.KindNotInitialized, kindOf(t, err))
	_, err = reg.Length(leaked)
	assert.Equal(t, errors.KindHandleClosed, kindOf(t, err))
	assert.Equal(t, errors.KindHandleClosed, kindOf(t, reg.Destroy(leaked)))
}

func TestBoundary_SnapshotAssignRoundTrip(t *testing.T) {
	heap := bridge.NewGoHeap()
	reg := New(host.Local())
	b := NewBoundary(reg, heap)

	src, err := reg.Create()
	require.NoError(t, err)
	want := pts(0, 0, 1, 0, 1, 1, 0, 0)
	require.NoError(t, reg.SetPoints(src, want))

	buf, err := b.SnapshotToArray(src)
	require.NoError(t, err)
	require.Equal(t, 4, buf.Len())
	assert.Equal(t, geobridge.TagCore, buf.Tag())

	dst, err := reg.Create()
	require.NoError(t, err)
	require.NoError(t, b.AssignFromArray(dst, buf.Ptr(), buf.Len()))
	require.NoError(t, b.FreeArray(buf))

	got, err := reg.Points(dst)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	length, err := reg.Length(dst)
	require.NoError(t, err)
	assert.InDelta(t, 2+math.Sqrt2, length, 1e-12)

	desc, err := b.DescribeOwned(dst)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(desc.String(), "containing 4 points (closed)"), desc.String())
	require.NoError(t, b.FreeDescription(desc))

	assert.Equal(t, 0, heap.Live(), "every core block must be freed")
	assert.Zero(t, heap.Stats().BadFrees)
}

func TestBoundary_EmptyAndNull(t *testing.T) {
	heap := bridge.NewGoHeap()
	b := NewBoundary(New(host.Local()), heap)

	ph, err := b.Registry().Create()
	require.NoError(t, err)

	buf, err := b.SnapshotToArray(ph)
	require.NoError(t, err)
	assert.True(t, buf.IsNull())
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 0, heap.Stats().Allocs)

	assert.NoError(t, b.FreeArray(buf))
	assert.NoError(t, b.FreeArray(bridge.TransferBuffer{}))
	assert.NoError(t, b.FreeDescription(bridge.NativeString{}))

	require.NoError(t, b.AssignFromArray(ph, nil, 0))

	err = b.AssignFromArray(ph, nil, 2)
	require.Error(t, err)
	assert.Equal(t, errors.KindNilPointer, kindOf(t, err))
	assert.Equal(t, OpPolygonSetPoints, opOf(t, err))
}

func TestBoundary_AssignDoesNotTakeOwnership(t *testing.T) {
	b := NewBoundary(New(host.Local()), bridge.NewGoHeap())
	ph, err := b.Registry().Create()
	require.NoError(t, err)

	src := pts(1, 2, 3, 4)
	require.NoError(t, b.AssignFromArray(ph, unsafe.Pointer(&src[0]), len(src)))
	src[0].X = 100

	got, err := b.Registry().Points(ph)
	require.NoError(t, err)
	assert.Equal(t, pts(1, 2, 3, 4), got)
}

func TestBoundary_AllocatorMismatch(t *testing.T) {
	core := bridge.NewGoHeap()
	other := bridge.NewHostHeap()
	reg := New(host.Local())
	a := NewBoundary(reg, core)
	foreign := NewBoundary(reg, other)

	ph, err := reg.Create()
	require.NoError(t, err)
	require.NoError(t, reg.Push(ph, geometry.Coordinate{X: 1, Y: 1}))

	buf, err := a.SnapshotToArray(ph)
	require.NoError(t, err)

	err = foreign.FreeArray(buf)
	require.Error(t, err)
	assert.Equal(t, errors.KindAllocatorMismatch, kindOf(t, err))
	assert.Equal(t, OpFreePoints, opOf(t, err))

	desc, err := a.DescribeOwned(ph)
	require.NoError(t, err)
	err = foreign.FreeDescription(desc)
	assert.Equal(t, errors.KindAllocatorMismatch, kindOf(t, err))
	assert.Equal(t, OpFreeDescription, opOf(t, err))

	require.NoError(t, a.FreeArray(buf))
	require.NoError(t, a.FreeDescription(desc))
	assert.Equal(t, 0, core.Live())
}

func TestBoundary_ClosedHandle(t *testing.T) {
	b := NewBoundary(New(host.Local()), bridge.NewGoHeap())
	ph, err := b.Registry().Create()
	require.NoError(t, err)
	require.NoError(t, b.Registry().Destroy(ph))

	_, err = b.SnapshotToArray(ph)
	assert.Equal(t, errors.KindHandleClosed, kindOf(t, err))
	_, err = b.DescribeOwned(ph)
	assert.Equal(t, errors.KindHandleClosed, kindOf(t, err))
	err = b.AssignFromArray(ph, nil, 0)
	assert.Equal(t, errors.KindHandleClosed, kindOf(t, err))
}
