package host

import (
	"math"

	"github.com/google/uuid"

	"github.com/wippyai/geobridge/bridge"
	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/geometry"
)

// LocalHost is an in-process host. Identifier strings are produced in its
// own heap, the way a C host would strdup them, and released back to it.
type LocalHost struct {
	heap     *bridge.GoHeap
	identify func() string
	epsilon  float64
}

// Option configures a LocalHost.
type Option func(*LocalHost)

// WithIdentifierSource replaces the default uuid.NewString generator.
func WithIdentifierSource(fn func() string) Option {
	return func(l *LocalHost) {
		l.identify = fn
	}
}

// WithTolerance makes ValuesEqual accept coordinates within eps on both axes.
func WithTolerance(eps float64) Option {
	return func(l *LocalHost) {
		l.epsilon = eps
	}
}

// Local creates an in-process host with exact equality and random v4 identifiers.
func Local(opts ...Option) *LocalHost {
	l := &LocalHost{
		heap:     bridge.NewHostHeap(),
		identify: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Heap returns the heap identifier strings are allocated in.
func (l *LocalHost) Heap() *bridge.GoHeap {
	return l.heap
}

func (l *LocalHost) ValuesEqual(a, b geometry.Coordinate) bool {
	if l.epsilon == 0 {
		return a.X == b.X && a.Y == b.Y
	}
	return math.Abs(a.X-b.X) <= l.epsilon && math.Abs(a.Y-b.Y) <= l.epsilon
}

func (l *LocalHost) GenerateIdentifier() bridge.ForeignString {
	ptr, err := l.heap.Strdup(l.identify())
	if err != nil {
		return bridge.ForeignString{}
	}
	return bridge.NewForeignString(bridge.CStringBytes(ptr), func() {
		l.heap.Free(ptr)
	})
}

// Validate rejects a nil *LocalHost.
func (l *LocalHost) Validate() error {
	if l == nil || l.heap == nil || l.identify == nil {
		return errors.NotInitialized(errors.PhaseCallback, "", "local host")
	}
	return nil
}

// Outstanding returns how many blocks in the host heap have not been released.
func (l *LocalHost) Outstanding() int {
	return l.heap.Live()
}

var _ Callbacks = (*LocalHost)(nil)
