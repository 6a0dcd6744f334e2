package ffi

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/geometry"
	"github.com/wippyai/geobridge/host"
	"github.com/wippyai/geobridge/polygon"
	"github.com/wippyai/geobridge/resource"
)

// PolygonType is the resource type ID polygons are stored under.
const PolygonType uint32 = 1

// Entry point names, used as the Op of returned errors.
const (
	OpPolygonNew         = "polygon_new"
	OpPolygonFree        = "polygon_free"
	OpPolygonLength      = "polygon_length"
	OpPolygonPoints      = "polygon_points"
	OpFreePoints         = "free_points"
	OpPolygonSetPoints   = "polygon_set_points"
	OpPolygonPush        = "polygon_push"
	OpPolygonRemove      = "polygon_remove"
	OpPolygonDescription = "polygon_description"
	OpFreeDescription    = "free_polygon_description"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for lifecycle events and leak reports.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// Registry owns every polygon reachable through a handle.
type Registry struct {
	table *resource.UnifiedTable
	log   *zap.Logger

	cbMu sync.RWMutex
	cb   host.Callbacks
}

// New creates a registry using cb for identifiers and equality. cb may be
// nil and supplied later with SetCallbacks.
func New(cb host.Callbacks, opts ...Option) *Registry {
	r := &Registry{
		table: resource.NewTable(),
		cb:    cb,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = Logger()
	}
	r.table.Subscribe(lifecycleLogger{log: r.log})
	return r
}

// SetCallbacks replaces the host capability. Polygons already created keep
// their identifiers.
func (r *Registry) SetCallbacks(cb host.Callbacks) {
	r.cbMu.Lock()
	r.cb = cb
	r.cbMu.Unlock()
}

func (r *Registry) callbacks(op string) (host.Callbacks, error) {
	r.cbMu.RLock()
	cb := r.cb
	r.cbMu.RUnlock()
	if err := host.Validate(cb); err != nil {
		return nil, errors.WithOp(err, op)
	}
	return cb, nil
}

// Create builds an empty polygon and returns its handle. It fails when the
// host has not been injected or returns a malformed identifier.
func (r *Registry) Create() (resource.Handle, error) {
	cb, err := r.callbacks(OpPolygonNew)
	if err != nil {
		return 0, err
	}
	p, err := polygon.New(cb)
	if err != nil {
		return 0, errors.WithOp(err, OpPolygonNew)
	}
	h := r.table.Insert(PolygonType, p)
	if h == 0 {
		return 0, errors.New(errors.PhaseHandle, errors.KindNotInitialized).
			Op(OpPolygonNew).
			Detail("registry is closed").
			Build()
	}
	return h, nil
}

// Destroy closes h and drops its polygon. A second Destroy of the same
// handle fails with KindHandleClosed.
func (r *Registry) Destroy(h resource.Handle) error {
	if _, err := r.lookup(OpPolygonFree, h); err != nil {
		return err
	}
	if _, st := r.table.Remove(h); st != resource.StateOpen {
		return stateError(OpPolygonFree, h, st)
	}
	return nil
}

// Polygon resolves h. The returned value must not outlive the handle.
func (r *Registry) Polygon(h resource.Handle) (*polygon.Polygon, error) {
	return r.lookup("", h)
}

func (r *Registry) lookup(op string, h resource.Handle) (*polygon.Polygon, error) {
	v, st := r.table.GetTyped(h, PolygonType)
	if st != resource.StateOpen {
		return nil, stateError(op, h, st)
	}
	return v.(*polygon.Polygon), nil
}

func stateError(op string, h resource.Handle, st resource.State) error {
	if st == resource.StateClosed {
		return errors.HandleClosed(errors.PhaseHandle, op, uint64(h))
	}
	return errors.InvalidHandle(errors.PhaseHandle, op, uint64(h))
}

func (r *Registry) Push(h resource.Handle, c geometry.Coordinate) error {
	p, err := r.lookup(OpPolygonPush, h)
	if err != nil {
		return err
	}
	p.Push(c)
	return nil
}

func (r *Registry) Remove(h resource.Handle, index int64) error {
	p, err := r.lookup(OpPolygonRemove, h)
	if err != nil {
		return err
	}
	return p.Remove(index)
}

func (r *Registry) Length(h resource.Handle) (float64, error) {
	p, err := r.lookup(OpPolygonLength, h)
	if err != nil {
		return 0, err
	}
	return p.Length(), nil
}

// Points returns a Go copy of the polygon's points.
func (r *Registry) Points(h resource.Handle) ([]geometry.Coordinate, error) {
	p, err := r.lookup(OpPolygonPoints, h)
	if err != nil {
		return nil, err
	}
	return p.Points(), nil
}

func (r *Registry) SetPoints(h resource.Handle, points []geometry.Coordinate) error {
	p, err := r.lookup(OpPolygonSetPoints, h)
	if err != nil {
		return err
	}
	p.SetPoints(points)
	return nil
}

// Describe returns the polygon's description, asking the host whether its
// ends meet.
func (r *Registry) Describe(h resource.Handle) (string, error) {
	p, err := r.lookup(OpPolygonDescription, h)
	if err != nil {
		return "", err
	}
	cb, err := r.callbacks(OpPolygonDescription)
	if err != nil {
		return "", err
	}
	return p.Describe(cb), nil
}

// Live returns the number of handles not yet destroyed.
func (r *Registry) Live() int {
	return r.table.Len()
}

// Close drops every polygon still open and rejects further creates.
// Handles that were never destroyed are reported as leaks.
func (r *Registry) Close() error {
	if n := r.table.Len(); n > 0 {
		r.log.Warn("closing registry with live polygons", zap.Int("count", n))
		r.table.Each(func(h resource.Handle, _ uint32, v any) bool {
			r.log.Debug("leaked polygon",
				zap.Stringer("handle", h),
				zap.Stringer("id", v.(*polygon.Polygon).ID()))
			return true
		})
	}
	return r.table.Close()
}

type lifecycleLogger struct {
	log *zap.Logger
}

func (l lifecycleLogger) OnResourceEvent(e resource.Event) {
	p, ok := e.Value.(*polygon.Polygon)
	if !ok {
		return
	}
	switch e.Type {
	case resource.EventCreated:
		l.log.Debug("polygon created", zap.Stringer("handle", e.Handle), zap.Stringer("id", p.ID()))
	case resource.EventDropped:
		l.log.Debug("polygon destroyed", zap.Stringer("handle", e.Handle), zap.Stringer("id", p.ID()))
	}
}
