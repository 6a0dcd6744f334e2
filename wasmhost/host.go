package wasmhost

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/ffi"
	"github.com/wippyai/geobridge/geometry"
	"github.com/wippyai/geobridge/polygon"
	"github.com/wippyai/geobridge/resource"
)

// ModuleName is the import module guests link against.
const ModuleName = "geobridge"

// Guest export names.
const (
	ExportMemory             = "memory"
	ExportAlloc              = "alloc"
	ExportDealloc            = "dealloc"
	ExportValuesEqual        = "values_equal"
	ExportGenerateIdentifier = "generate_identifier"
	ExportReleaseString      = "release_string"
)

// Option configures a Host.
type Option func(*Host)

func WithLogger(l *zap.Logger) Option {
	return func(h *Host) {
		h.log = l
	}
}

// Host serves the geobridge module to any number of guests in one runtime.
type Host struct {
	log    *zap.Logger
	mu     sync.Mutex
	guests map[api.Module]*guest
}

type guest struct {
	mem    *Memory
	alloc  *GuestAllocator
	cb     *guestCallbacks
	ledger *Ledger
	reg    *ffi.Registry
}

// enter points the guest's callbacks and allocator at the context of the
// host call in progress.
func (g *guest) enter(ctx context.Context) {
	g.cb.ctx = ctx
	g.alloc.Ctx = ctx
}

func New(opts ...Option) *Host {
	h := &Host{guests: make(map[api.Module]*guest)}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = Logger()
	}
	return h
}

type hostFunc struct {
	name    string
	fn      api.GoModuleFunc
	params  []api.ValueType
	results []api.ValueType
}

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64
)

func (h *Host) functions() []hostFunc {
	return []hostFunc{
		{"average", h.average, []api.ValueType{f64, f64}, []api.ValueType{f64}},
		{"distance_to", h.distanceTo, []api.ValueType{f64, f64, f64, f64}, []api.ValueType{f64}},
		{ffi.OpPolygonNew, h.polygonNew, nil, []api.ValueType{i64}},
		{ffi.OpPolygonFree, h.polygonFree, []api.ValueType{i64}, nil},
		{ffi.OpPolygonLength, h.polygonLength, []api.ValueType{i64}, []api.ValueType{f64}},
		{ffi.OpPolygonPoints, h.polygonPoints, []api.ValueType{i64, i32}, []api.ValueType{i32}},
		{ffi.OpFreePoints, h.freePoints, []api.ValueType{i32}, nil},
		{ffi.OpPolygonSetPoints, h.polygonSetPoints, []api.ValueType{i64, i32, i32}, nil},
		{ffi.OpPolygonPush, h.polygonPush, []api.ValueType{i64, f64, f64}, nil},
		{ffi.OpPolygonRemove, h.polygonRemove, []api.ValueType{i64, i64}, nil},
		{ffi.OpPolygonDescription, h.polygonDescription, []api.ValueType{i64}, []api.ValueType{i32}},
		{ffi.OpFreeDescription, h.freeDescription, []api.ValueType{i32}, nil},
		{"geobridge_live_handles", h.liveHandles, nil, []api.ValueType{i64}},
	}
}

// Instantiate defines the geobridge host module in rt.
func (h *Host) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	b := rt.NewHostModuleBuilder(ModuleName)
	for _, f := range h.functions() {
		b.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, f.params, f.results).
			WithName(f.name).
			Export(f.name)
	}
	return b.Instantiate(ctx)
}

// InstantiateGuest instantiates a guest module and checks its exports.
// A guest missing a required export is closed and an error returned.
// Closing the returned module releases the guest as Release does.
func (h *Host) InstantiateGuest(ctx context.Context, rt wazero.Runtime, wasm []byte, cfg wazero.ModuleConfig) (api.Module, error) {
	var mod api.Module
	ctx = experimental.WithCloseNotifier(ctx, experimental.CloseNotifyFunc(func(context.Context, uint32) {
		if mod != nil {
			_ = h.Release(mod)
		}
	}))
	mod, err := rt.InstantiateWithConfig(ctx, wasm, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := h.bind(mod); err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	return mod, nil
}

func (h *Host) bind(mod api.Module) (*guest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if g, ok := h.guests[mod]; ok {
		return g, nil
	}

	mem := WrapMemory(mod.ExportedMemory(ExportMemory))
	if mem == nil {
		return nil, errors.MissingExport(ExportMemory)
	}
	fns := make(map[string]api.Function)
	for _, name := range []string{ExportAlloc, ExportDealloc, ExportValuesEqual, ExportGenerateIdentifier, ExportReleaseString} {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			return nil, errors.MissingExport(name)
		}
		fns[name] = fn
	}

	cb := &guestCallbacks{
		mem:      mem,
		equal:    fns[ExportValuesEqual],
		identify: fns[ExportGenerateIdentifier],
		release:  fns[ExportReleaseString],
	}
	log := h.log.With(zap.String("guest", mod.Name()))
	g := &guest{
		mem:    mem,
		alloc:  &GuestAllocator{Alloc: fns[ExportAlloc], Dealloc: fns[ExportDealloc]},
		cb:     cb,
		ledger: NewLedger(),
		reg:    ffi.New(cb, ffi.WithLogger(log)),
	}
	h.guests[mod] = g
	log.Debug("guest bound")
	return g, nil
}

// Live returns the number of open handles held by mod.
func (h *Host) Live(mod api.Module) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if g, ok := h.guests[mod]; ok {
		return g.reg.Live()
	}
	return 0
}

// Outstanding returns the number of core blocks mod has not freed.
func (h *Host) Outstanding(mod api.Module) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if g, ok := h.guests[mod]; ok {
		return g.ledger.Count()
	}
	return 0
}

// Release forgets mod, dropping its polygons and reporting leaked blocks.
// The guest's memory is not touched. Guests bound lazily on their first host
// call, rather than through InstantiateGuest, must be released explicitly.
func (h *Host) Release(mod api.Module) error {
	h.mu.Lock()
	g, ok := h.guests[mod]
	delete(h.guests, mod)
	h.mu.Unlock()
	if !ok {
		return nil
	}
	if n := g.ledger.Count(); n > 0 {
		h.log.Warn("guest released with unfreed blocks",
			zap.String("guest", mod.Name()),
			zap.Int("count", n))
	}
	return g.reg.Close()
}

// guestFor resolves the calling guest, binding it on first use.
func (h *Host) guestFor(ctx context.Context, mod api.Module) *guest {
	g, err := h.bind(mod)
	if err != nil {
		h.fail(err)
	}
	g.enter(ctx)
	return g
}

// fail aborts the host call. wazero turns the panic into a trap.
func (h *Host) fail(err error) {
	h.log.Error("guest misuse", zap.Error(err))
	panic(err)
}

func (h *Host) check(err error) {
	if err != nil {
		h.fail(err)
	}
}

func coordinate(x, y uint64) geometry.Coordinate {
	return geometry.Coordinate{X: api.DecodeF64(x), Y: api.DecodeF64(y)}
}

func (h *Host) average(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeF64(geometry.Average(api.DecodeF64(stack[0]), api.DecodeF64(stack[1])))
}

func (h *Host) distanceTo(_ context.Context, _ api.Module, stack []uint64) {
	d := geometry.Distance(coordinate(stack[0], stack[1]), coordinate(stack[2], stack[3]))
	stack[0] = api.EncodeF64(d)
}

func (h *Host) polygonNew(ctx context.Context, mod api.Module, stack []uint64) {
	g := h.guestFor(ctx, mod)
	ph, err := g.reg.Create()
	h.check(err)
	stack[0] = api.EncodeI64(int64(ph))
}

func (h *Host) polygonFree(ctx context.Context, mod api.Module, stack []uint64) {
	g := h.guestFor(ctx, mod)
	h.check(g.reg.Destroy(resource.Handle(stack[0])))
}

func (h *Host) polygonLength(ctx context.Context, mod api.Module, stack []uint64) {
	g := h.guestFor(ctx, mod)
	length, err := g.reg.Length(resource.Handle(stack[0]))
	h.check(err)
	stack[0] = api.EncodeF64(length)
}

func (h *Host) lookup(g *guest, op string, handle uint64) *polygon.Polygon {
	p, err := g.reg.Polygon(resource.Handle(handle))
	h.check(errors.WithOp(err, op))
	return p
}

// polygonPoints copies the points into a new guest block and stores the
// count at lenOut when lenOut is non-zero. An empty polygon returns 0.
func (h *Host) polygonPoints(ctx context.Context, mod api.Module, stack []uint64) {
	g := h.guestFor(ctx, mod)
	p := h.lookup(g, ffi.OpPolygonPoints, stack[0])
	lenOut := api.DecodeU32(stack[1])

	if lenOut != 0 {
		_, err := g.mem.Read(lenOut, 4)
		h.check(errors.WithOp(err, ffi.OpPolygonPoints))
	}

	points := p.View()
	var ptr uint32
	if len(points) > 0 {
		size := uint32(len(points)) * coordinateSize
		var err error
		ptr, err = g.alloc.Allocate(size, coordinateAlign)
		h.check(errors.WithOp(err, ffi.OpPolygonPoints))
		h.place(g, ffi.OpPolygonPoints, Block{Ptr: ptr, Size: size, Align: coordinateAlign, Kind: KindArray}, func() error {
			return g.mem.WriteCoordinates(ptr, points)
		})
	}
	if lenOut != 0 {
		h.check(g.mem.WriteU32(lenOut, uint32(len(points))))
	}
	stack[0] = api.EncodeU32(ptr)
}

// place fills a freshly allocated block and records it in the ledger. If the
// fill fails the block goes straight back to the guest, which never saw it.
func (h *Host) place(g *guest, op string, b Block, fill func() error) {
	if err := fill(); err != nil {
		if ferr := g.alloc.Free(b.Ptr, b.Size, b.Align); ferr != nil {
			h.log.Warn("returning unfilled block failed", zap.Uint32("ptr", b.Ptr), zap.Error(ferr))
		}
		h.fail(errors.WithOp(err, op))
	}
	g.ledger.Add(b)
}

func (h *Host) freeBlock(ctx context.Context, mod api.Module, op string, ptr uint32, kind BlockKind) {
	if ptr == 0 {
		return
	}
	g := h.guestFor(ctx, mod)
	b, err := g.ledger.Take(op, ptr, kind)
	h.check(err)
	h.check(errors.WithOp(g.alloc.Free(b.Ptr, b.Size, b.Align), op))
}

func (h *Host) freePoints(ctx context.Context, mod api.Module, stack []uint64) {
	h.freeBlock(ctx, mod, ffi.OpFreePoints, api.DecodeU32(stack[0]), KindArray)
}

func (h *Host) freeDescription(ctx context.Context, mod api.Module, stack []uint64) {
	h.freeBlock(ctx, mod, ffi.OpFreeDescription, api.DecodeU32(stack[0]), KindString)
}

func (h *Host) polygonSetPoints(ctx context.Context, mod api.Module, stack []uint64) {
	g := h.guestFor(ctx, mod)
	p := h.lookup(g, ffi.OpPolygonSetPoints, stack[0])
	ptr, n := api.DecodeU32(stack[1]), api.DecodeU32(stack[2])
	if n > 0 && ptr == 0 {
		h.fail(errors.NilPointer(errors.PhaseArray, ffi.OpPolygonSetPoints, "points buffer"))
	}
	points, err := g.mem.ReadCoordinates(ptr, n)
	h.check(errors.WithOp(err, ffi.OpPolygonSetPoints))
	p.SetPoints(points)
}

func (h *Host) polygonPush(ctx context.Context, mod api.Module, stack []uint64) {
	g := h.guestFor(ctx, mod)
	h.check(g.reg.Push(resource.Handle(stack[0]), coordinate(stack[1], stack[2])))
}

func (h *Host) polygonRemove(ctx context.Context, mod api.Module, stack []uint64) {
	g := h.guestFor(ctx, mod)
	h.check(g.reg.Remove(resource.Handle(stack[0]), int64(stack[1])))
}

func (h *Host) polygonDescription(ctx context.Context, mod api.Module, stack []uint64) {
	g := h.guestFor(ctx, mod)
	text, err := g.reg.Describe(resource.Handle(stack[0]))
	h.check(err)

	size := uint32(len(text) + 1)
	ptr, err := g.alloc.Allocate(size, 1)
	h.check(errors.WithOp(err, ffi.OpPolygonDescription))
	buf := make([]byte, size)
	copy(buf, text)
	h.place(g, ffi.OpPolygonDescription, Block{Ptr: ptr, Size: size, Align: 1, Kind: KindString}, func() error {
		return g.mem.Write(ptr, buf)
	})
	stack[0] = api.EncodeU32(ptr)
}

func (h *Host) liveHandles(ctx context.Context, mod api.Module, stack []uint64) {
	g := h.guestFor(ctx, mod)
	stack[0] = api.EncodeI64(int64(g.reg.Live()))
}
