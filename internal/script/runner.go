package script

import (
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/geobridge"
	"github.com/wippyai/geobridge/bridge"
	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/ffi"
	"github.com/wippyai/geobridge/geometry"
	"github.com/wippyai/geobridge/host"
	"github.com/wippyai/geobridge/resource"
)

const defaultDelta = 1e-9

// Report summarises a finished run.
type Report struct {
	Steps int
	// Open is the number of polygons the scenario never destroyed.
	Open int
}

// Runner executes one scenario against a fresh registry, with a GoHeap as the
// core allocator and a LocalHost supplying callbacks.
type Runner struct {
	script *Script
	out    io.Writer
	log    *zap.Logger

	heap      *bridge.GoHeap
	host      *host.LocalHost
	hostAlloc geobridge.Allocator
	reg       *ffi.Registry
	b         *ffi.Boundary
	names     map[string]resource.Handle
}

func NewRunner(s *Script, out io.Writer, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	var opts []host.Option
	if s.Identifier != "" {
		id := s.Identifier
		opts = append(opts, host.WithIdentifierSource(func() string { return id }))
	}
	if s.Tolerance > 0 {
		opts = append(opts, host.WithTolerance(s.Tolerance))
	}

	h := host.Local(opts...)
	heap := bridge.NewGoHeap()
	reg := ffi.New(h, ffi.WithLogger(log))
	return &Runner{
		script: s,
		out:    out,
		log:    log,
		heap:      heap,
		host:      h,
		hostAlloc: h.Heap(),
		reg:       reg,
		b:         ffi.NewBoundary(reg, heap),
		names:     make(map[string]resource.Handle),
	}
}

// Run executes every step in order and stops at the first failure: an
// unexpected error, a missing expected error, or a failed check. After the
// last step it verifies that every core block and host string was freed.
func (r *Runner) Run() (Report, error) {
	var rep Report
	for i, st := range r.script.Steps {
		r.log.Debug("step", zap.Int("n", i+1), zap.String("op", st.Op), zap.String("polygon", st.Polygon))
		if err := r.step(i+1, st); err != nil {
			return rep, err
		}
		rep.Steps++
	}

	rep.Open = r.reg.Live()
	if err := r.reg.Close(); err != nil {
		return rep, err
	}
	if n := r.heap.Live(); n != 0 {
		return rep, r.fail(0, "", "%d core blocks were not freed", n)
	}
	if st := r.heap.Stats(); st.BadFrees != 0 {
		return rep, r.fail(0, "", "%d frees of unknown blocks", st.BadFrees)
	}
	if n := r.host.Outstanding(); n != 0 {
		return rep, r.fail(0, "", "%d host blocks were not released", n)
	}
	return rep, nil
}

func (r *Runner) fail(n int, op, format string, args ...any) error {
	b := errors.New(errors.PhaseScript, errors.KindInvalidInput).Op(op)
	if n > 0 {
		return b.Detail("step %d: "+format, append([]any{n}, args...)...).Build()
	}
	return b.Detail(format, args...).Build()
}

type result struct {
	text   string
	value  *float64
	count  *int
	points []geometry.Coordinate
}

func (r *Runner) step(n int, st Step) error {
	res, err := r.exec(st)

	want := ""
	if st.Expect != nil {
		want = st.Expect.Error
	}
	if err != nil {
		var e *errors.Error
		if want != "" && stderrors.As(err, &e) && string(e.Kind) == want {
			fmt.Fprintf(r.out, "%-9s %-6s error %s (expected)\n", st.Op, st.Polygon, e.Kind)
			return nil
		}
		return err
	}
	if want != "" {
		return r.fail(n, st.Op, "expected error %s, got %s", want, res.text)
	}

	fmt.Fprintf(r.out, "%-9s %-6s %s\n", st.Op, st.Polygon, res.text)
	if st.Expect != nil {
		return r.check(n, st, res)
	}
	return nil
}

func (r *Runner) handle(name string) (resource.Handle, error) {
	h, ok := r.names[name]
	if !ok {
		return 0, errors.New(errors.PhaseScript, errors.KindInvalidInput).
			Detail("polygon %q was never created", name).
			Build()
	}
	return h, nil
}

func (r *Runner) exec(st Step) (result, error) {
	switch st.Op {
	case OpCreate:
		h, err := r.reg.Create()
		if err != nil {
			return result{}, err
		}
		r.names[st.Polygon] = h
		return result{text: h.String()}, nil
	case OpDistance:
		d := geometry.Distance(geometry.Coordinate(st.Points[0]), geometry.Coordinate(st.Points[1]))
		return valueResult(d), nil
	case OpAverage:
		return valueResult(geometry.Average(st.Values[0], st.Values[1])), nil
	}

	h, err := r.handle(st.Polygon)
	if err != nil {
		return result{}, err
	}

	switch st.Op {
	case OpDestroy:
		return result{text: "ok"}, r.reg.Destroy(h)
	case OpPush:
		return result{text: "ok"}, r.reg.Push(h, geometry.Coordinate(*st.Point))
	case OpRemove:
		return result{text: "ok"}, r.reg.Remove(h, *st.Index)
	case OpSet:
		return r.set(h, coordinates(st.Points))
	case OpPoints:
		return r.points(h)
	case OpLength:
		length, err := r.reg.Length(h)
		if err != nil {
			return result{}, err
		}
		return valueResult(length), nil
	case OpDescribe:
		s, err := r.b.DescribeOwned(h)
		if err != nil {
			return result{}, err
		}
		text := s.String()
		return result{text: text}, r.b.FreeDescription(s)
	}
	return result{}, r.fail(0, st.Op, "unknown op")
}

func valueResult(v float64) result {
	return result{text: fmt.Sprintf("%g", v), value: &v}
}

// set hands the points over the way a foreign host would: in a buffer the
// host allocated, which the core copies and never frees.
func (r *Runner) set(h resource.Handle, pts []geometry.Coordinate) (res result, err error) {
	buf, err := bridge.Snapshot(r.hostAlloc, pts)
	if err != nil {
		return result{}, err
	}
	defer func() {
		if ferr := bridge.FreeArray(r.hostAlloc, buf); err == nil && ferr != nil {
			res, err = result{}, ferr
		}
	}()

	if err := r.b.AssignFromArray(h, buf.Ptr(), buf.Len()); err != nil {
		return result{}, err
	}
	n := len(pts)
	return result{text: fmt.Sprintf("%d points", n), count: &n}, nil
}

func (r *Runner) points(h resource.Handle) (result, error) {
	buf, err := r.b.SnapshotToArray(h)
	if err != nil {
		return result{}, err
	}
	pts := slices.Clone(buf.Coordinates())
	if err := r.b.FreeArray(buf); err != nil {
		return result{}, err
	}

	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = fmt.Sprintf("(%g, %g)", p.X, p.Y)
	}
	n := len(pts)
	return result{text: "[" + strings.Join(parts, " ") + "]", count: &n, points: pts}, nil
}

func (r *Runner) check(n int, st Step, res result) error {
	exp := st.Expect
	delta := exp.Delta
	if delta == 0 {
		delta = defaultDelta
	}

	if exp.Value != nil {
		if res.value == nil {
			return r.fail(n, st.Op, "op has no value to compare")
		}
		if math.Abs(*res.value-*exp.Value) > delta {
			return r.fail(n, st.Op, "value %g, want %g", *res.value, *exp.Value)
		}
	}
	if exp.Count != nil {
		if res.count == nil {
			return r.fail(n, st.Op, "op has no count to compare")
		}
		if *res.count != *exp.Count {
			return r.fail(n, st.Op, "count %d, want %d", *res.count, *exp.Count)
		}
	}
	if exp.Points != nil {
		want := coordinates(exp.Points)
		if !slices.Equal(res.points, want) {
			return r.fail(n, st.Op, "points %v, want %v", res.points, want)
		}
	}
	if exp.Contains != "" && !strings.Contains(res.text, exp.Contains) {
		return r.fail(n, st.Op, "%q does not contain %q", res.text, exp.Contains)
	}
	return nil
}
