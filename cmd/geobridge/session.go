package main

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/geobridge/bridge"
	"github.com/wippyai/geobridge/ffi"
	"github.com/wippyai/geobridge/geometry"
	"github.com/wippyai/geobridge/host"
	"github.com/wippyai/geobridge/resource"
)

// session owns the one polygon the Length tab edits. Points go in and come
// out through the pointer surface, with every block freed before returning.
type session struct {
	heap   *bridge.GoHeap
	reg    *ffi.Registry
	b      *ffi.Boundary
	handle resource.Handle
}

type measurement struct {
	points      []geometry.Coordinate
	length      float64
	description string
}

func newSession(log *zap.Logger) (*session, error) {
	heap := bridge.NewGoHeap()
	reg := ffi.New(host.Local(), ffi.WithLogger(log))
	h, err := reg.Create()
	if err != nil {
		return nil, err
	}
	return &session{heap: heap, reg: reg, b: ffi.NewBoundary(reg, heap), handle: h}, nil
}

func (s *session) measure(points []geometry.Coordinate) (measurement, error) {
	in, err := bridge.Snapshot(s.heap, points)
	if err != nil {
		return measurement{}, err
	}
	err = s.b.AssignFromArray(s.handle, in.Ptr(), in.Len())
	if ferr := bridge.FreeArray(s.heap, in); err == nil {
		err = ferr
	}
	if err != nil {
		return measurement{}, err
	}

	out, err := s.b.SnapshotToArray(s.handle)
	if err != nil {
		return measurement{}, err
	}
	var m measurement
	m.points = append(m.points, out.Coordinates()...)
	if err := s.b.FreeArray(out); err != nil {
		return measurement{}, err
	}

	if m.length, err = s.reg.Length(s.handle); err != nil {
		return measurement{}, err
	}

	desc, err := s.b.DescribeOwned(s.handle)
	if err != nil {
		return measurement{}, err
	}
	m.description = desc.String()
	return m, s.b.FreeDescription(desc)
}

func (s *session) close() error {
	if err := s.reg.Destroy(s.handle); err != nil {
		return err
	}
	if err := s.reg.Close(); err != nil {
		return err
	}
	if n := s.heap.Live(); n != 0 {
		return fmt.Errorf("%d blocks still allocated", n)
	}
	return nil
}

// parsePoints reads "x,y" pairs separated by spaces or semicolons.
func parsePoints(text string) ([]geometry.Coordinate, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ';' || r == '\t'
	})
	points := make([]geometry.Coordinate, 0, len(fields))
	for _, f := range fields {
		xs, ys, ok := strings.Cut(f, ",")
		if !ok {
			return nil, fmt.Errorf("point %q: want x,y", f)
		}
		x, err := parseFloat(xs)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", f, err)
		}
		y, err := parseFloat(ys)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", f, err)
		}
		points = append(points, geometry.Coordinate{X: x, Y: y})
	}
	return points, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
