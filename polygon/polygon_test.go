package polygon

import (
	"math"
	"strings"
	"testing"

	"github.com/wippyai/geobridge/bridge"
	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/geometry"
	"github.com/wippyai/geobridge/host"
)

const testID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

func fixedHost(id string) *host.LocalHost {
	return host.Local(host.WithIdentifierSource(func() string { return id }))
}

func newPolygon(t *testing.T, pts ...geometry.Coordinate) (*Polygon, *host.LocalHost) {
	t.Helper()
	h := fixedHost(testID)
	p, err := New(h)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, c := range pts {
		p.Push(c)
	}
	return p, h
}

func TestNew(t *testing.T) {
	p, h := newPolygon(t)
	if p.ID().String() != testID {
		t.Fatalf("ID = %s, want %s", p.ID(), testID)
	}
	if p.Len() != 0 {
		t.Fatalf("Len = %d, want 0", p.Len())
	}
	if h.Outstanding() != 0 {
		t.Fatal("identifier string was not released")
	}
}

func TestNew_InvalidIdentifier(t *testing.T) {
	tests := []string{
		"not-a-uuid",
		"",
		"{6ba7b810-9dad-11d1-80b4-00c04fd430c8}",
		"urn:uuid:6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"6ba7b8109dad11d180b400c04fd430c8",
		"6ba7b810-9dad-11d1-80b4-00c04fd430cz",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			h := fixedHost(text)
			_, err := New(h)
			if err == nil {
				t.Fatal("expected error")
			}
			e, ok := err.(*errors.Error)
			if !ok || e.Kind != errors.KindInvalidIdentifier {
				t.Fatalf("expected invalid_identifier, got %v", err)
			}
			if h.Outstanding() != 0 {
				t.Fatal("identifier string must be released on failure too")
			}
		})
	}
}

func TestNew_NullIdentifier(t *testing.T) {
	cb := host.Funcs{
		Equal:    func(a, b geometry.Coordinate) bool { return a == b },
		Identify: func() bridge.ForeignString { return bridge.ForeignString{} },
	}
	if _, err := New(cb); err == nil {
		t.Fatal("expected error for null identifier")
	}
}

func TestNew_NoCallbacks(t *testing.T) {
	_, err := New(nil)
	e, ok := err.(*errors.Error)
	if !ok || e.Kind != errors.KindNotInitialized {
		t.Fatalf("expected not_initialized, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	p, _ := newPolygon(t,
		geometry.Coordinate{X: 0, Y: 0},
		geometry.Coordinate{X: 1, Y: 0},
		geometry.Coordinate{X: 2, Y: 0},
	)

	for _, idx := range []int64{-1, 3, math.MinInt64, math.MaxInt64} {
		err := p.Remove(idx)
		if err == nil {
			t.Fatalf("Remove(%d) should fail", idx)
		}
		e := err.(*errors.Error)
		if e.Kind != errors.KindOutOfBounds || e.Value != idx {
			t.Fatalf("Remove(%d) = %v", idx, err)
		}
	}
	if p.Len() != 3 {
		t.Fatal("failed removals must not change the polygon")
	}

	if err := p.Remove(1); err != nil {
		t.Fatalf("Remove(1) failed: %v", err)
	}
	want := []geometry.Coordinate{{X: 0, Y: 0}, {X: 2, Y: 0}}
	got := p.Points()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Points = %v, want %v", got, want)
	}

	if err := p.Remove(0); err != nil {
		t.Fatalf("Remove(0) failed: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}
}

func TestPointsIsACopy(t *testing.T) {
	p, _ := newPolygon(t, geometry.Coordinate{X: 1, Y: 1})
	pts := p.Points()
	pts[0].X = 99
	if p.View()[0].X != 1 {
		t.Fatal("Points must return a copy")
	}

	src := []geometry.Coordinate{{X: 5, Y: 5}}
	p.SetPoints(src)
	src[0].X = 0
	if p.View()[0].X != 5 {
		t.Fatal("SetPoints must copy its input")
	}
}

func TestDescribe(t *testing.T) {
	exact := host.Local()

	tests := []struct {
		name   string
		points []geometry.Coordinate
		length float64
		want   string
	}{
		{"empty", nil, 0, "containing 0 points (opened)"},
		{"single", []geometry.Coordinate{{X: 1, Y: 1}}, 0, "containing 1 points (opened)"},
		{"segment", []geometry.Coordinate{{X: 0, Y: 0}, {X: 3, Y: 4}}, 5, "containing 2 points (opened)"},
		{
			"triangle",
			[]geometry.Coordinate{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}},
			2 + math.Sqrt2,
			"containing 4 points (closed)",
		},
		{
			"unit square",
			[]geometry.Coordinate{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}},
			4,
			"containing 5 points (closed)",
		},
		{"same two points", []geometry.Coordinate{{X: 2, Y: 2}, {X: 2, Y: 2}}, 0, "containing 2 points (closed)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPolygon(t, tt.points...)
			if got := p.Length(); math.Abs(got-tt.length) > 1e-12 {
				t.Errorf("Length = %v, want %v", got, tt.length)
			}
			desc := p.Describe(exact)
			if !strings.HasPrefix(desc, "Polygon "+testID+" ") {
				t.Errorf("Describe = %q, missing identifier", desc)
			}
			if !strings.HasSuffix(desc, tt.want) {
				t.Errorf("Describe = %q, want suffix %q", desc, tt.want)
			}
		})
	}
}

func TestDescribe_UsesHostEquality(t *testing.T) {
	p, _ := newPolygon(t, geometry.Coordinate{X: 0, Y: 0}, geometry.Coordinate{X: 0.001, Y: 0})

	if p.Status(host.Local()) != Opened {
		t.Error("exact host should see an open path")
	}
	if p.Status(host.Local(host.WithTolerance(0.01))) != Closed {
		t.Error("tolerant host should see a closed path")
	}
}

func TestDrop(t *testing.T) {
	p, _ := newPolygon(t, geometry.Coordinate{X: 1, Y: 1})
	p.Drop()
	if p.Len() != 0 {
		t.Fatal("Drop should release points")
	}
}
