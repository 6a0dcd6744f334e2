// Package script runs YAML scenarios against the pointer surface in process.
//
// A scenario names polygons, drives them through the same entry points a
// foreign host uses, and checks results along the way:
//
//	name: triangle
//	steps:
//	  - op: create
//	    polygon: t
//	  - op: set
//	    polygon: t
//	    points: [[0, 0], [1, 0], [1, 1], [0, 0]]
//	  - op: describe
//	    polygon: t
//	    expect: {contains: "4 points (closed)"}
//	  - op: remove
//	    polygon: t
//	    index: -1
//	    expect: {error: out_of_bounds}
//	  - op: destroy
//	    polygon: t
package script

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/geometry"
)

// Step operations.
const (
	OpCreate   = "create"
	OpDestroy  = "destroy"
	OpPush     = "push"
	OpRemove   = "remove"
	OpSet      = "set"
	OpPoints   = "points"
	OpLength   = "length"
	OpDescribe = "describe"
	OpDistance = "distance"
	OpAverage  = "average"
)

// Script is a parsed scenario.
type Script struct {
	Name       string  `yaml:"name"`
	Identifier string  `yaml:"identifier,omitempty"`
	Tolerance  float64 `yaml:"tolerance,omitempty"`
	Steps      []Step  `yaml:"steps"`
}

type Step struct {
	Op      string    `yaml:"op"`
	Polygon string    `yaml:"polygon,omitempty"`
	Point   *Point    `yaml:"point,omitempty"`
	Points  []Point   `yaml:"points,omitempty"`
	Index   *int64    `yaml:"index,omitempty"`
	Values  []float64 `yaml:"values,omitempty"`
	Expect  *Expect   `yaml:"expect,omitempty"`
}

// Expect holds the checks for one step. Unset fields are not checked.
type Expect struct {
	Value    *float64 `yaml:"value,omitempty"`
	Count    *int     `yaml:"count,omitempty"`
	Points   []Point  `yaml:"points,omitempty"`
	Contains string   `yaml:"contains,omitempty"`
	Error    string   `yaml:"error,omitempty"`
	Delta    float64  `yaml:"delta,omitempty"`
}

// Point accepts either [x, y] or {x: .., y: ..}.
type Point geometry.Coordinate

func (p *Point) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var xy []float64
		if err := node.Decode(&xy); err != nil {
			return err
		}
		if len(xy) != 2 {
			return fmt.Errorf("line %d: point needs 2 coordinates, got %d", node.Line, len(xy))
		}
		p.X, p.Y = xy[0], xy[1]
		return nil
	case yaml.MappingNode:
		var m struct {
			X float64 `yaml:"x"`
			Y float64 `yaml:"y"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		p.X, p.Y = m.X, m.Y
		return nil
	default:
		return fmt.Errorf("line %d: point must be [x, y] or {x, y}", node.Line)
	}
}

func coordinates(pts []Point) []geometry.Coordinate {
	out := make([]geometry.Coordinate, len(pts))
	for i, p := range pts {
		out[i] = geometry.Coordinate(p)
	}
	return out
}

// Parse decodes a scenario and checks that every step is well formed.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(errors.PhaseScript, errors.KindInvalidInput, err, "decode scenario")
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return nil, errors.New(errors.PhaseScript, errors.KindInvalidInput).
				Op(st.Op).
				Detail("step %d: %v", i+1, err).
				Build()
		}
	}
	return &s, nil
}

// Load reads a scenario file.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func (st Step) validate() error {
	needsPolygon := func() error {
		if st.Polygon == "" {
			return fmt.Errorf("%s needs a polygon", st.Op)
		}
		return nil
	}

	switch st.Op {
	case OpCreate, OpDestroy, OpPoints, OpLength, OpDescribe:
		return needsPolygon()
	case OpPush:
		if st.Point == nil {
			return fmt.Errorf("push needs a point")
		}
		return needsPolygon()
	case OpRemove:
		if st.Index == nil {
			return fmt.Errorf("remove needs an index")
		}
		return needsPolygon()
	case OpSet:
		return needsPolygon()
	case OpDistance:
		if len(st.Points) != 2 {
			return fmt.Errorf("distance needs 2 points")
		}
	case OpAverage:
		if len(st.Values) != 2 {
			return fmt.Errorf("average needs 2 values")
		}
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	return nil
}
