// Package polygon implements the aggregate handed across the boundary: an
// ordered sequence of coordinates plus an identifier fixed at construction.
//
// A Polygon is not safe for concurrent use.
package polygon

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/wippyai/geobridge/bridge"
	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/geometry"
	"github.com/wippyai/geobridge/host"
)

const canonicalIDLen = 36

// Status is the closure state reported in a description.
type Status string

const (
	Opened Status = "opened"
	Closed Status = "closed"
)

type Polygon struct {
	points []geometry.Coordinate
	id     uuid.UUID
}

// New creates an empty polygon. It asks cb for one identifier, copies it and
// releases the host string before returning, whether or not it parses.
func New(cb host.Callbacks) (*Polygon, error) {
	if err := host.Validate(cb); err != nil {
		return nil, err
	}
	id, err := ParseIdentifier(bridge.Ingest(cb.GenerateIdentifier()))
	if err != nil {
		return nil, err
	}
	return &Polygon{id: id}, nil
}

// ParseIdentifier accepts only the canonical hyphenated 36-character form.
// uuid.Parse alone also takes braced and urn-prefixed text.
func ParseIdentifier(text string) (uuid.UUID, error) {
	if len(text) != canonicalIDLen {
		return uuid.Nil, errors.InvalidIdentifier(text, nil)
	}
	id, err := uuid.Parse(text)
	if err != nil {
		return uuid.Nil, errors.InvalidIdentifier(text, err)
	}
	return id, nil
}

func (p *Polygon) ID() uuid.UUID { return p.id }
func (p *Polygon) Len() int      { return len(p.points) }

// Push appends c.
func (p *Polygon) Push(c geometry.Coordinate) {
	p.points = append(p.points, c)
}

// Remove deletes the point at index, keeping the order of the rest. The index
// is checked as a signed value so negative input never wraps.
func (p *Polygon) Remove(index int64) error {
	if index < 0 || index >= int64(len(p.points)) {
		return errors.OutOfBounds(errors.PhaseEntity, "polygon_remove", index, len(p.points))
	}
	p.points = slices.Delete(p.points, int(index), int(index)+1)
	return nil
}

// Points returns a copy of the sequence.
func (p *Polygon) Points() []geometry.Coordinate {
	return slices.Clone(p.points)
}

// View returns the sequence without copying. The slice is only valid until
// the next mutation.
func (p *Polygon) View() []geometry.Coordinate {
	return p.points
}

// SetPoints replaces the sequence with a copy of points.
func (p *Polygon) SetPoints(points []geometry.Coordinate) {
	p.points = append(p.points[:0:0], points...)
}

// Length is the open-path length through the points in order.
func (p *Polygon) Length() float64 {
	return geometry.PathLength(p.points)
}

func (p *Polygon) Status(eq geometry.Equaler) Status {
	if geometry.IsClosed(p.points, eq) {
		return Closed
	}
	return Opened
}

// Describe renders "Polygon <id> containing <n> points (<status>)".
func (p *Polygon) Describe(eq geometry.Equaler) string {
	return fmt.Sprintf("Polygon %s containing %d points (%s)", p.id, len(p.points), p.Status(eq))
}

// Drop releases the point storage once the handle is destroyed.
func (p *Polygon) Drop() {
	p.points = nil
}
