// Package geometry holds the value types that cross the boundary by copy.
//
// Coordinate has the same layout as the C struct
//
//	typedef struct { double x; double y; } geobridge_point;
//
// 16 bytes, x at offset 0, y at offset 8. Nothing in this package owns memory.
package geometry

import "math"

// Coordinate is a point in the plane, passed by value.
type Coordinate struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance between a and b.
// NaN and Inf inputs propagate through math.Hypot.
func Distance(a, b Coordinate) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Average returns the arithmetic mean of a and b.
func Average(a, b float64) float64 {
	return (a + b) / 2
}

// PathLength sums the distances between consecutive points.
func PathLength(points []Coordinate) float64 {
	var length float64
	for i := 1; i < len(points); i++ {
		length += Distance(points[i-1], points[i])
	}
	return length
}

// Equaler decides whether two coordinates are the same point.
type Equaler interface {
	ValuesEqual(a, b Coordinate) bool
}

// IsClosed reports whether points form a closed path: at least two points
// and the first equal to the last according to eq.
func IsClosed(points []Coordinate, eq Equaler) bool {
	if len(points) < 2 {
		return false
	}
	return eq.ValuesEqual(points[0], points[len(points)-1])
}
