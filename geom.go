package mortontable

import "math"

// Point is a 2D position with integer coordinates.
//
// Coordinates must stay inside (-1<<30, 1<<30) so that squared distances fit
// in an int64.
type Point struct {
	X int32
	Y int32
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y int32) Point {
	return Point{X: x, Y: y}
}

// DistSquared returns the squared Euclidean distance between p and q.
func (p Point) DistSquared(q Point) int64 {
	dx := int64(p.X) - int64(q.X)
	dy := int64(p.Y) - int64(q.Y)
	return dx*dx + dy*dy
}

// Dist returns the Euclidean distance between p and q, truncated to an integer.
func (p Point) Dist(q Point) uint32 {
	return uint32(math.Sqrt(float64(p.DistSquared(q))))
}

// Region is an axis-aligned rectangle spanning [Min.X, Max.X] x [Min.Y, Max.Y].
// Both corners are inclusive, so a Region with Min == Max contains exactly one
// point.
type Region struct {
	Min Point
	Max Point
}

// Rect returns the Region spanning [minX, maxX] x [minY, maxY].
func Rect(minX, minY, maxX, maxY int32) Region {
	return Region{Min: Pt(minX, minY), Max: Pt(maxX, maxY)}
}

// RegionAround returns the Region centered on c extending halfX and halfY in
// each direction along the respective axis.
func RegionAround(c Point, halfX, halfY int32) Region {
	return Rect(c.X-halfX, c.Y-halfY, c.X+halfX, c.Y+halfY)
}

// Valid reports whether r spans at least one point on both axes.
func (r Region) Valid() bool {
	return r.Min.X <= r.Max.X && r.Min.Y <= r.Max.Y
}

// Contains reports whether p lies inside r.
func (r Region) Contains(p Point) bool {
	return r.Min.X <= p.X && p.X <= r.Max.X && r.Min.Y <= p.Y && p.Y <= r.Max.Y
}

// Intersects reports whether r and o share at least one point.
func (r Region) Intersects(o Region) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X &&
		r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// mid returns the floor midpoint of r.
func (r Region) mid() Point {
	return Pt(
		int32((int64(r.Min.X)+int64(r.Max.X))>>1),
		int32((int64(r.Min.Y)+int64(r.Max.Y))>>1),
	)
}

// distSquared returns the squared distance from p to the nearest point of r,
// or 0 when p lies inside r.
func (r Region) distSquared(p Point) int64 {
	var dx, dy int64
	switch {
	case p.X < r.Min.X:
		dx = int64(r.Min.X) - int64(p.X)
	case p.X > r.Max.X:
		dx = int64(p.X) - int64(r.Max.X)
	}
	switch {
	case p.Y < r.Min.Y:
		dy = int64(r.Min.Y) - int64(p.Y)
	case p.Y > r.Max.Y:
		dy = int64(p.Y) - int64(r.Max.Y)
	}
	return dx*dx + dy*dy
}
