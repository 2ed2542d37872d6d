// Package geom provides the planar and stacked-section geometry used to model
// agent bodies: points, closed shape variants, shape sets, height-indexed 3D
// bodies, extremal measurements, mass properties, and contact geometry.
//
// Lengths are centimetres and angles are degrees unless a name says otherwise.
package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

// Point is a 2D point or vector in the horizontal plane.
type Point = r2.Point

// Rect is an axis-aligned bounding box.
type Rect = r2.Rect

// Pt is a shorthand constructor for Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// WrapAngle maps an angle in degrees onto [-180, 180) using
// ((θ + 180) mod 360) − 180 with a floored modulo. 180 maps to -180.
func WrapAngle(deg float64) float64 {
	m := math.Mod(deg+180, 360)
	if m < 0 {
		m += 360
	}
	// Mod can return 360 for tiny negative inputs after the correction above.
	if m >= 360 {
		m -= 360
	}
	return m - 180
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RotateVector rotates v counterclockwise by deg degrees about the origin.
func RotateVector(v Point, deg float64) Point {
	s, c := math.Sincos(Radians(deg))
	return Point{
		X: v.X*c - v.Y*s,
		Y: v.X*s + v.Y*c,
	}
}

// RotateAbout rotates p counterclockwise by deg degrees around pivot.
func RotateAbout(p, pivot Point, deg float64) Point {
	return RotateVector(p.Sub(pivot), deg).Add(pivot)
}

// ScaleAbout applies the homothety of factors (sx, sy) centred at pivot.
func ScaleAbout(p, pivot Point, sx, sy float64) Point {
	d := p.Sub(pivot)
	return Point{X: pivot.X + d.X*sx, Y: pivot.Y + d.Y*sy}
}

// Clamp limits v to [-limit, limit].
func Clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

// ClampVector shortens v to at most limit while keeping its direction.
func ClampVector(v Point, limit float64) Point {
	n := v.Norm()
	if n <= limit || n == 0 {
		return v
	}
	return v.Mul(limit / n)
}
