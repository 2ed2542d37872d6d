package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrGeometryMismatch is returned when a measurement is asked of an empty or
// degenerate shape set.
var ErrGeometryMismatch = errors.New("geometry mismatch")

// degenerateArea is the area below which a shape set has no measurable extent.
const degenerateArea = 1e-12

var (
	axisX = Point{X: 1, Y: 0}
	axisY = Point{X: 0, Y: 1}
)

// ComputeBideltoidBreadth returns the extremal horizontal span (max x − min x)
// of the set's boundary.
func ComputeBideltoidBreadth(s ShapeSet) (float64, error) {
	return span(s, axisX)
}

// ComputeChestDepth returns the extremal vertical span (max y − min y) of the
// set's boundary.
func ComputeChestDepth(s ShapeSet) (float64, error) {
	return span(s, axisY)
}

func span(s ShapeSet, axis Point) (float64, error) {
	if s.Len() == 0 {
		return 0, fmt.Errorf("measure empty shape set: %w", ErrGeometryMismatch)
	}
	if s.Area() < degenerateArea {
		return 0, fmt.Errorf("measure zero-area shape set: %w", ErrGeometryMismatch)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, e := range s.entries {
		l, h := e.Shape.Extent(axis)
		lo = math.Min(lo, l)
		hi = math.Max(hi, h)
	}
	return hi - lo, nil
}

// MomentOfInertia returns the polar moment of inertia about the set centroid
// for a uniform density of mass/area over the covered region, so overlapping
// shapes count once. The result is in mass·length² of the inputs; a unit
// square of mass w gives w/6.
func MomentOfInertia(s ShapeSet, mass float64) (float64, error) {
	if s.Len() == 0 {
		return 0, fmt.Errorf("moment of inertia: %w", ErrGeometryMismatch)
	}
	if s.Len() == 1 {
		sh := s.entries[0].Shape
		area := sh.Area()
		if area < degenerateArea {
			return 0, fmt.Errorf("moment of inertia: %w", ErrGeometryMismatch)
		}
		return mass / area * sh.SecondMoment(sh.Centroid()), nil
	}
	m := unionMoments(s, s.Bounds().Center())
	if m.A < degenerateArea {
		return 0, fmt.Errorf("moment of inertia: %w", ErrGeometryMismatch)
	}
	return mass / m.A * m.centralJ(), nil
}

// BoundingRadius returns the largest distance from pivot to any boundary
// point of the set. Rotating the set about pivot never leaves that circle.
func BoundingRadius(s ShapeSet, pivot Point) float64 {
	r := 0.0
	for _, e := range s.entries {
		sh := e.Shape
		if sh.Kind == KindDisk {
			r = math.Max(r, sh.Center.Sub(pivot).Norm()+sh.Radius)
			continue
		}
		for _, p := range sh.ring() {
			r = math.Max(r, p.Sub(pivot).Norm())
		}
	}
	return r
}
