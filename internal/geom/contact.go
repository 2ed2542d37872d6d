package geom

import (
	"math"
	"sort"
)

const eps = 1e-12

// Contact describes how two shapes sit relative to each other.
type Contact struct {
	Gap    float64 // signed separation; negative values are penetration depth
	Normal Point   // unit vector from the first shape towards the second
	Point  Point   // approximate contact location
}

// Overlapping reports whether the shapes penetrate by more than tol.
func (c Contact) Overlapping(tol float64) bool {
	return c.Gap < -tol
}

// Separation computes the signed gap and contact normal between a and b.
// Polygons and rectangles are handled through their convex hulls when they
// overlap. When the centres coincide the normal is fallback, which callers
// derive from a deterministic ordering so the result never divides by zero.
func Separation(a, b Shape, fallback Point) Contact {
	fallback = unitOr(fallback, axisX)
	switch {
	case a.Kind == KindDisk && b.Kind == KindDisk:
		return diskDisk(a, b, fallback)
	case a.Kind == KindDisk:
		return diskPolygon(a, b.ring(), fallback)
	case b.Kind == KindDisk:
		c := diskPolygon(b, a.ring(), fallback.Mul(-1))
		c.Normal = c.Normal.Mul(-1)
		return c
	default:
		return polygonPolygon(a.ring(), b.ring(), fallback)
	}
}

// Overlaps reports whether a and b penetrate by more than tol.
func Overlaps(a, b Shape, tol float64) bool {
	return Separation(a, b, axisX).Overlapping(tol)
}

// SetsOverlap reports whether any shape of a penetrates any shape of b by
// more than tol.
func SetsOverlap(a, b ShapeSet, tol float64) bool {
	if !a.Bounds().Intersects(b.Bounds()) {
		return false
	}
	for _, ea := range a.entries {
		for _, eb := range b.entries {
			if Overlaps(ea.Shape, eb.Shape, tol) {
				return true
			}
		}
	}
	return false
}

func diskDisk(a, b Shape, fallback Point) Contact {
	d := b.Center.Sub(a.Center)
	dist := d.Norm()
	n := fallback
	if dist > eps {
		n = d.Mul(1 / dist)
	}
	gap := dist - a.Radius - b.Radius
	return Contact{
		Gap:    gap,
		Normal: n,
		Point:  a.Center.Add(n.Mul(a.Radius + gap/2)),
	}
}

// diskPolygon returns the contact with the normal pointing from the disk to
// the polygon.
func diskPolygon(disk Shape, ring []Point, fallback Point) Contact {
	c := disk.Center
	q, dist := closestOnRing(ring, c)
	if ringContains(ring, c) {
		// The disk escapes through q, so the polygon is pushed the other way.
		n := fallback
		if dist > eps {
			n = c.Sub(q).Mul(1 / dist)
		}
		return Contact{Gap: -(dist + disk.Radius), Normal: n, Point: q}
	}
	n := fallback
	if dist > eps {
		n = q.Sub(c).Mul(1 / dist)
	}
	return Contact{Gap: dist - disk.Radius, Normal: n, Point: q}
}

func polygonPolygon(pa, pb []Point, fallback Point) Contact {
	ha, hb := convexHull(pa), convexHull(pb)
	if depth, axis, overlapping := satOverlap(ha, hb); overlapping {
		ca, cb := polygonCentroid(ha), polygonCentroid(hb)
		s := cb.Sub(ca).Dot(axis)
		if math.Abs(s) < eps {
			s = fallback.Dot(axis)
		}
		if s < 0 {
			axis = axis.Mul(-1)
		}
		return Contact{Gap: -depth, Normal: axis, Point: ca.Add(cb).Mul(0.5)}
	}
	dist, qa, qb := closestBetween(pa, pb)
	n := fallback
	if dist > eps {
		n = qb.Sub(qa).Mul(1 / dist)
	}
	return Contact{Gap: dist, Normal: n, Point: qa.Add(qb).Mul(0.5)}
}

// satOverlap runs the separating axis test on two convex rings. It returns
// the smallest penetration depth and its axis when no separating axis exists.
func satOverlap(a, b []Point) (float64, Point, bool) {
	best := math.Inf(1)
	var bestAxis Point
	for _, ring := range [2][]Point{a, b} {
		n := len(ring)
		for i := 0; i < n; i++ {
			edge := ring[(i+1)%n].Sub(ring[i])
			if edge.Norm() < eps {
				continue
			}
			axis := edge.Ortho().Normalize()
			loA, hiA := project(a, axis)
			loB, hiB := project(b, axis)
			o := math.Min(hiA-loB, hiB-loA)
			if o <= 0 {
				return 0, Point{}, false
			}
			if o < best {
				best, bestAxis = o, axis
			}
		}
	}
	if math.IsInf(best, 1) {
		return 0, Point{}, false
	}
	return best, bestAxis, true
}

// convexHull returns the counterclockwise hull using the monotone chain.
func convexHull(pts []Point) []Point {
	if len(pts) < 3 {
		out := make([]Point, len(pts))
		copy(out, pts)
		return out
	}
	ps := make([]Point, len(pts))
	copy(ps, pts)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		return ps[i].Y < ps[j].Y
	})
	turn := func(o, a, b Point) float64 { return a.Sub(o).Cross(b.Sub(o)) }
	hull := make([]Point, 0, 2*len(ps))
	for _, p := range ps {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(ps) - 2; i >= 0; i-- {
		p := ps[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func closestOnSegment(a, b, p Point) Point {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < eps {
		return a
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Mul(t))
}

func closestOnRing(ring []Point, p Point) (Point, float64) {
	best := math.Inf(1)
	var q Point
	n := len(ring)
	for i := 0; i < n; i++ {
		c := closestOnSegment(ring[i], ring[(i+1)%n], p)
		if d := c.Sub(p).Norm(); d < best {
			best, q = d, c
		}
	}
	return q, best
}

// closestBetween returns the distance between two disjoint rings and the
// closest point on each.
func closestBetween(pa, pb []Point) (float64, Point, Point) {
	best := math.Inf(1)
	var qa, qb Point
	for _, v := range pa {
		if q, d := closestOnRing(pb, v); d < best {
			best, qa, qb = d, v, q
		}
	}
	for _, v := range pb {
		if q, d := closestOnRing(pa, v); d < best {
			best, qa, qb = d, q, v
		}
	}
	return best, qa, qb
}

func unitOr(v, dflt Point) Point {
	if n := v.Norm(); n > eps {
		return v.Mul(1 / n)
	}
	return dflt
}
