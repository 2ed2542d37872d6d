package geom

import (
	"math"
	"sort"
)

// moments holds area integrals of a region about a reference point:
// area, first moments ∫x and ∫y, and the polar second moment ∫(x²+y²).
type moments struct {
	A, Sx, Sy, J float64
}

func (m *moments) add(o moments) {
	m.A += o.A
	m.Sx += o.Sx
	m.Sy += o.Sy
	m.J += o.J
}

// centroid returns the region centroid relative to the reference point.
func (m moments) centroid() Point {
	return Point{X: m.Sx / m.A, Y: m.Sy / m.A}
}

// centralJ returns the polar second moment about the centroid.
func (m moments) centralJ() float64 {
	c := m.centroid()
	return m.J - m.A*c.Dot(c)
}

// unionMoments integrates over the union of the set's shapes, so regions
// covered by several shapes count once. By Green's theorem the integrals are
// sums over the outline of the union: the pieces of each shape boundary that
// are not covered by another shape. Coordinates are taken relative to ref.
func unionMoments(s ShapeSet, ref Point) moments {
	shapes := make([]Shape, 0, len(s.entries))
	for _, e := range s.entries {
		sh := e.Shape.Translate(ref.Mul(-1))
		if sh.Kind != KindDisk {
			sh.Vertices = ccwRing(sh.ring())
			if len(sh.Vertices) < 3 {
				continue
			}
			sh.Kind = KindPolygon
		} else if sh.Radius <= 0 {
			continue
		}
		shapes = append(shapes, sh)
	}

	eps := 1e-9 * (1 + s.Bounds().Size().Norm())
	var m moments
	for i, sh := range shapes {
		if sh.Kind == KindDisk {
			m.add(diskOutline(shapes, i, eps))
		} else {
			m.add(polygonOutline(shapes, i, eps))
		}
	}
	return m
}

// exposed reports whether the boundary point at of shape i, with outward
// normal n, lies on the union outline. A boundary piece shared with a lower
// indexed shape in the same orientation belongs to that shape.
func exposed(shapes []Shape, i int, at, n Point, eps float64) bool {
	out := at.Add(n.Mul(eps))
	in := at.Sub(n.Mul(eps))
	for j, o := range shapes {
		if j == i {
			continue
		}
		if o.Contains(out) {
			return false
		}
		if j < i && o.Contains(in) && onBoundary(o, at, eps) {
			return false
		}
	}
	return true
}

func onBoundary(s Shape, p Point, eps float64) bool {
	if s.Kind == KindDisk {
		return math.Abs(p.Sub(s.Center).Norm()-s.Radius) <= 2*eps
	}
	_, d := closestOnRing(s.Vertices, p)
	return d <= 2*eps
}

func diskOutline(shapes []Shape, i int, eps float64) moments {
	d := shapes[i]
	var cuts []float64
	for j, o := range shapes {
		if j == i {
			continue
		}
		var pts []Point
		if o.Kind == KindDisk {
			pts = circleCircle(d.Center, d.Radius, o.Center, o.Radius)
		} else {
			n := len(o.Vertices)
			for k := range o.Vertices {
				pts = append(pts, circleSegment(d.Center, d.Radius, o.Vertices[k], o.Vertices[(k+1)%n])...)
			}
		}
		for _, p := range pts {
			v := p.Sub(d.Center)
			cuts = append(cuts, math.Mod(math.Atan2(v.Y, v.X)+2*math.Pi, 2*math.Pi))
		}
	}
	if len(cuts) == 0 {
		cuts = []float64{0}
	}
	sort.Float64s(cuts)

	var m moments
	for k, t1 := range cuts {
		t2 := cuts[0] + 2*math.Pi
		if k+1 < len(cuts) {
			t2 = cuts[k+1]
		}
		if t2-t1 <= 0 {
			continue
		}
		mid := (t1 + t2) / 2
		n := Point{X: math.Cos(mid), Y: math.Sin(mid)}
		if exposed(shapes, i, d.Center.Add(n.Mul(d.Radius)), n, eps) {
			m.add(arcMoments(d.Center, d.Radius, t1, t2))
		}
	}
	return m
}

func polygonOutline(shapes []Shape, i int, eps float64) moments {
	ring := shapes[i].Vertices
	var m moments
	for k := range ring {
		p, q := ring[k], ring[(k+1)%len(ring)]
		e := q.Sub(p)
		length := e.Norm()
		if length == 0 {
			continue
		}
		ts := []float64{0, 1}
		for j, o := range shapes {
			if j == i {
				continue
			}
			if o.Kind == KindDisk {
				for _, x := range circleSegment(o.Center, o.Radius, p, q) {
					ts = append(ts, x.Sub(p).Dot(e)/(length*length))
				}
				continue
			}
			n := len(o.Vertices)
			for v := range o.Vertices {
				ts = append(ts, segmentCuts(p, q, o.Vertices[v], o.Vertices[(v+1)%n], eps)...)
			}
		}
		sort.Float64s(ts)

		normal := Point{X: e.Y / length, Y: -e.X / length}
		for c := 0; c+1 < len(ts); c++ {
			t1, t2 := math.Max(ts[c], 0), math.Min(ts[c+1], 1)
			if t2-t1 <= 0 {
				continue
			}
			a, b := p.Add(e.Mul(t1)), p.Add(e.Mul(t2))
			if exposed(shapes, i, a.Add(b).Mul(0.5), normal, eps) {
				m.add(segmentMoments(a, b))
			}
		}
	}
	return m
}

// segmentMoments is the contribution of the directed segment a→b.
func segmentMoments(a, b Point) moments {
	dx, dy := b.X-a.X, b.Y-a.Y
	return moments{
		A:  a.Cross(b) / 2,
		Sx: dy * (a.X*a.X + a.X*b.X + b.X*b.X) / 6,
		Sy: -dx * (a.Y*a.Y + a.Y*b.Y + b.Y*b.Y) / 6,
		J: (dy*(a.X*a.X*a.X+a.X*a.X*b.X+a.X*b.X*b.X+b.X*b.X*b.X) -
			dx*(a.Y*a.Y*a.Y+a.Y*a.Y*b.Y+a.Y*b.Y*b.Y+b.Y*b.Y*b.Y)) / 12,
	}
}

// arcMoments is the contribution of the counter-clockwise arc of the circle
// (c, r) from angle t1 to t2.
func arcMoments(c Point, r, t1, t2 float64) moments {
	f := func(t float64) moments {
		s, co := math.Sin(t), math.Cos(t)
		s2, s4 := math.Sin(2*t), math.Sin(4*t)
		ic, is := s, -co
		ic2, is2 := t/2+s2/4, t/2-s2/4
		ic3, is3 := s-s*s*s/3, -co+co*co*co/3
		ic4, is4 := 3*t/8+s2/4+s4/32, 3*t/8-s2/4+s4/32
		return moments{
			A:  (r*c.X*ic - r*c.Y*(co) + r*r*t) / 2,
			Sx: r * (c.X*c.X*ic + 2*c.X*r*ic2 + r*r*ic3) / 2,
			Sy: r * (c.Y*c.Y*is + 2*c.Y*r*is2 + r*r*is3) / 2,
			J: r * (c.X*c.X*c.X*ic + 3*c.X*c.X*r*ic2 + 3*c.X*r*r*ic3 + r*r*r*ic4 +
				c.Y*c.Y*c.Y*is + 3*c.Y*c.Y*r*is2 + 3*c.Y*r*r*is3 + r*r*r*is4) / 3,
		}
	}
	hi, lo := f(t2), f(t1)
	return moments{A: hi.A - lo.A, Sx: hi.Sx - lo.Sx, Sy: hi.Sy - lo.Sy, J: hi.J - lo.J}
}

// ccwRing returns a copy of ring in counter-clockwise order, or nil when it
// encloses no area.
func ccwRing(ring []Point) []Point {
	a := signedArea(ring)
	if a == 0 {
		return nil
	}
	out := append([]Point(nil), ring...)
	if a < 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func circleCircle(c1 Point, r1 float64, c2 Point, r2 float64) []Point {
	v := c2.Sub(c1)
	d := v.Norm()
	if d == 0 || d > r1+r2 || d < math.Abs(r1-r2) {
		return nil
	}
	a := (r1*r1 - r2*r2 + d*d) / (2 * d)
	h := math.Sqrt(math.Max(r1*r1-a*a, 0))
	u := v.Mul(1 / d)
	mid := c1.Add(u.Mul(a))
	off := u.Ortho().Mul(h)
	return []Point{mid.Add(off), mid.Sub(off)}
}

// circleSegment returns the points where segment p→q meets the circle.
func circleSegment(c Point, r float64, p, q Point) []Point {
	d := q.Sub(p)
	f := p.Sub(c)
	a := d.Dot(d)
	if a == 0 {
		return nil
	}
	b := 2 * f.Dot(d)
	disc := b*b - 4*a*(f.Dot(f)-r*r)
	if disc < 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	var out []Point
	for _, t := range []float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
		if t >= 0 && t <= 1 {
			out = append(out, p.Add(d.Mul(t)))
		}
	}
	return out
}

// segmentCuts returns the parameters along p→q where it meets segment a→b.
// Collinear overlaps cut at the projected endpoints of a→b.
func segmentCuts(p, q, a, b Point, eps float64) []float64 {
	r := q.Sub(p)
	s := b.Sub(a)
	rr := r.Dot(r)
	denom := r.Cross(s)
	ap := a.Sub(p)
	if math.Abs(denom) <= 1e-12*rr {
		if math.Abs(ap.Cross(r)) > eps*math.Sqrt(rr) {
			return nil
		}
		return []float64{ap.Dot(r) / rr, b.Sub(p).Dot(r) / rr}
	}
	t := ap.Cross(s) / denom
	u := ap.Cross(r) / denom
	if u < 0 || u > 1 {
		return nil
	}
	return []float64{t}
}
