package geom

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Kind tags the variant held by a Shape.
type Kind uint8

const (
	KindDisk      Kind = iota // Center + Radius
	KindRectangle             // Center + HalfSize, rotated by Angle
	KindPolygon               // Vertices, open ring
)

// String returns the lowercase name used in exchange documents.
func (k Kind) String() string {
	switch k {
	case KindDisk:
		return "disk"
	case KindRectangle:
		return "rectangle"
	case KindPolygon:
		return "polygon"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "disk":
		return KindDisk, nil
	case "rectangle":
		return KindRectangle, nil
	case "polygon":
		return KindPolygon, nil
	}
	return 0, fmt.Errorf("unknown shape kind %q", s)
}

// diskSamples is the number of points used when a disk boundary is sampled.
const diskSamples = 32

// Shape is a closed variant over disks, rectangles and polygons. Only the
// fields relevant to Kind are meaningful.
type Shape struct {
	Kind Kind `json:"kind"`

	Center   Point   `json:"center"`              // disk, rectangle
	Radius   float64 `json:"radius,omitempty"`    // disk
	HalfSize Point   `json:"half_size,omitempty"` // rectangle half extents in its own frame
	Angle    float64 `json:"angle,omitempty"`     // rectangle rotation in degrees

	Vertices []Point `json:"vertices,omitempty"` // polygon, no repeated closing vertex

	Material     string  `json:"material"`
	YoungModulus float64 `json:"young_modulus"` // Pa
}

// NewDisk creates a disk shape.
func NewDisk(center Point, radius float64, material string, young float64) Shape {
	return Shape{Kind: KindDisk, Center: center, Radius: radius, Material: material, YoungModulus: young}
}

// NewRectangle creates an axis-aligned rectangle from its min and max corners.
func NewRectangle(min, max Point, material string, young float64) Shape {
	return Shape{
		Kind:         KindRectangle,
		Center:       Point{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2},
		HalfSize:     Point{X: math.Abs(max.X-min.X) / 2, Y: math.Abs(max.Y-min.Y) / 2},
		Material:     material,
		YoungModulus: young,
	}
}

// NewPolygon creates a polygon shape. The vertex slice is copied.
func NewPolygon(vertices []Point, material string, young float64) Shape {
	vs := make([]Point, len(vertices))
	copy(vs, vertices)
	return Shape{Kind: KindPolygon, Vertices: vs, Material: material, YoungModulus: young}
}

// Clone returns a deep copy.
func (s Shape) Clone() Shape {
	if s.Vertices != nil {
		vs := make([]Point, len(s.Vertices))
		copy(vs, s.Vertices)
		s.Vertices = vs
	}
	return s
}

// Corners returns the four rectangle corners counterclockwise, starting from
// the local min corner. Only valid for rectangles.
func (s Shape) Corners() [4]Point {
	hx, hy := s.HalfSize.X, s.HalfSize.Y
	local := [4]Point{{X: -hx, Y: -hy}, {X: hx, Y: -hy}, {X: hx, Y: hy}, {X: -hx, Y: hy}}
	var out [4]Point
	for i, p := range local {
		out[i] = RotateVector(p, s.Angle).Add(s.Center)
	}
	return out
}

// ring returns the polygonal boundary of a rectangle or polygon.
func (s Shape) ring() []Point {
	switch s.Kind {
	case KindRectangle:
		c := s.Corners()
		return c[:]
	case KindPolygon:
		return s.Vertices
	}
	return nil
}

// Area returns the enclosed area.
func (s Shape) Area() float64 {
	switch s.Kind {
	case KindDisk:
		return math.Pi * s.Radius * s.Radius
	case KindRectangle:
		return 4 * s.HalfSize.X * s.HalfSize.Y
	default:
		return math.Abs(signedArea(s.Vertices))
	}
}

// Centroid returns the area centroid.
func (s Shape) Centroid() Point {
	switch s.Kind {
	case KindDisk, KindRectangle:
		return s.Center
	default:
		return polygonCentroid(s.Vertices)
	}
}

// BoundaryPoints returns points on the shape boundary: rectangle corners,
// polygon vertices, or an evenly sampled disk circumference.
func (s Shape) BoundaryPoints() []Point {
	if s.Kind != KindDisk {
		r := s.ring()
		out := make([]Point, len(r))
		copy(out, r)
		return out
	}
	out := make([]Point, diskSamples)
	for i := range out {
		a := 2 * math.Pi * float64(i) / diskSamples
		out[i] = Point{X: s.Center.X + s.Radius*math.Cos(a), Y: s.Center.Y + s.Radius*math.Sin(a)}
	}
	return out
}

// Extent returns the projection interval of the shape onto a unit axis.
func (s Shape) Extent(axis Point) (lo, hi float64) {
	if s.Kind == KindDisk {
		c := s.Center.Dot(axis)
		return c - s.Radius, c + s.Radius
	}
	return project(s.ring(), axis)
}

// Bounds returns the axis-aligned bounding box.
func (s Shape) Bounds() Rect {
	if s.Kind == KindDisk {
		return r2.RectFromCenterSize(s.Center, Point{X: 2 * s.Radius, Y: 2 * s.Radius})
	}
	return r2.RectFromPoints(s.ring()...)
}

// Translate returns the shape shifted by d.
func (s Shape) Translate(d Point) Shape {
	out := s.Clone()
	out.Center = out.Center.Add(d)
	for i := range out.Vertices {
		out.Vertices[i] = out.Vertices[i].Add(d)
	}
	return out
}

// Rotate returns the shape rotated counterclockwise by deg degrees around pivot.
func (s Shape) Rotate(pivot Point, deg float64) Shape {
	out := s.Clone()
	out.Center = RotateAbout(out.Center, pivot, deg)
	if out.Kind == KindRectangle {
		out.Angle = WrapAngle(out.Angle + deg)
	}
	for i := range out.Vertices {
		out.Vertices[i] = RotateAbout(out.Vertices[i], pivot, deg)
	}
	return out
}

// ScaleAbout returns the shape under the homothety of factors (sx, sy)
// centred at pivot. Rectangle half extents scale along the rectangle's own
// axes, which is exact for axis-aligned rectangles. A disk stays a disk with
// its radius scaled by the geometric mean of the two factors.
func (s Shape) ScaleAbout(pivot Point, sx, sy float64) Shape {
	out := s.Clone()
	out.Center = ScaleAbout(out.Center, pivot, sx, sy)
	switch out.Kind {
	case KindDisk:
		out.Radius *= math.Sqrt(math.Abs(sx * sy))
	case KindRectangle:
		out.HalfSize = Point{X: out.HalfSize.X * math.Abs(sx), Y: out.HalfSize.Y * math.Abs(sy)}
	case KindPolygon:
		for i := range out.Vertices {
			out.Vertices[i] = ScaleAbout(out.Vertices[i], pivot, sx, sy)
		}
	}
	return out
}

// SecondMoment returns the polar second moment of area about pivot, i.e. the
// integral of |p - pivot|² over the shape.
func (s Shape) SecondMoment(pivot Point) float64 {
	switch s.Kind {
	case KindDisk:
		a := s.Area()
		d := s.Center.Sub(pivot)
		return a*s.Radius*s.Radius/2 + a*d.Dot(d)
	case KindRectangle:
		a := s.Area()
		w, h := 2*s.HalfSize.X, 2*s.HalfSize.Y
		d := s.Center.Sub(pivot)
		return a*(w*w+h*h)/12 + a*d.Dot(d)
	default:
		return polygonSecondMoment(s.Vertices, pivot)
	}
}

// Contains reports whether p lies inside the shape.
func (s Shape) Contains(p Point) bool {
	if s.Kind == KindDisk {
		d := p.Sub(s.Center)
		return d.Dot(d) <= s.Radius*s.Radius
	}
	return ringContains(s.ring(), p)
}

func signedArea(vs []Point) float64 {
	n := len(vs)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += vs[i].Cross(vs[j])
	}
	return area / 2
}

func polygonCentroid(vs []Point) Point {
	n := len(vs)
	if n == 0 {
		return Point{}
	}
	a := signedArea(vs)
	if math.Abs(a) < 1e-12 {
		// Degenerate: average of vertices.
		sum := Point{}
		for _, v := range vs {
			sum = sum.Add(v)
		}
		return sum.Mul(1 / float64(n))
	}
	cx, cy := 0.0, 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := vs[i].Cross(vs[j])
		cx += (vs[i].X + vs[j].X) * cross
		cy += (vs[i].Y + vs[j].Y) * cross
	}
	f := 1 / (6 * a)
	return Point{X: cx * f, Y: cy * f}
}

func polygonSecondMoment(vs []Point, pivot Point) float64 {
	n := len(vs)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		p := vs[i].Sub(pivot)
		q := vs[(i+1)%n].Sub(pivot)
		cross := p.Cross(q)
		sum += cross * (p.X*p.X + p.X*q.X + q.X*q.X + p.Y*p.Y + p.Y*q.Y + q.Y*q.Y)
	}
	return math.Abs(sum) / 12
}

func project(pts []Point, axis Point) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		d := p.Dot(axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// ringContains uses ray casting.
func ringContains(vs []Point, pt Point) bool {
	n := len(vs)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := vs[i], vs[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) &&
			pt.X < (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}
