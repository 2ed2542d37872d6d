package geom

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Layer is one horizontal cross-section of a 3D body at Height cm.
type Layer struct {
	Height  float64          `json:"height"`
	Section orb.MultiPolygon `json:"section"`
}

// Body3D is a stack of cross-sections with strictly increasing heights.
type Body3D struct {
	layers []Layer
}

// NewBody3D sorts the layers by height and rejects repeated heights.
func NewBody3D(layers ...Layer) (Body3D, error) {
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i] = Layer{Height: l.Height, Section: cloneMulti(l.Section)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Height < out[j].Height })
	for i := 1; i < len(out); i++ {
		if out[i].Height == out[i-1].Height {
			return Body3D{}, fmt.Errorf("duplicate layer height %g", out[i].Height)
		}
	}
	return Body3D{layers: out}, nil
}

// Len returns the number of layers.
func (b Body3D) Len() int {
	return len(b.layers)
}

// Layers returns a deep copy of the layers, lowest first.
func (b Body3D) Layers() []Layer {
	out := make([]Layer, len(b.layers))
	for i, l := range b.layers {
		out[i] = Layer{Height: l.Height, Section: cloneMulti(l.Section)}
	}
	return out
}

// Clone returns an independent copy.
func (b Body3D) Clone() Body3D {
	return Body3D{layers: b.Layers()}
}

// Height returns the vertical extent between the lowest and highest layer.
func (b Body3D) Height() float64 {
	if len(b.layers) == 0 {
		return 0
	}
	return b.layers[len(b.layers)-1].Height - b.layers[0].Height
}

// MinHeight returns the lowest layer height.
func (b Body3D) MinHeight() float64 {
	if len(b.layers) == 0 {
		return 0
	}
	return b.layers[0].Height
}

// Centroid returns the area-weighted horizontal centroid over all layers.
func (b Body3D) Centroid() Point {
	total := 0.0
	acc := Point{}
	for _, l := range b.layers {
		c, a := planar.CentroidArea(l.Section)
		a = math.Abs(a)
		acc = acc.Add(Point{X: c[0], Y: c[1]}.Mul(a))
		total += a
	}
	if total == 0 {
		return Point{}
	}
	return acc.Mul(1 / total)
}

// Bounds returns the horizontal bounding box over all layers.
func (b Body3D) Bounds() Rect {
	var pts []Point
	for _, l := range b.layers {
		bd := l.Section.Bound()
		pts = append(pts, Point{X: bd.Min[0], Y: bd.Min[1]}, Point{X: bd.Max[0], Y: bd.Max[1]})
	}
	if len(pts) == 0 {
		return Rect{}
	}
	return r2.RectFromPoints(pts...)
}

// Translate shifts the sections horizontally by (dx, dy) and every height by dz.
func (b *Body3D) Translate(dx, dy, dz float64) {
	for i := range b.layers {
		b.layers[i].Height += dz
		mapMulti(b.layers[i].Section, func(p Point) Point {
			return Point{X: p.X + dx, Y: p.Y + dy}
		})
	}
}

// Rotate rotates every section by deg degrees around pivot. Heights are unchanged.
func (b *Body3D) Rotate(pivot Point, deg float64) {
	for i := range b.layers {
		mapMulti(b.layers[i].Section, func(p Point) Point {
			return RotateAbout(p, pivot, deg)
		})
	}
}

// ScaleAbout scales the sections by (sx, sy) around pivot and multiplies
// every height by sz.
func (b *Body3D) ScaleAbout(pivot Point, sx, sy, sz float64) {
	for i := range b.layers {
		b.layers[i].Height *= sz
		mapMulti(b.layers[i].Section, func(p Point) Point {
			return ScaleAbout(p, pivot, sx, sy)
		})
	}
	if sz < 0 {
		sort.Slice(b.layers, func(i, j int) bool { return b.layers[i].Height < b.layers[j].Height })
	}
}

// SectionArea returns the cross-section area of layer i.
func (b Body3D) SectionArea(i int) float64 {
	return math.Abs(planar.Area(b.layers[i].Section))
}

func mapMulti(mp orb.MultiPolygon, f func(Point) Point) {
	for _, poly := range mp {
		for _, ring := range poly {
			for k, p := range ring {
				q := f(Point{X: p[0], Y: p[1]})
				ring[k] = orb.Point{q.X, q.Y}
			}
		}
	}
}

func cloneMulti(mp orb.MultiPolygon) orb.MultiPolygon {
	if mp == nil {
		return nil
	}
	return mp.Clone()
}

// RingFromPoints converts a vertex list to a closed orb ring.
func RingFromPoints(pts []Point) orb.Ring {
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, orb.Point{p.X, p.Y})
	}
	if len(pts) > 0 {
		ring = append(ring, ring[0])
	}
	return ring
}

// Ellipse returns an n-gon approximation of an axis-aligned ellipse.
func Ellipse(center Point, rx, ry float64, n int) []Point {
	pts := make([]Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point{X: center.X + rx*math.Cos(a), Y: center.Y + ry*math.Sin(a)}
	}
	return pts
}
