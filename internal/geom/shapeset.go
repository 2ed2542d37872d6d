package geom

import (
	"fmt"

	"github.com/golang/geo/r2"
)

// Entry is one named shape inside a ShapeSet.
type Entry struct {
	ID    string `json:"id"`
	Shape Shape  `json:"shape"`
}

// ShapeSet is an ordered collection of uniquely named shapes making up one
// body at one level of detail. Transform methods mutate the set in place.
type ShapeSet struct {
	entries []Entry
	index   map[string]int
}

// NewShapeSet builds a set from entries, rejecting duplicate ids.
func NewShapeSet(entries ...Entry) (ShapeSet, error) {
	var s ShapeSet
	for _, e := range entries {
		if err := s.Add(e.ID, e.Shape); err != nil {
			return ShapeSet{}, err
		}
	}
	return s, nil
}

// Add appends a shape under id.
func (s *ShapeSet) Add(id string, shape Shape) error {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, dup := s.index[id]; dup {
		return fmt.Errorf("duplicate shape id %q", id)
	}
	s.index[id] = len(s.entries)
	s.entries = append(s.entries, Entry{ID: id, Shape: shape.Clone()})
	return nil
}

// Len returns the number of shapes.
func (s ShapeSet) Len() int {
	return len(s.entries)
}

// Get returns the shape stored under id.
func (s ShapeSet) Get(id string) (Shape, bool) {
	i, ok := s.index[id]
	if !ok {
		return Shape{}, false
	}
	return s.entries[i].Shape.Clone(), true
}

// IDs returns the shape ids in insertion order.
func (s ShapeSet) IDs() []string {
	ids := make([]string, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.ID
	}
	return ids
}

// Entries returns a deep copy of the entries in insertion order.
func (s ShapeSet) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = Entry{ID: e.ID, Shape: e.Shape.Clone()}
	}
	return out
}

// At returns the i-th entry without copying vertex storage. Callers must not
// modify the returned shape's vertices.
func (s ShapeSet) At(i int) Entry {
	return s.entries[i]
}

// Clone returns an independent copy.
func (s ShapeSet) Clone() ShapeSet {
	out, _ := NewShapeSet(s.entries...)
	return out
}

// Area returns the area covered by the set. Overlapping shapes count once.
func (s ShapeSet) Area() float64 {
	if len(s.entries) == 0 {
		return 0
	}
	return unionMoments(s, s.Bounds().Center()).A
}

// Centroid returns the centroid of the region covered by the set. Rigid
// motions move it exactly like a point.
func (s ShapeSet) Centroid() Point {
	if len(s.entries) == 0 {
		return Point{}
	}
	ref := s.Bounds().Center()
	m := unionMoments(s, ref)
	if m.A <= 0 {
		acc := Point{}
		for _, e := range s.entries {
			acc = acc.Add(e.Shape.Centroid())
		}
		return acc.Mul(1 / float64(len(s.entries)))
	}
	return ref.Add(m.centroid())
}

// Bounds returns the bounding box of all shapes.
func (s ShapeSet) Bounds() Rect {
	b := r2.EmptyRect()
	for _, e := range s.entries {
		b = b.Union(e.Shape.Bounds())
	}
	return b
}

// Translate shifts every shape by d.
func (s *ShapeSet) Translate(d Point) {
	for i := range s.entries {
		s.entries[i].Shape = s.entries[i].Shape.Translate(d)
	}
}

// Rotate rotates every shape by deg degrees around pivot.
func (s *ShapeSet) Rotate(pivot Point, deg float64) {
	for i := range s.entries {
		s.entries[i].Shape = s.entries[i].Shape.Rotate(pivot, deg)
	}
}

// ScaleAbout applies a homothety to every shape.
func (s *ShapeSet) ScaleAbout(pivot Point, sx, sy float64) {
	for i := range s.entries {
		s.entries[i].Shape = s.entries[i].Shape.ScaleAbout(pivot, sx, sy)
	}
}

// Replace swaps the shape stored under id.
func (s *ShapeSet) Replace(id string, shape Shape) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("unknown shape id %q", id)
	}
	s.entries[i].Shape = shape.Clone()
	return nil
}
