package shapes

import (
	"fmt"
	"math"

	"github.com/talgya/crowdmech/internal/geom"
	"github.com/talgya/crowdmech/internal/materials"
	"github.com/talgya/crowdmech/internal/measures"
)

// Shape ids of the bike layout.
const (
	BikeFrame     = "frame"
	BikeHandlebar = "handlebar"
	BikeRider     = "rider"
)

// handlebarDepth is the fore-aft thickness of the handlebar rectangle in cm.
const handlebarDepth = 4.0

// Builder produces shape sets from measures. It is safe for concurrent use.
type Builder struct {
	materials *materials.Table
}

// NewBuilder creates a builder stamping stiffness from tbl.
func NewBuilder(tbl *materials.Table) *Builder {
	return &Builder{materials: tbl}
}

// DefaultBuilder uses the reference material table.
var DefaultBuilder = NewBuilder(materials.Default())

func (b *Builder) young(name string) (float64, error) {
	m, err := b.materials.Material(name)
	if err != nil {
		return 0, err
	}
	return m.YoungModulus, nil
}

// Build2D returns the horizontal silhouette for m, centred on the origin.
func (b *Builder) Build2D(m measures.Measures) (geom.ShapeSet, error) {
	switch m.Type() {
	case measures.Pedestrian:
		return b.pedestrian2D(m)
	case measures.Bike:
		return b.bike2D(m)
	}
	return geom.ShapeSet{}, fmt.Errorf("%w: agent type %s", measures.ErrInvalidMeasures, m.Type())
}

// Build3D returns the stacked cross-sections for a pedestrian. Bikes have no
// 3D body and yield an empty one.
func (b *Builder) Build3D(m measures.Measures) (geom.Body3D, error) {
	if m.Type() != measures.Pedestrian {
		return geom.Body3D{}, nil
	}
	sex, _ := m.Sex()
	ref, err := referenceFor(sex)
	if err != nil {
		return geom.Body3D{}, err
	}
	body, err := ref.body()
	if err != nil {
		return geom.Body3D{}, fmt.Errorf("reference body: %w", err)
	}
	young, err := b.young(materials.HumanClothes)
	if err != nil {
		return geom.Body3D{}, err
	}
	pivot := ref.silhouette(young).Centroid()
	sx := m.Value(measures.AttrBideltoidBreadth) / ref.breadth
	sy := m.Value(measures.AttrChestDepth) / ref.depth
	sz := m.Value(measures.AttrHeight) / ref.height
	body.ScaleAbout(pivot, sx, sy, sz)
	return body, nil
}

// pedestrian2D scales the reference disks about the silhouette centroid.
// Radii follow the depth factor; the factor applied to disk centres along x
// is solved so the extremal breadth matches the target.
func (b *Builder) pedestrian2D(m measures.Measures) (geom.ShapeSet, error) {
	sex, _ := m.Sex()
	ref, err := referenceFor(sex)
	if err != nil {
		return geom.ShapeSet{}, err
	}
	young, err := b.young(materials.HumanClothes)
	if err != nil {
		return geom.ShapeSet{}, err
	}
	set := ref.silhouette(young)
	pivot := set.Centroid()

	breadth := m.Value(measures.AttrBideltoidBreadth)
	sy := m.Value(measures.AttrChestDepth) / ref.depth
	kx, err := solveBreadthFactor(set, pivot, sy, breadth)
	if err != nil {
		return geom.ShapeSet{}, err
	}

	for _, e := range set.Entries() {
		d := e.Shape
		d.Center = geom.ScaleAbout(d.Center, pivot, kx, sy)
		d.Radius *= sy
		if err := set.Replace(e.ID, d); err != nil {
			return geom.ShapeSet{}, err
		}
	}
	return set, nil
}

// breadthAt returns the extremal x span of the disks of set after scaling
// centres by kx about pivot and radii by sr.
func breadthAt(set geom.ShapeSet, pivot geom.Point, kx, sr float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < set.Len(); i++ {
		d := set.At(i).Shape
		x := pivot.X + kx*(d.Center.X-pivot.X)
		r := d.Radius * sr
		lo = math.Min(lo, x-r)
		hi = math.Max(hi, x+r)
	}
	return hi - lo
}

// solveBreadthFactor bisects the non-decreasing breadth(kx) for the target.
func solveBreadthFactor(set geom.ShapeSet, pivot geom.Point, sr, target float64) (float64, error) {
	lo, hi := 0.0, 1.0
	if min := breadthAt(set, pivot, 0, sr); target < min-1e-9 {
		return 0, fmt.Errorf("%w: breadth %.2f below %.2f allowed by chest depth", measures.ErrInvalidMeasures, target, min)
	}
	for breadthAt(set, pivot, hi, sr) < target {
		hi *= 2
		if hi > 1e6 {
			return 0, fmt.Errorf("%w: breadth %.2f unreachable", measures.ErrInvalidMeasures, target)
		}
	}
	for i := 0; i < 200 && hi-lo > 1e-15; i++ {
		mid := (lo + hi) / 2
		if breadthAt(set, pivot, mid, sr) < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi, nil
}

// bike2D lays out a frame along y with the handlebar ahead of the rider,
// then recentres the set on its centroid.
func (b *Builder) bike2D(m measures.Measures) (geom.ShapeSet, error) {
	iron, err := b.young(materials.Iron)
	if err != nil {
		return geom.ShapeSet{}, err
	}
	cloth, err := b.young(materials.HumanClothes)
	if err != nil {
		return geom.ShapeSet{}, err
	}

	wheel := m.Value(measures.AttrWheelWidth)
	length := m.Value(measures.AttrTotalLength)
	bar := m.Value(measures.AttrHandlebarLength)
	tube := m.Value(measures.AttrTopTubeLength)

	riderR := bar / 4
	barY := tube / 2
	seatY := -tube / 2

	set, err := geom.NewShapeSet(
		geom.Entry{ID: BikeFrame, Shape: geom.NewRectangle(geom.Pt(-wheel/2, -length/2), geom.Pt(wheel/2, length/2), materials.Iron, iron)},
		geom.Entry{ID: BikeHandlebar, Shape: geom.NewRectangle(geom.Pt(-bar/2, barY-handlebarDepth/2), geom.Pt(bar/2, barY+handlebarDepth/2), materials.Iron, iron)},
		geom.Entry{ID: BikeRider, Shape: geom.NewDisk(geom.Pt(0, seatY+riderR/2), riderR, materials.HumanClothes, cloth)},
	)
	if err != nil {
		return geom.ShapeSet{}, err
	}
	set.Translate(set.Centroid().Mul(-1))
	return set, nil
}
