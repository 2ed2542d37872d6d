// Package shapes builds agent body geometry by scaling fixed reference
// bodies to a target set of measures.
package shapes

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/talgya/crowdmech/internal/geom"
	"github.com/talgya/crowdmech/internal/materials"
	"github.com/talgya/crowdmech/internal/measures"
)

// ErrInvalidSex is returned when no reference body exists for a sex value.
var ErrInvalidSex = errors.New("invalid sex")

// sectionSides is the polygon resolution of reference cross-section ellipses.
const sectionSides = 24

// refDisk is one disk of a reference silhouette, centred on the shoulder line.
type refDisk struct {
	x, r float64
}

// refEllipse is one closed region of a reference cross-section.
type refEllipse struct {
	x, y, rx, ry float64
}

// refLayer is a cross-section of the reference body at height h.
type refLayer struct {
	h       float64
	regions []refEllipse
}

// reference is the unscaled template body of one sex. The silhouette centroid
// is the origin.
type reference struct {
	breadth, depth, height float64
	disks                  []refDisk
	layers                 []refLayer
}

// references holds the per-sex templates. Silhouette breadth and depth are
// exactly the extremal spans of the disks.
var references = map[measures.Sex]reference{
	measures.Male: {
		breadth: 51.0,
		depth:   26.0,
		height:  177.0,
		disks: []refDisk{
			{x: -19.0, r: 6.5},
			{x: -9.5, r: 11.0},
			{x: 0, r: 13.0},
			{x: 9.5, r: 11.0},
			{x: 19.0, r: 6.5},
		},
		layers: []refLayer{
			{h: 0, regions: []refEllipse{{-10, 3, 4.5, 12}, {10, 3, 4.5, 12}}},
			{h: 10, regions: []refEllipse{{-10, 0, 4, 4}, {10, 0, 4, 4}}},
			{h: 45, regions: []refEllipse{{-10, 0, 5.5, 6}, {10, 0, 5.5, 6}}},
			{h: 80, regions: []refEllipse{{-9.5, 0, 7, 7}, {9.5, 0, 7, 7}}},
			{h: 95, regions: []refEllipse{{-8.5, 0, 8, 8.5}, {8.5, 0, 8, 8.5}}},
			{h: 105, regions: []refEllipse{{0, 0, 17, 11}}},
			{h: 120, regions: []refEllipse{{0, 0, 15, 11.5}, {-20, 0, 3.5, 4}, {20, 0, 3.5, 4}}},
			{h: 135, regions: []refEllipse{{0, 0, 16.5, 13}, {-21, 0, 4.5, 5}, {21, 0, 4.5, 5}}},
			{h: 145, regions: []refEllipse{{0, 0, 25.5, 12}}},
			{h: 155, regions: []refEllipse{{0, 0, 6, 6}}},
			{h: 165, regions: []refEllipse{{0, 0, 8, 10}}},
			{h: 177, regions: []refEllipse{{0, 0, 3, 3}}},
		},
	},
	measures.Female: {
		breadth: 45.0,
		depth:   24.0,
		height:  163.5,
		disks: []refDisk{
			{x: -16.5, r: 6.0},
			{x: -8.5, r: 10.0},
			{x: 0, r: 12.0},
			{x: 8.5, r: 10.0},
			{x: 16.5, r: 6.0},
		},
		layers: []refLayer{
			{h: 0, regions: []refEllipse{{-9, 3, 4, 11}, {9, 3, 4, 11}}},
			{h: 9, regions: []refEllipse{{-9, 0, 3.5, 3.5}, {9, 0, 3.5, 3.5}}},
			{h: 42, regions: []refEllipse{{-9, 0, 5, 5.5}, {9, 0, 5, 5.5}}},
			{h: 74, regions: []refEllipse{{-9, 0, 7, 7}, {9, 0, 7, 7}}},
			{h: 88, regions: []refEllipse{{-8.5, 0, 8.5, 9}, {8.5, 0, 8.5, 9}}},
			{h: 97, regions: []refEllipse{{0, 0, 18, 11.5}}},
			{h: 110, regions: []refEllipse{{0, 0, 13.5, 10}, {-18, 0, 3, 3.5}, {18, 0, 3, 3.5}}},
			{h: 124, regions: []refEllipse{{0, 0, 15, 12}, {-18.5, 0, 4, 4.5}, {18.5, 0, 4, 4.5}}},
			{h: 133, regions: []refEllipse{{0, 0, 22.5, 11}}},
			{h: 142, regions: []refEllipse{{0, 0, 5.5, 5.5}}},
			{h: 152, regions: []refEllipse{{0, 0, 7.5, 9.5}}},
			{h: 163.5, regions: []refEllipse{{0, 0, 2.5, 2.5}}},
		},
	},
}

// referenceFor looks up the template of a sex.
func referenceFor(sex measures.Sex) (reference, error) {
	ref, ok := references[sex]
	if !ok {
		return reference{}, fmt.Errorf("%w: no reference body for %s", ErrInvalidSex, sex)
	}
	return ref, nil
}

// silhouette builds the unscaled 2D reference shape set.
func (r reference) silhouette(young float64) geom.ShapeSet {
	var s geom.ShapeSet
	for i, d := range r.disks {
		// ids are unique by construction
		_ = s.Add(fmt.Sprintf("disk%d", i), geom.NewDisk(geom.Pt(d.x, 0), d.r, materials.HumanClothes, young))
	}
	return s
}

// body builds the unscaled 3D reference body.
func (r reference) body() (geom.Body3D, error) {
	layers := make([]geom.Layer, len(r.layers))
	for i, l := range r.layers {
		for _, e := range l.regions {
			ring := geom.RingFromPoints(geom.Ellipse(geom.Pt(e.x, e.y), e.rx, e.ry, sectionSides))
			layers[i].Section = append(layers[i].Section, orb.Polygon{ring})
		}
		layers[i].Height = l.h
	}
	return geom.NewBody3D(layers...)
}
