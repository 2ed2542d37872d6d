package agents

import (
	"github.com/talgya/crowdmech/internal/geom"
)

// Rotate turns the 2D silhouette by deg degrees about the current position.
func (a *Agent) Rotate(deg float64) {
	a.shapes2D.Rotate(a.position, deg)
	a.orientation = geom.WrapAngle(a.orientation + deg)
}

// Translate shifts the 2D silhouette and the position by (dx, dy).
func (a *Agent) Translate(dx, dy float64) {
	d := geom.Pt(dx, dy)
	a.shapes2D.Translate(d)
	a.position = a.position.Add(d)
}

// RotateBody3D turns every cross-section of the 3D body by deg degrees about
// the body's own horizontal centroid. The orientation tracks the 2D
// silhouette and is left unchanged.
func (a *Agent) RotateBody3D(deg float64) {
	if a.shapes3D.Len() == 0 {
		return
	}
	a.shapes3D.Rotate(a.shapes3D.Centroid(), deg)
}

// TranslateBody3D shifts the 3D body horizontally by (dx, dy) and its height
// keys by dz.
func (a *Agent) TranslateBody3D(dx, dy, dz float64) {
	a.shapes3D.Translate(dx, dy, dz)
}

// Move applies one rigid motion to the whole agent: rotation by deg about the
// current position, then translation by (dx, dy). Both bodies share the
// pivot so they stay aligned.
func (a *Agent) Move(dx, dy, deg float64) {
	if deg != 0 {
		a.shapes3D.Rotate(a.position, deg)
		a.Rotate(deg)
	}
	if dx != 0 || dy != 0 {
		a.shapes3D.Translate(dx, dy, 0)
		a.Translate(dx, dy)
	}
}

// LocalShapes returns the silhouette expressed in the agent frame: centroid
// at the origin and orientation undone.
func (a *Agent) LocalShapes() geom.ShapeSet {
	s := a.shapes2D.Clone()
	s.Translate(a.position.Mul(-1))
	s.Rotate(geom.Point{}, -a.orientation)
	return s
}

// BideltoidBreadth measures the extremal x span of the silhouette in the
// agent frame.
func (a *Agent) BideltoidBreadth() (float64, error) {
	return geom.ComputeBideltoidBreadth(a.LocalShapes())
}

// ChestDepth measures the extremal y span of the silhouette in the agent frame.
func (a *Agent) ChestDepth() (float64, error) {
	return geom.ComputeChestDepth(a.LocalShapes())
}
