// Package agents provides the agent body model: measures, 2D silhouette,
// optional 3D body and the rigid transforms that move them together.
package agents

import (
	"fmt"

	"github.com/talgya/crowdmech/internal/geom"
	"github.com/talgya/crowdmech/internal/measures"
	"github.com/talgya/crowdmech/internal/shapes"
)

// AgentID is a unique identifier for an agent within a crowd.
type AgentID uint64

// Agent is one simulated body with geometry, mass properties and pose.
// Geometry is only reachable through copies so the pose invariants hold:
// position is the centroid of the 2D shapes and orientation is the wrapped
// sum of all applied 2D rotations.
type Agent struct {
	ID   AgentID            `json:"id"`
	Type measures.AgentType `json:"type"`

	measures    measures.Measures
	shapes2D    geom.ShapeSet
	shapes3D    geom.Body3D
	position    geom.Point
	orientation float64
}

// New builds an agent at the origin with orientation 0 using the default
// shape builder. Construction is all-or-nothing.
func New(id AgentID, m measures.Measures) (*Agent, error) {
	return NewWithBuilder(id, m, shapes.DefaultBuilder)
}

// NewWithBuilder builds an agent using b for its geometry.
func NewWithBuilder(id AgentID, m measures.Measures, b *shapes.Builder) (*Agent, error) {
	if m.IsZero() {
		return nil, fmt.Errorf("agent %d: %w: empty measures", id, measures.ErrInvalidMeasures)
	}
	s2, err := b.Build2D(m)
	if err != nil {
		return nil, fmt.Errorf("agent %d: build 2D: %w", id, err)
	}
	s3, err := b.Build3D(m)
	if err != nil {
		return nil, fmt.Errorf("agent %d: build 3D: %w", id, err)
	}
	return &Agent{
		ID:       id,
		Type:     m.Type(),
		measures: m,
		shapes2D: s2,
		shapes3D: s3,
		position: s2.Centroid(),
	}, nil
}

// Measures returns the defining measures.
func (a *Agent) Measures() measures.Measures { return a.measures }

// Shapes2D returns a copy of the current 2D silhouette.
func (a *Agent) Shapes2D() geom.ShapeSet { return a.shapes2D.Clone() }

// Shapes3D returns a copy of the current 3D body. Bikes return an empty body.
func (a *Agent) Shapes3D() geom.Body3D { return a.shapes3D.Clone() }

// Position returns the centroid of the 2D silhouette in cm.
func (a *Agent) Position() geom.Point { return a.position }

// Orientation returns the cumulative rotation in degrees, wrapped to [-180, 180).
func (a *Agent) Orientation() float64 { return a.orientation }

// Clone returns an independent deep copy.
func (a *Agent) Clone() *Agent {
	c := *a
	c.shapes2D = a.shapes2D.Clone()
	c.shapes3D = a.shapes3D.Clone()
	return &c
}

// Mass returns the agent weight in kg.
func (a *Agent) Mass() float64 {
	return a.measures.Weight()
}

// Height returns the vertical extent of the 3D body in cm, 0 for bikes.
func (a *Agent) Height() float64 {
	return a.shapes3D.Height()
}

// MomentOfInertia returns the polar moment about the centroid in kg·m².
func (a *Agent) MomentOfInertia() (float64, error) {
	i, err := geom.MomentOfInertia(a.shapes2D, a.Mass())
	if err != nil {
		return 0, err
	}
	return i * 1e-4, nil
}

// Bounds returns the axis-aligned bounding box of the 2D silhouette.
func (a *Agent) Bounds() geom.Rect {
	return a.shapes2D.Bounds()
}

// BoundingRadius returns the largest distance from the position to the
// silhouette boundary.
func (a *Agent) BoundingRadius() float64 {
	return geom.BoundingRadius(a.shapes2D, a.position)
}
