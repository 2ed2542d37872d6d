// Package exchange converts a configured crowd into the documents read by the
// mechanical solver and encodes them as XML files or a ZIP bundle.
//
// Documents are in SI units: lengths in m, masses in kg, moments of inertia
// in kg·m². Angles stay in degrees.
package exchange

import (
	"fmt"

	"github.com/talgya/crowdmech/internal/agents"
	"github.com/talgya/crowdmech/internal/crowd"
	"github.com/talgya/crowdmech/internal/geom"
	"github.com/talgya/crowdmech/internal/interactions"
	"github.com/talgya/crowdmech/internal/materials"
	"github.com/talgya/crowdmech/internal/measures"
)

const cmToM = 0.01

// File names of the documents inside a bundle.
const (
	StaticFile       = "Agents.xml"
	DynamicFile      = "AgentDynamics.xml"
	GeometryFile     = "Geometry.xml"
	MaterialsFile    = "Materials.xml"
	InteractionsFile = "AgentInteractions.xml"
)

// Static lists the time-invariant properties of every agent.
type Static struct {
	Agents []StaticAgent
}

// StaticAgent holds the mass properties and local-frame shapes of one agent.
type StaticAgent struct {
	ID              agents.AgentID
	Type            measures.AgentType
	Mass            float64
	Height          float64
	MomentOfInertia float64
	Shapes          []StaticShape
}

// StaticShape is one shape in the agent frame. Disks use Radius; rectangles
// and polygons list their Corners. Position is the shape centroid.
type StaticShape struct {
	ID           string
	Kind         geom.Kind
	Material     string
	YoungModulus float64
	Radius       float64
	Position     geom.Point
	Corners      []geom.Point
}

// Dynamic holds the initial kinematic state of every agent.
type Dynamic struct {
	Agents []DynamicAgent
}

// DynamicAgent is one agent's pose, velocities and applied loads.
type DynamicAgent struct {
	ID              agents.AgentID
	Position        geom.Point
	Velocity        geom.Point
	Orientation     float64
	AngularVelocity float64
	Force           geom.Point
	Torque          float64
}

// Geometry describes the boundary and its walls.
type Geometry struct {
	Dimensions geom.Point
	Walls      []Wall
}

// Wall is an open polyline of corners made of one material.
type Wall struct {
	ID       int
	Material string
	Corners  []geom.Point
}

// Materials carries intrinsic properties and pairwise contact coefficients.
type Materials struct {
	Intrinsic []materials.Material
	Binary    []materials.Contact
}

// Interactions lists shape contacts per agent pair.
type Interactions struct {
	Pairs []InteractionPair
}

// InteractionPair groups the contacts of one parent/child agent pair.
type InteractionPair struct {
	Parent   agents.AgentID
	Child    agents.AgentID
	Contacts []ShapeContact
}

// ShapeContact is one parent/child shape contact.
type ShapeContact struct {
	ParentShape            string
	ChildShape             string
	Overlap                float64
	Normal                 geom.Point // unit, parent to child
	NormalForce            geom.Point
	TangentialDisplacement geom.Point
}

// BuildStatic captures every agent's mass properties and local shapes.
func BuildStatic(c *crowd.Crowd) (Static, error) {
	var doc Static
	for _, a := range c.Agents {
		moi, err := a.MomentOfInertia()
		if err != nil {
			return Static{}, fmt.Errorf("agent %d: %w", a.ID, err)
		}
		sa := StaticAgent{
			ID:              a.ID,
			Type:            a.Type,
			Mass:            a.Mass(),
			Height:          a.Height() * cmToM,
			MomentOfInertia: moi,
		}
		local := a.LocalShapes()
		for _, e := range local.Entries() {
			sa.Shapes = append(sa.Shapes, staticShape(e))
		}
		doc.Agents = append(doc.Agents, sa)
	}
	return doc, nil
}

func staticShape(e geom.Entry) StaticShape {
	s := e.Shape
	out := StaticShape{
		ID:           e.ID,
		Kind:         s.Kind,
		Material:     s.Material,
		YoungModulus: s.YoungModulus,
		Position:     s.Centroid().Mul(cmToM),
	}
	switch s.Kind {
	case geom.KindDisk:
		out.Radius = s.Radius * cmToM
	case geom.KindRectangle:
		for _, p := range s.Corners() {
			out.Corners = append(out.Corners, p.Mul(cmToM))
		}
	case geom.KindPolygon:
		for _, p := range s.Vertices {
			out.Corners = append(out.Corners, p.Mul(cmToM))
		}
	}
	return out
}

// BuildDynamic captures every agent's pose with the agents at rest.
func BuildDynamic(c *crowd.Crowd) Dynamic {
	var doc Dynamic
	for _, a := range c.Agents {
		doc.Agents = append(doc.Agents, DynamicAgent{
			ID:          a.ID,
			Position:    a.Position().Mul(cmToM),
			Orientation: a.Orientation(),
		})
	}
	return doc
}

// BuildGeometry describes the boundary as four walls, counterclockwise from
// the bottom edge.
func BuildGeometry(b crowd.Boundary, wallMaterial string) Geometry {
	w, h := b.Width*cmToM, b.Height*cmToM
	corners := []geom.Point{geom.Pt(0, 0), geom.Pt(w, 0), geom.Pt(w, h), geom.Pt(0, h)}
	doc := Geometry{Dimensions: geom.Pt(w, h)}
	for i := range corners {
		doc.Walls = append(doc.Walls, Wall{
			ID:       i,
			Material: wallMaterial,
			Corners:  []geom.Point{corners[i], corners[(i+1)%len(corners)]},
		})
	}
	return doc
}

// BuildMaterials copies a material table.
func BuildMaterials(tbl *materials.Table) Materials {
	return Materials{Intrinsic: tbl.Materials(), Binary: tbl.Contacts()}
}

// BuildInteractions converts a derived interaction set.
func BuildInteractions(set interactions.Set) Interactions {
	var doc Interactions
	for _, p := range set {
		ip := InteractionPair{Parent: p.Parent, Child: p.Child}
		for _, c := range p.Contacts {
			ip.Contacts = append(ip.Contacts, ShapeContact{
				ParentShape:            c.ParentShape,
				ChildShape:             c.ChildShape,
				Overlap:                c.Overlap * cmToM,
				Normal:                 c.Normal,
				NormalForce:            c.NormalForce,
				TangentialDisplacement: c.TangentialDisplacement,
			})
		}
		doc.Pairs = append(doc.Pairs, ip)
	}
	return doc
}

// Bundle is the full set of documents handed to the solver.
type Bundle struct {
	Static       Static
	Dynamic      Dynamic
	Geometry     Geometry
	Materials    Materials
	Interactions Interactions
}

// BuildBundle assembles every document for c. Interactions are derived from
// the current geometry.
func BuildBundle(c *crowd.Crowd, tbl *materials.Table, wallMaterial string) (Bundle, error) {
	if _, err := tbl.Material(wallMaterial); err != nil {
		return Bundle{}, fmt.Errorf("wall material: %w", err)
	}
	static, err := BuildStatic(c)
	if err != nil {
		return Bundle{}, err
	}
	set, err := interactions.NewDeriver(tbl).Derive(c.Agents)
	if err != nil {
		return Bundle{}, fmt.Errorf("derive interactions: %w", err)
	}
	return Bundle{
		Static:       static,
		Dynamic:      BuildDynamic(c),
		Geometry:     BuildGeometry(c.Boundary, wallMaterial),
		Materials:    BuildMaterials(tbl),
		Interactions: BuildInteractions(set),
	}, nil
}
