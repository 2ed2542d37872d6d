// Package interactions derives shape-to-shape contact records between the
// agents of a crowd from their current geometry.
package interactions

import (
	"fmt"
	"sort"

	"github.com/talgya/crowdmech/internal/agents"
	"github.com/talgya/crowdmech/internal/geom"
	"github.com/talgya/crowdmech/internal/materials"
)

// cmToM converts lengths to SI.
const cmToM = 0.01

// Contact is one overlapping shape pair. NormalForce acts on the child
// shape along Normal; the parent receives the reaction. Forces are per metre
// of contact height, since the silhouettes are 2D.
type Contact struct {
	ParentShape string `json:"parent_shape"`
	ChildShape  string `json:"child_shape"`

	Normal  geom.Point `json:"normal"`  // unit, parent to child
	Overlap float64    `json:"overlap"` // penetration depth, cm

	Stiffness              float64    `json:"stiffness"` // effective modulus, Pa
	NormalForce            geom.Point `json:"normal_force"`
	TangentialDisplacement geom.Point `json:"tangential_displacement"`

	NormalDamping     float64 `json:"normal_damping"`
	TangentialDamping float64 `json:"tangential_damping"`
	KineticFriction   float64 `json:"kinetic_friction"`
}

// ID returns the shape-pair key "<parent>:<child>".
func (c Contact) ID() string {
	return ShapePairID(c.ParentShape, c.ChildShape)
}

// ShapePairID joins two shape ids into a shape-pair key.
func ShapePairID(parent, child string) string {
	return parent + ":" + child
}

// Pair holds the contacts between two agents, Parent < Child.
type Pair struct {
	Parent   agents.AgentID `json:"parent"`
	Child    agents.AgentID `json:"child"`
	Contacts []Contact      `json:"contacts"`
}

// Set is the full interaction table ordered by (Parent, Child).
type Set []Pair

// Contacts returns the total number of shape contacts.
func (s Set) Contacts() int {
	n := 0
	for _, p := range s {
		n += len(p.Contacts)
	}
	return n
}

// Lookup returns the contacts of an agent pair in either order.
func (s Set) Lookup(a, b agents.AgentID) (Pair, bool) {
	if b < a {
		a, b = b, a
	}
	i := sort.Search(len(s), func(i int) bool {
		return s[i].Parent > a || (s[i].Parent == a && s[i].Child >= b)
	})
	if i < len(s) && s[i].Parent == a && s[i].Child == b {
		return s[i], true
	}
	return Pair{}, false
}

// Deriver computes interactions against a material table.
type Deriver struct {
	Materials *materials.Table
	Tolerance float64 // cm of penetration ignored
}

// NewDeriver returns a deriver using tbl and a zero tolerance.
func NewDeriver(tbl *materials.Table) *Deriver {
	return &Deriver{Materials: tbl}
}

// Derive emits a contact for every overlapping shape pair of every
// unordered agent pair. The parent is the agent with the smaller ID. An agent
// never pairs with itself.
func (d *Deriver) Derive(as []*agents.Agent) (Set, error) {
	ordered := make([]*agents.Agent, len(as))
	copy(ordered, as)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	shapes := make([]geom.ShapeSet, len(ordered))
	bounds := make([]geom.Rect, len(ordered))
	for i, a := range ordered {
		shapes[i] = a.Shapes2D()
		bounds[i] = shapes[i].Bounds()
	}

	var out Set
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[i].ID == ordered[j].ID {
				return nil, fmt.Errorf("duplicate agent id %d", ordered[i].ID)
			}
			if !bounds[i].Intersects(bounds[j]) {
				continue
			}
			contacts, err := d.pair(ordered[i], ordered[j], shapes[i], shapes[j])
			if err != nil {
				return nil, fmt.Errorf("agents %d/%d: %w", ordered[i].ID, ordered[j].ID, err)
			}
			if len(contacts) > 0 {
				out = append(out, Pair{Parent: ordered[i].ID, Child: ordered[j].ID, Contacts: contacts})
			}
		}
	}
	return out, nil
}

func (d *Deriver) pair(pa, ca *agents.Agent, ps, cs geom.ShapeSet) ([]Contact, error) {
	fallback := ca.Position().Sub(pa.Position())
	var out []Contact
	for x := 0; x < ps.Len(); x++ {
		pe := ps.At(x)
		for y := 0; y < cs.Len(); y++ {
			ce := cs.At(y)
			if !pe.Shape.Bounds().Intersects(ce.Shape.Bounds()) {
				continue
			}
			sep := geom.Separation(pe.Shape, ce.Shape, fallback)
			if !sep.Overlapping(d.Tolerance) {
				continue
			}
			c, err := d.contact(pe, ce, sep)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *Deriver) contact(parent, child geom.Entry, sep geom.Contact) (Contact, error) {
	pm, err := d.Materials.Material(parent.Shape.Material)
	if err != nil {
		return Contact{}, err
	}
	cm, err := d.Materials.Material(child.Shape.Material)
	if err != nil {
		return Contact{}, err
	}
	coeff, err := d.Materials.Contact(pm.Name, cm.Name)
	if err != nil {
		return Contact{}, err
	}

	// Shapes carry their own stiffness; fall back to the material's.
	pe, ce := parent.Shape.YoungModulus, child.Shape.YoungModulus
	if pe <= 0 {
		pe = pm.YoungModulus
	}
	if ce <= 0 {
		ce = cm.YoungModulus
	}
	k := materials.EffectiveModulus(pe, pm.PoissonRatio(), ce, cm.PoissonRatio())
	overlap := -sep.Gap

	return Contact{
		ParentShape:       parent.ID,
		ChildShape:        child.ID,
		Normal:            sep.Normal,
		Overlap:           overlap,
		Stiffness:         k,
		NormalForce:       sep.Normal.Mul(k * overlap * cmToM),
		NormalDamping:     coeff.NormalDamping,
		TangentialDamping: coeff.TangentialDamping,
		KineticFriction:   coeff.KineticFriction,
	}, nil
}
