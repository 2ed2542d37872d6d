// Package materials provides the intrinsic material properties and pairwise
// contact coefficients consumed by the interaction deriver and the solver.
package materials

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownMaterial is returned for lookups of names or pairs not in a table.
var ErrUnknownMaterial = errors.New("unknown material")

// Names of the reference materials.
const (
	HumanClothes = "human_clothes"
	HumanNaked   = "human_naked"
	Concrete     = "concrete"
	Iron         = "iron"
	Wood         = "wood"
)

// Material holds intrinsic elastic properties in Pa.
type Material struct {
	Name         string  `json:"name" yaml:"name"`
	YoungModulus float64 `json:"young_modulus" yaml:"young_modulus"`
	ShearModulus float64 `json:"shear_modulus" yaml:"shear_modulus"`
}

// PoissonRatio derives ν = E/(2G) − 1.
func (m Material) PoissonRatio() float64 {
	if m.ShearModulus == 0 {
		return 0
	}
	return m.YoungModulus/(2*m.ShearModulus) - 1
}

// Contact holds the coefficients of one material pair. Damping is in N·s/m.
type Contact struct {
	A                 string  `json:"a" yaml:"a"`
	B                 string  `json:"b" yaml:"b"`
	NormalDamping     float64 `json:"normal_damping" yaml:"normal_damping"`
	TangentialDamping float64 `json:"tangential_damping" yaml:"tangential_damping"`
	KineticFriction   float64 `json:"kinetic_friction" yaml:"kinetic_friction"`
}

type pair struct{ a, b string }

func key(a, b string) pair {
	if b < a {
		a, b = b, a
	}
	return pair{a, b}
}

// Table is an immutable lookup of materials and symmetric material pairs.
type Table struct {
	materials map[string]Material
	contacts  map[pair]Contact
}

// NewTable builds a table. Every contact must reference known materials and
// each unordered pair may appear once.
func NewTable(mats []Material, contacts []Contact) (*Table, error) {
	t := &Table{
		materials: make(map[string]Material, len(mats)),
		contacts:  make(map[pair]Contact, len(contacts)),
	}
	for _, m := range mats {
		if _, dup := t.materials[m.Name]; dup {
			return nil, fmt.Errorf("duplicate material %q", m.Name)
		}
		if m.YoungModulus <= 0 || m.ShearModulus <= 0 {
			return nil, fmt.Errorf("material %q: moduli must be positive", m.Name)
		}
		t.materials[m.Name] = m
	}
	for _, c := range contacts {
		for _, name := range []string{c.A, c.B} {
			if _, ok := t.materials[name]; !ok {
				return nil, fmt.Errorf("contact %s/%s: %w %q", c.A, c.B, ErrUnknownMaterial, name)
			}
		}
		k := key(c.A, c.B)
		if _, dup := t.contacts[k]; dup {
			return nil, fmt.Errorf("duplicate contact %s/%s", c.A, c.B)
		}
		c.A, c.B = k.a, k.b
		t.contacts[k] = c
	}
	return t, nil
}

// Material looks up a material by name.
func (t *Table) Material(name string) (Material, error) {
	m, ok := t.materials[name]
	if !ok {
		return Material{}, fmt.Errorf("%w %q", ErrUnknownMaterial, name)
	}
	return m, nil
}

// Contact looks up the coefficients of a material pair in either order.
func (t *Table) Contact(a, b string) (Contact, error) {
	c, ok := t.contacts[key(a, b)]
	if !ok {
		return Contact{}, fmt.Errorf("%w pair %s/%s", ErrUnknownMaterial, a, b)
	}
	return c, nil
}

// Materials returns all materials sorted by name.
func (t *Table) Materials() []Material {
	out := make([]Material, 0, len(t.materials))
	for _, m := range t.materials {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Contacts returns all pairs sorted by (A, B).
func (t *Table) Contacts() []Contact {
	out := make([]Contact, 0, len(t.contacts))
	for _, c := range t.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// EffectiveModulus combines two elastic bodies into the contact modulus
// E* = 1 / ((1−ν1²)/E1 + (1−ν2²)/E2).
func EffectiveModulus(e1, nu1, e2, nu2 float64) float64 {
	if e1 <= 0 || e2 <= 0 {
		return 0
	}
	return 1 / ((1-nu1*nu1)/e1 + (1-nu2*nu2)/e2)
}

// Default returns the reference material table.
func Default() *Table {
	t, err := NewTable(
		[]Material{
			{Name: HumanClothes, YoungModulus: 3.05e6, ShearModulus: 1.02e6},
			{Name: HumanNaked, YoungModulus: 2.0e6, ShearModulus: 0.7e6},
			{Name: Concrete, YoungModulus: 1.7e10, ShearModulus: 7.0e9},
			{Name: Iron, YoungModulus: 2.1e11, ShearModulus: 8.1e10},
			{Name: Wood, YoungModulus: 1.0e10, ShearModulus: 4.0e9},
		},
		[]Contact{
			{A: HumanClothes, B: HumanClothes, NormalDamping: 1.3e3, TangentialDamping: 1.3e3, KineticFriction: 0.5},
			{A: HumanClothes, B: HumanNaked, NormalDamping: 1.3e3, TangentialDamping: 1.3e3, KineticFriction: 0.6},
			{A: HumanClothes, B: Concrete, NormalDamping: 1.0e3, TangentialDamping: 1.0e3, KineticFriction: 0.6},
			{A: HumanClothes, B: Iron, NormalDamping: 1.0e3, TangentialDamping: 1.0e3, KineticFriction: 0.4},
			{A: HumanClothes, B: Wood, NormalDamping: 1.0e3, TangentialDamping: 1.0e3, KineticFriction: 0.45},
			{A: HumanNaked, B: HumanNaked, NormalDamping: 1.3e3, TangentialDamping: 1.3e3, KineticFriction: 0.7},
			{A: HumanNaked, B: Concrete, NormalDamping: 1.0e3, TangentialDamping: 1.0e3, KineticFriction: 0.7},
			{A: HumanNaked, B: Iron, NormalDamping: 1.0e3, TangentialDamping: 1.0e3, KineticFriction: 0.5},
			{A: HumanNaked, B: Wood, NormalDamping: 1.0e3, TangentialDamping: 1.0e3, KineticFriction: 0.5},
			{A: Iron, B: Iron, NormalDamping: 5.0e3, TangentialDamping: 5.0e3, KineticFriction: 0.3},
			{A: Iron, B: Concrete, NormalDamping: 5.0e3, TangentialDamping: 5.0e3, KineticFriction: 0.5},
			{A: Iron, B: Wood, NormalDamping: 4.0e3, TangentialDamping: 4.0e3, KineticFriction: 0.4},
			{A: Concrete, B: Concrete, NormalDamping: 5.0e3, TangentialDamping: 5.0e3, KineticFriction: 0.6},
			{A: Concrete, B: Wood, NormalDamping: 4.0e3, TangentialDamping: 4.0e3, KineticFriction: 0.5},
			{A: Wood, B: Wood, NormalDamping: 4.0e3, TangentialDamping: 4.0e3, KineticFriction: 0.4},
		},
	)
	if err != nil {
		panic(err)
	}
	return t
}
