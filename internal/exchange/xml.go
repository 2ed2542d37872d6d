package exchange

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/talgya/crowdmech/internal/agents"
	"github.com/talgya/crowdmech/internal/geom"
	"github.com/talgya/crowdmech/internal/materials"
	"github.com/talgya/crowdmech/internal/measures"
)

// ErrMalformed is returned when a document does not follow the schema.
var ErrMalformed = errors.New("malformed document")

// formatFloat writes the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func newDocument(root string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc, doc.CreateElement(root)
}

func writeDocument(doc *etree.Document) ([]byte, error) {
	doc.Indent(2)
	return doc.WriteToBytes()
}

func readDocument(data []byte, root string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", root, err)
	}
	el := doc.Root()
	if el == nil || el.Tag != root {
		return nil, fmt.Errorf("%w: root element is not <%s>", ErrMalformed, root)
	}
	return el, nil
}

func setFloat(el *etree.Element, key string, v float64) {
	el.CreateAttr(key, formatFloat(v))
}

func setPoint(parent *etree.Element, tag string, p geom.Point) {
	el := parent.CreateElement(tag)
	setFloat(el, "X", p.X)
	setFloat(el, "Y", p.Y)
}

// attrs reads typed attributes and keeps the first failure, so decoders can
// read a whole element before checking once.
type attrs struct {
	err error
}

func (r *attrs) fail(el *etree.Element, key string, cause error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: <%s %s>: %v", ErrMalformed, el.Tag, key, cause)
	}
}

func (r *attrs) str(el *etree.Element, key string) string {
	a := el.SelectAttr(key)
	if a == nil {
		r.fail(el, key, errors.New("missing"))
		return ""
	}
	return a.Value
}

func (r *attrs) float(el *etree.Element, key string) float64 {
	s := r.str(el, key)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.fail(el, key, err)
	}
	return v
}

func (r *attrs) int(el *etree.Element, key string) int {
	s := r.str(el, key)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		r.fail(el, key, err)
	}
	return v
}

func (r *attrs) id(el *etree.Element, key string) agents.AgentID {
	s := r.str(el, key)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		r.fail(el, key, err)
	}
	return agents.AgentID(v)
}

// point reads the X/Y attributes of the child element tag.
func (r *attrs) point(parent *etree.Element, tag string) geom.Point {
	el := parent.SelectElement(tag)
	if el == nil {
		if r.err == nil {
			r.err = fmt.Errorf("%w: <%s> has no <%s>", ErrMalformed, parent.Tag, tag)
		}
		return geom.Point{}
	}
	return geom.Pt(r.float(el, "X"), r.float(el, "Y"))
}

func (r *attrs) points(parent *etree.Element, tag string) []geom.Point {
	var out []geom.Point
	for _, el := range parent.SelectElements(tag) {
		out = append(out, geom.Pt(r.float(el, "X"), r.float(el, "Y")))
	}
	return out
}

func formatID(id agents.AgentID) string {
	return strconv.FormatUint(uint64(id), 10)
}

// EncodeXML writes the static document.
func (s Static) EncodeXML() ([]byte, error) {
	doc, root := newDocument("Agents")
	for _, a := range s.Agents {
		el := root.CreateElement("Agent")
		el.CreateAttr("Id", formatID(a.ID))
		el.CreateAttr("Type", a.Type.String())
		setFloat(el, "Mass", a.Mass)
		setFloat(el, "Height", a.Height)
		setFloat(el, "MomentOfInertia", a.MomentOfInertia)
		for _, sh := range a.Shapes {
			se := el.CreateElement("Shape")
			se.CreateAttr("Id", sh.ID)
			se.CreateAttr("Type", sh.Kind.String())
			se.CreateAttr("MaterialId", sh.Material)
			setFloat(se, "YoungModulus", sh.YoungModulus)
			if sh.Kind == geom.KindDisk {
				setFloat(se, "Radius", sh.Radius)
			}
			setPoint(se, "Position", sh.Position)
			for _, c := range sh.Corners {
				setPoint(se, "Corner", c)
			}
		}
	}
	return writeDocument(doc)
}

// DecodeStatic parses a static document.
func DecodeStatic(data []byte) (Static, error) {
	root, err := readDocument(data, "Agents")
	if err != nil {
		return Static{}, err
	}
	var (
		out Static
		r   attrs
	)
	for _, el := range root.SelectElements("Agent") {
		a := StaticAgent{
			ID:              r.id(el, "Id"),
			Mass:            r.float(el, "Mass"),
			Height:          r.float(el, "Height"),
			MomentOfInertia: r.float(el, "MomentOfInertia"),
		}
		if t, err := measures.ParseAgentType(r.str(el, "Type")); err != nil {
			r.fail(el, "Type", err)
		} else {
			a.Type = t
		}
		for _, se := range el.SelectElements("Shape") {
			sh := StaticShape{
				ID:           r.str(se, "Id"),
				Material:     r.str(se, "MaterialId"),
				YoungModulus: r.float(se, "YoungModulus"),
				Position:     r.point(se, "Position"),
				Corners:      r.points(se, "Corner"),
			}
			if k, err := geom.ParseKind(r.str(se, "Type")); err != nil {
				r.fail(se, "Type", err)
			} else {
				sh.Kind = k
			}
			if sh.Kind == geom.KindDisk {
				sh.Radius = r.float(se, "Radius")
			}
			a.Shapes = append(a.Shapes, sh)
		}
		out.Agents = append(out.Agents, a)
	}
	if r.err != nil {
		return Static{}, r.err
	}
	return out, nil
}

// EncodeXML writes the dynamic document.
func (d Dynamic) EncodeXML() ([]byte, error) {
	doc, root := newDocument("Agents")
	for _, a := range d.Agents {
		el := root.CreateElement("Agent")
		el.CreateAttr("Id", formatID(a.ID))
		kin := el.CreateElement("Kinematics")
		setPoint(kin, "Position", a.Position)
		setPoint(kin, "Velocity", a.Velocity)
		theta := kin.CreateElement("Theta")
		setFloat(theta, "Value", a.Orientation)
		omega := kin.CreateElement("Omega")
		setFloat(omega, "Value", a.AngularVelocity)
		dyn := el.CreateElement("Dynamics")
		setPoint(dyn, "Fp", a.Force)
		mp := dyn.CreateElement("Mp")
		setFloat(mp, "Value", a.Torque)
	}
	return writeDocument(doc)
}

// DecodeDynamic parses a dynamic document.
func DecodeDynamic(data []byte) (Dynamic, error) {
	root, err := readDocument(data, "Agents")
	if err != nil {
		return Dynamic{}, err
	}
	var (
		out Dynamic
		r   attrs
	)
	scalar := func(parent *etree.Element, tag string) float64 {
		el := parent.SelectElement(tag)
		if el == nil {
			r.fail(parent, tag, errors.New("missing element"))
			return 0
		}
		return r.float(el, "Value")
	}
	for _, el := range root.SelectElements("Agent") {
		a := DynamicAgent{ID: r.id(el, "Id")}
		kin, dyn := el.SelectElement("Kinematics"), el.SelectElement("Dynamics")
		if kin == nil || dyn == nil {
			return Dynamic{}, fmt.Errorf("%w: agent %d lacks kinematics or dynamics", ErrMalformed, a.ID)
		}
		a.Position = r.point(kin, "Position")
		a.Velocity = r.point(kin, "Velocity")
		a.Orientation = scalar(kin, "Theta")
		a.AngularVelocity = scalar(kin, "Omega")
		a.Force = r.point(dyn, "Fp")
		a.Torque = scalar(dyn, "Mp")
		out.Agents = append(out.Agents, a)
	}
	if r.err != nil {
		return Dynamic{}, r.err
	}
	return out, nil
}

// EncodeXML writes the geometry document.
func (g Geometry) EncodeXML() ([]byte, error) {
	doc, root := newDocument("Geometry")
	dim := root.CreateElement("Dimensions")
	setFloat(dim, "Lx", g.Dimensions.X)
	setFloat(dim, "Ly", g.Dimensions.Y)
	for _, w := range g.Walls {
		el := root.CreateElement("Wall")
		el.CreateAttr("Id", strconv.Itoa(w.ID))
		el.CreateAttr("MaterialId", w.Material)
		for _, c := range w.Corners {
			setPoint(el, "Corner", c)
		}
	}
	return writeDocument(doc)
}

// DecodeGeometry parses a geometry document.
func DecodeGeometry(data []byte) (Geometry, error) {
	root, err := readDocument(data, "Geometry")
	if err != nil {
		return Geometry{}, err
	}
	var (
		out Geometry
		r   attrs
	)
	dim := root.SelectElement("Dimensions")
	if dim == nil {
		return Geometry{}, fmt.Errorf("%w: geometry has no dimensions", ErrMalformed)
	}
	out.Dimensions = geom.Pt(r.float(dim, "Lx"), r.float(dim, "Ly"))
	for _, el := range root.SelectElements("Wall") {
		out.Walls = append(out.Walls, Wall{
			ID:       r.int(el, "Id"),
			Material: r.str(el, "MaterialId"),
			Corners:  r.points(el, "Corner"),
		})
	}
	if r.err != nil {
		return Geometry{}, r.err
	}
	return out, nil
}

// EncodeXML writes the materials document.
func (m Materials) EncodeXML() ([]byte, error) {
	doc, root := newDocument("Materials")
	intr := root.CreateElement("Intrinsic")
	for _, mat := range m.Intrinsic {
		el := intr.CreateElement("Material")
		el.CreateAttr("Id", mat.Name)
		setFloat(el, "YoungModulus", mat.YoungModulus)
		setFloat(el, "ShearModulus", mat.ShearModulus)
	}
	bin := root.CreateElement("Binary")
	for _, c := range m.Binary {
		el := bin.CreateElement("Contact")
		el.CreateAttr("Id1", c.A)
		el.CreateAttr("Id2", c.B)
		setFloat(el, "GammaNormal", c.NormalDamping)
		setFloat(el, "GammaTangential", c.TangentialDamping)
		setFloat(el, "KineticFriction", c.KineticFriction)
	}
	return writeDocument(doc)
}

// DecodeMaterials parses a materials document.
func DecodeMaterials(data []byte) (Materials, error) {
	root, err := readDocument(data, "Materials")
	if err != nil {
		return Materials{}, err
	}
	var (
		out Materials
		r   attrs
	)
	if intr := root.SelectElement("Intrinsic"); intr != nil {
		for _, el := range intr.SelectElements("Material") {
			out.Intrinsic = append(out.Intrinsic, materials.Material{
				Name:         r.str(el, "Id"),
				YoungModulus: r.float(el, "YoungModulus"),
				ShearModulus: r.float(el, "ShearModulus"),
			})
		}
	}
	if bin := root.SelectElement("Binary"); bin != nil {
		for _, el := range bin.SelectElements("Contact") {
			out.Binary = append(out.Binary, materials.Contact{
				A:                 r.str(el, "Id1"),
				B:                 r.str(el, "Id2"),
				NormalDamping:     r.float(el, "GammaNormal"),
				TangentialDamping: r.float(el, "GammaTangential"),
				KineticFriction:   r.float(el, "KineticFriction"),
			})
		}
	}
	if r.err != nil {
		return Materials{}, r.err
	}
	return out, nil
}

// Table rebuilds a material table from the document.
func (m Materials) Table() (*materials.Table, error) {
	return materials.NewTable(m.Intrinsic, m.Binary)
}

// EncodeXML writes the interactions document, nesting child agents under
// their parent.
func (in Interactions) EncodeXML() ([]byte, error) {
	doc, root := newDocument("Interactions")
	var parent *etree.Element
	var last agents.AgentID
	for i, p := range in.Pairs {
		if i == 0 || p.Parent != last {
			parent = root.CreateElement("Agent")
			parent.CreateAttr("Id", formatID(p.Parent))
			last = p.Parent
		}
		child := parent.CreateElement("Agent")
		child.CreateAttr("Id", formatID(p.Child))
		for _, c := range p.Contacts {
			el := child.CreateElement("Interaction")
			el.CreateAttr("ParentShape", c.ParentShape)
			el.CreateAttr("ChildShape", c.ChildShape)
			setFloat(el, "Overlap", c.Overlap)
			setPoint(el, "Normal", c.Normal)
			setPoint(el, "Fn", c.NormalForce)
			setPoint(el, "Ft", c.TangentialDisplacement)
		}
	}
	return writeDocument(doc)
}

// DecodeInteractions parses an interactions document.
func DecodeInteractions(data []byte) (Interactions, error) {
	root, err := readDocument(data, "Interactions")
	if err != nil {
		return Interactions{}, err
	}
	var (
		out Interactions
		r   attrs
	)
	for _, pe := range root.SelectElements("Agent") {
		parent := r.id(pe, "Id")
		for _, ce := range pe.SelectElements("Agent") {
			p := InteractionPair{Parent: parent, Child: r.id(ce, "Id")}
			for _, el := range ce.SelectElements("Interaction") {
				p.Contacts = append(p.Contacts, ShapeContact{
					ParentShape:            r.str(el, "ParentShape"),
					ChildShape:             r.str(el, "ChildShape"),
					Overlap:                r.float(el, "Overlap"),
					Normal:                 r.point(el, "Normal"),
					NormalForce:            r.point(el, "Fn"),
					TangentialDisplacement: r.point(el, "Ft"),
				})
			}
			out.Pairs = append(out.Pairs, p)
		}
	}
	if r.err != nil {
		return Interactions{}, r.err
	}
	return out, nil
}
