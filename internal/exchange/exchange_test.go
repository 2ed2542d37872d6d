package exchange

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crowdmech/internal/agents"
	"github.com/talgya/crowdmech/internal/crowd"
	"github.com/talgya/crowdmech/internal/geom"
	"github.com/talgya/crowdmech/internal/interactions"
	"github.com/talgya/crowdmech/internal/materials"
	"github.com/talgya/crowdmech/internal/measures"
)

// threeAgentCrowds returns the same small crowd before and after packing.
func threeAgentCrowds(t *testing.T) map[string]*crowd.Crowd {
	t.Helper()
	stats := measures.DefaultStatistics()
	stats[measures.KeyPedestrianProportion] = 2
	stats[measures.KeyBikeProportion] = 1

	c, err := crowd.New(crowd.Boundary{Width: 300, Height: 300}, stats)
	require.NoError(t, err)
	require.NoError(t, c.Populate(3, rand.New(rand.NewSource(12)), crowd.DefaultPlacement()))

	packed := c.Clone()
	_, err = packed.Pack(context.Background(), crowd.DefaultPackOptions())
	require.NoError(t, err)
	return map[string]*crowd.Crowd{"unpacked": c, "packed": packed}
}

func TestDocumentsRoundTrip(t *testing.T) {
	for name, c := range threeAgentCrowds(t) {
		t.Run(name, func(t *testing.T) {
			b, err := BuildBundle(c, materials.Default(), materials.Concrete)
			require.NoError(t, err)
			require.Len(t, b.Static.Agents, 3)

			data, err := b.Static.EncodeXML()
			require.NoError(t, err)
			static, err := DecodeStatic(data)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(b.Static, static))

			data, err = b.Dynamic.EncodeXML()
			require.NoError(t, err)
			dynamic, err := DecodeDynamic(data)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(b.Dynamic, dynamic))

			data, err = b.Geometry.EncodeXML()
			require.NoError(t, err)
			geometry, err := DecodeGeometry(data)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(b.Geometry, geometry))

			data, err = b.Materials.EncodeXML()
			require.NoError(t, err)
			mats, err := DecodeMaterials(data)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(b.Materials, mats))

			data, err = b.Interactions.EncodeXML()
			require.NoError(t, err)
			inter, err := DecodeInteractions(data)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(b.Interactions, inter))
		})
	}
}

func TestFloatsKeepFullPrecision(t *testing.T) {
	d := Dynamic{Agents: []DynamicAgent{{
		ID:          7,
		Position:    geom.Pt(0.1+0.2, math.Pi),
		Orientation: -179.99999999999997,
		Force:       geom.Pt(math.SmallestNonzeroFloat64, -math.MaxFloat64),
		Torque:      1e-300,
	}}}
	data, err := d.EncodeXML()
	require.NoError(t, err)
	got, err := DecodeDynamic(data)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(d, got))
}

func TestBundleDirAndZipRoundTrip(t *testing.T) {
	c := threeAgentCrowds(t)["unpacked"]
	b, err := BuildBundle(c, materials.Default(), materials.Concrete)
	require.NoError(t, err)

	paths, err := b.WriteDir(t.TempDir())
	require.NoError(t, err)
	require.Len(t, paths, len(FileNames))
	fromDir, err := ReadDir(filepath.Dir(paths[0]))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(b, fromDir))

	zipped, err := b.ZipBytes()
	require.NoError(t, err)
	fromZip, err := ReadZip(bytes.NewReader(zipped), int64(len(zipped)))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(b, fromZip))
}

func TestStaticShapesAreLocal(t *testing.T) {
	c := threeAgentCrowds(t)["packed"]
	b, err := BuildBundle(c, materials.Default(), materials.Concrete)
	require.NoError(t, err)

	for i, a := range b.Static.Agents {
		assert.Equal(t, c.Agents[i].ID, a.ID)
		// Local centroid of a symmetric body sits near the origin.
		var cx float64
		for _, s := range a.Shapes {
			cx += s.Position.X
		}
		assert.Less(t, math.Abs(cx/float64(len(a.Shapes))), 0.5)
	}
	assert.Len(t, b.Geometry.Walls, 4)
	assert.InDelta(t, 3.0, b.Geometry.Dimensions.X, 1e-12)
}

func TestBuildBundleUnknownWallMaterial(t *testing.T) {
	c := threeAgentCrowds(t)["unpacked"]
	_, err := BuildBundle(c, materials.Default(), "glass")
	assert.ErrorIs(t, err, materials.ErrUnknownMaterial)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := DecodeStatic([]byte(`<Geometry/>`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeStatic([]byte(`<Agents><Agent Id="x" Type="pedestrian" Mass="1" Height="1" MomentOfInertia="1"/></Agents>`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeGeometry([]byte(`<Geometry><Wall Id="0" MaterialId="iron"/></Geometry>`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeInteractions([]byte(`<Interactions><Agent Id="1"><Agent Id="2"><Interaction ParentShape="a" ChildShape="b" Overlap="0.1"/></Agent></Agent></Interactions>`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeMaterials([]byte(`not xml`))
	assert.Error(t, err)
}

func TestMaterialsDocumentRebuildsTable(t *testing.T) {
	doc := BuildMaterials(materials.Default())
	tbl, err := doc.Table()
	require.NoError(t, err)
	got, err := tbl.Contact(materials.Wood, materials.Iron)
	require.NoError(t, err)
	assert.Equal(t, 0.4, got.KineticFriction)
}

func TestInteractionsCarryContactNormal(t *testing.T) {
	m, err := measures.NewPedestrian(measures.Male, 51, 26, 177, 80)
	require.NoError(t, err)
	var as []*agents.Agent
	for i, x := range []float64{0, 50} {
		a, err := agents.New(agents.AgentID(i+1), m)
		require.NoError(t, err)
		a.Move(x, 0, 0)
		as = append(as, a)
	}
	set, err := interactions.NewDeriver(materials.Default()).Derive(as)
	require.NoError(t, err)
	require.Len(t, set, 1)
	require.NotEmpty(t, set[0].Contacts)

	doc := BuildInteractions(set)
	require.Len(t, doc.Pairs, 1)
	require.Len(t, doc.Pairs[0].Contacts, len(set[0].Contacts))
	for i, c := range doc.Pairs[0].Contacts {
		assert.Equal(t, set[0].Contacts[i].Normal, c.Normal)
		assert.InDelta(t, 1.0, c.Normal.Norm(), 1e-9)
	}

	data, err := doc.EncodeXML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "<Normal ")
	got, err := DecodeInteractions(data)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(doc, got))
	assert.InDelta(t, 1.0, got.Pairs[0].Contacts[0].Normal.X, 1e-9)
}
