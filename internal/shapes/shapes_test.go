package shapes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crowdmech/internal/geom"
	"github.com/talgya/crowdmech/internal/materials"
	"github.com/talgya/crowdmech/internal/measures"
)

func TestReferenceSilhouetteMatchesTable(t *testing.T) {
	for sex, ref := range references {
		set := ref.silhouette(1)
		breadth, err := geom.ComputeBideltoidBreadth(set)
		require.NoError(t, err)
		depth, err := geom.ComputeChestDepth(set)
		require.NoError(t, err)
		assert.InDelta(t, ref.breadth, breadth, 1e-6, sex.String())
		assert.InDelta(t, ref.depth, depth, 1e-6, sex.String())
		assert.InDelta(t, 0, set.Centroid().Norm(), 1e-9)

		body, err := ref.body()
		require.NoError(t, err)
		assert.InDelta(t, ref.height, body.Height(), 1e-9)
	}
}

func TestBuild2DMatchesTargetMeasures(t *testing.T) {
	cases := []struct {
		name                   string
		sex                    measures.Sex
		breadth, depth, height float64
	}{
		{"male reference", measures.Male, 51, 26, 177},
		{"male broad", measures.Male, 60, 28, 190},
		{"male narrow", measures.Male, 44, 22, 160},
		{"female", measures.Female, 42, 21, 158},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := measures.NewPedestrian(tc.sex, tc.breadth, tc.depth, tc.height, 70)
			require.NoError(t, err)

			set, err := DefaultBuilder.Build2D(m)
			require.NoError(t, err)
			assert.Equal(t, []string{"disk0", "disk1", "disk2", "disk3", "disk4"}, set.IDs())

			breadth, err := geom.ComputeBideltoidBreadth(set)
			require.NoError(t, err)
			depth, err := geom.ComputeChestDepth(set)
			require.NoError(t, err)
			assert.InDelta(t, tc.breadth, breadth, 1e-6)
			assert.InDelta(t, tc.depth, depth, 1e-6)
			assert.InDelta(t, 0, set.Centroid().Norm(), 1e-9)

			d, _ := set.Get("disk2")
			assert.Equal(t, materials.HumanClothes, d.Material)
			assert.Equal(t, 3.05e6, d.YoungModulus)
		})
	}
}

func TestBuild2DRejectsBreadthBelowDepth(t *testing.T) {
	// Central disk alone is 2*13*(35/26) wide.
	m, err := measures.NewPedestrian(measures.Male, 21, 35, 170, 70)
	require.NoError(t, err)
	_, err = DefaultBuilder.Build2D(m)
	assert.ErrorIs(t, err, measures.ErrInvalidMeasures)
}

func TestBuild3DScalesHeight(t *testing.T) {
	m, err := measures.NewPedestrian(measures.Female, 45, 24, 150, 60)
	require.NoError(t, err)
	body, err := DefaultBuilder.Build3D(m)
	require.NoError(t, err)

	ref := references[measures.Female]
	assert.Equal(t, len(ref.layers), body.Len())
	assert.InDelta(t, 150, body.Height(), 1e-9)
	assert.InDelta(t, 0, body.MinHeight(), 1e-9)

	// Reference breadth and depth leave the horizontal footprint unchanged.
	refBody, err := ref.body()
	require.NoError(t, err)
	for i := 0; i < body.Len(); i++ {
		assert.InDelta(t, refBody.SectionArea(i), body.SectionArea(i), 1e-9)
	}
}

func TestBuild3DBikeIsEmpty(t *testing.T) {
	m, err := measures.NewBike(5, 180, 60, 55, 90)
	require.NoError(t, err)
	body, err := DefaultBuilder.Build3D(m)
	require.NoError(t, err)
	assert.Equal(t, 0, body.Len())
}

func TestBuild2DBike(t *testing.T) {
	m, err := measures.NewBike(5, 180, 60, 55, 90)
	require.NoError(t, err)
	set, err := DefaultBuilder.Build2D(m)
	require.NoError(t, err)
	assert.Equal(t, []string{BikeFrame, BikeHandlebar, BikeRider}, set.IDs())
	assert.InDelta(t, 0, set.Centroid().Norm(), 1e-9)

	breadth, err := geom.ComputeBideltoidBreadth(set)
	require.NoError(t, err)
	assert.InDelta(t, 60, breadth, 1e-6)
	depth, err := geom.ComputeChestDepth(set)
	require.NoError(t, err)
	assert.InDelta(t, 180, depth, 1e-6)

	frame, _ := set.Get(BikeFrame)
	assert.Equal(t, materials.Iron, frame.Material)
}

func TestReferenceForUnknownSex(t *testing.T) {
	_, err := referenceFor(measures.Sex(7))
	assert.ErrorIs(t, err, ErrInvalidSex)
}

func TestBuilderWithMissingMaterial(t *testing.T) {
	tbl, err := materials.NewTable([]materials.Material{{Name: materials.Iron, YoungModulus: 1, ShearModulus: 1}}, nil)
	require.NoError(t, err)
	m, err := measures.NewPedestrian(measures.Male, 51, 26, 177, 80)
	require.NoError(t, err)
	_, err = NewBuilder(tbl).Build2D(m)
	assert.ErrorIs(t, err, materials.ErrUnknownMaterial)
}
