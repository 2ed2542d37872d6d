package materials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLookupIsSymmetric(t *testing.T) {
	tbl := Default()
	ab, err := tbl.Contact(Iron, HumanClothes)
	require.NoError(t, err)
	ba, err := tbl.Contact(HumanClothes, Iron)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	assert.Equal(t, 0.4, ab.KineticFriction)
}

func TestDefaultCoversEveryPair(t *testing.T) {
	tbl := Default()
	mats := tbl.Materials()
	for i := range mats {
		for j := i; j < len(mats); j++ {
			_, err := tbl.Contact(mats[i].Name, mats[j].Name)
			assert.NoError(t, err, "%s/%s", mats[i].Name, mats[j].Name)
		}
	}
	assert.Len(t, tbl.Contacts(), len(mats)*(len(mats)+1)/2)
}

func TestUnknownMaterial(t *testing.T) {
	tbl := Default()
	_, err := tbl.Material("glass")
	assert.ErrorIs(t, err, ErrUnknownMaterial)
	_, err = tbl.Contact("glass", Iron)
	assert.ErrorIs(t, err, ErrUnknownMaterial)
}

func TestNewTableValidation(t *testing.T) {
	m := Material{Name: "a", YoungModulus: 1, ShearModulus: 1}
	_, err := NewTable([]Material{m, m}, nil)
	assert.Error(t, err)

	_, err = NewTable([]Material{m}, []Contact{{A: "a", B: "b"}})
	assert.ErrorIs(t, err, ErrUnknownMaterial)

	_, err = NewTable([]Material{m}, []Contact{{A: "a", B: "a"}, {A: "a", B: "a"}})
	assert.Error(t, err)

	_, err = NewTable([]Material{{Name: "z"}}, nil)
	assert.Error(t, err)
}

func TestPoissonAndEffectiveModulus(t *testing.T) {
	iron, err := Default().Material(Iron)
	require.NoError(t, err)
	assert.InDelta(t, 0.296, iron.PoissonRatio(), 1e-3)

	// Two identical bodies with ν = 0 give E/2.
	assert.InDelta(t, 5.0, EffectiveModulus(10, 0, 10, 0), 1e-12)
	assert.Equal(t, 0.0, EffectiveModulus(0, 0, 10, 0))
}
