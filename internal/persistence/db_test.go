package persistence

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crowdmech/internal/crowd"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "crowd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func packedCrowd(t *testing.T, seed int64) (*crowd.Crowd, crowd.PackResult) {
	t.Helper()
	c, err := crowd.New(crowd.Boundary{Width: 400, Height: 400}, nil)
	require.NoError(t, err)
	require.NoError(t, c.Populate(4, rand.New(rand.NewSource(seed)), crowd.DefaultPlacement()))
	res, err := c.Pack(context.Background(), crowd.DefaultPackOptions())
	require.NoError(t, err)
	return c, res
}

func TestSaveAndLoadCrowd(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	c, res := packedCrowd(t, 5)

	id, err := db.SaveCrowd(ctx, c, 5, res)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	got, run, err := db.LoadCrowd(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(5), run.Seed)
	assert.Equal(t, res.Iterations, run.Iterations)
	assert.Equal(t, len(c.Agents), run.AgentCount)
	assert.Equal(t, c.State(), got.State())
	assert.Equal(t, c.Boundary, got.Boundary)
	assert.Equal(t, c.Statistics, got.Statistics)

	require.Len(t, got.Agents, len(c.Agents))
	for i, want := range c.Agents {
		a := got.Agents[i]
		assert.Equal(t, want.ID, a.ID)
		assert.Equal(t, want.Type, a.Type)
		assert.Equal(t, want.Measures().Values(), a.Measures().Values())
		assert.InDelta(t, want.Position().X, a.Position().X, 1e-9)
		assert.InDelta(t, want.Position().Y, a.Position().Y, 1e-9)
		assert.InDelta(t, want.Orientation(), a.Orientation(), 1e-9)
		wb, ab := want.Bounds(), a.Bounds()
		assert.InDelta(t, wb.X.Lo, ab.X.Lo, 1e-6)
		assert.InDelta(t, wb.Y.Hi, ab.Y.Hi, 1e-6)
	}
}

func TestListRunsAndLastRun(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	_, err := db.LastRun(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	c1, r1 := packedCrowd(t, 1)
	id1, err := db.SaveCrowd(ctx, c1, 1, r1)
	require.NoError(t, err)
	c2, r2 := packedCrowd(t, 2)
	id2, err := db.SaveCrowd(ctx, c2, 2, r2)
	require.NoError(t, err)

	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, id2, runs[0].ID)
	assert.Equal(t, id1, runs[1].ID)
	assert.False(t, runs[0].Created().Before(runs[1].Created()))

	last, err := db.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, id2, last)

	runs, err = db.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestDeleteRun(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	c, res := packedCrowd(t, 3)
	id, err := db.SaveCrowd(ctx, c, 3, res)
	require.NoError(t, err)

	require.NoError(t, db.DeleteRun(ctx, id))
	_, _, err = db.LoadCrowd(ctx, id)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, db.DeleteRun(ctx, id), ErrRunNotFound)
}

func TestMeta(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	require.NoError(t, db.SaveMeta(ctx, "k", "v1"))
	require.NoError(t, db.SaveMeta(ctx, "k", "v2"))
	v, err := db.GetMeta(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}
