package crowd

import (
	"context"
	"math/rand"
	"testing"

	"github.com/golang/geo/r1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crowdmech/internal/agents"
	"github.com/talgya/crowdmech/internal/geom"
	"github.com/talgya/crowdmech/internal/measures"
)

func populated(t *testing.T, n int, b Boundary, seed int64, opts PlacementOptions) *Crowd {
	t.Helper()
	c, err := New(b, measures.DefaultStatistics())
	require.NoError(t, err)
	require.NoError(t, c.Populate(n, rand.New(rand.NewSource(seed)), opts))
	return c
}

func TestNewRejectsBadBoundary(t *testing.T) {
	_, err := New(Boundary{Width: 0, Height: 10}, nil)
	assert.ErrorIs(t, err, ErrInvalidBoundary)
}

func TestStateNames(t *testing.T) {
	for _, s := range []State{StateEmpty, StatePopulated, StatePacked, StatePackingFailed} {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseState("bogus")
	assert.Error(t, err)

	m, err := ParseOrientationMode("flow")
	require.NoError(t, err)
	assert.Equal(t, OrientationFlow, m)
}

func TestPopulatePlacesAgentsInside(t *testing.T) {
	c := populated(t, 10, Boundary{Width: 800, Height: 600}, 4, DefaultPlacement())
	assert.Equal(t, StatePopulated, c.State())
	require.Len(t, c.Agents, 10)
	assert.Empty(t, c.OutOfBounds(DefaultTolerance))
	for _, a := range c.Agents {
		cen := a.Shapes2D().Centroid()
		assert.InDelta(t, a.Position().X, cen.X, 0.05)
		assert.InDelta(t, a.Position().Y, cen.Y, 0.05)
	}

	err := c.Populate(1, rand.New(rand.NewSource(1)), DefaultPlacement())
	assert.Error(t, err)
}

func TestPopulateIsReproducible(t *testing.T) {
	b := Boundary{Width: 500, Height: 500}
	a := populated(t, 6, b, 21, DefaultPlacement())
	c := populated(t, 6, b, 21, DefaultPlacement())
	for i := range a.Agents {
		assert.Equal(t, a.Agents[i].Position(), c.Agents[i].Position())
		assert.Equal(t, a.Agents[i].Orientation(), c.Agents[i].Orientation())
	}
}

func TestPopulateFixedAndFlowOrientation(t *testing.T) {
	b := Boundary{Width: 1000, Height: 1000}
	fixed := DefaultPlacement()
	fixed.Orientation = OrientationFixed
	fixed.FixedAngle = 90
	for _, a := range populated(t, 5, b, 2, fixed).Agents {
		assert.InDelta(t, 90, a.Orientation(), 1e-9)
	}

	flow := DefaultPlacement()
	flow.Orientation = OrientationFlow
	for _, a := range populated(t, 5, b, 2, flow).Agents {
		assert.GreaterOrEqual(t, a.Orientation(), -180.0)
		assert.Less(t, a.Orientation(), 180.0)
	}
}

func TestFlowFieldIsSmooth(t *testing.T) {
	f := newFlowField(3, 0.004, 2)
	h0 := f.heading(geom.Pt(100, 100))
	h1 := f.heading(geom.Pt(101, 100))
	assert.InDelta(t, 0, geom.WrapAngle(h1-h0), 5)
}

func TestPackSingleAgentConvergesFirstIteration(t *testing.T) {
	c := populated(t, 1, Boundary{Width: 200, Height: 200}, 5, DefaultPlacement())
	var calls []int
	opts := DefaultPackOptions()
	opts.OnIteration = func(iter, overlaps int) { calls = append(calls, iter) }

	res, err := c.Pack(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StatusPacked, res.Status)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, []int{1}, calls)
	assert.Equal(t, StatePacked, c.State())
}

// threeInABox places three agents on nearly the same spot of a small box.
func threeInABox(t *testing.T) *Crowd {
	t.Helper()
	c, err := New(Boundary{Width: 150, Height: 150}, nil)
	require.NoError(t, err)
	sp := agents.NewSpawner(rand.New(rand.NewSource(1)))
	for i, sex := range []measures.Sex{measures.Male, measures.Female, measures.Male} {
		m, err := measures.NewPedestrian(sex, 48, 25, 175, 75)
		require.NoError(t, err)
		a, err := sp.FromMeasures(m)
		require.NoError(t, err)
		a.Move(70+float64(i)*4, 75, float64(i)*30)
		c.Add(a)
	}
	require.NotEmpty(t, c.Overlapping(DefaultTolerance))
	return c
}

func TestPackThreeAgentsInSmallBox(t *testing.T) {
	c := threeInABox(t)
	res, err := c.Pack(context.Background(), DefaultPackOptions())
	require.NoError(t, err)

	require.Equal(t, StatusPacked, res.Status)
	assert.Equal(t, StatePacked, c.State())
	assert.NoError(t, c.Validate(DefaultTolerance))
	assert.Zero(t, res.ResidualOverlaps)
	assert.Zero(t, res.OutOfBounds)
	assert.LessOrEqual(t, res.Iterations, DefaultPackOptions().MaxIterations)

	// Poses still satisfy the centroid invariant after packing.
	for _, a := range c.Agents {
		cen := a.Shapes2D().Centroid()
		assert.InDelta(t, a.Position().X, cen.X, 0.05)
		assert.InDelta(t, a.Position().Y, cen.Y, 0.05)
	}
}

func TestPackReportsFailureWhenBudgetTooSmall(t *testing.T) {
	c := threeInABox(t)
	opts := DefaultPackOptions()
	opts.MaxIterations = 1
	res, err := c.Pack(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, StatePackingFailed, c.State())
}

func TestPackPopulatedCrowdSucceeds(t *testing.T) {
	cases := []struct {
		agents int
		side   float64
		seed   int64
	}{
		{20, 400, 42},
		{30, 400, 1},
		{10, 200, 9},
	}
	for _, tc := range cases {
		c := populated(t, tc.agents, Boundary{Width: tc.side, Height: tc.side}, tc.seed, DefaultPlacement())
		res, err := c.Pack(context.Background(), DefaultPackOptions())
		require.NoError(t, err)
		require.Equal(t, StatusPacked, res.Status, "%d agents in %g cm, seed %d", tc.agents, tc.side, tc.seed)
		assert.Equal(t, StatePacked, c.State())
		assert.Empty(t, c.Overlapping(DefaultTolerance))
		assert.Empty(t, c.OutOfBounds(DefaultTolerance))
		assert.NoError(t, c.Validate(DefaultTolerance))
	}
}

func TestPackIsIndependentOfWorkers(t *testing.T) {
	run := func(workers int) (*Crowd, PackResult) {
		c := populated(t, 20, Boundary{Width: 400, Height: 400}, 42, DefaultPlacement())
		opts := DefaultPackOptions()
		opts.Workers = workers
		res, err := c.Pack(context.Background(), opts)
		require.NoError(t, err)
		require.Equal(t, StatusPacked, res.Status)
		return c, res
	}
	a, ra := run(1)
	b, rb := run(6)
	assert.Equal(t, ra.Iterations, rb.Iterations)
	for i := range a.Agents {
		assert.Equal(t, a.Agents[i].Position(), b.Agents[i].Position())
		assert.Equal(t, a.Agents[i].Orientation(), b.Agents[i].Orientation())
	}
}

func TestStepSeparatesCoincidentAgents(t *testing.T) {
	c := threeInABox(t)
	a, b := StateOf(c.Agents[0]), StateOf(c.Agents[0])

	next, report, err := Step(context.Background(), []AgentState{a, b}, c.Boundary, DefaultPackOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Overlaps)
	assert.Less(t, next[0].Position.X, a.Position.X)
	assert.Greater(t, next[1].Position.X, b.Position.X)
}

func TestStepPushesFromWalls(t *testing.T) {
	c := threeInABox(t)
	s := StateOf(c.Agents[0])
	s.Position = geom.Pt(5, 75)

	next, report, err := Step(context.Background(), []AgentState{s}, c.Boundary, DefaultPackOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, report.OutOfBounds)
	assert.Greater(t, next[0].Position.X, s.Position.X)
}

func TestPackRejectsInvalidOptions(t *testing.T) {
	c := threeInABox(t)
	_, err := c.Pack(context.Background(), PackOptions{})
	assert.Error(t, err)

	empty, err := New(Boundary{Width: 10, Height: 10}, nil)
	require.NoError(t, err)
	_, err = empty.Pack(context.Background(), DefaultPackOptions())
	assert.Error(t, err)
}

func TestPackHonoursCancellation(t *testing.T) {
	c := threeInABox(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Pack(ctx, DefaultPackOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBoundaryContains(t *testing.T) {
	b := Boundary{Width: 100, Height: 50}
	inside := geom.Rect{X: r1.Interval{Lo: 0, Hi: 100}, Y: r1.Interval{Lo: 10, Hi: 20}}
	assert.True(t, b.Contains(inside, 0))

	over := geom.Rect{X: r1.Interval{Lo: -0.5, Hi: 30}, Y: r1.Interval{Lo: 10, Hi: 50.5}}
	assert.False(t, b.Contains(over, 0.1))
	assert.True(t, b.Contains(over, 1))
}
