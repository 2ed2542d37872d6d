package crowd

import (
	"fmt"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/crowdmech/internal/agents"
	"github.com/talgya/crowdmech/internal/geom"
)

// OrientationMode selects how initial headings are assigned.
type OrientationMode uint8

const (
	OrientationUniform OrientationMode = iota // independent uniform in [-180, 180)
	OrientationFixed                          // every agent at FixedAngle
	OrientationFlow                           // smooth noise field over the area
)

var orientationNames = map[OrientationMode]string{
	OrientationUniform: "uniform",
	OrientationFixed:   "fixed",
	OrientationFlow:    "flow",
}

func (m OrientationMode) String() string {
	if n, ok := orientationNames[m]; ok {
		return n
	}
	return fmt.Sprintf("orientation(%d)", m)
}

// ParseOrientationMode is the inverse of OrientationMode.String.
func ParseOrientationMode(s string) (OrientationMode, error) {
	for m, n := range orientationNames {
		if n == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown orientation mode %q", s)
}

// PlacementOptions controls initial placement.
type PlacementOptions struct {
	Orientation OrientationMode
	FixedAngle  float64 // degrees, OrientationFixed only

	// FlowFrequency scales boundary coordinates (cm) before sampling noise.
	FlowFrequency float64
	FlowOctaves   int
}

// DefaultPlacement returns uniform random headings.
func DefaultPlacement() PlacementOptions {
	return PlacementOptions{
		Orientation:   OrientationUniform,
		FlowFrequency: 0.004,
		FlowOctaves:   2,
	}
}

// Populate samples n agents and places them uniformly inside the boundary.
// Every random draw comes from rng in a fixed order: population first, then
// per agent x, y and heading.
func (c *Crowd) Populate(n int, rng *rand.Rand, opts PlacementOptions) error {
	if c.state != StateEmpty {
		return fmt.Errorf("populate: crowd is %s", c.state)
	}
	spawner := agents.NewSpawner(rng)
	spawned, err := spawner.SpawnPopulation(n, c.Statistics)
	if err != nil {
		return fmt.Errorf("populate: %w", err)
	}

	var field *flowField
	if opts.Orientation == OrientationFlow {
		field = newFlowField(rng.Int63(), opts.FlowFrequency, opts.FlowOctaves)
	}
	for _, a := range spawned {
		p := c.randomPoint(rng, a.BoundingRadius())
		var heading float64
		switch opts.Orientation {
		case OrientationFixed:
			heading = opts.FixedAngle
		case OrientationFlow:
			heading = field.heading(p)
		default:
			heading = -180 + 360*rng.Float64()
		}
		pos := a.Position()
		a.Move(p.X-pos.X, p.Y-pos.Y, heading)
	}
	c.Add(spawned...)
	c.logger.Info("crowd populated", "agents", len(spawned), "orientation", opts.Orientation.String())
	return nil
}

// randomPoint draws a point inset by r from every wall. Axes narrower than
// 2r collapse to their midpoint but still consume a draw.
func (c *Crowd) randomPoint(rng *rand.Rand, r float64) geom.Point {
	axis := func(extent float64) float64 {
		u := rng.Float64()
		span := extent - 2*r
		if span <= 0 {
			return extent / 2
		}
		return r + u*span
	}
	x := axis(c.Boundary.Width)
	y := axis(c.Boundary.Height)
	return geom.Pt(x, y)
}

// flowField maps positions to headings with layered simplex noise so nearby
// agents face roughly the same way.
type flowField struct {
	noise     opensimplex.Noise
	frequency float64
	octaves   int
}

func newFlowField(seed int64, frequency float64, octaves int) *flowField {
	if frequency <= 0 {
		frequency = 0.004
	}
	if octaves <= 0 {
		octaves = 1
	}
	return &flowField{noise: opensimplex.NewNormalized(seed), frequency: frequency, octaves: octaves}
}

// heading returns an angle in [-180, 180).
func (f *flowField) heading(p geom.Point) float64 {
	return geom.WrapAngle(-180 + 360*octaveNoise(f.noise, p.X, p.Y, f.octaves, f.frequency, 0.5))
}

// octaveNoise layers octaves of noise at doubling frequency, normalised to [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
