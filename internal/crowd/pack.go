package crowd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/crowdmech/internal/agents"
	"github.com/talgya/crowdmech/internal/geom"
)

// Status is the outcome of a packing run. Failure is a result, not an error.
type Status uint8

const (
	StatusPacked Status = iota
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPacked:
		return "packed"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", s)
}

// PackOptions tunes the relaxation. The intensities are dimensionless gains
// rather than physical constants.
type PackOptions struct {
	MaxIterations int

	// TranslationalIntensity converts (margin − gap) in cm into a push in cm.
	TranslationalIntensity float64
	// RotationalIntensity converts contact torque in cm² into degrees.
	RotationalIntensity float64
	// AlignmentIntensity turns touching neighbours towards each other's
	// heading, in degrees per degree of misalignment.
	AlignmentIntensity float64

	Margin      float64 // cm; forces vanish once shapes are this far apart
	MaxStep     float64 // cm per iteration
	MaxRotation float64 // degrees per iteration
	Tolerance   float64 // cm of penetration still counted as packed
	Workers     int

	// OnIteration is called after each iteration is evaluated.
	OnIteration func(iteration, overlaps int)
}

// DefaultPackOptions returns gains that pack a few dozen pedestrians in a
// few hundred iterations.
func DefaultPackOptions() PackOptions {
	return PackOptions{
		MaxIterations:          2000,
		TranslationalIntensity: 0.5,
		RotationalIntensity:    0.002,
		AlignmentIntensity:     0.02,
		Margin:                 1.0,
		MaxStep:                5.0,
		MaxRotation:            5.0,
		Tolerance:              DefaultTolerance,
		Workers:                1,
	}
}

// Validate reports every invalid option.
func (o PackOptions) Validate() error {
	var errs []error
	if o.MaxIterations <= 0 {
		errs = append(errs, errors.New("max iterations must be positive"))
	}
	if o.TranslationalIntensity <= 0 {
		errs = append(errs, errors.New("translational intensity must be positive"))
	}
	if o.RotationalIntensity < 0 || o.AlignmentIntensity < 0 {
		errs = append(errs, errors.New("rotational gains must not be negative"))
	}
	if o.Margin < 0 || o.Tolerance < 0 {
		errs = append(errs, errors.New("margin and tolerance must not be negative"))
	}
	if o.MaxStep <= 0 || o.MaxRotation < 0 {
		errs = append(errs, errors.New("step limits must be positive"))
	}
	return errors.Join(errs...)
}

// PackResult summarises a packing run.
type PackResult struct {
	Status           Status        `json:"status"`
	Iterations       int           `json:"iterations"`
	ResidualOverlaps int           `json:"residual_overlaps"`
	OutOfBounds      int           `json:"out_of_bounds"`
	Elapsed          time.Duration `json:"elapsed"`
}

// AgentState is the pose of one agent during packing. Local holds the
// silhouette in the agent frame and is shared, never modified, across
// iterations.
type AgentState struct {
	Local       geom.ShapeSet
	Position    geom.Point
	Orientation float64
}

// StateOf captures the current pose of a.
func StateOf(a *agents.Agent) AgentState {
	return AgentState{Local: a.LocalShapes(), Position: a.Position(), Orientation: a.Orientation()}
}

// World returns the silhouette placed at the state's pose.
func (s AgentState) World() geom.ShapeSet {
	w := s.Local.Clone()
	w.Rotate(geom.Point{}, s.Orientation)
	w.Translate(s.Position)
	return w
}

// Report counts the violations found while evaluating one iteration.
type Report struct {
	Overlaps    int
	OutOfBounds int
}

// Converged reports whether the evaluated states were free of violations.
func (r Report) Converged() bool {
	return r.Overlaps == 0 && r.OutOfBounds == 0
}

// Pack relaxes overlaps in place. The crowd ends Packed or PackingFailed and
// keeps its last iterate either way. The error is non-nil only for invalid
// options or a cancelled context.
func (c *Crowd) Pack(ctx context.Context, opts PackOptions) (PackResult, error) {
	if err := opts.Validate(); err != nil {
		return PackResult{}, fmt.Errorf("pack: %w", err)
	}
	if c.state == StateEmpty {
		return PackResult{}, errors.New("pack: crowd is empty")
	}
	start := time.Now()

	states := make([]AgentState, len(c.Agents))
	for i, a := range c.Agents {
		states[i] = StateOf(a)
	}

	var (
		report Report
		iter   int
		done   bool
	)
	for iter = 1; iter <= opts.MaxIterations; iter++ {
		next, r, err := Step(ctx, states, c.Boundary, opts)
		if err != nil {
			c.apply(states)
			return PackResult{}, fmt.Errorf("pack iteration %d: %w", iter, err)
		}
		report = r
		if opts.OnIteration != nil {
			opts.OnIteration(iter, r.Overlaps)
		}
		if r.Converged() {
			done = true
			break
		}
		states = next
	}
	if !done {
		// The last step was applied without being checked.
		iter = opts.MaxIterations
		_, r, err := Step(ctx, states, c.Boundary, opts)
		if err != nil {
			c.apply(states)
			return PackResult{}, fmt.Errorf("pack final check: %w", err)
		}
		report = r
	}
	c.apply(states)

	res := PackResult{
		Status:           StatusFailed,
		Iterations:       iter,
		ResidualOverlaps: report.Overlaps,
		OutOfBounds:      report.OutOfBounds,
		Elapsed:          time.Since(start),
	}
	c.state = StatePackingFailed
	if report.Converged() {
		res.Status = StatusPacked
		c.state = StatePacked
	}
	c.logger.Info("crowd packing finished",
		"status", res.Status.String(),
		"iterations", res.Iterations,
		"overlaps", res.ResidualOverlaps,
		"out_of_bounds", res.OutOfBounds,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// apply moves every agent onto its state in one pass.
func (c *Crowd) apply(states []AgentState) {
	for i, a := range c.Agents {
		s := states[i]
		d := s.Position.Sub(a.Position())
		a.Move(d.X, d.Y, geom.WrapAngle(s.Orientation-a.Orientation()))
	}
}

// pairResult is the contribution of one candidate agent pair.
type pairResult struct {
	fi, fj      geom.Point
	ti, tj      float64 // contact torque, cm²
	ai, aj      float64 // alignment, degrees
	overlapping bool
}

// Step evaluates one relaxation iteration. It returns the next states and a
// report on the input states; when the report has converged the returned
// states equal the input. Pair contributions may be computed concurrently
// but are summed in pair order, so the result does not depend on Workers.
func Step(ctx context.Context, states []AgentState, boundary Boundary, opts PackOptions) ([]AgentState, Report, error) {
	n := len(states)
	worlds := make([]geom.ShapeSet, n)
	bounds := make([]geom.Rect, n)
	for i, s := range states {
		worlds[i] = s.World()
		bounds[i] = worlds[i].Bounds()
	}

	type pair struct{ i, j int }
	var pairs []pair
	for i := 0; i < n; i++ {
		reach := bounds[i].ExpandedByMargin(opts.Margin)
		for j := i + 1; j < n; j++ {
			if reach.Intersects(bounds[j]) {
				pairs = append(pairs, pair{i, j})
			}
		}
	}

	results := make([]pairResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for k, p := range pairs {
		k, p := k, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[k] = pairForce(worlds[p.i], worlds[p.j], states[p.i], states[p.j], opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}

	force := make([]geom.Point, n)
	torque := make([]float64, n)
	align := make([]float64, n)
	var report Report
	for k, p := range pairs {
		r := results[k]
		if r.overlapping {
			report.Overlaps++
		}
		force[p.i] = force[p.i].Add(r.fi)
		force[p.j] = force[p.j].Add(r.fj)
		torque[p.i] += r.ti
		torque[p.j] += r.tj
		align[p.i] += r.ai
		align[p.j] += r.aj
	}
	for i := range states {
		if !boundary.Contains(bounds[i], opts.Tolerance) {
			report.OutOfBounds++
		}
		f, t := wallForce(worlds[i], states[i].Position, boundary, opts)
		force[i] = force[i].Add(f)
		torque[i] += t
	}

	if report.Converged() {
		return states, report, nil
	}

	next := make([]AgentState, n)
	for i, s := range states {
		step := geom.ClampVector(force[i], opts.MaxStep)
		rot := geom.Clamp(opts.RotationalIntensity*torque[i]+align[i], opts.MaxRotation)
		next[i] = AgentState{
			Local:       s.Local,
			Position:    s.Position.Add(step),
			Orientation: geom.WrapAngle(s.Orientation + rot),
		}
	}
	return next, report, nil
}

// pairForce sums the repulsion between every close shape pair of two
// agents. The force on b is along the contact normal; a receives the
// reaction.
func pairForce(wa, wb geom.ShapeSet, sa, sb AgentState, opts PackOptions) pairResult {
	var r pairResult
	fallback := sb.Position.Sub(sa.Position)
	if fallback.Norm() < 1e-12 {
		fallback = geom.Pt(1, 0)
	}
	touching := false
	for x := 0; x < wa.Len(); x++ {
		a := wa.At(x).Shape
		reach := a.Bounds().ExpandedByMargin(opts.Margin)
		for y := 0; y < wb.Len(); y++ {
			b := wb.At(y).Shape
			if !reach.Intersects(b.Bounds()) {
				continue
			}
			c := geom.Separation(a, b, fallback)
			if c.Overlapping(opts.Tolerance) {
				r.overlapping = true
			}
			if c.Gap >= opts.Margin {
				continue
			}
			touching = true
			f := c.Normal.Mul(opts.TranslationalIntensity * (opts.Margin - c.Gap))
			r.fj = r.fj.Add(f)
			r.fi = r.fi.Sub(f)
			r.ti += c.Point.Sub(sa.Position).Cross(f.Mul(-1))
			r.tj += c.Point.Sub(sb.Position).Cross(f)
		}
	}
	if touching && opts.AlignmentIntensity > 0 {
		d := geom.WrapAngle(sb.Orientation - sa.Orientation)
		r.ai = opts.AlignmentIntensity * d
		r.aj = -opts.AlignmentIntensity * d
	}
	return r
}

// wall describes one side of the boundary by its inward normal.
type wall struct {
	normal geom.Point
	offset func(b Boundary) float64
}

var walls = [4]wall{
	{geom.Pt(1, 0), func(Boundary) float64 { return 0 }},
	{geom.Pt(-1, 0), func(b Boundary) float64 { return -b.Width }},
	{geom.Pt(0, 1), func(Boundary) float64 { return 0 }},
	{geom.Pt(0, -1), func(b Boundary) float64 { return -b.Height }},
}

// wallForce pushes shapes that come within the margin of a wall back
// inside, with the same law as agent pairs.
func wallForce(w geom.ShapeSet, pos geom.Point, boundary Boundary, opts PackOptions) (geom.Point, float64) {
	var f geom.Point
	var t float64
	for i := 0; i < w.Len(); i++ {
		s := w.At(i).Shape
		for _, wl := range walls {
			lo, _ := s.Extent(wl.normal)
			gap := lo - wl.offset(boundary)
			if gap >= opts.Margin {
				continue
			}
			push := wl.normal.Mul(opts.TranslationalIntensity * (opts.Margin - gap))
			// Contact sits on the shape's extreme line, level with its centroid.
			c := s.Centroid()
			at := c.Sub(wl.normal.Mul(c.Dot(wl.normal) - lo))
			f = f.Add(push)
			t += at.Sub(pos).Cross(push)
		}
	}
	return f, t
}
