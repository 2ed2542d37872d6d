// Package crowd owns a population of agents inside a rectangular boundary:
// it samples and places them, then relaxes overlaps with a force-based
// packing loop.
package crowd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang/geo/r1"

	"github.com/talgya/crowdmech/internal/agents"
	"github.com/talgya/crowdmech/internal/geom"
	"github.com/talgya/crowdmech/internal/measures"
)

// ErrInvalidBoundary is returned for non-positive boundary dimensions.
var ErrInvalidBoundary = errors.New("invalid boundary")

// DefaultTolerance is the penetration and boundary slack, in cm, below which
// two bodies are not considered overlapping.
const DefaultTolerance = 1e-3

// Boundary is the walkable area in cm, spanning [0, Width] × [0, Height].
type Boundary struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect returns the boundary as a rectangle.
func (b Boundary) Rect() geom.Rect {
	return geom.Rect{X: r1.Interval{Lo: 0, Hi: b.Width}, Y: r1.Interval{Lo: 0, Hi: b.Height}}
}

// Contains reports whether r lies inside the boundary, allowing tol slack.
func (b Boundary) Contains(r geom.Rect, tol float64) bool {
	return b.Rect().ExpandedByMargin(tol).Contains(r)
}

// Validate checks that both dimensions are positive.
func (b Boundary) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: %gx%g", ErrInvalidBoundary, b.Width, b.Height)
	}
	return nil
}

// State is the lifecycle stage of a crowd.
type State uint8

const (
	StateEmpty State = iota
	StatePopulated
	StatePacked
	StatePackingFailed
)

var stateNames = map[State]string{
	StateEmpty:         "empty",
	StatePopulated:     "populated",
	StatePacked:        "packed",
	StatePackingFailed: "packing_failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", s)
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	for st, n := range stateNames {
		if n == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown crowd state %q", s)
}

// Crowd is an ordered population inside a fixed boundary. It is not safe for
// concurrent use; packing owns every agent pose while it runs.
type Crowd struct {
	Agents     []*agents.Agent
	Boundary   Boundary
	Statistics measures.Statistics

	state  State
	logger *slog.Logger
}

// New creates an empty crowd.
func New(boundary Boundary, stats measures.Statistics) (*Crowd, error) {
	if err := boundary.Validate(); err != nil {
		return nil, err
	}
	if stats == nil {
		stats = measures.DefaultStatistics()
	}
	return &Crowd{Boundary: boundary, Statistics: stats, logger: slog.Default()}, nil
}

// SetLogger replaces the logger used for packing progress.
func (c *Crowd) SetLogger(l *slog.Logger) {
	c.logger = l
}

// State returns the current lifecycle stage.
func (c *Crowd) State() State {
	return c.state
}

// SetState restores a stored lifecycle stage.
func (c *Crowd) SetState(s State) {
	c.state = s
}

// Add appends already-built agents and marks the crowd populated.
func (c *Crowd) Add(as ...*agents.Agent) {
	c.Agents = append(c.Agents, as...)
	if len(c.Agents) > 0 && c.state == StateEmpty {
		c.state = StatePopulated
	}
}

// Clone returns a deep copy.
func (c *Crowd) Clone() *Crowd {
	out := *c
	out.Agents = make([]*agents.Agent, len(c.Agents))
	for i, a := range c.Agents {
		out.Agents[i] = a.Clone()
	}
	return &out
}

// Violation names a pair of overlapping agents or a single agent outside the
// boundary (Other == 0).
type Violation struct {
	Agent agents.AgentID
	Other agents.AgentID
}

// Overlapping lists every agent pair whose silhouettes penetrate by more
// than tol, in index order.
func (c *Crowd) Overlapping(tol float64) []Violation {
	var out []Violation
	for i := 0; i < len(c.Agents); i++ {
		si := c.Agents[i].Shapes2D()
		for j := i + 1; j < len(c.Agents); j++ {
			if !si.Bounds().Intersects(c.Agents[j].Bounds()) {
				continue
			}
			if geom.SetsOverlap(si, c.Agents[j].Shapes2D(), tol) {
				out = append(out, Violation{Agent: c.Agents[i].ID, Other: c.Agents[j].ID})
			}
		}
	}
	return out
}

// OutOfBounds lists agents whose silhouette leaves the boundary by more than tol.
func (c *Crowd) OutOfBounds(tol float64) []Violation {
	var out []Violation
	for _, a := range c.Agents {
		if !c.Boundary.Contains(a.Bounds(), tol) {
			out = append(out, Violation{Agent: a.ID})
		}
	}
	return out
}

// Validate returns an error describing every overlap and boundary violation.
func (c *Crowd) Validate(tol float64) error {
	var errs []error
	for _, v := range c.Overlapping(tol) {
		errs = append(errs, fmt.Errorf("agents %d and %d overlap", v.Agent, v.Other))
	}
	for _, v := range c.OutOfBounds(tol) {
		errs = append(errs, fmt.Errorf("agent %d outside boundary", v.Agent))
	}
	return errors.Join(errs...)
}
