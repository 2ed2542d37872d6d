// Package measures holds the anthropometric and physical parameters that
// define a single agent, and samples them from population statistics.
package measures

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidMeasures marks missing, unexpected, or out-of-range attributes.
	ErrInvalidMeasures = errors.New("invalid measures")
	// ErrSamplingExhausted is returned when rejection sampling runs out of draws.
	ErrSamplingExhausted = errors.New("sampling exhausted")
)

// AgentType distinguishes the body families.
type AgentType uint8

const (
	Pedestrian AgentType = iota
	Bike
)

// String returns the lowercase type name used in statistics keys and documents.
func (t AgentType) String() string {
	switch t {
	case Pedestrian:
		return "pedestrian"
	case Bike:
		return "bike"
	default:
		return fmt.Sprintf("agent_type(%d)", uint8(t))
	}
}

// ParseAgentType is the inverse of AgentType.String.
func ParseAgentType(s string) (AgentType, error) {
	switch strings.ToLower(s) {
	case "pedestrian":
		return Pedestrian, nil
	case "bike":
		return Bike, nil
	}
	return 0, fmt.Errorf("%w: unknown agent type %q", ErrInvalidMeasures, s)
}

// Sex is encoded as a numeric attribute so it fits the scalar schema.
type Sex uint8

const (
	Male   Sex = 0
	Female Sex = 1
)

// String returns the lowercase sex name used in statistics keys.
func (s Sex) String() string {
	switch s {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return fmt.Sprintf("sex(%d)", uint8(s))
	}
}

// Attribute names.
const (
	AttrSex              = "sex"
	AttrBideltoidBreadth = "bideltoid_breadth" // cm
	AttrChestDepth       = "chest_depth"       // cm
	AttrHeight           = "height"            // cm
	AttrWeight           = "weight"            // kg
	AttrWheelWidth       = "wheel_width"       // cm
	AttrTotalLength      = "total_length"      // cm
	AttrHandlebarLength  = "handlebar_length"  // cm
	AttrTopTubeLength    = "top_tube_length"   // cm
)

// bounds is the accepted closed range of a literal attribute value.
type bounds struct{ lo, hi float64 }

// schema lists, per agent type, every attribute and its accepted range.
var schema = map[AgentType]map[string]bounds{
	Pedestrian: {
		AttrSex:              {0, 1},
		AttrBideltoidBreadth: {20, 80},
		AttrChestDepth:       {10, 60},
		AttrHeight:           {80, 250},
		AttrWeight:           {15, 250},
	},
	Bike: {
		AttrWheelWidth:      {1, 20},
		AttrTotalLength:     {80, 300},
		AttrHandlebarLength: {20, 120},
		AttrTopTubeLength:   {20, 120},
		AttrWeight:          {30, 300}, // rider and bike together
	},
}

// Attributes returns the schema attribute names for t in a stable order.
func Attributes(t AgentType) []string {
	names := make([]string, 0, len(schema[t]))
	for name := range schema[t] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Measures is an immutable set of attribute values for one agent.
type Measures struct {
	agentType AgentType
	values    map[string]float64
}

// New validates values against the schema of agentType.
func New(agentType AgentType, values map[string]float64) (Measures, error) {
	sch, ok := schema[agentType]
	if !ok {
		return Measures{}, fmt.Errorf("%w: unknown agent type %d", ErrInvalidMeasures, agentType)
	}
	for name := range values {
		if _, known := sch[name]; !known {
			return Measures{}, fmt.Errorf("%w: unexpected attribute %q for %s", ErrInvalidMeasures, name, agentType)
		}
	}
	out := make(map[string]float64, len(sch))
	for _, name := range Attributes(agentType) {
		b := sch[name]
		v, present := values[name]
		if !present {
			return Measures{}, fmt.Errorf("%w: missing attribute %q for %s", ErrInvalidMeasures, name, agentType)
		}
		if name == AttrSex {
			if v != float64(Male) && v != float64(Female) {
				return Measures{}, fmt.Errorf("%w: sex must be 0 (male) or 1 (female), got %g", ErrInvalidMeasures, v)
			}
		} else if !(v >= b.lo && v <= b.hi) {
			return Measures{}, fmt.Errorf("%w: %s=%g outside [%g, %g]", ErrInvalidMeasures, name, v, b.lo, b.hi)
		}
		out[name] = v
	}
	return Measures{agentType: agentType, values: out}, nil
}

// NewPedestrian is a convenience constructor for pedestrian measures.
func NewPedestrian(sex Sex, breadth, depth, height, weight float64) (Measures, error) {
	return New(Pedestrian, map[string]float64{
		AttrSex:              float64(sex),
		AttrBideltoidBreadth: breadth,
		AttrChestDepth:       depth,
		AttrHeight:           height,
		AttrWeight:           weight,
	})
}

// NewBike is a convenience constructor for bike measures.
func NewBike(wheelWidth, totalLength, handlebarLength, topTubeLength, weight float64) (Measures, error) {
	return New(Bike, map[string]float64{
		AttrWheelWidth:      wheelWidth,
		AttrTotalLength:     totalLength,
		AttrHandlebarLength: handlebarLength,
		AttrTopTubeLength:   topTubeLength,
		AttrWeight:          weight,
	})
}

// Type returns the agent type.
func (m Measures) Type() AgentType {
	return m.agentType
}

// Get returns an attribute value.
func (m Measures) Get(name string) (float64, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Value returns an attribute value, or 0 when absent.
func (m Measures) Value(name string) float64 {
	return m.values[name]
}

// Sex returns the pedestrian sex. The second result is false for bikes.
func (m Measures) Sex() (Sex, bool) {
	v, ok := m.values[AttrSex]
	if !ok {
		return 0, false
	}
	return Sex(v), true
}

// Weight returns the mass in kg.
func (m Measures) Weight() float64 {
	return m.values[AttrWeight]
}

// Values returns a copy of the attribute map.
func (m Measures) Values() map[string]float64 {
	out := make(map[string]float64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// With rebuilds the measures with one attribute replaced.
func (m Measures) With(name string, value float64) (Measures, error) {
	vals := m.Values()
	vals[name] = value
	return New(m.agentType, vals)
}

// IsZero reports whether m was never constructed.
func (m Measures) IsZero() bool {
	return m.values == nil
}
