package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/crowdmech/internal/measures"
	"github.com/talgya/crowdmech/internal/shapes"
)

// Spawner creates agents from population statistics. All draws come from
// one generator in a fixed order, so a seed reproduces the population.
type Spawner struct {
	rng     *rand.Rand
	builder *shapes.Builder
	nextID  AgentID
}

// NewSpawner creates a spawner drawing from rng. The generator is shared,
// not copied: callers that keep using it afterwards continue the sequence.
func NewSpawner(rng *rand.Rand) *Spawner {
	return &Spawner{
		rng:     rng,
		builder: shapes.DefaultBuilder,
		nextID:  1,
	}
}

// SetNextID sets the next agent ID to be issued. Restoring a stored crowd
// sets it to each stored id before rebuilding that agent.
func (s *Spawner) SetNextID(id AgentID) {
	s.nextID = id
}

// SpawnPopulation creates count agents, drawing each agent's type from the
// statistics' type proportions.
func (s *Spawner) SpawnPopulation(count int, stats measures.Statistics) ([]*Agent, error) {
	agents := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		t, err := measures.SampleType(stats, s.rng)
		if err != nil {
			return nil, err
		}
		a, err := s.Spawn(t, stats)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// Spawn samples measures for one agent of type t and builds it. IDs are
// consumed only on success.
func (s *Spawner) Spawn(t measures.AgentType, stats measures.Statistics) (*Agent, error) {
	m, err := measures.Sample(t, stats, s.rng)
	if err != nil {
		return nil, fmt.Errorf("sample agent %d: %w", s.nextID, err)
	}
	return s.FromMeasures(m)
}

// FromMeasures builds an agent with the next ID from literal measures.
func (s *Spawner) FromMeasures(m measures.Measures) (*Agent, error) {
	a, err := NewWithBuilder(s.nextID, m, s.builder)
	if err != nil {
		return nil, err
	}
	s.nextID++
	return a, nil
}
