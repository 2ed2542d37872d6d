package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crowdmech/internal/crowd"
	"github.com/talgya/crowdmech/internal/materials"
	"github.com/talgya/crowdmech/internal/measures"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, crowd.DefaultPackOptions().MaxIterations, cfg.PackOptions().MaxIterations)
	opts, err := cfg.PlacementOptions()
	require.NoError(t, err)
	assert.Equal(t, crowd.OrientationUniform, opts.Orientation)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	p := writeFile(t, "crowd.yaml", `
seed: 7
crowd:
  agents: 35
  boundary:
    width: 600
    height: 250
placement:
  orientation: flow
packing:
  workers: 4
output:
  zip: true
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 35, cfg.Crowd.Agents)
	assert.Equal(t, crowd.Boundary{Width: 600, Height: 250}, cfg.Crowd.Boundary)
	assert.Equal(t, 4, cfg.PackOptions().Workers)
	assert.True(t, cfg.Output.Zip)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().Packing.MaxIterations, cfg.Packing.MaxIterations)
	assert.Equal(t, materials.Concrete, cfg.Output.WallMaterial)

	opts, err := cfg.PlacementOptions()
	require.NoError(t, err)
	assert.Equal(t, crowd.OrientationFlow, opts.Orientation)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "bad.yaml", "seed: [1, 2"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvSeed, "99")
	t.Setenv(EnvAgents, "12")
	t.Setenv(EnvDatabase, "/tmp/x.db")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, 12, cfg.Crowd.Agents)
	assert.Equal(t, "/tmp/x.db", cfg.Database)
	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestEnvOverrideErrors(t *testing.T) {
	env := map[string]string{EnvSeed: "abc", EnvAgents: "1.5"}
	cfg := Default()
	err := cfg.applyEnv(func(k string) string { return env[k] })
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvSeed)
	assert.Contains(t, err.Error(), EnvAgents)
}

func TestValidateAggregates(t *testing.T) {
	cfg := Default()
	cfg.Crowd.Agents = -1
	cfg.Crowd.Boundary.Width = 0
	cfg.Placement.Orientation = "spiral"
	cfg.Packing.MaxIterations = 0
	cfg.LogLevel = "loud"
	cfg.Output.WallMaterial = "glass"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, crowd.ErrInvalidBoundary)
	assert.ErrorIs(t, err, materials.ErrUnknownMaterial)
	for _, want := range []string{"crowd.agents", "placement.orientation", "max iterations", "log_level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateRequiresAgents(t *testing.T) {
	for _, n := range []int{0, -3} {
		cfg := Default()
		cfg.Crowd.Agents = n
		err := cfg.Validate()
		require.Error(t, err, "agents=%d", n)
		assert.Contains(t, err.Error(), "crowd.agents must be at least 1")
	}

	cfg := Default()
	cfg.Crowd.Agents = 1
	assert.NoError(t, cfg.Validate())
}

func TestStatisticsFile(t *testing.T) {
	cfg := Default()
	stats, err := cfg.Statistics()
	require.NoError(t, err)
	assert.Equal(t, measures.DefaultStatistics(), stats)

	cfg.StatisticsFile = writeFile(t, "stats.yaml", "pedestrian_proportion: -1\n")
	_, err = cfg.Statistics()
	assert.Error(t, err)
}
