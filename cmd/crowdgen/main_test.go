package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crowdmech/internal/config"
	"github.com/talgya/crowdmech/internal/exchange"
)

func testApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Crowd.Agents = 3
	cfg.Database = filepath.Join(dir, "data", "crowd.db")
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Output.Zip = true
	require.NoError(t, cfg.Validate())
	return &app{cfg: cfg}
}

func TestGenerateInspectExport(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()
	require.NoError(t, a.runGenerate(ctx, false, true))

	var out bytes.Buffer
	require.NoError(t, a.runInspect(ctx, &out, 10))
	assert.Contains(t, out.String(), "SEED")
	assert.Contains(t, out.String(), "42")

	require.NoError(t, a.runExport(ctx, ""))
	entries, err := os.ReadDir(a.cfg.Output.Dir)
	require.NoError(t, err)
	var dirs, zips int
	for _, e := range entries {
		if e.IsDir() {
			dirs++
			b, err := exchange.ReadDir(filepath.Join(a.cfg.Output.Dir, e.Name()))
			require.NoError(t, err)
			assert.Len(t, b.Static.Agents, 3)
		} else if filepath.Ext(e.Name()) == ".zip" {
			zips++
		}
	}
	// generate and export write to the same run directory.
	assert.Equal(t, 1, dirs)
	assert.Equal(t, 1, zips)
}

func TestGenerateWithoutSave(t *testing.T) {
	a := testApp(t)
	require.NoError(t, a.runGenerate(context.Background(), false, false))
	_, err := os.Stat(filepath.Join(a.cfg.Output.Dir, "seed-42", exchange.StaticFile))
	assert.NoError(t, err)
	_, err = os.Stat(a.cfg.Database)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSolveRequiresBinary(t *testing.T) {
	a := testApp(t)
	a.cfg.Output.Zip = false
	require.NoError(t, a.runGenerate(context.Background(), false, false))
	err := a.runSolve(context.Background(), filepath.Join(a.cfg.Output.Dir, "seed-42"))
	assert.ErrorContains(t, err, "no solver binary")

	err = a.runSolve(context.Background(), t.TempDir())
	assert.Error(t, err)
}
