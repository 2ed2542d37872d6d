package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/crowdmech/internal/crowd"
	"github.com/talgya/crowdmech/internal/exchange"
	"github.com/talgya/crowdmech/internal/materials"
	"github.com/talgya/crowdmech/internal/persistence"
	"github.com/talgya/crowdmech/internal/solver"
)

// progressEvery controls how often packing progress is logged.
const progressEvery = 100

func (a *app) openDB() (*persistence.DB, error) {
	if dir := filepath.Dir(a.cfg.Database); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := persistence.Open(a.cfg.Database)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", a.cfg.Database)
	return db, nil
}

func (a *app) runGenerate(ctx context.Context, solve, save bool) error {
	cfg := a.cfg
	stats, err := cfg.Statistics()
	if err != nil {
		return err
	}
	placement, err := cfg.PlacementOptions()
	if err != nil {
		return err
	}

	c, err := crowd.New(cfg.Crowd.Boundary, stats)
	if err != nil {
		return err
	}
	c.SetLogger(slog.Default())

	rng := rand.New(rand.NewSource(cfg.Seed))
	if err := c.Populate(cfg.Crowd.Agents, rng, placement); err != nil {
		return err
	}

	opts := cfg.PackOptions()
	opts.OnIteration = func(iteration, overlaps int) {
		if iteration%progressEvery == 0 {
			slog.Debug("packing", "iteration", iteration, "overlaps", overlaps)
		}
	}
	res, err := c.Pack(ctx, opts)
	if err != nil {
		return err
	}
	if res.Status == crowd.StatusFailed {
		slog.Warn("packing did not converge, exporting anyway",
			"overlaps", res.ResidualOverlaps, "out_of_bounds", res.OutOfBounds)
	}

	name := fmt.Sprintf("seed-%d", cfg.Seed)
	if save {
		db, err := a.openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		id, err := db.SaveCrowd(ctx, c, cfg.Seed, res)
		if err != nil {
			return err
		}
		name = id.String()
	}

	paths, err := a.export(c, name)
	if err != nil {
		return err
	}
	if solve {
		return a.solve(ctx, paths)
	}
	return nil
}

// export writes the bundle under the output dir and returns its file paths.
func (a *app) export(c *crowd.Crowd, name string) ([]string, error) {
	b, err := exchange.BuildBundle(c, materials.Default(), a.cfg.Output.WallMaterial)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(a.cfg.Output.Dir, name)
	paths, err := b.WriteDir(dir)
	if err != nil {
		return nil, err
	}

	var size uint64
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil {
			size += uint64(fi.Size())
		}
	}
	if a.cfg.Output.Zip {
		zipPath := dir + ".zip"
		f, err := os.Create(zipPath)
		if err != nil {
			return nil, err
		}
		if err := b.WriteZip(f); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		slog.Info("bundle archived", "path", zipPath)
	}

	slog.Info("bundle exported",
		"dir", dir,
		"agents", len(b.Static.Agents),
		"interacting_pairs", humanize.Comma(int64(len(b.Interactions.Pairs))),
		"size", humanize.Bytes(size),
	)
	return paths, nil
}

func (a *app) solve(ctx context.Context, files []string) error {
	if a.cfg.Solver.Binary == "" {
		return errors.New("no solver binary configured")
	}
	r := solver.NewExecRunner(a.cfg.Solver.Binary)
	r.Args = a.cfg.Solver.Args
	status, err := r.Run(ctx, files)
	if err != nil {
		return err
	}
	if status != 0 {
		return fmt.Errorf("solver exited with status %d", status)
	}
	return nil
}

func (a *app) runInspect(ctx context.Context, w io.Writer, limit int) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no stored runs")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSEED\tAGENTS\tAREA\tSTATE\tITERATIONS\tOVERLAPS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%gx%g\t%s\t%s\t%d\n",
			r.ID, humanize.Time(r.Created()), r.Seed, humanize.Comma(int64(r.AgentCount)),
			r.Width, r.Height, r.State, humanize.Comma(int64(r.Iterations)), r.ResidualOverlaps)
	}
	return tw.Flush()
}

func (a *app) runInspectOne(ctx context.Context, w io.Writer, arg string) error {
	id, err := uuid.Parse(arg)
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	c, run, err := db.LoadCrowd(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run %s (%s, %s)\n", run.ID, run.State, run.Created().Format(time.RFC3339))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tTYPE\tX\tY\tHEADING\tMASS")
	for _, ag := range c.Agents {
		p := ag.Position()
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.1f\t%.1f\t%.1f\n",
			ag.ID, ag.Type, p.X, p.Y, ag.Orientation(), ag.Mass())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if err := c.Validate(crowd.DefaultTolerance); err != nil {
		fmt.Fprintf(w, "violations:\n%v\n", err)
	}
	return nil
}

func (a *app) runExport(ctx context.Context, arg string) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var id uuid.UUID
	if arg == "" {
		id, err = db.LastRun(ctx)
	} else {
		id, err = uuid.Parse(arg)
	}
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}
	c, _, err := db.LoadCrowd(ctx, id)
	if err != nil {
		return err
	}
	_, err = a.export(c, id.String())
	return err
}

func (a *app) runSolve(ctx context.Context, dir string) error {
	// Decode first so a broken bundle fails here rather than in the solver.
	if _, err := exchange.ReadDir(dir); err != nil {
		return err
	}
	files := make([]string, len(exchange.FileNames))
	for i, name := range exchange.FileNames {
		files[i] = filepath.Join(dir, name)
	}
	return a.solve(ctx, files)
}
