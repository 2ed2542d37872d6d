// Package solver hands an exported configuration to the external mechanical
// solver. The solver is opaque: it takes the bundle file paths and returns an
// integer status.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// ErrNoFiles is returned when a run is requested without input files.
var ErrNoFiles = errors.New("no input files")

// Runner runs the solver over a list of configuration files.
type Runner interface {
	Run(ctx context.Context, files []string) (int, error)
}

// ExecRunner invokes the solver as a child process with the file paths as
// its arguments. A non-zero exit is reported through the status, not the
// error; the error covers failures to start or wait for the process.
type ExecRunner struct {
	Binary string
	Args   []string // prepended to the file paths
	Dir    string
	Logger *slog.Logger
}

// NewExecRunner creates a runner for binary.
func NewExecRunner(binary string) *ExecRunner {
	return &ExecRunner{Binary: binary, Logger: slog.Default()}
}

// Run starts the binary and waits for it.
func (r *ExecRunner) Run(ctx context.Context, files []string) (int, error) {
	if len(files) == 0 {
		return -1, ErrNoFiles
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return -1, fmt.Errorf("solver input: %w", err)
		}
	}
	args := append(append([]string{}, r.Args...), files...)
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = r.Dir
	cmd.Env = os.Environ()

	start := time.Now()
	out, err := cmd.CombinedOutput()
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		logger.Info("solver finished", "binary", r.Binary, "files", len(files), "elapsed", time.Since(start))
		return 0, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		code := exitErr.ExitCode()
		logger.Warn("solver exited with status", "binary", r.Binary, "status", code, "output", string(out))
		return code, nil
	default:
		return -1, fmt.Errorf("run solver %s: %w", r.Binary, err)
	}
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, files []string) (int, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, files []string) (int, error) {
	return f(ctx, files)
}
