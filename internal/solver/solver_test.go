package solver

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inputFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "Agents.xml")
	require.NoError(t, os.WriteFile(p, []byte("<Agents/>"), 0o644))
	return p
}

func shell(t *testing.T, script string) *ExecRunner {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no POSIX shell available")
	}
	r := NewExecRunner(sh)
	r.Args = []string{"-c", script, "solver"}
	return r
}

func TestExecRunnerPassesFiles(t *testing.T) {
	f := inputFile(t)
	// Succeeds only when the first argument is the input file.
	r := shell(t, `test "$1" = "`+f+`" && test $# -eq 1`)
	status, err := r.Run(context.Background(), []string{f})
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestExecRunnerReportsExitStatus(t *testing.T) {
	r := shell(t, "exit 3")
	status, err := r.Run(context.Background(), []string{inputFile(t)})
	require.NoError(t, err)
	assert.Equal(t, 3, status)
}

func TestExecRunnerErrors(t *testing.T) {
	r := NewExecRunner("definitely-not-a-solver-binary")
	_, err := r.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = r.Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing.xml")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = r.Run(context.Background(), []string{inputFile(t)})
	assert.Error(t, err)
}

func TestRunnerFunc(t *testing.T) {
	var got []string
	var r Runner = RunnerFunc(func(_ context.Context, files []string) (int, error) {
		got = files
		return 7, nil
	})
	status, err := r.Run(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 7, status)
	assert.Equal(t, []string{"a", "b"}, got)
}
