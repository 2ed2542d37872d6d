// Command crowdgen generates packed crowd configurations and exports them
// for the mechanical solver.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/talgya/crowdmech/internal/config"
)

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	configPath string
	envFile    string
	cfg        config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "crowdgen",
		Short:         "Generate, pack and export 2D crowd configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(a.generateCmd())
	rootCmd.AddCommand(a.inspectCmd())
	rootCmd.AddCommand(a.exportCmd())
	rootCmd.AddCommand(a.solveCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("crowdgen failed", "error", err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := cfg.Level()
	slog.SetDefault(slog.New(newHandler(level)))
	return nil
}

// newHandler logs text to a terminal and JSON otherwise.
func newHandler(level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.NewJSONHandler(os.Stderr, opts)
}

func (a *app) generateCmd() *cobra.Command {
	var (
		agents int
		seed   int64
		solve  bool
		noSave bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Populate a crowd, pack it, export the bundle and store the run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("agents") {
				a.cfg.Crowd.Agents = agents
			}
			if cmd.Flags().Changed("seed") {
				a.cfg.Seed = seed
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runGenerate(cmd.Context(), solve, !noSave)
		},
	}
	cmd.Flags().IntVarP(&agents, "agents", "n", 0, "number of agents (overrides config)")
	cmd.Flags().Int64VarP(&seed, "seed", "s", 0, "random seed (overrides config)")
	cmd.Flags().BoolVar(&solve, "solve", false, "run the configured solver on the exported bundle")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run in the database")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "List stored runs, or show one run in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return a.runInspectOne(cmd.Context(), cmd.OutOrStdout(), args[0])
			}
			return a.runInspect(cmd.Context(), cmd.OutOrStdout(), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of runs listed")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Re-export a stored run (the latest when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			if out != "" {
				a.cfg.Output.Dir = out
			}
			return a.runExport(cmd.Context(), id)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (overrides config)")
	return cmd
}

func (a *app) solveCmd() *cobra.Command {
	var binary string
	cmd := &cobra.Command{
		Use:   "solve [bundle-dir]",
		Short: "Run the external solver over an exported bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if binary != "" {
				a.cfg.Solver.Binary = binary
			}
			return a.runSolve(cmd.Context(), args[0])
		},
	}
	cmd.Flags().StringVarP(&binary, "binary", "b", "", "solver executable (overrides config)")
	return cmd
}
