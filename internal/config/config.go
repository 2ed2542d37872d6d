// Package config loads crowdgen settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/crowdmech/internal/crowd"
	"github.com/talgya/crowdmech/internal/materials"
	"github.com/talgya/crowdmech/internal/measures"
)

// Environment variables that override file settings.
const (
	EnvSeed     = "CROWD_SEED"
	EnvAgents   = "CROWD_AGENTS"
	EnvDatabase = "CROWD_DB"
	EnvLogLevel = "CROWD_LOG_LEVEL"
)

// Config is the full crowdgen configuration.
type Config struct {
	Seed           int64     `yaml:"seed"`
	LogLevel       string    `yaml:"log_level"`
	Crowd          Crowd     `yaml:"crowd"`
	Placement      Placement `yaml:"placement"`
	Packing        Packing   `yaml:"packing"`
	Output         Output    `yaml:"output"`
	Database       string    `yaml:"database"`
	Solver         Solver    `yaml:"solver"`
	StatisticsFile string    `yaml:"statistics_file"`
}

// Crowd sizes the generated population.
type Crowd struct {
	Agents   int            `yaml:"agents"`
	Boundary crowd.Boundary `yaml:"boundary"`
}

// Placement mirrors crowd.PlacementOptions with a textual mode.
type Placement struct {
	Orientation   string  `yaml:"orientation"`
	FixedAngle    float64 `yaml:"fixed_angle"`
	FlowFrequency float64 `yaml:"flow_frequency"`
	FlowOctaves   int     `yaml:"flow_octaves"`
}

// Packing mirrors crowd.PackOptions.
type Packing struct {
	MaxIterations          int     `yaml:"max_iterations"`
	TranslationalIntensity float64 `yaml:"translational_intensity"`
	RotationalIntensity    float64 `yaml:"rotational_intensity"`
	AlignmentIntensity     float64 `yaml:"alignment_intensity"`
	Margin                 float64 `yaml:"margin"`
	MaxStep                float64 `yaml:"max_step"`
	MaxRotation            float64 `yaml:"max_rotation"`
	Tolerance              float64 `yaml:"tolerance"`
	Workers                int     `yaml:"workers"`
}

// Output controls where exported bundles go.
type Output struct {
	Dir          string `yaml:"dir"`
	Zip          bool   `yaml:"zip"`
	WallMaterial string `yaml:"wall_material"`
}

// Solver names the external solver binary. Empty disables solving.
type Solver struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args"`
}

// Default returns a configuration that packs 20 pedestrians in a 4 m square.
func Default() Config {
	p := crowd.DefaultPackOptions()
	pl := crowd.DefaultPlacement()
	return Config{
		Seed:     42,
		LogLevel: "info",
		Crowd: Crowd{
			Agents:   20,
			Boundary: crowd.Boundary{Width: 400, Height: 400},
		},
		Placement: Placement{
			Orientation:   pl.Orientation.String(),
			FixedAngle:    pl.FixedAngle,
			FlowFrequency: pl.FlowFrequency,
			FlowOctaves:   pl.FlowOctaves,
		},
		Packing: Packing{
			MaxIterations:          p.MaxIterations,
			TranslationalIntensity: p.TranslationalIntensity,
			RotationalIntensity:    p.RotationalIntensity,
			AlignmentIntensity:     p.AlignmentIntensity,
			Margin:                 p.Margin,
			MaxStep:                p.MaxStep,
			MaxRotation:            p.MaxRotation,
			Tolerance:              p.Tolerance,
			Workers:                p.Workers,
		},
		Output: Output{
			Dir:          "out",
			WallMaterial: materials.Concrete,
		},
		Database: "data/crowd.db",
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path uses the defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config YAML: %w", err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error
	if v := getenv(EnvSeed); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvSeed, err))
		}
		c.Seed = n
	}
	if v := getenv(EnvAgents); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvAgents, err))
		}
		c.Crowd.Agents = n
	}
	if v := getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return errors.Join(errs...)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Crowd.Agents < 1 {
		errs = append(errs, fmt.Errorf("crowd.agents must be at least 1, got %d", c.Crowd.Agents))
	}
	if err := c.Crowd.Boundary.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.PlacementOptions(); err != nil {
		errs = append(errs, err)
	}
	if err := c.PackOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := materials.Default().Material(c.Output.WallMaterial); err != nil {
		errs = append(errs, fmt.Errorf("output.wall_material: %w", err))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// PlacementOptions converts the placement section.
func (c Config) PlacementOptions() (crowd.PlacementOptions, error) {
	mode, err := crowd.ParseOrientationMode(c.Placement.Orientation)
	if err != nil {
		return crowd.PlacementOptions{}, fmt.Errorf("placement.orientation: %w", err)
	}
	return crowd.PlacementOptions{
		Orientation:   mode,
		FixedAngle:    c.Placement.FixedAngle,
		FlowFrequency: c.Placement.FlowFrequency,
		FlowOctaves:   c.Placement.FlowOctaves,
	}, nil
}

// PackOptions converts the packing section.
func (c Config) PackOptions() crowd.PackOptions {
	return crowd.PackOptions{
		MaxIterations:          c.Packing.MaxIterations,
		TranslationalIntensity: c.Packing.TranslationalIntensity,
		RotationalIntensity:    c.Packing.RotationalIntensity,
		AlignmentIntensity:     c.Packing.AlignmentIntensity,
		Margin:                 c.Packing.Margin,
		MaxStep:                c.Packing.MaxStep,
		MaxRotation:            c.Packing.MaxRotation,
		Tolerance:              c.Packing.Tolerance,
		Workers:                c.Packing.Workers,
	}
}

// Statistics returns the configured statistics table, or the defaults when
// no file is set.
func (c Config) Statistics() (measures.Statistics, error) {
	if c.StatisticsFile == "" {
		return measures.DefaultStatistics(), nil
	}
	stats, err := measures.LoadStatistics(c.StatisticsFile)
	if err != nil {
		return nil, err
	}
	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", c.StatisticsFile, err)
	}
	return stats, nil
}
