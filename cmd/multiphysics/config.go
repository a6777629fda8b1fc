package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/notargets/FEAssembly/elemvec"
	"github.com/notargets/FEAssembly/partitions"
	"gopkg.in/yaml.v3"
)

// Config is the driver configuration, read from YAML. Fields missing from
// the file keep their defaults.
type Config struct {
	Mesh     MeshConfig     `yaml:"mesh"`
	Assembly AssemblyConfig `yaml:"assembly"`
	Check    CheckConfig    `yaml:"check"`
	LogLevel string         `yaml:"log_level"`
}

// MeshConfig is the number of elements of the box along each axis.
type MeshConfig struct {
	NX int `yaml:"nx"`
	NY int `yaml:"ny"`
	NZ int `yaml:"nz"`
}

type AssemblyConfig struct {
	Degree        int    `yaml:"degree"`         // H(div) degree, the potential is one lower
	Strategy      string `yaml:"strategy"`       // serial or parallel
	Workers       int    `yaml:"workers"`        // element workers for parallel assembly
	PartitionSize int    `yaml:"partition_size"` // elements per partition, 0 for one per worker
	Partition     string `yaml:"partition"`      // block or round-robin
	Jacobian      bool   `yaml:"jacobian"`       // also assemble the sparse Jacobian
}

type CheckConfig struct {
	Seeds     int     `yaml:"seeds"`
	Tolerance float64 `yaml:"tolerance"`
	Step      float64 `yaml:"step"`
}

func DefaultConfig() Config {
	return Config{
		Mesh: MeshConfig{NX: 2, NY: 2, NZ: 2},
		Assembly: AssemblyConfig{
			Degree:    2,
			Strategy:  "serial",
			Workers:   runtime.NumCPU(),
			Partition: "block",
			Jacobian:  true,
		},
		Check: CheckConfig{
			Seeds:     5,
			Tolerance: 1e-6,
			Step:      1e-7,
		},
		LogLevel: "info",
	}
}

// LoadConfig returns the defaults overlaid with the file at path, if any.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Mesh.NX < 1 || c.Mesh.NY < 1 || c.Mesh.NZ < 1 {
		return fmt.Errorf("mesh must have at least one element per axis, got %dx%dx%d",
			c.Mesh.NX, c.Mesh.NY, c.Mesh.NZ)
	}
	if c.Assembly.Degree < 1 {
		return fmt.Errorf("degree must be at least 1, got %d", c.Assembly.Degree)
	}
	if _, err := elemvec.ParseStrategy(c.Assembly.Strategy); err != nil {
		return err
	}
	if _, err := partitions.ParseStrategy(c.Assembly.Partition); err != nil {
		return err
	}
	if c.Assembly.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Assembly.Workers)
	}
	if c.Assembly.PartitionSize < 0 {
		return fmt.Errorf("partition size must not be negative, got %d", c.Assembly.PartitionSize)
	}
	if c.Check.Seeds < 1 {
		return fmt.Errorf("check needs at least one seed, got %d", c.Check.Seeds)
	}
	if c.Check.Tolerance <= 0 || c.Check.Step <= 0 {
		return fmt.Errorf("check tolerance and step must be positive, got %g and %g",
			c.Check.Tolerance, c.Check.Step)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
