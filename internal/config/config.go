package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the run-level settings of a probing run. It is populated from
// CLI flags and optionally overridden by a YAML file.
type Config struct {
	Tasks      []string `yaml:"tasks"`
	Layers     []int    `yaml:"-"`
	LayerSpec  string   `yaml:"layers"`
	Components int      `yaml:"n_components"`
	Runs       int      `yaml:"n_runs"`
	Seed       int64    `yaml:"seed"`
	Confidence float64  `yaml:"confidence"`
	BatchSize  int      `yaml:"batch_size"`

	OutputDir   string `yaml:"output_dir"`
	ModelAddr   string `yaml:"model_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	DatasetDir  string `yaml:"dataset_dir"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Default() *Config {
	return &Config{
		Tasks:       []string{"plurality", "pos"},
		LayerSpec:   "1-11",
		Components:  10,
		Runs:        3,
		Seed:        42,
		Confidence:  0.95,
		BatchSize:   16,
		OutputDir:   "outputs/layerlens",
		MetricsAddr: ":9090",
		LogLevel:    "INFO",
		LogFormat:   "console",
	}
}

// LoadFile overlays YAML settings onto the receiver. Missing keys keep their
// current values, matching flag-then-config precedence.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ParseLayers resolves LayerSpec ("1-11" or "1,5,10") into Layers.
func (c *Config) ParseLayers() error {
	spec := strings.TrimSpace(c.LayerSpec)
	if spec == "" {
		return fmt.Errorf("empty layer spec")
	}

	var layers []int
	if strings.Contains(spec, "-") {
		parts := strings.SplitN(spec, "-", 2)
		start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return fmt.Errorf("invalid layer range %q: %w", spec, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return fmt.Errorf("invalid layer range %q: %w", spec, err)
		}
		if end < start {
			return fmt.Errorf("invalid layer range %q: end < start", spec)
		}
		for l := start; l <= end; l++ {
			layers = append(layers, l)
		}
	} else {
		for _, p := range strings.Split(spec, ",") {
			l, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return fmt.Errorf("invalid layer %q: %w", p, err)
			}
			layers = append(layers, l)
		}
	}

	c.Layers = layers
	return nil
}

func (c *Config) Validate() error {
	if len(c.Tasks) == 0 {
		return fmt.Errorf("no tasks configured")
	}
	if len(c.Layers) == 0 {
		return fmt.Errorf("no layers configured (did you call ParseLayers?)")
	}
	for _, l := range c.Layers {
		if l < 1 {
			// Layer 0 is the raw input embedding and carries no learned
			// representation; probing starts at layer 1.
			return fmt.Errorf("invalid layer %d (must be >= 1)", l)
		}
	}
	if c.Components <= 0 {
		return fmt.Errorf("invalid n_components: %d (must be positive)", c.Components)
	}
	if c.Runs <= 0 {
		return fmt.Errorf("invalid n_runs: %d (must be positive)", c.Runs)
	}
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return fmt.Errorf("invalid confidence: %v (must be in (0,1))", c.Confidence)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("invalid batch_size: %d (must be positive)", c.BatchSize)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	return nil
}
