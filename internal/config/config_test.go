package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Components != 10 {
		t.Errorf("expected Components 10, got %d", cfg.Components)
	}
	if cfg.Runs != 3 {
		t.Errorf("expected Runs 3, got %d", cfg.Runs)
	}
	if cfg.Seed != 42 {
		t.Errorf("expected Seed 42, got %d", cfg.Seed)
	}
	if cfg.Confidence != 0.95 {
		t.Errorf("expected Confidence 0.95, got %v", cfg.Confidence)
	}
	if cfg.LayerSpec != "1-11" {
		t.Errorf("expected LayerSpec 1-11, got %s", cfg.LayerSpec)
	}
	if len(cfg.Tasks) != 2 {
		t.Errorf("expected 2 default tasks, got %d", len(cfg.Tasks))
	}
}

func TestParseLayers(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []int
		wantErr bool
	}{
		{"range", "1-11", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, false},
		{"list", "1,5,10", []int{1, 5, 10}, false},
		{"single", "7", []int{7}, false},
		{"spaces", " 2 - 4 ", []int{2, 3, 4}, false},
		{"empty", "", nil, true},
		{"reversed", "5-2", nil, true},
		{"garbage", "a-b", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.LayerSpec = tt.spec
			err := cfg.ParseLayers()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLayers(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(cfg.Layers, tt.want) {
				t.Errorf("ParseLayers(%q) = %v, want %v", tt.spec, cfg.Layers, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		if err := cfg.ParseLayers(); err != nil {
			t.Fatalf("ParseLayers: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no tasks", func(c *Config) { c.Tasks = nil }, true},
		{"layer zero", func(c *Config) { c.Layers = []int{0, 1} }, true},
		{"zero components", func(c *Config) { c.Components = 0 }, true},
		{"zero runs", func(c *Config) { c.Runs = 0 }, true},
		{"confidence too high", func(c *Config) { c.Confidence = 1.0 }, true},
		{"no output dir", func(c *Config) { c.OutputDir = "" }, true},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	body := []byte("n_components: 4\nn_runs: 1\nlayers: \"1-3\"\ntasks: [pos]\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Components != 4 {
		t.Errorf("expected Components 4, got %d", cfg.Components)
	}
	if cfg.Runs != 1 {
		t.Errorf("expected Runs 1, got %d", cfg.Runs)
	}
	if cfg.LayerSpec != "1-3" {
		t.Errorf("expected LayerSpec 1-3, got %s", cfg.LayerSpec)
	}
	// Unset keys keep defaults.
	if cfg.Seed != 42 {
		t.Errorf("expected Seed 42 preserved, got %d", cfg.Seed)
	}

	if err := cfg.LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
