package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// runConfig is the full configuration of one foraging exploration run.
// Defaults are overlaid by defined TOML keys, which are in turn overlaid by
// explicitly set flags.
type runConfig struct {
	Processes      int     `toml:"processes"`
	Population     int     `toml:"population"`
	Generations    int     `toml:"generations"`
	DesiredFitness float64 `toml:"desired_fitness"`
	Steps          int     `toml:"steps"`
	Sites          int     `toml:"sites"`
	Ants           int     `toml:"ants"`
	Seed           int64   `toml:"seed"`
	Store          string  `toml:"store"`
	DBPath         string  `toml:"db_path"`
}

func defaultRunConfig() runConfig {
	return runConfig{
		Processes:      4,
		Population:     16,
		Generations:    20,
		DesiredFitness: 0.95,
		Steps:          200,
		Sites:          24,
		Ants:           4,
		Seed:           1,
		Store:          "memory",
		DBPath:         "myrmex.db",
	}
}

func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()

	var raw runConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runConfig{}, fmt.Errorf("load run config: %w", err)
	}

	if meta.IsDefined("processes") {
		cfg.Processes = raw.Processes
	}
	if meta.IsDefined("population") {
		cfg.Population = raw.Population
	}
	if meta.IsDefined("generations") {
		cfg.Generations = raw.Generations
	}
	if meta.IsDefined("desired_fitness") {
		cfg.DesiredFitness = raw.DesiredFitness
	}
	if meta.IsDefined("steps") {
		cfg.Steps = raw.Steps
	}
	if meta.IsDefined("sites") {
		cfg.Sites = raw.Sites
	}
	if meta.IsDefined("ants") {
		cfg.Ants = raw.Ants
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}
	if meta.IsDefined("store") {
		cfg.Store = strings.TrimSpace(raw.Store)
	}
	if meta.IsDefined("db_path") {
		cfg.DBPath = strings.TrimSpace(raw.DBPath)
	}

	return cfg, cfg.validate()
}

func (c runConfig) validate() error {
	if c.Processes <= 0 {
		return fmt.Errorf("processes must be > 0, got %d", c.Processes)
	}
	if c.Population <= 0 {
		return fmt.Errorf("population must be > 0, got %d", c.Population)
	}
	if c.Generations < 0 {
		return fmt.Errorf("generations must be >= 0, got %d", c.Generations)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be > 0, got %d", c.Steps)
	}
	if c.Sites <= 0 {
		return fmt.Errorf("sites must be > 0, got %d", c.Sites)
	}
	if c.Ants <= 0 {
		return fmt.Errorf("ants must be > 0, got %d", c.Ants)
	}
	if c.DesiredFitness < 0 || c.DesiredFitness > 1 {
		return fmt.Errorf("desired_fitness must be in [0, 1], got %v", c.DesiredFitness)
	}
	return nil
}
