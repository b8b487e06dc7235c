// Package config loads the training pipeline's YAML configuration, the
// per-street cluster counts, Lloyd iteration budgets, RNG seed, and
// Sinkhorn tolerances that parameterize pkg/abstraction.Layer.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/behrlich/poker-solver/pkg/abstraction"
)

// StreetConfig holds the k-means knobs for one non-River street.
type StreetConfig struct {
	Clusters   int `yaml:"clusters"`
	Iterations int `yaml:"iterations"`
}

// TrainingConfig is the full top-level document a training run is
// configured from.
type TrainingConfig struct {
	Seed            int64        `yaml:"seed"`
	ArtifactDir     string       `yaml:"artifact_dir"`
	Flop            StreetConfig `yaml:"flop"`
	Turn            StreetConfig `yaml:"turn"`
	SinkhornLambda  float64      `yaml:"sinkhorn_lambda"`
	SinkhornEpsilon float64      `yaml:"sinkhorn_epsilon"`
	SinkhornMaxIter int          `yaml:"sinkhorn_max_iter"`
}

// DefaultTrainingConfig returns the defaults used when no config file is
// supplied: modest cluster counts suitable for a first end-to-end run.
func DefaultTrainingConfig() *TrainingConfig {
	return &TrainingConfig{
		Seed:            42,
		ArtifactDir:     "./artifacts",
		Flop:            StreetConfig{Clusters: 200, Iterations: 20},
		Turn:            StreetConfig{Clusters: 200, Iterations: 20},
		SinkhornLambda:  0.1,
		SinkhornEpsilon: 1e-6,
		SinkhornMaxIter: 200,
	}
}

// LoadTrainingConfig reads and parses a YAML document at path, filling any
// omitted fields from DefaultTrainingConfig.
func LoadTrainingConfig(path string) (*TrainingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := DefaultTrainingConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// LayerConfig converts this config's knobs for street into the
// pkg/abstraction.LayerConfig Layer expects.
func (c *TrainingConfig) LayerConfig(street string) (abstraction.LayerConfig, error) {
	switch street {
	case "flop":
		return abstraction.LayerConfig{Clusters: c.Flop.Clusters, Iterations: c.Flop.Iterations, Seed: c.Seed}, nil
	case "turn":
		return abstraction.LayerConfig{Clusters: c.Turn.Clusters, Iterations: c.Turn.Iterations, Seed: c.Seed}, nil
	default:
		return abstraction.LayerConfig{}, fmt.Errorf("config: no layer configuration for street %q", street)
	}
}

// Sinkhorn converts this config's Sinkhorn knobs into a SinkhornConfig.
func (c *TrainingConfig) Sinkhorn() abstraction.SinkhornConfig {
	return abstraction.SinkhornConfig{
		Lambda:   c.SinkhornLambda,
		Epsilon:  c.SinkhornEpsilon,
		MaxIters: c.SinkhornMaxIter,
	}
}
