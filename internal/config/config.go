// Package config holds the immutable run configuration shared by every component.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Optimizer names accepted by Config.Optimizer.
const (
	OptimizerAdam = "adam"
	OptimizerSGD  = "sgd"
)

// Loss reductions accepted by Config.Reduction.
const (
	ReductionMean = "mean"
	ReductionSum  = "sum"
)

// Pair is a raw (source, target) training word pair.
type Pair struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Config captures the hyperparameters and data of a training run.
type Config struct {
	NStep        int     `yaml:"n_step"`
	Hidden       int     `yaml:"n_hidden"`
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	Optimizer    string  `yaml:"optimizer"`
	Dropout      float64 `yaml:"dropout"`
	GradClip     float64 `yaml:"grad_clip"`
	LRDecayEvery int     `yaml:"lr_decay_every"`
	LRDecayGamma float64 `yaml:"lr_decay_gamma"`
	Reduction    string  `yaml:"reduction"`
	Seed         uint64  `yaml:"seed"`
	LogEvery     int     `yaml:"log_every"`

	Pairs     []Pair   `yaml:"pairs"`
	PairsCSV  string   `yaml:"pairs_csv"`
	TestWords []string `yaml:"test_words"`

	StrictEndMarker bool   `yaml:"strict_end_marker"`
	CSVLog          string `yaml:"csv_log"`
	SavePath        string `yaml:"save_path"`
	LoadPath        string `yaml:"load_path"`
	CheckpointPath  string `yaml:"checkpoint_path"`
}

// Overrides captures CLI supplied values. Zero values leave the config
// untouched; Dropout is a pointer because zero is a meaningful setting.
type Overrides struct {
	Epochs       int
	Hidden       int
	LearningRate float64
	Dropout      *float64
	Seed         uint64
	LogEvery     int
	CSVLog       string
	SavePath     string
	LoadPath     string
	Checkpoint   string
	PairsCSV     string
	Strict       bool
}

// Default returns the configuration of the reference run: six word pairs,
// five character steps, 128 hidden units, 5000 epochs of Adam at 0.001.
func Default() *Config {
	return &Config{
		NStep:        5,
		Hidden:       128,
		Epochs:       5000,
		LearningRate: 0.001,
		Optimizer:    OptimizerAdam,
		Dropout:      0.5,
		LRDecayGamma: 0.5,
		Reduction:    ReductionMean,
		Seed:         1,
		LogEvery:     1000,
		Pairs: []Pair{
			{"man", "women"},
			{"black", "white"},
			{"king", "queen"},
			{"girl", "boy"},
			{"up", "down"},
			{"high", "low"},
		},
		TestWords: []string{"man", "mans", "king", "black", "upp"},
	}
}

// Load reads a YAML file on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Keys missing from raw keep their
// default value; unknown keys are rejected.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ResolvePairs replaces Pairs with the contents of PairsCSV when it is set.
func (c *Config) ResolvePairs() error {
	if c.PairsCSV == "" {
		return nil
	}
	pairs, err := LoadPairsCSV(c.PairsCSV)
	if err != nil {
		return fmt.Errorf("load pairs %s: %w", c.PairsCSV, err)
	}
	c.Pairs = pairs
	return nil
}

// ApplyOverrides updates c using any non-zero override and any non-nil Dropout.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.Hidden > 0 {
		c.Hidden = o.Hidden
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Dropout != nil {
		c.Dropout = *o.Dropout
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.CSVLog != "" {
		c.CSVLog = o.CSVLog
	}
	if o.SavePath != "" {
		c.SavePath = o.SavePath
	}
	if o.LoadPath != "" {
		c.LoadPath = o.LoadPath
	}
	if o.Checkpoint != "" {
		c.CheckpointPath = o.Checkpoint
	}
	if o.PairsCSV != "" {
		c.PairsCSV = o.PairsCSV
	}
	if o.Strict {
		c.StrictEndMarker = true
	}
}

// Validate verifies the config is runnable. Word lengths are checked later by
// the batch builder, which owns that precondition.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.NStep <= 0 {
		return fmt.Errorf("n_step must be > 0 (got %d)", c.NStep)
	}
	if c.Hidden <= 0 {
		return fmt.Errorf("n_hidden must be > 0 (got %d)", c.Hidden)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1) (got %g)", c.Dropout)
	}
	if c.GradClip < 0 {
		return fmt.Errorf("grad_clip must be >= 0 (got %g)", c.GradClip)
	}
	if c.LRDecayEvery < 0 {
		return fmt.Errorf("lr_decay_every must be >= 0 (got %d)", c.LRDecayEvery)
	}
	if c.LRDecayEvery > 0 && (c.LRDecayGamma <= 0 || c.LRDecayGamma > 1) {
		return fmt.Errorf("lr_decay_gamma must be in (0, 1] (got %g)", c.LRDecayGamma)
	}
	switch c.Optimizer {
	case OptimizerAdam, OptimizerSGD:
	default:
		return fmt.Errorf("unknown optimizer %q", c.Optimizer)
	}
	switch c.Reduction {
	case ReductionMean, ReductionSum:
	default:
		return fmt.Errorf("unknown reduction %q", c.Reduction)
	}
	if c.LogEvery <= 0 {
		return fmt.Errorf("log_every must be > 0 (got %d)", c.LogEvery)
	}
	if len(c.Pairs) == 0 && c.PairsCSV == "" {
		return errors.New("at least one training pair must be set")
	}
	return nil
}
