// Package seq2seq wires vocabulary, batching, model, training and decoding
// into a single pipeline.
package seq2seq

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/FlavioCFOliveira/seq2seq/internal/batch"
	"github.com/FlavioCFOliveira/seq2seq/internal/config"
	"github.com/FlavioCFOliveira/seq2seq/internal/loss"
	"github.com/FlavioCFOliveira/seq2seq/internal/model"
	"github.com/FlavioCFOliveira/seq2seq/internal/opt"
	"github.com/FlavioCFOliveira/seq2seq/internal/train"
	"github.com/FlavioCFOliveira/seq2seq/internal/translate"
	"github.com/FlavioCFOliveira/seq2seq/internal/vocab"
)

// Re-export common types for easier access
type (
	Config    = config.Config
	Overrides = config.Overrides
	Pair      = config.Pair
	Result    = train.Result
)

// Re-exported errors
var (
	ErrInvalidInputLength = batch.ErrInvalidInputLength
	ErrUnknownSymbol      = vocab.ErrUnknownSymbol
	ErrNoEndMarker        = translate.ErrNoEndMarker
	ErrNonFiniteLoss      = train.ErrNonFiniteLoss
)

// DefaultConfig returns the reference configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Pipeline owns every component of one run.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	vocab      *vocab.Vocabulary
	builder    *batch.Builder
	model      *model.Seq2Seq
	loss       loss.CrossEntropy
	optimizer  opt.Optimizer
	translator *translate.Translator
}

// NewPipeline builds the model described by cfg. Console output goes to out,
// diagnostics to logger. If cfg.LoadPath is set the parameters are read from it.
func NewPipeline(cfg *Config, logger *slog.Logger, out io.Writer) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.ResolvePairs(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if out == nil {
		out = io.Discard
	}

	reduction, err := loss.ParseReduction(cfg.Reduction)
	if err != nil {
		return nil, err
	}
	optimizer, err := opt.New(cfg.Optimizer, cfg.LearningRate)
	if err != nil {
		return nil, err
	}

	v := vocab.New()
	builder := batch.NewBuilder(v, cfg.NStep, logger)
	m := model.New(cfg, v.Size())
	logger.Info("model built", "vocab", m.VocabSize(), "hidden", m.Hidden(), "n_step", builder.NStep())

	if cfg.LoadPath != "" {
		if err := m.LoadFile(cfg.LoadPath); err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		logger.Info("model loaded", "file", cfg.LoadPath)
	}

	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		out:        out,
		vocab:      v,
		builder:    builder,
		model:      m,
		loss:       loss.CrossEntropy{Reduction: reduction},
		optimizer:  optimizer,
		translator: translate.New(m, builder, v, cfg.StrictEndMarker),
	}, nil
}

// Train fits the model on cfg.Pairs, printing progress every cfg.LogEvery epochs.
func (p *Pipeline) Train(ctx context.Context) (Result, error) {
	pairs := make([]batch.Pair, len(p.cfg.Pairs))
	for i, pr := range p.cfg.Pairs {
		pairs[i] = batch.Pair{Source: pr.Source, Target: pr.Target}
	}
	b, err := p.builder.Build(pairs)
	if err != nil {
		return Result{}, fmt.Errorf("build batch: %w", err)
	}

	callbacks := []train.Callback{train.Progress{Out: p.out, Interval: p.cfg.LogEvery}}
	if p.cfg.CSVLog != "" {
		callbacks = append(callbacks, train.NewCSVLogger(p.cfg.CSVLog, false, p.logger))
	}
	if p.cfg.CheckpointPath != "" {
		callbacks = append(callbacks, train.NewCheckpoint(p.cfg.CheckpointPath, p.cfg.LogEvery, p.logger))
	}
	if p.cfg.LRDecayEvery > 0 {
		sched := opt.NewStepLR(p.optimizer, p.cfg.LRDecayEvery, p.cfg.LRDecayGamma)
		callbacks = append(callbacks, train.NewSchedulerCallback(sched))
	}

	trainer := train.New(p.model, p.loss, p.optimizer, train.Options{
		Epochs:    p.cfg.Epochs,
		GradClip:  p.cfg.GradClip,
		Callbacks: callbacks,
		Logger:    p.logger,
	})
	res, err := trainer.Run(ctx, b)
	if err != nil {
		return res, err
	}

	if p.cfg.SavePath != "" {
		if err := p.Save(p.cfg.SavePath); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Translate decodes a single word with the current parameters.
func (p *Pipeline) Translate(word string) (string, error) {
	return p.translator.Translate(word)
}

// PrintTranslations writes a "(TESTING)" marker and a "word -> translation"
// line for every word.
func (p *Pipeline) PrintTranslations(words []string) error {
	for _, w := range words {
		got, err := p.Translate(w)
		if err != nil {
			return fmt.Errorf("translate %q: %w", w, err)
		}
		fmt.Fprintln(p.out, "(TESTING)")
		fmt.Fprintf(p.out, "%s -> %s\n", w, got)
	}
	return nil
}

// Save writes the model parameters to path.
func (p *Pipeline) Save(path string) error {
	if err := p.model.SaveFile(path); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	p.logger.Info("model saved", "file", path)
	return nil
}
