// Package train runs the full-batch training loop of the seq2seq model.
package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/FlavioCFOliveira/seq2seq/internal/batch"
	"github.com/FlavioCFOliveira/seq2seq/internal/loss"
	"github.com/FlavioCFOliveira/seq2seq/internal/model"
	"github.com/FlavioCFOliveira/seq2seq/internal/opt"
)

// ErrNonFiniteLoss is returned when the loss becomes NaN or infinite.
var ErrNonFiniteLoss = errors.New("non-finite loss")

// Options configures a Trainer.
type Options struct {
	Epochs    int
	GradClip  float64 // global norm limit, 0 disables clipping
	Callbacks []Callback
	Logger    *slog.Logger
}

// Result summarises a finished run.
type Result struct {
	Epochs    int
	FinalLoss float64
	Elapsed   time.Duration
}

// Trainer owns the model, loss and optimizer of one run.
type Trainer struct {
	model *model.Seq2Seq
	loss  loss.CrossEntropy
	opt   opt.Optimizer
	opts  Options
	log   *slog.Logger
}

// New creates a trainer. A nil Options.Logger discards diagnostics.
func New(m *model.Seq2Seq, l loss.CrossEntropy, o opt.Optimizer, opts Options) *Trainer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Trainer{model: m, loss: l, opt: o, opts: opts, log: logger}
}

// Run trains on b for Options.Epochs epochs. Every epoch is one forward pass
// over the whole batch followed by one optimizer step. Epoch numbers passed to
// callbacks start at 1.
func (t *Trainer) Run(ctx context.Context, b *batch.Batch) (Result, error) {
	labels := b.Targets()
	steps := b.DecoderSteps()
	start := time.Now()

	t.model.SetTraining(true)
	t.log.Info("training started",
		"epochs", t.opts.Epochs,
		"pairs", b.Size(),
		"steps", steps,
		"lr", t.opt.LearningRate(),
	)

	for _, cb := range t.opts.Callbacks {
		cb.OnTrainBegin(t.model)
	}
	defer func() {
		for _, cb := range t.opts.Callbacks {
			cb.OnTrainEnd(t.model)
		}
	}()

	var res Result
	for epoch := 1; epoch <= t.opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("training stopped before epoch %d: %w", epoch, err)
		}

		l, err := t.step(b, labels, steps)
		if err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		res.Epochs = epoch
		res.FinalLoss = l

		for _, cb := range t.opts.Callbacks {
			cb.OnEpochEnd(epoch, l, t.model)
		}
	}

	res.Elapsed = time.Since(start)
	t.log.Info("training finished", "loss", res.FinalLoss, "elapsed", res.Elapsed)
	return res, nil
}

// step runs one forward/backward pass and one optimizer update.
func (t *Trainer) step(b *batch.Batch, labels []int, steps int) (float64, error) {
	logits := t.model.Forward(b, t.model.ZeroHidden(b.Size()))

	l := t.loss.Forward(logits, labels, steps)
	if !loss.IsFinite(l) {
		return l, fmt.Errorf("%w: %v", ErrNonFiniteLoss, l)
	}

	t.model.ClearGradients()
	t.model.Backward(t.loss.Backward(logits, labels, steps))

	grads := t.model.Gradients()
	if t.opts.GradClip > 0 {
		norm := opt.ClipGradNorm(grads, t.opts.GradClip)
		if norm > t.opts.GradClip {
			t.log.Debug("gradients clipped", "norm", norm, "max", t.opts.GradClip)
		}
	}
	t.opt.Step(t.model.Params(), grads)
	return l, nil
}
