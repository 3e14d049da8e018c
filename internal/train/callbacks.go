package train

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/FlavioCFOliveira/seq2seq/internal/model"
	"github.com/FlavioCFOliveira/seq2seq/internal/opt"
)

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(m *model.Seq2Seq)
	OnEpochEnd(epoch int, loss float64, m *model.Seq2Seq)
	OnTrainEnd(m *model.Seq2Seq)
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(m *model.Seq2Seq)                        {}
func (BaseCallback) OnEpochEnd(epoch int, loss float64, m *model.Seq2Seq) {}
func (BaseCallback) OnTrainEnd(m *model.Seq2Seq)                          {}

// Progress prints the loss every Interval epochs.
type Progress struct {
	BaseCallback
	Out      io.Writer
	Interval int
}

func (c Progress) OnEpochEnd(epoch int, loss float64, m *model.Seq2Seq) {
	if c.Interval > 0 && epoch%c.Interval == 0 {
		fmt.Fprintf(c.Out, "Epoch: %04d cost = %.6f\n", epoch, loss)
	}
}

// SchedulerCallback advances a learning rate scheduler once per epoch.
type SchedulerCallback struct {
	BaseCallback
	scheduler opt.Scheduler
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{scheduler: scheduler}
}

func (c *SchedulerCallback) OnEpochEnd(epoch int, loss float64, m *model.Seq2Seq) {
	c.scheduler.Step()
}

// Checkpoint saves the model every Interval epochs if the loss is the best so far.
type Checkpoint struct {
	BaseCallback
	Filename string
	Interval int
	Logger   *slog.Logger

	bestLoss float64
}

func NewCheckpoint(filename string, interval int, logger *slog.Logger) *Checkpoint {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Checkpoint{
		Filename: filename,
		Interval: interval,
		Logger:   logger,
		bestLoss: math.Inf(1),
	}
}

func (c *Checkpoint) OnEpochEnd(epoch int, loss float64, m *model.Seq2Seq) {
	if c.Interval > 0 && epoch%c.Interval != 0 {
		return
	}
	if loss >= c.bestLoss {
		return
	}
	c.bestLoss = loss
	if err := m.SaveFile(c.Filename); err != nil {
		c.Logger.Error("checkpoint failed", "file", c.Filename, "err", err)
		return
	}
	c.Logger.Info("checkpoint saved", "file", c.Filename, "epoch", epoch, "loss", loss)
}
