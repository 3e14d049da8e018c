// Package loss provides classification losses over projected logits.
package loss

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/seq2seq/internal/activations"
)

// Reduction selects how per-step losses are combined.
type Reduction int

const (
	// ReduceMean averages the step losses of each sequence, then sums the
	// sequences.
	ReduceMean Reduction = iota
	// ReduceSum sums every step of every sequence.
	ReduceSum
)

// ParseReduction maps a config name to a Reduction.
func ParseReduction(name string) (Reduction, error) {
	switch name {
	case "mean":
		return ReduceMean, nil
	case "sum":
		return ReduceSum, nil
	default:
		return 0, fmt.Errorf("unknown reduction %q", name)
	}
}

// CrossEntropy is softmax cross-entropy over raw logits with integer class labels.
//
// Logits are laid out time-major: row t*batch+i is step t of sequence i, and
// labels[row] is its class.
type CrossEntropy struct {
	Reduction Reduction
}

// Forward computes the loss. steps is the number of time steps per sequence.
func (c CrossEntropy) Forward(logits *mat.Dense, labels []int, steps int) float64 {
	rows := c.check(logits, labels, steps)

	var sum float64
	for i := 0; i < rows; i++ {
		logp := activations.Softmax{}.LogSoftmax(logits.RawRowView(i))
		sum -= logp[labels[i]]
	}
	return sum * c.scale(steps)
}

// Backward returns dL/dlogits: (softmax(logits) - onehot(labels)) * scale.
func (c CrossEntropy) Backward(logits *mat.Dense, labels []int, steps int) *mat.Dense {
	rows := c.check(logits, labels, steps)

	grad := activations.SoftmaxRows(logits)
	for i := 0; i < rows; i++ {
		grad.Set(i, labels[i], grad.At(i, labels[i])-1)
	}
	grad.Scale(c.scale(steps), grad)
	return grad
}

func (c CrossEntropy) scale(steps int) float64 {
	if c.Reduction == ReduceMean {
		return 1 / float64(steps)
	}
	return 1
}

func (c CrossEntropy) check(logits *mat.Dense, labels []int, steps int) int {
	rows, classes := logits.Dims()
	if rows != len(labels) {
		panic(fmt.Sprintf("CrossEntropy: %d logit rows but %d labels", rows, len(labels)))
	}
	if steps <= 0 || rows%steps != 0 {
		panic(fmt.Sprintf("CrossEntropy: %d rows not divisible into %d steps", rows, steps))
	}
	for _, l := range labels {
		if l < 0 || l >= classes {
			panic(fmt.Sprintf("CrossEntropy: label %d outside [0, %d)", l, classes))
		}
	}
	return rows
}

// IsFinite reports whether l is neither NaN nor infinite.
func IsFinite(l float64) bool {
	return !math.IsNaN(l) && !math.IsInf(l, 0)
}
