package layer

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dropout implements inverted dropout regularization.
// During training, randomly sets inputs to 0 with probability p and scales
// the survivors by 1/(1-p).
// During inference, passes inputs through unchanged.
type Dropout struct {
	// Probability of dropping a unit
	p float64

	// Training mode
	training bool

	// Keep mask scaled by 1/(1-p); nil when the last Forward was a pass-through
	mask *mat.Dense

	keep distuv.Bernoulli
}

// NewDropout creates a new dropout layer in training mode.
func NewDropout(p float64, src rand.Source) *Dropout {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("Dropout: p must be in [0, 1), got %v", p))
	}
	return &Dropout{
		p:        p,
		training: true,
		keep:     distuv.Bernoulli{P: 1 - p, Src: src},
	}
}

// SetTraining sets whether the layer should be in training or inference mode.
func (d *Dropout) SetTraining(training bool) {
	d.training = training
}

// Forward performs a forward pass through the dropout layer.
func (d *Dropout) Forward(x *mat.Dense) *mat.Dense {
	if !d.training || d.p == 0 {
		d.mask = nil
		return mat.DenseCopyOf(x)
	}

	r, c := x.Dims()
	scale := 1 / (1 - d.p)
	mask := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := mask.RawRowView(i)
		for j := range row {
			row[j] = d.keep.Rand() * scale
		}
	}
	d.mask = mask

	out := mat.NewDense(r, c, nil)
	out.MulElem(x, mask)
	return out
}

// Backward performs backpropagation through the dropout layer.
func (d *Dropout) Backward(grad *mat.Dense) *mat.Dense {
	if d.mask == nil {
		return mat.DenseCopyOf(grad)
	}
	r, c := grad.Dims()
	out := mat.NewDense(r, c, nil)
	out.MulElem(grad, d.mask)
	return out
}

// Params returns layer parameters (empty for Dropout).
func (d *Dropout) Params() []*mat.Dense {
	return nil
}

// Gradients returns layer gradients (empty for Dropout).
func (d *Dropout) Gradients() []*mat.Dense {
	return nil
}

// ClearGradients is a no-op for Dropout.
func (d *Dropout) ClearGradients() {
}
