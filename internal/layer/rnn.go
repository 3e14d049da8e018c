package layer

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/FlavioCFOliveira/seq2seq/internal/activations"
)

// RNN implements a single-layer Elman recurrent layer:
//
//	h_t = tanh(x_t W_ih^T + b_ih + h_{t-1} W_hh^T + b_hh)
//
// Inputs are time-major: one batch x in matrix per step. Forward saves every
// state so Backward can run full backpropagation through time.
type RNN struct {
	inSize  int
	outSize int

	wIH *mat.Dense // outSize x inSize
	wHH *mat.Dense // outSize x outSize
	bIH *mat.Dense // 1 x outSize
	bHH *mat.Dense // 1 x outSize

	gradWIH *mat.Dense
	gradWHH *mat.Dense
	gradBIH *mat.Dense
	gradBHH *mat.Dense

	act activations.Activation

	// Saved states for BPTT; states[0] is h0, states[t+1] is h_t
	inputs  []*mat.Dense
	states  []*mat.Dense
	preActs []*mat.Dense
}

// NewRNN creates a recurrent layer with weights drawn from
// U(-1/sqrt(hidden), 1/sqrt(hidden)).
func NewRNN(inSize, hidden int, src rand.Source) *RNN {
	k := 1 / math.Sqrt(float64(hidden))
	dist := distuv.Uniform{Min: -k, Max: k, Src: src}

	return &RNN{
		inSize:  inSize,
		outSize: hidden,
		wIH:     randomMatrix(hidden, inSize, dist),
		wHH:     randomMatrix(hidden, hidden, dist),
		bIH:     randomMatrix(1, hidden, dist),
		bHH:     randomMatrix(1, hidden, dist),
		gradWIH: mat.NewDense(hidden, inSize, nil),
		gradWHH: mat.NewDense(hidden, hidden, nil),
		gradBIH: mat.NewDense(1, hidden, nil),
		gradBHH: mat.NewDense(1, hidden, nil),
		act:     activations.Tanh{},
	}
}

// Forward runs the sequence xs starting from h0 (batch x hidden).
// It returns the hidden state of every step and the final state.
func (r *RNN) Forward(xs []*mat.Dense, h0 *mat.Dense) ([]*mat.Dense, *mat.Dense) {
	batch, hidden := h0.Dims()
	if hidden != r.outSize {
		panic(fmt.Sprintf("RNN: hidden size mismatch. Expected %d, got %d", r.outSize, hidden))
	}

	r.inputs = xs
	r.states = append(r.states[:0], h0)
	r.preActs = r.preActs[:0]

	outs := make([]*mat.Dense, len(xs))
	hPrev := h0
	for t, x := range xs {
		if _, in := x.Dims(); in != r.inSize {
			panic(fmt.Sprintf("RNN: input size mismatch at step %d. Expected %d, got %d", t, r.inSize, in))
		}

		z := mat.NewDense(batch, r.outSize, nil)
		z.Mul(x, r.wIH.T())

		var rec mat.Dense
		rec.Mul(hPrev, r.wHH.T())
		z.Add(z, &rec)
		addRowVector(z, r.bIH)
		addRowVector(z, r.bHH)

		h := activations.Apply(r.act, z)
		r.preActs = append(r.preActs, z)
		r.states = append(r.states, h)
		outs[t] = h
		hPrev = h
	}

	return outs, hPrev
}

// Backward propagates dOuts (gradient w.r.t. each step output, entries may be
// nil) and dhT (gradient w.r.t. the final state, may be nil) back through time.
// Parameter gradients are accumulated; the gradient w.r.t. h0 is returned.
func (r *RNN) Backward(dOuts []*mat.Dense, dhT *mat.Dense) *mat.Dense {
	steps := len(r.preActs)
	if steps == 0 {
		panic("RNN: Backward called before Forward")
	}
	batch, _ := r.states[0].Dims()

	dh := mat.NewDense(batch, r.outSize, nil)
	if dhT != nil {
		dh.Copy(dhT)
	}

	for t := steps - 1; t >= 0; t-- {
		if t < len(dOuts) && dOuts[t] != nil {
			dh.Add(dh, dOuts[t])
		}

		dz := activations.ApplyDerivative(r.act, r.preActs[t])
		dz.MulElem(dz, dh)

		var gw mat.Dense
		gw.Mul(dz.T(), r.inputs[t])
		r.gradWIH.Add(r.gradWIH, &gw)

		var gh mat.Dense
		gh.Mul(dz.T(), r.states[t])
		r.gradWHH.Add(r.gradWHH, &gh)

		addColumnSums(r.gradBIH, dz)
		addColumnSums(r.gradBHH, dz)

		next := mat.NewDense(batch, r.outSize, nil)
		next.Mul(dz, r.wHH)
		dh = next
	}

	return dh
}

// Params returns W_ih, W_hh, b_ih and b_hh.
func (r *RNN) Params() []*mat.Dense {
	return []*mat.Dense{r.wIH, r.wHH, r.bIH, r.bHH}
}

// Gradients returns the accumulated gradients in Params order.
func (r *RNN) Gradients() []*mat.Dense {
	return []*mat.Dense{r.gradWIH, r.gradWHH, r.gradBIH, r.gradBHH}
}

// ClearGradients zeroes the accumulated gradients.
func (r *RNN) ClearGradients() {
	for _, g := range r.Gradients() {
		g.Zero()
	}
}

// OutSize returns the hidden size of the layer.
func (r *RNN) OutSize() int {
	return r.outSize
}
