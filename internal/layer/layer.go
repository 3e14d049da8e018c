// Package layer provides neural network layer implementations.
package layer

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/FlavioCFOliveira/seq2seq/internal/activations"
)

// Layer is a neural network layer with trainable parameters.
// Params and Gradients return the live matrices in the same order, so an
// optimizer can update them in place.
type Layer interface {
	Params() []*mat.Dense
	Gradients() []*mat.Dense
	ClearGradients()
}

// Dense is a fully connected layer over a batch of row vectors.
type Dense struct {
	// Shape: [out x in]; y = x W^T + b
	weights *mat.Dense
	biases  *mat.Dense // 1 x out
	act     activations.Activation
	outSize int
	inSize  int

	gradW *mat.Dense
	gradB *mat.Dense

	// Saved for backward
	input  *mat.Dense
	preAct *mat.Dense
}

// NewDense creates a dense layer initialised from U(-1/sqrt(in), 1/sqrt(in)).
func NewDense(in, out int, act activations.Activation, src rand.Source) *Dense {
	k := 1 / math.Sqrt(float64(in))
	dist := distuv.Uniform{Min: -k, Max: k, Src: src}

	return &Dense{
		weights: randomMatrix(out, in, dist),
		biases:  randomMatrix(1, out, dist),
		act:     act,
		outSize: out,
		inSize:  in,
		gradW:   mat.NewDense(out, in, nil),
		gradB:   mat.NewDense(1, out, nil),
	}
}

// Forward computes act(x W^T + b) for every row of x.
func (d *Dense) Forward(x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	z := mat.NewDense(n, d.outSize, nil)
	z.Mul(x, d.weights.T())
	addRowVector(z, d.biases)

	d.input = x
	d.preAct = z
	return activations.Apply(d.act, z)
}

// Backward accumulates parameter gradients and returns dL/dx.
func (d *Dense) Backward(grad *mat.Dense) *mat.Dense {
	dz := activations.ApplyDerivative(d.act, d.preAct)
	dz.MulElem(dz, grad)

	var gw mat.Dense
	gw.Mul(dz.T(), d.input)
	d.gradW.Add(d.gradW, &gw)
	addColumnSums(d.gradB, dz)

	n, _ := grad.Dims()
	gradIn := mat.NewDense(n, d.inSize, nil)
	gradIn.Mul(dz, d.weights)
	return gradIn
}

// Params returns weights and biases.
func (d *Dense) Params() []*mat.Dense {
	return []*mat.Dense{d.weights, d.biases}
}

// Gradients returns the accumulated gradients in Params order.
func (d *Dense) Gradients() []*mat.Dense {
	return []*mat.Dense{d.gradW, d.gradB}
}

// ClearGradients zeroes the accumulated gradients.
func (d *Dense) ClearGradients() {
	d.gradW.Zero()
	d.gradB.Zero()
}

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int {
	return d.outSize
}

func randomMatrix(r, c int, dist distuv.Uniform) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = dist.Rand()
	}
	return mat.NewDense(r, c, data)
}

// addRowVector adds the 1 x c row vector v to every row of m.
func addRowVector(m, v *mat.Dense) {
	r, _ := m.Dims()
	b := v.RawRowView(0)
	for i := 0; i < r; i++ {
		floats.Add(m.RawRowView(i), b)
	}
}

// addColumnSums accumulates the column sums of m into the 1 x c row vector dst.
func addColumnSums(dst, m *mat.Dense) {
	r, _ := m.Dims()
	acc := dst.RawRowView(0)
	for i := 0; i < r; i++ {
		floats.Add(acc, m.RawRowView(i))
	}
}
