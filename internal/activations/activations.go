// Package activations provides activation functions for the recurrent and projection layers.
package activations

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x) from the pre-activation x
	Derivative(x float64) float64
}

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

// Linear is the identity activation used by output projections.
type Linear struct{}

// Activate returns x unchanged
func (l Linear) Activate(x float64) float64 {
	return x
}

// Derivative is always 1
func (l Linear) Derivative(x float64) float64 {
	return 1
}

// Softmax normalises a vector into a probability distribution.
type Softmax struct{}

// ActivateBatch computes softmax of x in place and returns it.
func (s Softmax) ActivateBatch(x []float64) []float64 {
	// Shift by log-sum-exp for numerical stability
	lse := floats.LogSumExp(x)
	for i := range x {
		x[i] = math.Exp(x[i] - lse)
	}
	return x
}

// LogSoftmax returns log(softmax(x)) without modifying x.
func (s Softmax) LogSoftmax(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	floats.AddConst(-floats.LogSumExp(x), out)
	return out
}

// SoftmaxRows returns a new matrix with softmax applied to each row of m.
func SoftmaxRows(m mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(m)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		Softmax{}.ActivateBatch(out.RawRowView(i))
	}
	return out
}

// Apply returns f applied elementwise to m.
func Apply(act Activation, m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return act.Activate(v) }, m)
	return out
}

// ApplyDerivative returns f' evaluated elementwise on the pre-activations m.
func ApplyDerivative(act Activation, m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return act.Derivative(v) }, m)
	return out
}
