// Package opt provides optimization algorithms.
package opt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Optimizer updates parameters in place from their gradients.
// params[i] and grads[i] must have the same shape, and the same params slice
// must be passed on every call so stateful optimizers can track moments.
type Optimizer interface {
	Step(params, grads []*mat.Dense)
	LearningRate() float64
	SetLearningRate(lr float64)
}

// New returns the optimizer registered under name.
func New(name string, lr float64) (Optimizer, error) {
	switch name {
	case "adam":
		return NewAdam(lr), nil
	case "sgd":
		return &SGD{LR: lr}, nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LR float64
}

// Step updates params in-place: params = params - lr * gradients
func (s *SGD) Step(params, grads []*mat.Dense) {
	checkShapes(params, grads)
	for i, p := range params {
		p.Add(p, scaled(-s.LR, grads[i]))
	}
}

// LearningRate returns the current learning rate.
func (s *SGD) LearningRate() float64 { return s.LR }

// SetLearningRate replaces the learning rate.
func (s *SGD) SetLearningRate(lr float64) { s.LR = lr }

// Adam optimizer with bias-corrected first and second moments.
type Adam struct {
	LR      float64
	Beta1   float64 // Exponential decay rate for first moment
	Beta2   float64 // Exponential decay rate for second moment
	Epsilon float64 // Small constant for numerical stability

	m, v []*mat.Dense
	t    int
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LR:      learningRate,
		Beta1:   0.9,
		Beta2:   0.999,
		Epsilon: 1e-8,
	}
}

// Step applies one Adam update:
// p -= lr * mhat / (sqrt(vhat) + eps) with bias correction.
func (a *Adam) Step(params, grads []*mat.Dense) {
	checkShapes(params, grads)
	if a.m == nil {
		a.m = make([]*mat.Dense, len(params))
		a.v = make([]*mat.Dense, len(params))
		for i, p := range params {
			r, c := p.Dims()
			a.m[i] = mat.NewDense(r, c, nil)
			a.v[i] = mat.NewDense(r, c, nil)
		}
	}
	if len(a.m) != len(params) {
		panic(fmt.Sprintf("Adam: parameter count changed from %d to %d", len(a.m), len(params)))
	}

	a.t++
	c1 := 1 / (1 - math.Pow(a.Beta1, float64(a.t)))
	c2 := 1 / (1 - math.Pow(a.Beta2, float64(a.t)))

	for i, p := range params {
		pd := p.RawMatrix().Data
		gd := grads[i].RawMatrix().Data
		md := a.m[i].RawMatrix().Data
		vd := a.v[i].RawMatrix().Data
		for j, g := range gd {
			md[j] = a.Beta1*md[j] + (1-a.Beta1)*g
			vd[j] = a.Beta2*vd[j] + (1-a.Beta2)*g*g
			mhat := md[j] * c1
			vhat := vd[j] * c2
			pd[j] -= a.LR * mhat / (math.Sqrt(vhat) + a.Epsilon)
		}
	}
}

// LearningRate returns the current learning rate.
func (a *Adam) LearningRate() float64 { return a.LR }

// SetLearningRate replaces the learning rate.
func (a *Adam) SetLearningRate(lr float64) { a.LR = lr }

// Steps returns the number of updates applied so far.
func (a *Adam) Steps() int { return a.t }

// ClipGradNorm rescales grads in place so their global L2 norm is at most
// maxNorm, and returns the norm before clipping. maxNorm <= 0 disables clipping.
func ClipGradNorm(grads []*mat.Dense, maxNorm float64) float64 {
	var sq float64
	for _, g := range grads {
		n := floats.Norm(g.RawMatrix().Data, 2)
		sq += n * n
	}
	total := math.Sqrt(sq)
	if maxNorm > 0 && total > maxNorm {
		s := maxNorm / total
		for _, g := range grads {
			g.Scale(s, g)
		}
	}
	return total
}

func scaled(s float64, m *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Scale(s, m)
	return &out
}

func checkShapes(params, grads []*mat.Dense) {
	if len(params) != len(grads) {
		panic(fmt.Sprintf("optimizer: %d params but %d gradients", len(params), len(grads)))
	}
	for i := range params {
		pr, pc := params[i].Dims()
		gr, gc := grads[i].Dims()
		if pr != gr || pc != gc {
			panic(fmt.Sprintf("optimizer: shape mismatch at %d: %dx%d vs %dx%d", i, pr, pc, gr, gc))
		}
	}
}
