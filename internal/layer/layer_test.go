// Package layer provides unit tests for neural network layers.
package layer

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/seq2seq/internal/activations"
)

func testSource() rand.Source {
	return rand.NewPCG(7, 11)
}

// randomDense fills an r x c matrix from U(-1, 1).
func randomDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}
	return mat.NewDense(r, c, data)
}

// weightedSum returns sum(a ⊙ b).
func weightedSum(a, b *mat.Dense) float64 {
	var prod mat.Dense
	prod.MulElem(a, b)
	return mat.Sum(&prod)
}

// checkGrad compares analytic[i,j] against a central difference of f w.r.t. p[i,j].
func checkGrad(t *testing.T, name string, p, analytic *mat.Dense, f func() float64) {
	t.Helper()
	const eps = 1e-5
	r, c := p.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w0 := p.At(i, j)
			p.Set(i, j, w0+eps)
			lp := f()
			p.Set(i, j, w0-eps)
			lm := f()
			p.Set(i, j, w0)

			num := (lp - lm) / (2 * eps)
			ana := analytic.At(i, j)
			if math.Abs(num-ana) > 1e-6*math.Max(1, math.Abs(num)) {
				t.Fatalf("%s[%d,%d] grad mismatch: num=%.8g ana=%.8g", name, i, j, num, ana)
			}
		}
	}
}

func TestDenseForward(t *testing.T) {
	d := NewDense(2, 2, activations.Tanh{}, testSource())

	// Identity weights and zero biases
	w, b := d.Params()[0], d.Params()[1]
	w.Copy(mat.NewDense(2, 2, []float64{1, 0, 0, 1}))
	b.Zero()

	x := mat.NewDense(2, 2, []float64{1, 2, -1, 0})
	out := d.Forward(x)

	want := []float64{math.Tanh(1), math.Tanh(2), math.Tanh(-1), 0}
	got := out.RawMatrix().Data
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDenseInitRange(t *testing.T) {
	d := NewDense(16, 4, activations.Linear{}, testSource())
	k := 1 / math.Sqrt(16)
	for _, p := range d.Params() {
		for _, v := range p.RawMatrix().Data {
			if v < -k || v > k {
				t.Fatalf("parameter %v outside [-%v, %v]", v, k, k)
			}
		}
	}
}

func TestDenseGradients(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	d := NewDense(4, 3, activations.Tanh{}, testSource())
	x := randomDense(rng, 5, 4)
	coef := randomDense(rng, 5, 3)

	loss := func() float64 {
		return weightedSum(d.Forward(x), coef)
	}

	d.ClearGradients()
	d.Forward(x)
	gradIn := d.Backward(coef)

	grads := d.Gradients()
	checkGrad(t, "W", d.Params()[0], grads[0], loss)
	checkGrad(t, "b", d.Params()[1], grads[1], loss)
	checkGrad(t, "x", x, gradIn, loss)
}

func TestDenseGradientsAccumulate(t *testing.T) {
	d := NewDense(2, 2, activations.Linear{}, testSource())
	x := mat.NewDense(1, 2, []float64{1, 2})
	g := mat.NewDense(1, 2, []float64{1, 1})

	d.Forward(x)
	d.Backward(g)
	once := mat.DenseCopyOf(d.Gradients()[0])

	d.Forward(x)
	d.Backward(g)
	var twice mat.Dense
	twice.Scale(2, once)
	if !mat.EqualApprox(d.Gradients()[0], &twice, 1e-12) {
		t.Error("gradients did not accumulate across Backward calls")
	}

	d.ClearGradients()
	for _, grad := range d.Gradients() {
		if mat.Sum(grad) != 0 {
			t.Error("ClearGradients left non-zero values")
		}
	}
}

func TestDenseOutSize(t *testing.T) {
	d := NewDense(10, 20, activations.Linear{}, testSource())
	if d.OutSize() != 20 {
		t.Errorf("OutSize = %d, expected 20", d.OutSize())
	}
}
