// Package opt provides unit tests for optimizers.
package opt

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestSGDStep tests SGD step computation.
func TestSGDStep(t *testing.T) {
	sgd := &SGD{LR: 0.1}

	params := []*mat.Dense{mat.NewDense(1, 3, []float64{1.0, 2.0, 3.0})}
	grads := []*mat.Dense{mat.NewDense(1, 3, []float64{0.1, 0.2, 0.3})}

	sgd.Step(params, grads)

	// Expected: params - lr * gradients
	expected := []float64{0.99, 1.98, 2.97}
	for i, v := range params[0].RawMatrix().Data {
		if math.Abs(v-expected[i]) > 1e-10 {
			t.Errorf("updated[%d] = %v, want %v", i, v, expected[i])
		}
	}
}

// TestAdamFirstStep checks the bias-corrected first update is lr * sign(g).
func TestAdamFirstStep(t *testing.T) {
	adam := NewAdam(0.01)

	params := []*mat.Dense{mat.NewDense(1, 3, []float64{1, 1, 1})}
	grads := []*mat.Dense{mat.NewDense(1, 3, []float64{0.5, -2, 0})}

	adam.Step(params, grads)

	expected := []float64{0.99, 1.01, 1}
	for i, v := range params[0].RawMatrix().Data {
		if math.Abs(v-expected[i]) > 1e-6 {
			t.Errorf("param[%d] = %v, want %v", i, v, expected[i])
		}
	}
	if adam.Steps() != 1 {
		t.Errorf("Steps() = %d, want 1", adam.Steps())
	}
}

// TestAdamMinimizesQuadratic runs Adam on f(x) = (x-3)^2.
func TestAdamMinimizesQuadratic(t *testing.T) {
	adam := NewAdam(0.1)
	x := mat.NewDense(1, 1, []float64{0})
	g := mat.NewDense(1, 1, nil)

	for i := 0; i < 2000; i++ {
		g.Set(0, 0, 2*(x.At(0, 0)-3))
		adam.Step([]*mat.Dense{x}, []*mat.Dense{g})
	}

	if math.Abs(x.At(0, 0)-3) > 5e-2 {
		t.Errorf("x = %v, want ~3", x.At(0, 0))
	}
}

// TestOptimizerShapeMismatch tests error handling.
func TestOptimizerShapeMismatch(t *testing.T) {
	for _, o := range []Optimizer{&SGD{LR: 0.1}, NewAdam(0.1)} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("%T: expected panic for shape mismatch", o)
				}
			}()
			o.Step([]*mat.Dense{mat.NewDense(1, 2, nil)}, []*mat.Dense{mat.NewDense(2, 1, nil)})
		}()
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"adam", false},
		{"sgd", false},
		{"rmsprop", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(tt.name, 0.5)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v", tt.name, err)
			}
			if err == nil && o.LearningRate() != 0.5 {
				t.Errorf("LearningRate() = %v", o.LearningRate())
			}
		})
	}
}

func TestClipGradNorm(t *testing.T) {
	grads := []*mat.Dense{
		mat.NewDense(1, 2, []float64{3, 0}),
		mat.NewDense(1, 1, []float64{4}),
	}

	norm := ClipGradNorm(grads, 1)
	if math.Abs(norm-5) > 1e-12 {
		t.Errorf("norm = %v, want 5", norm)
	}
	if after := ClipGradNorm(grads, 0); math.Abs(after-1) > 1e-12 {
		t.Errorf("norm after clipping = %v, want 1", after)
	}
	if math.Abs(grads[1].At(0, 0)-0.8) > 1e-12 {
		t.Errorf("grad = %v, want 0.8", grads[1].At(0, 0))
	}
}

func TestStepLR(t *testing.T) {
	sgd := &SGD{LR: 1}
	sched := NewStepLR(sgd, 2, 0.5)

	want := []float64{1, 0.5, 0.5, 0.25}
	for i, w := range want {
		sched.Step()
		if math.Abs(sched.GetLR()-w) > 1e-12 {
			t.Errorf("epoch %d: lr = %v, want %v", i+1, sched.GetLR(), w)
		}
	}
}
