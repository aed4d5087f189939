package spectral

import (
	"math"
	"testing"
)

func TestGaussianEvalIsSymmetricAroundCenter(t *testing.T) {
	g := NewGaussian(50, 100, 4)

	left := g.Eval(50 - 3)
	right := g.Eval(50 + 3)
	if left != right {
		t.Fatalf("expected symmetric evaluation around the center, got %g vs %g", left, right)
	}
}

func TestGaussianEvalDecaysAwayFromCenter(t *testing.T) {
	g := NewGaussian(50, 100, 4)

	atCenter := g.Eval(50)
	oneHWHM := g.Eval(54)
	twoHWHM := g.Eval(58)

	if !(atCenter > oneHWHM && oneHWHM > twoHWHM && twoHWHM > 0) {
		t.Fatalf("expected monotonic decay away from the center, got %g, %g, %g", atCenter, oneHWHM, twoHWHM)
	}
}

func TestGaussianEvalArrayMatchesElementwiseEval(t *testing.T) {
	g := NewGaussian(50, 100, 4)
	xs := []float64{40, 48, 50, 52, 60}

	out := g.EvalArray(xs)
	for i, x := range xs {
		if out[i] != g.Eval(x) {
			t.Fatalf("expected EvalArray[%d] to match Eval(%g), got %g vs %g", i, x, out[i], g.Eval(x))
		}
	}
}

func TestGaussianAreaUsesClosedForm(t *testing.T) {
	g := NewGaussian(50, 100, 4)

	k := math.Sqrt(math.Pi / math.Ln2)
	want := 100.0 * 4.0 * k
	got := g.Area().Value
	if got != want {
		t.Fatalf("expected closed-form area %g, got %g", want, got)
	}
}
