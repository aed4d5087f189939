package spectral

import (
	"math"
	"testing"
)

func TestPolynomialEvalAndDerivativeLinear(t *testing.T) {
	p := NewPolynomial([]float64{2, 3}, 0)
	if got := p.Eval(10); got != 32 {
		t.Fatalf("Eval(10) = %f, want 32", got)
	}
	if got := p.Derivative(10); got != 3 {
		t.Fatalf("Derivative(10) = %f, want 3", got)
	}
}

func TestPolynomialEvalHonorsXOffset(t *testing.T) {
	p := NewPolynomial([]float64{0, 1}, 5)
	if got := p.Eval(5); got != 0 {
		t.Fatalf("Eval(5) = %f, want 0 at the offset", got)
	}
	if got := p.Eval(8); got != 3 {
		t.Fatalf("Eval(8) = %f, want 3", got)
	}
}

func TestPolynomialEvalInverseRecoversRoot(t *testing.T) {
	p := NewPolynomial([]float64{2, 3}, 0)
	x, err := p.EvalInverse(32)
	if err != nil {
		t.Fatalf("EvalInverse: %v", err)
	}
	if math.Abs(x-10) > 1e-6 {
		t.Fatalf("EvalInverse(32) = %f, want ~10", x)
	}
}

func TestPolynomialQuadraticEvalAroundOffset(t *testing.T) {
	// y = (x-4)^2: two channels above the x-offset the quadratic term
	// alone gives 4.
	p := NewPolynomial([]float64{0, 0, 1}, 4)
	y := p.Eval(6)
	if y != 4 {
		t.Fatalf("sanity Eval(6) = %f, want 4", y)
	}
}
