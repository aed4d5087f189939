package spectral

import (
	"math"
	"testing"
)

func TestUncertainValueAddPropagatesSigmaInQuadrature(t *testing.T) {
	a := NewUncertainValue(100, 3)
	b := NewUncertainValue(50, 4)
	sum := a.Add(b)
	if sum.Value != 150 {
		t.Fatalf("expected value 150, got %f", sum.Value)
	}
	wantSigma := math.Hypot(3, 4)
	if math.Abs(sum.Sigma-wantSigma) > 1e-9 {
		t.Fatalf("expected sigma %f, got %f", wantSigma, sum.Sigma)
	}
}

func TestUncertainValueMulByZeroHasZeroSigma(t *testing.T) {
	a := NewUncertainValue(0, 5)
	b := NewUncertainValue(10, 1)
	got := a.Mul(b)
	if got.Value != 0 || got.Sigma != 0 {
		t.Fatalf("expected zero value and sigma, got %+v", got)
	}
}

func TestUncertainValueDivByZeroIsNaN(t *testing.T) {
	a := NewUncertainValue(10, 1)
	b := NewUncertainValue(0, 1)
	got := a.Div(b)
	if !math.IsNaN(got.Value) || !math.IsNaN(got.Sigma) {
		t.Fatalf("expected NaN value and sigma dividing by zero, got %+v", got)
	}
}

func TestUncertainValueAlmostAgreesWithinCombinedSigma(t *testing.T) {
	a := NewUncertainValue(100, 2)
	b := NewUncertainValue(102, 2)
	if !a.Almost(b) {
		t.Fatalf("expected %v and %v to agree within combined sigma", a, b)
	}
	c := NewUncertainValue(200, 1)
	if a.Almost(c) {
		t.Fatalf("expected %v and %v to disagree", a, c)
	}
}

func TestUncertainValueFiniteRejectsNaN(t *testing.T) {
	u := UncertainValue{Value: math.NaN(), Sigma: 1}
	if u.Finite() {
		t.Fatalf("expected NaN value to be non-finite")
	}
	if u.String() != "?" {
		t.Fatalf("expected non-finite value to render as \"?\", got %q", u.String())
	}
}

func TestUncertainValueStringRendersWithUncertainty(t *testing.T) {
	u := NewUncertainValue(1234, 12)
	s := u.String()
	if s == "" {
		t.Fatalf("expected non-empty rendering")
	}
}
