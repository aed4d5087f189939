package spectral

import (
	"math"
	"testing"
)

func TestHypermetGaussianOnlyTracksShapeComponentEnablement(t *testing.T) {
	h := NewHypermet(NewGaussian(50, 100, 4))
	if !h.GaussianOnly() {
		t.Fatalf("expected a freshly built Hypermet to be Gaussian-only")
	}

	h.LskewAmp.Enabled = true
	if h.GaussianOnly() {
		t.Fatalf("expected enabling a skew component to leave Gaussian-only mode")
	}
}

func TestHypermetEvalPeakMatchesGaussianCoreWhenShapeDisabled(t *testing.T) {
	h := NewHypermet(NewGaussian(50, 100, 4))
	if got, want := h.EvalPeak(53), h.Gaussian().Eval(53); got != want {
		t.Fatalf("expected EvalPeak to match the bare Gaussian core, got %g want %g", got, want)
	}
}

func TestHypermetEvalAddsStepComponentWhenEnabled(t *testing.T) {
	h := NewHypermet(NewGaussian(50, 100, 4))
	h.StepAmp.Enabled = true
	h.StepAmp.Value.Value = 0.01

	x := 54.0
	xc := x - 50.0
	wantStep := 100.0 * 0.01 * math.Erfc(xc/4.0)

	if got := h.EvalStepTail(x); got != wantStep {
		t.Fatalf("expected step component %g, got %g", wantStep, got)
	}
	if got, want := h.Eval(x), h.EvalPeak(x)+wantStep; got != want {
		t.Fatalf("expected Eval to be EvalPeak+step, got %g want %g", got, want)
	}
}

func TestHypermetAreaNumericalIntegrationAgreesWithGaussianWhenOnlyStepEnabled(t *testing.T) {
	h := NewHypermet(NewGaussian(50, 100, 4))
	h.StepAmp.Enabled = true
	h.StepAmp.Value.Value = 0.01

	if h.GaussianOnly() {
		t.Fatalf("expected StepAmp enablement to leave Gaussian-only mode")
	}

	// The step component only contributes to EvalStepTail, not EvalPeak, so
	// the numerically integrated net area should closely track the pure
	// Gaussian closed form even though the fast path is no longer taken.
	want := h.Gaussian().Area().Value
	got := h.Area().Value
	if math.Abs(got-want) > want*0.01 {
		t.Fatalf("expected numerically integrated area near %g, got %g", want, got)
	}
}
