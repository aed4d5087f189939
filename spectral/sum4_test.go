package spectral

import (
	"math"
	"testing"
)

func TestGetCurrieQualityIndicatorTiers(t *testing.T) {
	if q := GetCurrieQualityIndicator(0, 100); q != CurrieQualityNone {
		t.Fatalf("expected CurrieQualityNone for zero net area, got %d", q)
	}
	if q := GetCurrieQualityIndicator(-5, 100); q != CurrieQualityNone {
		t.Fatalf("expected CurrieQualityNone for negative net area, got %d", q)
	}
	sigmaB := 10.0
	variance := sigmaB * sigmaB
	if q := GetCurrieQualityIndicator(2.33*sigmaB-1, variance); q != CurrieQualityLimitOfDetection {
		t.Fatalf("expected CurrieQualityLimitOfDetection below Lc, got %d", q)
	}
	if q := GetCurrieQualityIndicator((2.33+4.65)/2*sigmaB, variance); q != CurrieQualityLimitOfQuantification {
		t.Fatalf("expected CurrieQualityLimitOfQuantification between Lc and Lq, got %d", q)
	}
	if q := GetCurrieQualityIndicator(4.65*sigmaB+1, variance); q != CurrieQualityPeak {
		t.Fatalf("expected CurrieQualityPeak above Lq, got %d", q)
	}
	if q := GetCurrieQualityIndicator(100, -1); q != CurrieQualityNone {
		t.Fatalf("expected CurrieQualityNone for negative variance, got %d", q)
	}
}

func TestNewSUM4GaussianPeakNetAreaAndFWHM(t *testing.T) {
	n := 200
	x := make([]float64, n)
	y := make([]float64, n)
	const center, sigmaCh, height, bg = 100.0, 8.0, 5000.0, 20.0
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		d := (x[i] - center) / sigmaCh
		y[i] = bg + height*math.Exp(-0.5*d*d)
	}

	lb := NewSUM4Edge(x, y, 0, 9)
	rb := NewSUM4Edge(x, y, n-10, n-1)
	s := NewSUM4(x, y, 60, 140, lb, rb)

	if s.PeakArea.Value <= 0 {
		t.Fatalf("expected positive net peak area, got %f", s.PeakArea.Value)
	}

	wantFWHM := 2 * math.Sqrt(2*math.Log(2)) * sigmaCh
	if math.Abs(s.FWHM.Value-wantFWHM) > 1.0 {
		t.Fatalf("expected FWHM near %f, got %f", wantFWHM, s.FWHM.Value)
	}
}

func TestInterpolateCrossingZeroSlopeUsesExactChannel(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{0, 10, 10, 0}
	background := NewPolynomial([]float64{0}, 0)
	// Between indices 1 and 2, v0 == v1 == 10, half == 10 should hit the
	// zero-slope guard and return the exact channel rather than dividing
	// by a zero denominator.
	got := interpolateCrossing(x, y, background, 1, 2, 10, true)
	if got != 1 {
		t.Fatalf("expected zero-slope guard to return channel 1, got %f", got)
	}
}

func TestBackgroundFromEdgesFlatWhenMidpointsCoincide(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{5, 5, 5}
	edge := NewSUM4Edge(x, y, 0, 2)
	bg := backgroundFromEdges(edge, edge)
	if bg.Eval(0) != edge.Average.Value {
		t.Fatalf("expected flat background at average value %f, got %f", edge.Average.Value, bg.Eval(0))
	}
}
