package spectral

import "testing"

func TestPeakReconstructScalesAreaByLiveSeconds(t *testing.T) {
	hyp := NewHypermet(NewGaussian(50, 100, 4))
	settings := NewDefaultFitSettings()
	settings.LiveSeconds = 20

	p := NewPeak(hyp, SUM4{PeakArea: NewUncertainValue(200, 10)}, settings)

	wantBest := p.AreaBest.Value / 20
	if p.CPSBest.Value != wantBest {
		t.Fatalf("expected CPSBest = AreaBest/LiveSeconds = %g, got %g", wantBest, p.CPSBest.Value)
	}
	if p.CPSSUM4.Value != 10 {
		t.Fatalf("expected CPSSUM4 = 200/20 = 10, got %g", p.CPSSUM4.Value)
	}
}

func TestPeakReconstructFallsBackToOneSecondWhenLiveSecondsUnset(t *testing.T) {
	hyp := NewHypermet(NewGaussian(50, 100, 4))
	settings := NewDefaultFitSettings()
	settings.LiveSeconds = 0

	p := NewPeak(hyp, SUM4{PeakArea: NewUncertainValue(200, 10)}, settings)

	if p.CPSSUM4.Value != 200 {
		t.Fatalf("expected CPSSUM4 to fall back to raw area when LiveSeconds<=0, got %g", p.CPSSUM4.Value)
	}
}

func TestPeakQualityEnergyReflectsCurrieClassification(t *testing.T) {
	hyp := NewHypermet(NewGaussian(50, 100, 4))
	settings := NewDefaultFitSettings()

	strong := NewPeak(hyp, SUM4{PeakArea: NewUncertainValue(1000, 5)}, settings)
	if strong.QualityEnergy() != PeakQualityGood {
		t.Fatalf("expected a high-significance peak to be classified good")
	}

	weak := NewPeak(hyp, SUM4{PeakArea: NewUncertainValue(-5, 5)}, settings)
	if weak.QualityEnergy() != PeakQualityBad {
		t.Fatalf("expected a negative net-area peak to be classified bad")
	}
}
