package spectrum

import (
	"testing"
	"time"

	"github.com/qpxlab/gammafit/spectral"
)

type fakeConsumer struct {
	meta   Metadata
	points []DataPoint
}

func (f fakeConsumer) Metadata() Metadata { return f.meta }

func (f fakeConsumer) DataRange(bits uint16) ([]DataPoint, error) {
	return f.points, nil
}

func newFakePoints(n int) []DataPoint {
	points := make([]DataPoint, n)
	for i := range points {
		points[i] = DataPoint{Channel: i, Count: 0}
	}
	points[10].Count = 5
	points[20].Count = 100
	return points
}

func TestToXYTrimsTrailingZeros(t *testing.T) {
	c := fakeConsumer{
		meta:   Metadata{Resolution: 5},
		points: newFakePoints(32),
	}
	x, y, err := ToXY(c)
	if err != nil {
		t.Fatalf("ToXY: %v", err)
	}
	if len(x) != 21 || len(y) != 21 {
		t.Fatalf("expected trimmed length 21, got x=%d y=%d", len(x), len(y))
	}
	if y[20] != 100 {
		t.Fatalf("expected last nonzero channel preserved, got %v", y[20])
	}
}

func TestToXYAllZeroReturnsEmpty(t *testing.T) {
	c := fakeConsumer{meta: Metadata{Resolution: 5}, points: newFakePoints(32)}
	for i := range c.points {
		c.points[i].Count = 0
	}
	x, y, err := ToXY(c)
	if err != nil {
		t.Fatalf("ToXY: %v", err)
	}
	if x != nil || y != nil {
		t.Fatalf("expected nil slices for all-zero data, got x=%v y=%v", x, y)
	}
}

func TestNewFitterFromConsumerRequiresDetector(t *testing.T) {
	c := fakeConsumer{meta: Metadata{Resolution: 5}, points: newFakePoints(32)}
	if _, err := NewFitterFromConsumer(c, spectral.NewDefaultFitSettings(), nil); err == nil {
		t.Fatalf("expected error when consumer has no detector")
	}
}

func TestNewFitterFromConsumerInstallsCalibration(t *testing.T) {
	cal := spectral.NewCalibration(12)
	cal.Units = "keV"
	cal.To = "energy"
	cal.Function = spectral.NewPolynomial([]float64{0, 0.5}, 0)
	c := fakeConsumer{
		meta: Metadata{
			Resolution: 5,
			StartTime:  time.Now(),
			Detectors: []Detector{{
				Name:               "det0",
				EnergyCalibrations: []spectral.Calibration{cal},
			}},
		},
		points: newFakePoints(32),
	}
	fitter, err := NewFitterFromConsumer(c, spectral.NewDefaultFitSettings(), nil)
	if err != nil {
		t.Fatalf("NewFitterFromConsumer: %v", err)
	}
	if fitter == nil {
		t.Fatalf("expected non-nil fitter")
	}
}
