package persist

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/qpxlab/gammafit/spectral"
)

func buildFittedFitter(t *testing.T) *spectral.Fitter {
	t.Helper()
	n := 200
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
		v := 1000*math.Exp(-math.Pow((float64(i)-100)/6, 2)) + 5
		y[i] = math.Round(v)
	}
	settings := spectral.NewDefaultFitSettings()
	f := spectral.NewFitter(x, y, settings, nil)

	roi := spectral.NewROI(f.ParentFinder(), 70, 130)
	g := spectral.NewGaussian(100, 995, 6)
	hyp := spectral.NewHypermet(g)
	s4 := spectral.NewSUM4(x, y, 94, 106, roi.LB, roi.RB)
	peak := spectral.NewPeak(hyp, s4, settings)
	roi.Peaks[peak.Center.Value] = peak
	if !roi.ReplaceHypermet(peak.Center.Value, hyp) {
		t.Fatalf("ReplaceHypermet failed to seed history")
	}
	f.AdoptRegion(roi)
	return f
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := buildFittedFitter(t)
	before := f.PeakCount()
	if before == 0 {
		t.Fatalf("expected at least one peak before round trip")
	}

	path := filepath.Join(t.TempDir(), "doc.json")
	if err := Save(f, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	settings := spectral.NewDefaultFitSettings()
	restored := spectral.NewFitter(f.ParentFinder().X, f.ParentFinder().Y, settings, nil)
	if err := Load(path, restored); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if restored.PeakCount() != before {
		t.Fatalf("peak count mismatch after round trip: got=%d want=%d", restored.PeakCount(), before)
	}
	for id, roi := range f.Regions() {
		r2, ok := restored.Regions()[id]
		if !ok {
			t.Fatalf("region %v missing after round trip", id)
		}
		if r2.CurrentFit() != roi.CurrentFit() {
			t.Fatalf("region %v current fit index mismatch: got=%d want=%d", id, r2.CurrentFit(), roi.CurrentFit())
		}
		if r2.HistorySize() != roi.HistorySize() {
			t.Fatalf("region %v history size mismatch: got=%d want=%d", id, r2.HistorySize(), roi.HistorySize())
		}
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	settings := spectral.NewDefaultFitSettings()
	f := spectral.NewFitter([]float64{0, 1, 2}, []float64{0, 1, 2}, settings, nil)
	if err := Load(path, f); err == nil {
		t.Fatalf("expected error loading malformed document")
	}
}
