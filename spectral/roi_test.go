package spectral

import (
	"context"
	"testing"
)

// passthroughOptimizer is a deterministic Optimizer stand-in for ROI tests:
// it performs no nonlinear search and simply reports the sum-of-squared
// residual of the peaks/background it was handed, so ROI-level mutation
// and history behavior can be tested without depending on mayfly's
// stochastic search.
type passthroughOptimizer struct{}

func (passthroughOptimizer) FitMultiplet(ctx context.Context, x, y []float64, peaks []Hypermet, background *Polynomial, settings FitSettings) ([]Hypermet, *Polynomial, float64, error) {
	rsq := 0.0
	for i, xv := range x {
		model := background.Eval(xv)
		for _, h := range peaks {
			model += h.Eval(xv)
		}
		d := y[i] - model
		rsq += d * d
	}
	return peaks, background, rsq, nil
}

func (passthroughOptimizer) FitCoefFunction(ctx context.Context, f CoefFunction, x, y []float64) error {
	return nil
}

func flatSeries(n int, level float64) (x, y []float64) {
	x = make([]float64, n)
	y = make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		y[i] = level
	}
	return
}

func newTestROI(settings FitSettings, n int, level float64) *ROI {
	x, y := flatSeries(n, level)
	parent := NewFinder(x, y, settings)
	return NewROI(parent, x[0], x[n-1])
}

func TestROIFitAndStoreRendersHighResolutionCurves(t *testing.T) {
	settings := NewDefaultFitSettings()
	settings.ResidAuto = false
	r := newTestROI(settings, 50, 10)

	hyp := NewHypermet(NewGaussian(20, 50, 3))
	if err := r.fitAndStore(context.Background(), passthroughOptimizer{}, []Hypermet{hyp}, settings, "seed fit"); err != nil {
		t.Fatalf("fitAndStore: %v", err)
	}

	if r.HistorySize() != 1 {
		t.Fatalf("expected 1 history entry, got %d", r.HistorySize())
	}
	if r.PeakCount() != 1 {
		t.Fatalf("expected 1 peak, got %d", r.PeakCount())
	}
	if len(r.HRX) == 0 {
		t.Fatalf("expected render() to populate HRX")
	}
	if len(r.HRFullFit) != len(r.HRX) {
		t.Fatalf("expected HRFullFit to match HRX length, got %d vs %d", len(r.HRFullFit), len(r.HRX))
	}
	for _, p := range r.Peaks {
		if len(p.HRPeakCurve) != len(r.HRX) {
			t.Fatalf("expected peak HRPeakCurve to match HRX length, got %d vs %d", len(p.HRPeakCurve), len(r.HRX))
		}
		if len(p.HRFullFitCurve) != len(r.HRX) {
			t.Fatalf("expected peak HRFullFitCurve to match HRX length, got %d vs %d", len(p.HRFullFitCurve), len(r.HRX))
		}
	}
}

func TestROIRollbackRestoresPriorPeakSet(t *testing.T) {
	settings := NewDefaultFitSettings()
	settings.ResidAuto = false
	r := newTestROI(settings, 50, 10)
	ctx := context.Background()
	opt := passthroughOptimizer{}

	hypA := NewHypermet(NewGaussian(15, 40, 3))
	if err := r.fitAndStore(ctx, opt, []Hypermet{hypA}, settings, "fit A"); err != nil {
		t.Fatalf("fitAndStore A: %v", err)
	}
	if r.PeakCount() != 1 {
		t.Fatalf("expected 1 peak after fit A, got %d", r.PeakCount())
	}

	hypB1 := NewHypermet(NewGaussian(15, 40, 3))
	hypB2 := NewHypermet(NewGaussian(30, 25, 2))
	if err := r.fitAndStore(ctx, opt, []Hypermet{hypB1, hypB2}, settings, "fit B"); err != nil {
		t.Fatalf("fitAndStore B: %v", err)
	}
	if r.PeakCount() != 2 {
		t.Fatalf("expected 2 peaks after fit B, got %d", r.PeakCount())
	}
	if r.HistorySize() != 2 {
		t.Fatalf("expected 2 history entries, got %d", r.HistorySize())
	}

	if ok := r.Rollback(0); !ok {
		t.Fatalf("expected rollback to index 0 to succeed")
	}
	if r.PeakCount() != 1 {
		t.Fatalf("expected 1 peak after rollback, got %d", r.PeakCount())
	}
	if r.CurrentFit() != 0 {
		t.Fatalf("expected current fit index 0, got %d", r.CurrentFit())
	}
	if len(r.HRX) == 0 {
		t.Fatalf("expected rollback to re-render HRX")
	}

	if ok := r.Rollback(99); ok {
		t.Fatalf("expected rollback to an out-of-range index to fail")
	}
}

func TestROIAdjustLBAndRBReFitInPlace(t *testing.T) {
	settings := NewDefaultFitSettings()
	settings.ResidAuto = false
	r := newTestROI(settings, 50, 10)
	ctx := context.Background()
	opt := passthroughOptimizer{}

	hyp := NewHypermet(NewGaussian(25, 40, 3))
	if err := r.fitAndStore(ctx, opt, []Hypermet{hyp}, settings, "seed"); err != nil {
		t.Fatalf("fitAndStore: %v", err)
	}
	beforeHistory := r.HistorySize()

	prevLB := r.LB
	if err := r.AdjustLB(ctx, opt, 0, 9); err != nil {
		t.Fatalf("AdjustLB: %v", err)
	}
	if r.LB == prevLB {
		t.Fatalf("expected AdjustLB to replace the left background edge")
	}
	if r.HistorySize() != beforeHistory+1 {
		t.Fatalf("expected AdjustLB to push a new history entry, got %d", r.HistorySize())
	}
	if len(r.HRBackground) == 0 {
		t.Fatalf("expected AdjustLB to re-render the background")
	}

	prevRB := r.RB
	if err := r.AdjustRB(ctx, opt, 40, 49); err != nil {
		t.Fatalf("AdjustRB: %v", err)
	}
	if r.RB == prevRB {
		t.Fatalf("expected AdjustRB to replace the right background edge")
	}
}

func TestROIBestResidualCandidateSkipsTooCloseAndBelowMinAmplitude(t *testing.T) {
	settings := NewDefaultFitSettings()
	settings.ResidMinAmplitude = 10
	settings.ResidTooClose = 0.5

	r := newTestROI(settings, 60, 0)
	existing := NewPeak(NewHypermet(NewGaussian(20, 50, 3)), SUM4{}, settings)
	r.Peaks = map[float64]Peak{existing.Center.Value: existing}

	f := r.Finder()
	f.X = make([]float64, 60)
	f.Y = make([]float64, 60)
	f.YResid = make([]float64, 60)
	for i := range f.X {
		f.X[i] = float64(i)
	}

	// Candidate 1: too close to the existing peak at 20 -> must be rejected.
	f.YResid[21] = 100
	// Candidate 2: far away but below ResidMinAmplitude -> must be rejected.
	f.YResid[45] = 5
	// Candidate 3: far away and above threshold -> the only acceptable one.
	f.YResid[50] = 80
	f.Filtered = []int{21, 45, 50}
	f.Lefts = []int{18, 43, 48}
	f.Rights = []int{24, 47, 52}

	hyp, ok := r.bestResidualCandidate(settings)
	if !ok {
		t.Fatalf("expected a residual candidate to be found")
	}
	if got := hyp.Center.Value.Value; got != 50 {
		t.Fatalf("expected the accepted candidate to be centered at 50, got %g", got)
	}
}

func TestROIRemovePeaksToEmptyRendersAndRecordsHistory(t *testing.T) {
	settings := NewDefaultFitSettings()
	settings.ResidAuto = false
	r := newTestROI(settings, 50, 10)
	ctx := context.Background()
	opt := passthroughOptimizer{}

	hyp := NewHypermet(NewGaussian(25, 40, 3))
	if err := r.fitAndStore(ctx, opt, []Hypermet{hyp}, settings, "seed"); err != nil {
		t.Fatalf("fitAndStore: %v", err)
	}
	var id float64
	for k := range r.Peaks {
		id = k
	}

	if err := r.RemovePeaks(ctx, opt, []float64{id}); err != nil {
		t.Fatalf("RemovePeaks: %v", err)
	}
	if r.PeakCount() != 0 {
		t.Fatalf("expected all peaks removed, got %d", r.PeakCount())
	}
	if len(r.HRX) == 0 {
		t.Fatalf("expected render() to still populate HRX with zero peaks")
	}
}
