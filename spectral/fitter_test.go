package spectral

import (
	"context"
	"testing"
)

func newTestFitter(n int, level float64, settings FitSettings) *Fitter {
	x, y := flatSeries(n, level)
	return NewFitter(x, y, settings, passthroughOptimizer{})
}

// setCandidates installs a fixed Filtered/Lefts/Rights triple on the
// Fitter's parent Finder, bypassing the Mariscotti search so the
// merge/extend/cutoff/bisect pass can be exercised deterministically.
func setCandidates(f *Fitter, filtered, lefts, rights []int) {
	f.finder.Filtered = filtered
	f.finder.Lefts = lefts
	f.finder.Rights = rights
}

func TestBuildRegionsFromCandidatesMergesOverlappingSpans(t *testing.T) {
	settings := NewDefaultFitSettings()
	f := newTestFitter(100, 0, settings)
	// Two candidates whose ranges overlap (18 < 20) merge into one span;
	// the third, well clear of it, stays separate.
	setCandidates(f, []int{15, 22, 45}, []int{10, 18, 40}, []int{20, 25, 50})

	f.buildRegionsFromCandidates()

	if f.RegionCount() != 2 {
		t.Fatalf("expected 2 merged regions, got %d", f.RegionCount())
	}
	if r := f.Region(15); r == nil || r.LeftBin() != 10 || r.RightBin() != 24 {
		t.Fatalf("expected merged region starting at 10 ending at 24, got %+v", r)
	}
	if r := f.Region(45); r == nil || r.LeftBin() != 40 || r.RightBin() != 49 {
		t.Fatalf("expected standalone region starting at 40 ending at 49, got %+v", r)
	}
}

func TestBuildRegionsFromCandidatesDiscardsBelowCutoffEnergy(t *testing.T) {
	settings := NewDefaultFitSettings()
	settings.FinderCutoffKeV = 30
	f := newTestFitter(100, 0, settings)
	// No calibration installed, so BinToNrg is the identity: the first
	// region's right edge (25) falls below the cutoff and must be
	// dropped, leaving only the second region.
	setCandidates(f, []int{15, 22, 45}, []int{10, 18, 40}, []int{20, 25, 50})

	f.buildRegionsFromCandidates()

	if f.RegionCount() != 1 {
		t.Fatalf("expected 1 region to survive the cutoff, got %d", f.RegionCount())
	}
	if r := f.Region(45); r == nil || r.LeftBin() != 40 || r.RightBin() != 49 {
		t.Fatalf("expected surviving region starting at 40 ending at 49, got %+v", r)
	}
}

func TestBuildRegionsFromCandidatesBisectsTouchingExtendedRegions(t *testing.T) {
	settings := NewDefaultFitSettings()
	settings.ROIExtendBackground = 1
	f := newTestFitter(100, 0, settings)
	// A constant theoretical FWHM of 2 bins gives every candidate a
	// background-extension margin of ROIExtendBackground*2 = 2 bins.
	f.finder.FWTheoreticalBin = make([]float64, 100)
	for i := range f.finder.FWTheoreticalBin {
		f.finder.FWTheoreticalBin[i] = 2
	}
	// Three well-separated candidates (no KON-stage merge), but the
	// second and third extend into contact: [18,24] and [24,30].
	setCandidates(f, []int{11, 21, 27}, []int{10, 20, 26}, []int{12, 22, 28})

	f.buildRegionsFromCandidates()

	if f.RegionCount() != 3 {
		t.Fatalf("expected 3 regions after bisecting the touching pair, got %d", f.RegionCount())
	}

	var ids []float64
	for id := range f.Regions() {
		ids = append(ids, id)
	}
	// Every region must be non-overlapping and strictly ordered by its
	// left edge, per spec.md's ROI invariant.
	for i, id := range ids {
		r := f.Regions()[id]
		for j, other := range ids {
			if i == j {
				continue
			}
			o := f.Regions()[other]
			if r.OverlapsROI(o) {
				t.Fatalf("regions [%g,%g] and [%g,%g] overlap", r.LeftBin(), r.RightBin(), o.LeftBin(), o.RightBin())
			}
		}
	}
}

func TestRenderAllComposesRegionsInLeftBinOrder(t *testing.T) {
	settings := NewDefaultFitSettings()
	settings.ResidAuto = false
	x, y := flatSeries(60, 10)
	f := NewFitter(x, y, settings, passthroughOptimizer{})

	roiA := NewROI(f.finder, 0, 19)
	roiB := NewROI(f.finder, 20, 39)
	ctx := context.Background()
	if err := roiA.fitAndStore(ctx, passthroughOptimizer{}, []Hypermet{NewHypermet(NewGaussian(5, 40, 2))}, settings, "seed A"); err != nil {
		t.Fatalf("fitAndStore A: %v", err)
	}
	if err := roiB.fitAndStore(ctx, passthroughOptimizer{}, []Hypermet{NewHypermet(NewGaussian(30, 20, 2))}, settings, "seed B"); err != nil {
		t.Fatalf("fitAndStore B: %v", err)
	}
	f.AdoptRegion(roiA)
	f.AdoptRegion(roiB)

	f.RenderAll()

	for i, xv := range roiA.Finder().X {
		idx := f.finder.FindIndex(xv)
		if f.finder.YFit[idx] != roiA.Finder().YFit[i] {
			t.Fatalf("expected parent finder YFit at bin %g to match region A's fit", xv)
		}
	}
	for i, xv := range roiB.Finder().X {
		idx := f.finder.FindIndex(xv)
		if f.finder.YFit[idx] != roiB.Finder().YFit[i] {
			t.Fatalf("expected parent finder YFit at bin %g to match region B's fit", xv)
		}
	}
}
