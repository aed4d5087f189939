package spectral

import (
	"context"
	"fmt"
	"sort"
)

// Fitter is the facade over a single histogram: it owns a Finder over the
// full spectrum, a collection of ROIs derived from peak search, and
// dispatches all mutating operations (auto-fit, region merges, peak
// add/remove) to the owning ROI. Single-threaded per spec.md's
// concurrency model: the caller is responsible for not invoking Fitter
// methods concurrently on the same instance. Grounded on
// engine/fitting/fitter.cpp.
type Fitter struct {
	finder   *Finder
	regions  map[float64]*ROI
	settings FitSettings
	opt      Optimizer
}

// NewFitter builds a Fitter over x/y with the given settings and
// optimizer backend.
func NewFitter(x, y []float64, settings FitSettings, opt Optimizer) *Fitter {
	f := &Fitter{
		finder:   NewFinder(x, y, settings),
		regions:  map[float64]*ROI{},
		settings: settings,
		opt:      opt,
	}
	return f
}

// FindRegions rebuilds the ROI collection from the current Finder's peak
// search, discarding any unsaved fit history. Candidates within
// ROIExtendBackground * theoretical FWHM of each other are merged into one
// span; every resulting span is then extended outward by the same margin,
// regions whose right edge transforms to energy below FinderCutoffKeV are
// discarded, and any two adjacent spans left touching are bisected at
// their midpoint. Ported from Fitter::find_regions to preserve the
// non-overlapping, ordered ROI invariant (spec.md §3/§8) that a
// one-ROI-per-candidate scheme cannot.
func (f *Fitter) FindRegions() {
	f.finder.FindPeaks()
	f.buildRegionsFromCandidates()
}

// buildRegionsFromCandidates runs the merge/extend/cutoff/bisect pass over
// whatever candidates are currently in f.finder.Filtered/Lefts/Rights,
// without re-running peak search. Split out from FindRegions so tests can
// drive the region-building algorithm from known candidate lists.
func (f *Fitter) buildRegionsFromCandidates() {
	f.regions = map[float64]*ROI{}
	if len(f.finder.Filtered) == 0 {
		return
	}

	var ls, rs []int
	L, R := f.finder.Lefts[0], f.finder.Rights[0]
	for i := 1; i < len(f.finder.Filtered); i++ {
		margin := f.roiMargin(R)
		if f.finder.Lefts[i] < R+2*int(margin) {
			if f.finder.Lefts[i] < L {
				L = f.finder.Lefts[i]
			}
			if f.finder.Rights[i] > R {
				R = f.finder.Rights[i]
			}
			continue
		}
		ls, rs = f.closeRegion(ls, rs, L, R)
		L, R = f.finder.Lefts[i], f.finder.Rights[i]
	}
	ls, rs = f.closeRegion(ls, rs, L, R)

	n := len(f.finder.X)
	if len(ls) > 1 {
		for i := 0; i+1 < len(ls); i++ {
			if rs[i] >= ls[i+1] {
				mid := (ls[i+1] + rs[i]) / 2
				rs[i] = mid - 1
				ls[i+1] = mid + 1
			}
		}
	}

	for i := range ls {
		li := clampIndex(ls[i], n)
		ri := clampIndex(rs[i], n)
		if li >= ri {
			continue
		}
		roi := NewROI(f.finder, f.finder.X[li], f.finder.X[ri])
		if roi.Width() > 0 {
			f.regions[roi.ID()] = roi
		}
	}
}

// roiMargin is the background-extension margin at bin index idx, in bins,
// derived from the theoretical FWHM calibration when one is installed.
func (f *Fitter) roiMargin(idx int) float64 {
	if len(f.finder.FWTheoreticalBin) == 0 {
		return 0
	}
	return f.settings.ROIExtendBackground * f.finder.FWTheoreticalBin[clampIndex(idx, len(f.finder.FWTheoreticalBin))]
}

// closeRegion extends [L, R] outward by its margin and appends it to the
// ls/rs accumulators, unless its right edge transforms to energy below
// FinderCutoffKeV.
func (f *Fitter) closeRegion(ls, rs []int, L, R int) ([]int, []int) {
	n := len(f.finder.X)
	margin := int(f.roiMargin(R))
	Lext := L - margin
	if Lext < 0 {
		Lext = 0
	}
	Rext := R + margin
	if Rext >= n {
		Rext = n - 1
	}
	energy := f.settings.BinToNrg(f.finder.X[clampIndex(Rext, n)])
	if energy < f.settings.FinderCutoffKeV {
		return ls, rs
	}
	return append(ls, Lext), append(rs, Rext)
}

// RenderAll resets the parent Finder's fit/background series and
// re-applies every region's current fit onto it in ascending left-bin
// order, so overlapping-edge regions compose the way they last did
// rather than leaving stale data from a deleted or shrunk neighbor.
// Ported from Fitter::render_all; called after any ROI mutation that
// can change the shape of the combined spectrum view.
func (f *Fitter) RenderAll() {
	f.finder.YFit = make([]float64, len(f.finder.X))
	f.finder.YBackground = make([]float64, len(f.finder.X))
	f.finder.YResid = append([]float64(nil), f.finder.Y...)
	f.finder.YResidOnBackground = append([]float64(nil), f.finder.Y...)

	ids := make([]float64, 0, len(f.regions))
	for id := range f.regions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return f.regions[ids[i]].LeftBin() < f.regions[ids[j]].LeftBin()
	})

	for _, id := range ids {
		r := f.regions[id]
		x := r.Finder().X
		if len(x) == 0 {
			continue
		}
		f.finder.SetFit(x, r.Finder().YFit, r.Finder().YBackground)
	}
}

// PeakCount returns the total number of characterized peaks across every
// region.
func (f *Fitter) PeakCount() int {
	n := 0
	for _, r := range f.regions {
		n += r.PeakCount()
	}
	return n
}

// ContainsPeak reports whether any region contains a peak at bin.
func (f *Fitter) ContainsPeak(bin float64) bool {
	_, ok := f.Peaks()[bin]
	return ok
}

// Peaks flattens every region's peak map into one, keyed by centroid.
func (f *Fitter) Peaks() map[float64]Peak {
	out := map[float64]Peak{}
	for _, r := range f.regions {
		for k, p := range r.Peaks {
			out[k] = p
		}
	}
	return out
}

// RegionCount returns the number of ROIs currently tracked.
func (f *Fitter) RegionCount() int { return len(f.regions) }

// Settings returns the Fitter's current default FitSettings, used by the
// persist package to reattach settings to deserialized Fit snapshots.
func (f *Fitter) Settings() FitSettings { return f.settings }

// ParentFinder exposes the Fitter's full-spectrum Finder, used by the
// persist package to reconstruct ROIs over their saved channel windows.
func (f *Fitter) ParentFinder() *Finder { return f.finder }

// AdoptRegion installs an externally-constructed ROI (e.g. one rebuilt
// by the persist package from a saved document) into the Fitter's
// region set, keyed by its ID.
func (f *Fitter) AdoptRegion(r *ROI) { f.regions[r.ID()] = r }

// ContainsRegion reports whether an ROI's window covers bin.
func (f *Fitter) ContainsRegion(bin float64) bool {
	for _, r := range f.regions {
		if r.Overlaps(bin) {
			return true
		}
	}
	return false
}

// Region returns the ROI whose window contains bin, or nil.
func (f *Fitter) Region(bin float64) *ROI {
	for _, r := range f.regions {
		if r.Overlaps(bin) {
			return r
		}
	}
	return nil
}

// Regions returns every tracked ROI keyed by ID.
func (f *Fitter) Regions() map[float64]*ROI { return f.regions }

// RelevantRegions returns the IDs of every ROI overlapping [left, right].
func (f *Fitter) RelevantRegions(left, right float64) []float64 {
	var ids []float64
	for id, r := range f.regions {
		if r.OverlapsRange(left, right) {
			ids = append(ids, id)
		}
	}
	sort.Float64s(ids)
	return ids
}

// DeleteROI removes the region with the given ID.
func (f *Fitter) DeleteROI(regionID float64) bool {
	if _, ok := f.regions[regionID]; !ok {
		return false
	}
	delete(f.regions, regionID)
	f.RenderAll()
	return true
}

// ParentRegion returns the ROI that owns the given peak ID.
func (f *Fitter) ParentRegion(peakID float64) *ROI {
	for _, r := range f.regions {
		if r.Contains(peakID) {
			return r
		}
	}
	return nil
}

// AutoFit runs a full auto-fit on the named region.
func (f *Fitter) AutoFit(ctx context.Context, regionID float64) error {
	r, ok := f.regions[regionID]
	if !ok {
		return fmt.Errorf("spectral: no region %v", regionID)
	}
	if err := r.AutoFit(ctx, f.opt); err != nil {
		return err
	}
	f.RenderAll()
	return nil
}

// RefitRegion re-runs the optimizer over an existing region's peak set.
func (f *Fitter) RefitRegion(ctx context.Context, regionID float64) error {
	r, ok := f.regions[regionID]
	if !ok {
		return fmt.Errorf("spectral: no region %v", regionID)
	}
	if err := r.Refit(ctx, f.opt); err != nil {
		return err
	}
	f.RenderAll()
	return nil
}

// AdjustLB moves a region's left background edge and re-fits it.
func (f *Fitter) AdjustLB(ctx context.Context, regionID, left, right float64) error {
	r, ok := f.regions[regionID]
	if !ok {
		return fmt.Errorf("spectral: no region %v", regionID)
	}
	if err := r.AdjustLB(ctx, f.opt, left, right); err != nil {
		return err
	}
	f.RenderAll()
	return nil
}

// AdjustRB moves a region's right background edge and re-fits it.
func (f *Fitter) AdjustRB(ctx context.Context, regionID, left, right float64) error {
	r, ok := f.regions[regionID]
	if !ok {
		return fmt.Errorf("spectral: no region %v", regionID)
	}
	if err := r.AdjustRB(ctx, f.opt, left, right); err != nil {
		return err
	}
	f.RenderAll()
	return nil
}

// OverrideROISettings replaces one region's fit settings and re-fits it.
func (f *Fitter) OverrideROISettings(ctx context.Context, regionID float64, settings FitSettings) error {
	r, ok := f.regions[regionID]
	if !ok {
		return fmt.Errorf("spectral: no region %v", regionID)
	}
	if err := r.OverrideSettings(ctx, f.opt, settings); err != nil {
		return err
	}
	f.RenderAll()
	return nil
}

// MergeRegions combines every ROI overlapping [left, right] into a single
// new region and re-runs auto-fit over the merged window.
func (f *Fitter) MergeRegions(ctx context.Context, left, right float64) error {
	ids := f.RelevantRegions(left, right)
	if len(ids) == 0 {
		return fmt.Errorf("spectral: no regions overlap [%g, %g]", left, right)
	}
	minBin, maxBin := left, right
	for _, id := range ids {
		r := f.regions[id]
		if r.LeftBin() < minBin {
			minBin = r.LeftBin()
		}
		if r.RightBin() > maxBin {
			maxBin = r.RightBin()
		}
		delete(f.regions, id)
	}
	merged := NewROI(f.finder, minBin, maxBin)
	f.regions[merged.ID()] = merged
	if err := merged.AutoFit(ctx, f.opt); err != nil {
		return err
	}
	f.RenderAll()
	return nil
}

// AdjustSUM4 recomputes one peak's SUM4 integration in place.
func (f *Fitter) AdjustSUM4(peakCenter, left, right float64) bool {
	r := f.ParentRegion(peakCenter)
	if r == nil {
		return false
	}
	return r.AdjustSUM4(peakCenter, left, right)
}

// ReplaceHypermet swaps in a user-edited Hypermet shape for a peak.
func (f *Fitter) ReplaceHypermet(peakCenter float64, hyp Hypermet) bool {
	r := f.ParentRegion(peakCenter)
	if r == nil {
		return false
	}
	return r.ReplaceHypermet(peakCenter, hyp)
}

// RollbackROI restores a region to a prior point in its fit history.
func (f *Fitter) RollbackROI(regionID float64, point int) bool {
	r, ok := f.regions[regionID]
	if !ok {
		return false
	}
	if !r.Rollback(point) {
		return false
	}
	f.RenderAll()
	return true
}

// AddPeak seeds and fits a new peak within [left, right], creating a new
// region if none currently overlaps that range.
func (f *Fitter) AddPeak(ctx context.Context, left, right float64) error {
	for _, r := range f.regions {
		if r.OverlapsRange(left, right) {
			if err := r.AddPeak(ctx, f.opt, left, right); err != nil {
				return err
			}
			f.RenderAll()
			return nil
		}
	}
	r := NewROI(f.finder, left, right)
	f.regions[r.ID()] = r
	if err := r.AddPeak(ctx, f.opt, left, right); err != nil {
		return err
	}
	f.RenderAll()
	return nil
}

// RemovePeaks deletes the given peak IDs from their owning regions.
func (f *Fitter) RemovePeaks(ctx context.Context, bins []float64) error {
	byRegion := map[float64][]float64{}
	for _, bin := range bins {
		r := f.ParentRegion(bin)
		if r == nil {
			continue
		}
		byRegion[r.ID()] = append(byRegion[r.ID()], bin)
	}
	for id, ids := range byRegion {
		if err := f.regions[id].RemovePeaks(ctx, f.opt, ids); err != nil {
			return err
		}
	}
	f.RenderAll()
	return nil
}

// ApplySettings updates the Fitter's default settings for any region
// created afterward; existing regions are unaffected until explicitly
// overridden.
func (f *Fitter) ApplySettings(settings FitSettings) {
	f.settings = settings
	f.finder.Settings = settings
}

// OverrideEnergy assigns a manual energy value to a peak's calibration,
// bypassing the calibration curve for that one peak.
func (f *Fitter) OverrideEnergy(peakID, energy float64) bool {
	r := f.ParentRegion(peakID)
	if r == nil {
		return false
	}
	p, ok := r.Peaks[peakID]
	if !ok {
		return false
	}
	p.Energy = NewUncertainValue(energy, 0)
	r.Peaks[peakID] = p
	return true
}
