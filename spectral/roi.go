package spectral

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// hrBinStep is the bin spacing of the high-resolution rendering grid, per
// spec.md §4.4 step 6.
const hrBinStep = 0.1

// FitDescription labels one snapshot in a ROI's fit-history stack.
type FitDescription struct {
	Description   string
	PeakCount     int
	Rsq           float64
	SUM4Aggregate float64
}

// Fit is an immutable snapshot of a ROI's fitted state, grounded on
// engine/fitting/roi.h's Fit struct. ROI keeps a stack of these to support
// reversible rollback.
type Fit struct {
	Description FitDescription
	Peaks       map[float64]Peak
	LB, RB      SUM4Edge
	Background  *Polynomial
	Settings    FitSettings
}

// ROI is a region of interest within a spectrum: a background model, a
// set of characterized peaks, and the reversible history of fits that
// produced them. Grounded on engine/fitting/roi.h.
type ROI struct {
	LB, RB     SUM4Edge
	Background *Polynomial
	Peaks      map[float64]Peak

	// HRX and the HR* vectors are the rasterized 0.1-bin rendering of the
	// current fit, rebuilt by render on every mutation. Grounded on
	// engine/fitting/roi.h's hr_x/hr_background/hr_back_steps/hr_fullfit/
	// hr_sum4_background fields.
	HRX              []float64
	HRBackground     []float64
	HRBackSteps      []float64
	HRFullFit        []float64
	HRSum4Background []float64

	finder *Finder

	fits       []Fit
	currentFit int
}

// NewROI builds a ROI over the parent Finder's channels from min up to, but
// not including, max (see CloneRange), initializing background edges but
// performing no peak search.
func NewROI(parent *Finder, min, max float64) *ROI {
	r := &ROI{Peaks: map[float64]Peak{}, currentFit: -1}
	r.setData(parent, min, max)
	return r
}

func (r *ROI) setData(parent *Finder, min, max float64) {
	f := &Finder{Settings: parent.Settings}
	f.CloneRange(parent, min, max)
	r.finder = f
	r.initEdges()
	r.initBackground()
	r.render()
}

func (r *ROI) initEdges() {
	if r.finder == nil || len(r.finder.X) == 0 {
		return
	}
	edgeSamples := int(r.finder.Settings.BackgroundEdgeSamples)
	if edgeSamples < 1 {
		edgeSamples = 1
	}
	n := len(r.finder.X)
	lr := edgeSamples - 1
	if lr >= n {
		lr = n - 1
	}
	r.LB = NewSUM4Edge(r.finder.X, r.finder.Y, 0, lr)
	rl := n - edgeSamples
	if rl < 0 {
		rl = 0
	}
	r.RB = NewSUM4Edge(r.finder.X, r.finder.Y, rl, n-1)
}

// SUM4Background builds the background polynomial from this ROI's own
// edges, per engine/fitting/roi.h's sum4_background (the ROI-init call
// site of SPEC_FULL.md's second Open Question).
func (r *ROI) SUM4Background() *Polynomial {
	return backgroundFromEdges(r.LB, r.RB)
}

func (r *ROI) initBackground() {
	r.Background = r.SUM4Background()
}

// render rasterizes the fit and background onto a 0.1-bin high-resolution
// grid and recomputes the low-resolution residuals on the ROI's Finder,
// matching ROI::render. Called at the end of every mutation that changes
// LB/RB, Background or Peaks.
func (r *ROI) render() {
	r.HRX, r.HRBackground, r.HRBackSteps, r.HRFullFit, r.HRSum4Background = nil, nil, nil, nil, nil
	if r.finder == nil || len(r.finder.X) == 0 || r.Background == nil {
		return
	}

	x0 := r.finder.X[0]
	n := len(r.finder.X)
	for i := 0.0; i < float64(n); i += hrBinStep {
		xv := x0 + i
		r.HRX = append(r.HRX, xv)
		r.HRFullFit = append(r.HRFullFit, r.finder.Y[clampIndex(int(i), n)])
	}
	r.HRBackground = evalPolynomial(r.HRX, r.Background)
	r.HRSum4Background = evalPolynomial(r.HRX, r.SUM4Background())

	lowresBackSteps := evalPolynomial(r.finder.X, r.Background)
	lowresFullFit := evalPolynomial(r.finder.X, r.Background)

	settings := r.FitSettings()
	if settings.SUM4Only || len(r.Peaks) == 0 {
		for id, p := range r.Peaks {
			p.HRPeakCurve = append([]float64(nil), r.HRFullFit...)
			p.HRFullFitCurve = append([]float64(nil), r.HRFullFit...)
			r.Peaks[id] = p
		}
		r.finder.SetFit(r.finder.X, lowresFullFit, lowresBackSteps)
		return
	}

	r.HRFullFit = append([]float64(nil), r.HRBackground...)
	r.HRBackSteps = append([]float64(nil), r.HRBackground...)

	for _, p := range r.Peaks {
		for j, xv := range r.HRX {
			step := p.Hypermet.EvalStepTail(xv)
			r.HRBackSteps[j] += step
			r.HRFullFit[j] += step + p.Hypermet.EvalPeak(xv)
		}
		for j, xv := range r.finder.X {
			step := p.Hypermet.EvalStepTail(xv)
			lowresBackSteps[j] += step
			lowresFullFit[j] += step + p.Hypermet.EvalPeak(xv)
		}
	}

	for id, p := range r.Peaks {
		p.HRPeakCurve = make([]float64, len(r.HRX))
		p.HRFullFitCurve = append([]float64(nil), r.HRBackSteps...)
		for j, xv := range r.HRX {
			p.HRPeakCurve[j] = p.Hypermet.EvalPeak(xv)
			p.HRFullFitCurve[j] += p.HRPeakCurve[j]
		}
		r.Peaks[id] = p
	}

	r.finder.SetFit(r.finder.X, lowresFullFit, lowresBackSteps)
}

// ID identifies the ROI by its left-edge channel.
func (r *ROI) ID() float64 { return r.LeftBin() }

// LeftBin is the lowest channel in the ROI's window.
func (r *ROI) LeftBin() float64 {
	if r.finder == nil || len(r.finder.X) == 0 {
		return 0
	}
	return r.finder.X[0]
}

// RightBin is the highest channel in the ROI's window.
func (r *ROI) RightBin() float64 {
	if r.finder == nil || len(r.finder.X) == 0 {
		return 0
	}
	return r.finder.X[len(r.finder.X)-1]
}

// Width is the channel span of the ROI.
func (r *ROI) Width() float64 { return r.RightBin() - r.LeftBin() }

// Overlaps reports whether bin falls within [LeftBin, RightBin].
func (r *ROI) Overlaps(bin float64) bool {
	return bin >= r.LeftBin() && bin <= r.RightBin()
}

// OverlapsRange reports whether [lbin, rbin] intersects the ROI's window.
func (r *ROI) OverlapsRange(lbin, rbin float64) bool {
	return lbin <= r.RightBin() && rbin >= r.LeftBin()
}

// OverlapsROI reports whether other's window intersects this ROI's.
func (r *ROI) OverlapsROI(other *ROI) bool {
	return r.OverlapsRange(other.LeftBin(), other.RightBin())
}

// PeakCount returns the number of characterized peaks in the ROI.
func (r *ROI) PeakCount() int { return len(r.Peaks) }

// Contains reports whether a peak with the given centroid key exists.
func (r *ROI) Contains(peakID float64) bool {
	_, ok := r.Peaks[peakID]
	return ok
}

// Peak returns the peak keyed by centroid, or the zero value if absent.
func (r *ROI) Peak(peakID float64) Peak { return r.Peaks[peakID] }

// Finder exposes the ROI's private channel window.
func (r *ROI) Finder() *Finder { return r.finder }

// FitSettings returns the settings carried by the ROI's Finder.
func (r *ROI) FitSettings() FitSettings {
	if r.finder == nil {
		return FitSettings{}
	}
	return r.finder.Settings
}

// CurrentFit returns the index of the currently active history entry, or
// -1 if the ROI has never been fit.
func (r *ROI) CurrentFit() int { return r.currentFit }

// HistorySize returns the number of snapshots in the fit-history stack.
func (r *ROI) HistorySize() int { return len(r.fits) }

// History returns the description of every snapshot in the stack.
func (r *ROI) History() []FitDescription {
	out := make([]FitDescription, len(r.fits))
	for i, f := range r.fits {
		out[i] = f.Description
	}
	return out
}

// Rollback restores the ROI to history entry i.
func (r *ROI) Rollback(i int) bool {
	if i < 0 || i >= len(r.fits) {
		return false
	}
	snap := r.fits[i]
	r.LB, r.RB = snap.LB, snap.RB
	r.Background = snap.Background
	r.Peaks = cloneFitPeaks(snap.Peaks)
	r.currentFit = i
	r.render()
	return true
}

// Fits returns the full fit-history stack, exposed for the persist
// package to serialize reversible history.
func (r *ROI) Fits() []Fit { return r.fits }

// LoadFits replaces the ROI's history stack and restores state to the
// given index, used by the persist package when deserializing a saved
// document. current may be -1 for a freshly-initialized, never-fit ROI.
func (r *ROI) LoadFits(fits []Fit, current int) error {
	if current < -1 || current >= len(fits) {
		return fmt.Errorf("spectral: invalid fit history index %d", current)
	}
	r.fits = fits
	r.currentFit = current
	if current >= 0 {
		snap := fits[current]
		r.LB, r.RB = snap.LB, snap.RB
		r.Background = snap.Background
		r.Peaks = cloneFitPeaks(snap.Peaks)
	}
	r.render()
	return nil
}

func cloneFitPeaks(src map[float64]Peak) map[float64]Peak {
	dst := make(map[float64]Peak, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (r *ROI) saveCurrentFit(description string) {
	if r.currentFit < len(r.fits)-1 {
		r.fits = r.fits[:r.currentFit+1]
	}
	desc := FitDescription{Description: description, PeakCount: len(r.Peaks)}
	if r.Background != nil {
		desc.Rsq = r.Background.Chi2()
	}
	r.fits = append(r.fits, Fit{
		Description: desc,
		Peaks:       cloneFitPeaks(r.Peaks),
		LB:          r.LB,
		RB:          r.RB,
		Background:  r.Background,
		Settings:    r.FitSettings(),
	})
	r.currentFit = len(r.fits) - 1
}

// AdjustSUM4 recomputes a single peak's SUM4 integration over a new
// [left, right] sub-range without touching the fit or other peaks.
func (r *ROI) AdjustSUM4(peakID, left, right float64) bool {
	p, ok := r.Peaks[peakID]
	if !ok || r.finder == nil {
		return false
	}
	p.SUM4 = NewSUM4(r.finder.X, r.finder.Y, left, right, r.LB, r.RB)
	p.reconstruct(r.FitSettings())
	delete(r.Peaks, peakID)
	r.Peaks[p.Center.Value] = p
	r.saveCurrentFit("adjust sum4")
	return true
}

// ReplaceHypermet swaps in a user-edited Hypermet for an existing peak and
// recomputes its derived quantities.
func (r *ROI) ReplaceHypermet(peakID float64, hyp Hypermet) bool {
	p, ok := r.Peaks[peakID]
	if !ok {
		return false
	}
	hyp.UserModified = true
	p.Hypermet = hyp
	p.reconstruct(r.FitSettings())
	delete(r.Peaks, peakID)
	r.Peaks[p.Center.Value] = p
	r.render()
	r.saveCurrentFit("replace hypermet")
	return true
}

// AutoFit runs the full peak-search-and-fit pipeline over the ROI's
// current window using opt, honoring ctx cancellation at iteration
// boundaries (the context.Context-based replacement for the original's
// boost::atomic<bool> interruptor).
func (r *ROI) AutoFit(ctx context.Context, opt Optimizer) error {
	if r.finder == nil {
		return fmt.Errorf("spectral: ROI has no data")
	}
	return r.rebuild(ctx, opt)
}

// Refit re-runs the optimizer over the ROI's existing peak set without
// re-running peak search.
func (r *ROI) Refit(ctx context.Context, opt Optimizer) error {
	return r.iterativeFit(ctx, opt)
}

func (r *ROI) rebuild(ctx context.Context, opt Optimizer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	settings := r.FitSettings()
	hyps := r.seedHypermets(settings)
	if err := r.fitAndStore(ctx, opt, hyps, settings, "auto fit"); err != nil {
		return err
	}
	if settings.ResidAuto {
		return r.iterativeResidualFit(ctx, opt)
	}
	return nil
}

func (r *ROI) seedHypermets(settings FitSettings) []Hypermet {
	var hyps []Hypermet
	for i := range r.finder.Filtered {
		centerIdx := r.finder.Filtered[i]
		if centerIdx < 0 || centerIdx >= len(r.finder.X) {
			continue
		}
		leftIdx, rightIdx := r.finder.Lefts[i], r.finder.Rights[i]
		width := (r.finder.X[clampIndex(rightIdx, len(r.finder.X))] - r.finder.X[clampIndex(leftIdx, len(r.finder.X))]) / 4
		if width <= 0 {
			width = 1
		}
		height := r.finder.Y[centerIdx] - r.Background.Eval(r.finder.X[centerIdx])
		g := NewGaussian(r.finder.X[centerIdx], height, width)
		h := NewHypermet(g)
		if !settings.GaussianOnly {
			h.LskewAmp.Enabled = true
			h.RskewAmp.Enabled = true
			h.StepAmp.Enabled = true
		}
		hyps = append(hyps, h)
	}
	return hyps
}

func (r *ROI) iterativeFit(ctx context.Context, opt Optimizer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	settings := r.FitSettings()
	var hyps []Hypermet
	for _, p := range r.Peaks {
		hyps = append(hyps, p.Hypermet)
	}
	sort.Slice(hyps, func(i, j int) bool { return hyps[i].Center.Value.Value < hyps[j].Center.Value.Value })
	return r.fitAndStore(ctx, opt, hyps, settings, "refit")
}

func (r *ROI) fitAndStore(ctx context.Context, opt Optimizer, hyps []Hypermet, settings FitSettings, description string) error {
	fitted, bg, rsq, err := opt.FitMultiplet(ctx, r.finder.X, r.finder.Y, hyps, r.Background, settings)
	if err != nil {
		return err
	}
	r.Background = bg
	r.Background.SetChi2(rsq)
	r.Peaks = map[float64]Peak{}
	for _, h := range fitted {
		s4 := NewSUM4(r.finder.X, r.finder.Y, r.finder.FindLeft(h.Center.Value.Value), r.finder.FindRight(h.Center.Value.Value), r.LB, r.RB)
		p := NewPeak(h, s4, settings)
		r.Peaks[p.Center.Value] = p
	}
	r.render()
	r.saveCurrentFit(description)
	return nil
}

func evalPolynomial(x []float64, p *Polynomial) []float64 {
	out := make([]float64, len(x))
	for i, xv := range x {
		out[i] = p.Eval(xv)
	}
	return out
}

// iterativeResidualFit repeatedly adds the largest-area residual candidate
// and accepts it only when the refit strictly improves chi-square, ported
// from ROI::iterative_fit/add_from_resid. Bounded by ResidMaxIterations,
// interruptible via ctx at each iteration boundary. Rejected trials are
// rolled back to the state before the trial: the pushed snapshot is
// discarded and peaks/background/history revert in place.
func (r *ROI) iterativeResidualFit(ctx context.Context, opt Optimizer) error {
	settings := r.FitSettings()
	if !settings.CalibrationFWHM.Valid() || len(r.Peaks) == 0 {
		return nil
	}

	prevRsq := r.Background.Chi2()
	for i := 0; i < int(settings.ResidMaxIterations); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		candidate, ok := r.bestResidualCandidate(settings)
		if !ok {
			break
		}

		prevLB, prevRB, prevBackground, prevPeaks := r.LB, r.RB, r.Background, cloneFitPeaks(r.Peaks)
		prevFitsLen := len(r.fits)

		var hyps []Hypermet
		for _, p := range r.Peaks {
			hyps = append(hyps, p.Hypermet)
		}
		hyps = append(hyps, candidate)
		sort.Slice(hyps, func(a, b int) bool { return hyps[a].Center.Value.Value < hyps[b].Center.Value.Value })

		if err := r.fitAndStore(ctx, opt, hyps, settings, "iterative residual fit"); err != nil {
			return err
		}

		newRsq := r.Background.Chi2()
		if math.IsNaN(newRsq) || newRsq >= prevRsq {
			r.LB, r.RB, r.Background, r.Peaks = prevLB, prevRB, prevBackground, prevPeaks
			r.fits = r.fits[:prevFitsLen]
			if prevFitsLen > 0 {
				r.currentFit = prevFitsLen - 1
			} else {
				r.currentFit = -1
			}
			r.render()
			break
		}
		prevRsq = newRsq
	}
	return nil
}

// bestResidualCandidate picks the largest-area Gaussian estimate among the
// Finder's current residual candidates that is not too_close to an
// existing peak and whose amplitude clears ResidMinAmplitude, mirroring
// ROI::add_from_resid's centroid_hint==-1 branch. Candidate shape is
// estimated the same way seedHypermets estimates initial peaks: height
// from the residual sample at the candidate center, width from the
// detected left/right extent.
func (r *ROI) bestResidualCandidate(settings FitSettings) (Hypermet, bool) {
	best := Hypermet{}
	bestArea := 0.0
	found := false

	for i := range r.finder.Filtered {
		centerIdx := clampIndex(r.finder.Filtered[i], len(r.finder.X))
		leftIdx := clampIndex(r.finder.Lefts[i], len(r.finder.X))
		rightIdx := clampIndex(r.finder.Rights[i], len(r.finder.X))
		if leftIdx >= rightIdx {
			continue
		}

		width := (r.finder.X[rightIdx] - r.finder.X[leftIdx]) / 4
		height := r.finder.YResid[centerIdx]
		center := r.finder.X[centerIdx]
		if width <= 0 || height <= float64(settings.ResidMinAmplitude) {
			continue
		}
		if !(r.finder.X[leftIdx] < center && center < r.finder.X[rightIdx]) {
			continue
		}

		g := NewGaussian(center, height, width)
		hwhm := g.HWHM.Value.Value
		slack := settings.ResidTooClose * hwhm * 2
		tooClose := false
		for _, p := range r.Peaks {
			if math.Abs(p.Center.Value-center) < slack {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}

		area := g.Area().Value
		if area > bestArea {
			best = NewHypermet(g)
			if !settings.GaussianOnly {
				best.LskewAmp.Enabled = true
				best.RskewAmp.Enabled = true
				best.StepAmp.Enabled = true
			}
			bestArea = area
			found = true
		}
	}

	return best, found
}

// AdjustLB moves the left background edge and re-fits.
func (r *ROI) AdjustLB(ctx context.Context, opt Optimizer, left, right float64) error {
	li := r.finder.FindIndex(left)
	ri := r.finder.FindIndex(right)
	r.LB = NewSUM4Edge(r.finder.X, r.finder.Y, clampIndex(li, len(r.finder.X)), clampIndex(ri, len(r.finder.X)))
	r.Background = r.SUM4Background()
	return r.iterativeFit(ctx, opt)
}

// AdjustRB moves the right background edge and re-fits.
func (r *ROI) AdjustRB(ctx context.Context, opt Optimizer, left, right float64) error {
	li := r.finder.FindIndex(left)
	ri := r.finder.FindIndex(right)
	r.RB = NewSUM4Edge(r.finder.X, r.finder.Y, clampIndex(li, len(r.finder.X)), clampIndex(ri, len(r.finder.X)))
	r.Background = r.SUM4Background()
	return r.iterativeFit(ctx, opt)
}

// AddPeak seeds a new Hypermet from the [left, right] sub-range and
// re-fits the whole multiplet jointly.
func (r *ROI) AddPeak(ctx context.Context, opt Optimizer, left, right float64) error {
	li := clampIndex(r.finder.FindIndex(left), len(r.finder.X))
	ri := clampIndex(r.finder.FindIndex(right), len(r.finder.X))
	if li >= ri {
		return fmt.Errorf("spectral: invalid peak range")
	}
	center := (r.finder.X[li] + r.finder.X[ri]) / 2
	width := (r.finder.X[ri] - r.finder.X[li]) / 4
	height := 0.0
	for i := li; i <= ri; i++ {
		v := r.finder.Y[i] - r.Background.Eval(r.finder.X[i])
		if v > height {
			height = v
		}
	}
	settings := r.FitSettings()
	var hyps []Hypermet
	for _, p := range r.Peaks {
		hyps = append(hyps, p.Hypermet)
	}
	hyps = append(hyps, NewHypermet(NewGaussian(center, height, width)))
	sort.Slice(hyps, func(i, j int) bool { return hyps[i].Center.Value.Value < hyps[j].Center.Value.Value })
	return r.fitAndStore(ctx, opt, hyps, settings, "add peak")
}

// RemovePeaks deletes the given peak IDs and re-fits the remaining set.
func (r *ROI) RemovePeaks(ctx context.Context, opt Optimizer, ids []float64) error {
	remove := make(map[float64]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	var hyps []Hypermet
	for id, p := range r.Peaks {
		if remove[id] {
			continue
		}
		hyps = append(hyps, p.Hypermet)
	}
	sort.Slice(hyps, func(i, j int) bool { return hyps[i].Center.Value.Value < hyps[j].Center.Value.Value })
	if len(hyps) == 0 {
		r.Peaks = map[float64]Peak{}
		r.render()
		r.saveCurrentFit("remove all peaks")
		return nil
	}
	return r.fitAndStore(ctx, opt, hyps, r.FitSettings(), "remove peaks")
}

// OverrideSettings replaces the ROI's fit settings and re-fits.
func (r *ROI) OverrideSettings(ctx context.Context, opt Optimizer, settings FitSettings) error {
	if r.finder == nil {
		return fmt.Errorf("spectral: ROI has no data")
	}
	r.finder.Settings = settings
	return r.iterativeFit(ctx, opt)
}
