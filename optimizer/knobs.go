// Package optimizer backs spectral.Optimizer with a mayfly-based
// population metaheuristic, grounded on
// CWBudde-algo-piano/cmd/piano-fit/optimize.go's normalized-search-box
// wiring pattern, retargeted from piano synthesis knobs to FitParam
// bounds.
package optimizer

import (
	"math"

	"github.com/qpxlab/gammafit/spectral"
)

// knobDef names one free dimension of the search box: a pointer back to
// the FitParam being varied plus its bounds, mirroring the teacher's
// knobDef{Name, Min, Max, IsInt}.
type knobDef struct {
	name  string
	min   float64
	max   float64
	apply func(v float64)
	read  func() float64
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// toNormalized maps the knobs' current values into mayfly's [0,1] search
// box, the inverse of fromNormalized.
func toNormalized(defs []knobDef) []float64 {
	pos := make([]float64, len(defs))
	for i, d := range defs {
		if d.max == d.min {
			pos[i] = 0
			continue
		}
		pos[i] = clamp((d.read()-d.min)/(d.max-d.min), 0, 1)
	}
	return pos
}

// fromNormalized denormalizes a mayfly position vector back into each
// knob's native range and applies it, mirroring the teacher's
// fromNormalized(pos, defs) candidate builder.
func fromNormalized(pos []float64, defs []knobDef) {
	for i, d := range defs {
		v := d.min + clamp(pos[i], 0, 1)*(d.max-d.min)
		d.apply(v)
	}
}

// annihilationEnergyKeV is the 511 keV positron-annihilation line, whose
// width is conventionally let float free of the shared-width pool even
// when every other peak in the multiplet shares one, since its physical
// width differs systematically from the detector's resolution curve.
const annihilationEnergyKeV = 511.0

// near511 reports whether h's centroid transforms to within
// settings.WidthAt511Tolerance keV of the annihilation line.
func near511(h *spectral.Hypermet, settings spectral.FitSettings) bool {
	if settings.WidthAt511Tolerance <= 0 {
		return false
	}
	energy := settings.BinToNrg(h.Center.Value.Value)
	return math.Abs(energy-annihilationEnergyKeV) <= settings.WidthAt511Tolerance
}

// widthSharesCommonPool reports whether h's width should be driven by a
// single common-width knob rather than its own independent knob, per
// settings.WidthCommon and the settings.WidthAt511Variable exception.
func widthSharesCommonPool(h *spectral.Hypermet, settings spectral.FitSettings) bool {
	if !settings.WidthCommon {
		return false
	}
	if settings.WidthAt511Variable && near511(h, settings) {
		return false
	}
	return true
}

// widthBoundsFor scales nominal by bounds' [Lower, Upper] multipliers,
// intersected with fallback's own [Lower, Upper] bounds, and falls back
// to the unscaled fallback bounds if the result is degenerate.
func widthBoundsFor(nominal float64, bounds, fallback spectral.FitParam) (float64, float64) {
	lo, hi := nominal*bounds.Lower, nominal*bounds.Upper
	if lo > hi {
		lo, hi = hi, lo
	}
	lo = math.Max(lo, fallback.Lower)
	hi = math.Min(hi, fallback.Upper)
	if lo >= hi {
		return fallback.Lower, fallback.Upper
	}
	return lo, hi
}

// centerKnob builds h's center knob, narrowing its search bounds to
// center0 +/- LateralSlack*FWHM intersected with the FitParam's own
// bounds, per spec.md's lateral_slack setting. Returns ok=false when the
// center is disabled or fixed.
func centerKnob(h *spectral.Hypermet, settings spectral.FitSettings) (knobDef, bool) {
	p := &h.Center
	if !p.Enabled || p.Fixed {
		return knobDef{}, false
	}
	lo, hi := p.Lower, p.Upper
	if settings.LateralSlack > 0 {
		fwhm := h.Width.Value.Value * 2
		slackLo := p.Value.Value - settings.LateralSlack*fwhm
		slackHi := p.Value.Value + settings.LateralSlack*fwhm
		narrowedLo, narrowedHi := math.Max(lo, slackLo), math.Min(hi, slackHi)
		if narrowedLo < narrowedHi {
			lo, hi = narrowedLo, narrowedHi
		}
	}
	return knobDef{
		name: p.Name, min: lo, max: hi,
		read:  func() float64 { return p.Value.Value },
		apply: func(v float64) { p.Value.Value = v },
	}, true
}

// widthKnob builds h's independent width knob, scaled by
// settings.WidthVariableBounds. Returns ok=false when disabled or fixed.
func widthKnob(h *spectral.Hypermet, settings spectral.FitSettings) (knobDef, bool) {
	p := &h.Width
	if !p.Enabled || p.Fixed {
		return knobDef{}, false
	}
	lo, hi := widthBoundsFor(p.Value.Value, settings.WidthVariableBounds, *p)
	return knobDef{
		name: p.Name, min: lo, max: hi,
		read:  func() float64 { return p.Value.Value },
		apply: func(v float64) { p.Value.Value = v },
	}, true
}

// commonWidthKnob builds one knob shared across every Hypermet in pool,
// scaled by settings.WidthCommonBounds around the first peak's nominal
// width, applying the chosen value to every pool member in lockstep.
func commonWidthKnob(pool []*spectral.Hypermet, settings spectral.FitSettings) knobDef {
	nominal := pool[0].Width.Value.Value
	lo, hi := widthBoundsFor(nominal, settings.WidthCommonBounds, pool[0].Width)
	return knobDef{
		name: "width_common", min: lo, max: hi,
		read: func() float64 { return pool[0].Width.Value.Value },
		apply: func(v float64) {
			for _, h := range pool {
				if h.Width.Enabled && !h.Width.Fixed {
					h.Width.Value.Value = v
				}
			}
		},
	}
}

// collectKnobs builds the free-parameter search box for a multiplet fit:
// every enabled, unfixed FitParam across the background polynomial and
// each Hypermet peak, honoring settings' width-sharing, 511 keV and
// lateral-slack rules (spec.md §4.3).
func collectKnobs(peaks []spectral.Hypermet, background *spectral.Polynomial, settings spectral.FitSettings) []knobDef {
	var defs []knobDef

	for degree, c := range background.Coeffs() {
		degree, c := degree, c
		if !c.Enabled || c.Fixed {
			continue
		}
		defs = append(defs, knobDef{
			name: c.Name, min: c.Lower, max: c.Upper,
			read:  func() float64 { return background.Coeffs()[degree].Value.Value },
			apply: func(v float64) { setCoeff(background, degree, v) },
		})
	}

	var commonPool []*spectral.Hypermet
	for i := range peaks {
		h := &peaks[i]

		if d, ok := centerKnob(h, settings); ok {
			defs = append(defs, d)
		}

		if widthSharesCommonPool(h, settings) {
			commonPool = append(commonPool, h)
		} else if d, ok := widthKnob(h, settings); ok {
			defs = append(defs, d)
		}

		defs = append(defs, peakKnobs(h)...)
	}
	if len(commonPool) > 0 {
		defs = append(defs, commonWidthKnob(commonPool, settings))
	}

	return defs
}

func setCoeff(p *spectral.Polynomial, degree int, v float64) {
	c := p.Coeffs()[degree]
	c.Value.Value = v
	p.Coeffs()[degree] = c
}

// peakKnobs collects the shape-parameter knobs of h that aren't handled
// by centerKnob/widthKnob/commonWidthKnob: height plus every skew/tail/
// step amplitude and slope.
func peakKnobs(h *spectral.Hypermet) []knobDef {
	var defs []knobDef
	add := func(p *spectral.FitParam) {
		if !p.Enabled || p.Fixed {
			return
		}
		defs = append(defs, knobDef{
			name: p.Name, min: p.Lower, max: p.Upper,
			read:  func() float64 { return p.Value.Value },
			apply: func(v float64) { p.Value.Value = v },
		})
	}
	add(&h.Height)
	add(&h.LskewAmp)
	add(&h.LskewSlope)
	add(&h.RskewAmp)
	add(&h.RskewSlope)
	add(&h.TailAmp)
	add(&h.TailSlope)
	add(&h.StepAmp)
	return defs
}
