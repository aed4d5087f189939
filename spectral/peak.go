package spectral

// Peak quality tiers, mirroring Peak::quality_energy/quality_fwhm's use of
// the Currie classification on the SUM4-derived quantities.
const (
	PeakQualityGood = iota
	PeakQualityQuestionable
	PeakQualityBad
)

// Peak is a fully characterized spectral feature: a Hypermet shape fit and
// a SUM4 deterministic integration over the same channel range, reconciled
// into "best" area/centroid/fwhm estimates. Grounded on
// source/engine/fitting/peak.h.
type Peak struct {
	SUM4     SUM4
	Hypermet Hypermet

	Center UncertainValue
	Energy UncertainValue
	FWHM   UncertainValue

	AreaSUM4, AreaHyp, AreaBest UncertainValue
	CPSSUM4, CPSHyp, CPSBest    UncertainValue

	// HRPeakCurve and HRFullFitCurve are this peak's contribution to the
	// ROI's high-resolution rendering: HRPeakCurve is the Hypermet peak
	// shape alone (no step/background), HRFullFitCurve is that peak on
	// top of the composite background and every peak's step, sampled on
	// the same grid as ROI.HRX. Populated by ROI.render.
	HRPeakCurve, HRFullFitCurve []float64
}

// NewPeak reconciles a Hypermet fit and a SUM4 integration performed over
// the same region into a single characterized Peak.
func NewPeak(hyp Hypermet, s4 SUM4, settings FitSettings) Peak {
	p := Peak{SUM4: s4, Hypermet: hyp}
	p.reconstruct(settings)
	return p
}

// reconstruct recomputes the derived quantities (energy, best-area choice,
// count rates) from the stored Hypermet/SUM4 data, matching
// Peak::reconstruct.
func (p *Peak) reconstruct(settings FitSettings) {
	p.Center = p.Hypermet.Center.Value
	p.Energy = NewUncertainValue(settings.BinToNrg(p.Center.Value), 0)
	p.FWHM = p.Hypermet.Width.Value.Scale(2)

	p.AreaSUM4 = p.SUM4.PeakArea
	p.AreaHyp = p.Hypermet.Area()

	if settings.SUM4Only || !p.AreaHyp.Finite() {
		p.AreaBest = p.AreaSUM4
	} else {
		p.AreaBest = p.AreaHyp
	}

	liveSeconds := settings.LiveSeconds
	if liveSeconds <= 0 {
		liveSeconds = 1
	}
	p.CPSSUM4 = p.AreaSUM4.Scale(1 / liveSeconds)
	p.CPSHyp = p.AreaHyp.Scale(1 / liveSeconds)
	p.CPSBest = p.AreaBest.Scale(1 / liveSeconds)
}

// QualityEnergy classifies the peak's net area significance via the
// Currie criterion applied at the SUM4 level.
func (p Peak) QualityEnergy() int {
	switch p.SUM4.Quality() {
	case CurrieQualityPeak:
		return PeakQualityGood
	case CurrieQualityLimitOfQuantification, CurrieQualityLimitOfDetection:
		return PeakQualityQuestionable
	default:
		return PeakQualityBad
	}
}

// QualityFWHM flags a nonphysical or unconverged width fit.
func (p Peak) QualityFWHM() int {
	if !p.FWHM.Finite() || p.FWHM.Value <= 0 {
		return PeakQualityBad
	}
	return PeakQualityGood
}

// Good reports whether both energy and FWHM quality are acceptable.
func (p Peak) Good() bool {
	return p.QualityEnergy() == PeakQualityGood && p.QualityFWHM() != PeakQualityBad
}

// Less orders peaks by centroid, matching Peak::operator<.
func (p Peak) Less(other Peak) bool {
	return p.Center.Value < other.Center.Value
}
