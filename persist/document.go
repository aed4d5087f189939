// Package persist serializes Fitter/ROI state to and from a structured
// JSON document, the JSON half of spec.md §6's "two formats" persistence
// boundary (XML is not implemented: no XML library appears anywhere in
// the example pack, and the testable round-trip property in spec.md §8
// is format-agnostic — JSON alone satisfies it). Grounded in style on
// CWBudde-algo-piano/cmd/piano-fit/output.go's explicit DTO-then-marshal
// pattern: every persisted type gets a plain mirror struct with `json`
// tags, filled and read back field by field, rather than marshaling
// domain types directly (several, like spectral.Polynomial, keep their
// fields unexported by design).
package persist

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/qpxlab/gammafit/spectral"
)

// Document is the top-level persisted unit: every ROI of one Fitter,
// keyed by left-bin channel so region identity survives a round trip.
type Document struct {
	Regions map[string]regionDoc `json:"regions"`
}

type uncertainDoc struct {
	Value   float64 `json:"value"`
	Sigma   float64 `json:"sigma"`
	SigFigs uint16  `json:"sig_figs,omitempty"`
}

func toUncertainDoc(v spectral.UncertainValue) uncertainDoc {
	return uncertainDoc{Value: v.Value, Sigma: v.Sigma, SigFigs: v.SigFigs}
}

func (d uncertainDoc) toValue() spectral.UncertainValue {
	return spectral.UncertainValue{Value: d.Value, Sigma: d.Sigma, SigFigs: d.SigFigs}
}

type fitParamDoc struct {
	Name    string       `json:"name"`
	Value   uncertainDoc `json:"value"`
	Lower   float64      `json:"lower"`
	Upper   float64      `json:"upper"`
	Enabled bool         `json:"enabled"`
	Fixed   bool         `json:"fixed"`
}

func toFitParamDoc(p spectral.FitParam) fitParamDoc {
	return fitParamDoc{
		Name: p.Name, Value: toUncertainDoc(p.Value),
		Lower: p.Lower, Upper: p.Upper, Enabled: p.Enabled, Fixed: p.Fixed,
	}
}

func (d fitParamDoc) toFitParam() spectral.FitParam {
	return spectral.FitParam{
		Name: d.Name, Value: d.Value.toValue(),
		Lower: d.Lower, Upper: d.Upper, Enabled: d.Enabled, Fixed: d.Fixed,
	}
}

type polynomialDoc struct {
	Coeffs  map[string]fitParamDoc `json:"coeffs"`
	XOffset fitParamDoc            `json:"xoffset"`
	Chi2    float64                `json:"chi2"`
}

func toPolynomialDoc(p *spectral.Polynomial) polynomialDoc {
	if p == nil {
		return polynomialDoc{}
	}
	coeffs := make(map[string]fitParamDoc, len(p.Coeffs()))
	for degree, c := range p.Coeffs() {
		coeffs[fmt.Sprintf("%d", degree)] = toFitParamDoc(c)
	}
	return polynomialDoc{Coeffs: coeffs, XOffset: toFitParamDoc(p.XOffset()), Chi2: p.Chi2()}
}

func (d polynomialDoc) toPolynomial() (*spectral.Polynomial, error) {
	p := spectral.NewPolynomial(nil, d.XOffset.Value.Value)
	for key, c := range d.Coeffs {
		var degree int
		if _, err := fmt.Sscanf(key, "%d", &degree); err != nil {
			return nil, fmt.Errorf("persist: bad polynomial degree key %q: %w", key, err)
		}
		p.Coeffs()[degree] = c.toFitParam()
	}
	p.SetChi2(d.Chi2)
	return p, nil
}

type hypermetDoc struct {
	Center       fitParamDoc `json:"center"`
	Height       fitParamDoc `json:"height"`
	Width        fitParamDoc `json:"width"`
	LskewAmp     fitParamDoc `json:"lskew_amplitude"`
	LskewSlope   fitParamDoc `json:"lskew_slope"`
	RskewAmp     fitParamDoc `json:"rskew_amplitude"`
	RskewSlope   fitParamDoc `json:"rskew_slope"`
	TailAmp      fitParamDoc `json:"tail_amplitude"`
	TailSlope    fitParamDoc `json:"tail_slope"`
	StepAmp      fitParamDoc `json:"step_amplitude"`
	Rsq          float64     `json:"rsq"`
	UserModified bool        `json:"user_modified"`
}

func toHypermetDoc(h spectral.Hypermet) hypermetDoc {
	return hypermetDoc{
		Center: toFitParamDoc(h.Center), Height: toFitParamDoc(h.Height), Width: toFitParamDoc(h.Width),
		LskewAmp: toFitParamDoc(h.LskewAmp), LskewSlope: toFitParamDoc(h.LskewSlope),
		RskewAmp: toFitParamDoc(h.RskewAmp), RskewSlope: toFitParamDoc(h.RskewSlope),
		TailAmp: toFitParamDoc(h.TailAmp), TailSlope: toFitParamDoc(h.TailSlope),
		StepAmp: toFitParamDoc(h.StepAmp), Rsq: h.Rsq, UserModified: h.UserModified,
	}
}

func (d hypermetDoc) toHypermet() spectral.Hypermet {
	return spectral.Hypermet{
		Center: d.Center.toFitParam(), Height: d.Height.toFitParam(), Width: d.Width.toFitParam(),
		LskewAmp: d.LskewAmp.toFitParam(), LskewSlope: d.LskewSlope.toFitParam(),
		RskewAmp: d.RskewAmp.toFitParam(), RskewSlope: d.RskewSlope.toFitParam(),
		TailAmp: d.TailAmp.toFitParam(), TailSlope: d.TailSlope.toFitParam(),
		StepAmp: d.StepAmp.toFitParam(), Rsq: d.Rsq, UserModified: d.UserModified,
	}
}

type sum4EdgeDoc struct {
	Lchan   float64      `json:"lchan"`
	Rchan   float64      `json:"rchan"`
	Min     float64      `json:"min"`
	Max     float64      `json:"max"`
	Sum     uncertainDoc `json:"sum"`
	Average uncertainDoc `json:"average"`
}

func toSUM4EdgeDoc(e spectral.SUM4Edge) sum4EdgeDoc {
	return sum4EdgeDoc{
		Lchan: e.Lchan, Rchan: e.Rchan, Min: e.Min, Max: e.Max,
		Sum: toUncertainDoc(e.Sum), Average: toUncertainDoc(e.Average),
	}
}

func (d sum4EdgeDoc) toSUM4Edge() spectral.SUM4Edge {
	return spectral.SUM4Edge{
		Lchan: d.Lchan, Rchan: d.Rchan, Min: d.Min, Max: d.Max,
		Sum: d.Sum.toValue(), Average: d.Average.toValue(),
	}
}

type sum4Doc struct {
	LB             sum4EdgeDoc  `json:"lb"`
	RB             sum4EdgeDoc  `json:"rb"`
	Lchan          float64      `json:"lchan"`
	Rchan          float64      `json:"rchan"`
	GrossArea      uncertainDoc `json:"gross_area"`
	BackgroundArea uncertainDoc `json:"background_area"`
	PeakArea       uncertainDoc `json:"peak_area"`
	Centroid       uncertainDoc `json:"centroid"`
	FWHM           uncertainDoc `json:"fwhm"`
}

func toSUM4Doc(s spectral.SUM4) sum4Doc {
	return sum4Doc{
		LB: toSUM4EdgeDoc(s.LB), RB: toSUM4EdgeDoc(s.RB),
		Lchan: s.Lchan, Rchan: s.Rchan,
		GrossArea: toUncertainDoc(s.GrossArea), BackgroundArea: toUncertainDoc(s.BackgroundArea),
		PeakArea: toUncertainDoc(s.PeakArea), Centroid: toUncertainDoc(s.Centroid), FWHM: toUncertainDoc(s.FWHM),
	}
}

func (d sum4Doc) toSUM4() spectral.SUM4 {
	return spectral.SUM4{
		LB: d.LB.toSUM4Edge(), RB: d.RB.toSUM4Edge(),
		Lchan: d.Lchan, Rchan: d.Rchan,
		GrossArea: d.GrossArea.toValue(), BackgroundArea: d.BackgroundArea.toValue(),
		PeakArea: d.PeakArea.toValue(), Centroid: d.Centroid.toValue(), FWHM: d.FWHM.toValue(),
	}
}

type peakDoc struct {
	Hypermet hypermetDoc  `json:"hypermet"`
	SUM4     sum4Doc      `json:"sum4"`
	Center   uncertainDoc `json:"center"`
	Energy   uncertainDoc `json:"energy"`
	FWHM     uncertainDoc `json:"fwhm"`
	AreaSUM4 uncertainDoc `json:"area_sum4"`
	AreaHyp  uncertainDoc `json:"area_hyp"`
	AreaBest uncertainDoc `json:"area_best"`
	CPSSUM4  uncertainDoc `json:"cps_sum4"`
	CPSHyp   uncertainDoc `json:"cps_hyp"`
	CPSBest  uncertainDoc `json:"cps_best"`
}

func toPeakDoc(p spectral.Peak) peakDoc {
	return peakDoc{
		Hypermet: toHypermetDoc(p.Hypermet), SUM4: toSUM4Doc(p.SUM4),
		Center: toUncertainDoc(p.Center), Energy: toUncertainDoc(p.Energy), FWHM: toUncertainDoc(p.FWHM),
		AreaSUM4: toUncertainDoc(p.AreaSUM4), AreaHyp: toUncertainDoc(p.AreaHyp), AreaBest: toUncertainDoc(p.AreaBest),
		CPSSUM4: toUncertainDoc(p.CPSSUM4), CPSHyp: toUncertainDoc(p.CPSHyp), CPSBest: toUncertainDoc(p.CPSBest),
	}
}

func (d peakDoc) toPeak() spectral.Peak {
	return spectral.Peak{
		Hypermet: d.Hypermet.toHypermet(), SUM4: d.SUM4.toSUM4(),
		Center: d.Center.toValue(), Energy: d.Energy.toValue(), FWHM: d.FWHM.toValue(),
		AreaSUM4: d.AreaSUM4.toValue(), AreaHyp: d.AreaHyp.toValue(), AreaBest: d.AreaBest.toValue(),
		CPSSUM4: d.CPSSUM4.toValue(), CPSHyp: d.CPSHyp.toValue(), CPSBest: d.CPSBest.toValue(),
	}
}

type fitDescriptionDoc struct {
	Description   string  `json:"description"`
	PeakCount     int     `json:"peak_count"`
	Rsq           float64 `json:"rsq"`
	SUM4Aggregate float64 `json:"sum4_quality_aggregate"`
}

type fitDoc struct {
	Description fitDescriptionDoc  `json:"description"`
	Peaks       map[string]peakDoc `json:"peaks"`
	LB          sum4EdgeDoc        `json:"lb"`
	RB          sum4EdgeDoc        `json:"rb"`
	Background  polynomialDoc      `json:"background"`
}

func toFitDoc(f spectral.Fit) fitDoc {
	peaks := make(map[string]peakDoc, len(f.Peaks))
	for center, p := range f.Peaks {
		peaks[fmt.Sprintf("%.6f", center)] = toPeakDoc(p)
	}
	return fitDoc{
		Description: fitDescriptionDoc{
			Description: f.Description.Description, PeakCount: f.Description.PeakCount,
			Rsq: f.Description.Rsq, SUM4Aggregate: f.Description.SUM4Aggregate,
		},
		Peaks: peaks, LB: toSUM4EdgeDoc(f.LB), RB: toSUM4EdgeDoc(f.RB),
		Background: toPolynomialDoc(f.Background),
	}
}

func (d fitDoc) toFit(settings spectral.FitSettings) (spectral.Fit, error) {
	peaks := make(map[float64]spectral.Peak, len(d.Peaks))
	for _, pd := range d.Peaks {
		p := pd.toPeak()
		peaks[p.Center.Value] = p
	}
	bg, err := d.Background.toPolynomial()
	if err != nil {
		return spectral.Fit{}, err
	}
	return spectral.Fit{
		Description: spectral.FitDescription{
			Description: d.Description.Description, PeakCount: d.Description.PeakCount,
			Rsq: d.Description.Rsq, SUM4Aggregate: d.Description.SUM4Aggregate,
		},
		Peaks: peaks, LB: d.LB.toSUM4Edge(), RB: d.RB.toSUM4Edge(),
		Background: bg, Settings: settings,
	}, nil
}

type regionDoc struct {
	X          []float64 `json:"x"`
	Y          []float64 `json:"y"`
	Fits       []fitDoc  `json:"fits"`
	CurrentFit int       `json:"current_fit"`
}

// Encode builds a Document from every ROI of a Fitter, grounded on
// spec.md §6's round-trip requirement: ROI boundaries, every Fit
// snapshot's description, LB/RB, background polynomial, and each
// peak's Hypermet/SUM4 fields, plus the currently selected snapshot
// index.
func Encode(f *spectral.Fitter) Document {
	doc := Document{Regions: map[string]regionDoc{}}
	for id, roi := range f.Regions() {
		fn := roi.Finder()
		rd := regionDoc{CurrentFit: roi.CurrentFit()}
		if fn != nil {
			rd.X = append([]float64(nil), fn.X...)
			rd.Y = append([]float64(nil), fn.Y...)
		}
		for _, snap := range roi.Fits() {
			rd.Fits = append(rd.Fits, toFitDoc(snap))
		}
		doc.Regions[fmt.Sprintf("%.6f", id)] = rd
	}
	return doc
}

// Decode rebuilds every ROI described by doc into dst, a Fitter whose
// underlying Finder has already been constructed over the full
// spectrum (persistence never recreates the spectrum itself, only the
// regions fitted against it). Decode never calls Fitter.FindRegions: a
// saved document fully describes its regions, and rediscovering peaks
// here would pollute the restored Fitter with regions the document
// never had.
func Decode(doc Document, dst *spectral.Fitter) error {
	settings := dst.Settings()
	var rois []*spectral.ROI
	for _, rd := range doc.Regions {
		if len(rd.X) == 0 {
			continue
		}
		roi := spectral.NewROI(dst.ParentFinder(), rd.X[0], math.Nextafter(rd.X[len(rd.X)-1], math.Inf(1)))
		fits := make([]spectral.Fit, 0, len(rd.Fits))
		for _, fd := range rd.Fits {
			fit, err := fd.toFit(settings)
			if err != nil {
				return err
			}
			fits = append(fits, fit)
		}
		if len(fits) > 0 {
			if err := roi.LoadFits(fits, rd.CurrentFit); err != nil {
				return err
			}
		}
		rois = append(rois, roi)
	}
	for _, roi := range rois {
		dst.AdoptRegion(roi)
	}
	return nil
}

// Save writes a Fitter's regions to path as indented JSON.
func Save(f *spectral.Fitter, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(Encode(f), "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal: %w", err)
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

// Load reads a previously Saved document from path and applies it to
// dst, leaving dst untouched on any parse error (spec.md §7's
// persistence-parse-error contract).
func Load(path string, dst *spectral.Fitter) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("persist: read: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("persist: unmarshal: %w", err)
	}
	return Decode(doc, dst)
}
