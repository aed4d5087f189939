// Package settings loads partial FitSettings overrides from a JSON file
// on top of spectral.NewDefaultFitSettings, in the same pointer-field
// partial-override style the teacher's (now removed) preset/json.go used
// for piano parameters: every field is a pointer so "absent" and
// "explicitly zero" are distinguishable, and ApplyFile validates each
// field as it applies it.
package settings

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/qpxlab/gammafit/spectral"
)

// File is the JSON schema for a FitSettings override document.
type File struct {
	FinderCutoffKeV *float64 `json:"finder_cutoff_kev"`

	KONWidth         *uint16  `json:"kon_width"`
	KONSigmaSpectrum *float64 `json:"kon_sigma_spectrum"`
	KONSigmaResid    *float64 `json:"kon_sigma_resid"`

	ROIMaxPeaks           *uint16  `json:"roi_max_peaks"`
	ROIExtendPeaks        *float64 `json:"roi_extend_peaks"`
	ROIExtendBackground   *float64 `json:"roi_extend_background"`
	BackgroundEdgeSamples *uint16  `json:"background_edge_samples"`
	SUM4Only              *bool    `json:"sum4_only"`

	ResidAuto          *bool    `json:"resid_auto"`
	ResidMaxIterations *uint16  `json:"resid_max_iterations"`
	ResidMinAmplitude  *uint64  `json:"resid_min_amplitude"`
	ResidTooClose      *float64 `json:"resid_too_close"`

	SmallSimplify     *bool   `json:"small_simplify"`
	SmallMaxAmplitude *uint64 `json:"small_max_amplitude"`

	WidthCommon         *bool    `json:"width_common"`
	WidthAt511Variable  *bool    `json:"width_at_511_variable"`
	WidthAt511Tolerance *float64 `json:"width_at_511_tolerance"`

	GaussianOnly  *bool    `json:"gaussian_only"`
	LateralSlack  *float64 `json:"lateral_slack"`
	FitterMaxIter *uint16  `json:"fitter_max_iter"`
}

// LoadJSON reads a FitSettings override document and applies it on top
// of spectral.NewDefaultFitSettings.
func LoadJSON(path string) (spectral.FitSettings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return spectral.FitSettings{}, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return spectral.FitSettings{}, err
	}

	s := spectral.NewDefaultFitSettings()
	if err := ApplyFile(&s, &f); err != nil {
		return spectral.FitSettings{}, err
	}
	return s, nil
}

// ApplyFile applies a parsed override file onto an existing FitSettings,
// validating every field it touches and leaving target unmodified on error.
func ApplyFile(target *spectral.FitSettings, f *File) error {
	if target == nil {
		return fmt.Errorf("settings: nil destination")
	}
	if f == nil {
		return nil
	}
	dst := *target

	if f.FinderCutoffKeV != nil {
		if *f.FinderCutoffKeV < 0 {
			return fmt.Errorf("settings: finder_cutoff_kev must be >= 0")
		}
		dst.FinderCutoffKeV = *f.FinderCutoffKeV
	}
	if f.KONWidth != nil {
		if *f.KONWidth < 2 {
			return fmt.Errorf("settings: kon_width must be >= 2")
		}
		dst.KONWidth = *f.KONWidth
	}
	if f.KONSigmaSpectrum != nil {
		if *f.KONSigmaSpectrum <= 0 {
			return fmt.Errorf("settings: kon_sigma_spectrum must be > 0")
		}
		dst.KONSigmaSpectrum = *f.KONSigmaSpectrum
	}
	if f.KONSigmaResid != nil {
		if *f.KONSigmaResid <= 0 {
			return fmt.Errorf("settings: kon_sigma_resid must be > 0")
		}
		dst.KONSigmaResid = *f.KONSigmaResid
	}
	if f.ROIMaxPeaks != nil {
		if *f.ROIMaxPeaks == 0 {
			return fmt.Errorf("settings: roi_max_peaks must be > 0")
		}
		dst.ROIMaxPeaks = *f.ROIMaxPeaks
	}
	if f.ROIExtendPeaks != nil {
		if *f.ROIExtendPeaks < 0 {
			return fmt.Errorf("settings: roi_extend_peaks must be >= 0")
		}
		dst.ROIExtendPeaks = *f.ROIExtendPeaks
	}
	if f.ROIExtendBackground != nil {
		if *f.ROIExtendBackground < 0 {
			return fmt.Errorf("settings: roi_extend_background must be >= 0")
		}
		dst.ROIExtendBackground = *f.ROIExtendBackground
	}
	if f.BackgroundEdgeSamples != nil {
		if *f.BackgroundEdgeSamples == 0 {
			return fmt.Errorf("settings: background_edge_samples must be > 0")
		}
		dst.BackgroundEdgeSamples = *f.BackgroundEdgeSamples
	}
	if f.SUM4Only != nil {
		dst.SUM4Only = *f.SUM4Only
	}
	if f.ResidAuto != nil {
		dst.ResidAuto = *f.ResidAuto
	}
	if f.ResidMaxIterations != nil {
		dst.ResidMaxIterations = *f.ResidMaxIterations
	}
	if f.ResidMinAmplitude != nil {
		dst.ResidMinAmplitude = *f.ResidMinAmplitude
	}
	if f.ResidTooClose != nil {
		if *f.ResidTooClose < 0 {
			return fmt.Errorf("settings: resid_too_close must be >= 0")
		}
		dst.ResidTooClose = *f.ResidTooClose
	}
	if f.SmallSimplify != nil {
		dst.SmallSimplify = *f.SmallSimplify
	}
	if f.SmallMaxAmplitude != nil {
		dst.SmallMaxAmplitude = *f.SmallMaxAmplitude
	}
	if f.WidthCommon != nil {
		dst.WidthCommon = *f.WidthCommon
	}
	if f.WidthAt511Variable != nil {
		dst.WidthAt511Variable = *f.WidthAt511Variable
	}
	if f.WidthAt511Tolerance != nil {
		if *f.WidthAt511Tolerance < 0 {
			return fmt.Errorf("settings: width_at_511_tolerance must be >= 0")
		}
		dst.WidthAt511Tolerance = *f.WidthAt511Tolerance
	}
	if f.GaussianOnly != nil {
		dst.GaussianOnly = *f.GaussianOnly
	}
	if f.LateralSlack != nil {
		if *f.LateralSlack < 0 {
			return fmt.Errorf("settings: lateral_slack must be >= 0")
		}
		dst.LateralSlack = *f.LateralSlack
	}
	if f.FitterMaxIter != nil {
		if *f.FitterMaxIter == 0 {
			return fmt.Errorf("settings: fitter_max_iter must be > 0")
		}
		dst.FitterMaxIter = *f.FitterMaxIter
	}

	dst.Overridden = true
	*target = dst
	return nil
}
