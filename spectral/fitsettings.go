package spectral

// FitSettings bundles every tunable threshold the Finder, ROI and
// Optimizer consult, grounded on engine/math/fit_settings.h.
type FitSettings struct {
	Overridden bool

	FinderCutoffKeV float64

	KONWidth         uint16
	KONSigmaSpectrum float64
	KONSigmaResid    float64

	ROIMaxPeaks            uint16
	ROIExtendPeaks         float64
	ROIExtendBackground    float64
	BackgroundEdgeSamples  uint16
	SUM4Only               bool

	ResidAuto           bool
	ResidMaxIterations  uint16
	ResidMinAmplitude   uint64
	ResidTooClose       float64

	SmallSimplify     bool
	SmallMaxAmplitude uint64

	WidthCommon          bool
	WidthCommonBounds    FitParam
	WidthAt511Variable   bool
	WidthAt511Tolerance  float64

	GaussianOnly        bool
	LateralSlack        float64
	WidthVariableBounds FitParam
	StepAmplitude       FitParam
	TailAmplitude       FitParam
	TailSlope           FitParam
	LskewAmplitude      FitParam
	LskewSlope          FitParam
	RskewAmplitude      FitParam
	RskewSlope          FitParam
	FitterMaxIter       uint16

	CalibrationEnergy Calibration
	CalibrationFWHM   Calibration
	Bits              uint16

	// LiveSeconds is the detector's actual live time, threaded in from
	// spectrum.Metadata.LiveTime, used to convert peak areas to cps.
	LiveSeconds float64
}

// NewDefaultFitSettings returns conservative defaults modeled on the
// original's FitSettings() constructor defaults as used across the test
// scenarios in spec.md.
func NewDefaultFitSettings() FitSettings {
	return FitSettings{
		FinderCutoffKeV:       0,
		KONWidth:              4,
		KONSigmaSpectrum:      3,
		KONSigmaResid:         3,
		ROIMaxPeaks:           10,
		ROIExtendPeaks:        3,
		ROIExtendBackground:   1,
		BackgroundEdgeSamples: 3,
		SUM4Only:              false,
		ResidAuto:             true,
		ResidMaxIterations:    5,
		ResidMinAmplitude:     5,
		ResidTooClose:         0.5,
		SmallSimplify:         true,
		SmallMaxAmplitude:     5,
		WidthCommon:           true,
		WidthCommonBounds:     NewFitParam("width_common_bounds", 1, 0.5, 3),
		WidthAt511Variable:    false,
		WidthAt511Tolerance:   0.1,
		GaussianOnly:          true,
		LateralSlack:          0.5,
		WidthVariableBounds:   NewFitParam("width_variable_bounds", 1, 0.5, 3),
		StepAmplitude:         NewFitParam("step_amplitude", 0, 0, 0.05),
		TailAmplitude:         NewFitParam("tail_amplitude", 0, 0, 0.05),
		TailSlope:             NewFitParam("tail_slope", 1, 0.1, 5),
		LskewAmplitude:        NewFitParam("Lskew_amplitude", 0, 0, 0.05),
		LskewSlope:            NewFitParam("Lskew_slope", 0.5, 0.01, 2),
		RskewAmplitude:        NewFitParam("Rskew_amplitude", 0, 0, 0.05),
		RskewSlope:            NewFitParam("Rskew_slope", 0.5, 0.01, 2),
		FitterMaxIter:         50,
		LiveSeconds:           1,
	}
}

// NrgToBin converts an energy value to a channel/bin using the inverse of
// the energy calibration.
func (s FitSettings) NrgToBin(energy float64) float64 {
	return s.CalibrationEnergy.InverseTransformBits(energy, s.Bits)
}

// BinToNrg converts a channel/bin to energy using the energy calibration.
func (s FitSettings) BinToNrg(bin float64) float64 {
	return s.CalibrationEnergy.TransformBits(bin, s.Bits)
}

// BinToWidth converts a channel width to an energy width via the energy
// calibration's local derivative.
func (s FitSettings) BinToWidth(bin float64) float64 {
	if !s.CalibrationEnergy.Valid() {
		return bin
	}
	return s.CalibrationEnergy.Function.Derivative(bin) * bin
}

// NrgToFWHM estimates the expected FWHM at a given energy from the FWHM
// calibration curve.
func (s FitSettings) NrgToFWHM(energy float64) float64 {
	if !s.CalibrationFWHM.Valid() {
		return 0
	}
	return s.CalibrationFWHM.Transform(energy)
}
