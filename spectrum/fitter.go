package spectrum

import (
	"fmt"

	"github.com/qpxlab/gammafit/spectral"
)

// NewFitterFromConsumer reads a histogram Consumer, trims trailing
// zero-count channels, and builds a spectral.Fitter seeded with the
// energy and FWHM calibrations from the consumer's first attached
// detector, mirroring Fitter::set_data's documented contract in
// spec.md §4.5. baseSettings supplies every tunable other than bit
// depth, the calibrations and (when the consumer reports a positive
// live time) LiveSeconds, which are overwritten from the consumer.
func NewFitterFromConsumer(c Consumer, baseSettings spectral.FitSettings, opt spectral.Optimizer) (*spectral.Fitter, error) {
	meta := c.Metadata()
	if len(meta.Detectors) == 0 {
		return nil, fmt.Errorf("spectrum: consumer has no attached detector")
	}

	x, y, err := ToXY(c)
	if err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("spectrum: consumer has no nonzero channels")
	}

	det := meta.Detectors[0]
	settings := baseSettings
	settings.Bits = meta.Resolution
	if cal, ok := det.BestEnergyCalibration(meta.Resolution); ok {
		settings.CalibrationEnergy = cal
	}
	settings.CalibrationFWHM = det.FWHMCalibration
	if seconds := meta.LiveTime.Seconds(); seconds > 0 {
		settings.LiveSeconds = seconds
	}

	return spectral.NewFitter(x, y, settings, opt), nil
}
