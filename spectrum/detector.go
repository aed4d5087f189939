// Package spectrum defines the boundary the fitting core consumes: a
// finished 1-D histogram consumer, its metadata, and the detector record
// carrying calibrations. It deliberately does not model acquisition,
// device control, or file formats (spec.md §1 Non-goals) — those are the
// surrounding application's job; this package only names the interfaces
// the core reads. Grounded on
// original_source/engine/consumer_metadata.h/.cpp and
// original_source/source/engine/detector.h, trimmed to the fields §6 of
// the specification actually names (resolution, live/real time, start
// time, detectors[0], data_range) rather than the original's full
// dynamic-setting/XML system, which has no role once persistence is a
// plain JSON document (see the persist package).
package spectrum

import (
	"fmt"
	"time"

	"github.com/qpxlab/gammafit/spectral"
)

// DataPoint is one histogram entry: a channel and its count.
type DataPoint struct {
	Channel int
	Count   float64
}

// Metadata carries the acquisition attributes the core needs to seed a
// Fitter: bit depth, timing, and the owning detector. Grounded on
// ConsumerMetadata's type_/dimensions_/detectors fields, reduced to the
// subset spec.md §6 names.
type Metadata struct {
	Resolution uint16 // bit depth: histogram has 2^Resolution channels
	LiveTime   time.Duration
	RealTime   time.Duration
	StartTime  time.Time
	Detectors  []Detector
}

// Detector names a physical detector and its calibration set, grounded
// on detector.h's energy_calibrations_/fwhm_calibration_ fields. Gain
// match and efficiency calibrations are out of scope: spec.md §3/§4
// never exercise them.
type Detector struct {
	Name               string
	Type               string
	EnergyCalibrations []spectral.Calibration // keyed implicitly by Calibration.Bits
	FWHMCalibration    spectral.Calibration
}

// BestEnergyCalibration returns the EnergyCalibrations entry matching
// bits exactly, or the highest-resolution one available, mirroring
// detector.h's best_calib/highest_res_calib pair.
func (d Detector) BestEnergyCalibration(bits uint16) (spectral.Calibration, bool) {
	var best spectral.Calibration
	found := false
	for _, c := range d.EnergyCalibrations {
		if c.Bits == bits {
			return c, true
		}
		if !found || c.Bits > best.Bits {
			best = c
			found = true
		}
	}
	return best, found
}

// Consumer is a finished 1-D histogram: the only acquisition surface the
// fitting core depends on, grounded on spec.md §6's "Histogram
// consumer" boundary description.
type Consumer interface {
	Metadata() Metadata
	// DataRange returns every channel in [0, 2^bits) with a nonzero or
	// in-range count, ordered by channel.
	DataRange(bits uint16) ([]DataPoint, error)
}

// ToXY extracts (x, y) slices from a Consumer's full channel range,
// trimming trailing all-zero channels the way Fitter.set_data does
// before handing the slice to a Finder.
func ToXY(c Consumer) ([]float64, []float64, error) {
	meta := c.Metadata()
	points, err := c.DataRange(meta.Resolution)
	if err != nil {
		return nil, nil, fmt.Errorf("spectrum: data range: %w", err)
	}
	last := -1
	for i, p := range points {
		if p.Count != 0 {
			last = i
		}
	}
	if last < 0 {
		return nil, nil, nil
	}
	x := make([]float64, last+1)
	y := make([]float64, last+1)
	for i := 0; i <= last; i++ {
		x[i] = float64(points[i].Channel)
		y[i] = points[i].Count
	}
	return x, y, nil
}
